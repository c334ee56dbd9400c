package server

// Payload builders for the room fanout. Everything here reads the aggregate
// under its lock and copies into plain maps, so a payload is safe to encode
// after the lock is released.

// QuestionStat is the archived per-question breakdown shown on the final
// results screen.
type QuestionStat struct {
	Index        int            `json:"index"`
	Text         string         `json:"text"`
	Type         string         `json:"type"`
	ChoiceCounts []int          `json:"choice_counts,omitempty"`
	GradeCounts  map[string]int `json:"grade_counts,omitempty"`
	Correct      int            `json:"correct"`
	Incorrect    int            `json:"incorrect"`
}

// choiceTally counts, per choice index, how many present participants have it
// selected right now. Published on every selection change.
func choiceTally(game *Game) map[string]any {
	question := game.currentQuestion()
	if question == nil {
		return map[string]any{"counts": []int{}}
	}
	counts := make([]int, len(question.Choices))
	for _, p := range game.presentParticipants() {
		for _, index := range p.SelectedChoices {
			if index >= 0 && index < len(counts) {
				counts[index]++
			}
		}
	}
	return map[string]any{
		"question_index": game.CurrentIndex,
		"counts":         counts,
	}
}

// editingTally splits present participants into still-editing versus locked
// for a long-answer question.
func editingTally(game *Game) map[string]any {
	editing, locked := 0, 0
	for _, p := range game.presentParticipants() {
		if p.HasLocked {
			locked++
		} else {
			editing++
		}
	}
	return map[string]any{
		"question_index": game.CurrentIndex,
		"editing":        editing,
		"locked":         locked,
	}
}

// gradeTally buckets the grades the organizer handed out for the question
// just reviewed.
func gradeTally(game *Game) map[string]any {
	counts := map[string]int{"0": 0, "50": 0, "100": 0}
	for _, id := range game.gradingQueue {
		p := game.findParticipant(id)
		if p == nil || !p.Graded {
			continue
		}
		switch p.Grade {
		case 0:
			counts["0"]++
		case 0.5:
			counts["50"]++
		case 1:
			counts["100"]++
		}
	}
	return map[string]any{
		"question_index": game.CurrentIndex,
		"counts":         counts,
	}
}

// archiveQuestionStats snapshots the settled question into the aggregate so
// the final results screen can replay every breakdown.
func archiveQuestionStats(game *Game) {
	question := game.currentQuestion()
	if question == nil {
		return
	}
	stat := QuestionStat{
		Index: game.CurrentIndex,
		Text:  question.Text,
		Type:  question.Type,
	}
	if isChoiceQuestion(question) {
		stat.ChoiceCounts = make([]int, len(question.Choices))
		for _, p := range game.presentParticipants() {
			for _, index := range p.SelectedChoices {
				if index >= 0 && index < len(stat.ChoiceCounts) {
					stat.ChoiceCounts[index]++
				}
			}
		}
	} else {
		stat.GradeCounts = map[string]int{"0": 0, "50": 0, "100": 0}
		for _, p := range game.presentParticipants() {
			switch {
			case p.Grade == 0.5:
				stat.GradeCounts["50"]++
			case p.LastCorrect:
				stat.GradeCounts["100"]++
			default:
				stat.GradeCounts["0"]++
			}
		}
	}
	for _, p := range game.presentParticipants() {
		if p.LastCorrect {
			stat.Correct++
		} else {
			stat.Incorrect++
		}
	}
	game.QuestionStats = append(game.QuestionStats, stat)
}

// finalStatistics is the FinalResults broadcast: standings, cumulative bonus
// tallies, and the archived per-question breakdowns.
func finalStatistics(game *Game) map[string]any {
	scores := make([]map[string]any, 0, len(game.Participants))
	for i := range game.Participants {
		p := &game.Participants[i]
		scores = append(scores, map[string]any{
			"name":        p.Name,
			"score":       p.Score,
			"bonus_count": p.BonusCount,
			"rank":        p.LastRank,
			"left":        p.HasLeft,
		})
	}
	return map[string]any{
		"title":     game.Title,
		"scores":    scores,
		"questions": game.QuestionStats,
	}
}

// rosterPayload lists every participant the room has ever seen, flagged with
// presence so clients can grey out leavers instead of dropping them.
func rosterPayload(game *Game) map[string]any {
	roster := make([]map[string]any, 0, len(game.Participants))
	for i := range game.Participants {
		p := &game.Participants[i]
		roster = append(roster, map[string]any{
			"id":             p.ID,
			"name":           p.Name,
			"score":          p.Score,
			"muted":          p.Muted,
			"has_interacted": p.HasInteracted,
			"has_locked":     p.HasLocked,
			"left":           p.HasLeft,
		})
	}
	return map[string]any{
		"room_id":      game.ID,
		"organizer_id": game.OrganizerID,
		"locked":       game.RoomLocked,
		"participants": roster,
	}
}

// questionPreview announces which question is coming without exposing it.
func questionPreview(game *Game) map[string]any {
	return map[string]any{
		"question_index": game.CurrentIndex,
		"total":          len(game.Questions),
	}
}

// questionPayload is the Answering broadcast: the question with its choices
// stripped of correctness flags.
func questionPayload(game *Game, question *Question) map[string]any {
	choices := make([]map[string]any, 0, len(question.Choices))
	for _, choice := range question.Choices {
		choices = append(choices, map[string]any{"text": choice.Text})
	}
	return map[string]any{
		"question_index": game.CurrentIndex,
		"total":          len(game.Questions),
		"type":           question.Type,
		"text":           question.Text,
		"points":         question.Points,
		"choices":        choices,
	}
}

// answersPayload is the QuestionResults reveal: the same question with the
// correct choices exposed.
func answersPayload(game *Game) map[string]any {
	question := game.currentQuestion()
	if question == nil {
		return map[string]any{}
	}
	correct := make([]int, 0, len(question.Choices))
	for i, choice := range question.Choices {
		if choice.Correct {
			correct = append(correct, i)
		}
	}
	return map[string]any{
		"question_index":  game.CurrentIndex,
		"correct_choices": correct,
	}
}

// scoresPayload carries each present participant's settled delta and rank for
// the question just revealed.
func scoresPayload(game *Game) map[string]any {
	results := make([]map[string]any, 0, len(game.Participants))
	for _, p := range game.presentParticipants() {
		results = append(results, map[string]any{
			"participant_id": p.ID,
			"name":           p.Name,
			"score":          p.Score,
			"delta":          p.LastScoreDelta,
			"correct":        p.LastCorrect,
			"bonus":          p.LastWasBonus,
			"rank":           p.LastRank,
		})
	}
	return map[string]any{
		"question_index": game.CurrentIndex,
		"results":        results,
	}
}
