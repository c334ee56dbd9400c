package server

import (
	"math"
	"sort"
)

// CorrectnessFunc decides whether a set of selected choice indexes answers a
// multiple-choice question correctly. The default demands the selection match
// the correct set exactly; tests swap it out.
type CorrectnessFunc func(question *Question, selected []int) bool

func exactMatchCorrectness(question *Question, selected []int) bool {
	want := make(map[int]struct{})
	for i, choice := range question.Choices {
		if choice.Correct {
			want[i] = struct{}{}
		}
	}
	if len(selected) != len(want) {
		return false
	}
	for _, index := range selected {
		if _, ok := want[index]; !ok {
			return false
		}
	}
	return true
}

// applyScores settles the current question for every present participant:
// correctness, points, the first-to-lock bonus for choice questions, and the
// resulting ranks. Absent participants keep their score but earn nothing.
func (s *Server) applyScores(game *Game) {
	question := game.currentQuestion()
	if question == nil {
		return
	}
	present := game.presentParticipants()

	if isChoiceQuestion(question) {
		var first *Participant
		for _, p := range present {
			p.LastWasBonus = false
			p.LastCorrect = s.isCorrect(question, p.SelectedChoices)
			if !p.LastCorrect {
				p.LastScoreDelta = 0
				continue
			}
			p.LastScoreDelta = question.Points
			if !p.LockedAt.IsZero() && (first == nil || p.LockedAt.Before(first.LockedAt)) {
				first = p
			}
		}
		if first != nil {
			bonus := int(math.Round(float64(question.Points) * s.cfg.FirstAnswerBonusFactor))
			first.LastScoreDelta += bonus
			first.LastWasBonus = true
			first.BonusCount++
		}
	} else {
		for _, p := range present {
			grade := p.Grade
			if game.Mode == ModeTest {
				grade = 1
			}
			p.LastWasBonus = false
			p.LastCorrect = grade > 0
			p.LastScoreDelta = int(math.Round(float64(question.Points) * grade))
		}
	}

	for _, p := range present {
		p.Score += p.LastScoreDelta
	}
	rankParticipants(present)
}

// rankParticipants assigns dense-by-score standings: equal scores share a rank
// and the next distinct score takes the following position count.
func rankParticipants(present []*Participant) {
	ordered := make([]*Participant, len(present))
	copy(ordered, present)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})
	rank := 0
	prevScore := 0
	for i, p := range ordered {
		if i == 0 || p.Score != prevScore {
			rank = i + 1
		}
		p.LastRank = rank
		prevScore = p.Score
	}
}
