package server

import "log"

// SubmitChoices records a participant's pending multiple-choice selection and
// republishes the live tally. Submissions are accepted in any phase; the
// engine's phase guards decide what the answer ends up counting for.
func (s *Server) SubmitChoices(roomID, participantID string, choices []int) {
	s.store.WithGame(roomID, func(game *Game) {
		participant := game.findParticipant(participantID)
		if participant == nil || participant.HasLeft || participant.HasLocked {
			return
		}
		question := game.currentQuestion()
		participant.SelectedChoices = validChoiceIndexes(question, choices)
		participant.HasInteracted = true
		s.broadcast.SendToRoom(game.ID, eventParticipantInteracted, map[string]any{
			"participant_id": participantID,
		})
		if isChoiceQuestion(question) {
			s.broadcast.SendToRoom(game.ID, eventChoiceTally, choiceTally(game))
		}
	})
}

// SubmitLongAnswer records a participant's pending free-text answer and
// republishes the editing tally.
func (s *Server) SubmitLongAnswer(roomID, participantID, text string) {
	s.store.WithGame(roomID, func(game *Game) {
		participant := game.findParticipant(participantID)
		if participant == nil || participant.HasLeft || participant.HasLocked {
			return
		}
		participant.LongAnswer = text
		participant.HasInteracted = true
		s.broadcast.SendToRoom(game.ID, eventParticipantInteracted, map[string]any{
			"participant_id": participantID,
		})
		if !isChoiceQuestion(game.currentQuestion()) {
			s.broadcast.SendToRoom(game.ID, eventEditingTally, editingTally(game))
		}
	})
}

// LockAnswer finalizes a participant's answer for the current question. Once
// the last present participant locks, the timer expiry is synthesized
// immediately instead of waiting out the window.
func (s *Server) LockAnswer(roomID, participantID string) {
	s.store.WithGame(roomID, func(game *Game) {
		if game.Phase != phaseAnswering {
			return
		}
		participant := game.findParticipant(participantID)
		if participant == nil || participant.HasLeft || participant.HasLocked {
			return
		}
		participant.HasLocked = true
		participant.LockedAt = timeNowUTC()
		log.Printf("answer locked room_id=%s participant_id=%s", game.ID, participantID)
		s.broadcast.SendToRoom(game.ID, eventAnswerLocked, map[string]any{
			"participant_id": participantID,
		})
		if !isChoiceQuestion(game.currentQuestion()) {
			s.broadcast.SendToRoom(game.ID, eventEditingTally, editingTally(game))
		}
		s.maybeFinishEarly(game)
	})
}

func validChoiceIndexes(question *Question, choices []int) []int {
	if question == nil {
		return nil
	}
	valid := make([]int, 0, len(choices))
	seen := make(map[int]struct{}, len(choices))
	for _, index := range choices {
		if index < 0 || index >= len(question.Choices) {
			continue
		}
		if _, dup := seen[index]; dup {
			continue
		}
		seen[index] = struct{}{}
		valid = append(valid, index)
	}
	return valid
}
