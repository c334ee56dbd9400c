package server

import (
	"log"
	"sort"
	"strings"
)

// gradingOrder decides which long answers the organizer reviews and in what
// order. Only participants still present are queued, sorted by name so the
// sequence is stable no matter the join order. Answers stay anonymous on the
// wire; the queue keeps the ids.
func gradingOrder(game *Game) []string {
	present := game.presentParticipants()
	sort.Slice(present, func(i, j int) bool {
		return strings.ToLower(present[i].Name) < strings.ToLower(present[j].Name)
	})
	queue := make([]string, 0, len(present))
	for _, p := range present {
		queue = append(queue, p.ID)
	}
	return queue
}

// requestGrading sends the organizer the next queued answer. The participant
// is identified only by queue position so grading stays blind.
func (s *Server) requestGrading(game *Game) {
	participant := game.findParticipant(game.gradingQueue[game.GradingIndex])
	if participant == nil {
		game.GradingIndex++
		s.applyTrigger(game, triggerGradingDone)
		return
	}
	s.broadcast.SendToParticipant(game.OrganizerID, eventGradingRequested, map[string]any{
		"index": game.GradingIndex,
		"total": len(game.gradingQueue),
		"text":  participant.LongAnswer,
	})
}

// GradeCurrentAnswer records the organizer's verdict for the answer currently
// under review. Valid grades are 0, 0.5 and 1; anything else is dropped, as is
// a grade arriving outside the grading phase.
func (s *Server) GradeCurrentAnswer(roomID, actorID string, grade float64) {
	s.store.WithGame(roomID, func(game *Game) {
		if !isOrganizer(game, actorID) {
			return
		}
		if game.Phase != phaseGrading || game.GradingIndex >= len(game.gradingQueue) {
			return
		}
		if grade != 0 && grade != 0.5 && grade != 1 {
			return
		}
		participant := game.findParticipant(game.gradingQueue[game.GradingIndex])
		if participant != nil {
			participant.Grade = grade
			participant.Graded = true
			log.Printf("answer graded room_id=%s index=%d grade=%.1f", game.ID, game.GradingIndex, grade)
		}
		game.GradingIndex++
		s.applyTrigger(game, triggerGradingDone)
	})
}
