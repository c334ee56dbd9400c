package server

import (
	"log"
	"time"
)

const defaultChoiceSeconds = 30

type phaseRule struct {
	advance func(s *Server, game *Game, trig trigger) string
}

// phaseRules maps the current phase to its guarded transitions. A rule returns
// the phase it moved the room into, or "" when the trigger does not match in
// that phase: duplicate and late-arriving client events are expected, so an
// unmatched pairing is absorbed silently instead of raised.
//
// Assigned in init: the grading rule calls back into requestGrading, which
// reaches applyTrigger, so a plain var literal would form an initialization
// cycle.
var phaseRules map[string]phaseRule

func init() {
	phaseRules = map[string]phaseRule{
		phaseLobby: {
			advance: func(s *Server, game *Game, trig trigger) string {
				switch trig {
				case triggerActionButton:
					if game.Mode == ModeTest {
						return ""
					}
					if !game.RoomLocked || game.presentCount() == 0 {
						return ""
					}
					if game.Mode == ModeSoloRandom {
						s.vacateOrganizer(game)
					}
					return s.beginCountdown(game)
				case triggerSkipTest:
					if game.Mode != ModeTest {
						return ""
					}
					return s.beginAnswering(game)
				}
				return ""
			},
		},
		phaseCountdown: {
			advance: func(s *Server, game *Game, trig trigger) string {
				if trig != triggerEndTimer {
					return ""
				}
				return s.beginAnswering(game)
			},
		},
		phaseAnswering: {
			advance: func(s *Server, game *Game, trig trigger) string {
				if trig != triggerEndTimer {
					return ""
				}
				if game.Mode == ModeTest || isChoiceQuestion(game.currentQuestion()) {
					return s.revealQuestionResults(game)
				}
				return s.beginGrading(game)
			},
		},
		phaseGrading: {
			advance: func(s *Server, game *Game, trig trigger) string {
				if trig != triggerGradingDone {
					return ""
				}
				if game.GradingIndex < len(game.gradingQueue) {
					s.requestGrading(game)
					return phaseGrading
				}
				next := s.revealQuestionResults(game)
				s.broadcast.SendToRoom(game.ID, eventGradeTally, gradeTally(game))
				return next
			},
		},
		phaseQuestionResults: {
			advance: func(s *Server, game *Game, trig trigger) string {
				switch trig {
				case triggerActionButton:
					if game.Mode == ModeTest {
						return ""
					}
					return s.advanceLiveResults(game)
				case triggerEndTimer:
					switch game.Mode {
					case ModeTest:
						return s.advanceTestResults(game)
					case ModeSoloRandom:
						return s.advanceLiveResults(game)
					}
					return ""
				}
				return ""
			},
		},
		phaseCooldown: {
			advance: func(s *Server, game *Game, trig trigger) string {
				if trig != triggerEndTimer {
					return ""
				}
				return s.beginAnswering(game)
			},
		},
	}
}

// handleAction is the single entry point for participant/organizer-sourced
// triggers. Non-organizer attempts are dropped silently; stale clients resend
// freely without breaking anything.
func (s *Server) handleAction(game *Game, trig trigger, actorID string) {
	if game.OrganizerID == "" || actorID != game.OrganizerID {
		return
	}
	s.applyTrigger(game, trig)
}

// applyTrigger runs the one matching transition rule for the room's current
// phase. It must be called with the aggregate's lock held.
func (s *Server) applyTrigger(game *Game, trig trigger) {
	rule, ok := phaseRules[game.Phase]
	if !ok {
		return
	}
	from := game.Phase
	next := rule.advance(s, game, trig)
	if next != "" && next != from {
		log.Printf("phase advanced room_id=%s from=%s to=%s", game.ID, from, next)
	}
}

func (s *Server) beginCountdown(game *Game) string {
	setPhase(game, phaseCountdown)
	s.broadcastPhase(game)
	s.broadcast.SendToRoom(game.ID, eventNewQuestion, questionPreview(game))
	s.armTimer(game, s.cfg.CountdownSeconds)
	return phaseCountdown
}

func (s *Server) beginAnswering(game *Game) string {
	question := game.currentQuestion()
	if question == nil {
		return ""
	}
	setPhase(game, phaseAnswering)
	s.broadcastPhase(game)
	s.broadcast.SendToRoom(game.ID, eventNewQuestion, questionPayload(game, question))
	if isChoiceQuestion(question) {
		s.broadcast.SendToRoom(game.ID, eventChoiceTally, choiceTally(game))
	} else {
		s.broadcast.SendToRoom(game.ID, eventEditingTally, editingTally(game))
	}
	s.armTimer(game, s.questionSeconds(game, question))
	return phaseAnswering
}

// revealQuestionResults is the shared success branch out of Answering and
// Grading: lock stragglers, score, rank, publish, and in the self-advancing
// modes arm the result-display timer.
func (s *Server) revealQuestionResults(game *Game) string {
	game.timer.reset()
	game.Paused = false
	lockRemainingAnswers(game)
	s.applyScores(game)
	archiveQuestionStats(game)
	s.broadcastResults(game)
	setPhase(game, phaseQuestionResults)
	s.broadcastPhase(game)
	if game.Mode == ModeTest || game.Mode == ModeSoloRandom {
		s.armTimer(game, s.cfg.ResultSeconds)
	}
	return phaseQuestionResults
}

func (s *Server) beginGrading(game *Game) string {
	game.timer.reset()
	game.Paused = false
	lockRemainingAnswers(game)
	setPhase(game, phaseGrading)
	game.gradingQueue = gradingOrder(game)
	game.GradingIndex = 0
	s.broadcastPhase(game)
	if len(game.gradingQueue) == 0 {
		next := s.revealQuestionResults(game)
		s.broadcast.SendToRoom(game.ID, eventGradeTally, gradeTally(game))
		return next
	}
	s.requestGrading(game)
	return phaseGrading
}

func (s *Server) advanceTestResults(game *Game) string {
	if game.isLastQuestion() {
		s.teardownRoom(game, "game over")
		return ""
	}
	s.loadNextQuestion(game)
	return s.beginAnswering(game)
}

func (s *Server) advanceLiveResults(game *Game) string {
	if game.isLastQuestion() {
		return s.enterFinalResults(game)
	}
	s.loadNextQuestion(game)
	setPhase(game, phaseCooldown)
	s.broadcastPhase(game)
	s.broadcast.SendToRoom(game.ID, eventNewQuestion, questionPreview(game))
	s.armTimer(game, s.cfg.CooldownSeconds)
	return phaseCooldown
}

func (s *Server) enterFinalResults(game *Game) string {
	game.timer.reset()
	setPhase(game, phaseFinalResults)
	s.recordHistory(game)
	s.unmuteAll(game)
	s.broadcast.SendToRoom(game.ID, eventFinalStatistics, finalStatistics(game))
	s.broadcastPhase(game)
	return phaseFinalResults
}

func (s *Server) loadNextQuestion(game *Game) {
	game.CurrentIndex++
	game.PanicAvailable = false
	game.PanicStarted = false
	game.gradingQueue = nil
	game.GradingIndex = 0
	for i := range game.Participants {
		p := &game.Participants[i]
		p.HasInteracted = false
		p.HasLocked = false
		p.SelectedChoices = nil
		p.LongAnswer = ""
		p.LockedAt = time.Time{}
		p.Grade = 0
		p.Graded = false
	}
}

func (s *Server) vacateOrganizer(game *Game) {
	organizerID := game.OrganizerID
	game.OrganizerID = ""
	s.broadcast.SendToParticipant(organizerID, eventSystemMessage, map[string]any{
		"message": "you are now playing as a participant",
	})
}

// questionSeconds is the answer-window duration: the quiz-level duration for
// multiple-choice, a fixed configurable window for long answers.
func (s *Server) questionSeconds(game *Game, question *Question) int {
	if isChoiceQuestion(question) {
		if game.DurationSeconds > 0 {
			return game.DurationSeconds
		}
		return defaultChoiceSeconds
	}
	return s.cfg.LongAnswerSeconds
}

func (s *Server) panicThreshold(question *Question) int {
	if isChoiceQuestion(question) {
		return s.cfg.PanicChoiceSeconds
	}
	return s.cfg.PanicLongAnswerSeconds
}

// armTimer starts the aggregate's owned countdown for the current phase.
// Callbacks hop to a fresh goroutine and re-enter through the registry, so
// timer expiry is serialized with every other event for the room. The phase
// captured at arm time guards against a tick that raced a manual advance.
func (s *Server) armTimer(game *Game, seconds int) {
	roomID := game.ID
	expected := game.Phase
	game.timer.start(seconds,
		func() {
			go s.timerExpired(roomID, expected)
		},
		func(remaining int) {
			go s.timerTicked(roomID, remaining)
		},
	)
}

func (s *Server) timerExpired(roomID, expectedPhase string) {
	s.store.WithGame(roomID, func(game *Game) {
		if game.Phase != expectedPhase {
			return
		}
		s.applyTrigger(game, triggerEndTimer)
	})
}

func (s *Server) timerTicked(roomID string, remaining int) {
	s.store.WithGame(roomID, func(game *Game) {
		s.broadcast.SendToRoom(game.ID, eventTimerTick, map[string]any{"remaining": remaining})
		if game.Phase != phaseAnswering || game.Paused {
			return
		}
		if game.PanicAvailable || game.PanicStarted {
			return
		}
		if remaining <= s.panicThreshold(game.currentQuestion()) {
			game.PanicAvailable = true
			s.broadcast.SendToRoom(game.ID, eventPanicAvailable, map[string]any{"remaining": remaining})
		}
	})
}

func setPhase(game *Game, phase string) {
	game.Phase = phase
	game.PhaseStartedAt = timeNowUTC()
}

func lockRemainingAnswers(game *Game) {
	for _, p := range game.presentParticipants() {
		if !p.HasLocked {
			p.HasLocked = true
		}
	}
}
