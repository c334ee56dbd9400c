package server

// Outbound event kinds. Every payload pushed over a room's websocket fanout
// is an Envelope carrying one of these.
const (
	eventPhaseChanged          = "phase-changed"
	eventNewQuestion           = "new-question"
	eventChoiceTally           = "live-choice-tally"
	eventEditingTally          = "live-editing-tally"
	eventAnswerLocked          = "answer-locked"
	eventParticipantInteracted = "participant-interacted"
	eventAnswersRevealed       = "answers-revealed"
	eventScoresUpdated         = "scores-updated"
	eventGradingRequested      = "grading-requested"
	eventGradeTally            = "grade-tally"
	eventPanicAvailable        = "panic-available"
	eventPanicStarted          = "panic-started"
	eventPauseToggled          = "pause-requested"
	eventRoomLockChanged       = "room-lock-changed"
	eventRosterChanged         = "roster-changed"
	eventParticipantKicked     = "participant-kicked"
	eventFinalStatistics       = "final-statistics"
	eventTimerTick             = "timer-tick"
	eventSystemMessage         = "system-message"
	eventGameEnded             = "game-ended"
)

// Envelope is the wire shape for every server-to-client push.
type Envelope struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload,omitempty"`
}
