package server

import (
	"sync"
	"time"
)

const (
	phaseLobby           = "lobby"
	phaseCountdown       = "countdown"
	phaseAnswering       = "answering"
	phaseGrading         = "grading"
	phaseQuestionResults = "question-results"
	phaseCooldown        = "cooldown"
	phaseFinalResults    = "final-results"
)

const (
	questionTypeChoice     = "choice"
	questionTypeLongAnswer = "long-answer"
)

// SessionMode is a tagged variant: a room is exactly one of a live group game,
// an organizer-only rehearsal, or a solo game against a shuffled question set.
type SessionMode int

const (
	ModeLive SessionMode = iota
	ModeTest
	ModeSoloRandom
)

func (m SessionMode) String() string {
	switch m {
	case ModeTest:
		return "test"
	case ModeSoloRandom:
		return "solo-random"
	default:
		return "live"
	}
}

func parseMode(raw string) SessionMode {
	switch raw {
	case "test":
		return ModeTest
	case "solo-random":
		return ModeSoloRandom
	default:
		return ModeLive
	}
}

type trigger int

const (
	triggerActionButton trigger = iota
	triggerSkipTest
	triggerEndTimer
	triggerGradingDone
)

type RoomSummary struct {
	ID           string
	Phase        string
	Mode         string
	Participants int
}

type Choice struct {
	Text    string
	Correct bool
}

type Question struct {
	Type    string
	Text    string
	Points  int
	Choices []Choice
}

type QuizSnapshot struct {
	Title           string
	DurationSeconds int
	Questions       []Question
}

// Game is one room's session aggregate. Every field below mu is guarded by it;
// all mutations go through Store.WithGame, so at most one transition is in
// flight per room while distinct rooms run fully in parallel.
type Game struct {
	mu      sync.Mutex
	removed bool

	ID             string
	Title          string
	Mode           SessionMode
	Phase          string
	PhaseStartedAt time.Time
	StartedAt      time.Time

	OrganizerID string
	RoomLocked  bool
	Paused      bool

	Questions       []Question
	CurrentIndex    int
	DurationSeconds int

	Participants []Participant
	BannedNames  map[string]struct{}

	gradingQueue []string
	GradingIndex int

	PanicAvailable bool
	PanicStarted   bool

	QuestionStats []QuestionStat

	timer *countdown
}

type Participant struct {
	ID              string
	Name            string
	Score           int
	Muted           bool
	HasInteracted   bool
	HasLocked       bool
	HasLeft         bool
	SelectedChoices []int
	LongAnswer      string
	LockedAt        time.Time

	Grade  float64
	Graded bool

	LastCorrect    bool
	LastScoreDelta int
	LastWasBonus   bool
	LastRank       int
	BonusCount     int
}

func (g *Game) currentQuestion() *Question {
	if g.CurrentIndex < 0 || g.CurrentIndex >= len(g.Questions) {
		return nil
	}
	return &g.Questions[g.CurrentIndex]
}

func (g *Game) isLastQuestion() bool {
	return g.CurrentIndex >= len(g.Questions)-1
}

func isChoiceQuestion(q *Question) bool {
	return q != nil && q.Type == questionTypeChoice
}

func (g *Game) findParticipant(id string) *Participant {
	for i := range g.Participants {
		if g.Participants[i].ID == id {
			return &g.Participants[i]
		}
	}
	return nil
}

func (g *Game) presentParticipants() []*Participant {
	present := make([]*Participant, 0, len(g.Participants))
	for i := range g.Participants {
		if g.Participants[i].HasLeft {
			continue
		}
		present = append(present, &g.Participants[i])
	}
	return present
}

func (g *Game) presentCount() int {
	count := 0
	for i := range g.Participants {
		if !g.Participants[i].HasLeft {
			count++
		}
	}
	return count
}
