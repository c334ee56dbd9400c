package server

import (
	"testing"
	"time"

	"quizroom/internal/config"
)

func TestExactMatchCorrectness(t *testing.T) {
	question := &Question{
		Type: questionTypeChoice,
		Choices: []Choice{
			{Text: "a", Correct: true},
			{Text: "b"},
			{Text: "c", Correct: true},
		},
	}
	cases := []struct {
		name     string
		selected []int
		want     bool
	}{
		{"exact", []int{0, 2}, true},
		{"exact reversed", []int{2, 0}, true},
		{"missing one", []int{0}, false},
		{"extra wrong", []int{0, 1, 2}, false},
		{"all wrong", []int{1}, false},
		{"empty", nil, false},
	}
	for _, tc := range cases {
		if got := exactMatchCorrectness(question, tc.selected); got != tc.want {
			t.Errorf("%s: got %t, want %t", tc.name, got, tc.want)
		}
	}
}

func TestApplyScoresFirstLockerBonus(t *testing.T) {
	srv := New(nil, config.Default())
	game := srv.store.CreateGame(choiceQuiz(1), "org", ModeLive)
	now := time.Now().UTC()
	game.Participants = []Participant{
		{ID: "p1", Name: "Ada", SelectedChoices: []int{0}, HasLocked: true, LockedAt: now},
		{ID: "p2", Name: "Ben", SelectedChoices: []int{0}, HasLocked: true, LockedAt: now.Add(time.Second)},
		{ID: "p3", Name: "Cem", SelectedChoices: []int{1}, HasLocked: true, LockedAt: now.Add(-time.Second)},
	}

	srv.applyScores(game)

	ada := game.findParticipant("p1")
	ben := game.findParticipant("p2")
	cem := game.findParticipant("p3")
	if ada.Score != 12 || !ada.LastWasBonus || ada.BonusCount != 1 {
		t.Fatalf("expected Ada 12 with bonus, got %d bonus=%t", ada.Score, ada.LastWasBonus)
	}
	if ben.Score != 10 || ben.LastWasBonus {
		t.Fatalf("expected Ben 10 without bonus, got %d bonus=%t", ben.Score, ben.LastWasBonus)
	}
	if cem.Score != 0 || cem.LastCorrect {
		t.Fatalf("expected Cem 0 incorrect, got %d correct=%t", cem.Score, cem.LastCorrect)
	}
	if ada.LastRank != 1 || ben.LastRank != 2 || cem.LastRank != 3 {
		t.Fatalf("unexpected ranks %d %d %d", ada.LastRank, ben.LastRank, cem.LastRank)
	}
}

func TestApplyScoresRankTies(t *testing.T) {
	srv := New(nil, config.Default())
	game := srv.store.CreateGame(choiceQuiz(1), "org", ModeLive)
	game.Participants = []Participant{
		{ID: "p1", Name: "Ada", Score: 20, SelectedChoices: []int{1}},
		{ID: "p2", Name: "Ben", Score: 20, SelectedChoices: []int{1}},
		{ID: "p3", Name: "Cem", Score: 5, SelectedChoices: []int{1}},
	}

	srv.applyScores(game)

	if r := game.findParticipant("p1").LastRank; r != 1 {
		t.Fatalf("expected rank 1, got %d", r)
	}
	if r := game.findParticipant("p2").LastRank; r != 1 {
		t.Fatalf("expected shared rank 1, got %d", r)
	}
	if r := game.findParticipant("p3").LastRank; r != 3 {
		t.Fatalf("expected rank 3 after a tie, got %d", r)
	}
}

func TestApplyScoresLongAnswerGrades(t *testing.T) {
	srv := New(nil, config.Default())
	game := srv.store.CreateGame(longAnswerQuiz(1), "org", ModeLive)
	game.Participants = []Participant{
		{ID: "p1", Name: "Ada", Grade: 1, Graded: true},
		{ID: "p2", Name: "Ben", Grade: 0.5, Graded: true},
		{ID: "p3", Name: "Cem", Grade: 0, Graded: true},
	}

	srv.applyScores(game)

	if s := game.findParticipant("p1").Score; s != 20 {
		t.Fatalf("expected full credit 20, got %d", s)
	}
	if s := game.findParticipant("p2").Score; s != 10 {
		t.Fatalf("expected half credit 10, got %d", s)
	}
	p3 := game.findParticipant("p3")
	if p3.Score != 0 || p3.LastCorrect {
		t.Fatalf("expected zero credit, got %d correct=%t", p3.Score, p3.LastCorrect)
	}
}

func TestApplyScoresSkipsAbsent(t *testing.T) {
	srv := New(nil, config.Default())
	game := srv.store.CreateGame(choiceQuiz(1), "org", ModeLive)
	game.Participants = []Participant{
		{ID: "p1", Name: "Ada", SelectedChoices: []int{0}, HasLocked: true, LockedAt: time.Now()},
		{ID: "p2", Name: "Ben", SelectedChoices: []int{0}, HasLeft: true},
	}

	srv.applyScores(game)

	if s := game.findParticipant("p2").Score; s != 0 {
		t.Fatalf("absent participant scored %d", s)
	}
}

func TestGradingOrderSortedByName(t *testing.T) {
	game := &Game{
		Participants: []Participant{
			{ID: "p1", Name: "zoe"},
			{ID: "p2", Name: "Ada"},
			{ID: "p3", Name: "ben", HasLeft: true},
			{ID: "p4", Name: "Cem"},
		},
	}
	queue := gradingOrder(game)
	want := []string{"p2", "p4", "p1"}
	if len(queue) != len(want) {
		t.Fatalf("expected queue %v, got %v", want, queue)
	}
	for i := range want {
		if queue[i] != want[i] {
			t.Fatalf("expected queue %v, got %v", want, queue)
		}
	}
}
