package server

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

type recordedEvent struct {
	RoomID        string
	ParticipantID string
	Kind          string
	Payload       any
}

// recordingBroadcaster stands in for the websocket hub so tests can assert on
// the outbound event stream.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingBroadcaster) SendToRoom(roomID, kind string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{RoomID: roomID, Kind: kind, Payload: payload})
}

func (r *recordingBroadcaster) SendToRoomExcept(roomID, exceptParticipantID, kind string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{RoomID: roomID, ParticipantID: "!" + exceptParticipantID, Kind: kind, Payload: payload})
}

func (r *recordingBroadcaster) SendToParticipant(participantID, kind string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{ParticipantID: participantID, Kind: kind, Payload: payload})
}

func (r *recordingBroadcaster) kinds(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, 0, len(r.events))
	for _, event := range r.events {
		if event.RoomID == roomID {
			kinds = append(kinds, event.Kind)
		}
	}
	return kinds
}

func (r *recordingBroadcaster) sawKind(kind string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if event.Kind == kind {
			return true
		}
	}
	return false
}

// recordingHistory stands in for the database sink.
type recordingHistory struct {
	mu        sync.Mutex
	summaries []MatchSummary
}

func (r *recordingHistory) Record(summary MatchSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, summary)
}

func (r *recordingHistory) List(limit int) ([]MatchSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > 0 && limit < len(r.summaries) {
		return r.summaries[:limit], nil
	}
	return r.summaries, nil
}

func choiceQuiz(questions int) QuizSnapshot {
	quiz := QuizSnapshot{Title: "Capitals", DurationSeconds: 30}
	for i := 0; i < questions; i++ {
		quiz.Questions = append(quiz.Questions, Question{
			Type:   questionTypeChoice,
			Text:   "Question",
			Points: 10,
			Choices: []Choice{
				{Text: "Right", Correct: true},
				{Text: "Wrong"},
			},
		})
	}
	return quiz
}

func longAnswerQuiz(questions int) QuizSnapshot {
	quiz := QuizSnapshot{Title: "Essays"}
	for i := 0; i < questions; i++ {
		quiz.Questions = append(quiz.Questions, Question{
			Type:   questionTypeLongAnswer,
			Text:   "Explain",
			Points: 20,
		})
	}
	return quiz
}

// expireTimer synthesizes the countdown expiry for the room's current phase,
// so tests drive timed transitions without waiting out real seconds.
func expireTimer(t *testing.T, srv *Server, roomID string) {
	t.Helper()
	phase := ""
	found := srv.store.WithGame(roomID, func(game *Game) {
		phase = game.Phase
	})
	if !found {
		t.Fatalf("room %s not found", roomID)
	}
	srv.timerExpired(roomID, phase)
}

func currentPhase(t *testing.T, srv *Server, roomID string) string {
	t.Helper()
	phase := ""
	srv.store.WithGame(roomID, func(game *Game) {
		phase = game.Phase
	})
	return phase
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	body := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func createRoom(t *testing.T, ts *httptest.Server, mode string, quiz QuizSnapshot) (string, string) {
	t.Helper()
	questions := make([]map[string]any, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		choices := make([]map[string]any, 0, len(q.Choices))
		for _, choice := range q.Choices {
			choices = append(choices, map[string]any{"text": choice.Text, "correct": choice.Correct})
		}
		questions = append(questions, map[string]any{
			"type":    q.Type,
			"text":    q.Text,
			"points":  q.Points,
			"choices": choices,
		})
	}
	payload := map[string]any{
		"mode": mode,
		"quiz": map[string]any{
			"title":            quiz.Title,
			"duration_seconds": quiz.DurationSeconds,
			"questions":        questions,
		},
	}
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms", payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["room_id"].(string), body["organizer_id"].(string)
}

func joinParticipant(t *testing.T, ts *httptest.Server, roomID, name string) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/join", map[string]string{
		"name": name,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["participant_id"].(string)
}

func fetchSnapshot(t *testing.T, ts *httptest.Server, roomID string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}
