package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"quizroom/internal/config"

	"github.com/gorilla/websocket"
)

func dialRoom(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn, timeout time.Duration) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return envelope
}

func waitForKind(t *testing.T, conn *websocket.Conn, kind string, timeout time.Duration) Envelope {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("did not receive %s in time", kind)
		}
		envelope := readEnvelope(t, conn, remaining)
		if envelope.Kind == kind {
			return envelope
		}
	}
}

func TestWebsocketUnknownRoomRejected(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/ZZZZ"
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatal("expected dial to an unknown room to fail")
	}
}

func TestWebsocketSnapshotOnConnect(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	roomID, _ := createRoom(t, ts, "live", choiceQuiz(1))
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/" + roomID
	conn := dialRoom(t, wsURL)
	defer conn.Close()

	envelope := readEnvelope(t, conn, 5*time.Second)
	if envelope.Kind != "snapshot" {
		t.Fatalf("expected first message snapshot, got %s", envelope.Kind)
	}
	payload, ok := envelope.Payload.(map[string]any)
	if !ok {
		t.Fatalf("expected snapshot payload, got %#v", envelope.Payload)
	}
	if payload["phase"] != phaseLobby {
		t.Fatalf("expected lobby snapshot, got %v", payload["phase"])
	}
}

func TestWebsocketReceivesRoomBroadcasts(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	roomID, _ := createRoom(t, ts, "live", choiceQuiz(1))
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/" + roomID
	conn := dialRoom(t, wsURL)
	defer conn.Close()
	readEnvelope(t, conn, 5*time.Second)

	joinParticipant(t, ts, roomID, "Ada")
	envelope := waitForKind(t, conn, eventRosterChanged, 5*time.Second)
	payload, ok := envelope.Payload.(map[string]any)
	if !ok {
		t.Fatalf("expected roster payload, got %#v", envelope.Payload)
	}
	participants, ok := payload["participants"].([]any)
	if !ok || len(participants) != 1 {
		t.Fatalf("expected one participant in roster, got %v", payload["participants"])
	}
}

func TestWebsocketDisconnectRemovesParticipant(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	roomID, _ := createRoom(t, ts, "live", choiceQuiz(1))
	adaID := joinParticipant(t, ts, roomID, "Ada")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/" + roomID + "?participant_id=" + adaID
	conn := dialRoom(t, wsURL)
	readEnvelope(t, conn, 5*time.Second)
	_ = conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		left := false
		srv.store.WithGame(roomID, func(game *Game) {
			participant := game.findParticipant(adaID)
			left = participant != nil && participant.HasLeft
		})
		if left {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("participant not marked departed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebsocketClosedOnTeardown(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	roomID, organizerID := createRoom(t, ts, "live", choiceQuiz(1))
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/" + roomID
	conn := dialRoom(t, wsURL)
	defer conn.Close()
	readEnvelope(t, conn, 5*time.Second)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/leave", map[string]any{
		"participant_id": organizerID,
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("leave: status %d", resp.StatusCode)
	}

	waitForKind(t, conn, eventGameEnded, 5*time.Second)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
