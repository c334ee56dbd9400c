package server

import (
	"log"
	"strings"
)

// Organizer-privileged room controls. Every one of them resolves a stale or
// unknown room id to silence, and drops non-organizer callers the same way the
// engine's action entry point does.

func (s *Server) ToggleRoomLock(roomID, actorID string) {
	s.store.WithGame(roomID, func(game *Game) {
		if !isOrganizer(game, actorID) {
			return
		}
		game.RoomLocked = !game.RoomLocked
		log.Printf("room lock toggled room_id=%s locked=%t", game.ID, game.RoomLocked)
		s.broadcast.SendToRoom(game.ID, eventRoomLockChanged, map[string]any{
			"locked": game.RoomLocked,
		})
	})
}

// TogglePause freezes or resumes the active countdown without resetting the
// remaining time.
func (s *Server) TogglePause(roomID, actorID string) {
	s.store.WithGame(roomID, func(game *Game) {
		if !isOrganizer(game, actorID) {
			return
		}
		if game.Paused {
			game.Paused = false
			game.timer.resume()
		} else {
			if !game.timer.isRunning() {
				return
			}
			game.Paused = true
			game.timer.pause()
		}
		log.Printf("pause toggled room_id=%s paused=%t", game.ID, game.Paused)
		s.broadcast.SendToRoom(game.ID, eventPauseToggled, map[string]any{
			"paused": game.Paused,
		})
	})
}

// BanName permanently rejects a name for the life of the aggregate and kicks
// its current holder if present. Bans are monotonic: nothing removes an entry.
func (s *Server) BanName(roomID, actorID, name string) {
	s.store.WithGame(roomID, func(game *Game) {
		if !isOrganizer(game, actorID) {
			return
		}
		game.BannedNames[strings.ToLower(name)] = struct{}{}
		log.Printf("name banned room_id=%s name=%s", game.ID, name)
		for i := range game.Participants {
			participant := &game.Participants[i]
			if participant.HasLeft || !strings.EqualFold(participant.Name, name) {
				continue
			}
			participant.HasLeft = true
			s.broadcast.SendToParticipant(participant.ID, eventParticipantKicked, map[string]any{
				"reason": "banned",
			})
			s.ws.Disconnect(game.ID, participant.ID)
		}
		if game.Phase != phaseLobby && game.Phase != phaseFinalResults && game.presentCount() == 0 {
			s.broadcast.SendToParticipant(game.OrganizerID, eventGameEnded, map[string]any{
				"reason": "all participants left",
			})
			s.teardownRoom(game, "all participants left")
			return
		}
		s.broadcast.SendToRoom(game.ID, eventRosterChanged, rosterPayload(game))
		s.maybeFinishEarly(game)
	})
}

// StartPanicWindow escalates the countdown once per question, only after the
// remaining time has fallen to the panic threshold.
func (s *Server) StartPanicWindow(roomID, actorID string) {
	s.store.WithGame(roomID, func(game *Game) {
		if !isOrganizer(game, actorID) {
			return
		}
		if game.Phase != phaseAnswering || !game.PanicAvailable || game.PanicStarted {
			return
		}
		game.PanicStarted = true
		log.Printf("panic started room_id=%s", game.ID)
		s.broadcast.SendToRoom(game.ID, eventPanicStarted, map[string]any{
			"question_index": game.CurrentIndex,
		})
	})
}

// AdvanceRoom is the organizer's action button. In a test-run lobby it maps to
// the skip-the-wait trigger; everywhere else it is the plain action trigger.
func (s *Server) AdvanceRoom(roomID, actorID string) {
	s.store.WithGame(roomID, func(game *Game) {
		trig := triggerActionButton
		if game.Mode == ModeTest && game.Phase == phaseLobby {
			trig = triggerSkipTest
		}
		s.handleAction(game, trig, actorID)
	})
}

func isOrganizer(game *Game, actorID string) bool {
	return game.OrganizerID != "" && actorID == game.OrganizerID
}
