package server

import (
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
)

var (
	errRoomNotFound = errors.New("room not found")
	errRoomLocked   = errors.New("room is locked")
	errNameBanned   = errors.New("name is banned")
	errNameTaken    = errors.New("name already taken")
)

// organizerName is reserved so an ordinary join can never impersonate the
// organizer seat.
const organizerName = "Organizer"

// CreateRoom builds and registers a session aggregate around a quiz snapshot.
// In test and solo-random modes the organizer is also enrolled as an ordinary
// participant so they can play their own game.
func (s *Server) CreateRoom(quiz QuizSnapshot, mode SessionMode) (roomID, organizerID string) {
	organizerID = uuid.NewString()
	game := s.store.CreateGame(quiz, organizerID, mode)
	if mode == ModeTest || mode == ModeSoloRandom {
		game.Participants = append(game.Participants, Participant{
			ID:   organizerID,
			Name: organizerName,
		})
	}
	log.Printf("room created room_id=%s mode=%s questions=%d", game.ID, mode, len(game.Questions))
	s.broadcast.SendToParticipant(organizerID, eventRosterChanged, rosterPayload(game))
	s.broadcast.SendToParticipant(organizerID, eventNewQuestion, questionPreview(game))
	return game.ID, organizerID
}

// ConnectParticipant validates the join before mutating anything: unknown
// room, locked room, banned name, and taken name are each a typed rejection
// surfaced to the caller, never raised past it.
func (s *Server) ConnectParticipant(roomID, requestedName string) (string, error) {
	participantID := ""
	var joinErr error
	found := s.store.WithGame(roomID, func(game *Game) {
		if game.Phase != phaseLobby || game.RoomLocked {
			joinErr = errRoomLocked
			return
		}
		if nameBanned(game, requestedName) {
			joinErr = errNameBanned
			return
		}
		if nameTaken(game, requestedName) || strings.EqualFold(requestedName, organizerName) {
			joinErr = errNameTaken
			return
		}
		participantID = uuid.NewString()
		game.Participants = append(game.Participants, Participant{
			ID:   participantID,
			Name: requestedName,
		})
		log.Printf("participant joined room_id=%s participant_id=%s name=%s", game.ID, participantID, requestedName)
		s.broadcast.SendToRoom(game.ID, eventRosterChanged, rosterPayload(game))
	})
	if !found {
		return "", errRoomNotFound
	}
	if joinErr != nil {
		return "", joinErr
	}
	return participantID, nil
}

// RemoveParticipant handles departures. The rules branch on phase: after
// FinalResults a departure no longer disturbs gameplay and the room dies with
// the organizer, or with the last player when the organizer seat was vacated;
// mid-game the organizer leaving ends the game for everyone, and an emptied
// roster ends it for the organizer.
func (s *Server) RemoveParticipant(roomID, participantID string) {
	s.store.WithGame(roomID, func(game *Game) {
		if game.OrganizerID != "" && participantID == game.OrganizerID {
			if game.Phase != phaseFinalResults {
				s.broadcast.SendToRoomExcept(game.ID, participantID, eventGameEnded, map[string]any{
					"reason": "organizer left",
				})
			}
			s.teardownRoom(game, "organizer left")
			return
		}

		participant := game.findParticipant(participantID)
		if participant == nil || participant.HasLeft {
			return
		}
		participant.HasLeft = true
		log.Printf("participant left room_id=%s participant_id=%s name=%s", game.ID, participantID, participant.Name)

		if game.Phase == phaseFinalResults {
			// a solo room has no organizer left to close it
			if game.OrganizerID == "" && game.presentCount() == 0 {
				s.teardownRoom(game, "all participants left")
				return
			}
			s.broadcast.SendToRoom(game.ID, eventRosterChanged, rosterPayload(game))
			return
		}
		if game.Phase != phaseLobby && game.presentCount() == 0 {
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

// teardownRoom destroys the aggregate: the owned timer is canceled before the
// key is released so a late tick cannot resurrect the session, then the room's
// connections are told and dropped.
func (s *Server) teardownRoom(game *Game, reason string) {
	game.timer.reset()
	game.removed = true
	s.store.Remove(game.ID)
	s.broadcast.SendToRoom(game.ID, eventGameEnded, map[string]any{"reason": reason})
	s.ws.CloseRoom(game.ID)
	log.Printf("room torn down room_id=%s reason=%s", game.ID, reason)
}

// maybeFinishEarly synthesizes the timer expiry once nobody is still
// answering, so the room does not sit out the remainder of the window.
func (s *Server) maybeFinishEarly(game *Game) {
	if game.Phase != phaseAnswering {
		return
	}
	present := game.presentParticipants()
	if len(present) == 0 {
		return
	}
	for _, p := range present {
		if !p.HasLocked {
			return
		}
	}
	s.applyTrigger(game, triggerEndTimer)
}

func (s *Server) unmuteAll(game *Game) {
	for i := range game.Participants {
		game.Participants[i].Muted = false
	}
	if s.chat != nil {
		s.chat.UnmuteAll(game.ID)
	}
	s.broadcast.SendToRoom(game.ID, eventRosterChanged, rosterPayload(game))
}

func (s *Server) recordHistory(game *Game) {
	if game.Mode == ModeTest || s.history == nil {
		return
	}
	s.history.Record(matchSummary(game))
}
