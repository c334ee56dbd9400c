package server

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store is the room registry. Its own mutex guards only the map; every
// aggregate carries its own lock, taken through WithGame, so rooms never
// contend with each other. The registry mutex is never held while an
// aggregate's lock is held.
type Store struct {
	mu    sync.Mutex
	games map[string]*Game
}

func NewStore() *Store {
	return &Store{
		games: make(map[string]*Game),
	}
}

func (s *Store) CreateGame(quiz QuizSnapshot, organizerID string, mode SessionMode) *Game {
	questions := make([]Question, len(quiz.Questions))
	copy(questions, quiz.Questions)
	if mode == ModeSoloRandom {
		rand.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}

	game := &Game{
		Title:           quiz.Title,
		Mode:            mode,
		Phase:           phaseLobby,
		PhaseStartedAt:  timeNowUTC(),
		StartedAt:       timeNowUTC(),
		OrganizerID:     organizerID,
		Questions:       questions,
		DurationSeconds: quiz.DurationSeconds,
		BannedNames:     make(map[string]struct{}),
		timer:           newCountdown(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		code := newRoomCode()
		if _, taken := s.games[code]; taken {
			continue
		}
		game.ID = code
		break
	}
	s.games[game.ID] = game
	return game
}

// WithGame runs fn with the aggregate's own lock held. It returns false for an
// unknown or already-removed room; callers treat absence as nothing to do.
func (s *Store) WithGame(roomID string, fn func(game *Game)) bool {
	s.mu.Lock()
	game, ok := s.games[roomID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	game.mu.Lock()
	defer game.mu.Unlock()
	if game.removed {
		return false
	}
	fn(game)
	return true
}

// Remove unregisters the room. The caller is expected to have canceled the
// aggregate's timer and marked it removed from inside a WithGame transition,
// so nothing can resurrect the session after the key is released.
func (s *Store) Remove(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, roomID)
}

func (s *Store) Exists(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.games[roomID]
	return ok
}

func (s *Store) ListSummaries() []RoomSummary {
	s.mu.Lock()
	games := make([]*Game, 0, len(s.games))
	for _, game := range s.games {
		games = append(games, game)
	}
	s.mu.Unlock()

	list := make([]RoomSummary, 0, len(games))
	for _, game := range games {
		game.mu.Lock()
		list = append(list, RoomSummary{
			ID:           game.ID,
			Phase:        game.Phase,
			Mode:         game.Mode.String(),
			Participants: game.presentCount(),
		})
		game.mu.Unlock()
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

func nameTaken(game *Game, name string) bool {
	for i := range game.Participants {
		if game.Participants[i].HasLeft {
			continue
		}
		if strings.EqualFold(game.Participants[i].Name, name) {
			return true
		}
	}
	return false
}

func nameBanned(game *Game, name string) bool {
	_, banned := game.BannedNames[strings.ToLower(name)]
	return banned
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
