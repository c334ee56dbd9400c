package server

import (
	"net/http"

	"quizroom/internal/config"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Server struct {
	store     *Store
	cfg       config.Config
	ws        *wsHub
	broadcast Broadcaster
	history   HistorySink
	chat      ChatHook
	isCorrect CorrectnessFunc
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	hub := newWSHub()
	return &Server{
		store:     NewStore(),
		cfg:       cfg,
		ws:        hub,
		broadcast: hub,
		history:   newDBHistory(conn),
		chat:      &hubChat{hub: hub},
		isCorrect: exactMatchCorrectness,
	}
}

func (s *Server) Handler() http.Handler {
	registerValidators()
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	api.POST("/rooms", s.handleCreateRoom)
	api.GET("/rooms", s.handleListRooms)
	api.GET("/rooms/:roomID", s.handleRoomSnapshot)
	api.POST("/rooms/:roomID/join", s.handleJoin)
	api.POST("/rooms/:roomID/leave", s.handleLeave)
	api.POST("/rooms/:roomID/advance", s.handleAdvance)
	api.POST("/rooms/:roomID/choices", s.handleSubmitChoices)
	api.POST("/rooms/:roomID/long-answer", s.handleSubmitLongAnswer)
	api.POST("/rooms/:roomID/lock", s.handleLockAnswer)
	api.POST("/rooms/:roomID/grade", s.handleGrade)
	api.POST("/rooms/:roomID/pause", s.handlePause)
	api.POST("/rooms/:roomID/lock-room", s.handleLockRoom)
	api.POST("/rooms/:roomID/ban", s.handleBan)
	api.POST("/rooms/:roomID/panic", s.handlePanic)
	api.GET("/history", s.handleHistory)

	router.GET("/ws/rooms/:roomID", s.handleWebsocket)
	return router
}

func (s *Server) broadcastPhase(game *Game) {
	s.broadcast.SendToRoom(game.ID, eventPhaseChanged, map[string]any{
		"phase":          game.Phase,
		"question_index": game.CurrentIndex,
	})
}

// broadcastResults publishes the settled question: the correct answers first,
// then everyone's deltas and standings.
func (s *Server) broadcastResults(game *Game) {
	s.broadcast.SendToRoom(game.ID, eventAnswersRevealed, answersPayload(game))
	s.broadcast.SendToRoom(game.ID, eventScoresUpdated, scoresPayload(game))
}
