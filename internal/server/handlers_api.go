package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type createRoomRequest struct {
	Mode string          `json:"mode" binding:"omitempty,oneof=live test solo-random"`
	Quiz quizRequestBody `json:"quiz" binding:"required"`
}

type quizRequestBody struct {
	Title           string                `json:"title" binding:"required,title"`
	DurationSeconds int                   `json:"duration_seconds" binding:"omitempty,min=10,max=60"`
	Questions       []questionRequestBody `json:"questions" binding:"required,min=1,max=50,dive"`
}

type questionRequestBody struct {
	Type    string              `json:"type" binding:"required,oneof=choice long-answer"`
	Text    string              `json:"text" binding:"required,max=500"`
	Points  int                 `json:"points" binding:"required,min=10,max=100"`
	Choices []choiceRequestBody `json:"choices" binding:"omitempty,max=4,dive"`
}

type choiceRequestBody struct {
	Text    string `json:"text" binding:"required,max=200"`
	Correct bool   `json:"correct"`
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if !bindJSON(c, &req, bindMessages{
		"Title":     {"title": "quiz title is invalid"},
		"Questions": {"min": "quiz needs at least one question"},
	}, "invalid quiz") {
		return
	}
	quiz := QuizSnapshot{
		Title:           normalizeText(req.Quiz.Title),
		DurationSeconds: req.Quiz.DurationSeconds,
	}
	for _, q := range req.Quiz.Questions {
		question := Question{
			Type:   q.Type,
			Text:   q.Text,
			Points: q.Points,
		}
		if q.Type == questionTypeChoice && len(q.Choices) < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "choice questions need at least two choices"})
			return
		}
		for _, choice := range q.Choices {
			question.Choices = append(question.Choices, Choice{Text: choice.Text, Correct: choice.Correct})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	roomID, organizerID := s.CreateRoom(quiz, parseMode(req.Mode))
	c.JSON(http.StatusCreated, gin.H{
		"room_id":      roomID,
		"organizer_id": organizerID,
	})
}

func (s *Server) handleListRooms(c *gin.Context) {
	summaries := s.store.ListSummaries()
	rooms := make([]gin.H, 0, len(summaries))
	for _, summary := range summaries {
		rooms = append(rooms, gin.H{
			"room_id":      summary.ID,
			"phase":        summary.Phase,
			"mode":         summary.Mode,
			"participants": summary.Participants,
		})
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (s *Server) handleRoomSnapshot(c *gin.Context) {
	var snap map[string]any
	found := s.store.WithGame(c.Param("roomID"), func(game *Game) {
		snap = snapshot(game)
	})
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

type joinRequest struct {
	Name string `json:"name" binding:"required,name"`
}

func (s *Server) handleJoin(c *gin.Context) {
	var req joinRequest
	if !bindJSON(c, &req, bindMessages{
		"Name": {"name": "name is invalid"},
	}, "invalid join request") {
		return
	}
	participantID, err := s.ConnectParticipant(c.Param("roomID"), normalizeText(req.Name))
	if err != nil {
		switch {
		case errors.Is(err, errRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, errNameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant_id": participantID})
}

type participantRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
}

func (s *Server) handleLeave(c *gin.Context) {
	var req participantRequest
	if !bindJSON(c, &req, nil, "participant_id is required") {
		return
	}
	s.RemoveParticipant(c.Param("roomID"), req.ParticipantID)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAdvance(c *gin.Context) {
	var req participantRequest
	if !bindJSON(c, &req, nil, "participant_id is required") {
		return
	}
	s.AdvanceRoom(c.Param("roomID"), req.ParticipantID)
	c.Status(http.StatusNoContent)
}

type choicesRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	Choices       []int  `json:"choices"`
}

func (s *Server) handleSubmitChoices(c *gin.Context) {
	var req choicesRequest
	if !bindJSON(c, &req, nil, "invalid choices") {
		return
	}
	s.SubmitChoices(c.Param("roomID"), req.ParticipantID, req.Choices)
	c.Status(http.StatusNoContent)
}

type longAnswerRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	Text          string `json:"text" binding:"max=2000"`
}

func (s *Server) handleSubmitLongAnswer(c *gin.Context) {
	var req longAnswerRequest
	if !bindJSON(c, &req, nil, "invalid answer") {
		return
	}
	s.SubmitLongAnswer(c.Param("roomID"), req.ParticipantID, req.Text)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleLockAnswer(c *gin.Context) {
	var req participantRequest
	if !bindJSON(c, &req, nil, "participant_id is required") {
		return
	}
	s.LockAnswer(c.Param("roomID"), req.ParticipantID)
	c.Status(http.StatusNoContent)
}

type gradeRequest struct {
	ParticipantID string   `json:"participant_id" binding:"required"`
	Grade         *float64 `json:"grade" binding:"required,grade"`
}

func (s *Server) handleGrade(c *gin.Context) {
	var req gradeRequest
	if !bindJSON(c, &req, bindMessages{
		"Grade": {"grade": "grade must be 0, 0.5 or 1"},
	}, "invalid grade") {
		return
	}
	s.GradeCurrentAnswer(c.Param("roomID"), req.ParticipantID, *req.Grade)
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePause(c *gin.Context) {
	var req participantRequest
	if !bindJSON(c, &req, nil, "participant_id is required") {
		return
	}
	s.TogglePause(c.Param("roomID"), req.ParticipantID)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleLockRoom(c *gin.Context) {
	var req participantRequest
	if !bindJSON(c, &req, nil, "participant_id is required") {
		return
	}
	s.ToggleRoomLock(c.Param("roomID"), req.ParticipantID)
	c.Status(http.StatusNoContent)
}

type banRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	Name          string `json:"name" binding:"required,name"`
}

func (s *Server) handleBan(c *gin.Context) {
	var req banRequest
	if !bindJSON(c, &req, bindMessages{
		"Name": {"name": "name is invalid"},
	}, "invalid ban request") {
		return
	}
	s.BanName(c.Param("roomID"), req.ParticipantID, normalizeText(req.Name))
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePanic(c *gin.Context) {
	var req participantRequest
	if !bindJSON(c, &req, nil, "participant_id is required") {
		return
	}
	s.StartPanicWindow(c.Param("roomID"), req.ParticipantID)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = value
	}
	matches, err := s.history.List(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	if matches == nil {
		matches = []MatchSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}
