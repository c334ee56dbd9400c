package server

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"quizroom/internal/db"

	"github.com/jackc/pgconn"
	"gorm.io/gorm"
)

// matchEventQuestionResult tags the archived per-question breakdown rows
// attached to a match.
const matchEventQuestionResult = "question-result"

// HistorySink receives one record per finished live or solo game. Tests
// substitute an in-memory recorder.
type HistorySink interface {
	Record(summary MatchSummary)
	List(limit int) ([]MatchSummary, error)
}

type MatchSummary struct {
	RoomCode      string         `json:"room_code"`
	Title         string         `json:"title"`
	Mode          string         `json:"mode"`
	QuestionCount int            `json:"question_count"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Players       []PlayerScore  `json:"players"`
	Stats         []QuestionStat `json:"stats,omitempty"`
}

type PlayerScore struct {
	Name       string `json:"name"`
	Score      int    `json:"score"`
	BonusCount int    `json:"bonus_count"`
	Rank       int    `json:"rank"`
}

// matchSummary freezes the aggregate into its history record. Must be called
// with the aggregate's lock held.
func matchSummary(game *Game) MatchSummary {
	summary := MatchSummary{
		RoomCode:      game.ID,
		Title:         game.Title,
		Mode:          game.Mode.String(),
		QuestionCount: len(game.Questions),
		StartedAt:     game.StartedAt,
		FinishedAt:    timeNowUTC(),
		Stats:         game.QuestionStats,
	}
	for i := range game.Participants {
		p := &game.Participants[i]
		summary.Players = append(summary.Players, PlayerScore{
			Name:       p.Name,
			Score:      p.Score,
			BonusCount: p.BonusCount,
			Rank:       p.LastRank,
		})
	}
	return summary
}

// matchRecord maps a summary onto its persistence shape. Per-question stats
// travel as typed match events, one row per settled question.
func matchRecord(summary MatchSummary) db.Match {
	record := db.Match{
		RoomCode:      summary.RoomCode,
		Title:         summary.Title,
		Mode:          summary.Mode,
		QuestionCount: summary.QuestionCount,
		StartedAt:     summary.StartedAt,
		FinishedAt:    summary.FinishedAt,
	}
	for _, player := range summary.Players {
		record.Players = append(record.Players, db.MatchPlayer{
			Name:       player.Name,
			Score:      player.Score,
			BonusCount: player.BonusCount,
			Rank:       player.Rank,
		})
	}
	for _, stat := range summary.Stats {
		payload, err := json.Marshal(stat)
		if err != nil {
			continue
		}
		record.Events = append(record.Events, db.Event{
			Type:    matchEventQuestionResult,
			Payload: payload,
		})
	}
	return record
}

func summaryFromRecord(record db.Match) MatchSummary {
	summary := MatchSummary{
		RoomCode:      record.RoomCode,
		Title:         record.Title,
		Mode:          record.Mode,
		QuestionCount: record.QuestionCount,
		StartedAt:     record.StartedAt,
		FinishedAt:    record.FinishedAt,
	}
	for _, player := range record.Players {
		summary.Players = append(summary.Players, PlayerScore{
			Name:       player.Name,
			Score:      player.Score,
			BonusCount: player.BonusCount,
			Rank:       player.Rank,
		})
	}
	for _, event := range record.Events {
		if event.Type != matchEventQuestionResult {
			continue
		}
		var stat QuestionStat
		if err := json.Unmarshal(event.Payload, &stat); err != nil {
			continue
		}
		summary.Stats = append(summary.Stats, stat)
	}
	return summary
}

// dbHistory persists match records through GORM. A nil connection degrades to
// a no-op sink so the server runs without a database.
type dbHistory struct {
	db *gorm.DB
}

func newDBHistory(conn *gorm.DB) *dbHistory {
	return &dbHistory{db: conn}
}

func (h *dbHistory) Record(summary MatchSummary) {
	if h.db == nil {
		return
	}
	record := matchRecord(summary)
	if err := h.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			log.Printf("history duplicate ignored room_id=%s", summary.RoomCode)
			return
		}
		log.Printf("history record failed room_id=%s error=%v", summary.RoomCode, err)
	}
}

func (h *dbHistory) List(limit int) ([]MatchSummary, error) {
	if h.db == nil {
		return nil, nil
	}
	var records []db.Match
	query := h.db.Preload("Players").Preload("Events").Order("finished_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	summaries := make([]MatchSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, summaryFromRecord(record))
	}
	return summaries, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
