package dto

import (
	"github.com/google/uuid"

	"github.com/yourusername/quiz-tournament/internal/domain/entity"
	"github.com/yourusername/quiz-tournament/internal/service"
	"github.com/yourusername/quiz-tournament/internal/service/tournament"
)

// CreateTournamentRequest - запрос на создание турнира.
// PlayerCount 0 означает количество по умолчанию, Seed 0 - случайный seed.
type CreateTournamentRequest struct {
	PlayerCount int    `json:"player_count" binding:"omitempty,min=0"`
	Seed        uint64 `json:"seed"`
}

// AnswerRequest - выбор варианта ответа (индекс с нуля)
type AnswerRequest struct {
	Choice *int `json:"choice" binding:"required"`
}

// CreateTournamentResponse - ответ на создание турнира
type CreateTournamentResponse struct {
	ID      uuid.UUID                `json:"id"`
	Ticket  string                   `json:"ticket"`
	Seed    uint64                   `json:"seed"`
	State   tournament.StateSnapshot `json:"state"`
	Outcome *tournament.MatchOutcome `json:"outcome,omitempty"`
}

// HistoryResponse - история турнира
type HistoryResponse struct {
	TournamentID uuid.UUID             `json:"tournament_id"`
	Entries      []entity.HistoryEntry `json:"entries"`
}

// NewCreateTournamentResponse создает DTO для нового турнира
func NewCreateTournamentResponse(result *service.CreateResult) *CreateTournamentResponse {
	return &CreateTournamentResponse{
		ID:      result.Session.ID,
		Ticket:  result.Ticket,
		Seed:    result.Session.Seed,
		State:   result.Session.Controller.Snapshot(),
		Outcome: result.Outcome,
	}
}

// NewHistoryResponse создает DTO истории. Пустая история отдаётся как [], а не null.
func NewHistoryResponse(id uuid.UUID, entries []entity.HistoryEntry) *HistoryResponse {
	if entries == nil {
		entries = []entity.HistoryEntry{}
	}
	return &HistoryResponse{TournamentID: id, Entries: entries}
}
