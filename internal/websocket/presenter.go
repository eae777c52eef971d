package websocket

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/quiz-tournament/internal/domain/entity"
	"github.com/yourusername/quiz-tournament/internal/service/tournament"
)

// ChampionPayload - данные события tournament:champion.
// Champion равен nil, если сетка завершилась без победителя.
type ChampionPayload struct {
	Champion *entity.Player `json:"champion"`
	Name     string         `json:"name"`
}

// RoomPresenter отображает ход турнира всем клиентам его комнаты
type RoomPresenter struct {
	manager      *Manager
	tournamentID uuid.UUID
}

// NewRoomPresenter создает презентер для турнира
func NewRoomPresenter(manager *Manager, tournamentID uuid.UUID) *RoomPresenter {
	return &RoomPresenter{manager: manager, tournamentID: tournamentID}
}

func (p *RoomPresenter) broadcast(ctx context.Context, eventType string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.manager.BroadcastToTournament(p.tournamentID, eventType, data)
}

func (p *RoomPresenter) RenderBracket(ctx context.Context, snapshot tournament.BracketSnapshot) error {
	return p.broadcast(ctx, EventBracket, snapshot)
}

func (p *RoomPresenter) ShowQuestion(ctx context.Context, prompt tournament.QuestionPrompt) error {
	return p.broadcast(ctx, EventQuestion, prompt)
}

func (p *RoomPresenter) UpdateProgress(ctx context.Context, progress tournament.Progress) error {
	return p.broadcast(ctx, EventProgress, progress)
}

func (p *RoomPresenter) ShowPending(ctx context.Context, match tournament.MatchView) error {
	return p.broadcast(ctx, EventPending, match)
}

func (p *RoomPresenter) ShowMatchResult(ctx context.Context, result tournament.MatchResult) error {
	return p.broadcast(ctx, EventResult, result)
}

func (p *RoomPresenter) AnnounceChampion(ctx context.Context, champion *entity.Player) error {
	payload := ChampionPayload{Champion: champion, Name: "-"}
	if champion != nil {
		payload.Name = champion.Name
	}
	return p.broadcast(ctx, EventChampion, payload)
}

func (p *RoomPresenter) AppendHistory(ctx context.Context, entry entity.HistoryEntry) error {
	return p.broadcast(ctx, EventHistory, entry)
}

var _ tournament.Presenter = (*RoomPresenter)(nil)
