package tournament

import (
	"context"

	"github.com/yourusername/quiz-tournament/internal/domain/entity"
)

// Presenter - внешний слой отображения. Контроллер вызывает его после каждого
// изменения состояния; ошибки доставки только логируются.
type Presenter interface {
	RenderBracket(ctx context.Context, snapshot BracketSnapshot) error
	ShowQuestion(ctx context.Context, prompt QuestionPrompt) error
	UpdateProgress(ctx context.Context, progress Progress) error
	ShowPending(ctx context.Context, match MatchView) error
	ShowMatchResult(ctx context.Context, result MatchResult) error
	AnnounceChampion(ctx context.Context, champion *entity.Player) error
	AppendHistory(ctx context.Context, entry entity.HistoryEntry) error
}

// NopPresenter ничего не отображает
type NopPresenter struct{}

func (NopPresenter) RenderBracket(context.Context, BracketSnapshot) error     { return nil }
func (NopPresenter) ShowQuestion(context.Context, QuestionPrompt) error       { return nil }
func (NopPresenter) UpdateProgress(context.Context, Progress) error           { return nil }
func (NopPresenter) ShowPending(context.Context, MatchView) error             { return nil }
func (NopPresenter) ShowMatchResult(context.Context, MatchResult) error       { return nil }
func (NopPresenter) AnnounceChampion(context.Context, *entity.Player) error   { return nil }
func (NopPresenter) AppendHistory(context.Context, entity.HistoryEntry) error { return nil }

// SlotView - слот матча для отрисовки
type SlotView struct {
	PlayerID *int   `json:"player_id,omitempty"`
	Name     string `json:"name"`
	Resolved bool   `json:"resolved"`
	Human    bool   `json:"human,omitempty"`
}

// MatchView - матч для отрисовки
type MatchView struct {
	RoundIndex int      `json:"round_index"`
	MatchIndex int      `json:"match_index"`
	A          SlotView `json:"a"`
	B          SlotView `json:"b"`
	WinnerID   *int     `json:"winner_id,omitempty"`
	WinnerName string   `json:"winner_name,omitempty"`
}

// RoundView - раунд для отрисовки (Number с единицы)
type RoundView struct {
	Number  int         `json:"number"`
	Matches []MatchView `json:"matches"`
}

// BracketSnapshot - полный снимок сетки
type BracketSnapshot struct {
	Rounds []RoundView `json:"rounds"`
}

// QuestionPrompt - вопрос для человека, без правильного ответа
type QuestionPrompt struct {
	QuestionID uint     `json:"question_id"`
	Number     int      `json:"number"` // с единицы
	Total      int      `json:"total"`
	Difficulty int      `json:"difficulty"`
	Text       string   `json:"text"`
	Choices    []string `json:"choices"`
}

// Progress - индикатор "вопрос current из total"
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Score - результат одной стороны матча
type Score struct {
	PlayerID int     `json:"player_id"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Pct      float64 `json:"pct"`
}

// MatchResult - итог матча
type MatchResult struct {
	Kind       MatchKind      `json:"kind"`
	RoundIndex int            `json:"round_index"`
	MatchIndex int            `json:"match_index"`
	A          *entity.Player `json:"a"`
	B          *entity.Player `json:"b"`
	Winner     *entity.Player `json:"winner"`
	Scores     []Score        `json:"scores"`
	Summary    string         `json:"summary"`
}
