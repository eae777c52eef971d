package tournament

import (
	"time"

	"github.com/yourusername/quiz-tournament/internal/domain/entity"
)

// Config содержит настройки контроллера матчей
type Config struct {
	DefaultPlayerCount int
	MaxPlayerCount     int

	// CPUDelay - пауза перед завершением матча CPU против CPU, чтобы слой
	// отображения успел показать состояние ожидания. Не отменяется.
	CPUDelay time.Duration

	Difficulty *DifficultyConfig
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		DefaultPlayerCount: 8,
		MaxPlayerCount:     64,
		CPUDelay:           600 * time.Millisecond,
		Difficulty:         DefaultDifficultyConfig(),
	}
}

// Recorder принимает события для метрик
type Recorder interface {
	TournamentStarted(playerCount int)
	MatchResolved(kind MatchKind, humanWon bool)
	TournamentFinished(humanChampion bool)
	QuestionShortfall(difficulty, requested, got int)
}

// NopRecorder игнорирует события
type NopRecorder struct{}

func (NopRecorder) TournamentStarted(int)           {}
func (NopRecorder) MatchResolved(MatchKind, bool)   {}
func (NopRecorder) TournamentFinished(bool)         {}
func (NopRecorder) QuestionShortfall(int, int, int) {}

// Dependencies содержит зависимости контроллера
type Dependencies struct {
	Presenter Presenter
	Recorder  Recorder

	// Now и Pause подменяются в тестах
	Now   func() time.Time
	Pause func(time.Duration)
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Presenter == nil {
		d.Presenter = NopPresenter{}
	}
	if d.Recorder == nil {
		d.Recorder = NopRecorder{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Pause == nil {
		d.Pause = time.Sleep
	}
	return d
}

// Phase - фаза турнира
type Phase string

const (
	PhaseNew            Phase = "new"
	PhaseIdle           Phase = "idle"
	PhaseAwaitingAnswer Phase = "awaiting_answer"
	PhaseSimulating     Phase = "simulating"
	PhaseFinished       Phase = "finished"
)

// MatchKind - тип матча
type MatchKind string

const (
	MatchKindHuman MatchKind = "human"
	MatchKindCPU   MatchKind = "cpu"
)

// MatchOutcome - ответ на запуск следующего матча
type MatchOutcome struct {
	Finished      bool            `json:"finished"`
	Champion      *entity.Player  `json:"champion,omitempty"`
	Kind          MatchKind       `json:"kind,omitempty"`
	RoundIndex    int             `json:"round_index"`
	MatchIndex    int             `json:"match_index"`
	Difficulty    int             `json:"difficulty,omitempty"`
	QuestionCount int             `json:"question_count,omitempty"`
	Prompt        *QuestionPrompt `json:"prompt,omitempty"`
	Progress      *Progress       `json:"progress,omitempty"`
	Result        *MatchResult    `json:"result,omitempty"`
}

// AnswerOutcome - ответ на выбор варианта человеком
type AnswerOutcome struct {
	Correct  bool            `json:"correct"`
	Progress Progress        `json:"progress"`
	Next     *QuestionPrompt `json:"next,omitempty"`
	Result   *MatchResult    `json:"result,omitempty"`
}

// CurrentMatch описывает матч, который сейчас играется
type CurrentMatch struct {
	Kind       MatchKind       `json:"kind"`
	RoundIndex int             `json:"round_index"`
	MatchIndex int             `json:"match_index"`
	Prompt     *QuestionPrompt `json:"prompt,omitempty"`
	Progress   *Progress       `json:"progress,omitempty"`
	Correct    int             `json:"correct,omitempty"`
}

// StateSnapshot - снимок состояния турнира для чтения
type StateSnapshot struct {
	Phase      Phase           `json:"phase"`
	Players    []entity.Player `json:"players"`
	Bracket    BracketSnapshot `json:"bracket"`
	Current    *CurrentMatch   `json:"current,omitempty"`
	LastResult *MatchResult    `json:"last_result,omitempty"`
	Champion   *entity.Player  `json:"champion,omitempty"`
}
