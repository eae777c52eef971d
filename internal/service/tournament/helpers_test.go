package tournament

import (
	"context"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/yourusername/quiz-tournament/internal/domain/entity"
)

// fixedRand всегда возвращает одно и то же значение Float64, а IntN - ноль
type fixedRand struct {
	value float64
}

func (r fixedRand) IntN(int) int     { return 0 }
func (r fixedRand) Float64() float64 { return r.value }

// scriptedRand возвращает значения Float64 по очереди, затем повторяет последнее
type scriptedRand struct {
	values []float64
	pos    int
}

func (r *scriptedRand) IntN(int) int { return 0 }

func (r *scriptedRand) Float64() float64 {
	if r.pos >= len(r.values) {
		return r.values[len(r.values)-1]
	}
	v := r.values[r.pos]
	r.pos++
	return v
}

// recordingPresenter запоминает все вызовы слоя отображения
type recordingPresenter struct {
	mu        sync.Mutex
	calls     []string
	brackets  []BracketSnapshot
	prompts   []QuestionPrompt
	progress  []Progress
	pending   []MatchView
	results   []MatchResult
	champions []*entity.Player
	history   []entity.HistoryEntry
	err       error
}

func (p *recordingPresenter) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *recordingPresenter) RenderBracket(_ context.Context, s BracketSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("bracket")
	p.brackets = append(p.brackets, s)
	return p.err
}

func (p *recordingPresenter) ShowQuestion(_ context.Context, q QuestionPrompt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("question")
	p.prompts = append(p.prompts, q)
	return p.err
}

func (p *recordingPresenter) UpdateProgress(_ context.Context, pr Progress) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("progress")
	p.progress = append(p.progress, pr)
	return p.err
}

func (p *recordingPresenter) ShowPending(_ context.Context, m MatchView) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("pending")
	p.pending = append(p.pending, m)
	return p.err
}

func (p *recordingPresenter) ShowMatchResult(_ context.Context, r MatchResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("result")
	p.results = append(p.results, r)
	return p.err
}

func (p *recordingPresenter) AnnounceChampion(_ context.Context, c *entity.Player) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("champion")
	p.champions = append(p.champions, c)
	return p.err
}

func (p *recordingPresenter) AppendHistory(_ context.Context, e entity.HistoryEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("history")
	p.history = append(p.history, e)
	return p.err
}

// countingRecorder считает события метрик
type countingRecorder struct {
	started    int
	resolved   map[MatchKind]int
	humanWins  int
	finished   int
	shortfalls int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{resolved: make(map[MatchKind]int)}
}

func (r *countingRecorder) TournamentStarted(int) { r.started++ }

func (r *countingRecorder) MatchResolved(kind MatchKind, humanWon bool) {
	r.resolved[kind]++
	if humanWon {
		r.humanWins++
	}
}

func (r *countingRecorder) TournamentFinished(bool)         { r.finished++ }
func (r *countingRecorder) QuestionShortfall(int, int, int) { r.shortfalls++ }

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// questionsByDifficulty создает банк: counts[d] вопросов сложности d.
// Правильный ответ всегда 0.
func questionsByDifficulty(counts map[int]int) []entity.Question {
	questions := make([]entity.Question, 0)
	id := uint(1)
	for difficulty := 1; difficulty <= 4; difficulty++ {
		for i := 0; i < counts[difficulty]; i++ {
			questions = append(questions, entity.Question{
				ID:         id,
				Difficulty: difficulty,
				Question:   "Q",
				Choices:    entity.StringArray{"right", "wrong", "wrong", "wrong"},
				Answer:     0,
			})
			id++
		}
	}
	return questions
}

// fakeBank генерирует банк вопросов со случайным текстом
func fakeBank(seed uint64, n int) []entity.Question {
	faker := gofakeit.New(seed)
	questions := make([]entity.Question, n)
	for i := range questions {
		choices := make(entity.StringArray, faker.Number(2, 5))
		for j := range choices {
			choices[j] = faker.Word()
		}
		questions[i] = entity.Question{
			ID:         uint(i + 1),
			Difficulty: faker.Number(1, 3),
			Question:   faker.Sentence(faker.Number(3, 8)),
			Choices:    choices,
			Answer:     faker.Number(0, len(choices)-1),
		}
	}
	return questions
}

func newTestController(pool []entity.Question, rng Rand, presenter Presenter, recorder Recorder) *Controller {
	return NewController(DefaultConfig(), Dependencies{
		Presenter: presenter,
		Recorder:  recorder,
		Now:       func() time.Time { return testNow },
		Pause:     func(time.Duration) {},
	}, pool, rng)
}
