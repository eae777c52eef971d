package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yourusername/quiz-tournament/internal/config"
	"github.com/yourusername/quiz-tournament/internal/domain/entity"
	"github.com/yourusername/quiz-tournament/internal/domain/repository"
	apperrors "github.com/yourusername/quiz-tournament/internal/pkg/errors"
)

// questionBankCacheKey - ключ Redis с банком вопросов из PostgreSQL
const questionBankCacheKey = "questions:bank"

// fallbackQuestions - минимальный банк на случай недоступности источника
var fallbackQuestions = []entity.Question{
	{
		ID:         1,
		Difficulty: 1,
		Question:   "Which tournament is played on clay?",
		Choices:    entity.StringArray{"Wimbledon", "Roland-Garros", "US Open", "Australian Open"},
		Answer:     1,
	},
}

// BankSizeRecorder принимает размер банка после загрузки
type BankSizeRecorder interface {
	SetQuestionBankSize(counts map[int]int)
}

// QuestionBankConfig содержит настройки источника вопросов
type QuestionBankConfig struct {
	Source   string
	File     string
	CacheTTL time.Duration

	// MaxDifficulty: вопросы сложнее MaxDifficulty+1 сэмплер никогда не выберет,
	// поэтому они не загружаются. 0 - без ограничения.
	MaxDifficulty int
}

// BankStats описывает загруженный банк вопросов
type BankStats struct {
	Source       string      `json:"source"`
	Total        int         `json:"total"`
	ByDifficulty map[int]int `json:"by_difficulty"`
	Fallback     bool        `json:"fallback"`
	LoadedAt     time.Time   `json:"loaded_at"`
}

// QuestionBank хранит неизменяемый снимок банка вопросов. Турниры получают
// снимок при создании, поэтому перезагрузка не влияет на уже идущие турниры.
type QuestionBank struct {
	config    QuestionBankConfig
	repo      repository.QuestionRepository
	cacheRepo repository.CacheRepository
	recorder  BankSizeRecorder

	mu        sync.RWMutex
	questions []entity.Question
	stats     BankStats

	group singleflight.Group
}

// NewQuestionBank создает банк вопросов. repo и cacheRepo могут быть nil,
// если источник не PostgreSQL или Redis отключён.
func NewQuestionBank(
	cfg QuestionBankConfig,
	repo repository.QuestionRepository,
	cacheRepo repository.CacheRepository,
	recorder BankSizeRecorder,
) *QuestionBank {
	if cfg.Source == "" {
		cfg.Source = config.QuestionsSourceBuiltin
	}
	return &QuestionBank{
		config:    cfg,
		repo:      repo,
		cacheRepo: cacheRepo,
		recorder:  recorder,
	}
}

// Reload загружает банк из источника. Параллельные вызовы объединяются в одну загрузку.
// При любой ошибке используется встроенный банк, поэтому турниры продолжают работать.
func (b *QuestionBank) Reload(ctx context.Context) (BankStats, error) {
	if err := ctx.Err(); err != nil {
		return BankStats{}, err
	}

	v, _, _ := b.group.Do("reload", func() (interface{}, error) {
		questions, err := b.load()
		fallback := false
		if err != nil {
			log.Printf("[QuestionBank] Ошибка загрузки из источника %q, используется встроенный банк: %v", b.config.Source, err)
			questions = cloneQuestions(fallbackQuestions)
			fallback = true
		}

		stats := BankStats{
			Source:       b.config.Source,
			Total:        len(questions),
			ByDifficulty: countByDifficulty(questions),
			Fallback:     fallback,
			LoadedAt:     time.Now(),
		}

		b.mu.Lock()
		b.questions = questions
		b.stats = stats
		b.mu.Unlock()

		if b.recorder != nil {
			b.recorder.SetQuestionBankSize(stats.ByDifficulty)
		}
		log.Printf("[QuestionBank] Загружено %d вопросов (источник: %s, fallback: %t)", stats.Total, stats.Source, fallback)
		return stats, nil
	})
	return v.(BankStats), nil
}

// Snapshot возвращает текущий банк. Срез не изменяется после загрузки.
func (b *QuestionBank) Snapshot() []entity.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.questions
}

// Stats возвращает статистику текущего банка
func (b *QuestionBank) Stats() BankStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	stats := b.stats
	stats.ByDifficulty = make(map[int]int, len(b.stats.ByDifficulty))
	for d, n := range b.stats.ByDifficulty {
		stats.ByDifficulty[d] = n
	}
	return stats
}

// InvalidateCache удаляет банк из Redis, следующая загрузка пойдёт в базу
func (b *QuestionBank) InvalidateCache() error {
	if b.cacheRepo == nil {
		return nil
	}
	if err := b.cacheRepo.Delete(questionBankCacheKey); err != nil {
		return fmt.Errorf("failed to invalidate question cache: %w", err)
	}
	return nil
}

func (b *QuestionBank) load() ([]entity.Question, error) {
	var (
		raw []entity.Question
		err error
	)
	switch b.config.Source {
	case config.QuestionsSourcePostgres:
		raw, err = b.loadFromPostgres()
	case config.QuestionsSourceFile:
		raw, err = LoadQuestionsFile(b.config.File)
	case config.QuestionsSourceBuiltin:
		raw = cloneQuestions(fallbackQuestions)
	default:
		err = fmt.Errorf("%w: unknown questions source %q", apperrors.ErrValidation, b.config.Source)
	}
	if err != nil {
		return nil, err
	}

	questions := validQuestions(raw, b.config.MaxDifficulty)
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: question bank is empty", apperrors.ErrUnavailable)
	}
	return questions, nil
}

func (b *QuestionBank) loadFromPostgres() ([]entity.Question, error) {
	if b.repo == nil {
		return nil, fmt.Errorf("%w: question repository is not configured", apperrors.ErrUnavailable)
	}

	if b.cacheRepo != nil {
		var cached []entity.Question
		err := b.cacheRepo.GetJSON(questionBankCacheKey, &cached)
		switch {
		case err == nil && len(cached) > 0:
			log.Printf("[QuestionBank] Банк вопросов получен из кеша (%d)", len(cached))
			return cached, nil
		case err != nil && !errors.Is(err, apperrors.ErrNotFound):
			log.Printf("[QuestionBank] Ошибка чтения кеша, читаю из базы: %v", err)
		}
	}

	var (
		questions []entity.Question
		err       error
	)
	if levels := b.usableDifficulties(); levels != nil {
		questions, err = b.repo.ListByDifficulties(levels)
	} else {
		questions, err = b.repo.ListAll()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	if b.cacheRepo != nil && len(questions) > 0 {
		if err := b.cacheRepo.SetJSON(questionBankCacheKey, questions, b.config.CacheTTL); err != nil {
			log.Printf("[QuestionBank] Не удалось сохранить банк в кеш: %v", err)
		}
	}
	return questions, nil
}

// usableDifficulties возвращает уровни 1..MaxDifficulty+1 или nil без ограничения
func (b *QuestionBank) usableDifficulties() []int {
	if b.config.MaxDifficulty <= 0 {
		return nil
	}
	levels := make([]int, 0, b.config.MaxDifficulty+1)
	for d := 1; d <= b.config.MaxDifficulty+1; d++ {
		levels = append(levels, d)
	}
	return levels
}

// LoadQuestionsFile читает JSON-массив вопросов. Записям без id
// присваивается порядковый номер.
func LoadQuestionsFile(path string) ([]entity.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read questions file: %v", apperrors.ErrUnavailable, err)
	}
	var questions []entity.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("%w: failed to parse questions file: %v", apperrors.ErrValidation, err)
	}
	for i := range questions {
		if questions[i].ID == 0 {
			questions[i].ID = uint(i + 1)
		}
	}
	return questions, nil
}

// validQuestions отбрасывает некорректные записи и слишком сложные вопросы
func validQuestions(raw []entity.Question, maxDifficulty int) []entity.Question {
	questions := make([]entity.Question, 0, len(raw))
	for i := range raw {
		if err := raw[i].Validate(); err != nil {
			log.Printf("[QuestionBank] Пропущен вопрос #%d: %v", raw[i].ID, err)
			continue
		}
		if maxDifficulty > 0 && raw[i].Difficulty > maxDifficulty+1 {
			continue
		}
		questions = append(questions, raw[i])
	}
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions
}

func countByDifficulty(questions []entity.Question) map[int]int {
	counts := make(map[int]int)
	for _, q := range questions {
		counts[q.Difficulty]++
	}
	return counts
}

func cloneQuestions(src []entity.Question) []entity.Question {
	dst := make([]entity.Question, len(src))
	for i, q := range src {
		dst[i] = q
		dst[i].Choices = append(entity.StringArray(nil), q.Choices...)
	}
	return dst
}
