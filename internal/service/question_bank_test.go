package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quiz-tournament/internal/config"
	"github.com/yourusername/quiz-tournament/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-tournament/internal/pkg/errors"
)

// ============================================================================
// Моки репозиториев
// ============================================================================

// MockQuestionRepository реализует repository.QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) ListAll() ([]entity.Question, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) ListByDifficulties(difficulties []int) ([]entity.Question, error) {
	args := m.Called(difficulties)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) CountByDifficulty() (map[int]int64, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]int64), args.Error(1)
}

func (m *MockQuestionRepository) CreateBatch(questions []entity.Question) error {
	args := m.Called(questions)
	return args.Error(0)
}

// MockCacheRepository реализует repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepository) Exists(key string) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}

// bankSizeSpy запоминает последний размер банка
type bankSizeSpy struct {
	mu     sync.Mutex
	counts map[int]int
	calls  int
}

func (s *bankSizeSpy) SetQuestionBankSize(counts map[int]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = counts
	s.calls++
}

func sampleQuestions() []entity.Question {
	return []entity.Question{
		{ID: 1, Difficulty: 1, Question: "Q1", Choices: entity.StringArray{"a", "b"}, Answer: 0},
		{ID: 2, Difficulty: 2, Question: "Q2", Choices: entity.StringArray{"a", "b", "c"}, Answer: 2},
		{ID: 3, Difficulty: 2, Question: "Q3", Choices: entity.StringArray{"a", "b"}, Answer: 1},
	}
}

// ============================================================================
// Тесты
// ============================================================================

func TestQuestionBank_Builtin(t *testing.T) {
	bank := NewQuestionBank(QuestionBankConfig{Source: config.QuestionsSourceBuiltin}, nil, nil, nil)

	stats, err := bank.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.False(t, stats.Fallback)
	require.Len(t, bank.Snapshot(), 1)
	assert.Equal(t, "Roland-Garros", bank.Snapshot()[0].Choices[bank.Snapshot()[0].Answer])
}

func TestQuestionBank_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	data := `[
		{"difficulty": 1, "question": "Q1", "choices": ["a", "b"], "answer": 1},
		{"difficulty": 2, "question": "Q2", "choices": ["a", "b", "c"], "answer": 0},
		{"difficulty": 1, "question": "", "choices": ["a", "b"], "answer": 0},
		{"difficulty": 3, "question": "Q4", "choices": ["a"], "answer": 0}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	spy := &bankSizeSpy{}
	bank := NewQuestionBank(QuestionBankConfig{Source: config.QuestionsSourceFile, File: path}, nil, nil, spy)

	stats, err := bank.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, stats.Fallback)
	assert.Equal(t, 2, stats.Total, "некорректные записи пропускаются")
	assert.Equal(t, map[int]int{1: 1, 2: 1}, stats.ByDifficulty)
	assert.Equal(t, map[int]int{1: 1, 2: 1}, spy.counts)

	questions := bank.Snapshot()
	assert.Equal(t, uint(1), questions[0].ID, "id присваивается по порядку")
	assert.Equal(t, uint(2), questions[1].ID)
}

func TestQuestionBank_FileMissingFallsBack(t *testing.T) {
	bank := NewQuestionBank(QuestionBankConfig{
		Source: config.QuestionsSourceFile,
		File:   filepath.Join(t.TempDir(), "missing.json"),
	}, nil, nil, nil)

	stats, err := bank.Reload(context.Background())
	require.NoError(t, err, "ошибка источника не фатальна")
	assert.True(t, stats.Fallback)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, "Which tournament is played on clay?", bank.Snapshot()[0].Question)
}

func TestQuestionBank_FileMalformedFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	bank := NewQuestionBank(QuestionBankConfig{Source: config.QuestionsSourceFile, File: path}, nil, nil, nil)
	stats, err := bank.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Fallback)
}

func TestQuestionBank_PostgresCacheMiss(t *testing.T) {
	repo := new(MockQuestionRepository)
	cache := new(MockCacheRepository)

	cache.On("GetJSON", questionBankCacheKey, mock.Anything).Return(apperrors.ErrNotFound)
	repo.On("ListByDifficulties", []int{1, 2, 3, 4}).Return(sampleQuestions(), nil)
	cache.On("SetJSON", questionBankCacheKey, sampleQuestions(), 5*time.Minute).Return(nil)

	bank := NewQuestionBank(QuestionBankConfig{
		Source:        config.QuestionsSourcePostgres,
		CacheTTL:      5 * time.Minute,
		MaxDifficulty: 3,
	}, repo, cache, nil)

	stats, err := bank.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, stats.Fallback)
	assert.Equal(t, 3, stats.Total)

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestQuestionBank_PostgresCacheHit(t *testing.T) {
	repo := new(MockQuestionRepository)
	cache := new(MockCacheRepository)

	cache.On("GetJSON", questionBankCacheKey, mock.Anything).
		Run(func(args mock.Arguments) {
			dest := args.Get(1).(*[]entity.Question)
			*dest = sampleQuestions()
		}).
		Return(nil)

	bank := NewQuestionBank(QuestionBankConfig{Source: config.QuestionsSourcePostgres}, repo, cache, nil)
	stats, err := bank.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)

	repo.AssertNotCalled(t, "ListAll")
	cache.AssertExpectations(t)
}

func TestQuestionBank_PostgresUnavailableFallsBack(t *testing.T) {
	repo := new(MockQuestionRepository)
	repo.On("ListAll").Return(nil, errors.New("connection refused"))

	bank := NewQuestionBank(QuestionBankConfig{Source: config.QuestionsSourcePostgres}, repo, nil, nil)
	stats, err := bank.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Fallback)
	assert.Equal(t, config.QuestionsSourcePostgres, stats.Source)
	repo.AssertExpectations(t)
}

func TestQuestionBank_PostgresWithoutRepoFallsBack(t *testing.T) {
	bank := NewQuestionBank(QuestionBankConfig{Source: config.QuestionsSourcePostgres}, nil, nil, nil)
	stats, err := bank.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Fallback)
}

func TestQuestionBank_MaxDifficultyFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	data := `[
		{"id": 1, "difficulty": 1, "question": "Q1", "choices": ["a", "b"], "answer": 1},
		{"id": 2, "difficulty": 3, "question": "Q2", "choices": ["a", "b"], "answer": 0},
		{"id": 3, "difficulty": 5, "question": "Q3", "choices": ["a", "b"], "answer": 0}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	bank := NewQuestionBank(QuestionBankConfig{Source: config.QuestionsSourceFile, File: path, MaxDifficulty: 2}, nil, nil, nil)
	stats, err := bank.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 1, 3: 1}, stats.ByDifficulty, "сложность выше max+1 не загружается")
}

func TestQuestionBank_ReloadCancelled(t *testing.T) {
	bank := NewQuestionBank(QuestionBankConfig{}, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := bank.Reload(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, bank.Snapshot())
}

func TestQuestionBank_StatsIsACopy(t *testing.T) {
	bank := NewQuestionBank(QuestionBankConfig{Source: config.QuestionsSourceBuiltin}, nil, nil, nil)
	_, err := bank.Reload(context.Background())
	require.NoError(t, err)

	stats := bank.Stats()
	stats.ByDifficulty[1] = 100
	assert.Equal(t, 1, bank.Stats().ByDifficulty[1])
}

func TestQuestionBank_InvalidateCache(t *testing.T) {
	cache := new(MockCacheRepository)
	cache.On("Delete", questionBankCacheKey).Return(nil)

	bank := NewQuestionBank(QuestionBankConfig{Source: config.QuestionsSourcePostgres}, nil, cache, nil)
	assert.NoError(t, bank.InvalidateCache())
	cache.AssertExpectations(t)

	noCache := NewQuestionBank(QuestionBankConfig{}, nil, nil, nil)
	assert.NoError(t, noCache.InvalidateCache())
}
