package tournament

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/quiz-tournament/internal/domain/entity"
)

func uniqueIDs(questions []entity.Question) map[uint]bool {
	ids := make(map[uint]bool, len(questions))
	for _, q := range questions {
		ids[q.ID] = true
	}
	return ids
}

func TestSample_ExactDifficulty(t *testing.T) {
	pool := questionsByDifficulty(map[int]int{1: 4, 2: 4})
	sampler := NewQuestionSampler(pool, NewRand(1))

	got := sampler.Sample(2, 3)
	require.Len(t, got, 3)
	for _, q := range got {
		assert.Equal(t, 2, q.Difficulty, "хватает вопросов нужной сложности, расширение не нужно")
	}
	assert.Len(t, uniqueIDs(got), 3, "вопросы не повторяются")
}

func TestSample_WidensOnce(t *testing.T) {
	pool := questionsByDifficulty(map[int]int{1: 3, 2: 4, 3: 5})
	sampler := NewQuestionSampler(pool, NewRand(7))

	got := sampler.Sample(1, 5)
	require.Len(t, got, 5)
	assert.Len(t, uniqueIDs(got), 5)
	for _, q := range got {
		assert.LessOrEqual(t, q.Difficulty, 2, "расширение только до difficulty+1")
	}
}

func TestSample_Shortfall(t *testing.T) {
	pool := questionsByDifficulty(map[int]int{1: 1, 2: 2, 4: 3})
	sampler := NewQuestionSampler(pool, NewRand(3))

	got := sampler.Sample(2, 7)
	assert.Len(t, got, 3, "возвращаются все вопросы сложности <= 3")
	assert.Len(t, uniqueIDs(got), 3)
}

func TestSample_EmptyCases(t *testing.T) {
	sampler := NewQuestionSampler(nil, NewRand(1))
	assert.Empty(t, sampler.Sample(1, 3))
	assert.Equal(t, 0, sampler.PoolSize())

	sampler = NewQuestionSampler(questionsByDifficulty(map[int]int{1: 3}), NewRand(1))
	assert.Empty(t, sampler.Sample(1, 0))
}

func TestSample_DoesNotMutatePool(t *testing.T) {
	pool := questionsByDifficulty(map[int]int{1: 6})
	before := make([]uint, len(pool))
	for i, q := range pool {
		before[i] = q.ID
	}

	sampler := NewQuestionSampler(pool, NewRand(11))
	_ = sampler.Sample(1, 4)

	for i, q := range pool {
		assert.Equal(t, before[i], q.ID, "перемешивается копия, а не банк")
	}
}

func TestSample_SeedIsDeterministic(t *testing.T) {
	pool := fakeBank(42, 60)

	first := NewQuestionSampler(pool, NewRand(99)).Sample(2, 5)
	second := NewQuestionSampler(pool, NewRand(99)).Sample(2, 5)
	assert.Equal(t, first, second, "одинаковый seed даёт одинаковую выборку")
}

func TestSample_GeneratedBank(t *testing.T) {
	pool := fakeBank(2024, 200)
	sampler := NewQuestionSampler(pool, NewRand(5))

	for difficulty := 1; difficulty <= 3; difficulty++ {
		got := sampler.Sample(difficulty, 7)
		require.Len(t, got, 7)
		assert.Len(t, uniqueIDs(got), 7)
		for _, q := range got {
			assert.Equal(t, difficulty, q.Difficulty)
			assert.NoError(t, q.Validate())
		}
	}
}
