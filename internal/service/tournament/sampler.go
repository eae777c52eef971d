package tournament

import (
	"log"

	"github.com/yourusername/quiz-tournament/internal/domain/entity"
)

// QuestionSampler выбирает случайные вопросы нужной сложности из банка
type QuestionSampler struct {
	pool []entity.Question
	rng  Rand
}

// NewQuestionSampler создает сэмплер поверх неизменяемого снимка банка
func NewQuestionSampler(pool []entity.Question, rng Rand) *QuestionSampler {
	return &QuestionSampler{pool: pool, rng: rng}
}

// PoolSize возвращает размер банка
func (s *QuestionSampler) PoolSize() int {
	return len(s.pool)
}

// Sample возвращает до n случайных вопросов. Сначала берутся вопросы ровно заданной
// сложности; если их меньше n, фильтр один раз расширяется до difficulty+1 включительно.
// Если вопросов не хватает и после расширения, возвращаются все найденные.
func (s *QuestionSampler) Sample(difficulty, n int) []entity.Question {
	if n <= 0 {
		return []entity.Question{}
	}

	candidates := s.filter(func(q *entity.Question) bool { return q.Difficulty == difficulty })
	if len(candidates) < n {
		candidates = s.filter(func(q *entity.Question) bool { return q.Difficulty <= difficulty+1 })
	}

	// Fisher–Yates
	for i := len(candidates) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}

	if len(candidates) < n {
		log.Printf("[QuestionSampler] WARNING: запрошено %d вопросов сложности %d, доступно только %d",
			n, difficulty, len(candidates))
		return candidates
	}
	return candidates[:n]
}

func (s *QuestionSampler) filter(keep func(q *entity.Question) bool) []entity.Question {
	result := make([]entity.Question, 0, len(s.pool))
	for i := range s.pool {
		if keep(&s.pool[i]) {
			result = append(result, s.pool[i])
		}
	}
	return result
}
