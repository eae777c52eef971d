package repository

import (
	"github.com/yourusername/quiz-tournament/internal/domain/entity"
)

// QuestionRepository определяет методы для чтения банка вопросов
type QuestionRepository interface {
	// ListAll возвращает весь банк вопросов, упорядоченный по ID
	ListAll() ([]entity.Question, error)

	// ListByDifficulties возвращает вопросы перечисленных уровней сложности
	ListByDifficulties(difficulties []int) ([]entity.Question, error)

	// CountByDifficulty возвращает количество вопросов на каждом уровне сложности
	CountByDifficulty() (map[int]int64, error)

	// CreateBatch добавляет вопросы в банк, id назначает база
	CreateBatch(questions []entity.Question) error
}
