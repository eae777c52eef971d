package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/quiz-tournament/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-tournament/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// ListAll возвращает весь банк вопросов
func (r *QuestionRepo) ListAll() ([]entity.Question, error) {
	var questions []entity.Question
	if err := r.db.Order("id").Find(&questions).Error; err != nil {
		return nil, classifyError(err)
	}
	return questions, nil
}

// ListByDifficulties возвращает вопросы заданных уровней сложности
func (r *QuestionRepo) ListByDifficulties(difficulties []int) ([]entity.Question, error) {
	if len(difficulties) == 0 {
		return []entity.Question{}, nil
	}

	levels := make([]int64, len(difficulties))
	for i, d := range difficulties {
		levels[i] = int64(d)
	}

	var questions []entity.Question
	err := r.db.Where("difficulty = ANY(?)", pq.Array(levels)).Order("id").Find(&questions).Error
	if err != nil {
		return nil, classifyError(err)
	}
	return questions, nil
}

// CountByDifficulty возвращает количество вопросов по уровням сложности
func (r *QuestionRepo) CountByDifficulty() (map[int]int64, error) {
	var rows []struct {
		Difficulty int
		Count      int64
	}
	err := r.db.Model(&entity.Question{}).
		Select("difficulty, COUNT(*) AS count").
		Group("difficulty").
		Scan(&rows).Error
	if err != nil {
		return nil, classifyError(err)
	}

	stats := make(map[int]int64, len(rows))
	for _, row := range rows {
		stats[row.Difficulty] = row.Count
	}
	return stats, nil
}

// CreateBatch сохраняет вопросы пачками в одной транзакции
func (r *QuestionRepo) CreateBatch(questions []entity.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&questions, 100).Error; err != nil {
			return classifyError(err)
		}
		return nil
	})
}

// classifyError переводит ошибки драйвера в ошибки приложения.
// Отсутствие таблицы (42P01) означает, что банк ещё не развёрнут.
func classifyError(err error) error {
	if isUndefinedTable(err) {
		return fmt.Errorf("%w: questions table does not exist", apperrors.ErrUnavailable)
	}
	return err
}

// isUndefinedTable проверяет код 42P01 для pgconn и lib/pq драйверов
func isUndefinedTable(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42P01" {
		return true
	}
	return false
}
