package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
// Используется GORM для чтения JSONB данных из базы
func (o *StringArray) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*o = StringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSONB value: expected []byte or string")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// Question представляет вопрос из банка вопросов турнира.
// JSON-представление совпадает с форматом файла questions.json.
type Question struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	Difficulty int         `gorm:"not null;index" json:"difficulty"`
	Question   string      `gorm:"column:question;size:500;not null" json:"question"`
	Choices    StringArray `gorm:"type:jsonb;not null" json:"choices"`
	Answer     int         `gorm:"not null" json:"answer"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// IsCorrect проверяет, является ли выбранный вариант правильным
func (q *Question) IsCorrect(choiceIndex int) bool {
	return choiceIndex == q.Answer
}

// ChoicesCount возвращает количество вариантов ответа
func (q *Question) ChoicesCount() int {
	return len(q.Choices)
}

// IsValidChoice проверяет, является ли выбранный вариант допустимым
func (q *Question) IsValidChoice(choiceIndex int) bool {
	return choiceIndex >= 0 && choiceIndex < len(q.Choices)
}

// Validate проверяет целостность записи из внешнего источника
func (q *Question) Validate() error {
	if q.Question == "" {
		return errors.New("question text is empty")
	}
	if len(q.Choices) < 2 {
		return errors.New("question must have at least two choices")
	}
	if !q.IsValidChoice(q.Answer) {
		return errors.New("answer index is out of range")
	}
	if q.Difficulty < 1 {
		return errors.New("difficulty must be positive")
	}
	return nil
}
