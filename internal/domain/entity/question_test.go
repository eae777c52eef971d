package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestion_IsCorrect(t *testing.T) {
	// Arrange
	question := &Question{
		ID:         1,
		Difficulty: 1,
		Question:   "Какой турнир играется на грунте?",
		Choices:    StringArray{"Wimbledon", "Roland-Garros", "US Open", "Australian Open"},
		Answer:     1,
	}

	// Act & Assert
	assert.True(t, question.IsCorrect(1), "IsCorrect должен вернуть true для правильного ответа")
	assert.False(t, question.IsCorrect(0), "IsCorrect должен вернуть false для неправильного ответа")
	assert.False(t, question.IsCorrect(3), "IsCorrect должен вернуть false для неправильного ответа")
}

func TestQuestion_IsValidChoice(t *testing.T) {
	question := &Question{Choices: StringArray{"A", "B", "C", "D"}}

	assert.True(t, question.IsValidChoice(0))
	assert.True(t, question.IsValidChoice(3))
	assert.False(t, question.IsValidChoice(-1), "Отрицательный индекс должен быть невалидным")
	assert.False(t, question.IsValidChoice(4), "Индекс вне диапазона должен быть невалидным")
}

func TestQuestion_ChoicesCount(t *testing.T) {
	testCases := []struct {
		name     string
		choices  StringArray
		expected int
	}{
		{"4 варианта", StringArray{"A", "B", "C", "D"}, 4},
		{"2 варианта", StringArray{"Да", "Нет"}, 2},
		{"nil варианты", nil, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			question := &Question{Choices: tc.choices}
			assert.Equal(t, tc.expected, question.ChoicesCount())
		})
	}
}

func TestQuestion_Validate(t *testing.T) {
	valid := Question{Difficulty: 2, Question: "Q?", Choices: StringArray{"a", "b"}, Answer: 1}
	require.NoError(t, valid.Validate())

	testCases := []struct {
		name   string
		mutate func(q *Question)
	}{
		{"пустой текст", func(q *Question) { q.Question = "" }},
		{"один вариант", func(q *Question) { q.Choices = StringArray{"a"} }},
		{"ответ вне диапазона", func(q *Question) { q.Answer = 2 }},
		{"нулевая сложность", func(q *Question) { q.Difficulty = 0 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := valid
			q.Choices = append(StringArray{}, valid.Choices...)
			tc.mutate(&q)
			assert.Error(t, q.Validate())
		})
	}
}

func TestQuestion_JSONMatchesBankFileFormat(t *testing.T) {
	raw := `{"id":1,"difficulty":1,"question":"Quel tournoi se joue sur terre battue ?","choices":["Wimbledon","Roland-Garros","US Open","Australian Open"],"answer":1}`

	var q Question
	require.NoError(t, json.Unmarshal([]byte(raw), &q))

	assert.Equal(t, uint(1), q.ID)
	assert.Equal(t, 1, q.Difficulty)
	assert.Len(t, q.Choices, 4)
	assert.Equal(t, "Roland-Garros", q.Choices[q.Answer])
}

func TestQuestion_TableName(t *testing.T) {
	assert.Equal(t, "questions", Question{}.TableName())
}

// Тесты для StringArray (JSONB сериализация)

func TestStringArray_Scan(t *testing.T) {
	t.Run("валидный JSON", func(t *testing.T) {
		var arr StringArray
		require.NoError(t, arr.Scan([]byte(`["Option 1", "Option 2"]`)))
		assert.Equal(t, StringArray{"Option 1", "Option 2"}, arr)
	})

	t.Run("строка", func(t *testing.T) {
		var arr StringArray
		require.NoError(t, arr.Scan(`["x"]`))
		assert.Equal(t, StringArray{"x"}, arr)
	})

	t.Run("NULL", func(t *testing.T) {
		var arr StringArray
		require.NoError(t, arr.Scan(nil))
		assert.Len(t, arr, 0, "Для nil должен вернуться пустой массив")
	})

	t.Run("пустые байты", func(t *testing.T) {
		var arr StringArray
		require.NoError(t, arr.Scan([]byte{}))
		assert.Len(t, arr, 0)
	})

	t.Run("неподдерживаемый тип", func(t *testing.T) {
		var arr StringArray
		assert.Error(t, arr.Scan(42), "Scan должен возвращать ошибку для неподдерживаемого типа")
	})
}

func TestStringArray_Value(t *testing.T) {
	val, err := StringArray{"A", "B"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["A","B"]`, string(val.([]byte)))

	var empty StringArray
	val, err = empty.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(val.([]byte)), "nil должен сериализоваться в []")
}
