package helper

import (
	"strconv"

	"github.com/yourusername/quiz-tournament/internal/domain/entity"
)

// HistoryExportHeaders - заголовки таблицы экспорта истории
var HistoryExportHeaders = []string{"№", "Раунд", "Время (UTC)", "Событие"}

// RoundLabel возвращает название раунда для экспорта.
// Индекс -1 означает запись о чемпионе.
func RoundLabel(roundIndex int) string {
	if roundIndex < 0 {
		return "Итог"
	}
	return "Раунд " + strconv.Itoa(roundIndex+1)
}

// HistoryRow преобразует запись истории в строку таблицы
func HistoryRow(index int, entry entity.HistoryEntry) []string {
	return []string{
		strconv.Itoa(index + 1),
		RoundLabel(entry.RoundIndex),
		entry.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		entry.Text,
	}
}
