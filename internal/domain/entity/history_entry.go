package entity

import "time"

// HistoryEntry - строка журнала турнира (только добавление)
type HistoryEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	RoundIndex int       `json:"round_index"` // -1 для записи о чемпионе
	Text       string    `json:"text"`
}
