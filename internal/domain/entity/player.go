package entity

const (
	// HumanPlayerID - идентификатор игрока-человека, он всегда стоит первым в сетке
	HumanPlayerID = 0

	// HumanPlayerName - фиксированное имя игрока-человека
	HumanPlayerName = "You"

	// HumanPlayerSkill - фиксированный skill человека (не используется в расчётах)
	HumanPlayerSkill = 0.85
)

// Player представляет участника турнира.
// Skill - вероятность правильного ответа CPU-игрока на лёгкий вопрос.
type Player struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Skill float64 `json:"skill"`
}

// IsHuman проверяет, является ли участник игроком-человеком
func (p *Player) IsHuman() bool {
	return p != nil && p.ID == HumanPlayerID
}
