package tournament

// QualificationThreshold - порог квалификации (строго больше)
const QualificationThreshold = 0.69

// DifficultyConfig содержит настройки роста сложности по раундам
type DifficultyConfig struct {
	// MaxDifficulty - максимальный уровень сложности, до которого растут раунды
	MaxDifficulty int

	// BaseQuestionCount - количество вопросов в первом раунде
	BaseQuestionCount int

	// QuestionsPerRound - сколько вопросов добавляется с каждым раундом
	QuestionsPerRound int

	// SkillDecayPerLevel - на сколько падает шанс CPU с каждым уровнем выше первого (0.12 = 12%)
	SkillDecayPerLevel float64
}

// DefaultDifficultyConfig возвращает настройки по умолчанию: 3, 5, 7... вопросов, сложность 1..3
func DefaultDifficultyConfig() *DifficultyConfig {
	return &DifficultyConfig{
		MaxDifficulty:      3,
		BaseQuestionCount:  3,
		QuestionsPerRound:  2,
		SkillDecayPerLevel: 0.12,
	}
}

// DifficultyForRound возвращает уровень сложности для раунда (roundIndex с нуля)
func (c *DifficultyConfig) DifficultyForRound(roundIndex int) int {
	return min(c.MaxDifficulty, roundIndex+1)
}

// QuestionCountForRound возвращает количество вопросов для раунда (roundIndex с нуля)
func (c *DifficultyConfig) QuestionCountForRound(roundIndex int) int {
	return c.BaseQuestionCount + roundIndex*c.QuestionsPerRound
}

// EffectiveChance вычисляет вероятность правильного ответа CPU с учётом сложности
func (c *DifficultyConfig) EffectiveChance(skill float64, difficulty int) float64 {
	return skill * (1 - float64(difficulty-1)*c.SkillDecayPerLevel)
}
