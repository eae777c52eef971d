package tournament

// Side - сторона матча
type Side int

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	if s == SideB {
		return "b"
	}
	return "a"
}

// Qualifies проверяет, проходит ли доля правильных ответов порог квалификации
func Qualifies(pct float64) bool {
	return pct > QualificationThreshold
}

// ResolveCPUMatch определяет победителя матча CPU против CPU по долям правильных ответов.
// Если порог прошёл ровно один, побеждает он; иначе побеждает больший процент,
// при равенстве побеждает сторона A.
func ResolveCPUMatch(pctA, pctB float64) Side {
	qualifiedA, qualifiedB := Qualifies(pctA), Qualifies(pctB)
	switch {
	case qualifiedA && !qualifiedB:
		return SideA
	case qualifiedB && !qualifiedA:
		return SideB
	}
	if pctA >= pctB {
		return SideA
	}
	return SideB
}

// SimulateCorrect разыгрывает n независимых испытаний Бернулли с вероятностью p
func SimulateCorrect(rng Rand, n int, p float64) int {
	correct := 0
	for i := 0; i < n; i++ {
		if rng.Float64() < p {
			correct++
		}
	}
	return correct
}

// Fraction возвращает долю правильных ответов; для пустого матча 0
func Fraction(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total)
}
