package tournament

import (
	"fmt"
	"math"

	"github.com/yourusername/quiz-tournament/internal/domain/entity"
)

// humanMatch - состояние матча с участием человека: AwaitingAnswer(index, correct).
// Вопросы показываются по одному, следующий появляется только после ответа на текущий.
type humanMatch struct {
	ref       MatchRef
	human     *entity.Player
	opponent  *entity.Player
	questions []entity.Question
	index     int
	correct   int
}

func newHumanMatch(ref MatchRef, questions []entity.Question) (*humanMatch, error) {
	a, b, err := ref.Match.Players()
	if err != nil {
		return nil, err
	}
	hm := &humanMatch{ref: ref, questions: questions}
	if a.IsHuman() {
		hm.human, hm.opponent = a, b
	} else {
		hm.human, hm.opponent = b, a
	}
	return hm, nil
}

func (hm *humanMatch) total() int {
	return len(hm.questions)
}

// done сообщает, что на все вопросы уже ответили
func (hm *humanMatch) done() bool {
	return hm.index >= len(hm.questions)
}

// prompt возвращает текущий вопрос без правильного ответа
func (hm *humanMatch) prompt() *QuestionPrompt {
	if hm.done() {
		return nil
	}
	q := hm.questions[hm.index]
	choices := make([]string, len(q.Choices))
	copy(choices, q.Choices)
	return &QuestionPrompt{
		QuestionID: q.ID,
		Number:     hm.index + 1,
		Total:      hm.total(),
		Difficulty: q.Difficulty,
		Text:       q.Question,
		Choices:    choices,
	}
}

// progress - "вопрос min(index+1, total) из total"
func (hm *humanMatch) progress() Progress {
	return Progress{Current: min(hm.index+1, hm.total()), Total: hm.total()}
}

// answer засчитывает выбор и переходит к следующему вопросу.
// Недопустимый индекс не меняет состояние.
func (hm *humanMatch) answer(choice int) (bool, error) {
	if hm.done() {
		return false, ErrNoActiveQuestion
	}
	q := &hm.questions[hm.index]
	if !q.IsValidChoice(choice) {
		return false, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidChoice, choice, q.ChoicesCount())
	}
	correct := q.IsCorrect(choice)
	if correct {
		hm.correct++
	}
	hm.index++
	return correct, nil
}

func (hm *humanMatch) pct() float64 {
	return Fraction(hm.correct, hm.total())
}

// outcome возвращает победителя и строку итога
func (hm *humanMatch) outcome() (*entity.Player, Score, string) {
	pct := hm.pct()
	winner := hm.opponent
	verdict := "ELIMINATED"
	if Qualifies(pct) {
		winner = hm.human
		verdict = "QUALIFIED"
	}
	score := Score{PlayerID: hm.human.ID, Correct: hm.correct, Total: hm.total(), Pct: pct}
	summary := fmt.Sprintf("%s scored %d%% (%d/%d) - %s", hm.human.Name, percent(pct), hm.correct, hm.total(), verdict)
	return winner, score, summary
}

// percent округляет долю до целого процента (половина от нуля)
func percent(pct float64) int {
	return int(math.Round(pct * 100))
}
