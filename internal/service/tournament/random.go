package tournament

import (
	"math/rand/v2"
	"time"
)

// Rand - источник случайности, который явно передаётся в сэмплер,
// генератор игроков и симуляцию CPU. *rand.Rand из math/rand/v2 ему удовлетворяет.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// NewRand создает детерминированный генератор для заданного seed
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewSeed возвращает seed для турнира: фиксированный, если он задан, иначе от текущего времени
func NewSeed(fixed uint64) uint64 {
	if fixed != 0 {
		return fixed
	}
	return uint64(time.Now().UnixNano())
}
