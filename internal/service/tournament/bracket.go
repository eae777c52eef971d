package tournament

import (
	"fmt"

	"github.com/yourusername/quiz-tournament/internal/domain/entity"
)

// Slot - позиция участника в матче: либо известный игрок, либо
// заглушка "победитель матча X", которую нельзя разыгрывать.
type Slot struct {
	player *entity.Player
	label  string
}

// Resolved создает слот с известным игроком
func Resolved(p *entity.Player) Slot {
	return Slot{player: p}
}

// Unresolved создает слот-заглушку
func Unresolved(label string) Slot {
	return Slot{label: label}
}

// Player возвращает игрока слота и признак того, что слот разрешён
func (s Slot) Player() (*entity.Player, bool) {
	return s.player, s.player != nil
}

func (s Slot) IsResolved() bool {
	return s.player != nil
}

// Label возвращает имя игрока или подпись заглушки
func (s Slot) Label() string {
	if s.player != nil {
		return s.player.Name
	}
	return s.label
}

// Match - матч сетки. Winner равен nil, пока матч не сыгран.
type Match struct {
	A      Slot
	B      Slot
	Winner *entity.Player
}

// Players возвращает обоих участников; матч с неразрешённым слотом играть нельзя
func (m *Match) Players() (*entity.Player, *entity.Player, error) {
	a, okA := m.A.Player()
	b, okB := m.B.Player()
	if !okA || !okB {
		return nil, nil, ErrMatchNotPlayable
	}
	return a, b, nil
}

func (m *Match) IsResolved() bool {
	return m.Winner != nil
}

// HasHuman проверяет, играет ли в матче человек (в слоте A или B)
func (m *Match) HasHuman() bool {
	a, _ := m.A.Player()
	b, _ := m.B.Player()
	return a.IsHuman() || b.IsHuman()
}

func (m *Match) isParticipant(p *entity.Player) bool {
	a, _ := m.A.Player()
	b, _ := m.B.Player()
	return p != nil && (p == a || p == b)
}

// Round - упорядоченный список матчей
type Round struct {
	Matches []*Match
}

// Bracket - сетка турнира на выбывание
type Bracket struct {
	Rounds []*Round
}

// MatchRef указывает на матч в сетке
type MatchRef struct {
	RoundIndex int
	MatchIndex int
	Match      *Match
}

func isPowerOfTwo(n int) bool {
	return n >= 2 && n&(n-1) == 0
}

// BuildBracket строит сетку: соседние игроки образуют пары первого раунда,
// в следующих раундах слоты заполняются заглушками до появления победителей.
// Количество игроков должно быть степенью двойки.
func BuildBracket(players []*entity.Player) (*Bracket, error) {
	if !isPowerOfTwo(len(players)) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, len(players))
	}

	slots := make([]Slot, len(players))
	for i, p := range players {
		slots[i] = Resolved(p)
	}

	bracket := &Bracket{}
	for len(slots) > 1 {
		roundNumber := len(bracket.Rounds) + 1
		round := &Round{Matches: make([]*Match, 0, len(slots)/2)}
		next := make([]Slot, 0, len(slots)/2)

		for i := 0; i < len(slots); i += 2 {
			round.Matches = append(round.Matches, &Match{A: slots[i], B: slots[i+1]})
			next = append(next, Unresolved(fmt.Sprintf("Winner R%d-M%d", roundNumber, i/2+1)))
		}

		bracket.Rounds = append(bracket.Rounds, round)
		slots = next
	}
	return bracket, nil
}

// FindNextMatch возвращает первый несыгранный матч (раунды по порядку, матчи по порядку)
func (b *Bracket) FindNextMatch() (MatchRef, bool) {
	for r, round := range b.Rounds {
		for m, match := range round.Matches {
			if !match.IsResolved() {
				return MatchRef{RoundIndex: r, MatchIndex: m, Match: match}, true
			}
		}
	}
	return MatchRef{}, false
}

// Match возвращает матч по индексам
func (b *Bracket) Match(roundIndex, matchIndex int) (*Match, error) {
	if roundIndex < 0 || roundIndex >= len(b.Rounds) {
		return nil, fmt.Errorf("%w: round %d", ErrMatchOutOfRange, roundIndex)
	}
	matches := b.Rounds[roundIndex].Matches
	if matchIndex < 0 || matchIndex >= len(matches) {
		return nil, fmt.Errorf("%w: round %d match %d", ErrMatchOutOfRange, roundIndex, matchIndex)
	}
	return matches[matchIndex], nil
}

// RecordWinner фиксирует победителя и переносит его в нужный слот следующего раунда:
// чётный матч заполняет слот A, нечётный - слот B матча matchIndex/2.
func (b *Bracket) RecordWinner(roundIndex, matchIndex int, winner *entity.Player) error {
	match, err := b.Match(roundIndex, matchIndex)
	if err != nil {
		return err
	}
	if match.IsResolved() {
		return ErrMatchAlreadyResolved
	}
	if _, _, err := match.Players(); err != nil {
		return err
	}
	if !match.isParticipant(winner) {
		return ErrNotParticipant
	}

	match.Winner = winner

	nextRound := roundIndex + 1
	if nextRound < len(b.Rounds) {
		nextMatch := b.Rounds[nextRound].Matches[matchIndex/2]
		if matchIndex%2 == 0 {
			nextMatch.A = Resolved(winner)
		} else {
			nextMatch.B = Resolved(winner)
		}
	}
	return nil
}

// Champion возвращает победителя финала. Если финал не сыгран,
// возвращается участник слота A, затем B; nil для пустой сетки.
func (b *Bracket) Champion() *entity.Player {
	if len(b.Rounds) == 0 || len(b.Rounds[len(b.Rounds)-1].Matches) == 0 {
		return nil
	}
	final := b.Rounds[len(b.Rounds)-1].Matches[0]
	if final.Winner != nil {
		return final.Winner
	}
	if p, ok := final.A.Player(); ok {
		return p
	}
	if p, ok := final.B.Player(); ok {
		return p
	}
	return nil
}

// IsComplete проверяет, сыграны ли все матчи
func (b *Bracket) IsComplete() bool {
	_, found := b.FindNextMatch()
	return !found
}

// Snapshot возвращает копию сетки для отрисовки
func (b *Bracket) Snapshot() BracketSnapshot {
	snapshot := BracketSnapshot{Rounds: make([]RoundView, len(b.Rounds))}
	for r, round := range b.Rounds {
		view := RoundView{Number: r + 1, Matches: make([]MatchView, len(round.Matches))}
		for m, match := range round.Matches {
			view.Matches[m] = newMatchView(r, m, match)
		}
		snapshot.Rounds[r] = view
	}
	return snapshot
}

func newMatchView(roundIndex, matchIndex int, match *Match) MatchView {
	view := MatchView{
		RoundIndex: roundIndex,
		MatchIndex: matchIndex,
		A:          newSlotView(match.A),
		B:          newSlotView(match.B),
	}
	if match.Winner != nil {
		id := match.Winner.ID
		view.WinnerID = &id
		view.WinnerName = match.Winner.Name
	}
	return view
}

func newSlotView(s Slot) SlotView {
	view := SlotView{Name: s.Label()}
	if p, ok := s.Player(); ok {
		id := p.ID
		view.PlayerID = &id
		view.Resolved = true
		view.Human = p.IsHuman()
	}
	return view
}
