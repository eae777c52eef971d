package tournament

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/quiz-tournament/internal/domain/entity"
)

func TestGeneratePlayers_HumanAtIndexZero(t *testing.T) {
	players := GeneratePlayers(NewRand(1), 8)
	require.Len(t, players, 8)

	human := players[0]
	assert.True(t, human.IsHuman())
	assert.Equal(t, entity.HumanPlayerName, human.Name)
	assert.Equal(t, entity.HumanPlayerSkill, human.Skill)

	for i, p := range players[1:] {
		assert.False(t, p.IsHuman(), "игрок %d не должен быть человеком", i+1)
		assert.Equal(t, i+1, p.ID)
		assert.GreaterOrEqual(t, p.Skill, minCPUSkill)
		assert.Less(t, p.Skill, maxCPUSkill)
	}
}

func TestGeneratePlayers_Names(t *testing.T) {
	players := GeneratePlayers(fixedRand{value: 0}, 17)

	assert.Equal(t, "A.Kova #1", players[1].Name)
	assert.Equal(t, "O.Zhou #15", players[15].Name)
	assert.Equal(t, "A.Kova #16", players[16].Name, "список имён повторяется по кругу")
	assert.Equal(t, minCPUSkill, players[1].Skill)
}

func TestGeneratePlayers_SeedIsDeterministic(t *testing.T) {
	first := GeneratePlayers(NewRand(77), 16)
	second := GeneratePlayers(NewRand(77), 16)
	for i := range first {
		assert.Equal(t, *first[i], *second[i])
	}
}

func TestPlayer_IsHumanNilSafe(t *testing.T) {
	var p *entity.Player
	assert.False(t, p.IsHuman())
}
