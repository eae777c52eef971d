package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlayer_IsHuman(t *testing.T) {
	human := &Player{ID: HumanPlayerID, Name: HumanPlayerName, Skill: HumanPlayerSkill}
	cpu := &Player{ID: 3, Name: "C.Smith #3", Skill: 0.7}
	var missing *Player

	assert.True(t, human.IsHuman())
	assert.False(t, cpu.IsHuman())
	assert.False(t, missing.IsHuman(), "nil не может быть человеком")
}
