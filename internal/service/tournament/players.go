package tournament

import (
	"fmt"

	"github.com/yourusername/quiz-tournament/internal/domain/entity"
)

var cpuBaseNames = []string{
	"A.Kova", "B.Rossi", "C.Smith", "D.NadalFan", "E.Muller", "F.Ito", "G.Perez", "H.Lee",
	"I.Kim", "J.Ochoa", "K.Popov", "L.Garcia", "M.Santos", "N.Harris", "O.Zhou",
}

const (
	minCPUSkill = 0.45
	maxCPUSkill = 0.95
)

// GeneratePlayers создает n участников. Игрок-человек всегда стоит на позиции 0.
func GeneratePlayers(rng Rand, n int) []*entity.Player {
	players := make([]*entity.Player, n)
	for i := 0; i < n; i++ {
		if i == entity.HumanPlayerID {
			players[i] = &entity.Player{
				ID:    entity.HumanPlayerID,
				Name:  entity.HumanPlayerName,
				Skill: entity.HumanPlayerSkill,
			}
			continue
		}
		players[i] = &entity.Player{
			ID:    i,
			Name:  fmt.Sprintf("%s #%d", cpuBaseNames[(i-1)%len(cpuBaseNames)], i),
			Skill: minCPUSkill + rng.Float64()*(maxCPUSkill-minCPUSkill),
		}
	}
	return players
}
