// Agent spawning: the fixed AI roster, their roles and starting economy.
package agents

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/hearthstead/internal/world"
)

var rosterNames = []string{
	"Alice", "Bob", "Charlie", "Diana", "Erik",
	"Fiona", "George", "Hannah", "Ivan", "Julia",
	"Karl", "Luna", "Marco", "Nina", "Oscar",
}

// roleForSlot maps a spawn index to its role: four gatherers, three cooks,
// three farmers, traders after that.
func roleForSlot(i int) Role {
	switch {
	case i < 4:
		return RoleGatherer
	case i < 7:
		return RoleCook
	case i < 10:
		return RoleFarmer
	default:
		return RoleTrader
	}
}

func nameForSlot(i int) string {
	if i < len(rosterNames) {
		return rosterNames[i]
	}
	return fmt.Sprintf("%s %d", rosterNames[i%len(rosterNames)], i/len(rosterNames)+1)
}

// Manager owns the roster and runs every agent once per tick.
type Manager struct {
	room   Room
	cfg    Config
	rng    *rand.Rand
	agents []*Agent
}

// NewManager creates an empty manager. rng must not be shared with another
// goroutine.
func NewManager(room Room, cfg Config, rng *rand.Rand) *Manager {
	return &Manager{room: room, cfg: cfg, rng: rng}
}

// SpawnAll adds the configured number of AI players to the world. AI ids
// double as stable ids so listings survive a restart.
func (m *Manager) SpawnAll() {
	st := m.room.State()
	now := m.room.Now()
	w := m.cfg.WorldSize

	for i := 0; i < m.cfg.Count; i++ {
		id := fmt.Sprintf("ai_%d", i)
		p := world.NewPlayer(id, id, nameForSlot(i))
		p.IsAI = true
		p.X = 200 + m.rng.Float64()*(w-400)
		p.Y = 200 + m.rng.Float64()*(w-400)
		p.Coins = 5 + m.rng.Intn(20)
		p.Hunger = m.cfg.HungerMax * (0.4 + m.rng.Float64()*0.6)
		st.AddPlayer(p)

		m.agents = append(m.agents, &Agent{
			ID:           id,
			Name:         p.Name,
			Role:         roleForSlot(i),
			Activity:     Wandering,
			TargetX:      p.X,
			TargetY:      p.Y,
			NextDecision: now + int64(m.rng.Float64()*3000),
			TargetSetAt:  now,
		})
	}
	slog.Info("ai players spawned", "count", m.cfg.Count)
}

// Agents returns copies of every agent's decision state.
func (m *Manager) Agents() []Agent {
	out := make([]Agent, len(m.agents))
	for i, a := range m.agents {
		out[i] = *a
	}
	return out
}
