// Governance: tech progression and periodic mayor elections.
package engine

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/protocol"
	"github.com/talgya/hearthstead/internal/world"
)

// checkTech advances the world's tech level when a threshold is crossed.
// Each advance fires once; the level never goes down.
func (r *Room) checkTech() {
	s := r.st.Scalars()
	next := s.TechLevel
	switch {
	case s.TechLevel == 0 && s.TotalGathers >= r.cfg.Tech.IronGatherThreshold:
		next = 1
	case s.TechLevel == 1 && s.TotalIronSmelted >= r.cfg.Tech.SteelSmeltThreshold:
		next = 2
	default:
		return
	}

	r.st.UpdateScalars(func(s *world.Scalars) { s.TechLevel = next })
	if err := r.store.SetWorldState(keyTechLevel, strconv.Itoa(next)); err != nil {
		slog.Error("persist tech level", "error", err)
	}

	name := economy.TechName(next)
	slog.Info("tech advanced", "level", next, "name", name)
	r.broadcast(protocol.TechAdvance{Level: next, Name: name})
	r.EmitEvent("tech", fmt.Sprintf("The world has entered the %s", name))
}

// tickElection runs an election on the first tick of every IntervalDays-th
// game day. Day zero never holds one.
func (r *Room) tickElection() {
	s := r.st.Scalars()
	day := s.GameTime / r.cfg.World.MsPerGameDay
	if day == 0 || day <= s.LastElectionDay || day%r.cfg.Election.IntervalDays != 0 {
		return
	}
	r.st.UpdateScalars(func(s *world.Scalars) { s.LastElectionDay = day })
	if err := r.store.SetWorldState(keyLastElectionDay, strconv.FormatInt(day, 10)); err != nil {
		slog.Error("persist election day", "error", err)
	}
	r.runElection(day)
}

// runElection installs the richest online human with more than MinCoins.
// With nobody qualifying the office falls back to the NPC mayor.
func (r *Room) runElection(day int64) {
	current := r.st.Scalars().MayorID

	winner := r.st.RichestHuman(r.cfg.Election.MinCoins)
	switch {
	case winner != nil && winner.StableID != current:
		r.installMayor(winner.StableID, winner.Name)
		slog.Info("mayor elected", "name", winner.Name, "coins", winner.Coins, "day", day)
		r.broadcast(protocol.MayorElected{Name: winner.Name})
		r.EmitEvent("election", fmt.Sprintf("%s was elected mayor on day %d", winner.Name, day))
	case winner == nil && current != world.NPCMayorID:
		r.installMayor(world.NPCMayorID, world.NPCMayorName)
		slog.Info("mayor office reverted to npc", "day", day)
	}
}

func (r *Room) installMayor(id, name string) {
	r.st.UpdateScalars(func(s *world.Scalars) {
		s.MayorID = id
		s.MayorName = name
	})
	if err := r.store.SetWorldStates(map[string]string{
		keyMayorUUID: id,
		keyMayorName: name,
	}); err != nil {
		slog.Error("persist mayor", "error", err)
	}
}
