package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/hearthstead/internal/persistence"
	"github.com/talgya/hearthstead/internal/protocol"
	"github.com/talgya/hearthstead/internal/world"
)

// tickHunger drains every player and starves those who hit zero.
func (r *Room) tickHunger(deltaMs int64) {
	drain := r.cfg.World.HungerDrainPerMs * float64(deltaMs)
	if drain <= 0 {
		return
	}
	for _, p := range r.st.Players() {
		if h := p.Hunger - drain; h > 0 {
			r.st.SetHunger(p, h)
			continue
		}
		r.starve(p)
	}
}

// starve wipes a player's economy and respawns them with a full bar.
// A human's saved record is cleared at once so a disconnect cannot undo it.
func (r *Room) starve(p *world.Player) {
	if !p.IsAI {
		if err := r.store.SavePlayer(&persistence.PlayerRecord{UUID: p.StableID, Name: p.Name}); err != nil {
			slog.Error("clear starved player", "uuid", p.StableID, "error", err)
		}
	}
	r.cancelGather(p.ID)
	r.st.ResetEconomy(p, r.cfg.World.HungerMax)
	x, y := r.spawnPoint()
	r.st.MovePlayer(p, x, y)

	slog.Info("player starved", "name", p.Name, "ai", p.IsAI)
	r.broadcast(protocol.PlayerDied{PlayerID: p.ID})
	r.EmitEvent("death", fmt.Sprintf("%s starved and lost everything", p.Name))
}
