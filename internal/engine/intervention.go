package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/hearthstead/internal/economy"
)

// Provision gives items to an online player. Used by operators to make
// good on lost goods.
func (r *Room) Provision(stableID string, item economy.ItemID, qty int) (string, error) {
	if _, ok := economy.Items[item]; !ok {
		return "", fmt.Errorf("unknown item %q", item)
	}
	if qty <= 0 {
		return "", fmt.Errorf("quantity must be positive, got %d", qty)
	}
	p := r.st.PlayerByStable(stableID)
	if p == nil {
		return "", fmt.Errorf("player %q is not online", stableID)
	}
	r.st.Give(p, item, qty)

	desc := fmt.Sprintf("A supply cart delivers %d %s to %s", qty, economy.Items[item].Name, p.Name)
	r.EmitEvent("admin", desc)
	slog.Info("provision intervention", "player", p.Name, "item", item, "quantity", qty)
	return desc, nil
}

// Replenish makes every node awaiting respawn gatherable now. Nodes held
// by an in-flight gather are untouched.
func (r *Room) Replenish() (string, error) {
	ids := r.sched.DueRespawns(math.MaxInt64)
	for _, id := range ids {
		if res := r.st.Resource(id); res != nil {
			r.st.SetDepleted(res, false)
		}
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("no resources awaiting respawn")
	}

	desc := fmt.Sprintf("A fair wind regrows %d resource nodes", len(ids))
	r.EmitEvent("admin", desc)
	slog.Info("replenish intervention", "nodes", len(ids))
	return desc, nil
}

// ForceElection runs an election immediately regardless of the calendar.
// The last election day is not advanced.
func (r *Room) ForceElection() string {
	day := r.st.Scalars().GameTime / r.cfg.World.MsPerGameDay
	r.runElection(day)
	s := r.st.Scalars()
	slog.Info("election intervention", "mayor", s.MayorName)
	return fmt.Sprintf("%s holds the mayor's office", s.MayorName)
}
