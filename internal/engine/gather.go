package engine

import (
	"math"

	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/world"
)

// completionSlack widens the gather range at completion so small movements
// during the gather do not void it.
const completionSlack = 1.5

// beginGather reserves a node for the player and schedules the harvest.
func (r *Room) beginGather(p *world.Player, nodeID string) bool {
	res := r.st.Resource(nodeID)
	if res == nil || res.Depleted {
		return false
	}
	if p.DistanceTo(res.X, res.Y) > r.cfg.World.GatherRange {
		return false
	}

	r.cancelGather(p.ID)

	def := economy.Resources[res.Kind]
	r.st.SetDepleted(res, true)
	return r.sched.Schedule(Task{
		Actor:   p.ID,
		Kind:    TaskGather,
		Target:  nodeID,
		Due:     r.now + def.GatherMs,
		Lenient: p.IsAI,
	})
}

// cancelGather drops the actor's pending gather and releases its node.
func (r *Room) cancelGather(actor string) {
	t, ok := r.sched.Cancel(actor, TaskGather)
	if !ok {
		return
	}
	if res := r.st.Resource(t.Target); res != nil {
		r.st.SetDepleted(res, false)
	}
}

func (r *Room) completeGather(t Task) {
	res := r.st.Resource(t.Target)
	if res == nil {
		return
	}
	p := r.st.Player(t.Actor)
	if p == nil {
		r.st.SetDepleted(res, false)
		return
	}
	if !t.Lenient && p.DistanceTo(res.X, res.Y) > r.cfg.World.GatherRange*completionSlack {
		r.st.SetDepleted(res, false)
		return
	}

	def := economy.Resources[res.Kind]
	for id, qty := range RollDrops(def, p.Inventory.Has, r.rng.Intn) {
		r.st.Give(p, id, qty)
	}
	r.wearTool(p)

	if !p.IsAI {
		r.st.UpdateScalars(func(s *world.Scalars) { s.TotalGathers++ })
		r.checkTech()
	}
	r.sched.ScheduleRespawn(res.ID, r.now+def.RespawnMs)
}

// RollDrops draws the yield of one harvest. Drops needing a tool the
// gatherer lacks are skipped; each quantity is uniform in [Min, Max] and
// scaled up by the best axe held.
func RollDrops(def economy.ResourceDef, has func(economy.ItemID) bool, intn func(int) int) map[economy.ItemID]int {
	mult := economy.GatherMultiplier(has)
	out := make(map[economy.ItemID]int)
	for _, d := range def.Drops {
		if d.ToolRequired != "" && !has(d.ToolRequired) {
			continue
		}
		qty := d.Min + intn(d.Max-d.Min+1)
		if qty <= 0 {
			continue
		}
		if mult > 1 {
			qty = int(math.Ceil(float64(qty) * mult))
		}
		out[d.Item] += qty
	}
	return out
}

// wearTool takes one use off the first held tool with a durability cap.
func (r *Room) wearTool(p *world.Player) {
	for _, tool := range economy.DurabilityOrder {
		if !p.Inventory.Has(tool) {
			continue
		}
		limit, ok := r.cfg.Tools.Durability[tool]
		if !ok || limit <= 0 {
			continue
		}
		cur, ok := p.ToolDurability[tool]
		if !ok {
			cur = limit
		}
		if cur-1 <= 0 {
			r.st.Discard(p, tool)
		} else {
			r.st.SetDurability(p, tool, cur-1)
		}
		return
	}
}
