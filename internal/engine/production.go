package engine

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/protocol"
	"github.com/talgya/hearthstead/internal/world"
)

// maxChatRunes caps a chat line after trimming.
const maxChatRunes = 100

// facilityRange is how close a player must stand to use a structure.
func (r *Room) facilityRange() float64 { return r.cfg.World.GatherRange * 2 }

// beginProcess validates facility proximity, deducts inputs atomically and
// schedules the output. A second task of the same kind while one is
// pending is rejected before anything is deducted.
func (r *Room) beginProcess(p *world.Player, kind TaskKind, facility *world.Structure, recipe economy.Recipe) bool {
	if facility == nil || p.DistanceTo(facility.X, facility.Y) > r.facilityRange() {
		return false
	}
	if _, busy := r.sched.Pending(p.ID, kind); busy {
		return false
	}
	if !r.st.TakeAll(p, recipe.Inputs) {
		return false
	}
	return r.sched.Schedule(Task{
		Actor:     p.ID,
		Kind:      kind,
		Target:    facility.ID,
		Output:    recipe.Output,
		OutputQty: recipe.OutputQty,
		Due:       r.now + recipe.TimeMs,
		Lenient:   p.IsAI,
	})
}

func (r *Room) beginCook(p *world.Player, campfireID string, item economy.ItemID) bool {
	recipe, ok := economy.CookRecipes[item]
	if !ok {
		return false
	}
	return r.beginProcess(p, TaskCook, r.st.Structure(economy.StructureCampfire, campfireID), recipe)
}

func (r *Room) beginCookAdvanced(p *world.Player, campfireID, recipeID string) bool {
	recipe, ok := economy.AdvancedCookRecipes[recipeID]
	if !ok {
		return false
	}
	return r.beginProcess(p, TaskCookAdvanced, r.st.Structure(economy.StructureCampfire, campfireID), recipe)
}

func (r *Room) beginSmelt(p *world.Player, forgeID string, item economy.ItemID) bool {
	if r.st.Scalars().TechLevel < 1 {
		return false
	}
	recipe, ok := economy.SmeltRecipes[item]
	if !ok {
		return false
	}
	return r.beginProcess(p, TaskSmelt, r.st.Structure(economy.StructureForge, forgeID), recipe)
}

func (r *Room) beginBlast(p *world.Player, furnaceID, recipeID string) bool {
	if r.st.Scalars().TechLevel < 2 {
		return false
	}
	recipe, ok := economy.BlastRecipes[recipeID]
	if !ok {
		return false
	}
	return r.beginProcess(p, TaskBlast, r.st.Structure(economy.StructureBlastFurnace, furnaceID), recipe)
}

// facilityKind maps a processing task to the structure it runs in.
var facilityKind = map[TaskKind]economy.StructureKind{
	TaskCook:         economy.StructureCampfire,
	TaskCookAdvanced: economy.StructureCampfire,
	TaskSmelt:        economy.StructureForge,
	TaskBlast:        economy.StructureBlastFurnace,
}

// completeProcess credits the output if both the actor and the facility
// are still in the world. Inputs are not refunded when either is gone.
func (r *Room) completeProcess(t Task) {
	p := r.st.Player(t.Actor)
	if p == nil {
		return
	}
	if r.st.Structure(facilityKind[t.Kind], t.Target) == nil {
		slog.Debug("facility gone before completion", "actor", t.Actor, "kind", t.Kind, "facility", t.Target)
		return
	}
	r.st.Give(p, t.Output, t.OutputQty)

	if t.Kind == TaskSmelt && t.Output == economy.ItemIronIngot && !p.IsAI {
		r.st.UpdateScalars(func(s *world.Scalars) { s.TotalIronSmelted++ })
		r.checkTech()
	}
}

// ── Instant actions ───────────────────────────────────────────────────

func (r *Room) move(p *world.Player, x, y float64) {
	r.st.MovePlayer(p, clamp(x, 0, r.cfg.World.Size), clamp(y, 0, r.cfg.World.Size))
}

func (r *Room) eat(p *world.Player, item economy.ItemID) bool {
	def, ok := economy.Items[item]
	if !ok || def.HungerRestore <= 0 {
		return false
	}
	if !r.st.Take(p, item, 1) {
		return false
	}
	r.st.SetHunger(p, min(r.cfg.World.HungerMax, p.Hunger+float64(def.HungerRestore)))
	return true
}

func (r *Room) craft(p *world.Player, recipeID string) bool {
	recipe, ok := economy.CraftRecipes[recipeID]
	if !ok {
		return false
	}
	if !r.st.TakeAll(p, recipe.Inputs) {
		return false
	}
	r.st.Give(p, recipe.Output, recipe.OutputQty)
	return true
}

func (r *Room) chat(p *world.Player, text string) bool {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > maxChatRunes {
		text = strings.TrimSpace(string([]rune(text)[:maxChatRunes]))
	}
	if text == "" {
		return false
	}
	r.broadcast(protocol.ChatMessage{PlayerID: p.ID, PlayerName: p.Name, Text: text})
	return true
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
