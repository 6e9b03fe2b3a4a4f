package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/persistence"
	"github.com/talgya/hearthstead/internal/world"
)

// wellWater is how much water one use of a well yields.
const wellWater = 3

// campfireSpacing keeps campfires at least this many tiles apart.
const campfireSpacing = 3

// buildable reports whether p may place a structure where they stand.
func (r *Room) buildable(p *world.Player) bool {
	return !r.st.BlockedByOtherPlot(p.X, p.Y, p.StableID, r.cfg.Plots.Size)
}

// place deducts cost and registers a new structure of kind at the
// player's position, writing it through to the store.
func (r *Room) place(p *world.Player, kind economy.StructureKind, cost map[economy.ItemID]int) bool {
	if !r.st.TakeAll(p, cost) {
		return false
	}
	s := &world.Structure{
		ID:      fmt.Sprintf("%s_%s", kind, uuid.NewString()),
		Kind:    kind,
		OwnerID: p.StableID,
		X:       p.X,
		Y:       p.Y,
	}
	r.st.AddStructure(s)
	r.saveStructure(s)
	slog.Debug("structure placed", "kind", kind, "id", s.ID, "owner", p.Name)
	return true
}

func (r *Room) placeCampfire(p *world.Player) bool {
	if !r.buildable(p) {
		return false
	}
	if r.st.StructureWithin(economy.StructureCampfire, p.X, p.Y, r.cfg.World.TileSize*campfireSpacing) {
		return false
	}
	return r.place(p, economy.StructureCampfire, map[economy.ItemID]int{
		economy.ItemWood: r.cfg.Costs.CampfireWood,
	})
}

func (r *Room) placeForge(p *world.Player) bool {
	if r.st.Scalars().TechLevel < 1 || !r.buildable(p) {
		return false
	}
	return r.place(p, economy.StructureForge, map[economy.ItemID]int{
		economy.ItemStone: r.cfg.Costs.ForgeStone,
		economy.ItemWood:  r.cfg.Costs.ForgeWood,
	})
}

func (r *Room) placeChest(p *world.Player) bool {
	if !r.buildable(p) || r.st.ChestOf(p.StableID) != nil {
		return false
	}
	return r.place(p, economy.StructureChest, map[economy.ItemID]int{
		economy.ItemWood: r.cfg.Costs.ChestWood,
	})
}

func (r *Room) placeBlastFurnace(p *world.Player) bool {
	if r.st.Scalars().TechLevel < 2 || !r.buildable(p) {
		return false
	}
	return r.place(p, economy.StructureBlastFurnace, map[economy.ItemID]int{
		economy.ItemStone: r.cfg.Costs.BlastFurnaceStone,
		economy.ItemWood:  r.cfg.Costs.BlastFurnaceWood,
	})
}

func (r *Room) placeWaterWell(p *world.Player) bool {
	if !r.buildable(p) {
		return false
	}
	return r.place(p, economy.StructureWaterWell, map[economy.ItemID]int{
		economy.ItemStone: r.cfg.Costs.WellStone,
		economy.ItemWood:  r.cfg.Costs.WellWood,
	})
}

// ownChest returns the player's chest if it is within facility range.
func (r *Room) ownChest(p *world.Player) *world.Structure {
	c := r.st.ChestOf(p.StableID)
	if c == nil || p.DistanceTo(c.X, c.Y) > r.facilityRange() {
		return nil
	}
	return c
}

func (r *Room) chestDeposit(p *world.Player, item economy.ItemID, qty int) bool {
	c := r.ownChest(p)
	if c == nil {
		return false
	}
	n := min(p.Inventory.Count(item), qty)
	if n <= 0 || !r.st.Take(p, item, n) {
		return false
	}
	r.st.StoreInChest(c, item, n)
	r.saveStructure(c)
	return true
}

func (r *Room) chestWithdraw(p *world.Player, item economy.ItemID, qty int) bool {
	c := r.ownChest(p)
	if c == nil {
		return false
	}
	n := min(c.Inventory.Count(item), qty)
	if n <= 0 || !r.st.TakeFromChest(c, item, n) {
		return false
	}
	r.st.Give(p, item, n)
	r.saveStructure(c)
	return true
}

func (r *Room) useWell(p *world.Player, wellID string) bool {
	w := r.st.Structure(economy.StructureWaterWell, wellID)
	if w == nil || p.DistanceTo(w.X, w.Y) > r.facilityRange() {
		return false
	}
	r.st.Give(p, economy.ItemWater, wellWater)
	return true
}

// demolish tears down one of the player's own structures and refunds part
// of its cost. A chest's contents are lost.
func (r *Room) demolish(p *world.Player, kind economy.StructureKind, id string) bool {
	s := r.st.Structure(kind, id)
	if s == nil || s.OwnerID != p.StableID {
		return false
	}
	if p.DistanceTo(s.X, s.Y) > r.cfg.World.GatherRange*3 {
		return false
	}
	r.st.RemoveStructure(kind, id)
	if err := r.store.DeleteStructure(kind, id); err != nil {
		slog.Error("delete structure", "kind", kind, "id", id, "error", err)
	}
	for item, qty := range economy.DemolishRefunds[kind] {
		r.st.Give(p, item, qty)
	}
	return true
}

// buyPlot sells the player a plot centred where they stand. The price goes
// to the mayor, or nowhere while the NPC mayor holds office.
func (r *Room) buyPlot(p *world.Player) bool {
	price := r.cfg.Plots.Price
	if p.Coins < price {
		return false
	}
	if r.st.PlotWithin(p.X, p.Y, r.cfg.Plots.MinDistance) {
		return false
	}
	r.st.AddCoins(p, -price)

	if mayor := r.st.Scalars().MayorID; mayor != world.NPCMayorID {
		r.payStable(mayor, price)
	}

	plot := &world.Plot{
		ID:        "plot_" + uuid.NewString(),
		OwnerID:   p.StableID,
		OwnerName: p.Name,
		X:         p.X,
		Y:         p.Y,
	}
	r.st.AddPlot(plot)
	if err := r.store.SavePlot(persistence.PlotRecord{
		ID: plot.ID, OwnerUUID: plot.OwnerID, OwnerName: plot.OwnerName, X: plot.X, Y: plot.Y,
	}); err != nil {
		slog.Error("save plot", "id", plot.ID, "error", err)
	}
	r.EmitEvent("plot", fmt.Sprintf("%s bought a plot at (%.0f, %.0f)", p.Name, p.X, p.Y))
	return true
}

// payStable credits coins to a stable id: the live player when online
// (humans and AI alike), otherwise the stored record.
func (r *Room) payStable(stableID string, coins int) {
	if q := r.st.PlayerByStable(stableID); q != nil {
		r.st.AddCoins(q, coins)
		return
	}
	rec, err := r.store.GetPlayer(stableID)
	if err != nil {
		slog.Error("load offline player", "uuid", stableID, "error", err)
		return
	}
	if rec == nil {
		slog.Warn("payment to unknown player dropped", "uuid", stableID, "coins", coins)
		return
	}
	rec.Coins += coins
	if err := r.store.SavePlayer(rec); err != nil {
		slog.Error("credit offline player", "uuid", stableID, "error", err)
	}
}

func (r *Room) saveStructure(s *world.Structure) {
	rec := persistence.StructureRecord{
		ID:        s.ID,
		Kind:      s.Kind,
		OwnerUUID: s.OwnerID,
		X:         s.X,
		Y:         s.Y,
	}
	if s.Inventory != nil {
		rec.Inventory = make(map[economy.ItemID]int, len(s.Inventory))
		for _, id := range s.Inventory.Items() {
			rec.Inventory[id] = s.Inventory.Count(id)
		}
	}
	if err := r.store.SaveStructure(rec); err != nil {
		slog.Error("save structure", "kind", s.Kind, "id", s.ID, "error", err)
	}
}
