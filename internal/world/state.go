package world

import (
	"sort"

	"github.com/talgya/hearthstead/internal/economy"
)

// maxTombstones bounds the removal log kept for diffs.
const maxTombstones = 4096

// Tombstone records an entity removal for diff consumers.
type Tombstone struct {
	Kind string `json:"kind"` // "player", "resource", "plot", "listing" or a structure kind
	ID   string `json:"id"`
	Rev  uint64 `json:"rev"`
}

// State is the room's entity registry. It is not safe for concurrent use;
// the owning event loop serialises all access.
//
// Every mutation goes through a State method, which stamps the entity with
// a fresh revision so ChangedSince can report it.
type State struct {
	rev uint64

	players  map[string]*Player
	byStable map[string]string // stable id → session id

	resources  map[string]*Resource
	structures map[economy.StructureKind]map[string]*Structure
	plots      map[string]*Plot
	listings   map[string]*Listing
	scalars    Scalars

	tombstones []Tombstone
	horizon    uint64 // revisions at or below this may have lost tombstones
}

// NewState returns an empty registry with the NPC mayor installed.
func NewState() *State {
	st := &State{
		players:    make(map[string]*Player),
		byStable:   make(map[string]string),
		resources:  make(map[string]*Resource),
		structures: make(map[economy.StructureKind]map[string]*Structure),
		plots:      make(map[string]*Plot),
		listings:   make(map[string]*Listing),
		scalars: Scalars{
			MayorID:         NPCMayorID,
			MayorName:       NPCMayorName,
			LastElectionDay: -1,
		},
	}
	for _, k := range economy.StructureKinds {
		st.structures[k] = make(map[string]*Structure)
	}
	return st
}

// Rev returns the latest revision.
func (st *State) Rev() uint64 { return st.rev }

func (st *State) next() uint64 {
	st.rev++
	return st.rev
}

func (st *State) bury(kind, id string) {
	st.tombstones = append(st.tombstones, Tombstone{Kind: kind, ID: id, Rev: st.next()})
	if len(st.tombstones) > maxTombstones {
		drop := len(st.tombstones) / 2
		st.horizon = st.tombstones[drop-1].Rev
		st.tombstones = append([]Tombstone(nil), st.tombstones[drop:]...)
	}
}

// ── Players ───────────────────────────────────────────────────────────

// AddPlayer registers a player under its session id.
func (st *State) AddPlayer(p *Player) {
	if p.Inventory == nil {
		p.Inventory = make(Inventory)
	}
	if p.ToolDurability == nil {
		p.ToolDurability = make(map[economy.ItemID]int)
	}
	p.Rev = st.next()
	st.players[p.ID] = p
	if p.StableID != "" {
		st.byStable[p.StableID] = p.ID
	}
}

// RemovePlayer drops a player from the registry.
func (st *State) RemovePlayer(id string) {
	p, ok := st.players[id]
	if !ok {
		return
	}
	delete(st.players, id)
	if st.byStable[p.StableID] == id {
		delete(st.byStable, p.StableID)
	}
	st.bury("player", id)
}

// Player looks a player up by session id.
func (st *State) Player(id string) *Player { return st.players[id] }

// PlayerByStable looks an online player up by stable id. AI players use
// the same value for both ids.
func (st *State) PlayerByStable(stableID string) *Player {
	if sid, ok := st.byStable[stableID]; ok {
		return st.players[sid]
	}
	return nil
}

// Players returns all players sorted by session id.
func (st *State) Players() []*Player {
	out := make([]*Player, 0, len(st.players))
	for _, p := range st.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HumanCount returns the number of non-AI players.
func (st *State) HumanCount() int {
	n := 0
	for _, p := range st.players {
		if !p.IsAI {
			n++
		}
	}
	return n
}

// MovePlayer sets a player's position.
func (st *State) MovePlayer(p *Player, x, y float64) {
	p.X, p.Y = x, y
	p.Rev = st.next()
}

// SetHunger sets a player's hunger.
func (st *State) SetHunger(p *Player, hunger float64) {
	p.Hunger = hunger
	p.Rev = st.next()
}

// AddCoins adjusts a balance. Callers check affordability; the balance
// never drops below zero.
func (st *State) AddCoins(p *Player, delta int) {
	p.Coins += delta
	if p.Coins < 0 {
		p.Coins = 0
	}
	p.Rev = st.next()
}

// Give adds items to a player's inventory.
func (st *State) Give(p *Player, id economy.ItemID, qty int) {
	if qty <= 0 {
		return
	}
	p.Inventory.add(id, qty)
	p.Rev = st.next()
}

// Take removes qty units of one item, or nothing if fewer are held.
func (st *State) Take(p *Player, id economy.ItemID, qty int) bool {
	if !p.Inventory.remove(id, qty) {
		return false
	}
	p.Rev = st.next()
	return true
}

// TakeAll removes every input or none of them.
func (st *State) TakeAll(p *Player, inputs map[economy.ItemID]int) bool {
	for id, qty := range inputs {
		if p.Inventory.Count(id) < qty {
			return false
		}
	}
	for id, qty := range inputs {
		p.Inventory.remove(id, qty)
	}
	p.Rev = st.next()
	return true
}

// Discard removes an item entirely, including its durability entry.
func (st *State) Discard(p *Player, id economy.ItemID) {
	delete(p.Inventory, id)
	delete(p.ToolDurability, id)
	p.Rev = st.next()
}

// SetDurability records a tool's remaining uses.
func (st *State) SetDurability(p *Player, tool economy.ItemID, uses int) {
	p.ToolDurability[tool] = uses
	p.Rev = st.next()
}

// ResetEconomy clears coins, inventory and durability and sets hunger.
func (st *State) ResetEconomy(p *Player, hunger float64) {
	p.Coins = 0
	p.Hunger = hunger
	p.Inventory = make(Inventory)
	p.ToolDurability = make(map[economy.ItemID]int)
	p.Rev = st.next()
}

// ── Resources ─────────────────────────────────────────────────────────

// AddResource registers a node.
func (st *State) AddResource(r *Resource) {
	r.Rev = st.next()
	st.resources[r.ID] = r
}

// Resource looks a node up by id.
func (st *State) Resource(id string) *Resource { return st.resources[id] }

// Resources returns all nodes sorted by id.
func (st *State) Resources() []*Resource {
	out := make([]*Resource, 0, len(st.resources))
	for _, r := range st.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ResourceCount returns the number of nodes.
func (st *State) ResourceCount() int { return len(st.resources) }

// SetDepleted sets or clears a node's reservation lock.
func (st *State) SetDepleted(r *Resource, depleted bool) {
	if r.Depleted == depleted {
		return
	}
	r.Depleted = depleted
	r.Rev = st.next()
}

// ── Structures ────────────────────────────────────────────────────────

// AddStructure registers a building. Chests always get an inventory.
func (st *State) AddStructure(s *Structure) {
	if s.Kind == economy.StructureChest && s.Inventory == nil {
		s.Inventory = make(Inventory)
	}
	s.Rev = st.next()
	st.structures[s.Kind][s.ID] = s
}

// RemoveStructure drops a building.
func (st *State) RemoveStructure(kind economy.StructureKind, id string) {
	if _, ok := st.structures[kind][id]; !ok {
		return
	}
	delete(st.structures[kind], id)
	st.bury(string(kind), id)
}

// Structure looks a building up by kind and id.
func (st *State) Structure(kind economy.StructureKind, id string) *Structure {
	return st.structures[kind][id]
}

// StructuresOf returns all buildings of a kind sorted by id.
func (st *State) StructuresOf(kind economy.StructureKind) []*Structure {
	m := st.structures[kind]
	out := make([]*Structure, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ChestOf returns the chest owned by a stable id, if any.
func (st *State) ChestOf(ownerID string) *Structure {
	for _, s := range st.structures[economy.StructureChest] {
		if s.OwnerID == ownerID {
			return s
		}
	}
	return nil
}

// StoreInChest adds items to a chest.
func (st *State) StoreInChest(s *Structure, id economy.ItemID, qty int) {
	if qty <= 0 {
		return
	}
	s.Inventory.add(id, qty)
	s.Rev = st.next()
}

// TakeFromChest removes items from a chest, or nothing if too few.
func (st *State) TakeFromChest(s *Structure, id economy.ItemID, qty int) bool {
	if !s.Inventory.remove(id, qty) {
		return false
	}
	s.Rev = st.next()
	return true
}

// ── Land plots ────────────────────────────────────────────────────────

// AddPlot registers a land plot.
func (st *State) AddPlot(p *Plot) {
	p.Rev = st.next()
	st.plots[p.ID] = p
}

// Plots returns all plots sorted by id.
func (st *State) Plots() []*Plot {
	out := make([]*Plot, 0, len(st.plots))
	for _, p := range st.plots {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BlockedByOtherPlot reports whether (x, y) lies inside a plot of side
// size owned by someone other than ownerID.
func (st *State) BlockedByOtherPlot(x, y float64, ownerID string, size float64) bool {
	half := size / 2
	for _, p := range st.plots {
		if p.OwnerID == ownerID {
			continue
		}
		if abs(p.X-x) < half && abs(p.Y-y) < half {
			return true
		}
	}
	return false
}

// PlotWithin reports whether any plot centre lies closer than dist to (x, y).
func (st *State) PlotWithin(x, y, dist float64) bool {
	for _, p := range st.plots {
		if Distance(p.X, p.Y, x, y) < dist {
			return true
		}
	}
	return false
}

// ── Listings ──────────────────────────────────────────────────────────

// AddListing registers a market listing.
func (st *State) AddListing(l *Listing) {
	l.Rev = st.next()
	st.listings[l.ID] = l
}

// Listing looks a listing up by id.
func (st *State) Listing(id string) *Listing { return st.listings[id] }

// RemoveListing drops a listing.
func (st *State) RemoveListing(id string) {
	if _, ok := st.listings[id]; !ok {
		return
	}
	delete(st.listings, id)
	st.bury("listing", id)
}

// SetListingQuantity updates the remaining quantity.
func (st *State) SetListingQuantity(l *Listing, qty int) {
	l.Quantity = qty
	l.Rev = st.next()
}

// Listings returns all listings sorted by id.
func (st *State) Listings() []*Listing {
	out := make([]*Listing, 0, len(st.listings))
	for _, l := range st.listings {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ── Scalars ───────────────────────────────────────────────────────────

// Scalars returns a copy of the world scalars.
func (st *State) Scalars() Scalars { return st.scalars }

// UpdateScalars applies fn to the scalars and stamps them.
func (st *State) UpdateScalars(fn func(s *Scalars)) {
	fn(&st.scalars)
	st.scalars.Rev = st.next()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
