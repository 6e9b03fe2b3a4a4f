// Package world provides the live entity registry (players, resource nodes,
// structures, land plots, market listings and world scalars) and resource
// field generation.
package world

import (
	"math"
	"sort"

	"github.com/talgya/hearthstead/internal/economy"
)

// NPCMayorID is the placeholder mayor used when no human qualifies.
const (
	NPCMayorID   = "npc_mayor"
	NPCMayorName = "Mayor"
)

// Inventory maps item kinds to strictly positive quantities. Only State
// mutates it, which keeps zero quantities out.
type Inventory map[economy.ItemID]int

// Count returns the quantity held (0 when absent).
func (inv Inventory) Count(id economy.ItemID) int { return inv[id] }

// Has reports whether at least one unit is held.
func (inv Inventory) Has(id economy.ItemID) bool { return inv[id] > 0 }

// Total returns the sum of all quantities.
func (inv Inventory) Total() int {
	n := 0
	for _, q := range inv {
		n += q
	}
	return n
}

// Items returns held item ids in sorted order.
func (inv Inventory) Items() []economy.ItemID {
	ids := make([]economy.ItemID, 0, len(inv))
	for id := range inv {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (inv Inventory) add(id economy.ItemID, qty int) {
	if qty <= 0 {
		return
	}
	inv[id] += qty
}

// remove takes qty units; it refuses (returns false) rather than going
// negative, and deletes the key when the count reaches zero.
func (inv Inventory) remove(id economy.ItemID, qty int) bool {
	have := inv[id]
	if qty <= 0 || have < qty {
		return false
	}
	if have == qty {
		delete(inv, id)
	} else {
		inv[id] = have - qty
	}
	return true
}

func (inv Inventory) clone() Inventory {
	out := make(Inventory, len(inv))
	for k, v := range inv {
		out[k] = v
	}
	return out
}

// Player is a live human or AI player.
type Player struct {
	ID             string                 `json:"id"`   // session id
	StableID       string                 `json:"uuid"` // survives reconnects
	Name           string                 `json:"name"`
	X              float64                `json:"x"`
	Y              float64                `json:"y"`
	Hunger         float64                `json:"hunger"`
	Coins          int                    `json:"coins"`
	Inventory      Inventory              `json:"inventory"`
	ToolDurability map[economy.ItemID]int `json:"tool_durability"`
	IsAI           bool                   `json:"is_ai"`
	Rev            uint64                 `json:"rev"`
}

// NewPlayer returns a player with empty inventory maps.
func NewPlayer(id, stableID, name string) *Player {
	return &Player{
		ID:             id,
		StableID:       stableID,
		Name:           name,
		Inventory:      make(Inventory),
		ToolDurability: make(map[economy.ItemID]int),
	}
}

func (p *Player) clone() *Player {
	c := *p
	c.Inventory = p.Inventory.clone()
	c.ToolDurability = make(map[economy.ItemID]int, len(p.ToolDurability))
	for k, v := range p.ToolDurability {
		c.ToolDurability[k] = v
	}
	return &c
}

// DistanceTo returns the euclidean distance from the player to (x, y).
func (p *Player) DistanceTo(x, y float64) float64 {
	return Distance(p.X, p.Y, x, y)
}

// Resource is a harvestable node. Depleted doubles as the reservation lock.
type Resource struct {
	ID       string               `json:"id"`
	Kind     economy.ResourceKind `json:"kind"`
	X        float64              `json:"x"`
	Y        float64              `json:"y"`
	Depleted bool                 `json:"depleted"`
	Rev      uint64               `json:"rev"`
}

// Structure is a placed building. Inventory is non-nil only for chests.
type Structure struct {
	ID        string                `json:"id"`
	Kind      economy.StructureKind `json:"kind"`
	OwnerID   string                `json:"owner_id"` // owner's stable id
	X         float64               `json:"x"`
	Y         float64               `json:"y"`
	Inventory Inventory             `json:"inventory,omitempty"`
	Rev       uint64                `json:"rev"`
}

func (s *Structure) clone() *Structure {
	c := *s
	if s.Inventory != nil {
		c.Inventory = s.Inventory.clone()
	}
	return &c
}

// Plot is a purchased square exclusion zone centred on (X, Y).
type Plot struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"owner_id"`
	OwnerName string  `json:"owner_name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rev       uint64  `json:"rev"`
}

// Listing is an open market offer.
type Listing struct {
	ID           string         `json:"id"`
	SellerID     string         `json:"seller_id"` // seller's stable id
	SellerName   string         `json:"seller_name"`
	ItemID       economy.ItemID `json:"item_id"`
	Quantity     int            `json:"quantity"`
	PricePerUnit int            `json:"price_per_unit"`
	Rev          uint64         `json:"rev"`
}

// Scalars are the world-wide values.
type Scalars struct {
	GameTime         int64  `json:"game_time"` // ms
	TechLevel        int    `json:"tech_level"`
	TotalGathers     int    `json:"total_gathers"`
	TotalIronSmelted int    `json:"total_iron_smelted"`
	MayorID          string `json:"mayor_id"`
	MayorName        string `json:"mayor_name"`
	OnlinePlayers    int    `json:"online_players"`
	LastElectionDay  int64  `json:"last_election_day"`
	Rev              uint64 `json:"rev"`
}

// Distance is the euclidean distance between two points.
func Distance(ax, ay, bx, by float64) float64 {
	return math.Hypot(ax-bx, ay-by)
}
