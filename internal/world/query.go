package world

import (
	"math"

	"github.com/talgya/hearthstead/internal/economy"
)

// NearestResource returns the closest non-depleted node whose kind passes
// match (nil matches every kind), or nil.
func (st *State) NearestResource(x, y float64, match func(economy.ResourceKind) bool) *Resource {
	var best *Resource
	bestD := math.Inf(1)
	for _, r := range st.resources {
		if r.Depleted || (match != nil && !match(r.Kind)) {
			continue
		}
		d := Distance(x, y, r.X, r.Y)
		if d < bestD || (d == bestD && best != nil && r.ID < best.ID) {
			best, bestD = r, d
		}
	}
	return best
}

// OfKind is a NearestResource matcher for a single kind.
func OfKind(kind economy.ResourceKind) func(economy.ResourceKind) bool {
	return func(k economy.ResourceKind) bool { return k == kind }
}

// NearestStructure returns the closest building of a kind, or nil.
func (st *State) NearestStructure(kind economy.StructureKind, x, y float64) *Structure {
	var best *Structure
	bestD := math.Inf(1)
	for _, s := range st.structures[kind] {
		d := Distance(x, y, s.X, s.Y)
		if d < bestD || (d == bestD && best != nil && s.ID < best.ID) {
			best, bestD = s, d
		}
	}
	return best
}

// StructureWithin reports whether a building of kind lies closer than dist.
func (st *State) StructureWithin(kind economy.StructureKind, x, y, dist float64) bool {
	s := st.NearestStructure(kind, x, y)
	return s != nil && Distance(x, y, s.X, s.Y) < dist
}

// CheapestListing returns the lowest-priced listing passing ok, ties broken
// by id, or nil.
func (st *State) CheapestListing(ok func(*Listing) bool) *Listing {
	var best *Listing
	for _, l := range st.listings {
		if !ok(l) {
			continue
		}
		if best == nil || l.PricePerUnit < best.PricePerUnit ||
			(l.PricePerUnit == best.PricePerUnit && l.ID < best.ID) {
			best = l
		}
	}
	return best
}

// RichestHuman returns the human with the most coins strictly above min,
// ties broken by stable id, or nil.
func (st *State) RichestHuman(min int) *Player {
	var best *Player
	for _, p := range st.players {
		if p.IsAI || p.Coins <= min {
			continue
		}
		if best == nil || p.Coins > best.Coins ||
			(p.Coins == best.Coins && p.StableID < best.StableID) {
			best = p
		}
	}
	return best
}
