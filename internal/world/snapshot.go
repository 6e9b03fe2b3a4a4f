package world

import "github.com/talgya/hearthstead/internal/economy"

// Diff is the set of entity changes after a revision. When Full is set the
// caller's revision predates the tombstone horizon and the diff carries the
// whole state; clients replace rather than patch.
//
// All entities are deep copies and may be read off the loop goroutine.
type Diff struct {
	Rev        uint64       `json:"rev"`
	Full       bool         `json:"full"`
	Players    []*Player    `json:"players,omitempty"`
	Resources  []*Resource  `json:"resources,omitempty"`
	Structures []*Structure `json:"structures,omitempty"`
	Plots      []*Plot      `json:"plots,omitempty"`
	Listings   []*Listing   `json:"listings,omitempty"`
	Scalars    *Scalars     `json:"scalars,omitempty"`
	Removed    []Tombstone  `json:"removed,omitempty"`
}

// Empty reports whether the diff carries nothing.
func (d Diff) Empty() bool {
	return !d.Full && len(d.Players) == 0 && len(d.Resources) == 0 &&
		len(d.Structures) == 0 && len(d.Plots) == 0 && len(d.Listings) == 0 &&
		d.Scalars == nil && len(d.Removed) == 0
}

// Snapshot returns the complete state at the current revision.
func (st *State) Snapshot() Diff {
	return st.collect(0, true)
}

// ChangedSince returns everything stamped after rev, plus removals.
func (st *State) ChangedSince(rev uint64) Diff {
	if rev < st.horizon {
		return st.collect(0, true)
	}
	return st.collect(rev, false)
}

func (st *State) collect(since uint64, full bool) Diff {
	d := Diff{Rev: st.rev, Full: full}

	for _, p := range st.Players() {
		if p.Rev > since {
			d.Players = append(d.Players, p.clone())
		}
	}
	for _, r := range st.Resources() {
		if r.Rev > since {
			c := *r
			d.Resources = append(d.Resources, &c)
		}
	}
	for _, k := range economy.StructureKinds {
		for _, s := range st.StructuresOf(k) {
			if s.Rev > since {
				d.Structures = append(d.Structures, s.clone())
			}
		}
	}
	for _, p := range st.Plots() {
		if p.Rev > since {
			c := *p
			d.Plots = append(d.Plots, &c)
		}
	}
	for _, l := range st.Listings() {
		if l.Rev > since {
			c := *l
			d.Listings = append(d.Listings, &c)
		}
	}
	if full || st.scalars.Rev > since {
		sc := st.scalars
		d.Scalars = &sc
	}
	if !full {
		for _, t := range st.tombstones {
			if t.Rev > since {
				d.Removed = append(d.Removed, t)
			}
		}
	}
	return d
}
