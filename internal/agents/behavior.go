// Agent behavior: steering toward the current target, the decision cadence
// and carrying out an activity on arrival.
package agents

import (
	"math"

	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/protocol"
	"github.com/talgya/hearthstead/internal/world"
)

const (
	speed         = 80.0 // px per second
	arriveRadius  = 8.0  // stop steering inside this
	reachRadius   = 40.0 // close enough to act
	stuckMs       = 4000
	decisionMs    = 1000
	decisionJitMs = 250
)

// Tick moves every agent and runs due decisions. Completion of timed
// actions happens in the room's scheduler, not here.
func (m *Manager) Tick(deltaMs int64) {
	st := m.room.State()
	now := m.room.Now()

	for _, a := range m.agents {
		p := st.Player(a.ID)
		if p == nil {
			continue
		}

		dist := world.Distance(p.X, p.Y, a.TargetX, a.TargetY)
		if dist > arriveRadius {
			step := speed * float64(deltaMs) / 1000
			ratio := math.Min(1, step/dist)
			st.MovePlayer(p,
				clamp(p.X+(a.TargetX-p.X)*ratio, 0, m.cfg.WorldSize),
				clamp(p.Y+(a.TargetY-p.Y)*ratio, 0, m.cfg.WorldSize))
		}

		atTarget := dist <= reachRadius
		stuck := !atTarget && now-a.TargetSetAt > stuckMs
		if now < a.NextDecision && !stuck {
			continue
		}
		if m.room.Pending(a.ID) {
			a.NextDecision = now + decisionMs
			continue
		}
		if atTarget {
			m.execute(a, p)
		}
		m.decide(a, p)
		a.NextDecision = now + decisionMs + int64(m.rng.Float64()*decisionJitMs)
	}
}

func (m *Manager) setTarget(a *Agent, x, y float64, act Activity, targetID, recipe string) {
	a.Activity = act
	a.TargetX, a.TargetY = x, y
	a.TargetID = targetID
	a.Recipe = recipe
	a.TargetSetAt = m.room.Now()
}

func (m *Manager) wander(a *Agent) {
	w := m.cfg.WorldSize
	m.setTarget(a, 100+m.rng.Float64()*(w-200), 100+m.rng.Float64()*(w-200), Wandering, "", "")
}

// execute performs the activity the agent walked to. Every world change
// goes through Room.Handle; a rejected action is simply dropped.
func (m *Manager) execute(a *Agent, p *world.Player) {
	act := func(action protocol.Action) bool { return m.room.Handle(a.ID, action) }

	switch a.Activity {
	case Eating:
		if item, ok := bestFood(p.Inventory); ok {
			act(protocol.Eat{ItemID: item})
		}

	case Gathering:
		act(protocol.Gather{ResourceID: a.TargetID})

	case Cooking:
		act(protocol.Cook{CampfireID: a.TargetID, ItemID: economy.ItemID(a.Recipe)})

	case CookingAdvanced:
		act(protocol.CookAdvanced{CampfireID: a.TargetID, RecipeID: a.Recipe})

	case Smelting:
		act(protocol.Smelt{ForgeID: a.TargetID, ItemID: economy.ItemID(a.Recipe)})

	case Blasting:
		act(protocol.Blast{BlastFurnaceID: a.TargetID, RecipeID: a.Recipe})

	case AtWell:
		act(protocol.UseWell{WellID: a.TargetID})
		a.Activity = Wandering

	case Building:
		if p.Inventory.Count(economy.ItemWood) >= 3 {
			act(protocol.PlaceCampfire{})
		}

	case Buying:
		act(protocol.MarketBuy{ListingID: a.TargetID})

	case Trading:
		l := m.room.State().Listing(a.TargetID)
		if l == nil {
			return
		}
		item, paid := l.ItemID, l.PricePerUnit
		if !act(protocol.MarketBuy{ListingID: a.TargetID}) {
			return
		}
		price, ok := economy.SellPrices[item]
		if !ok {
			price = paid + 1
		}
		act(protocol.MarketList{ItemID: item, Quantity: 1, PricePerUnit: price})

	case Selling:
		for _, item := range p.Inventory.Items() {
			price, ok := economy.SellPrices[item]
			if !ok {
				continue
			}
			n := min(p.Inventory.Count(item)-keepQty(a.Role, item), 5)
			if n <= 0 {
				continue
			}
			act(protocol.MarketList{ItemID: item, Quantity: n, PricePerUnit: price})
		}
	}
}

// keepQty is how much of an item a seller holds back.
func keepQty(role Role, item economy.ItemID) int {
	switch {
	case role == RoleCook && item == economy.ItemCookedMeat:
		return 1
	case role == RoleFarmer && item == economy.ItemBread:
		return 1
	case role == RoleGatherer:
		return 2
	default:
		return 0
	}
}

// bestFood picks the held item restoring the most hunger.
func bestFood(inv world.Inventory) (economy.ItemID, bool) {
	var best economy.ItemID
	restore := 0
	for _, id := range inv.Items() {
		if r := economy.Items[id].HungerRestore; r > restore {
			best, restore = id, r
		}
	}
	return best, restore > 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
