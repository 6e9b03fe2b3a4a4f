package agents

import (
	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/protocol"
	"github.com/talgya/hearthstead/internal/world"
)

// view bundles what a rule looks at.
type view struct {
	m  *Manager
	a  *Agent
	p  *world.Player
	st *world.State
}

func (v view) count(id economy.ItemID) int { return v.p.Inventory.Count(id) }

func (v view) has(id economy.ItemID) bool { return v.p.Inventory.Has(id) }

// food counts cooked meat, bread and berries.
func (v view) food() int {
	return v.count(economy.ItemCookedMeat) + v.count(economy.ItemBread) + v.count(economy.ItemBerries)
}

func (v view) goTo(x, y float64, act Activity, targetID, recipe string) bool {
	v.m.setTarget(v.a, x, y, act, targetID, recipe)
	return true
}

func (v view) goToStructure(kind economy.StructureKind, act Activity, recipe string) bool {
	s := v.st.NearestStructure(kind, v.p.X, v.p.Y)
	if s == nil {
		return false
	}
	return v.goTo(s.X, s.Y, act, s.ID, recipe)
}

func (v view) gather(kinds ...economy.ResourceKind) bool {
	for _, k := range kinds {
		if r := v.st.NearestResource(v.p.X, v.p.Y, world.OfKind(k)); r != nil {
			return v.goTo(r.X, r.Y, Gathering, r.ID, "")
		}
	}
	return false
}

func (v view) gatherAny() bool {
	r := v.st.NearestResource(v.p.X, v.p.Y, nil)
	if r == nil {
		return false
	}
	return v.goTo(r.X, r.Y, Gathering, r.ID, "")
}

func (v view) toMarket(act Activity, listingID string) bool {
	return v.goTo(v.m.cfg.MarketX, v.m.cfg.MarketY, act, listingID, "")
}

// build heads for a spot near the agent to put down a campfire.
func (v view) build() bool {
	x := v.p.X + v.m.rng.Float64()*80 - 40
	y := v.p.Y + v.m.rng.Float64()*80 - 40
	return v.goTo(x, y, Building, "", "")
}

// Rule is one step of the decision cascade. Rules run top-down; the first
// whose When holds and whose Then commits a target ends the decision. A
// Then returning false lets the cascade continue.
type Rule struct {
	Name string
	When func(v view) bool
	Then func(v view) bool
}

var rules = []Rule{
	{Name: "craft_tools", When: always, Then: craftTools},
	{
		Name: "cook_fish",
		When: func(v view) bool { return v.count(economy.ItemRawFish) >= 1 && v.a.Activity != CookingAdvanced },
		Then: func(v view) bool { return v.goToStructure(economy.StructureCampfire, CookingAdvanced, "cooked_fish") },
	},
	{
		Name: "cook_stew",
		When: func(v view) bool {
			return v.count(economy.ItemCookedMeat) >= 1 && v.count(economy.ItemBerries) >= 2 && v.a.Activity != CookingAdvanced
		},
		Then: func(v view) bool {
			if v.has(economy.ItemWater) {
				return v.goToStructure(economy.StructureCampfire, CookingAdvanced, "stew")
			}
			return v.goToStructure(economy.StructureWaterWell, AtWell, "")
		},
	},
	{
		Name: "blast_steel",
		When: func(v view) bool {
			return v.count(economy.ItemIronIngot) >= 2 && v.count(economy.ItemCoal) >= 1 && v.a.Activity != Blasting
		},
		Then: func(v view) bool { return v.goToStructure(economy.StructureBlastFurnace, Blasting, "steel_ingot") },
	},
	{
		Name: "smelt_ore",
		When: func(v view) bool { return v.has(economy.ItemIronOre) && v.a.Activity != Smelting },
		Then: func(v view) bool {
			return v.goToStructure(economy.StructureForge, Smelting, string(economy.ItemIronOre))
		},
	},
	{
		Name: "eat",
		When: func(v view) bool { return v.p.Hunger < 30 && v.food() > 0 },
		Then: func(v view) bool { return v.goTo(v.p.X, v.p.Y, Eating, "", "") },
	},
	{
		Name: "buy_food",
		When: func(v view) bool {
			return v.p.Hunger < 50 && v.food() == 0 && !v.has(economy.ItemRawMeat) &&
				v.count(economy.ItemWheat) < 3 && v.p.Coins > 0
		},
		Then: func(v view) bool {
			l := v.st.CheapestListing(func(l *world.Listing) bool {
				return economy.IsFood(l.ItemID) && l.SellerID != v.p.StableID && l.PricePerUnit <= v.p.Coins
			})
			if l == nil {
				return false
			}
			return v.toMarket(Buying, l.ID)
		},
	},
	{Name: "role", When: always, Then: roleWork},
	{Name: "wander", When: always, Then: func(v view) bool { v.m.wander(v.a); return true }},
}

// Rules returns the decision cascade in evaluation order.
func Rules() []Rule {
	return append([]Rule(nil), rules...)
}

func always(view) bool { return true }

func (m *Manager) decide(a *Agent, p *world.Player) {
	v := view{m: m, a: a, p: p, st: m.room.State()}
	for _, r := range rules {
		if r.When(v) && r.Then(v) {
			return
		}
	}
}

// craftTools makes any strict tool upgrade the agent can afford and then
// lets the cascade carry on.
func craftTools(v view) bool {
	craft := func(recipe string, replaces ...economy.ItemID) {
		if !v.m.room.Handle(v.a.ID, protocol.Craft{RecipeID: recipe}) {
			return
		}
		for _, old := range replaces {
			if v.has(old) {
				v.st.Discard(v.p, old)
			}
		}
	}

	wood := func() int { return v.count(economy.ItemWood) }
	if !v.has(economy.ItemStoneAxe) && !v.has(economy.ItemIronAxe) && !v.has(economy.ItemSteelAxe) &&
		v.count(economy.ItemStone) >= 2 && wood() >= 2 {
		craft("stone_axe")
	}
	if !v.has(economy.ItemIronAxe) && !v.has(economy.ItemSteelAxe) &&
		v.count(economy.ItemIronIngot) >= 2 && wood() >= 2 {
		craft("iron_axe", economy.ItemStoneAxe)
	}
	if !v.has(economy.ItemSteelAxe) && v.count(economy.ItemSteelIngot) >= 2 && wood() >= 2 {
		craft("steel_axe", economy.ItemIronAxe, economy.ItemStoneAxe)
	}
	if v.a.Role == RoleGatherer && !v.has(economy.ItemFishingRod) &&
		wood() >= 2 && v.count(economy.ItemStone) >= 1 {
		craft("fishing_rod")
	}
	return false
}

func roleWork(v view) bool {
	switch v.a.Role {
	case RoleGatherer:
		return gathererWork(v)
	case RoleCook:
		return cookWork(v)
	case RoleFarmer:
		return farmerWork(v)
	default:
		return traderWork(v)
	}
}

// cookAtFire heads to the nearest campfire, or builds one with enough wood.
func cookAtFire(v view, item economy.ItemID) bool {
	if v.goToStructure(economy.StructureCampfire, Cooking, string(item)) {
		return true
	}
	if v.count(economy.ItemWood) >= 3 {
		return v.build()
	}
	return false
}

func gathererWork(v view) bool {
	if v.p.Inventory.Total() > 15 {
		return v.toMarket(Selling, "")
	}
	raw := v.count(economy.ItemRawMeat)
	if raw > 0 && cookAtFire(v, economy.ItemRawMeat) {
		return true
	}
	if v.food() < 2 && raw < 2 && v.gather(economy.ResourceAnimal, economy.ResourceBerries) {
		return true
	}
	if v.has(economy.ItemFishingRod) && v.gather(economy.ResourceFishSpot) {
		return true
	}
	kind := economy.ResourceTree
	if v.count(economy.ItemStone) < v.count(economy.ItemWood) {
		kind = economy.ResourceRock
	}
	return v.gather(kind) || v.gatherAny()
}

func cookWork(v view) bool {
	if v.count(economy.ItemCookedMeat) >= 3 {
		return v.toMarket(Selling, "")
	}
	raw := v.count(economy.ItemRawMeat)
	if raw > 0 && cookAtFire(v, economy.ItemRawMeat) {
		return true
	}
	if raw < 4 && v.gather(economy.ResourceAnimal) {
		return true
	}
	return v.count(economy.ItemWood) < 3 && v.gather(economy.ResourceTree)
}

func farmerWork(v view) bool {
	if v.count(economy.ItemBread) >= 3 {
		return v.toMarket(Selling, "")
	}
	wheat := v.count(economy.ItemWheat)
	if wheat >= 3 && cookAtFire(v, economy.ItemWheat) {
		return true
	}
	if wheat < 6 && v.gather(economy.ResourceWheatField) {
		return true
	}
	return v.count(economy.ItemWood) < 3 && v.gather(economy.ResourceTree)
}

// traderWork buys listings priced under the reference price to relist
// them, otherwise sells stock or gathers whatever is closest.
func traderWork(v view) bool {
	deal := v.st.CheapestListing(func(l *world.Listing) bool {
		ref, ok := economy.SellPrices[l.ItemID]
		return ok && l.SellerID != v.p.StableID && l.PricePerUnit < ref && l.PricePerUnit <= v.p.Coins
	})
	if deal != nil {
		return v.toMarket(Trading, deal.ID)
	}
	for _, id := range v.p.Inventory.Items() {
		if _, ok := economy.SellPrices[id]; ok && v.count(id) >= 2 {
			return v.toMarket(Selling, "")
		}
	}
	return v.gatherAny()
}
