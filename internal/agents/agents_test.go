package agents

import (
	"math/rand"
	"testing"

	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/protocol"
	"github.com/talgya/hearthstead/internal/world"
)

// fakeRoom records actions and accepts all of them unless reject is set.
type fakeRoom struct {
	st      *world.State
	now     int64
	pending map[string]bool
	reject  bool
	actions []protocol.Action
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{st: world.NewState(), pending: make(map[string]bool)}
}

func (f *fakeRoom) State() *world.State         { return f.st }
func (f *fakeRoom) Now() int64                  { return f.now }
func (f *fakeRoom) Pending(actor string) bool   { return f.pending[actor] }
func (f *fakeRoom) Handle(_ string, a protocol.Action) bool {
	f.actions = append(f.actions, a)
	return !f.reject
}

func testConfig(n int) Config {
	return Config{Count: n, WorldSize: 3200, HungerMax: 100, MarketX: 560, MarketY: 560}
}

// single spawns one agent of the given role at (1000, 1000) with a full
// stomach and its decision due.
func single(t *testing.T, role Role) (*fakeRoom, *Manager, *Agent, *world.Player) {
	t.Helper()
	f := newFakeRoom()
	m := NewManager(f, testConfig(1), rand.New(rand.NewSource(1)))
	m.SpawnAll()
	a := m.agents[0]
	a.Role = role
	p := f.st.Player(a.ID)
	f.st.MovePlayer(p, 1000, 1000)
	f.st.SetHunger(p, 90)
	a.TargetX, a.TargetY = 1000, 1000
	a.NextDecision = 0
	return f, m, a, p
}

func TestSpawnAllRoster(t *testing.T) {
	f := newFakeRoom()
	m := NewManager(f, testConfig(15), rand.New(rand.NewSource(7)))
	m.SpawnAll()

	players := f.st.Players()
	if len(players) != 15 {
		t.Fatalf("players: got %d want 15", len(players))
	}
	wantRoles := map[Role]int{RoleGatherer: 4, RoleCook: 3, RoleFarmer: 3, RoleTrader: 5}
	gotRoles := make(map[Role]int)
	for i, a := range m.Agents() {
		gotRoles[a.Role]++
		p := f.st.Player(a.ID)
		if p == nil || !p.IsAI || p.StableID != p.ID {
			t.Fatalf("agent %d: bad player %+v", i, p)
		}
		if p.X < 200 || p.X > 3000 || p.Y < 200 || p.Y > 3000 {
			t.Fatalf("%s spawned off the inner square at (%v, %v)", p.Name, p.X, p.Y)
		}
		if p.Coins < 5 || p.Coins > 24 {
			t.Fatalf("%s coins: got %d want 5..24", p.Name, p.Coins)
		}
		if p.Hunger < 40 || p.Hunger > 100 {
			t.Fatalf("%s hunger: got %v want 40..100", p.Name, p.Hunger)
		}
		if a.NextDecision < 0 || a.NextDecision >= 3000 {
			t.Fatalf("%s first decision at %d", p.Name, a.NextDecision)
		}
	}
	if m.Agents()[0].Name != "Alice" || m.Agents()[14].Name != "Oscar" {
		t.Fatalf("names: got %s..%s", m.Agents()[0].Name, m.Agents()[14].Name)
	}
	for role, n := range wantRoles {
		if gotRoles[role] != n {
			t.Fatalf("%s: got %d want %d", role, gotRoles[role], n)
		}
	}
}

func TestRulesOrder(t *testing.T) {
	want := []string{"craft_tools", "cook_fish", "cook_stew", "blast_steel", "smelt_ore", "eat", "buy_food", "role", "wander"}
	got := Rules()
	if len(got) != len(want) {
		t.Fatalf("rules: got %d want %d", len(got), len(want))
	}
	for i, r := range got {
		if r.Name != want[i] {
			t.Fatalf("rule %d: got %s want %s", i, r.Name, want[i])
		}
	}
}

func TestDecideCascade(t *testing.T) {
	campfire := &world.Structure{ID: "cf", Kind: economy.StructureCampfire, X: 1100, Y: 1000}
	well := &world.Structure{ID: "well", Kind: economy.StructureWaterWell, X: 900, Y: 1000}
	forge := &world.Structure{ID: "forge", Kind: economy.StructureForge, X: 1000, Y: 1100}

	tests := []struct {
		name       string
		role       Role
		hunger     float64
		inv        map[economy.ItemID]int
		structures []*world.Structure
		nodes      []*world.Resource
		want       Activity
		target     string
		recipe     string
	}{
		{
			name:       "raw fish goes to campfire",
			role:       RoleTrader,
			inv:        map[economy.ItemID]int{economy.ItemRawFish: 1},
			structures: []*world.Structure{campfire},
			want:       CookingAdvanced, target: "cf", recipe: "cooked_fish",
		},
		{
			name:       "stew without water fetches water",
			role:       RoleCook,
			inv:        map[economy.ItemID]int{economy.ItemCookedMeat: 1, economy.ItemBerries: 2},
			structures: []*world.Structure{campfire, well},
			want:       AtWell, target: "well",
		},
		{
			name:       "stew with water cooks",
			role:       RoleCook,
			inv:        map[economy.ItemID]int{economy.ItemCookedMeat: 1, economy.ItemBerries: 2, economy.ItemWater: 1},
			structures: []*world.Structure{campfire, well},
			want:       CookingAdvanced, target: "cf", recipe: "stew",
		},
		{
			name:       "ore goes to forge",
			role:       RoleFarmer,
			inv:        map[economy.ItemID]int{economy.ItemIronOre: 2},
			structures: []*world.Structure{forge},
			want:       Smelting, target: "forge", recipe: "iron_ore",
		},
		{
			name:   "hungry with food eats in place",
			role:   RoleTrader,
			hunger: 20,
			inv:    map[economy.ItemID]int{economy.ItemBerries: 1},
			want:   Eating,
		},
		{
			name:  "cook hunts for meat",
			role:  RoleCook,
			nodes: []*world.Resource{{ID: "deer", Kind: economy.ResourceAnimal, X: 1200, Y: 1200}},
			want:  Gathering, target: "deer",
		},
		{
			name: "overloaded gatherer sells",
			role: RoleGatherer,
			inv:  map[economy.ItemID]int{economy.ItemWood: 16},
			want: Selling,
		},
		{
			name:  "farmer bakes without fire builds one",
			role:  RoleFarmer,
			inv:   map[economy.ItemID]int{economy.ItemWheat: 3, economy.ItemWood: 3},
			nodes: []*world.Resource{{ID: "field", Kind: economy.ResourceWheatField, X: 1200, Y: 1200}},
			want:  Building,
		},
		{
			name: "nothing to do wanders",
			role: RoleTrader,
			want: Wandering,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, m, a, p := single(t, tt.role)
			if tt.hunger > 0 {
				f.st.SetHunger(p, tt.hunger)
			}
			for id, qty := range tt.inv {
				f.st.Give(p, id, qty)
			}
			for _, s := range tt.structures {
				c := *s
				f.st.AddStructure(&c)
			}
			for _, r := range tt.nodes {
				c := *r
				f.st.AddResource(&c)
			}

			m.decide(a, p)
			if a.Activity != tt.want {
				t.Fatalf("activity: got %s want %s", a.Activity, tt.want)
			}
			if tt.target != "" && a.TargetID != tt.target {
				t.Fatalf("target: got %q want %q", a.TargetID, tt.target)
			}
			if tt.recipe != "" && a.Recipe != tt.recipe {
				t.Fatalf("recipe: got %q want %q", a.Recipe, tt.recipe)
			}
		})
	}
}

func TestBuyFoodSkipsOwnAndUnaffordable(t *testing.T) {
	f, m, a, p := single(t, RoleTrader)
	f.st.SetHunger(p, 40)
	f.st.AddCoins(p, 10-p.Coins)

	f.st.AddListing(&world.Listing{ID: "own", SellerID: p.StableID, ItemID: economy.ItemBread, Quantity: 1, PricePerUnit: 1})
	f.st.AddListing(&world.Listing{ID: "dear", SellerID: "x", ItemID: economy.ItemBread, Quantity: 1, PricePerUnit: 50})
	f.st.AddListing(&world.Listing{ID: "wood", SellerID: "x", ItemID: economy.ItemWood, Quantity: 1, PricePerUnit: 1})
	f.st.AddListing(&world.Listing{ID: "meal", SellerID: "x", ItemID: economy.ItemCookedMeat, Quantity: 1, PricePerUnit: 6})

	m.decide(a, p)
	if a.Activity != Buying || a.TargetID != "meal" {
		t.Fatalf("got %s %q want buying meal", a.Activity, a.TargetID)
	}
	if a.TargetX != 560 || a.TargetY != 560 {
		t.Fatalf("market target: got (%v, %v)", a.TargetX, a.TargetY)
	}
}

func TestCraftUpgradeDiscardsLowerTiers(t *testing.T) {
	f, m, a, p := single(t, RoleCook)
	f.st.Give(p, economy.ItemStoneAxe, 1)
	f.st.Give(p, economy.ItemIronIngot, 2)
	f.st.Give(p, economy.ItemWood, 2)

	m.decide(a, p)

	var crafted []string
	for _, act := range f.actions {
		if c, ok := act.(protocol.Craft); ok {
			crafted = append(crafted, c.RecipeID)
		}
	}
	if len(crafted) != 1 || crafted[0] != "iron_axe" {
		t.Fatalf("crafts: got %v want [iron_axe]", crafted)
	}
	if p.Inventory.Has(economy.ItemStoneAxe) {
		t.Fatalf("stone axe kept after upgrade")
	}
}

func TestCraftRejectedKeepsTools(t *testing.T) {
	f, m, a, p := single(t, RoleCook)
	f.reject = true
	f.st.Give(p, economy.ItemStoneAxe, 1)
	f.st.Give(p, economy.ItemSteelIngot, 2)
	f.st.Give(p, economy.ItemWood, 2)

	m.decide(a, p)
	if !p.Inventory.Has(economy.ItemStoneAxe) {
		t.Fatalf("stone axe discarded although the craft was rejected")
	}
}

func TestTickMovesAndWaitsWhilePending(t *testing.T) {
	f, m, a, p := single(t, RoleTrader)
	a.TargetX, a.TargetY = 2000, 1000
	a.NextDecision = 1_000_000

	m.Tick(1000)
	if p.X != 1080 || p.Y != 1000 {
		t.Fatalf("after 1s: got (%v, %v) want (1080, 1000)", p.X, p.Y)
	}

	f.now = 5000
	f.pending[a.ID] = true
	m.Tick(50)
	if a.NextDecision != 6000 {
		t.Fatalf("pending agent: next decision got %d want 6000", a.NextDecision)
	}
	if a.Activity != Wandering || a.TargetX != 2000 {
		t.Fatalf("pending agent re-decided: %+v", a)
	}
}

func TestExecuteSellingKeepsRoleStock(t *testing.T) {
	f, m, a, p := single(t, RoleCook)
	f.st.Give(p, economy.ItemCookedMeat, 9)
	f.st.Give(p, economy.ItemBerries, 2)
	f.st.Give(p, economy.ItemIronOre, 4) // no reference price
	a.Activity = Selling

	m.execute(a, p)

	got := make(map[economy.ItemID]protocol.MarketList)
	for _, act := range f.actions {
		if l, ok := act.(protocol.MarketList); ok {
			got[l.ItemID] = l
		}
	}
	if len(got) != 2 {
		t.Fatalf("listings: got %v", got)
	}
	if l := got[economy.ItemCookedMeat]; l.Quantity != 5 || l.PricePerUnit != 7 {
		t.Fatalf("cooked meat listing: got %+v want 5 @ 7", l)
	}
	if l := got[economy.ItemBerries]; l.Quantity != 2 || l.PricePerUnit != 2 {
		t.Fatalf("berries listing: got %+v want 2 @ 2", l)
	}
}

func TestExecuteTradingRelists(t *testing.T) {
	f, m, a, p := single(t, RoleTrader)
	f.st.AddListing(&world.Listing{ID: "cheap", SellerID: "x", ItemID: economy.ItemStew, Quantity: 3, PricePerUnit: 4})
	a.Activity = Trading
	a.TargetID = "cheap"

	m.execute(a, p)

	if len(f.actions) != 2 {
		t.Fatalf("actions: got %v", f.actions)
	}
	if b, ok := f.actions[0].(protocol.MarketBuy); !ok || b.ListingID != "cheap" {
		t.Fatalf("first action: got %#v", f.actions[0])
	}
	want := protocol.MarketList{ItemID: economy.ItemStew, Quantity: 1, PricePerUnit: 12}
	if f.actions[1] != protocol.Action(want) {
		t.Fatalf("relist: got %#v want %#v", f.actions[1], want)
	}
}

func TestBestFood(t *testing.T) {
	inv := world.Inventory{economy.ItemBerries: 3, economy.ItemBread: 1, economy.ItemWood: 9}
	if got, ok := bestFood(inv); !ok || got != economy.ItemBread {
		t.Fatalf("bestFood: got %s, %v want bread", got, ok)
	}
	if _, ok := bestFood(world.Inventory{economy.ItemWood: 1}); ok {
		t.Fatalf("bestFood found food in a wood pile")
	}
}
