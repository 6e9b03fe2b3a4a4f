package economy

import "testing"

func TestRecipesReferenceKnownItems(t *testing.T) {
	check := func(table string, r Recipe) {
		t.Helper()
		if _, ok := Items[r.Output]; !ok {
			t.Fatalf("%s %s: unknown output %q", table, r.ID, r.Output)
		}
		if r.OutputQty < 1 {
			t.Fatalf("%s %s: output qty %d", table, r.ID, r.OutputQty)
		}
		for in, qty := range r.Inputs {
			if _, ok := Items[in]; !ok {
				t.Fatalf("%s %s: unknown input %q", table, r.ID, in)
			}
			if qty < 1 {
				t.Fatalf("%s %s: input %s qty %d", table, r.ID, in, qty)
			}
		}
	}
	for _, r := range CraftRecipes {
		check("craft", r)
	}
	for key, r := range CookRecipes {
		check("cook", r)
		if _, ok := r.Inputs[key]; !ok || len(r.Inputs) != 1 {
			t.Fatalf("cook %s: must have exactly its key as input", key)
		}
	}
	for key, r := range SmeltRecipes {
		check("smelt", r)
		if _, ok := r.Inputs[key]; !ok || len(r.Inputs) != 1 {
			t.Fatalf("smelt %s: must have exactly its key as input", key)
		}
	}
	for _, r := range BlastRecipes {
		check("blast", r)
	}
	for _, r := range AdvancedCookRecipes {
		check("advanced cook", r)
	}
}

func TestResourceCatalogComplete(t *testing.T) {
	for _, kind := range ResourceKinds {
		def, ok := Resources[kind]
		if !ok {
			t.Fatalf("missing resource def for %s", kind)
		}
		if def.GatherMs <= 0 || def.RespawnMs <= 0 {
			t.Fatalf("%s: non-positive timings %d/%d", kind, def.GatherMs, def.RespawnMs)
		}
		if ResourceCounts[kind] <= 0 {
			t.Fatalf("%s: no world count", kind)
		}
		for _, d := range def.Drops {
			if d.Min < 0 || d.Max < d.Min {
				t.Fatalf("%s: bad drop range %d..%d", kind, d.Min, d.Max)
			}
		}
	}
}

func TestGatherMultiplier(t *testing.T) {
	tests := []struct {
		held []ItemID
		want float64
	}{
		{nil, 1.0},
		{[]ItemID{ItemStoneAxe}, 1.5},
		{[]ItemID{ItemIronAxe}, 2.0},
		{[]ItemID{ItemSteelAxe}, 3.0},
		{[]ItemID{ItemStoneAxe, ItemSteelAxe}, 3.0},
		{[]ItemID{ItemStoneAxe, ItemIronAxe}, 2.0},
		{[]ItemID{ItemFishingRod}, 1.0},
	}
	for _, tt := range tests {
		held := make(map[ItemID]bool)
		for _, id := range tt.held {
			held[id] = true
		}
		got := GatherMultiplier(func(id ItemID) bool { return held[id] })
		if got != tt.want {
			t.Fatalf("GatherMultiplier(%v): got %v want %v", tt.held, got, tt.want)
		}
	}
}

func TestFoodItems(t *testing.T) {
	food := []ItemID{ItemCookedMeat, ItemBerries, ItemBread, ItemWater, ItemStew, ItemCookedFish}
	for _, id := range food {
		if !IsFood(id) {
			t.Fatalf("%s should be food", id)
		}
	}
	if IsFood(ItemRawMeat) || IsFood(ItemWood) {
		t.Fatalf("raw meat and wood are not edible")
	}
}
