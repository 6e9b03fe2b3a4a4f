package engine

import (
	"testing"

	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/protocol"
	"github.com/talgya/hearthstead/internal/world"
)

func TestPlotExclusion(t *testing.T) {
	r, db := newTestRoom(t, nil)
	owner := joinAt(t, r, "s1", "Olga", 1000, 1000)
	r.st.AddCoins(owner, 40)

	if !r.Handle("s1", protocol.BuyPlot{}) {
		t.Fatalf("plot purchase rejected")
	}
	if owner.Coins != 50-r.cfg.Plots.Price {
		t.Fatalf("owner coins: got %d want %d", owner.Coins, 50-r.cfg.Plots.Price)
	}
	if stored, _ := db.Plots(); len(stored) != 1 || stored[0].OwnerUUID != owner.StableID {
		t.Fatalf("stored plots: %+v", stored)
	}

	other := joinAt(t, r, "s2", "Pim", 1010, 1010)
	r.st.Give(other, economy.ItemWood, 10)
	if r.Handle("s2", protocol.PlaceCampfire{}) {
		t.Fatalf("campfire inside someone else's plot accepted")
	}
	if r.Handle("s2", protocol.PlaceChest{}) {
		t.Fatalf("chest inside someone else's plot accepted")
	}

	r.st.Give(owner, economy.ItemWood, 3)
	if !r.Handle("s1", protocol.PlaceCampfire{}) {
		t.Fatalf("owner could not build on their own plot")
	}

	r.st.AddCoins(other, 40)
	r.Handle("s2", protocol.Move{X: 1100, Y: 1000})
	if r.Handle("s2", protocol.BuyPlot{}) {
		t.Fatalf("plot within min distance accepted")
	}
	r.Handle("s2", protocol.Move{X: 1300, Y: 1000})
	if !r.Handle("s2", protocol.BuyPlot{}) {
		t.Fatalf("distant plot rejected")
	}
	if !r.Handle("s2", protocol.PlaceCampfire{}) {
		t.Fatalf("campfire outside every foreign plot rejected")
	}
}

func TestBuyPlotPaysMayor(t *testing.T) {
	r, db := newTestRoom(t, nil)
	mayor := joinAt(t, r, "s1", "Mara", 500, 500)
	buyer := joinAt(t, r, "s2", "Bo", 1000, 1000)
	r.st.AddCoins(buyer, 100)
	r.installMayor(mayor.StableID, mayor.Name)

	before := mayor.Coins
	if !r.Handle("s2", protocol.BuyPlot{}) {
		t.Fatalf("plot purchase rejected")
	}
	if mayor.Coins != before+r.cfg.Plots.Price {
		t.Fatalf("online mayor coins: got %d want %d", mayor.Coins, before+r.cfg.Plots.Price)
	}

	r.Leave("s1")
	r.Handle("s2", protocol.Move{X: 2000, Y: 2000})
	if !r.Handle("s2", protocol.BuyPlot{}) {
		t.Fatalf("second plot rejected")
	}
	rec, err := db.GetPlayer(mayor.StableID)
	if err != nil || rec == nil || rec.Coins != before+2*r.cfg.Plots.Price {
		t.Fatalf("offline mayor record: %+v, %v", rec, err)
	}
}

func TestBuyPlotNPCMayorIsASink(t *testing.T) {
	r, _ := newTestRoom(t, nil)
	buyer := joinAt(t, r, "s1", "Bo", 1000, 1000)
	bystander := joinAt(t, r, "s2", "Cy", 500, 500)
	r.st.AddCoins(buyer, 100)

	if r.st.Scalars().MayorID != world.NPCMayorID {
		t.Fatalf("fresh world mayor: %q", r.st.Scalars().MayorID)
	}
	total := buyer.Coins + bystander.Coins
	r.Handle("s1", protocol.BuyPlot{})
	if buyer.Coins+bystander.Coins != total-r.cfg.Plots.Price {
		t.Fatalf("plot price went somewhere under the NPC mayor")
	}
}

func TestChestDepositWithdraw(t *testing.T) {
	r, db := newTestRoom(t, nil)
	p := joinAt(t, r, "s1", "Wren", 1000, 1000)
	r.st.Give(p, economy.ItemWood, 10)
	r.st.Give(p, economy.ItemStone, 4)

	if r.Handle("s1", protocol.ChestDeposit{ItemID: economy.ItemStone, Quantity: 1}) {
		t.Fatalf("deposit without a chest accepted")
	}
	if !r.Handle("s1", protocol.PlaceChest{}) {
		t.Fatalf("chest rejected")
	}
	r.Handle("s1", protocol.Move{X: 1200, Y: 1000})
	if r.Handle("s1", protocol.PlaceChest{}) {
		t.Fatalf("second chest accepted")
	}
	if r.Handle("s1", protocol.ChestDeposit{ItemID: economy.ItemStone, Quantity: 1}) {
		t.Fatalf("deposit from beyond range accepted")
	}

	r.Handle("s1", protocol.Move{X: 1000, Y: 1000})
	if !r.Handle("s1", protocol.ChestDeposit{ItemID: economy.ItemStone, Quantity: 10}) {
		t.Fatalf("deposit rejected")
	}
	if p.Inventory.Has(economy.ItemStone) {
		t.Fatalf("deposit moved less than held")
	}
	if !r.Handle("s1", protocol.ChestWithdraw{ItemID: economy.ItemStone, Quantity: 1}) {
		t.Fatalf("withdraw rejected")
	}
	if r.Handle("s1", protocol.ChestWithdraw{ItemID: economy.ItemBread, Quantity: 1}) {
		t.Fatalf("withdrew an item the chest lacks")
	}

	chest := r.st.ChestOf(p.StableID)
	if chest.Inventory.Count(economy.ItemStone) != 3 || p.Inventory.Count(economy.ItemStone) != 1 {
		t.Fatalf("chest %v player %v", chest.Inventory, p.Inventory)
	}
	stored, err := db.Structures(economy.StructureChest)
	if err != nil || len(stored) != 1 || stored[0].Inventory[economy.ItemStone] != 3 {
		t.Fatalf("stored chest: %+v, %v", stored, err)
	}

	other := joinAt(t, r, "s2", "Ash", 1000, 1000)
	r.st.Give(other, economy.ItemStone, 1)
	if r.Handle("s2", protocol.ChestDeposit{ItemID: economy.ItemStone, Quantity: 1}) {
		t.Fatalf("deposit into someone else's chest accepted")
	}
}

func TestWaterWell(t *testing.T) {
	r, _ := newTestRoom(t, nil)
	p := joinAt(t, r, "s1", "Wren", 1000, 1000)
	r.st.Give(p, economy.ItemStone, 3)
	r.st.Give(p, economy.ItemWood, 2)

	if !r.Handle("s1", protocol.PlaceWaterWell{}) {
		t.Fatalf("well rejected")
	}
	if p.Inventory.Total() != 0 {
		t.Fatalf("well cost: left %v", p.Inventory)
	}
	well := r.st.StructuresOf(economy.StructureWaterWell)[0]
	if !r.Handle("s1", protocol.UseWell{WellID: well.ID}) {
		t.Fatalf("use well rejected")
	}
	if p.Inventory.Count(economy.ItemWater) != wellWater {
		t.Fatalf("water: got %d want %d", p.Inventory.Count(economy.ItemWater), wellWater)
	}
	r.Handle("s1", protocol.Move{X: 1200, Y: 1000})
	if r.Handle("s1", protocol.UseWell{WellID: well.ID}) {
		t.Fatalf("well used from afar")
	}
}

func TestDemolish(t *testing.T) {
	r, db := newTestRoom(t, nil)
	p := joinAt(t, r, "s1", "Wren", 1000, 1000)
	other := joinAt(t, r, "s2", "Ash", 1000, 1000)
	r.st.Give(p, economy.ItemWood, 5)
	r.st.Give(p, economy.ItemBerries, 4)
	r.Handle("s1", protocol.PlaceChest{})
	r.Handle("s1", protocol.ChestDeposit{ItemID: economy.ItemBerries, Quantity: 4})
	chest := r.st.ChestOf(p.StableID)

	if r.Handle("s2", protocol.Demolish{BuildingType: economy.StructureChest, BuildingID: chest.ID}) {
		t.Fatalf("stranger demolished a chest")
	}
	if other.Inventory.Total() != 0 {
		t.Fatalf("stranger got a refund")
	}
	r.Handle("s1", protocol.Move{X: 1000 + 3*r.cfg.World.GatherRange + 1, Y: 1000})
	if r.Handle("s1", protocol.Demolish{BuildingType: economy.StructureChest, BuildingID: chest.ID}) {
		t.Fatalf("demolished from beyond range")
	}
	if r.Handle("s1", protocol.Demolish{BuildingType: economy.StructureCampfire, BuildingID: chest.ID}) {
		t.Fatalf("demolished under the wrong kind")
	}

	r.Handle("s1", protocol.Move{X: 1000, Y: 1000})
	if !r.Handle("s1", protocol.Demolish{BuildingType: economy.StructureChest, BuildingID: chest.ID}) {
		t.Fatalf("demolish rejected")
	}
	if p.Inventory.Count(economy.ItemWood) != 2 || p.Inventory.Has(economy.ItemBerries) {
		t.Fatalf("after demolish: %v want 2 wood, no berries", p.Inventory)
	}
	if r.st.ChestOf(p.StableID) != nil {
		t.Fatalf("chest still standing")
	}
	if stored, _ := db.Structures(economy.StructureChest); len(stored) != 0 {
		t.Fatalf("demolished chest still stored")
	}
}

func TestDemolishedFacilityDropsOutput(t *testing.T) {
	r, _ := newTestRoom(t, nil)
	p := joinAt(t, r, "s1", "Wren", 1000, 1000)
	r.st.Give(p, economy.ItemWood, 3)
	r.st.Give(p, economy.ItemRawMeat, 1)
	r.Handle("s1", protocol.PlaceCampfire{})
	cf := r.st.StructuresOf(economy.StructureCampfire)[0]

	if !r.Handle("s1", protocol.Cook{CampfireID: cf.ID, ItemID: economy.ItemRawMeat}) {
		t.Fatalf("cook rejected")
	}
	if !r.Handle("s1", protocol.Demolish{BuildingType: economy.StructureCampfire, BuildingID: cf.ID}) {
		t.Fatalf("demolish rejected")
	}
	r.Step(economy.CookRecipes[economy.ItemRawMeat].TimeMs)

	if r.Pending("s1") {
		t.Fatalf("cook still pending after its due time")
	}
	if p.Inventory.Has(economy.ItemCookedMeat) || p.Inventory.Has(economy.ItemRawMeat) {
		t.Fatalf("inventory after cook on a demolished campfire: %v", p.Inventory)
	}
}
