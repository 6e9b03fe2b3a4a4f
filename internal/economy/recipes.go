package economy

// Recipe turns a set of inputs into an output. TimeMs is zero for instant
// crafts.
type Recipe struct {
	ID        string         `json:"id"`
	Inputs    map[ItemID]int `json:"inputs"`
	Output    ItemID         `json:"output"`
	OutputQty int            `json:"output_qty"`
	TimeMs    int64          `json:"time_ms,omitempty"`
}

// CraftRecipes are instant hand crafts, keyed by recipe id.
var CraftRecipes = map[string]Recipe{
	"stone_axe": {
		ID:        "stone_axe",
		Inputs:    map[ItemID]int{ItemStone: 2, ItemWood: 2},
		Output:    ItemStoneAxe,
		OutputQty: 1,
	},
	"iron_axe": {
		ID:        "iron_axe",
		Inputs:    map[ItemID]int{ItemIronIngot: 2, ItemWood: 2},
		Output:    ItemIronAxe,
		OutputQty: 1,
	},
	"steel_axe": {
		ID:        "steel_axe",
		Inputs:    map[ItemID]int{ItemSteelIngot: 2, ItemWood: 2},
		Output:    ItemSteelAxe,
		OutputQty: 1,
	},
	"fishing_rod": {
		ID:        "fishing_rod",
		Inputs:    map[ItemID]int{ItemWood: 2, ItemStone: 1},
		Output:    ItemFishingRod,
		OutputQty: 1,
	},
}

// CookRecipes are campfire recipes keyed by their single input item.
var CookRecipes = map[ItemID]Recipe{
	ItemRawMeat: {
		ID:        string(ItemRawMeat),
		Inputs:    map[ItemID]int{ItemRawMeat: 1},
		Output:    ItemCookedMeat,
		OutputQty: 1,
		TimeMs:    3000,
	},
	ItemWheat: {
		ID:        string(ItemWheat),
		Inputs:    map[ItemID]int{ItemWheat: 3},
		Output:    ItemBread,
		OutputQty: 1,
		TimeMs:    5000,
	},
}

// SmeltRecipes are forge recipes keyed by their single input item.
var SmeltRecipes = map[ItemID]Recipe{
	ItemIronOre: {
		ID:        string(ItemIronOre),
		Inputs:    map[ItemID]int{ItemIronOre: 1},
		Output:    ItemIronIngot,
		OutputQty: 1,
		TimeMs:    5000,
	},
}

// BlastRecipes are blast furnace recipes keyed by recipe id.
var BlastRecipes = map[string]Recipe{
	"steel_ingot": {
		ID:        "steel_ingot",
		Inputs:    map[ItemID]int{ItemIronIngot: 2, ItemCoal: 1},
		Output:    ItemSteelIngot,
		OutputQty: 1,
		TimeMs:    10_000,
	},
}

// AdvancedCookRecipes are multi-input campfire recipes keyed by recipe id.
var AdvancedCookRecipes = map[string]Recipe{
	"stew": {
		ID:        "stew",
		Inputs:    map[ItemID]int{ItemCookedMeat: 1, ItemBerries: 2, ItemWater: 1},
		Output:    ItemStew,
		OutputQty: 1,
		TimeMs:    8000,
	},
	"cooked_fish": {
		ID:        "cooked_fish",
		Inputs:    map[ItemID]int{ItemRawFish: 1},
		Output:    ItemCookedFish,
		OutputQty: 1,
		TimeMs:    3000,
	},
}

// StructureKind names a placeable building.
type StructureKind string

const (
	StructureCampfire     StructureKind = "campfire"
	StructureForge        StructureKind = "forge"
	StructureChest        StructureKind = "chest"
	StructureBlastFurnace StructureKind = "blast_furnace"
	StructureWaterWell    StructureKind = "water_well"
)

// StructureKinds lists every structure kind.
var StructureKinds = []StructureKind{
	StructureCampfire, StructureForge, StructureChest, StructureBlastFurnace, StructureWaterWell,
}

// DemolishRefunds is what the owner gets back when tearing a structure down,
// roughly half the build cost.
var DemolishRefunds = map[StructureKind]map[ItemID]int{
	StructureCampfire:     {ItemWood: 1},
	StructureForge:        {ItemStone: 2, ItemWood: 1},
	StructureChest:        {ItemWood: 2},
	StructureWaterWell:    {ItemStone: 1, ItemWood: 1},
	StructureBlastFurnace: {ItemStone: 5, ItemWood: 2},
}
