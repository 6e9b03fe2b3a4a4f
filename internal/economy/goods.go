// Package economy provides the static item, resource and recipe catalog.
// Everything here is a lookup table; no function mutates package state.
package economy

// ItemID names an inventory item kind.
type ItemID string

const (
	ItemRawMeat    ItemID = "raw_meat"
	ItemCookedMeat ItemID = "cooked_meat"
	ItemWood       ItemID = "wood"
	ItemStone      ItemID = "stone"
	ItemBerries    ItemID = "berries"
	ItemIronOre    ItemID = "iron_ore"
	ItemIronIngot  ItemID = "iron_ingot"
	ItemIronAxe    ItemID = "iron_axe"
	ItemWheat      ItemID = "wheat"
	ItemBread      ItemID = "bread"
	ItemStoneAxe   ItemID = "stone_axe"
	ItemCoal       ItemID = "coal"
	ItemSteelIngot ItemID = "steel_ingot"
	ItemSteelAxe   ItemID = "steel_axe"
	ItemWater      ItemID = "water"
	ItemStew       ItemID = "stew"
	ItemRawFish    ItemID = "raw_fish"
	ItemCookedFish ItemID = "cooked_fish"
	ItemFishingRod ItemID = "fishing_rod"
)

// ItemDef describes one item kind.
type ItemDef struct {
	ID            ItemID `json:"id"`
	Name          string `json:"name"`
	HungerRestore int    `json:"hunger_restore,omitempty"` // 0 = inedible
}

// Items is the full item catalog.
var Items = map[ItemID]ItemDef{
	ItemRawMeat:    {ID: ItemRawMeat, Name: "Raw Meat"},
	ItemCookedMeat: {ID: ItemCookedMeat, Name: "Cooked Meat", HungerRestore: 30},
	ItemWood:       {ID: ItemWood, Name: "Wood"},
	ItemStone:      {ID: ItemStone, Name: "Stone"},
	ItemBerries:    {ID: ItemBerries, Name: "Berries", HungerRestore: 10},
	ItemIronOre:    {ID: ItemIronOre, Name: "Iron Ore"},
	ItemIronIngot:  {ID: ItemIronIngot, Name: "Iron Ingot"},
	ItemIronAxe:    {ID: ItemIronAxe, Name: "Iron Axe"},
	ItemWheat:      {ID: ItemWheat, Name: "Wheat"},
	ItemBread:      {ID: ItemBread, Name: "Bread", HungerRestore: 40},
	ItemStoneAxe:   {ID: ItemStoneAxe, Name: "Stone Axe"},
	ItemCoal:       {ID: ItemCoal, Name: "Coal"},
	ItemSteelIngot: {ID: ItemSteelIngot, Name: "Steel Ingot"},
	ItemSteelAxe:   {ID: ItemSteelAxe, Name: "Steel Axe"},
	ItemWater:      {ID: ItemWater, Name: "Water", HungerRestore: 5},
	ItemStew:       {ID: ItemStew, Name: "Stew", HungerRestore: 60},
	ItemRawFish:    {ID: ItemRawFish, Name: "Raw Fish"},
	ItemCookedFish: {ID: ItemCookedFish, Name: "Cooked Fish", HungerRestore: 35},
	ItemFishingRod: {ID: ItemFishingRod, Name: "Fishing Rod"},
}

// IsFood reports whether eating the item restores hunger.
func IsFood(id ItemID) bool {
	return Items[id].HungerRestore > 0
}

// SellPrices are the reference unit prices AI sellers list at and traders
// compare listings against.
var SellPrices = map[ItemID]int{
	ItemBerries:    2,
	ItemRawMeat:    2,
	ItemCookedMeat: 7,
	ItemBread:      8,
	ItemWood:       1,
	ItemStone:      2,
	ItemWheat:      2,
	ItemCoal:       3,
	ItemSteelIngot: 8,
	ItemStew:       12,
	ItemCookedFish: 5,
	ItemRawFish:    2,
}

// ToolTier is a gathering tool and its yield multiplier.
type ToolTier struct {
	Item       ItemID
	Multiplier float64
}

// ToolTiers lists axes from best to worst. The first one held wins.
var ToolTiers = []ToolTier{
	{Item: ItemSteelAxe, Multiplier: 3.0},
	{Item: ItemIronAxe, Multiplier: 2.0},
	{Item: ItemStoneAxe, Multiplier: 1.5},
}

// GatherMultiplier returns the yield multiplier for the best axe held.
func GatherMultiplier(has func(ItemID) bool) float64 {
	for _, t := range ToolTiers {
		if has(t.Item) {
			return t.Multiplier
		}
	}
	return 1.0
}

// DurabilityOrder is the order in which a successful gather wears tools.
// Exactly one tool (the first held with a finite cap) loses a point.
var DurabilityOrder = []ItemID{ItemSteelAxe, ItemIronAxe, ItemStoneAxe, ItemFishingRod}

// DefaultToolDurability holds the default durability caps.
var DefaultToolDurability = map[ItemID]int{
	ItemStoneAxe:   30,
	ItemIronAxe:    60,
	ItemSteelAxe:   100,
	ItemFishingRod: 40,
}

// TechName returns the display name of a tech level.
func TechName(level int) string {
	switch level {
	case 1:
		return "Iron Age"
	case 2:
		return "Steel Age"
	default:
		return "Stone Age"
	}
}
