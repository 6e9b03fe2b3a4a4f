package economy

// ResourceKind names a harvestable node kind.
type ResourceKind string

const (
	ResourceTree       ResourceKind = "tree"
	ResourceRock       ResourceKind = "rock"
	ResourceBerries    ResourceKind = "berries"
	ResourceAnimal     ResourceKind = "animal"
	ResourceWheatField ResourceKind = "wheat_field"
	ResourceCoalSeam   ResourceKind = "coal_seam"
	ResourceFishSpot   ResourceKind = "fish_spot"
)

// Drop is one possible yield of a gather. ToolRequired, when set, must be
// held for the drop to roll at all.
type Drop struct {
	Item         ItemID `json:"item"`
	Min          int    `json:"min"`
	Max          int    `json:"max"`
	ToolRequired ItemID `json:"tool_required,omitempty"`
}

// ResourceDef describes one node kind.
type ResourceDef struct {
	Kind      ResourceKind `json:"kind"`
	Drops     []Drop       `json:"drops"`
	RespawnMs int64        `json:"respawn_ms"`
	GatherMs  int64        `json:"gather_ms"`
}

// ResourceKinds lists every kind in generation order.
var ResourceKinds = []ResourceKind{
	ResourceTree, ResourceRock, ResourceBerries, ResourceAnimal,
	ResourceWheatField, ResourceCoalSeam, ResourceFishSpot,
}

// Resources is the node catalog.
var Resources = map[ResourceKind]ResourceDef{
	ResourceTree: {
		Kind:      ResourceTree,
		Drops:     []Drop{{Item: ItemWood, Min: 1, Max: 3}},
		RespawnMs: 300_000,
		GatherMs:  2500,
	},
	ResourceRock: {
		Kind: ResourceRock,
		Drops: []Drop{
			{Item: ItemStone, Min: 1, Max: 2},
			{Item: ItemIronOre, Min: 0, Max: 1},
		},
		RespawnMs: 480_000,
		GatherMs:  3000,
	},
	ResourceBerries: {
		Kind:      ResourceBerries,
		Drops:     []Drop{{Item: ItemBerries, Min: 2, Max: 5}},
		RespawnMs: 180_000,
		GatherMs:  1500,
	},
	ResourceAnimal: {
		Kind:      ResourceAnimal,
		Drops:     []Drop{{Item: ItemRawMeat, Min: 1, Max: 2}},
		RespawnMs: 600_000,
		GatherMs:  2000,
	},
	ResourceWheatField: {
		Kind:      ResourceWheatField,
		Drops:     []Drop{{Item: ItemWheat, Min: 2, Max: 5}},
		RespawnMs: 240_000,
		GatherMs:  2000,
	},
	ResourceCoalSeam: {
		Kind:      ResourceCoalSeam,
		Drops:     []Drop{{Item: ItemCoal, Min: 1, Max: 2}},
		RespawnMs: 480_000,
		GatherMs:  3500,
	},
	ResourceFishSpot: {
		Kind: ResourceFishSpot,
		Drops: []Drop{
			{Item: ItemWater, Min: 1, Max: 2},
			{Item: ItemRawFish, Min: 1, Max: 2, ToolRequired: ItemFishingRod},
		},
		RespawnMs: 300_000,
		GatherMs:  2500,
	},
}

// ResourceCounts is how many nodes of each kind a fresh world gets.
var ResourceCounts = map[ResourceKind]int{
	ResourceTree:       400,
	ResourceRock:       150,
	ResourceBerries:    250,
	ResourceAnimal:     80,
	ResourceWheatField: 150,
	ResourceCoalSeam:   50,
	ResourceFishSpot:   80,
}
