package engine

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/persistence"
	"github.com/talgya/hearthstead/internal/world"
)

// World state keys.
const (
	keyTechLevel        = "techLevel"
	keyTotalGathers     = "totalGathers"
	keyTotalIronSmelted = "totalIronSmelted"
	keyMayorUUID        = "mayorUuid"
	keyMayorName        = "mayorName"
	keyGameTime         = "gameTime"
	keyLastElectionDay  = "lastElectionDay"
)

// restore loads everything durable into the registry. The resource field
// is generated and saved on first boot; depletion is never restored.
func (r *Room) restore() error {
	if err := r.restoreResources(); err != nil {
		return err
	}

	for _, kind := range economy.StructureKinds {
		recs, err := r.store.Structures(kind)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			s := &world.Structure{ID: rec.ID, Kind: kind, OwnerID: rec.OwnerUUID, X: rec.X, Y: rec.Y}
			r.st.AddStructure(s)
			if kind == economy.StructureChest {
				for id, qty := range rec.Inventory {
					r.st.StoreInChest(s, id, qty)
				}
			}
		}
	}

	plots, err := r.store.Plots()
	if err != nil {
		return err
	}
	for _, rec := range plots {
		r.st.AddPlot(&world.Plot{ID: rec.ID, OwnerID: rec.OwnerUUID, OwnerName: rec.OwnerName, X: rec.X, Y: rec.Y})
	}

	listings, err := r.store.Listings()
	if err != nil {
		return err
	}
	for _, rec := range listings {
		r.st.AddListing(&world.Listing{
			ID:           rec.ID,
			SellerID:     rec.SellerUUID,
			SellerName:   rec.SellerName,
			ItemID:       rec.ItemID,
			Quantity:     rec.Quantity,
			PricePerUnit: rec.PricePerUnit,
		})
	}

	return r.restoreScalars()
}

func (r *Room) restoreResources() error {
	recs, err := r.store.Resources()
	if err != nil {
		return err
	}
	if len(recs) > 0 {
		for _, rec := range recs {
			r.st.AddResource(&world.Resource{ID: rec.ID, Kind: rec.Kind, X: rec.X, Y: rec.Y})
		}
		return nil
	}

	nodes := world.Generate(world.GenConfig{
		Size:     int(r.cfg.World.Size),
		TileSize: int(r.cfg.World.TileSize),
		Seed:     r.cfg.World.Seed,
	})
	out := make([]persistence.ResourceRecord, 0, len(nodes))
	for _, n := range nodes {
		r.st.AddResource(n)
		out = append(out, persistence.ResourceRecord{ID: n.ID, Kind: n.Kind, X: n.X, Y: n.Y})
	}
	if err := r.store.SaveResources(out); err != nil {
		return fmt.Errorf("save generated resources: %w", err)
	}
	slog.Info("resource field generated", "nodes", len(nodes), "seed", r.cfg.World.Seed)
	return nil
}

func (r *Room) restoreScalars() error {
	get := func(key string) (string, bool) {
		v, ok, err := r.store.WorldState(key)
		if err != nil {
			slog.Error("load world state", "key", key, "error", err)
			return "", false
		}
		return v, ok
	}
	atoi := func(key string) (int64, bool) {
		v, ok := get(key)
		if !ok {
			return 0, false
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			slog.Warn("bad world state value", "key", key, "value", v)
			return 0, false
		}
		return n, true
	}

	r.st.UpdateScalars(func(s *world.Scalars) {
		if n, ok := atoi(keyTechLevel); ok {
			s.TechLevel = int(n)
		}
		if n, ok := atoi(keyTotalGathers); ok {
			s.TotalGathers = int(n)
		}
		if n, ok := atoi(keyTotalIronSmelted); ok {
			s.TotalIronSmelted = int(n)
		}
		if n, ok := atoi(keyGameTime); ok {
			s.GameTime = n
		}
		if n, ok := atoi(keyLastElectionDay); ok {
			s.LastElectionDay = n
		}
		id, okID := get(keyMayorUUID)
		name, okName := get(keyMayorName)
		if okID && okName && id != "" {
			s.MayorID, s.MayorName = id, name
		}
	})
	return nil
}

// record converts a live player into its durable form.
func record(p *world.Player) *persistence.PlayerRecord {
	rec := &persistence.PlayerRecord{
		UUID:           p.StableID,
		Name:           p.Name,
		Coins:          p.Coins,
		Inventory:      make(map[economy.ItemID]int, len(p.Inventory)),
		ToolDurability: make(map[economy.ItemID]int, len(p.ToolDurability)),
	}
	for _, id := range p.Inventory.Items() {
		rec.Inventory[id] = p.Inventory.Count(id)
	}
	for tool, uses := range p.ToolDurability {
		rec.ToolDurability[tool] = uses
	}
	return rec
}

func (r *Room) savePlayer(p *world.Player) {
	if err := r.store.SavePlayer(record(p)); err != nil {
		slog.Error("save player", "uuid", p.StableID, "error", err)
	}
}

// Autosave writes every online human and the world scalars. It returns
// how many players were saved.
func (r *Room) Autosave() (int, error) {
	var recs []*persistence.PlayerRecord
	for _, p := range r.st.Players() {
		if !p.IsAI {
			recs = append(recs, record(p))
		}
	}
	if err := r.store.SavePlayers(recs); err != nil {
		return 0, err
	}

	s := r.st.Scalars()
	err := r.store.SetWorldStates(map[string]string{
		keyTechLevel:        strconv.Itoa(s.TechLevel),
		keyTotalGathers:     strconv.Itoa(s.TotalGathers),
		keyTotalIronSmelted: strconv.Itoa(s.TotalIronSmelted),
		keyMayorUUID:        s.MayorID,
		keyMayorName:        s.MayorName,
		keyGameTime:         strconv.FormatInt(s.GameTime, 10),
		keyLastElectionDay:  strconv.FormatInt(s.LastElectionDay, 10),
	})
	if err != nil {
		return len(recs), err
	}
	return len(recs), nil
}

// Status is a read-only summary of the room.
type Status struct {
	GameTime         int64          `json:"game_time"`
	Clock            string         `json:"clock"`
	TechLevel        int            `json:"tech_level"`
	TechName         string         `json:"tech_name"`
	TotalGathers     int            `json:"total_gathers"`
	TotalIronSmelted int            `json:"total_iron_smelted"`
	MayorName        string         `json:"mayor_name"`
	OnlinePlayers    int            `json:"online_players"`
	AIPlayers        int            `json:"ai_players"`
	Resources        int            `json:"resources"`
	Structures       map[string]int `json:"structures"`
	Plots            int            `json:"plots"`
	Listings         int            `json:"listings"`
	PendingTasks     int            `json:"pending_tasks"`
}

// Status summarises the room for the HTTP API.
func (r *Room) Status() Status {
	s := r.st.Scalars()
	humans := r.st.HumanCount()
	st := Status{
		GameTime:         s.GameTime,
		Clock:            GameClock(s.GameTime, r.cfg.World.MsPerGameDay),
		TechLevel:        s.TechLevel,
		TechName:         economy.TechName(s.TechLevel),
		TotalGathers:     s.TotalGathers,
		TotalIronSmelted: s.TotalIronSmelted,
		MayorName:        s.MayorName,
		OnlinePlayers:    humans,
		AIPlayers:        len(r.st.Players()) - humans,
		Resources:        r.st.ResourceCount(),
		Structures:       make(map[string]int, len(economy.StructureKinds)),
		Plots:            len(r.st.Plots()),
		Listings:         len(r.st.Listings()),
		PendingTasks:     r.sched.Len(),
	}
	for _, k := range economy.StructureKinds {
		st.Structures[string(k)] = len(r.st.StructuresOf(k))
	}
	return st
}
