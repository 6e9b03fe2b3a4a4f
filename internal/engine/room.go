// Package engine runs the shared world: the room that owns all state, the
// timed-action scheduler, the action handlers and the event loop that
// serialises ticks and player input.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/talgya/hearthstead/internal/agents"
	"github.com/talgya/hearthstead/internal/config"
	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/protocol"
	"github.com/talgya/hearthstead/internal/world"
)

// maxEvents bounds the recent-events ring.
const maxEvents = 200

// Room holds the complete world state and wires systems together. It is
// not safe for concurrent use; Loop is its only caller in production.
type Room struct {
	cfg   *config.Config
	store Store
	out   protocol.Broadcaster
	rng   *rand.Rand

	st    *world.State
	sched *Scheduler
	ai    *agents.Manager
	now   int64 // room clock, ms since start

	events []Event

	// OnAction observes every handled action, accepted or not.
	OnAction func(kind protocol.ActionKind, accepted bool)
}

// Event is a notable occurrence in the world.
type Event struct {
	GameTime    int64  `json:"game_time"`
	Description string `json:"description"`
	Category    string `json:"category"` // "death", "tech", "election", "plot", "market"
}

// NewRoom creates an empty room. Call Load before the first Step.
func NewRoom(cfg *config.Config, store Store, out protocol.Broadcaster, rng *rand.Rand) *Room {
	if out == nil {
		out = protocol.Discard{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.World.Seed))
	}
	return &Room{
		cfg:   cfg,
		store: store,
		out:   out,
		rng:   rng,
		st:    world.NewState(),
		sched: NewScheduler(),
	}
}

// State exposes the registry to the AI engine and read-side queries.
func (r *Room) State() *world.State { return r.st }

// Now returns the room clock in milliseconds.
func (r *Room) Now() int64 { return r.now }

// Pending reports whether the actor has a timed action in flight.
func (r *Room) Pending(actor string) bool { return r.sched.Busy(actor) }

// Config returns the room's configuration.
func (r *Room) Config() *config.Config { return r.cfg }

// Load restores persisted world state (generating the resource field on
// first boot) and spawns the AI roster.
func (r *Room) Load() error {
	if err := r.restore(); err != nil {
		return err
	}
	r.ai = agents.NewManager(r, agents.Config{
		Count:     r.cfg.World.AICount,
		WorldSize: r.cfg.World.Size,
		HungerMax: r.cfg.World.HungerMax,
		MarketX:   r.cfg.World.MarketX,
		MarketY:   r.cfg.World.MarketY,
	}, r.rng)
	r.ai.SpawnAll()

	slog.Info("world ready",
		"resources", r.st.ResourceCount(),
		"campfires", len(r.st.StructuresOf(economy.StructureCampfire)),
		"listings", len(r.st.Listings()),
		"plots", len(r.st.Plots()),
		"ai", r.cfg.World.AICount,
		"tech", economy.TechName(r.st.Scalars().TechLevel),
	)
	return nil
}

// ── Tick ──────────────────────────────────────────────────────────────

// Step advances the world by deltaMs: clock and due timed actions, hunger,
// election, online count, then the AI engine.
func (r *Room) Step(deltaMs int64) {
	if deltaMs < 0 {
		deltaMs = 0
	}
	r.now += deltaMs
	r.st.UpdateScalars(func(s *world.Scalars) { s.GameTime += deltaMs })
	r.runDue()

	r.tickHunger(deltaMs)
	r.tickElection()

	if n := r.st.HumanCount(); n != r.st.Scalars().OnlinePlayers {
		r.st.UpdateScalars(func(s *world.Scalars) { s.OnlinePlayers = n })
	}

	if r.ai != nil {
		r.ai.Tick(deltaMs)
	}
}

func (r *Room) runDue() {
	for _, t := range r.sched.Due(r.now) {
		switch t.Kind {
		case TaskGather:
			r.completeGather(t)
		default:
			r.completeProcess(t)
		}
	}
	for _, id := range r.sched.DueRespawns(r.now) {
		if res := r.st.Resource(id); res != nil {
			r.st.SetDepleted(res, false)
		}
	}
}

// ── Sessions ──────────────────────────────────────────────────────────

// Join admits a human player. stableID and name may be empty: a fresh
// stable id is minted and the name falls back to the saved record, then to
// Player_<id prefix>.
func (r *Room) Join(sessionID, stableID, name string) *world.Player {
	if stableID == "" {
		stableID = uuid.NewString()
	}
	rec, err := r.store.GetPlayer(stableID)
	if err != nil {
		slog.Error("load player", "uuid", stableID, "error", err)
		rec = nil
	}

	if name == "" && rec != nil {
		name = rec.Name
	}
	if name == "" {
		prefix := stableID
		if len(prefix) > 6 {
			prefix = prefix[:6]
		}
		name = "Player_" + prefix
	}

	p := world.NewPlayer(sessionID, stableID, name)
	p.X, p.Y = r.spawnPoint()
	p.Hunger = r.cfg.World.HungerMax
	p.Coins = r.cfg.World.StarterCoins
	if rec != nil {
		p.Coins = rec.Coins
	}
	r.st.AddPlayer(p)
	if rec != nil {
		for id, qty := range rec.Inventory {
			r.st.Give(p, id, qty)
		}
		for tool, uses := range rec.ToolDurability {
			if uses > 0 {
				r.st.SetDurability(p, tool, uses)
			}
		}
	}

	slog.Info("player joined", "name", p.Name, "session", sessionID, "returning", rec != nil)
	return p
}

// Leave persists a human player, cancels their pending gather and removes
// them from the world.
func (r *Room) Leave(sessionID string) {
	p := r.st.Player(sessionID)
	if p == nil {
		return
	}
	if !p.IsAI {
		r.savePlayer(p)
	}
	r.cancelGather(sessionID)
	r.st.RemovePlayer(sessionID)
	slog.Info("player left", "name", p.Name, "session", sessionID)
}

func (r *Room) spawnPoint() (float64, float64) {
	t := r.cfg.World.TileSize
	return 400 + float64(r.rng.Intn(12))*t, 400 + float64(r.rng.Intn(12))*t
}

// ── Dispatch ──────────────────────────────────────────────────────────

// Handle applies one action for a session and reports whether it changed
// anything. Invalid actions are ignored without error.
func (r *Room) Handle(sessionID string, a protocol.Action) bool {
	p := r.st.Player(sessionID)
	if p == nil || a == nil {
		return false
	}
	ok := r.dispatch(p, a)
	if !ok {
		slog.Debug("action rejected", "session", sessionID, "kind", a.Kind())
	}
	if r.OnAction != nil {
		r.OnAction(a.Kind(), ok)
	}
	return ok
}

func (r *Room) dispatch(p *world.Player, a protocol.Action) bool {
	switch a := a.(type) {
	case protocol.Move:
		r.move(p, a.X, a.Y)
		return true
	case protocol.Gather:
		return r.beginGather(p, a.ResourceID)
	case protocol.Eat:
		return r.eat(p, a.ItemID)
	case protocol.Craft:
		return r.craft(p, a.RecipeID)
	case protocol.Cook:
		return r.beginCook(p, a.CampfireID, a.ItemID)
	case protocol.CookAdvanced:
		return r.beginCookAdvanced(p, a.CampfireID, a.RecipeID)
	case protocol.Smelt:
		return r.beginSmelt(p, a.ForgeID, a.ItemID)
	case protocol.Blast:
		return r.beginBlast(p, a.BlastFurnaceID, a.RecipeID)
	case protocol.PlaceCampfire:
		return r.placeCampfire(p)
	case protocol.PlaceForge:
		return r.placeForge(p)
	case protocol.PlaceChest:
		return r.placeChest(p)
	case protocol.PlaceBlastFurnace:
		return r.placeBlastFurnace(p)
	case protocol.PlaceWaterWell:
		return r.placeWaterWell(p)
	case protocol.ChestDeposit:
		return r.chestDeposit(p, a.ItemID, a.Quantity)
	case protocol.ChestWithdraw:
		return r.chestWithdraw(p, a.ItemID, a.Quantity)
	case protocol.UseWell:
		return r.useWell(p, a.WellID)
	case protocol.Demolish:
		return r.demolish(p, a.BuildingType, a.BuildingID)
	case protocol.BuyPlot:
		return r.buyPlot(p)
	case protocol.MarketList:
		return r.marketList(p, a.ItemID, a.Quantity, a.PricePerUnit)
	case protocol.MarketBuy:
		return r.marketBuy(p, a.ListingID)
	case protocol.MarketCancel:
		return r.marketCancel(p, a.ListingID)
	case protocol.Chat:
		return r.chat(p, a.Text)
	default:
		slog.Warn("unhandled action variant", "type", fmt.Sprintf("%T", a))
		return false
	}
}

// ── Events ────────────────────────────────────────────────────────────

// EmitEvent records a notable occurrence.
func (r *Room) EmitEvent(category, description string) {
	r.events = append(r.events, Event{
		GameTime:    r.st.Scalars().GameTime,
		Description: description,
		Category:    category,
	})
	if len(r.events) > maxEvents {
		r.events = append([]Event(nil), r.events[len(r.events)-maxEvents:]...)
	}
}

// RecentEvents returns up to n of the latest events, newest last.
func (r *Room) RecentEvents(n int) []Event {
	if n <= 0 || n > len(r.events) {
		n = len(r.events)
	}
	out := make([]Event, n)
	copy(out, r.events[len(r.events)-n:])
	return out
}

func (r *Room) broadcast(n protocol.Notification) {
	r.out.Broadcast(n)
}
