// Package protocol defines the wire messages exchanged with game clients:
// the closed set of inbound player actions and the outbound notifications.
package protocol

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/talgya/hearthstead/internal/economy"
)

// ActionKind is the inbound message discriminator.
type ActionKind string

const (
	KindMove              ActionKind = "move"
	KindGather            ActionKind = "gather"
	KindEat               ActionKind = "eat"
	KindPlaceCampfire     ActionKind = "place_campfire"
	KindCook              ActionKind = "cook"
	KindCookAdvanced      ActionKind = "cook_advanced"
	KindCraft             ActionKind = "craft"
	KindMarketList        ActionKind = "market_list"
	KindMarketBuy         ActionKind = "market_buy"
	KindMarketCancel      ActionKind = "market_cancel"
	KindChat              ActionKind = "chat"
	KindPlaceForge        ActionKind = "place_forge"
	KindSmelt             ActionKind = "smelt"
	KindPlaceChest        ActionKind = "place_chest"
	KindChestDeposit      ActionKind = "chest_deposit"
	KindChestWithdraw     ActionKind = "chest_withdraw"
	KindPlaceBlastFurnace ActionKind = "place_blast_furnace"
	KindBlast             ActionKind = "blast"
	KindPlaceWaterWell    ActionKind = "place_water_well"
	KindUseWell           ActionKind = "use_well"
	KindBuyPlot           ActionKind = "buy_plot"
	KindDemolish          ActionKind = "demolish"
)

// ErrUnknownAction is returned by Decode for an unrecognised type.
var ErrUnknownAction = errors.New("unknown action type")

// Action is an inbound player action. The set of implementations is closed.
type Action interface {
	Kind() ActionKind
	isAction()
}

type (
	Move struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	Gather struct {
		ResourceID string `json:"resourceId"`
	}
	Eat struct {
		ItemID economy.ItemID `json:"itemId"`
	}
	PlaceCampfire struct{}
	Cook          struct {
		CampfireID string         `json:"campfireId"`
		ItemID     economy.ItemID `json:"itemId"`
	}
	CookAdvanced struct {
		CampfireID string `json:"campfireId"`
		RecipeID   string `json:"recipeId"`
	}
	Craft struct {
		RecipeID string `json:"recipeId"`
	}
	MarketList struct {
		ItemID       economy.ItemID `json:"itemId"`
		Quantity     int            `json:"quantity"`
		PricePerUnit int            `json:"pricePerUnit"`
	}
	MarketBuy struct {
		ListingID string `json:"listingId"`
	}
	MarketCancel struct {
		ListingID string `json:"listingId"`
	}
	Chat struct {
		Text string `json:"text"`
	}
	PlaceForge struct{}
	Smelt      struct {
		ForgeID string         `json:"forgeId"`
		ItemID  economy.ItemID `json:"itemId"`
	}
	PlaceChest   struct{}
	ChestDeposit struct {
		ItemID   economy.ItemID `json:"itemId"`
		Quantity int            `json:"quantity"`
	}
	ChestWithdraw struct {
		ItemID   economy.ItemID `json:"itemId"`
		Quantity int            `json:"quantity"`
	}
	PlaceBlastFurnace struct{}
	Blast             struct {
		BlastFurnaceID string `json:"blastFurnaceId"`
		RecipeID       string `json:"recipeId"`
	}
	PlaceWaterWell struct{}
	UseWell        struct {
		WellID string `json:"wellId"`
	}
	BuyPlot  struct{}
	Demolish struct {
		BuildingType economy.StructureKind `json:"buildingType"`
		BuildingID   string                `json:"buildingId"`
	}
)

func (Move) Kind() ActionKind              { return KindMove }
func (Gather) Kind() ActionKind            { return KindGather }
func (Eat) Kind() ActionKind               { return KindEat }
func (PlaceCampfire) Kind() ActionKind     { return KindPlaceCampfire }
func (Cook) Kind() ActionKind              { return KindCook }
func (CookAdvanced) Kind() ActionKind      { return KindCookAdvanced }
func (Craft) Kind() ActionKind             { return KindCraft }
func (MarketList) Kind() ActionKind        { return KindMarketList }
func (MarketBuy) Kind() ActionKind         { return KindMarketBuy }
func (MarketCancel) Kind() ActionKind      { return KindMarketCancel }
func (Chat) Kind() ActionKind              { return KindChat }
func (PlaceForge) Kind() ActionKind        { return KindPlaceForge }
func (Smelt) Kind() ActionKind             { return KindSmelt }
func (PlaceChest) Kind() ActionKind        { return KindPlaceChest }
func (ChestDeposit) Kind() ActionKind      { return KindChestDeposit }
func (ChestWithdraw) Kind() ActionKind     { return KindChestWithdraw }
func (PlaceBlastFurnace) Kind() ActionKind { return KindPlaceBlastFurnace }
func (Blast) Kind() ActionKind             { return KindBlast }
func (PlaceWaterWell) Kind() ActionKind    { return KindPlaceWaterWell }
func (UseWell) Kind() ActionKind           { return KindUseWell }
func (BuyPlot) Kind() ActionKind           { return KindBuyPlot }
func (Demolish) Kind() ActionKind          { return KindDemolish }

func (Move) isAction()              {}
func (Gather) isAction()            {}
func (Eat) isAction()               {}
func (PlaceCampfire) isAction()     {}
func (Cook) isAction()              {}
func (CookAdvanced) isAction()      {}
func (Craft) isAction()             {}
func (MarketList) isAction()        {}
func (MarketBuy) isAction()         {}
func (MarketCancel) isAction()      {}
func (Chat) isAction()              {}
func (PlaceForge) isAction()        {}
func (Smelt) isAction()             {}
func (PlaceChest) isAction()        {}
func (ChestDeposit) isAction()      {}
func (ChestWithdraw) isAction()     {}
func (PlaceBlastFurnace) isAction() {}
func (Blast) isAction()             {}
func (PlaceWaterWell) isAction()    {}
func (UseWell) isAction()           {}
func (BuyPlot) isAction()           {}
func (Demolish) isAction()          {}

// newAction maps each kind to a zero value of its variant.
var newAction = map[ActionKind]func() Action{
	KindMove:              func() Action { return &Move{} },
	KindGather:            func() Action { return &Gather{} },
	KindEat:               func() Action { return &Eat{} },
	KindPlaceCampfire:     func() Action { return &PlaceCampfire{} },
	KindCook:              func() Action { return &Cook{} },
	KindCookAdvanced:      func() Action { return &CookAdvanced{} },
	KindCraft:             func() Action { return &Craft{} },
	KindMarketList:        func() Action { return &MarketList{} },
	KindMarketBuy:         func() Action { return &MarketBuy{} },
	KindMarketCancel:      func() Action { return &MarketCancel{} },
	KindChat:              func() Action { return &Chat{} },
	KindPlaceForge:        func() Action { return &PlaceForge{} },
	KindSmelt:             func() Action { return &Smelt{} },
	KindPlaceChest:        func() Action { return &PlaceChest{} },
	KindChestDeposit:      func() Action { return &ChestDeposit{} },
	KindChestWithdraw:     func() Action { return &ChestWithdraw{} },
	KindPlaceBlastFurnace: func() Action { return &PlaceBlastFurnace{} },
	KindBlast:             func() Action { return &Blast{} },
	KindPlaceWaterWell:    func() Action { return &PlaceWaterWell{} },
	KindUseWell:           func() Action { return &UseWell{} },
	KindBuyPlot:           func() Action { return &BuyPlot{} },
	KindDemolish:          func() Action { return &Demolish{} },
}

// Kinds returns every inbound action kind, sorted.
func Kinds() []ActionKind {
	out := make([]ActionKind, 0, len(newAction))
	for k := range newAction {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

//go:embed action.schema.json
var actionSchemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func actionSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("action.schema.json", strings.NewReader(actionSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add action schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile("action.schema.json")
	})
	return schema, schemaErr
}

// Envelope is the inbound wire frame: {"type": "gather", "data": {...}}.
type Envelope struct {
	Type ActionKind      `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode parses and validates one inbound frame. Payloads are checked
// against the action schema before being bound to their variant, so a
// returned Action always carries every field its kind requires.
func Decode(b []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	mk, ok := newAction[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
	}

	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	s, err := actionSchema()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate %s: %w", env.Type, err)
	}

	ptr := mk()
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, ptr); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
	}
	return deref(ptr), nil
}

// EncodeAction renders an action as an inbound frame. Test clients and the
// load generator use it.
func EncodeAction(a Action) ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: a.Kind(), Data: data})
}

// deref turns the pointer built by newAction back into the value variant.
func deref(a Action) Action {
	switch v := a.(type) {
	case *Move:
		return *v
	case *Gather:
		return *v
	case *Eat:
		return *v
	case *PlaceCampfire:
		return *v
	case *Cook:
		return *v
	case *CookAdvanced:
		return *v
	case *Craft:
		return *v
	case *MarketList:
		return *v
	case *MarketBuy:
		return *v
	case *MarketCancel:
		return *v
	case *Chat:
		return *v
	case *PlaceForge:
		return *v
	case *Smelt:
		return *v
	case *PlaceChest:
		return *v
	case *ChestDeposit:
		return *v
	case *ChestWithdraw:
		return *v
	case *PlaceBlastFurnace:
		return *v
	case *Blast:
		return *v
	case *PlaceWaterWell:
		return *v
	case *UseWell:
		return *v
	case *BuyPlot:
		return *v
	case *Demolish:
		return *v
	}
	panic(fmt.Sprintf("protocol: unhandled action %T", a))
}
