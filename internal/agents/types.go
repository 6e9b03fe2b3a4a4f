// Package agents drives the server-side AI players. Agents act on the world
// only through the same action surface human sessions use.
package agents

import (
	"github.com/talgya/hearthstead/internal/protocol"
	"github.com/talgya/hearthstead/internal/world"
)

// Room is the slice of the room controller the AI engine needs.
type Room interface {
	State() *world.State
	Now() int64
	Pending(actor string) bool
	Handle(actor string, a protocol.Action) bool
}

// Role is an agent's economic specialty, fixed at spawn.
type Role uint8

const (
	RoleGatherer Role = iota
	RoleCook
	RoleFarmer
	RoleTrader
)

func (r Role) String() string {
	switch r {
	case RoleGatherer:
		return "gatherer"
	case RoleCook:
		return "cook"
	case RoleFarmer:
		return "farmer"
	case RoleTrader:
		return "trader"
	default:
		return "unknown"
	}
}

// Activity is what an agent is heading off to do.
type Activity string

const (
	Wandering       Activity = "wandering"
	Gathering       Activity = "gathering"
	Cooking         Activity = "cooking"
	CookingAdvanced Activity = "cooking_advanced"
	Smelting        Activity = "smelting"
	Blasting        Activity = "blasting"
	AtWell          Activity = "at_well"
	Buying          Activity = "buying"
	Selling         Activity = "selling"
	Trading         Activity = "trading"
	Building        Activity = "building"
	Eating          Activity = "eating"
)

// Agent is the decision state for one AI player. The player entity itself
// lives in the world registry under the same id.
type Agent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`

	Activity Activity `json:"activity"`
	TargetX  float64  `json:"target_x"`
	TargetY  float64  `json:"target_y"`
	TargetID string   `json:"target_id"` // node, facility or listing
	Recipe   string   `json:"recipe"`    // cook input item or recipe id

	NextDecision int64 `json:"next_decision"` // room clock, ms
	TargetSetAt  int64 `json:"target_set_at"`
}

// Config sizes the roster and the world it roams.
type Config struct {
	Count     int
	WorldSize float64
	HungerMax float64
	MarketX   float64
	MarketY   float64
}
