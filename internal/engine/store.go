package engine

import (
	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/persistence"
)

// Store is the durable state the room reads at startup and writes through
// on structural changes. *persistence.DB implements it.
type Store interface {
	GetPlayer(uuid string) (*persistence.PlayerRecord, error)
	SavePlayer(rec *persistence.PlayerRecord) error
	SavePlayers(recs []*persistence.PlayerRecord) error

	Listings() ([]persistence.ListingRecord, error)
	SaveListing(rec persistence.ListingRecord) error
	UpdateListingQuantity(id string, qty int) error
	DeleteListing(id string) error

	Structures(kind economy.StructureKind) ([]persistence.StructureRecord, error)
	SaveStructure(rec persistence.StructureRecord) error
	DeleteStructure(kind economy.StructureKind, id string) error

	Plots() ([]persistence.PlotRecord, error)
	SavePlot(rec persistence.PlotRecord) error

	Resources() ([]persistence.ResourceRecord, error)
	SaveResources(recs []persistence.ResourceRecord) error

	WorldState(key string) (string, bool, error)
	SetWorldState(key, value string) error
	SetWorldStates(values map[string]string) error
}

var _ Store = (*persistence.DB)(nil)
