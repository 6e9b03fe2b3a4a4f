// Package persistence provides SQLite-backed durable storage for players,
// market listings, structures, land plots, resource nodes and world scalars.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hearthstead/internal/economy"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; the room loop is the only caller that matters.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		uuid TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		coins INTEGER NOT NULL DEFAULT 0,
		inventory TEXT NOT NULL DEFAULT '{}',
		tool_durability TEXT NOT NULL DEFAULT '{}',
		updated_at INTEGER NOT NULL DEFAULT (unixepoch())
	);

	CREATE TABLE IF NOT EXISTS market_listings (
		id TEXT PRIMARY KEY,
		seller_uuid TEXT NOT NULL,
		seller_name TEXT NOT NULL,
		item_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price_per_unit INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS structures (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		owner_uuid TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		inventory TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS land_plots (
		id TEXT PRIMARY KEY,
		owner_uuid TEXT NOT NULL,
		owner_name TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_structures_kind ON structures(kind);
	CREATE INDEX IF NOT EXISTS idx_listings_seller ON market_listings(seller_uuid);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// ── Players ───────────────────────────────────────────────────────────

// PlayerRecord is the durable part of a human player.
type PlayerRecord struct {
	UUID           string
	Name           string
	Coins          int
	Inventory      map[economy.ItemID]int
	ToolDurability map[economy.ItemID]int
}

type playerRow struct {
	UUID           string `db:"uuid"`
	Name           string `db:"name"`
	Coins          int    `db:"coins"`
	Inventory      string `db:"inventory"`
	ToolDurability string `db:"tool_durability"`
}

// GetPlayer loads a player by stable id. Unknown ids return nil, nil.
func (db *DB) GetPlayer(uuid string) (*PlayerRecord, error) {
	var row playerRow
	err := db.conn.Get(&row,
		"SELECT uuid, name, coins, inventory, tool_durability FROM players WHERE uuid = ?", uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get player %s: %w", uuid, err)
	}

	rec := &PlayerRecord{UUID: row.UUID, Name: row.Name, Coins: row.Coins}
	if rec.Inventory, err = decodeCounts(row.Inventory); err != nil {
		return nil, fmt.Errorf("player %s inventory: %w", uuid, err)
	}
	if rec.ToolDurability, err = decodeCounts(row.ToolDurability); err != nil {
		return nil, fmt.Errorf("player %s tool durability: %w", uuid, err)
	}
	return rec, nil
}

// SavePlayer upserts one player record.
func (db *DB) SavePlayer(rec *PlayerRecord) error {
	return db.savePlayer(db.conn, rec)
}

// SavePlayers upserts a batch of player records in one transaction.
func (db *DB) SavePlayers(recs []*PlayerRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rec := range recs {
		if err := db.savePlayer(tx, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (db *DB) savePlayer(ex sqlx.Execer, rec *PlayerRecord) error {
	_, err := ex.Exec(`INSERT OR REPLACE INTO players
		(uuid, name, coins, inventory, tool_durability, updated_at)
		VALUES (?, ?, ?, ?, ?, unixepoch())`,
		rec.UUID, rec.Name, rec.Coins, encodeCounts(rec.Inventory), encodeCounts(rec.ToolDurability),
	)
	if err != nil {
		return fmt.Errorf("save player %s: %w", rec.UUID, err)
	}
	return nil
}

// ── Market listings ───────────────────────────────────────────────────

// ListingRecord is a persisted market listing.
type ListingRecord struct {
	ID           string         `db:"id"`
	SellerUUID   string         `db:"seller_uuid"`
	SellerName   string         `db:"seller_name"`
	ItemID       economy.ItemID `db:"item_id"`
	Quantity     int            `db:"quantity"`
	PricePerUnit int            `db:"price_per_unit"`
}

// Listings returns every listing.
func (db *DB) Listings() ([]ListingRecord, error) {
	var out []ListingRecord
	err := db.conn.Select(&out, `SELECT id, seller_uuid, seller_name, item_id, quantity, price_per_unit
		FROM market_listings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}
	return out, nil
}

// SaveListing upserts a listing.
func (db *DB) SaveListing(rec ListingRecord) error {
	_, err := db.conn.NamedExec(`INSERT OR REPLACE INTO market_listings
		(id, seller_uuid, seller_name, item_id, quantity, price_per_unit)
		VALUES (:id, :seller_uuid, :seller_name, :item_id, :quantity, :price_per_unit)`, rec)
	if err != nil {
		return fmt.Errorf("save listing %s: %w", rec.ID, err)
	}
	return nil
}

// UpdateListingQuantity sets the remaining quantity; zero or less deletes
// the listing.
func (db *DB) UpdateListingQuantity(id string, qty int) error {
	if qty <= 0 {
		return db.DeleteListing(id)
	}
	if _, err := db.conn.Exec("UPDATE market_listings SET quantity = ? WHERE id = ?", qty, id); err != nil {
		return fmt.Errorf("update listing %s: %w", id, err)
	}
	return nil
}

// DeleteListing removes a listing.
func (db *DB) DeleteListing(id string) error {
	if _, err := db.conn.Exec("DELETE FROM market_listings WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete listing %s: %w", id, err)
	}
	return nil
}

// ── Structures ────────────────────────────────────────────────────────

// StructureRecord is a persisted building. Inventory is only used by chests.
type StructureRecord struct {
	ID        string
	Kind      economy.StructureKind
	OwnerUUID string
	X, Y      float64
	Inventory map[economy.ItemID]int
}

type structureRow struct {
	ID        string  `db:"id"`
	Kind      string  `db:"kind"`
	OwnerUUID string  `db:"owner_uuid"`
	X         float64 `db:"x"`
	Y         float64 `db:"y"`
	Inventory string  `db:"inventory"`
}

// Structures returns every structure of one kind.
func (db *DB) Structures(kind economy.StructureKind) ([]StructureRecord, error) {
	var rows []structureRow
	err := db.conn.Select(&rows,
		"SELECT id, kind, owner_uuid, x, y, inventory FROM structures WHERE kind = ? ORDER BY id", kind)
	if err != nil {
		return nil, fmt.Errorf("load %s structures: %w", kind, err)
	}

	out := make([]StructureRecord, 0, len(rows))
	for _, r := range rows {
		inv, err := decodeCounts(r.Inventory)
		if err != nil {
			return nil, fmt.Errorf("structure %s inventory: %w", r.ID, err)
		}
		out = append(out, StructureRecord{
			ID:        r.ID,
			Kind:      economy.StructureKind(r.Kind),
			OwnerUUID: r.OwnerUUID,
			X:         r.X,
			Y:         r.Y,
			Inventory: inv,
		})
	}
	return out, nil
}

// SaveStructure upserts a structure.
func (db *DB) SaveStructure(rec StructureRecord) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO structures
		(id, kind, owner_uuid, x, y, inventory) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.OwnerUUID, rec.X, rec.Y, encodeCounts(rec.Inventory),
	)
	if err != nil {
		return fmt.Errorf("save %s %s: %w", rec.Kind, rec.ID, err)
	}
	return nil
}

// DeleteStructure removes a structure.
func (db *DB) DeleteStructure(kind economy.StructureKind, id string) error {
	if _, err := db.conn.Exec("DELETE FROM structures WHERE id = ? AND kind = ?", id, kind); err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	return nil
}

// ── Land plots ────────────────────────────────────────────────────────

// PlotRecord is a persisted land plot.
type PlotRecord struct {
	ID        string  `db:"id"`
	OwnerUUID string  `db:"owner_uuid"`
	OwnerName string  `db:"owner_name"`
	X         float64 `db:"x"`
	Y         float64 `db:"y"`
}

// Plots returns every land plot.
func (db *DB) Plots() ([]PlotRecord, error) {
	var out []PlotRecord
	if err := db.conn.Select(&out, "SELECT id, owner_uuid, owner_name, x, y FROM land_plots ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load plots: %w", err)
	}
	return out, nil
}

// SavePlot upserts a land plot.
func (db *DB) SavePlot(rec PlotRecord) error {
	_, err := db.conn.NamedExec(`INSERT OR REPLACE INTO land_plots (id, owner_uuid, owner_name, x, y)
		VALUES (:id, :owner_uuid, :owner_name, :x, :y)`, rec)
	if err != nil {
		return fmt.Errorf("save plot %s: %w", rec.ID, err)
	}
	return nil
}

// ── Resources ─────────────────────────────────────────────────────────

// ResourceRecord is a persisted resource node. Depletion is not stored.
type ResourceRecord struct {
	ID   string               `db:"id"`
	Kind economy.ResourceKind `db:"kind"`
	X    float64              `db:"x"`
	Y    float64              `db:"y"`
}

// Resources returns every resource node.
func (db *DB) Resources() ([]ResourceRecord, error) {
	var out []ResourceRecord
	if err := db.conn.Select(&out, "SELECT id, kind, x, y FROM resources"); err != nil {
		return nil, fmt.Errorf("load resources: %w", err)
	}
	return out, nil
}

// SaveResources writes a batch of resource nodes in one transaction.
func (db *DB) SaveResources(recs []ResourceRecord) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex("INSERT OR REPLACE INTO resources (id, kind, x, y) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.Exec(r.ID, r.Kind, r.X, r.Y); err != nil {
			return fmt.Errorf("insert resource %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("resources saved", "count", len(recs))
	return nil
}

// ── World state ───────────────────────────────────────────────────────

// WorldState reads a scalar. ok is false when the key was never set.
func (db *DB) WorldState(key string) (value string, ok bool, err error) {
	err = db.conn.Get(&value, "SELECT value FROM world_state WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get world state %s: %w", key, err)
	}
	return value, true, nil
}

// SetWorldState writes a scalar.
func (db *DB) SetWorldState(key, value string) error {
	if _, err := db.conn.Exec("INSERT OR REPLACE INTO world_state (key, value) VALUES (?, ?)", key, value); err != nil {
		return fmt.Errorf("set world state %s: %w", key, err)
	}
	return nil
}

// SetWorldStates writes several scalars in one transaction.
func (db *DB) SetWorldStates(values map[string]string) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for k, v := range values {
		if _, err := tx.Exec("INSERT OR REPLACE INTO world_state (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("set world state %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// ── helpers ───────────────────────────────────────────────────────────

func encodeCounts(m map[economy.ItemID]int) string {
	clean := make(map[economy.ItemID]int, len(m))
	for k, v := range m {
		if v > 0 {
			clean[k] = v
		}
	}
	b, _ := json.Marshal(clean)
	return string(b)
}

func decodeCounts(s string) (map[economy.ItemID]int, error) {
	out := make(map[economy.ItemID]int)
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	for k, v := range out {
		if v <= 0 {
			delete(out, k)
		}
	}
	return out, nil
}
