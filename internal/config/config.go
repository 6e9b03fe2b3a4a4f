// Package config loads the server's tunable constants.
// Values come from built-in defaults, then an optional YAML file, then the
// environment (a .env file is honoured when present).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/talgya/hearthstead/internal/economy"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
	World    WorldConfig    `yaml:"world"`
	Costs    CostConfig     `yaml:"costs"`
	Tech     TechConfig     `yaml:"tech"`
	Plots    PlotConfig     `yaml:"plots"`
	Tools    ToolConfig     `yaml:"tools"`
	Election ElectionConfig `yaml:"election"`
	Autosave AutosaveConfig `yaml:"autosave"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	AdminKey     string        `yaml:"admin_key"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	SyncInterval time.Duration `yaml:"sync_interval"` // websocket state diff cadence
	CORSOrigins  []string      `yaml:"cors_origins"`
}

type StorageConfig struct {
	DBPath     string `yaml:"db_path"`
	JournalDir string `yaml:"journal_dir"` // empty disables the event journal
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type WorldConfig struct {
	Size             float64 `yaml:"size"`      // world edge in pixels
	TileSize         float64 `yaml:"tile_size"` // pixels
	TickRate         int     `yaml:"tick_rate"` // ticks per second
	GatherRange      float64 `yaml:"gather_range"`
	HungerMax        float64 `yaml:"hunger_max"`
	HungerDrainPerMs float64 `yaml:"hunger_drain_per_ms"`
	MsPerGameDay     int64   `yaml:"ms_per_game_day"`
	StarterCoins     int     `yaml:"starter_coins"`
	Seed             int64   `yaml:"seed"`
	AICount          int     `yaml:"ai_count"`
	MarketX          float64 `yaml:"market_x"` // where AI traders meet
	MarketY          float64 `yaml:"market_y"`
}

type CostConfig struct {
	CampfireWood      int `yaml:"campfire_wood"`
	ForgeStone        int `yaml:"forge_stone"`
	ForgeWood         int `yaml:"forge_wood"`
	ChestWood         int `yaml:"chest_wood"`
	BlastFurnaceStone int `yaml:"blast_furnace_stone"`
	BlastFurnaceWood  int `yaml:"blast_furnace_wood"`
	WellStone         int `yaml:"well_stone"`
	WellWood          int `yaml:"well_wood"`
}

type TechConfig struct {
	IronGatherThreshold int `yaml:"iron_gather_threshold"`
	SteelSmeltThreshold int `yaml:"steel_smelt_threshold"`
}

type PlotConfig struct {
	Price       int     `yaml:"price"`
	Size        float64 `yaml:"size"`
	MinDistance float64 `yaml:"min_distance"`
}

type ToolConfig struct {
	Durability map[economy.ItemID]int `yaml:"durability"`
}

type ElectionConfig struct {
	IntervalDays int64 `yaml:"interval_days"`
	MinCoins     int   `yaml:"min_coins"`
}

type AutosaveConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Default returns the stock configuration.
func Default() *Config {
	durability := make(map[economy.ItemID]int, len(economy.DefaultToolDurability))
	for k, v := range economy.DefaultToolDurability {
		durability[k] = v
	}

	return &Config{
		Server: ServerConfig{
			Addr:         ":2567",
			TokenTTL:     24 * time.Hour,
			SyncInterval: 100 * time.Millisecond,
		},
		Storage: StorageConfig{
			DBPath: "data/hearthstead.db",
		},
		Log: LogConfig{Level: "info"},
		World: WorldConfig{
			Size:             3200,
			TileSize:         16,
			TickRate:         20,
			GatherRange:      40,
			HungerMax:        100,
			HungerDrainPerMs: 100.0 / (30 * 60 * 1000), // full bar in 30 real minutes
			MsPerGameDay:     3_600_000,
			StarterCoins:     10,
			Seed:             42,
			AICount:          15,
			MarketX:          560,
			MarketY:          560,
		},
		Costs: CostConfig{
			CampfireWood:      3,
			ForgeStone:        5,
			ForgeWood:         3,
			ChestWood:         5,
			BlastFurnaceStone: 10,
			BlastFurnaceWood:  5,
			WellStone:         3,
			WellWood:          2,
		},
		Tech: TechConfig{
			IronGatherThreshold: 50,
			SteelSmeltThreshold: 10,
		},
		Plots: PlotConfig{
			Price:       20,
			Size:        128,
			MinDistance: 200,
		},
		Tools: ToolConfig{Durability: durability},
		Election: ElectionConfig{
			IntervalDays: 5,
			MinCoins:     50,
		},
		Autosave: AutosaveConfig{Interval: 60 * time.Second},
	}
}

// Load builds the configuration. path may be empty; a missing file is not
// an error.
func Load(path string) (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := cfg.overlay(data); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlay(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("HEARTH_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("HEARTH_ADMIN_KEY"); v != "" {
		c.Server.AdminKey = v
	}
	if v := os.Getenv("HEARTH_JWT_SECRET"); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv("HEARTH_CORS_ORIGINS"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, origin)
			}
		}
	}
	if v := os.Getenv("HEARTH_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("HEARTH_JOURNAL_DIR"); v != "" {
		c.Storage.JournalDir = v
	}
	if v := os.Getenv("HEARTH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HEARTH_LOG_JSON"); v != "" {
		c.Log.JSON = v == "true" || v == "1"
	}
	if v := os.Getenv("HEARTH_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("HEARTH_SEED: %w", err)
		}
		c.World.Seed = n
	}
	if v := os.Getenv("HEARTH_AI_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HEARTH_AI_COUNT: %w", err)
		}
		c.World.AICount = n
	}
	return nil
}

// Validate rejects configurations the simulation cannot run with.
func (c *Config) Validate() error {
	w := c.World
	switch {
	case w.Size <= 0:
		return fmt.Errorf("world.size must be positive, got %v", w.Size)
	case w.TileSize <= 0 || w.TileSize > w.Size:
		return fmt.Errorf("world.tile_size must be in (0, size], got %v", w.TileSize)
	case w.TickRate <= 0:
		return fmt.Errorf("world.tick_rate must be positive, got %d", w.TickRate)
	case w.GatherRange <= 0:
		return fmt.Errorf("world.gather_range must be positive, got %v", w.GatherRange)
	case w.HungerMax <= 0 || w.HungerDrainPerMs < 0:
		return fmt.Errorf("world hunger settings invalid (max %v, drain %v)", w.HungerMax, w.HungerDrainPerMs)
	case w.MsPerGameDay <= 0:
		return fmt.Errorf("world.ms_per_game_day must be positive, got %d", w.MsPerGameDay)
	case w.AICount < 0:
		return fmt.Errorf("world.ai_count must not be negative, got %d", w.AICount)
	}
	if c.Election.IntervalDays <= 0 {
		return fmt.Errorf("election.interval_days must be positive, got %d", c.Election.IntervalDays)
	}
	if c.Plots.Size <= 0 || c.Plots.Price < 0 {
		return fmt.Errorf("plots settings invalid (size %v, price %d)", c.Plots.Size, c.Plots.Price)
	}
	if c.Autosave.Interval <= 0 {
		return fmt.Errorf("autosave.interval must be positive, got %s", c.Autosave.Interval)
	}
	for tool, d := range c.Tools.Durability {
		if d <= 0 {
			return fmt.Errorf("tools.durability[%s] must be positive, got %d", tool, d)
		}
	}
	return nil
}

// TickInterval is the wall-clock period between ticks.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.World.TickRate)
}
