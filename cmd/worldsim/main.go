// Command worldsim runs the Hearthstead shared survival world server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/hearthstead/internal/api"
	"github.com/talgya/hearthstead/internal/config"
	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/engine"
	"github.com/talgya/hearthstead/internal/journal"
	"github.com/talgya/hearthstead/internal/logging"
	"github.com/talgya/hearthstead/internal/persistence"
	"github.com/talgya/hearthstead/internal/protocol"
)

// statusEvery is how many ticks pass between world gauge refreshes.
const statusEvery = 20

func main() {
	if err := run(); err != nil {
		slog.Error("worldsim failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "hearthstead.yaml", "optional YAML config file")
	flag.Parse()

	// ── Config & logging ──────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.Log.Level, cfg.Log.JSON)
	slog.Info("Hearthstead world server", "addr", cfg.Server.Addr, "seed", cfg.World.Seed)

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := persistence.Open(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Storage.DBPath)

	// ── Broadcasters ──────────────────────────────────────────────────
	hub := api.NewHub(128)
	out := protocol.Broadcasters{hub}
	if cfg.Storage.JournalDir != "" {
		jw, err := journal.Open(cfg.Storage.JournalDir, "events")
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer func() {
			if err := jw.Close(); err != nil {
				slog.Error("close journal", "error", err)
			}
		}()
		out = append(out, jw)
		slog.Info("event journal enabled", "dir", cfg.Storage.JournalDir)
	}

	// ── World ─────────────────────────────────────────────────────────
	metrics := api.NewMetrics()
	room := engine.NewRoom(cfg, db, out, rand.New(rand.NewSource(cfg.World.Seed)))
	room.OnAction = metrics.ObserveAction
	if err := room.Load(); err != nil {
		return fmt.Errorf("load world: %w", err)
	}

	loop := engine.NewLoop(room, cfg.TickInterval(), cfg.Autosave.Interval)
	loop.OnTick = func(tick uint64, took time.Duration) {
		metrics.ObserveTick(tick, took)
		if tick%statusEvery == 0 {
			metrics.ObserveStatus(room.Status())
		}
	}
	loop.OnAutosave = metrics.ObserveAutosave

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.Server.AdminKey == "" {
		slog.Warn("HEARTH_ADMIN_KEY not set, admin endpoints will be disabled")
	}
	srv := api.NewServer(cfg.Server, loop, db, hub, metrics)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := room.Status()
	fmt.Printf("\nHearthstead is alive: %s resource nodes, %s structures, %s AI settlers, %s.\n",
		humanize.Comma(int64(st.Resources)), humanize.Comma(int64(structureTotal(st))),
		humanize.Comma(int64(cfg.World.AICount)), st.Clock)
	fmt.Printf("Mayor: %s. Tech: %s. Market: %s open listings.\n",
		st.MayorName, st.TechName, humanize.Comma(int64(st.Listings)))
	fmt.Printf("API: http://localhost%s/api/v1/status\n", cfg.Server.Addr)
	fmt.Println("Starting world... (Ctrl+C to stop)")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("HTTP API starting", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	started := time.Now()
	err = g.Wait()
	fmt.Printf("World stopped after %s. State saved.\n", humanize.RelTime(started, time.Now(), "", ""))
	return err
}

func structureTotal(st engine.Status) int {
	n := 0
	for _, k := range economy.StructureKinds {
		n += st.Structures[string(k)]
	}
	return n
}
