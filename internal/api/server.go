// Package api provides the HTTP surface of the world server.
// GET endpoints are public (read-only observation). Sessions are issued
// by POST /api/v1/session and used to open the /ws game connection.
// POST /api/v1/admin/* endpoints require the admin bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/talgya/hearthstead/internal/config"
	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/engine"
	"github.com/talgya/hearthstead/internal/persistence"
	"github.com/talgya/hearthstead/internal/world"
)

const (
	maxSSEConns     = 16
	leaderboardSize = 10
	// readTimeout bounds how long a read handler waits for the loop.
	readTimeout = 2 * time.Second
)

// Server serves the world over HTTP and websocket.
type Server struct {
	Loop    *engine.Loop
	DB      *persistence.DB
	Hub     *Hub
	Tokens  *Tokens
	Metrics *Metrics
	Cfg     config.ServerConfig

	sseConns       atomic.Int32
	sessionLimiter *RateLimiter
	upgrader       websocket.Upgrader
}

// NewServer wires a server around a running loop.
func NewServer(cfg config.ServerConfig, loop *engine.Loop, db *persistence.DB, hub *Hub, metrics *Metrics) *Server {
	s := &Server{
		Loop:           loop,
		DB:             db,
		Hub:            hub,
		Tokens:         NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		Metrics:        metrics,
		Cfg:            cfg,
		sessionLimiter: NewRateLimiter(rate.Every(2*time.Second), 5),
	}
	origins := allowedOrigins(cfg.CORSOrigins)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || origins[o] || len(cfg.CORSOrigins) == 0
		},
	}
	if hub != nil && metrics != nil {
		hub.OnDrop = metrics.Dropped.Inc
	}
	return s
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/v1/market", s.handleMarket)
	mux.HandleFunc("GET /api/v1/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /api/v1/player/{uuid}", s.handlePlayer)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	// Game sessions.
	mux.HandleFunc("POST /api/v1/session", RateLimitMiddleware(s.sessionLimiter, s.limited("session"), s.handleSession))
	mux.HandleFunc("GET /ws", s.handleWS)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("POST /api/v1/admin/save", s.adminOnly(s.handleSave))
	mux.HandleFunc("POST /api/v1/admin/intervention", s.adminOnly(s.handleIntervention))

	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}

	slog.Info("HTTP API configured", "admin_auth", s.Cfg.AdminKey != "", "cors_origins", len(s.Cfg.CORSOrigins))
	return corsMiddleware(s.Cfg.CORSOrigins, mux)
}

func (s *Server) limited(endpoint string) func() {
	if s.Metrics == nil {
		return nil
	}
	return s.Metrics.RateLimited.WithLabelValues(endpoint).Inc
}

func allowedOrigins(extra []string) map[string]bool {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	for _, o := range extra {
		allowed[o] = true
	}
	return allowed
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowed := allowedOrigins(origins)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.Cfg.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Cfg.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no HEARTH_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// read runs fn on the loop goroutine for a read handler. It writes the
// error response itself and reports whether fn ran.
func (s *Server) read(w http.ResponseWriter, r *http.Request, fn func(*engine.Room)) bool {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()
	err := s.Loop.Do(ctx, fn)
	switch {
	case err == nil:
		return true
	case errors.Is(err, engine.ErrLoopStopped):
		http.Error(w, "world is shutting down", http.StatusServiceUnavailable)
	default:
		http.Error(w, "world busy", http.StatusServiceUnavailable)
	}
	return false
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var (
		st    engine.Status
		ticks uint64
	)
	if !s.read(w, r, func(room *engine.Room) {
		st = room.Status()
		ticks = s.Loop.Tick()
	}) {
		return
	}
	writeJSON(w, map[string]any{
		"name":     "Hearthstead",
		"world":    st,
		"ticks":    ticks,
		"sessions": s.Hub.Len(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		since = n
	}
	var d world.Diff
	if !s.read(w, r, func(room *engine.Room) {
		if since == 0 {
			d = room.State().Snapshot()
		} else {
			d = room.State().ChangedSince(since)
		}
	}) {
		return
	}
	writeJSON(w, d)
}

type marketEntry struct {
	ID           string         `json:"id"`
	ItemID       economy.ItemID `json:"item_id"`
	ItemName     string         `json:"item_name"`
	Quantity     int            `json:"quantity"`
	PricePerUnit int            `json:"price_per_unit"`
	SellerName   string         `json:"seller_name"`
}

// handleMarket returns open listings, cheapest first within each item.
// ?item= filters to one item.
func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	item := economy.ItemID(r.URL.Query().Get("item"))
	var out []marketEntry
	if !s.read(w, r, func(room *engine.Room) {
		for _, l := range room.State().Listings() {
			if item != "" && l.ItemID != item {
				continue
			}
			out = append(out, marketEntry{
				ID:           l.ID,
				ItemID:       l.ItemID,
				ItemName:     economy.Items[l.ItemID].Name,
				Quantity:     l.Quantity,
				PricePerUnit: l.PricePerUnit,
				SellerName:   l.SellerName,
			})
		}
	}) {
		return
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemID != out[j].ItemID {
			return out[i].ItemID < out[j].ItemID
		}
		if out[i].PricePerUnit != out[j].PricePerUnit {
			return out[i].PricePerUnit < out[j].PricePerUnit
		}
		return out[i].ID < out[j].ID
	})
	if out == nil {
		out = []marketEntry{}
	}
	writeJSON(w, out)
}

type leaderEntry struct {
	Name  string `json:"name"`
	Coins int    `json:"coins"`
	IsAI  bool   `json:"is_ai"`
	Mayor bool   `json:"mayor"`
}

// handleLeaderboard ranks everyone in the world by coins.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	var out []leaderEntry
	if !s.read(w, r, func(room *engine.Room) {
		mayor := room.State().Scalars().MayorID
		for _, p := range room.State().Players() {
			out = append(out, leaderEntry{Name: p.Name, Coins: p.Coins, IsAI: p.IsAI, Mayor: p.StableID == mayor})
		}
	}) {
		return
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Coins != out[j].Coins {
			return out[i].Coins > out[j].Coins
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > leaderboardSize {
		out = out[:leaderboardSize]
	}
	if out == nil {
		out = []leaderEntry{}
	}
	writeJSON(w, out)
}

type playerView struct {
	UUID      string                 `json:"uuid"`
	Name      string                 `json:"name"`
	Online    bool                   `json:"online"`
	Coins     int                    `json:"coins"`
	Hunger    *float64               `json:"hunger,omitempty"`
	Inventory map[economy.ItemID]int `json:"inventory"`
}

// handlePlayer returns a player by stable id, live if online, otherwise
// from the store.
func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("uuid")
	var view *playerView
	if !s.read(w, r, func(room *engine.Room) {
		p := room.State().PlayerByStable(id)
		if p == nil {
			return
		}
		hunger := p.Hunger
		view = &playerView{
			UUID: p.StableID, Name: p.Name, Online: true, Coins: p.Coins, Hunger: &hunger,
			Inventory: make(map[economy.ItemID]int, len(p.Inventory)),
		}
		for _, item := range p.Inventory.Items() {
			view.Inventory[item] = p.Inventory.Count(item)
		}
	}) {
		return
	}

	if view == nil {
		rec, err := s.DB.GetPlayer(id)
		if err != nil {
			slog.Error("load player for api", "uuid", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if rec == nil {
			http.Error(w, "player not found", http.StatusNotFound)
			return
		}
		view = &playerView{UUID: rec.UUID, Name: rec.Name, Coins: rec.Coins, Inventory: rec.Inventory}
		if view.Inventory == nil {
			view.Inventory = map[economy.ItemID]int{}
		}
	}
	writeJSON(w, view)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	category := r.URL.Query().Get("category")

	var events []engine.Event
	if !s.read(w, r, func(room *engine.Room) { events = room.RecentEvents(0) }) {
		return
	}
	if category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, events)
}

// handleSession issues a session token. A missing uuid mints a new player.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UUID string `json:"uuid"`
		Name string `json:"name"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}
	stable := strings.TrimSpace(req.UUID)
	if stable == "" {
		stable = uuid.NewString()
	} else if _, err := uuid.Parse(stable); err != nil {
		http.Error(w, "uuid must be a UUID", http.StatusBadRequest)
		return
	}
	name := cleanName(req.Name)

	token, exp, err := s.Tokens.Issue(stable, name)
	if err != nil {
		slog.Error("issue session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"token":      token,
		"uuid":       stable,
		"name":       name,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var (
		n   int
		err error
	)
	if !s.read(w, r, func(room *engine.Room) { n, err = room.Autosave() }) {
		return
	}
	if err != nil {
		slog.Error("manual save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	slog.Info("manual save", "players", n)
	writeJSON(w, map[string]any{"success": true, "players_saved": n})
}

// handleIntervention applies an operator action: provision, replenish or
// election.
func (s *Server) handleIntervention(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type     string         `json:"type"`
		UUID     string         `json:"uuid,omitempty"`
		Item     economy.ItemID `json:"item,omitempty"`
		Quantity int            `json:"quantity,omitempty"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var (
		details string
		err     error
	)
	switch req.Type {
	case "provision":
		if req.UUID == "" || req.Item == "" {
			http.Error(w, "uuid and item required for provision type", http.StatusBadRequest)
			return
		}
		if !s.read(w, r, func(room *engine.Room) { details, err = room.Provision(req.UUID, req.Item, req.Quantity) }) {
			return
		}
	case "replenish":
		if !s.read(w, r, func(room *engine.Room) { details, err = room.Replenish() }) {
			return
		}
	case "election":
		if !s.read(w, r, func(room *engine.Room) { details = room.ForceElection() }) {
			return
		}
	default:
		http.Error(w, fmt.Sprintf("unknown intervention type %q", req.Type), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slog.Info("intervention applied", "type", req.Type, "details", details)
	writeJSON(w, map[string]any{"success": true, "details": details})
}

// handleStream provides an SSE feed of world notifications, preceded by
// the recent event log as catch-up.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.sseConns.Add(1) > maxSSEConns {
		s.sseConns.Add(-1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer s.sseConns.Add(-1)
	if s.Metrics != nil {
		s.Metrics.SSEConns.Inc()
		defer s.Metrics.SSEConns.Dec()
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var recent []engine.Event
	if !s.read(w, r, func(room *engine.Room) { recent = room.RecentEvents(50) }) {
		return
	}
	subID, ch := s.Hub.Subscribe()
	defer s.Hub.Unsubscribe(subID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for _, e := range recent {
		if data, err := json.Marshal(e); err == nil {
			writeSSE(w, "event", data)
		}
	}
	flusher.Flush()
	slog.Info("SSE client connected", "sub_id", subID)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()
	for {
		select {
		case f, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, f.Type, f.Data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

// writeSSE writes a single event in SSE format.
func writeSSE(w http.ResponseWriter, event string, data []byte) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
