package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/hearthstead/internal/config"
	"github.com/talgya/hearthstead/internal/economy"
	"github.com/talgya/hearthstead/internal/engine"
	"github.com/talgya/hearthstead/internal/persistence"
	"github.com/talgya/hearthstead/internal/protocol"
)

const testAdminKey = "let-me-in"

type fixture struct {
	srv  *Server
	http *httptest.Server
	loop *engine.Loop
}

// newFixture runs a loaded room without AI behind a test HTTP server.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.World.AICount = 0
	cfg.Server.AdminKey = testAdminKey
	cfg.Server.JWTSecret = "test-secret"
	cfg.Server.SyncInterval = 20 * time.Millisecond

	db, err := persistence.Open(filepath.Join(t.TempDir(), "world.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	hub := NewHub(64)
	metrics := NewMetrics()
	room := engine.NewRoom(cfg, db, hub, rand.New(rand.NewSource(1)))
	room.OnAction = metrics.ObserveAction
	if err := room.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	loop := engine.NewLoop(room, 10*time.Millisecond, time.Hour)
	loop.OnTick = metrics.ObserveTick

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx)
	}()

	srv := NewServer(cfg.Server, loop, db, hub, metrics)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
		db.Close()
	})
	return &fixture{srv: srv, http: ts, loop: loop}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.http.URL+path, rd)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestStatusAndSnapshot(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/status", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code: %d", resp.StatusCode)
	}
	body := decode[struct {
		Name  string        `json:"name"`
		World engine.Status `json:"world"`
	}](t, resp)
	if body.Name != "Hearthstead" || body.World.Resources == 0 || body.World.TechName != "Stone Age" {
		t.Fatalf("status: %+v", body)
	}

	snap := decode[struct {
		Rev       uint64            `json:"rev"`
		Full      bool              `json:"full"`
		Resources []json.RawMessage `json:"resources"`
	}](t, f.do(t, http.MethodGet, "/api/v1/snapshot", "", nil))
	if !snap.Full || len(snap.Resources) != body.World.Resources {
		t.Fatalf("snapshot: full=%v resources=%d", snap.Full, len(snap.Resources))
	}

	if code := f.do(t, http.MethodGet, "/api/v1/snapshot?since=abc", "", nil).StatusCode; code != http.StatusBadRequest {
		t.Fatalf("bad since: got %d", code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		st := decode[struct {
			Ticks uint64 `json:"ticks"`
		}](t, f.do(t, http.MethodGet, "/api/v1/status", "", nil))
		if st.Ticks > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("status never reported a tick")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAdminAuth(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"valid", testAdminKey, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.do(t, http.MethodPost, "/api/v1/admin/save", tt.token, nil).StatusCode; got != tt.want {
				t.Fatalf("got %d want %d", got, tt.want)
			}
		})
	}

	disabled := &Server{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/save", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	disabled.adminOnly(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler ran with admin disabled")
	})(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("disabled admin: got %d want 403", rec.Code)
	}
}

func TestInterventionProvision(t *testing.T) {
	f := newFixture(t)
	const stable = "0b7f6b1e-3c0e-4c51-9b7e-8d3c1f5a2e11"
	if err := f.loop.Do(context.Background(), func(r *engine.Room) { r.Join("s1", stable, "Wren") }); err != nil {
		t.Fatalf("join: %v", err)
	}

	resp := f.do(t, http.MethodPost, "/api/v1/admin/intervention", testAdminKey, map[string]any{
		"type": "provision", "uuid": stable, "item": economy.ItemBread, "quantity": 2,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("provision: %d", resp.StatusCode)
	}

	view := decode[playerView](t, f.do(t, http.MethodGet, "/api/v1/player/"+stable, "", nil))
	if !view.Online || view.Inventory[economy.ItemBread] != 2 {
		t.Fatalf("player after provision: %+v", view)
	}

	bad := f.do(t, http.MethodPost, "/api/v1/admin/intervention", testAdminKey, map[string]any{
		"type": "provision", "uuid": stable, "item": "gold", "quantity": 1,
	})
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown item: got %d", bad.StatusCode)
	}
	if got := f.do(t, http.MethodPost, "/api/v1/admin/intervention", testAdminKey,
		map[string]any{"type": "meteor"}).StatusCode; got != http.StatusBadRequest {
		t.Fatalf("unknown type: got %d", got)
	}

	events := decode[[]engine.Event](t, f.do(t, http.MethodGet, "/api/v1/events?category=admin", "", nil))
	if len(events) != 1 {
		t.Fatalf("admin events: %+v", events)
	}
}

func TestPlayerNotFound(t *testing.T) {
	f := newFixture(t)
	if got := f.do(t, http.MethodGet, "/api/v1/player/nobody", "", nil).StatusCode; got != http.StatusNotFound {
		t.Fatalf("got %d want 404", got)
	}
}

func TestLeaderboardAndMarket(t *testing.T) {
	f := newFixture(t)
	err := f.loop.Do(context.Background(), func(r *engine.Room) {
		rich := r.Join("s1", "", "Rhea")
		r.Join("s2", "", "Pip")
		r.State().AddCoins(rich, 40)
		r.State().Give(rich, economy.ItemBerries, 5)
		r.Handle("s1", protocol.MarketList{ItemID: economy.ItemBerries, Quantity: 5, PricePerUnit: 3})
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	board := decode[[]leaderEntry](t, f.do(t, http.MethodGet, "/api/v1/leaderboard", "", nil))
	if len(board) != 2 || board[0].Name != "Rhea" || board[0].Coins != 50 {
		t.Fatalf("leaderboard: %+v", board)
	}

	market := decode[[]marketEntry](t, f.do(t, http.MethodGet, "/api/v1/market?item=berries", "", nil))
	if len(market) != 1 || market[0].Quantity != 5 || market[0].SellerName != "Rhea" {
		t.Fatalf("market: %+v", market)
	}
	empty := decode[[]marketEntry](t, f.do(t, http.MethodGet, "/api/v1/market?item=bread", "", nil))
	if len(empty) != 0 {
		t.Fatalf("filtered market: %+v", empty)
	}
}

func TestWebsocketRoundTrip(t *testing.T) {
	f := newFixture(t)

	sess := decode[struct {
		Token string `json:"token"`
		UUID  string `json:"uuid"`
	}](t, f.do(t, http.MethodPost, "/api/v1/session", "", map[string]string{"name": "  Wren  "}))
	if sess.Token == "" || sess.UUID == "" {
		t.Fatalf("session: %+v", sess)
	}

	wsURL := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws?token=" + sess.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello struct {
		Type string  `json:"type"`
		Data welcome `json:"data"`
	}
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if hello.Type != "welcome" || hello.Data.Name != "Wren" || hello.Data.UUID != sess.UUID {
		t.Fatalf("welcome: %+v", hello)
	}

	msg, _ := protocol.EncodeAction(protocol.Chat{Text: "hello hearth"})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	for {
		var in struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&in); err != nil {
			t.Fatalf("waiting for chat: %v", err)
		}
		if in.Type != "chat_message" {
			continue
		}
		var chat protocol.ChatMessage
		json.Unmarshal(in.Data, &chat)
		if chat.Text != "hello hearth" || chat.PlayerName != "Wren" {
			t.Fatalf("chat: %+v", chat)
		}
		break
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for {
		var online bool
		f.loop.Do(context.Background(), func(r *engine.Room) { online = r.State().PlayerByStable(sess.UUID) != nil })
		if !online {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("player still online after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebsocketRejectsBadToken(t *testing.T) {
	f := newFixture(t)
	wsURL := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("dial with a bad token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("response: %+v", resp)
	}
}

func TestSessionRejectsMalformedUUID(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/v1/session", "", map[string]string{"uuid": "not-a-uuid"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("got %d want 400", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	time.Sleep(50 * time.Millisecond)
	resp := f.do(t, http.MethodGet, "/metrics", "", nil)
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), "hearth_ticks_total") {
		t.Fatalf("metrics output lacks tick counter")
	}
}
