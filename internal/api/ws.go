package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/talgya/hearthstead/internal/engine"
	"github.com/talgya/hearthstead/internal/protocol"
	"github.com/talgya/hearthstead/internal/world"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
	wsMaxFrame   = 16 * 1024

	// Inbound action budget per session, and a tighter one for chat.
	actionRate  = 30
	actionBurst = 60
	chatEvery   = time.Second
	chatBurst   = 3
)

// frame is the outbound envelope for non-notification messages.
type frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type welcome struct {
	SessionID string     `json:"sessionId"`
	UUID      string     `json:"uuid"`
	Name      string     `json:"name"`
	State     world.Diff `json:"state"`
}

// handleWS upgrades an authenticated request into a game session. The
// reader decodes actions and posts them to the loop; the writer pushes
// notifications and state diffs at the configured sync interval.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	claims, err := s.Tokens.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	session := uuid.NewString()
	var hello welcome
	err = s.Loop.Do(r.Context(), func(room *engine.Room) {
		p := room.Join(session, claims.Subject, claims.Name)
		hello = welcome{SessionID: session, UUID: p.StableID, Name: p.Name, State: room.State().Snapshot()}
	})
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "world unavailable"),
			time.Now().Add(time.Second))
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Loop.Do(ctx, func(room *engine.Room) { room.Leave(session) }); err != nil &&
			!errors.Is(err, engine.ErrLoopStopped) {
			slog.Warn("leave not applied", "session", session, "error", err)
		}
	}()

	if s.Metrics != nil {
		s.Metrics.WSConns.Inc()
		defer s.Metrics.WSConns.Dec()
	}
	subID, notes := s.Hub.Subscribe()
	defer s.Hub.Unsubscribe(subID)

	if err := writeFrame(conn, frame{Type: "welcome", Data: hello}); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close() // unblocks the reader
		defer cancel()
		s.writePump(ctx, conn, notes, hello.State.Rev)
	}()

	s.readPump(ctx, conn, session)
	cancel()
	<-writerDone
	slog.Debug("websocket session closed", "session", session, "name", hello.Name)
}

func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, session string) {
	conn.SetReadLimit(wsMaxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	actions := rate.NewLimiter(actionRate, actionBurst)
	chat := rate.NewLimiter(rate.Every(chatEvery), chatBurst)

	for ctx.Err() == nil {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		a, err := protocol.Decode(msg)
		if err != nil {
			slog.Debug("bad inbound frame", "session", session, "error", err)
			continue
		}
		allowed := actions.Allow()
		if allowed && a.Kind() == protocol.KindChat {
			allowed = chat.Allow()
		}
		if !allowed {
			if s.Metrics != nil {
				s.Metrics.RateLimited.WithLabelValues(string(a.Kind())).Inc()
			}
			continue
		}
		if !s.Loop.Post(func(room *engine.Room) { room.Handle(session, a) }) {
			return
		}
	}
}

func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, notes <-chan Frame, rev uint64) {
	interval := s.Cfg.SyncInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	diffs := time.NewTicker(interval)
	defer diffs.Stop()
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return

		case f, ok := <-notes:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, f.Data); err != nil {
				return
			}

		case <-diffs.C:
			var d world.Diff
			if err := s.Loop.Do(ctx, func(room *engine.Room) { d = room.State().ChangedSince(rev) }); err != nil {
				return
			}
			if d.Empty() {
				continue
			}
			rev = d.Rev
			if err := writeFrame(conn, frame{Type: "state", Data: d}); err != nil {
				return
			}

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, f frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}
