package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrLoopStopped is returned by Do once the loop has exited.
var ErrLoopStopped = errors.New("engine: loop stopped")

// cmdQueue bounds the number of queued room commands.
const cmdQueue = 1024

// Loop is the room's single owner goroutine. Ticks, autosaves and every
// command posted from network handlers run on it one at a time, so the
// room itself needs no locking.
type Loop struct {
	room     *Room
	interval time.Duration
	autosave time.Duration

	cmds chan func(*Room)
	done chan struct{}
	tick uint64

	// Optional observers, called on the loop goroutine.
	OnTick     func(tick uint64, took time.Duration)
	OnAutosave func(saved int, err error)
}

// NewLoop wraps a loaded room.
func NewLoop(room *Room, interval, autosave time.Duration) *Loop {
	return &Loop{
		room:     room,
		interval: interval,
		autosave: autosave,
		cmds:     make(chan func(*Room), cmdQueue),
		done:     make(chan struct{}),
	}
}

// Run drives the room until ctx is cancelled, then performs a final
// autosave. The tick delta is measured from the wall clock so a slow tick
// does not slow the world down.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	saver := time.NewTicker(l.autosave)
	defer saver.Stop()

	slog.Info("room loop started", "interval", l.interval, "autosave", l.autosave)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			l.save()
			slog.Info("room loop stopped", "ticks", l.tick)
			return nil

		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			start := time.Now()
			l.room.Step(delta.Milliseconds())
			l.tick++
			if l.OnTick != nil {
				l.OnTick(l.tick, time.Since(start))
			}

		case <-saver.C:
			l.save()

		case fn := <-l.cmds:
			fn(l.room)
		}
	}
}

func (l *Loop) save() {
	n, err := l.room.Autosave()
	if err != nil {
		slog.Error("autosave failed", "error", err)
	} else {
		slog.Debug("autosave", "players", n)
	}
	if l.OnAutosave != nil {
		l.OnAutosave(n, err)
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func(*Room)) error {
	finished := make(chan struct{})
	wrapped := func(r *Room) {
		defer close(finished)
		fn(r)
	}
	select {
	case l.cmds <- wrapped:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post queues fn without waiting. It reports false when the queue is full
// or the loop has exited.
func (l *Loop) Post(fn func(*Room)) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.cmds <- fn:
		return true
	default:
		slog.Warn("room command queue full, dropping command")
		return false
	}
}

// Tick returns the number of ticks run so far. Only meaningful on the
// loop goroutine.
func (l *Loop) Tick() uint64 { return l.tick }

// GameClock renders a game time as "Day N HH:MM". Day numbering starts at 1.
func GameClock(ms, msPerDay int64) string {
	if msPerDay <= 0 {
		return "Day 1 00:00"
	}
	day := ms/msPerDay + 1
	into := ms % msPerDay
	minutes := into * 24 * 60 / msPerDay
	return fmt.Sprintf("Day %d %02d:%02d", day, minutes/60, minutes%60)
}
