package engine

import (
	"sort"

	"github.com/talgya/hearthstead/internal/economy"
)

// TaskKind names a timed action.
type TaskKind string

const (
	TaskGather       TaskKind = "gather"
	TaskCook         TaskKind = "cook"
	TaskCookAdvanced TaskKind = "cook_advanced"
	TaskSmelt        TaskKind = "smelt"
	TaskBlast        TaskKind = "blast"
)

// Task is a pending timed action. At most one task exists per
// (actor, kind); inputs are already deducted when it is scheduled.
type Task struct {
	Actor     string
	Kind      TaskKind
	Target    string         // resource node or facility id
	Output    economy.ItemID // processing tasks only
	OutputQty int
	Due       int64 // room clock, ms
	Lenient   bool  // skip the completion range re-check (AI actors)

	seq uint64
}

type taskKey struct {
	actor string
	kind  TaskKind
}

// Scheduler is the table of pending timed actions and node respawns,
// polled once per tick against the room clock.
type Scheduler struct {
	tasks    map[taskKey]*Task
	respawns map[string]int64 // node id → due
	seq      uint64
}

// NewScheduler returns an empty table.
func NewScheduler() *Scheduler {
	return &Scheduler{
		tasks:    make(map[taskKey]*Task),
		respawns: make(map[string]int64),
	}
}

// Schedule adds t unless the actor already has a task of that kind.
func (s *Scheduler) Schedule(t Task) bool {
	k := taskKey{t.Actor, t.Kind}
	if _, busy := s.tasks[k]; busy {
		return false
	}
	s.seq++
	t.seq = s.seq
	s.tasks[k] = &t
	return true
}

// Pending returns the actor's task of a kind.
func (s *Scheduler) Pending(actor string, kind TaskKind) (Task, bool) {
	t, ok := s.tasks[taskKey{actor, kind}]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Busy reports whether the actor has any pending task.
func (s *Scheduler) Busy(actor string) bool {
	for k := range s.tasks {
		if k.actor == actor {
			return true
		}
	}
	return false
}

// Cancel removes and returns the actor's task of a kind.
func (s *Scheduler) Cancel(actor string, kind TaskKind) (Task, bool) {
	k := taskKey{actor, kind}
	t, ok := s.tasks[k]
	if !ok {
		return Task{}, false
	}
	delete(s.tasks, k)
	return *t, true
}

// Due pops every task due at or before now, earliest first, ties in
// scheduling order.
func (s *Scheduler) Due(now int64) []Task {
	var out []Task
	for k, t := range s.tasks {
		if t.Due <= now {
			out = append(out, *t)
			delete(s.tasks, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Due != out[j].Due {
			return out[i].Due < out[j].Due
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int { return len(s.tasks) }

// ScheduleRespawn queues a node to become gatherable at due.
func (s *Scheduler) ScheduleRespawn(node string, due int64) {
	s.respawns[node] = due
}

// DueRespawns pops every node whose respawn is due, sorted by id.
func (s *Scheduler) DueRespawns(now int64) []string {
	var out []string
	for id, due := range s.respawns {
		if due <= now {
			out = append(out, id)
			delete(s.respawns, id)
		}
	}
	sort.Strings(out)
	return out
}
