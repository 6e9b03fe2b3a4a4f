package engine

import (
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"github.com/talgya/hearthstead/internal/economy"
)

func TestSchedulerOneTaskPerActorAndKind(t *testing.T) {
	s := NewScheduler()
	if !s.Schedule(Task{Actor: "a", Kind: TaskCook, Due: 10}) {
		t.Fatalf("first cook rejected")
	}
	if s.Schedule(Task{Actor: "a", Kind: TaskCook, Due: 20}) {
		t.Fatalf("second cook accepted while one is pending")
	}
	if !s.Schedule(Task{Actor: "a", Kind: TaskSmelt, Due: 20}) {
		t.Fatalf("smelt rejected alongside a cook")
	}
	if !s.Busy("a") || s.Busy("b") {
		t.Fatalf("Busy: got a=%v b=%v", s.Busy("a"), s.Busy("b"))
	}
	if got, ok := s.Pending("a", TaskCook); !ok || got.Due != 10 {
		t.Fatalf("Pending: got %+v, %v", got, ok)
	}

	if _, ok := s.Cancel("a", TaskCook); !ok {
		t.Fatalf("Cancel found nothing")
	}
	if _, ok := s.Cancel("a", TaskCook); ok {
		t.Fatalf("Cancel twice succeeded")
	}
	if s.Len() != 1 {
		t.Fatalf("Len: got %d want 1", s.Len())
	}
}

func TestSchedulerDueOrder(t *testing.T) {
	s := NewScheduler()
	s.Schedule(Task{Actor: "c", Kind: TaskGather, Due: 30})
	s.Schedule(Task{Actor: "b", Kind: TaskGather, Due: 10})
	s.Schedule(Task{Actor: "a", Kind: TaskGather, Due: 10})
	s.Schedule(Task{Actor: "d", Kind: TaskGather, Due: 99})

	var got []string
	for _, task := range s.Due(30) {
		got = append(got, task.Actor)
	}
	if want := []string{"b", "a", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Due order: got %v want %v", got, want)
	}
	if s.Len() != 1 {
		t.Fatalf("Len after Due: got %d want 1", s.Len())
	}
	if len(s.Due(30)) != 0 {
		t.Fatalf("Due returned a task twice")
	}
}

func TestSchedulerRespawns(t *testing.T) {
	s := NewScheduler()
	s.ScheduleRespawn("res_9", 100)
	s.ScheduleRespawn("res_1", 50)
	s.ScheduleRespawn("res_5", 500)

	if got := s.DueRespawns(100); !reflect.DeepEqual(got, []string{"res_1", "res_9"}) {
		t.Fatalf("DueRespawns: got %v", got)
	}
	if got := s.DueRespawns(100); len(got) != 0 {
		t.Fatalf("DueRespawns repeated: got %v", got)
	}
}

func TestRollDrops(t *testing.T) {
	fish := economy.Resources[economy.ResourceFishSpot]
	lowest := func(int) int { return 0 }
	highest := func(n int) int { return n - 1 }

	tests := []struct {
		name string
		held []economy.ItemID
		intn func(int) int
		want map[economy.ItemID]int
	}{
		{"no rod skips fish", nil, lowest, map[economy.ItemID]int{economy.ItemWater: 1}},
		{"rod rolls fish", []economy.ItemID{economy.ItemFishingRod}, highest,
			map[economy.ItemID]int{economy.ItemWater: 2, economy.ItemRawFish: 2}},
		{"stone axe rounds up", []economy.ItemID{economy.ItemStoneAxe}, lowest,
			map[economy.ItemID]int{economy.ItemWater: 2}},
		{"steel beats stone", []economy.ItemID{economy.ItemStoneAxe, economy.ItemSteelAxe}, highest,
			map[economy.ItemID]int{economy.ItemWater: 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			has := func(id economy.ItemID) bool {
				for _, h := range tt.held {
					if h == id {
						return true
					}
				}
				return false
			}
			got := RollDrops(fish, has, tt.intn)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestRollDropsSkipsZero(t *testing.T) {
	rock := economy.Resources[economy.ResourceRock]
	got := RollDrops(rock, func(economy.ItemID) bool { return false }, func(int) int { return 0 })
	if _, ok := got[economy.ItemIronOre]; ok {
		t.Fatalf("zero-quantity ore drop present: %v", got)
	}
	if got[economy.ItemStone] != 1 {
		t.Fatalf("stone: got %d want 1", got[economy.ItemStone])
	}
}

func TestRollDropsMonotonicInToolTier(t *testing.T) {
	tiers := []economy.ItemID{"", economy.ItemStoneAxe, economy.ItemIronAxe, economy.ItemSteelAxe}

	rapid.Check(t, func(t *rapid.T) {
		kind := rapid.SampledFrom(economy.ResourceKinds).Draw(t, "kind")
		def := economy.Resources[kind]
		rod := rapid.Bool().Draw(t, "rod")
		draws := rapid.SliceOfN(rapid.IntRange(0, 1<<20), len(def.Drops), len(def.Drops)).Draw(t, "draws")

		var prev map[economy.ItemID]int
		for _, axe := range tiers {
			has := func(id economy.ItemID) bool {
				return (rod && id == economy.ItemFishingRod) || (axe != "" && id == axe)
			}
			i := 0
			intn := func(n int) int {
				v := draws[i] % n
				i++
				return v
			}
			got := RollDrops(def, has, intn)
			for item, qty := range prev {
				if got[item] < qty {
					t.Fatalf("%s with %q: %s fell from %d to %d", kind, axe, item, qty, got[item])
				}
			}
			prev = got
		}
	})
}
