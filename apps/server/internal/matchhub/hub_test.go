package matchhub

import (
	"context"
	"fmt"
	"testing"
	"time"

	"colosseum-lite/apps/server/internal/matchlog"
	"colosseum-lite/arena"
	"colosseum-lite/match"
	"colosseum-lite/sim"
)

func quickSim(id string) sim.Config {
	return sim.Config{
		MatchID:     id,
		GameType:    arena.GameResourceWars,
		TotalRounds: 1,
		Seed:        42,
	}
}

func waitDone(t *testing.T, m *Match) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("match %s never finished", m.ID)
	}
}

func TestHub_MatchRunsAndRecords(t *testing.T) {
	store := matchlog.NewMemoryStore()
	h := New(store)

	m := h.Create(match.Config{GameType: arena.GameNegotiation, TotalRounds: 2, Seed: 7})
	waitDone(t, m)

	events := m.Events()
	if len(events) == 0 {
		t.Fatalf("no events in backlog")
	}
	if events[0].Type != arena.EventMatchStart || events[len(events)-1].Type != arena.EventMatchEnd {
		t.Fatalf("backlog not bracketed: first=%s last=%s", events[0].Type, events[len(events)-1].Type)
	}

	snap := m.Snapshot()
	want := arena.Reduce(events)
	if snap.Winner != want.Winner || snap.Phase != arena.PhaseMatchEnd {
		t.Fatalf("hub snapshot diverges from fold: %+v vs %+v", snap, want)
	}

	stored, err := store.Events(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("stored events: %v", err)
	}
	if len(stored) != len(events) {
		t.Fatalf("store has %d events, backlog has %d", len(stored), len(events))
	}
}

func TestHub_SubscriberSeesFullStream(t *testing.T) {
	h := New(nil)
	m := h.CreateSimulated(quickSim("sim_sub"))

	backlog, ch, cancel := m.Subscribe()
	defer cancel()

	var live []arena.Event
	for ev := range ch {
		live = append(live, ev)
	}
	waitDone(t, m)

	all := append(append([]arena.Event{}, backlog...), live...)
	full := m.Events()
	if len(all) != len(full) {
		t.Fatalf("subscriber saw %d events, match emitted %d", len(all), len(full))
	}
	for i := range all {
		if all[i].Type != full[i].Type {
			t.Fatalf("event %d diverges: %s vs %s", i, all[i].Type, full[i].Type)
		}
	}
}

func TestHub_LateSubscriberGetsBacklogOnly(t *testing.T) {
	h := New(nil)
	m := h.CreateSimulated(quickSim("sim_late"))
	waitDone(t, m)

	backlog, ch, cancel := m.Subscribe()
	defer cancel()

	if len(backlog) != len(m.Events()) {
		t.Fatalf("late backlog incomplete: %d vs %d", len(backlog), len(m.Events()))
	}
	if _, open := <-ch; open {
		t.Fatalf("finished match must hand out a closed channel")
	}
}

func TestHub_OldestEvictedAtCapacity(t *testing.T) {
	h := New(nil)

	var first *Match
	for i := 0; i < MaxMatches; i++ {
		m := h.CreateSimulated(quickSim(fmt.Sprintf("sim_%03d", i)))
		if i == 0 {
			first = m
		}
	}
	if h.Len() != MaxMatches {
		t.Fatalf("expected registry at capacity, got %d", h.Len())
	}

	h.CreateSimulated(quickSim("sim_overflow"))
	if h.Len() != MaxMatches {
		t.Fatalf("capacity exceeded: %d", h.Len())
	}
	if h.Get(first.ID) != nil {
		t.Fatalf("oldest match %s not evicted", first.ID)
	}
	if h.Get("sim_overflow") == nil {
		t.Fatalf("new match missing after eviction")
	}
}

func TestHub_StopCancelsRunningMatch(t *testing.T) {
	h := New(nil)
	m := h.Create(match.Config{
		GameType:    arena.GameResourceWars,
		TotalRounds: 10,
		RoundDelay:  time.Hour,
		Seed:        1,
	})
	if !h.Stop(m.ID) {
		t.Fatalf("stop reported unknown match")
	}
	waitDone(t, m)
	if h.Stop("nope") {
		t.Fatalf("stop of unknown id must report false")
	}
}
