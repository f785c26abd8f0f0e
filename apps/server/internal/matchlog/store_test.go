package matchlog

import (
	"context"
	"errors"
	"testing"

	"colosseum-lite/arena"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqliteStore, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func recordMatch(t *testing.T, s Store, matchID string, finish bool) {
	t.Helper()
	ctx := context.Background()
	events := []arena.Event{
		{
			Type:        arena.EventMatchStart,
			MatchID:     matchID,
			GameType:    arena.GameResourceWars,
			TotalRounds: 2,
			Agents: &arena.AgentPair{
				Red:  arena.AgentConfig{Personality: "aggressive"},
				Blue: arena.AgentConfig{Personality: "defensive"},
			},
		},
		{Type: arena.EventRoundStart, Round: 1},
		{Type: arena.EventRoundEnd, Round: 1, Scores: &arena.ScorePair{Red: 10, Blue: 5}},
	}
	if finish {
		events = append(events, arena.Event{Type: arena.EventMatchEnd, Winner: "red", FinalScores: &arena.ScorePair{Red: 10, Blue: 5}})
	}
	for seq, ev := range events {
		if err := s.Append(ctx, matchID, seq, ev); err != nil {
			t.Fatalf("append %s/%d: %v", matchID, seq, err)
		}
	}
}

func TestStore_AppendAndReadBack(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			recordMatch(t, s, "m1", true)

			events, err := s.Events(context.Background(), "m1")
			if err != nil {
				t.Fatalf("events: %v", err)
			}
			if len(events) != 4 {
				t.Fatalf("expected 4 events, got %d", len(events))
			}
			if events[0].Type != arena.EventMatchStart || events[3].Type != arena.EventMatchEnd {
				t.Fatalf("wrong order: first=%s last=%s", events[0].Type, events[3].Type)
			}
			if events[2].Scores == nil || events[2].Scores.Red != 10 {
				t.Fatalf("payload lost on round trip: %+v", events[2])
			}

			// The stored log must fold to the same terminal state.
			snap := arena.Reduce(events)
			if snap.Winner != "red" || snap.Phase != arena.PhaseMatchEnd {
				t.Fatalf("stored log folds wrong: winner=%q phase=%s", snap.Winner, snap.Phase)
			}
		})
	}
}

func TestStore_ListSummaries(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			recordMatch(t, s, "m1", true)
			recordMatch(t, s, "m2", false)

			sums, err := s.List(context.Background())
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(sums) != 2 {
				t.Fatalf("expected 2 summaries, got %d", len(sums))
			}
			byID := map[string]Summary{}
			for _, sum := range sums {
				byID[sum.MatchID] = sum
			}
			m1 := byID["m1"]
			if !m1.Finished || m1.Winner != "red" || m1.EventCount != 4 {
				t.Fatalf("m1 summary wrong: %+v", m1)
			}
			if m1.GameType != arena.GameResourceWars || m1.RedPersonality != "aggressive" {
				t.Fatalf("m1 metadata wrong: %+v", m1)
			}
			m2 := byID["m2"]
			if m2.Finished || m2.Winner != "" || m2.EventCount != 3 {
				t.Fatalf("m2 summary wrong: %+v", m2)
			}
		})
	}
}

func TestStore_DuplicateSeqRejected(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			ctx := context.Background()
			ev := arena.Event{Type: arena.EventRoundStart, Round: 1}
			if err := s.Append(ctx, "m1", 0, ev); err != nil {
				t.Fatalf("first append: %v", err)
			}
			if err := s.Append(ctx, "m1", 0, ev); err == nil {
				t.Fatalf("duplicate seq must be rejected")
			}
		})
	}
}

func TestStore_UnknownMatch(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			if _, err := s.Events(context.Background(), "nope"); !errors.Is(err, ErrMatchNotFound) {
				t.Fatalf("expected ErrMatchNotFound, got %v", err)
			}
		})
	}
}

func TestStore_EmptyMatchIDRejected(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			if err := s.Append(context.Background(), "", 0, arena.Event{Type: arena.EventKeepAlive}); err == nil {
				t.Fatalf("empty match id must be rejected")
			}
		})
	}
}
