package sim

import (
	"context"
	"testing"
	"time"

	"colosseum-lite/arena"
)

func runGenerator(t *testing.T, cfg Config) []arena.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var events []arena.Event
	for ev := range New(cfg).Run(ctx) {
		events = append(events, ev)
	}
	if len(events) == 0 {
		t.Fatalf("generator produced no events")
	}
	return events
}

func TestGenerator_FullVocabulary(t *testing.T) {
	events := runGenerator(t, Config{GameType: arena.GameResourceWars, TotalRounds: 4, Seed: 21})

	seen := map[arena.EventType]int{}
	for _, ev := range events {
		seen[ev.Type]++
	}
	for _, want := range []arena.EventType{
		arena.EventMatchStart, arena.EventRoundStart, arena.EventThinkingStart,
		arena.EventPrediction, arena.EventThinkingEnd, arena.EventCollapse,
		arena.EventRoundEnd, arena.EventMatchEnd,
	} {
		if seen[want] == 0 {
			t.Fatalf("vocabulary missing %s", want)
		}
	}
	if seen[arena.EventMatchStart] != 1 || seen[arena.EventMatchEnd] != 1 {
		t.Fatalf("expected exactly one match_start and match_end: %+v", seen)
	}
	if seen[arena.EventRoundStart] != 4 || seen[arena.EventRoundEnd] != 4 {
		t.Fatalf("expected 4 rounds, got %+v", seen)
	}
	if seen[arena.EventPrediction] != 4*2*predictionsPerSide {
		t.Fatalf("expected %d predictions, got %d", 4*2*predictionsPerSide, seen[arena.EventPrediction])
	}
}

func TestGenerator_FoldsToConsistentTerminalSnapshot(t *testing.T) {
	events := runGenerator(t, Config{GameType: arena.GameNegotiation, Seed: 8})

	snap := arena.Reduce(events)
	if snap.Phase != arena.PhaseMatchEnd {
		t.Fatalf("expected match_end, got %s", snap.Phase)
	}
	last := events[len(events)-1]
	if snap.Winner != last.Winner {
		t.Fatalf("winner mismatch: %q vs %q", snap.Winner, last.Winner)
	}
	if snap.TotalFuturesSimulated != last.TotalFuturesSimulated {
		t.Fatalf("futures mismatch: %d vs %d", snap.TotalFuturesSimulated, last.TotalFuturesSimulated)
	}
	acc := last.PredictionAccuracy
	if acc == nil || acc.Red < 0 || acc.Red > 1 || acc.Blue < 0 || acc.Blue > 1 {
		t.Fatalf("accuracy out of range: %+v", acc)
	}
}

func TestGenerator_SeededDeterminismWithoutPacing(t *testing.T) {
	cfg := Config{MatchID: "sim_det", GameType: arena.GameAuction, Seed: 1234}
	a := runGenerator(t, cfg)
	b := runGenerator(t, cfg)

	if len(a) != len(b) {
		t.Fatalf("lengths diverged: %d vs %d", len(a), len(b))
	}
	for i := range a {
		ja, _ := a[i].Encode()
		jb, _ := b[i].Encode()
		if string(ja) != string(jb) {
			t.Fatalf("event %d diverged:\n%s\n%s", i, ja, jb)
		}
	}
}

func TestGenerator_PredictionConfidencesNormalized(t *testing.T) {
	events := runGenerator(t, Config{GameType: arena.GameGPUBidding, TotalRounds: 2, Seed: 3})

	for _, ev := range events {
		if ev.Type != arena.EventThinkingEnd {
			continue
		}
		sum := 0.0
		for i, p := range ev.Predictions {
			if p.Confidence <= 0 || p.Confidence >= 1 {
				t.Fatalf("confidence out of range: %+v", p)
			}
			if i > 0 && p.Confidence > ev.Predictions[i-1].Confidence {
				t.Fatalf("confidences not descending: %v then %v",
					ev.Predictions[i-1].Confidence, p.Confidence)
			}
			sum += p.Confidence
		}
		if sum < 0.99 || sum > 1.01 {
			t.Fatalf("confidences must sum to 1.0, got %v", sum)
		}
	}
}

func TestGenerator_CancelDuringPacing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := New(Config{Seed: 2, PredictionDelay: time.Hour}).Run(ctx)

	if ev := <-ch; ev.Type != arena.EventMatchStart {
		t.Fatalf("expected match_start, got %s", ev.Type)
	}
	cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatalf("generator did not stop after cancel")
		}
	}
}
