package match

import (
	"context"
	"math"
	"testing"
	"time"

	"colosseum-lite/arena"
)

func collectEvents(t *testing.T, cfg Config) []arena.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var events []arena.Event
	for ev := range NewRunner(cfg).Run(ctx) {
		events = append(events, ev)
	}
	if len(events) == 0 {
		t.Fatalf("runner produced no events")
	}
	return events
}

func TestRunner_EventSequencePerRound(t *testing.T) {
	events := collectEvents(t, Config{GameType: arena.GameResourceWars, TotalRounds: 3, Seed: 99})

	if events[0].Type != arena.EventMatchStart {
		t.Fatalf("first event must be match_start, got %s", events[0].Type)
	}
	if events[len(events)-1].Type != arena.EventMatchEnd {
		t.Fatalf("last event must be match_end, got %s", events[len(events)-1].Type)
	}

	i := 1
	for events[i].Type != arena.EventMatchEnd {
		if events[i].Type != arena.EventRoundStart {
			t.Fatalf("event %d: expected round_start, got %s", i, events[i].Type)
		}
		i++
		for _, want := range []arena.Agent{arena.AgentRed, arena.AgentBlue} {
			if events[i].Type != arena.EventThinkingStart || events[i].Agent != want {
				t.Fatalf("event %d: expected thinking_start(%s), got %s(%s)", i, want, events[i].Type, events[i].Agent)
			}
			i++
		}
		preds := 0
		for events[i].Type == arena.EventPrediction {
			if events[i].Prediction == nil {
				t.Fatalf("event %d: prediction event without payload", i)
			}
			preds++
			i++
		}
		if preds != 2*predictionsPerRound {
			t.Fatalf("expected %d streamed predictions, got %d", 2*predictionsPerRound, preds)
		}
		for _, want := range []arena.Agent{arena.AgentRed, arena.AgentBlue} {
			if events[i].Type != arena.EventThinkingEnd || events[i].Agent != want {
				t.Fatalf("event %d: expected thinking_end(%s), got %s(%s)", i, want, events[i].Type, events[i].Agent)
			}
			if events[i].ChosenMove == nil || len(events[i].Predictions) != predictionsPerRound {
				t.Fatalf("event %d: thinking_end missing move or final predictions", i)
			}
			i++
		}
		if events[i].Type != arena.EventCollapse {
			t.Fatalf("event %d: expected collapse, got %s", i, events[i].Type)
		}
		if events[i].Resolution == nil {
			t.Fatalf("event %d: collapse without resolution", i)
		}
		i++
		if events[i].Type != arena.EventRoundEnd {
			t.Fatalf("event %d: expected round_end, got %s", i, events[i].Type)
		}
		if events[i].Scores == nil || events[i].Accuracy == nil || events[i].GameState == nil {
			t.Fatalf("event %d: round_end missing scores/accuracy/state", i)
		}
		i++
	}
}

func TestRunner_EventsFoldToTerminalSnapshot(t *testing.T) {
	events := collectEvents(t, Config{GameType: arena.GameAuction, Seed: 5})

	snap := arena.Reduce(events)
	if snap.Phase != arena.PhaseMatchEnd {
		t.Fatalf("expected match_end phase, got %s", snap.Phase)
	}
	if snap.GameType != arena.GameAuction {
		t.Fatalf("unexpected game type %s", snap.GameType)
	}
	last := events[len(events)-1]
	if snap.Winner != last.Winner {
		t.Fatalf("snapshot winner %q != event winner %q", snap.Winner, last.Winner)
	}
	if got := snap.Scores(); last.FinalScores != nil && got != *last.FinalScores {
		t.Fatalf("snapshot scores %+v != final scores %+v", got, *last.FinalScores)
	}
	if snap.TotalFuturesSimulated != last.TotalFuturesSimulated {
		t.Fatalf("futures mismatch: snapshot %d, event %d", snap.TotalFuturesSimulated, last.TotalFuturesSimulated)
	}
}

func TestRunner_CollapseAnnotationsResolved(t *testing.T) {
	events := collectEvents(t, Config{GameType: arena.GameResourceWars, TotalRounds: 2, Seed: 17})

	sawCollapse := false
	for _, ev := range events {
		if ev.Type != arena.EventCollapse {
			continue
		}
		sawCollapse = true
		for _, p := range append(append([]arena.Prediction{}, ev.RedPredictions...), ev.BluePredictions...) {
			if p.WasCorrect == nil || p.PartialMatch == nil {
				t.Fatalf("collapse prediction left unresolved: %+v", p)
			}
			if *p.WasCorrect && *p.PartialMatch {
				t.Fatalf("exact match must not also be partial: %+v", p)
			}
		}
	}
	if !sawCollapse {
		t.Fatalf("no collapse events emitted")
	}
}

func TestRunner_SameSeedSameEvents(t *testing.T) {
	cfg := Config{MatchID: "m_det", GameType: arena.GameGPUBidding, Seed: 33}
	a := collectEvents(t, cfg)
	b := collectEvents(t, cfg)

	if len(a) != len(b) {
		t.Fatalf("event counts diverged: %d vs %d", len(a), len(b))
	}
	for i := range a {
		ja, err := a[i].Encode()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		jb, err := b[i].Encode()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if string(ja) != string(jb) {
			t.Fatalf("event %d diverged:\n%s\n%s", i, ja, jb)
		}
	}
}

func TestRunner_CancelStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := NewRunner(Config{GameType: arena.GameResourceWars, TotalRounds: 10, Seed: 1, RoundDelay: time.Hour}).Run(ctx)

	// Drain the first round, then cancel during the inter-round pause.
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
			t.Fatalf("runner did not stop after cancel")
		}
	}
}

func TestRunner_DefaultsApplied(t *testing.T) {
	r := NewRunner(Config{Seed: 1})
	cfg := r.Config()
	if cfg.MatchID == "" || cfg.GameType != arena.GameResourceWars {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.TotalRounds != arena.GameResourceWars.DefaultRounds() {
		t.Fatalf("expected default rounds, got %d", cfg.TotalRounds)
	}
	if cfg.RedPersonality != "aggressive" || cfg.BluePersonality != "defensive" {
		t.Fatalf("expected default personalities, got %+v", cfg)
	}
}

func TestRuleBrain_ThreeNormalizedPredictions(t *testing.T) {
	brain := NewRuleBrain(PersonaByID("adaptive"), 7)
	view := GameView{
		GameType:    arena.GameResourceWars,
		Round:       1,
		TotalRounds: 10,
		MyMoves: []arena.Move{
			{Type: "aggressive_bid", Target: "A", Amount: 80},
			{Type: "defensive_spread", Target: "A", Amount: 60},
			{Type: "counter", Target: "B", Amount: 40},
			{Type: "bluff", Target: "C", Amount: 100},
		},
		OppMoves: []arena.Move{
			{Type: "aggressive_bid", Target: "A", Amount: 80},
			{Type: "aggressive_bid", Target: "B", Amount: 60},
			{Type: "defensive_spread", Target: "A", Amount: 40},
			{Type: "retreat", Target: "A", Amount: 20},
		},
	}

	res := brain.Think(view)
	if len(res.Predictions) != predictionsPerRound {
		t.Fatalf("expected %d predictions, got %d", predictionsPerRound, len(res.Predictions))
	}
	sum := 0.0
	for i, p := range res.Predictions {
		sum += p.Confidence
		if i > 0 && p.Confidence > res.Predictions[i-1].Confidence+1e-9 {
			t.Fatalf("confidences not descending: %+v", res.Predictions)
		}
		if p.OpponentMove == "" || p.Counter == "" {
			t.Fatalf("prediction missing move strings: %+v", p)
		}
	}
	if math.Abs(sum-1.0) > 0.011 {
		t.Fatalf("confidences must sum to 1.0, got %v", sum)
	}
	if res.ChosenMove.Type == "" {
		t.Fatalf("brain committed no move")
	}
}

func TestPersonaByID_FallsBackToAdaptive(t *testing.T) {
	if got := PersonaByID("nonexistent"); got.ID != "adaptive" {
		t.Fatalf("expected adaptive fallback, got %q", got.ID)
	}
	for _, id := range PersonaIDs() {
		if PersonaByID(id).ID != id {
			t.Fatalf("persona %q not registered", id)
		}
	}
}
