// Package sim produces synthetic match event streams without touching the
// network or the game engines. The vocabulary and ordering are identical to a
// live match, the content is randomized but plausible, so anything consuming
// events (reducer, replay, UI) can be driven offline.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"colosseum-lite/arena"
)

const predictionsPerSide = 3

// Config controls one synthetic match.
type Config struct {
	MatchID     string
	GameType    arena.GameType
	TotalRounds int

	// Seed fixes the content. Zero draws from the clock.
	Seed int64

	// Pacing delays. Both zero means no timers fire at all, which keeps
	// generation deterministic and instant.
	PredictionDelay time.Duration
	RoundDelay      time.Duration
}

func (c *Config) applyDefaults() {
	if c.MatchID == "" {
		c.MatchID = "sim_" + uuid.NewString()[:8]
	}
	if !c.GameType.Valid() {
		c.GameType = arena.GameResourceWars
	}
	if c.TotalRounds <= 0 {
		c.TotalRounds = c.GameType.DefaultRounds()
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
}

// Generator emits a full synthetic match over a channel.
type Generator struct {
	cfg Config
	rng *rand.Rand

	scores       arena.ScorePair
	resources    map[string]int
	totalFutures int
	redCorrect   int
	redTotal     int
	blueCorrect  int
	blueTotal    int
}

func New(cfg Config) *Generator {
	cfg.applyDefaults()
	return &Generator{
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		resources: map[string]int{"A": 100, "B": 100, "C": 100},
	}
}

func (g *Generator) Config() Config { return g.cfg }

// Run generates the match on a fresh goroutine; the channel closes after
// match_end or on cancellation.
func (g *Generator) Run(ctx context.Context) <-chan arena.Event {
	out := make(chan arena.Event, 16)
	go func() {
		defer close(out)
		g.generate(ctx, out)
	}()
	return out
}

func (g *Generator) generate(ctx context.Context, out chan<- arena.Event) {
	personalities := []string{"aggressive", "defensive", "adaptive", "chaotic"}
	red := personalities[g.rng.Intn(len(personalities))]
	blue := personalities[g.rng.Intn(len(personalities))]

	if !g.emit(ctx, out, arena.Event{
		Type:     arena.EventMatchStart,
		MatchID:  g.cfg.MatchID,
		GameType: g.cfg.GameType,
		Agents: &arena.AgentPair{
			Red:  arena.AgentConfig{Personality: red, Model: "synthetic"},
			Blue: arena.AgentConfig{Personality: blue, Model: "synthetic"},
		},
		TotalRounds: g.cfg.TotalRounds,
	}) {
		return
	}

	for round := 1; round <= g.cfg.TotalRounds; round++ {
		if !g.generateRound(ctx, out, round) {
			return
		}
		if !g.pause(ctx, g.cfg.RoundDelay) {
			return
		}
	}

	winner := "draw"
	if g.scores.Red > g.scores.Blue {
		winner = "red"
	} else if g.scores.Blue > g.scores.Red {
		winner = "blue"
	}
	g.emit(ctx, out, arena.Event{
		Type:        arena.EventMatchEnd,
		Winner:      winner,
		FinalScores: &arena.ScorePair{Red: g.scores.Red, Blue: g.scores.Blue},
		PredictionAccuracy: &arena.AccuracyPair{
			Red:  accuracy(g.redCorrect, g.redTotal),
			Blue: accuracy(g.blueCorrect, g.blueTotal),
		},
		TotalFuturesSimulated: g.totalFutures,
	})
}

func (g *Generator) generateRound(ctx context.Context, out chan<- arena.Event, round int) bool {
	ev := arena.Event{Type: arena.EventRoundStart, Round: round, GameState: g.delta(round)}
	if !g.emit(ctx, out, ev) {
		return false
	}

	for _, agent := range []arena.Agent{arena.AgentRed, arena.AgentBlue} {
		if !g.emit(ctx, out, arena.Event{Type: arena.EventThinkingStart, Agent: agent}) {
			return false
		}
	}

	redPreds := g.predictions()
	bluePreds := g.predictions()
	for _, stream := range []struct {
		agent arena.Agent
		preds []arena.Prediction
	}{
		{arena.AgentRed, redPreds},
		{arena.AgentBlue, bluePreds},
	} {
		for i := range stream.preds {
			if !g.pause(ctx, g.cfg.PredictionDelay) {
				return false
			}
			p := stream.preds[i]
			if !g.emit(ctx, out, arena.Event{
				Type:        arena.EventPrediction,
				Agent:       stream.agent,
				BranchIndex: i,
				Prediction:  &p,
			}) {
				return false
			}
		}
	}
	g.totalFutures += len(redPreds) + len(bluePreds)

	redMove := g.move()
	blueMove := g.move()
	for _, end := range []struct {
		agent arena.Agent
		preds []arena.Prediction
		move  arena.Move
	}{
		{arena.AgentRed, redPreds, redMove},
		{arena.AgentBlue, bluePreds, blueMove},
	} {
		mv := end.move
		if !g.emit(ctx, out, arena.Event{
			Type:        arena.EventThinkingEnd,
			Agent:       end.agent,
			Predictions: end.preds,
			ChosenMove:  &mv,
		}) {
			return false
		}
	}

	redAnnotated := g.annotate(redPreds, arena.AgentRed)
	blueAnnotated := g.annotate(bluePreds, arena.AgentBlue)

	winner := ""
	points := 5 + g.rng.Intn(26)
	switch g.rng.Intn(3) {
	case 0:
		winner = "red"
		g.scores.Red += points
	case 1:
		winner = "blue"
		g.scores.Blue += points
	}
	if g.cfg.GameType == arena.GameResourceWars && winner != "" {
		pool := []string{"A", "B", "C"}[g.rng.Intn(3)]
		g.resources[pool] = max(0, g.resources[pool]-points)
	}

	if !g.emit(ctx, out, arena.Event{
		Type:            arena.EventCollapse,
		RedPredictions:  redAnnotated,
		BluePredictions: blueAnnotated,
		Resolution: &arena.Resolution{
			RoundWinner: winner,
			Description: fmt.Sprintf("Synthetic round %d resolution.", round),
		},
	}) {
		return false
	}

	return g.emit(ctx, out, arena.Event{
		Type:   arena.EventRoundEnd,
		Round:  round,
		Scores: &arena.ScorePair{Red: g.scores.Red, Blue: g.scores.Blue},
		Accuracy: &arena.AccuracyPair{
			Red:  accuracy(countCorrect(redAnnotated), len(redAnnotated)),
			Blue: accuracy(countCorrect(blueAnnotated), len(blueAnnotated)),
		},
		GameState: g.delta(round),
	})
}

// delta projects the synthetic ledger as a wire delta.
func (g *Generator) delta(round int) *arena.StateDelta {
	r := round
	scores := g.scores
	d := &arena.StateDelta{Round: &r, Scores: &scores}
	if g.cfg.GameType == arena.GameResourceWars {
		res := make(map[string]int, len(g.resources))
		for k, v := range g.resources {
			res[k] = v
		}
		d.Resources = res
	}
	return d
}

// predictions draws one side's batch: confidences normalized to sum 1.0
// and sorted descending, like the rule brain produces.
func (g *Generator) predictions() []arena.Prediction {
	raw := make([]float64, predictionsPerSide)
	total := 0.0
	for i := range raw {
		raw[i] = 0.1 + g.rng.Float64()
		total += raw[i]
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(raw)))
	preds := make([]arena.Prediction, predictionsPerSide)
	for i := range preds {
		preds[i] = arena.Prediction{
			OpponentMove: g.move().Key(g.cfg.GameType),
			Confidence:   raw[i] / total,
			Counter:      g.move().Key(g.cfg.GameType),
		}
	}
	return preds
}

// move draws a plausible move for the configured game type.
func (g *Generator) move() arena.Move {
	switch g.cfg.GameType {
	case arena.GameNegotiation:
		types := []string{"propose", "counter_offer", "accept", "reject", "bluff_walkaway"}
		return arena.Move{Type: types[g.rng.Intn(len(types))], Price: 10 + g.rng.Intn(9)*10}
	case arena.GameAuction:
		types := []string{"bid", "pass", "bluff_bid"}
		return arena.Move{Type: types[g.rng.Intn(len(types))], Amount: 10 + g.rng.Intn(50)*10}
	case arena.GameGPUBidding:
		types := []string{"bid", "pass", "wait", "surge_bid"}
		gpus := []string{"NVIDIA H100", "NVIDIA A100", "NVIDIA L4", "AMD MI300X"}
		return arena.Move{Type: types[g.rng.Intn(len(types))], GPUType: gpus[g.rng.Intn(len(gpus))], Amount: 100 + g.rng.Intn(400), Hours: 1}
	default:
		types := []string{"aggressive_bid", "defensive_spread", "bluff", "counter", "retreat"}
		targets := []string{"A", "B", "C"}
		return arena.Move{
			Type:   types[g.rng.Intn(len(types))],
			Target: targets[g.rng.Intn(len(targets))],
			Amount: 20 * (1 + g.rng.Intn(5)),
		}
	}
}

// annotate resolves each prediction with random plausible correctness.
func (g *Generator) annotate(preds []arena.Prediction, agent arena.Agent) []arena.Prediction {
	out := make([]arena.Prediction, len(preds))
	for i, p := range preds {
		correct := g.rng.Float64() < 0.3
		partial := !correct && g.rng.Float64() < 0.4
		p.WasCorrect = &correct
		p.PartialMatch = &partial
		out[i] = p
		if agent == arena.AgentRed {
			g.redTotal++
			if correct {
				g.redCorrect++
			}
		} else {
			g.blueTotal++
			if correct {
				g.blueCorrect++
			}
		}
	}
	return out
}

func (g *Generator) emit(ctx context.Context, out chan<- arena.Event, ev arena.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (g *Generator) pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func accuracy(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

func countCorrect(preds []arena.Prediction) int {
	n := 0
	for _, p := range preds {
		if p.WasCorrect != nil && *p.WasCorrect {
			n++
		}
	}
	return n
}
