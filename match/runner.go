package match

import (
	"context"
	"log"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"colosseum-lite/arena"
	"colosseum-lite/games"
)

// Config describes one match to run.
type Config struct {
	MatchID         string         `json:"matchId"`
	GameType        arena.GameType `json:"gameType"`
	RedPersonality  string         `json:"redPersonality"`
	BluePersonality string         `json:"bluePersonality"`
	TotalRounds     int            `json:"totalRounds"`

	// RoundDelay paces rounds for live viewing. Zero disables pacing.
	RoundDelay time.Duration `json:"-"`
	// Seed fixes all randomness (engine and brains). Zero draws from the
	// clock.
	Seed int64 `json:"-"`
}

func (c *Config) applyDefaults() {
	if c.MatchID == "" {
		c.MatchID = "match_" + uuid.NewString()[:8]
	}
	if !c.GameType.Valid() {
		c.GameType = arena.GameResourceWars
	}
	if c.RedPersonality == "" {
		c.RedPersonality = "aggressive"
	}
	if c.BluePersonality == "" {
		c.BluePersonality = "defensive"
	}
	if c.TotalRounds <= 0 {
		c.TotalRounds = c.GameType.DefaultRounds()
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
}

// Runner plays a full match between two rule brains and emits the wire event
// sequence over a channel.
type Runner struct {
	cfg    Config
	engine games.Engine
	red    Brain
	blue   Brain

	redHistory  []arena.Move
	blueHistory []arena.Move

	totalFutures int
	redCorrect   int
	redTotal     int
	blueCorrect  int
	blueTotal    int
}

func NewRunner(cfg Config) *Runner {
	cfg.applyDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))
	return &Runner{
		cfg:    cfg,
		engine: games.New(cfg.GameType, cfg.TotalRounds, rng),
		red:    NewRuleBrain(PersonaByID(cfg.RedPersonality), cfg.Seed+1),
		blue:   NewRuleBrain(PersonaByID(cfg.BluePersonality), cfg.Seed+2),
	}
}

func (r *Runner) Config() Config { return r.cfg }

// Run plays the match on a fresh goroutine. The returned channel delivers
// every event in order and is closed after match_end, or early when the
// context is canceled.
func (r *Runner) Run(ctx context.Context) <-chan arena.Event {
	out := make(chan arena.Event, 16)
	go func() {
		defer close(out)
		r.play(ctx, out)
	}()
	return out
}

func (r *Runner) play(ctx context.Context, out chan<- arena.Event) {
	log.Printf("[Match %s] starting %s: %s vs %s, %d rounds",
		r.cfg.MatchID, r.cfg.GameType, r.cfg.RedPersonality, r.cfg.BluePersonality, r.engine.TotalRounds())

	ok := r.emit(ctx, out, arena.Event{
		Type:     arena.EventMatchStart,
		MatchID:  r.cfg.MatchID,
		GameType: r.cfg.GameType,
		Agents: &arena.AgentPair{
			Red:  arena.AgentConfig{Personality: r.cfg.RedPersonality},
			Blue: arena.AgentConfig{Personality: r.cfg.BluePersonality},
		},
		TotalRounds: r.engine.TotalRounds(),
	})
	if !ok {
		return
	}

	for !r.engine.Over() {
		if !r.playRound(ctx, out) {
			return
		}
		r.engine.AdvanceRound()
		if !r.pause(ctx, r.cfg.RoundDelay) {
			return
		}
	}

	scores := r.engine.Scores()
	winner := r.engine.Winner()
	log.Printf("[Match %s] over: winner=%s scores=%d/%d futures=%d",
		r.cfg.MatchID, winner, scores.Red, scores.Blue, r.totalFutures)

	r.emit(ctx, out, arena.Event{
		Type:        arena.EventMatchEnd,
		Winner:      winner,
		FinalScores: &scores,
		PredictionAccuracy: &arena.AccuracyPair{
			Red:  round2(ratio(r.redCorrect, r.redTotal)),
			Blue: round2(ratio(r.blueCorrect, r.blueTotal)),
		},
		TotalFuturesSimulated: r.totalFutures,
	})
}

func (r *Runner) playRound(ctx context.Context, out chan<- arena.Event) bool {
	roundNum := r.engine.Round()

	ev := arena.Event{Type: arena.EventRoundStart, Round: roundNum, GameState: r.engine.Delta()}
	r.attachModeDelta(&ev)
	if !r.emit(ctx, out, ev) {
		return false
	}

	if !r.emit(ctx, out, arena.Event{Type: arena.EventThinkingStart, Agent: arena.AgentRed}) {
		return false
	}
	if !r.emit(ctx, out, arena.Event{Type: arena.EventThinkingStart, Agent: arena.AgentBlue}) {
		return false
	}

	redResult := r.red.Think(r.view(arena.AgentRed))
	blueResult := r.blue.Think(r.view(arena.AgentBlue))

	for _, stream := range []struct {
		agent arena.Agent
		preds []arena.Prediction
	}{
		{arena.AgentRed, redResult.Predictions},
		{arena.AgentBlue, blueResult.Predictions},
	} {
		for i := range stream.preds {
			p := stream.preds[i]
			if !r.emit(ctx, out, arena.Event{
				Type:        arena.EventPrediction,
				Agent:       stream.agent,
				BranchIndex: i,
				Prediction:  &p,
			}) {
				return false
			}
		}
	}
	r.totalFutures += len(redResult.Predictions) + len(blueResult.Predictions)

	if !r.emit(ctx, out, arena.Event{
		Type:        arena.EventThinkingEnd,
		Agent:       arena.AgentRed,
		Predictions: redResult.Predictions,
		ChosenMove:  &redResult.ChosenMove,
	}) {
		return false
	}
	if !r.emit(ctx, out, arena.Event{
		Type:        arena.EventThinkingEnd,
		Agent:       arena.AgentBlue,
		Predictions: blueResult.Predictions,
		ChosenMove:  &blueResult.ChosenMove,
	}) {
		return false
	}

	redMove := r.fallback(arena.AgentRed, redResult.ChosenMove)
	blueMove := r.fallback(arena.AgentBlue, blueResult.ChosenMove)
	resolution := r.engine.Resolve(redMove, blueMove)

	redAnnotated := r.annotate(arena.AgentRed, redResult.Predictions, blueMove)
	blueAnnotated := r.annotate(arena.AgentBlue, blueResult.Predictions, redMove)

	if !r.emit(ctx, out, arena.Event{
		Type:            arena.EventCollapse,
		RedPredictions:  redAnnotated,
		BluePredictions: blueAnnotated,
		Resolution:      &resolution,
	}) {
		return false
	}

	r.redHistory = append(r.redHistory, redMove)
	r.blueHistory = append(r.blueHistory, blueMove)

	scores := r.engine.Scores()
	ev = arena.Event{
		Type:   arena.EventRoundEnd,
		Round:  roundNum,
		Scores: &scores,
		Accuracy: &arena.AccuracyPair{
			Red:  round2(correctRatio(redAnnotated)),
			Blue: round2(correctRatio(blueAnnotated)),
		},
		GameState: r.engine.Delta(),
	}
	r.attachModeDelta(&ev)
	return r.emit(ctx, out, ev)
}

func (r *Runner) view(agent arena.Agent) GameView {
	opp := arena.AgentBlue
	oppHistory := r.blueHistory
	if agent == arena.AgentBlue {
		opp = arena.AgentRed
		oppHistory = r.redHistory
	}
	return GameView{
		GameType:    r.cfg.GameType,
		Round:       r.engine.Round(),
		TotalRounds: r.engine.TotalRounds(),
		Scores:      r.engine.Scores(),
		MyMoves:     r.engine.ValidMoves(agent),
		OppMoves:    r.engine.ValidMoves(opp),
		OppHistory:  oppHistory,
	}
}

func (r *Runner) fallback(agent arena.Agent, m arena.Move) arena.Move {
	if m.Type == "" {
		log.Printf("[Match %s] %s produced no move, using default", r.cfg.MatchID, agent)
		return r.engine.DefaultMove(agent)
	}
	return m
}

// annotate resolves prediction correctness against the opponent's actual
// move: exact key match is correct, a shared move type is a partial match.
func (r *Runner) annotate(agent arena.Agent, preds []arena.Prediction, actual arena.Move) []arena.Prediction {
	actualKey := actual.Key(r.cfg.GameType)
	out := make([]arena.Prediction, len(preds))
	for i, p := range preds {
		correct := p.OpponentMove == actualKey
		partial := !correct && actual.Type != "" && strings.Contains(p.OpponentMove, actual.Type)
		p.WasCorrect = &correct
		p.PartialMatch = &partial
		out[i] = p

		if agent == arena.AgentRed {
			r.redTotal++
			if correct {
				r.redCorrect++
			}
		} else {
			r.blueTotal++
			if correct {
				r.blueCorrect++
			}
		}
	}
	return out
}

// attachModeDelta mirrors the wire shape: the generic gameState field plus
// the game-type specific one for non-default modes.
func (r *Runner) attachModeDelta(ev *arena.Event) {
	switch r.cfg.GameType {
	case arena.GameNegotiation:
		ev.NegotiationState = ev.GameState
	case arena.GameAuction:
		ev.AuctionState = ev.GameState
	case arena.GameGPUBidding:
		ev.GPUMarketState = ev.GameState
	}
}

func (r *Runner) emit(ctx context.Context, out chan<- arena.Event, ev arena.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		log.Printf("[Match %s] canceled: %v", r.cfg.MatchID, ctx.Err())
		return false
	}
}

func (r *Runner) pause(ctx context.Context, d time.Duration) bool {
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

func ratio(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

func correctRatio(preds []arena.Prediction) float64 {
	if len(preds) == 0 {
		return 0
	}
	n := 0
	for _, p := range preds {
		if p.WasCorrect != nil && *p.WasCorrect {
			n++
		}
	}
	return float64(n) / float64(len(preds))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
