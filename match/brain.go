package match

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"colosseum-lite/arena"
)

const predictionsPerRound = 3

// GameView is the read-only projection of match state a brain decides from.
type GameView struct {
	GameType    arena.GameType
	Round       int
	TotalRounds int
	Scores      arena.ScorePair

	MyMoves    []arena.Move // legal moves for this side
	OppMoves   []arena.Move // legal moves for the opponent
	OppHistory []arena.Move // opponent's committed moves so far
}

// ThinkResult carries one round of simulated futures plus the committed move.
type ThinkResult struct {
	Predictions []arena.Prediction
	ChosenMove  arena.Move
}

// Brain is the decision interface all agent types implement.
type Brain interface {
	// Think simulates opponent futures and commits a move for the round.
	Think(view GameView) ThinkResult
	Name() string
}

// RuleBrain drives decisions from a PersonalityProfile, in the shape of a
// weighted sampler over the legal move set.
type RuleBrain struct {
	persona Persona
	rng     *rand.Rand
}

func NewRuleBrain(persona Persona, seed int64) *RuleBrain {
	return &RuleBrain{
		persona: persona,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (b *RuleBrain) Name() string { return b.persona.Name }

// Think produces exactly three predicted opponent futures with confidences
// normalized to sum 1.0 in descending order, plus the move to commit.
func (b *RuleBrain) Think(view GameView) ThinkResult {
	opp := b.sampleDistinct(view.OppMoves, predictionsPerRound, b.oppWeight(view))

	weights := make([]float64, len(opp))
	total := 0.0
	for i := range opp {
		w := 0.2 + b.rng.Float64()
		if i < len(view.OppHistory) {
			// Echoes of observed play read as more likely.
			w += b.persona.Brain.Adaptability * 0.5
		}
		weights[i] = w
		total += w
	}

	chosen := b.chooseMove(view)

	preds := make([]arena.Prediction, len(opp))
	for i, m := range opp {
		preds[i] = arena.Prediction{
			OpponentMove: m.Key(view.GameType),
			Confidence:   weights[i] / total,
			Counter:      chosen.Key(view.GameType),
			Reasoning:    b.reasoning(view, m),
		}
	}
	sort.SliceStable(preds, func(i, j int) bool { return preds[i].Confidence > preds[j].Confidence })
	normalizeConfidences(preds)

	return ThinkResult{Predictions: preds, ChosenMove: chosen}
}

// chooseMove weights the legal move set by personality and samples one.
func (b *RuleBrain) chooseMove(view GameView) arena.Move {
	if len(view.MyMoves) == 0 {
		return arena.Move{}
	}
	p := b.persona.Brain

	best, bestScore := view.MyMoves[0], math.Inf(-1)
	for _, m := range view.MyMoves {
		score := b.rng.Float64() * p.Randomness
		commit := commitLevel(m)
		score += p.Aggression * commit
		score += (1 - p.Aggression) * (1 - commit) * 0.8
		if isBluffMove(m.Type) {
			score += p.Bluffing * 0.6
		}
		if len(view.OppHistory) > 0 {
			// Adaptive play leans into countering the opponent's last move.
			last := view.OppHistory[len(view.OppHistory)-1]
			if countersType(m.Type, last.Type) {
				score += p.Adaptability * 0.7
			}
		}
		if score > bestScore {
			best, bestScore = m, score
		}
	}
	return best
}

// sampleDistinct draws up to n distinct moves weighted by weigh.
func (b *RuleBrain) sampleDistinct(moves []arena.Move, n int, weigh func(arena.Move) float64) []arena.Move {
	if len(moves) == 0 {
		return nil
	}
	type scored struct {
		move arena.Move
		key  float64
	}
	pool := make([]scored, 0, len(moves))
	seen := map[string]bool{}
	for _, m := range moves {
		k := fmt.Sprintf("%s|%s|%d|%d|%s", m.Type, m.Target, m.Amount, m.Price, m.GPUType)
		if seen[k] {
			continue
		}
		seen[k] = true
		pool = append(pool, scored{move: m, key: b.rng.Float64() * weigh(m)})
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].key > pool[j].key })
	if len(pool) > n {
		pool = pool[:n]
	}
	out := make([]arena.Move, len(pool))
	for i, s := range pool {
		out[i] = s.move
	}
	return out
}

// oppWeight models what the brain believes about the opponent: adaptive
// brains weight move types the opponent has actually played.
func (b *RuleBrain) oppWeight(view GameView) func(arena.Move) float64 {
	freq := map[string]int{}
	for _, m := range view.OppHistory {
		freq[m.Type]++
	}
	return func(m arena.Move) float64 {
		w := 1.0
		if n := freq[m.Type]; n > 0 {
			w += b.persona.Brain.Adaptability * float64(n)
		}
		return w
	}
}

func (b *RuleBrain) reasoning(view GameView, predicted arena.Move) string {
	if len(view.OppHistory) == 0 {
		return fmt.Sprintf("Opening read: expecting %s.", predicted.Type)
	}
	last := view.OppHistory[len(view.OppHistory)-1]
	return fmt.Sprintf("After their %s, a %s line fits round %d.", last.Type, predicted.Type, view.Round)
}

// normalizeConfidences rescales to an exact sum of 1.0 while keeping the
// descending order, absorbing rounding drift into the head.
func normalizeConfidences(preds []arena.Prediction) {
	if len(preds) == 0 {
		return
	}
	total := 0.0
	for _, p := range preds {
		total += p.Confidence
	}
	if total <= 0 {
		even := 1.0 / float64(len(preds))
		for i := range preds {
			preds[i].Confidence = even
		}
		return
	}
	rest := 0.0
	for i := 1; i < len(preds); i++ {
		preds[i].Confidence = math.Round(preds[i].Confidence/total*100) / 100
		rest += preds[i].Confidence
	}
	preds[0].Confidence = math.Round((1.0-rest)*100) / 100
}

// commitLevel maps a move to how much it commits, 0..1.
func commitLevel(m arena.Move) float64 {
	switch {
	case m.Amount > 0:
		return math.Min(1, float64(m.Amount)/100)
	case m.Price > 0:
		return float64(m.Price) / 100
	default:
		return 0.1
	}
}

func isBluffMove(moveType string) bool {
	switch moveType {
	case "bluff", "bluff_walkaway", "bluff_bid":
		return true
	}
	return false
}

// countersType says whether playing `mine` answers the opponent's last type.
func countersType(mine, theirs string) bool {
	switch theirs {
	case "aggressive_bid":
		return mine == "counter" || mine == "defensive_spread"
	case "bluff", "bluff_bid", "bluff_walkaway":
		return mine == "aggressive_bid" || mine == "reject"
	case "propose", "counter_offer":
		return mine == "accept" || mine == "counter_offer"
	case "surge_pricing":
		return mine == "wait" || mine == "pass"
	case "bid":
		return mine == "surge_pricing" || mine == "bid"
	}
	return false
}
