package games

import (
	"math/rand"

	"colosseum-lite/arena"
)

// Engine is one rule set driven round by round. The match runner owns the
// engine and calls it from a single goroutine; engines are not safe for
// concurrent use.
//
// The cycle per round is ValidMoves/DefaultMove while agents think, one
// Resolve with both committed moves, then AdvanceRound until Over reports
// true.
type Engine interface {
	GameType() arena.GameType
	Round() int
	TotalRounds() int

	// AdvanceRound moves the engine to the next round and prepares any
	// per-round market state (next lot, next listing). No-op once Over.
	AdvanceRound()
	Over() bool

	// Winner returns "red", "blue" or "draw" from final scores.
	Winner() string
	Scores() arena.ScorePair

	// Delta projects the full current state as a wire delta for
	// round_start and round_end events.
	Delta() *arena.StateDelta

	ValidMoves(agent arena.Agent) []arena.Move
	// DefaultMove is the fallback when an agent produces no legal move.
	DefaultMove(agent arena.Agent) arena.Move
	Resolve(red, blue arena.Move) arena.Resolution
}

// New builds the engine for a game type. A non-positive totalRounds falls
// back to the game type's canonical count. The rng drives hidden information
// (walkaway prices, valuations, market demand) and must be non-nil for the
// auction and market games.
func New(gt arena.GameType, totalRounds int, rng *rand.Rand) Engine {
	if totalRounds <= 0 {
		totalRounds = gt.DefaultRounds()
	}
	switch gt {
	case arena.GameNegotiation:
		return newNegotiation(totalRounds, rng)
	case arena.GameAuction:
		return newAuction(totalRounds, rng)
	case arena.GameGPUBidding:
		return newGPUMarket(totalRounds, rng)
	default:
		return newResourceWars(totalRounds)
	}
}

func scoreWinner(s arena.ScorePair) string {
	switch {
	case s.Red > s.Blue:
		return "red"
	case s.Blue > s.Red:
		return "blue"
	default:
		return "draw"
	}
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func pairPtr(v arena.ScorePair) *arena.ScorePair { return &v }
