package games

import (
	"fmt"

	"colosseum-lite/arena"
)

// Resource Wars move types.
const (
	MoveAggressiveBid   = "aggressive_bid"
	MoveDefensiveSpread = "defensive_spread"
	MoveBluff           = "bluff"
	MoveCounter         = "counter"
	MoveRetreat         = "retreat"
)

var resourceMoveTypes = []string{
	MoveAggressiveBid, MoveDefensiveSpread, MoveBluff, MoveCounter, MoveRetreat,
}

var resourceNames = []string{"A", "B", "C"}

const resourceBudget = 100

// resourceWars contests three pools of 100 units. Captures come out of the
// pool and onto the capturing side's score; retreat compounds a 10% economy
// bonus that boosts later moves.
type resourceWars struct {
	resources   map[string]int
	scores      arena.ScorePair
	round       int
	totalRounds int

	economyBonus struct {
		red  float64
		blue float64
	}
}

func newResourceWars(totalRounds int) *resourceWars {
	return &resourceWars{
		resources:   map[string]int{"A": 100, "B": 100, "C": 100},
		round:       1,
		totalRounds: totalRounds,
	}
}

func (e *resourceWars) GameType() arena.GameType { return arena.GameResourceWars }
func (e *resourceWars) Round() int               { return e.round }
func (e *resourceWars) TotalRounds() int         { return e.totalRounds }
func (e *resourceWars) Scores() arena.ScorePair  { return e.scores }
func (e *resourceWars) Winner() string           { return scoreWinner(e.scores) }

func (e *resourceWars) AdvanceRound() {
	if !e.Over() {
		e.round++
	}
}

func (e *resourceWars) Over() bool {
	if e.round > e.totalRounds {
		return true
	}
	for _, v := range e.resources {
		if v > 0 {
			return false
		}
	}
	return true
}

func (e *resourceWars) Delta() *arena.StateDelta {
	res := make(map[string]int, len(e.resources))
	for k, v := range e.resources {
		res[k] = v
	}
	return &arena.StateDelta{
		Round:       intPtr(e.round),
		TotalRounds: intPtr(e.totalRounds),
		Resources:   res,
		Scores:      pairPtr(e.scores),
	}
}

func (e *resourceWars) ValidMoves(arena.Agent) []arena.Move {
	moves := make([]arena.Move, 0, len(resourceMoveTypes)*len(resourceNames)*5)
	for _, mt := range resourceMoveTypes {
		for _, r := range resourceNames {
			for _, amount := range []int{20, 40, 60, 80, 100} {
				moves = append(moves, arena.Move{Type: mt, Target: r, Amount: amount})
			}
		}
	}
	return moves
}

func (e *resourceWars) DefaultMove(arena.Agent) arena.Move {
	return arena.Move{Type: MoveDefensiveSpread, Target: "A", Amount: 60}
}

func (e *resourceWars) Resolve(red, blue arena.Move) arena.Resolution {
	// Retreat grows the compounding economy bonus before power is computed.
	if red.Type == MoveRetreat {
		e.economyBonus.red += float64(red.Amount / 10)
	}
	if blue.Type == MoveRetreat {
		e.economyBonus.blue += float64(blue.Amount / 10)
	}

	redPower := e.movePower(red, int(e.economyBonus.red))
	bluePower := e.movePower(blue, int(e.economyBonus.blue))

	changes := map[string]arena.ScorePair{}
	var redDelta, blueDelta int
	for _, r := range resourceNames {
		rp, bp := redPower[r], bluePower[r]
		if rp == 0 && bp == 0 {
			continue
		}
		switch {
		case rp > bp:
			capture := min(e.resources[r], max(5, (rp-bp)/2))
			redDelta += capture
			e.resources[r] -= capture
			changes[r] = arena.ScorePair{Red: capture}
		case bp > rp:
			capture := min(e.resources[r], max(5, (bp-rp)/2))
			blueDelta += capture
			e.resources[r] -= capture
			changes[r] = arena.ScorePair{Blue: capture}
		default:
			// Equal power: holder keeps the pool.
			changes[r] = arena.ScorePair{}
		}
	}

	e.scores.Red += redDelta
	e.scores.Blue += blueDelta

	winner := ""
	if redDelta > blueDelta {
		winner = "red"
	} else if blueDelta > redDelta {
		winner = "blue"
	}

	desc := fmt.Sprintf("Red played %s on %s (%d), Blue played %s on %s (%d). ",
		red.Type, red.Target, red.Amount, blue.Type, blue.Target, blue.Amount)
	if winner == "red" {
		desc += "Red wins the round."
	} else if winner == "blue" {
		desc += "Blue wins the round."
	} else {
		desc += "Round is a draw."
	}

	return arena.Resolution{
		RoundWinner:     winner,
		ResourceChanges: changes,
		Description:     desc,
	}
}

// movePower spreads a move's strength across the three pools.
func (e *resourceWars) movePower(m arena.Move, boost int) map[string]int {
	power := map[string]int{"A": 0, "B": 0, "C": 0}
	if _, ok := power[m.Target]; !ok && m.Type != MoveDefensiveSpread && m.Type != MoveRetreat {
		return power
	}
	switch m.Type {
	case MoveAggressiveBid:
		power[m.Target] += m.Amount + boost
	case MoveDefensiveSpread:
		per := (m.Amount + boost) / 3
		for _, r := range resourceNames {
			power[r] += per
		}
	case MoveBluff:
		// Looks like an attack but commits a quarter of the amount.
		power[m.Target] += m.Amount/4 + boost
	case MoveCounter:
		// Hardened defense on one pool.
		power[m.Target] += (m.Amount + boost) * 3 / 2
	case MoveRetreat:
		// No power committed this round.
	}
	return power
}
