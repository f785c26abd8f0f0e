package games

import (
	"fmt"
	"math/rand"
	"strings"

	"colosseum-lite/arena"
)

// Auction move types.
const (
	MoveBid      = "bid"
	MovePass     = "pass"
	MoveBluffBid = "bluff_bid"
)

const auctionStartingCredits = 1000

type auctionItemTemplate struct {
	name      string
	baseValue int
}

var auctionItemTemplates = []auctionItemTemplate{
	{"Alpha Core", 100},
	{"Beta Shield", 80},
	{"Gamma Drive", 120},
	{"Delta Array", 90},
	{"Epsilon Node", 110},
	{"Zeta Link", 70},
	{"Eta Pulse", 130},
	{"Theta Grid", 95},
}

type auctionLot struct {
	name      string
	baseValue int
	redValue  int // hidden per-side valuations
	blueValue int
}

// auction runs one sealed-bid lot per round. A bluff bid competes at full
// strength but pays only half if it wins; score is valuation minus payment.
type auction struct {
	round       int
	totalRounds int
	rng         *rand.Rand

	lots       []auctionLot
	credits    arena.ScorePair
	scores     arena.ScorePair
	totalSpent arena.ScorePair
	wonItems   arena.WonItemsPair
	bluffsUsed arena.ScorePair
}

func newAuction(totalRounds int, rng *rand.Rand) *auction {
	e := &auction{
		round:       1,
		totalRounds: totalRounds,
		rng:         rng,
		credits:     arena.ScorePair{Red: auctionStartingCredits, Blue: auctionStartingCredits},
	}
	for _, t := range auctionItemTemplates {
		e.lots = append(e.lots, auctionLot{
			name:      t.name,
			baseValue: t.baseValue,
			redValue:  t.baseValue - 30 + rng.Intn(81),
			blueValue: t.baseValue - 30 + rng.Intn(81),
		})
	}
	if e.totalRounds > len(e.lots) {
		e.totalRounds = len(e.lots)
	}
	return e
}

func (e *auction) GameType() arena.GameType { return arena.GameAuction }
func (e *auction) Round() int               { return e.round }
func (e *auction) TotalRounds() int         { return e.totalRounds }
func (e *auction) Scores() arena.ScorePair  { return e.scores }
func (e *auction) Winner() string           { return scoreWinner(e.scores) }

func (e *auction) AdvanceRound() {
	if !e.Over() {
		e.round++
	}
}

func (e *auction) Over() bool {
	if e.round > e.totalRounds {
		return true
	}
	return e.credits.Red <= 0 && e.credits.Blue <= 0
}

func (e *auction) currentLot() *auctionLot {
	idx := e.round - 1
	if idx < 0 || idx >= len(e.lots) {
		return nil
	}
	return &e.lots[idx]
}

func (e *auction) Delta() *arena.StateDelta {
	d := &arena.StateDelta{
		Round:          intPtr(e.round),
		TotalRounds:    intPtr(e.totalRounds),
		Credits:        pairPtr(e.credits),
		Scores:         pairPtr(e.scores),
		TotalSpent:     pairPtr(e.totalSpent),
		ItemsRemaining: intPtr(max(0, len(e.lots)-e.round)),
		WonItems: &arena.WonItemsPair{
			Red:  append([]arena.WonItem(nil), e.wonItems.Red...),
			Blue: append([]arena.WonItem(nil), e.wonItems.Blue...),
		},
		BluffsUsed: pairPtr(e.bluffsUsed),
	}
	if lot := e.currentLot(); lot != nil {
		d.CurrentItem = &arena.AuctionItem{Name: lot.name, BaseValue: lot.baseValue}
	}
	return d
}

func (e *auction) ValidMoves(agent arena.Agent) []arena.Move {
	moves := []arena.Move{{Type: MovePass}}
	if e.currentLot() == nil {
		return moves
	}
	budget := e.credits.Red
	if agent == arena.AgentBlue {
		budget = e.credits.Blue
	}
	for amount := 10; amount <= min(budget, 500); amount += 10 {
		moves = append(moves, arena.Move{Type: MoveBid, Amount: amount})
	}
	for amount := 50; amount <= min(budget, 500); amount += 50 {
		moves = append(moves, arena.Move{Type: MoveBluffBid, Amount: amount})
	}
	return moves
}

func (e *auction) DefaultMove(arena.Agent) arena.Move {
	return arena.Move{Type: MoveBid, Amount: 50}
}

func (e *auction) Resolve(red, blue arena.Move) arena.Resolution {
	lot := e.currentLot()
	if lot == nil {
		return arena.Resolution{Description: "No item to auction."}
	}

	var parts []string
	if red.Type == MoveBluffBid {
		e.bluffsUsed.Red++
	}
	if blue.Type == MoveBluffBid {
		e.bluffsUsed.Blue++
	}

	redBid := min(effectiveBid(red), e.credits.Red)
	blueBid := min(effectiveBid(blue), e.credits.Blue)

	parts = append(parts, fmt.Sprintf("Item: %s (base value: %d).", lot.name, lot.baseValue))

	var winner arena.Agent
	switch {
	case redBid == 0 && blueBid == 0:
		parts = append(parts, "Both agents pass. Item goes unsold.")
		return arena.Resolution{Description: strings.Join(parts, " ")}
	case redBid > blueBid:
		winner = arena.AgentRed
	case blueBid > redBid:
		winner = arena.AgentBlue
	default:
		// Tied sealed bids: coin flip.
		winner = arena.AgentRed
		if e.rng.Intn(2) == 1 {
			winner = arena.AgentBlue
		}
	}

	move, bid, valuation := red, redBid, lot.redValue
	credits, spent, won, score := &e.credits.Red, &e.totalSpent.Red, &e.wonItems.Red, &e.scores.Red
	if winner == arena.AgentBlue {
		move, bid, valuation = blue, blueBid, lot.blueValue
		credits, spent, won, score = &e.credits.Blue, &e.totalSpent.Blue, &e.wonItems.Blue, &e.scores.Blue
	}

	// A winning bluff bid pays half its shown amount.
	payment := bid
	if move.Type == MoveBluffBid {
		payment = bid / 2
	}
	payment = min(payment, *credits)

	*credits -= payment
	*spent += payment
	*won = append(*won, arena.WonItem{Name: lot.name, Price: payment, Value: valuation})
	net := valuation - payment
	*score += net

	if redBid == blueBid {
		parts = append(parts, fmt.Sprintf("Tied bids at %d! %s wins the tiebreak (paid %d). Net value: %d.",
			bid, capitalize(string(winner)), payment, net))
	} else {
		parts = append(parts, fmt.Sprintf("%s wins with bid %d (paid %d). Net value: %d.",
			capitalize(string(winner)), bid, payment, net))
	}

	return arena.Resolution{
		RoundWinner: string(winner),
		Description: strings.Join(parts, " "),
	}
}

func effectiveBid(m arena.Move) int {
	if m.Type == MovePass {
		return 0
	}
	return m.Amount
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
