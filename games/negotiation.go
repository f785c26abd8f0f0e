package games

import (
	"fmt"
	"math/rand"
	"strings"

	"colosseum-lite/arena"
)

// Negotiation move types.
const (
	MovePropose       = "propose"
	MoveAccept        = "accept"
	MoveReject        = "reject"
	MoveCounterOffer  = "counter_offer"
	MoveBluffWalkaway = "bluff_walkaway"
)

// negotiation is a sequential offer game. Red sells and wants a high price,
// blue buys and wants a low one. Each side has a hidden walkaway price drawn
// so a zone of possible agreement always exists; score is the value captured
// past your own walkaway once a deal lands.
type negotiation struct {
	round       int
	totalRounds int

	redWalkaway  int // seller floor
	blueWalkaway int // buyer ceiling

	currentOffer *int
	offerBy      string
	dealPrice    *int
	dealRound    *int

	scores     arena.ScorePair
	bluffsUsed arena.ScorePair
}

func newNegotiation(totalRounds int, rng *rand.Rand) *negotiation {
	return &negotiation{
		round:        1,
		totalRounds:  totalRounds,
		redWalkaway:  20 + rng.Intn(26),
		blueWalkaway: 55 + rng.Intn(26),
	}
}

func (e *negotiation) GameType() arena.GameType { return arena.GameNegotiation }
func (e *negotiation) Round() int               { return e.round }
func (e *negotiation) TotalRounds() int         { return e.totalRounds }
func (e *negotiation) Scores() arena.ScorePair  { return e.scores }

func (e *negotiation) AdvanceRound() {
	if !e.Over() {
		e.round++
	}
}

func (e *negotiation) Over() bool {
	return e.dealPrice != nil || e.round > e.totalRounds
}

func (e *negotiation) Winner() string {
	if e.dealPrice == nil {
		// No deal: both sides walk away with nothing.
		return "draw"
	}
	return scoreWinner(e.scores)
}

func (e *negotiation) Delta() *arena.StateDelta {
	d := &arena.StateDelta{
		Round:       intPtr(e.round),
		TotalRounds: intPtr(e.totalRounds),
		Scores:      pairPtr(e.scores),
		BluffsUsed:  pairPtr(e.bluffsUsed),
	}
	if e.currentOffer != nil {
		d.CurrentOffer = intPtr(*e.currentOffer)
	}
	if e.offerBy != "" {
		d.OfferBy = strPtr(e.offerBy)
	}
	if e.dealPrice != nil {
		d.DealPrice = intPtr(*e.dealPrice)
		d.DealRound = intPtr(*e.dealRound)
	}
	return d
}

func (e *negotiation) ValidMoves(arena.Agent) []arena.Move {
	moves := make([]arena.Move, 0, 21)
	for price := 10; price < 100; price += 10 {
		moves = append(moves,
			arena.Move{Type: MovePropose, Price: price},
			arena.Move{Type: MoveCounterOffer, Price: price},
		)
	}
	moves = append(moves,
		arena.Move{Type: MoveAccept},
		arena.Move{Type: MoveReject},
		arena.Move{Type: MoveBluffWalkaway},
	)
	return moves
}

func (e *negotiation) DefaultMove(arena.Agent) arena.Move {
	return arena.Move{Type: MovePropose, Price: 50}
}

func (e *negotiation) Resolve(red, blue arena.Move) arena.Resolution {
	var parts []string

	if red.Type == MoveBluffWalkaway {
		e.bluffsUsed.Red++
		parts = append(parts, "Red bluffs a walkaway!")
	}
	if blue.Type == MoveBluffWalkaway {
		e.bluffsUsed.Blue++
		parts = append(parts, "Blue bluffs a walkaway!")
	}
	if red.Type == MoveBluffWalkaway && blue.Type == MoveBluffWalkaway {
		parts = append(parts, "Both sides walk away from the table. Tensions rise.")
		return arena.Resolution{Description: strings.Join(parts, " ")}
	}

	dealStruck := false
	dealPrice := 0

	// Accepting takes the standing offer.
	if (red.Type == MoveAccept || blue.Type == MoveAccept) && e.currentOffer != nil {
		dealStruck = true
		dealPrice = *e.currentOffer
	}
	// Accepting a same-round proposal takes that price.
	if !dealStruck {
		if isOffer(red.Type) && blue.Type == MoveAccept {
			dealStruck, dealPrice = true, red.Price
		} else if isOffer(blue.Type) && red.Type == MoveAccept {
			dealStruck, dealPrice = true, blue.Price
		}
	}
	// Crossed prices settle at the midpoint.
	if !dealStruck && isOffer(red.Type) && isOffer(blue.Type) && red.Price <= blue.Price {
		dealStruck = true
		dealPrice = (red.Price + blue.Price) / 2
		parts = append(parts, fmt.Sprintf("Prices cross! Red asks %d, Blue offers %d.", red.Price, blue.Price))
	}

	if dealStruck {
		e.dealPrice = intPtr(dealPrice)
		e.dealRound = intPtr(e.round)

		redGain := max(0, dealPrice-e.redWalkaway)
		blueGain := max(0, e.blueWalkaway-dealPrice)
		e.scores.Red += redGain
		e.scores.Blue += blueGain

		winner := ""
		if redGain > blueGain {
			winner = "red"
		} else if blueGain > redGain {
			winner = "blue"
		}
		parts = append(parts, fmt.Sprintf("Deal struck at %d! Red gains %d, Blue gains %d.", dealPrice, redGain, blueGain))
		return arena.Resolution{
			RoundWinner: winner,
			Description: strings.Join(parts, " "),
			DealStruck:  true,
			DealPrice:   intPtr(dealPrice),
		}
	}

	// No deal: the latest proposal becomes the standing offer.
	if isOffer(red.Type) {
		e.currentOffer = intPtr(red.Price)
		e.offerBy = "red"
		parts = append(parts, fmt.Sprintf("Red %s %d.", offerVerb(red.Type), red.Price))
	} else if isOffer(blue.Type) {
		e.currentOffer = intPtr(blue.Price)
		e.offerBy = "blue"
		parts = append(parts, fmt.Sprintf("Blue %s %d.", offerVerb(blue.Type), blue.Price))
	}
	if red.Type == MoveReject {
		parts = append(parts, "Red rejects the offer.")
	}
	if blue.Type == MoveReject {
		parts = append(parts, "Blue rejects the offer.")
	}

	desc := "Negotiations continue."
	if len(parts) > 0 {
		desc = strings.Join(parts, " ")
	}
	return arena.Resolution{Description: desc}
}

func isOffer(moveType string) bool {
	return moveType == MovePropose || moveType == MoveCounterOffer
}

func offerVerb(moveType string) string {
	if moveType == MovePropose {
		return "proposes"
	}
	return "counters at"
}
