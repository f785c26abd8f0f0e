package games

import (
	"fmt"
	"math/rand"

	"colosseum-lite/arena"
)

// GPU marketplace move types. Red (the user) bids for compute; blue (the
// provider) sets prices.
const (
	MoveGPUBid   = "bid"
	MoveGPUPass  = "pass"
	MoveGPUWait  = "wait"
	MoveSurgeBid = "surge_bid"

	MoveSetPrice     = "set_price"
	MoveSurgePricing = "surge_pricing"
	MoveDiscount     = "discount"
	MoveHold         = "hold"
)

const gpuUserBudget = 10000

type gpuSpec struct {
	name         string
	computeUnits int
	basePrice    int
	scarcity     float64
}

var gpuCatalog = []gpuSpec{
	{"NVIDIA H100", 100, 400, 0.3},
	{"NVIDIA A100", 80, 300, 0.5},
	{"NVIDIA A10G", 40, 150, 0.7},
	{"NVIDIA RTX 4090", 60, 200, 0.6},
	{"NVIDIA L4", 30, 100, 0.8},
	{"AMD MI300X", 90, 350, 0.4},
}

type gpuResource struct {
	gpuSpec
	currentPrice int
	demandLevel  float64
	surgeActive  bool
}

// gpuMarket is an asymmetric pricing duel. Per round one listing goes on the
// block, the provider adjusts its price, and the user decides whether to buy.
// Red scores compute acquired, blue scores revenue in hundreds.
type gpuMarket struct {
	round       int
	totalRounds int
	rng         *rand.Rand

	userBudget      int
	computeAcquired int
	revenue         int
	resourcesSold   int

	resources    []gpuResource
	current      *gpuResource
	marketDemand float64
}

func newGPUMarket(totalRounds int, rng *rand.Rand) *gpuMarket {
	e := &gpuMarket{
		round:        1,
		totalRounds:  totalRounds,
		rng:          rng,
		userBudget:   gpuUserBudget,
		marketDemand: 0.5,
	}
	for _, spec := range gpuCatalog {
		r := gpuResource{
			gpuSpec:      spec,
			currentPrice: spec.basePrice,
			demandLevel:  0.3 + rng.Float64()*0.6,
		}
		if r.demandLevel > 0.7 {
			r.currentPrice = int(float64(spec.basePrice) * (1 + (r.demandLevel-0.5)*0.5))
			r.surgeActive = true
		}
		e.resources = append(e.resources, r)
	}
	e.selectRoundGPU()
	return e
}

func (e *gpuMarket) GameType() arena.GameType { return arena.GameGPUBidding }
func (e *gpuMarket) Round() int               { return e.round }
func (e *gpuMarket) TotalRounds() int         { return e.totalRounds }

func (e *gpuMarket) Scores() arena.ScorePair {
	return arena.ScorePair{Red: e.computeAcquired, Blue: e.revenue / 100}
}

func (e *gpuMarket) AdvanceRound() {
	if e.Over() {
		return
	}
	e.round++
	e.updateMarketDemand()
	e.selectRoundGPU()
}

func (e *gpuMarket) Over() bool {
	return e.round > e.totalRounds || e.userBudget <= 0
}

// Winner compares the user's cost efficiency against the provider's revenue
// relative to base pricing.
func (e *gpuMarket) Winner() string {
	spent := gpuUserBudget - e.userBudget
	efficiency := 0.0
	if spent > 0 {
		efficiency = float64(e.computeAcquired) / float64(spent)
	}
	userScore := efficiency * 100

	baseSum := 0
	for _, r := range e.resources {
		baseSum += r.basePrice
	}
	expectedRevenue := float64(baseSum) * float64(e.resourcesSold) / float64(len(e.resources))
	revenueRatio := float64(e.revenue) / maxFloat(1, expectedRevenue)

	switch {
	case userScore > revenueRatio*1.1:
		return "red"
	case revenueRatio > userScore*1.1:
		return "blue"
	default:
		return "draw"
	}
}

func (e *gpuMarket) Delta() *arena.StateDelta {
	prices := make(map[string]int, len(e.resources))
	for _, r := range e.resources {
		prices[r.name] = r.currentPrice
	}
	d := &arena.StateDelta{
		Round:           intPtr(e.round),
		TotalRounds:     intPtr(e.totalRounds),
		UserBudget:      intPtr(e.userBudget),
		UserSpent:       intPtr(gpuUserBudget - e.userBudget),
		ComputeAcquired: intPtr(e.computeAcquired),
		Revenue:         intPtr(e.revenue),
		Scores:          pairPtr(e.Scores()),
		GPUPrices:       prices,
	}
	if e.current != nil {
		d.CurrentGPU = &arena.GPUListing{
			Name:         e.current.name,
			ComputeUnits: e.current.computeUnits,
			Price:        e.current.currentPrice,
			DemandLevel:  e.current.demandLevel,
			SurgeActive:  e.current.surgeActive,
		}
	}
	return d
}

func (e *gpuMarket) ValidMoves(agent arena.Agent) []arena.Move {
	if agent == arena.AgentBlue {
		moves := []arena.Move{{Type: MoveHold}}
		for _, adj := range []float64{0.1, 0.2, 0.3, 0.5} {
			moves = append(moves, arena.Move{Type: MoveSurgePricing, PriceAdjustment: adj, TargetGPU: e.currentName()})
		}
		for _, adj := range []float64{0.1, 0.15, 0.2} {
			moves = append(moves,
				arena.Move{Type: MoveDiscount, PriceAdjustment: adj, TargetGPU: e.currentName()},
				arena.Move{Type: MoveSetPrice, PriceAdjustment: adj, TargetGPU: e.currentName()},
			)
		}
		return moves
	}

	moves := []arena.Move{{Type: MoveGPUPass}, {Type: MoveGPUWait}}
	if e.current == nil {
		return moves
	}
	for _, hours := range []int{1, 2, 4} {
		for _, mult := range []float64{1.0, 1.1, 1.3} {
			amount := int(float64(e.current.currentPrice) * mult)
			if amount <= e.userBudget {
				moves = append(moves, arena.Move{
					Type: MoveGPUBid, Amount: amount, GPUType: e.current.name, Hours: hours,
				})
			}
		}
	}
	if premium := int(float64(e.current.currentPrice) * 1.3); premium <= e.userBudget {
		moves = append(moves, arena.Move{Type: MoveSurgeBid, Amount: premium, GPUType: e.current.name, Hours: 1})
	}
	return moves
}

func (e *gpuMarket) DefaultMove(agent arena.Agent) arena.Move {
	if agent == arena.AgentBlue {
		if e.marketDemand > 0.7 {
			return arena.Move{Type: MoveSurgePricing, PriceAdjustment: 0.3, TargetGPU: e.currentName()}
		}
		if e.marketDemand < 0.4 {
			return arena.Move{Type: MoveDiscount, PriceAdjustment: 0.15, TargetGPU: e.currentName()}
		}
		return arena.Move{Type: MoveHold}
	}
	if e.current != nil && e.userBudget >= e.current.currentPrice {
		return arena.Move{Type: MoveGPUBid, Amount: e.current.currentPrice, GPUType: e.current.name, Hours: 1}
	}
	return arena.Move{Type: MoveGPUPass}
}

func (e *gpuMarket) Resolve(red, blue arena.Move) arena.Resolution {
	gpu := e.current
	if gpu == nil {
		return arena.Resolution{Description: "No GPU on the block."}
	}

	// Provider reprices first.
	switch blue.Type {
	case MoveSurgePricing:
		gpu.currentPrice = int(float64(gpu.basePrice) * (1 + absFloat(blue.PriceAdjustment)))
		gpu.surgeActive = true
	case MoveDiscount:
		gpu.currentPrice = int(float64(gpu.basePrice) * maxFloat(0.5, 1-absFloat(blue.PriceAdjustment)))
		gpu.surgeActive = false
	case MoveSetPrice:
		gpu.currentPrice = int(float64(gpu.basePrice) * (1 + blue.PriceAdjustment))
	}

	transaction := false
	finalPrice := 0
	computeGained := 0
	winner := ""

	switch red.Type {
	case MoveGPUBid:
		if red.Amount >= gpu.currentPrice {
			transaction = true
			finalPrice = gpu.currentPrice
			computeGained = gpu.computeUnits * max(1, red.Hours)

			ratio := float64(finalPrice) / float64(gpu.basePrice)
			if ratio < 0.9 {
				winner = "red"
			} else if ratio > 1.2 {
				winner = "blue"
			}
		}
	case MoveSurgeBid:
		// Premium buys guaranteed access; the provider always profits.
		premium := int(float64(gpu.currentPrice) * 1.3)
		if red.Amount >= premium {
			transaction = true
			finalPrice = premium
			computeGained = gpu.computeUnits * max(1, red.Hours)
			winner = "blue"
		}
	case MoveGPUWait:
		gpu.demandLevel = maxFloat(0.1, gpu.demandLevel-0.05)
	}

	desc := fmt.Sprintf("%s listed at %d.", gpu.name, gpu.currentPrice)
	if transaction {
		e.userBudget -= finalPrice
		e.computeAcquired += computeGained
		e.revenue += finalPrice
		e.resourcesSold++
		desc = fmt.Sprintf("%s sold at %d for %d compute units.", gpu.name, finalPrice, computeGained)
	} else if red.Type == MoveGPUWait {
		desc = fmt.Sprintf("%s listed at %d. User waits out the market.", gpu.name, gpu.currentPrice)
	}

	return arena.Resolution{
		RoundWinner: winner,
		Description: desc,
	}
}

func (e *gpuMarket) currentName() string {
	if e.current == nil {
		return ""
	}
	return e.current.name
}

// selectRoundGPU picks the round's listing weighted by demand.
func (e *gpuMarket) selectRoundGPU() {
	total := 0.0
	for _, r := range e.resources {
		total += r.demandLevel
	}
	pick := e.rng.Float64() * total
	for i := range e.resources {
		pick -= e.resources[i].demandLevel
		if pick <= 0 {
			e.current = &e.resources[i]
			return
		}
	}
	e.current = &e.resources[len(e.resources)-1]
}

// updateMarketDemand runs a mean-reverting random walk over demand and
// reprices listings that cross surge or discount thresholds.
func (e *gpuMarket) updateMarketDemand() {
	change := -0.15 + e.rng.Float64()*0.3
	e.marketDemand = clampFloat(e.marketDemand+change, 0.2, 0.95)

	for i := range e.resources {
		r := &e.resources[i]
		step := -0.1 + e.rng.Float64()*0.2
		r.demandLevel = clampFloat(r.demandLevel+step+change*0.5, 0.1, 0.95)

		switch {
		case r.demandLevel > 0.75:
			r.surgeActive = true
			r.currentPrice = int(float64(r.basePrice) * (1 + (r.demandLevel-0.5)*0.8))
		case r.demandLevel < 0.4:
			r.surgeActive = false
			r.currentPrice = int(float64(r.basePrice) * (1 - (0.4-r.demandLevel)*0.3))
		default:
			r.surgeActive = false
			r.currentPrice = r.basePrice
		}
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
