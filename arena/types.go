package arena

import "strconv"

// GameType selects which rule set a match is played under.
type GameType string

const (
	GameResourceWars GameType = "resource_wars"
	GameNegotiation  GameType = "negotiation"
	GameAuction      GameType = "auction"
	GameGPUBidding   GameType = "gpu_bidding"
)

var GameTypeDictionary = map[GameType]string{
	GameResourceWars: "Resource Wars",
	GameNegotiation:  "The Negotiation",
	GameAuction:      "The Auction",
	GameGPUBidding:   "GPU Marketplace",
}

// DefaultRounds returns the canonical round count for a game type.
func (g GameType) DefaultRounds() int {
	switch g {
	case GameNegotiation:
		return 5
	case GameAuction:
		return 8
	default:
		return 10
	}
}

func (g GameType) Valid() bool {
	_, ok := GameTypeDictionary[g]
	return ok
}

// Agent identifies one side of a match.
type Agent string

const (
	AgentRed  Agent = "red"
	AgentBlue Agent = "blue"
)

// Phase 对局阶段
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseThinking  Phase = "thinking"
	PhaseCommitted Phase = "committed"
	PhaseRevealed  Phase = "revealed"
	PhaseRoundEnd  Phase = "round_end"
	PhaseMatchEnd  Phase = "match_end"
)

// AgentConfig carries the immutable personality tag assigned at match start.
type AgentConfig struct {
	Personality string `json:"personality"`
	Model       string `json:"model,omitempty"`
}

// AgentPair is the fixed red/blue pairing of a match.
type AgentPair struct {
	Red  AgentConfig `json:"red"`
	Blue AgentConfig `json:"blue"`
}

// ScorePair holds one integer per side, keyed red/blue on the wire.
type ScorePair struct {
	Red  int `json:"red"`
	Blue int `json:"blue"`
}

// AccuracyPair holds per-side prediction accuracy in [0,1].
type AccuracyPair struct {
	Red  float64 `json:"red"`
	Blue float64 `json:"blue"`
}

// Prediction is one simulated future streamed during the thinking phase.
// WasCorrect stays nil until a collapse event resolves it.
type Prediction struct {
	OpponentMove string  `json:"opponentMove"`
	Confidence   float64 `json:"confidence"`
	Counter      string  `json:"counter,omitempty"`
	Reasoning    string  `json:"reasoning,omitempty"`
	WasCorrect   *bool   `json:"wasCorrect,omitempty"`
	PartialMatch *bool   `json:"partialMatch,omitempty"`
}

// Move is the flat wire shape shared by all game types. Fields irrelevant to
// the active game type are zero and omitted from JSON.
type Move struct {
	Type   string `json:"type"`
	Target string `json:"target,omitempty"`
	Amount int    `json:"amount,omitempty"`
	Price  int    `json:"price,omitempty"`
	Terms  string `json:"terms,omitempty"`

	GPUType         string  `json:"gpuType,omitempty"`
	Hours           int     `json:"hours,omitempty"`
	PriceAdjustment float64 `json:"priceAdjustment,omitempty"`
	TargetGPU       string  `json:"targetGpu,omitempty"`
}

// Key renders the move as the canonical string predictions are matched
// against when correctness is resolved.
func (m Move) Key(gt GameType) string {
	switch gt {
	case GameNegotiation:
		return m.Type + "_" + strconv.Itoa(m.Price)
	case GameAuction:
		return m.Type + "_" + strconv.Itoa(m.Amount)
	case GameGPUBidding:
		if m.GPUType != "" {
			return m.Type + "_" + m.GPUType
		}
		return m.Type + "_" + strconv.Itoa(m.Amount)
	default:
		return m.Type + "_" + m.Target
	}
}

// Resolution describes how a round settled, carried by collapse events.
type Resolution struct {
	RoundWinner     string               `json:"roundWinner,omitempty"`
	ResourceChanges map[string]ScorePair `json:"resourceChanges,omitempty"`
	Description     string               `json:"description,omitempty"`
	DealStruck      bool                 `json:"dealStruck,omitempty"`
	DealPrice       *int                 `json:"dealPrice,omitempty"`
}
