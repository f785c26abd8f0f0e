package arena

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventType discriminates the wire event union.
type EventType string

const (
	EventMatchStart    EventType = "match_start"
	EventRoundStart    EventType = "round_start"
	EventThinkingStart EventType = "thinking_start"
	EventPrediction    EventType = "prediction"
	EventThinkingEnd   EventType = "thinking_end"
	EventCollapse      EventType = "collapse"
	EventRoundEnd      EventType = "round_end"
	EventMatchEnd      EventType = "match_end"
	EventKeepAlive     EventType = "keep_alive"
	EventError         EventType = "error"
)

// Event is the closed wire union. One flat struct keeps decoding total:
// every tag populates its own subset of fields and ignores the rest, and an
// unrecognized tag still decodes into a structurally valid no-op event.
type Event struct {
	Type EventType `json:"type"`

	// match_start
	MatchID     string     `json:"matchId,omitempty"`
	GameType    GameType   `json:"gameType,omitempty"`
	Agents      *AgentPair `json:"agents,omitempty"`
	TotalRounds int        `json:"totalRounds,omitempty"`

	// round_start / round_end
	Round            int         `json:"round,omitempty"`
	GameState        *StateDelta `json:"gameState,omitempty"`
	NegotiationState *StateDelta `json:"negotiationState,omitempty"`
	AuctionState     *StateDelta `json:"auctionState,omitempty"`
	GPUMarketState   *StateDelta `json:"gpuMarketState,omitempty"`

	// thinking_start / prediction / thinking_end
	Agent       Agent        `json:"agent,omitempty"`
	BranchIndex int          `json:"branchIndex,omitempty"`
	Prediction  *Prediction  `json:"prediction,omitempty"`
	Predictions []Prediction `json:"predictions,omitempty"`
	ChosenMove  *Move        `json:"chosenMove,omitempty"`

	// collapse
	RedPredictions  []Prediction `json:"redPredictions,omitempty"`
	BluePredictions []Prediction `json:"bluePredictions,omitempty"`
	Resolution      *Resolution  `json:"resolution,omitempty"`

	// round_end / match_end
	Scores                *ScorePair    `json:"scores,omitempty"`
	Accuracy              *AccuracyPair `json:"accuracy,omitempty"`
	Winner                string        `json:"winner,omitempty"`
	FinalScores           *ScorePair    `json:"finalScores,omitempty"`
	PredictionAccuracy    *AccuracyPair `json:"predictionAccuracy,omitempty"`
	TotalFuturesSimulated int           `json:"totalFuturesSimulated,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// ParseEvent decodes a wire frame defensively. A frame that is not a JSON
// object with a string "type" is malformed; callers log and drop it.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("parse event: %w", err)
	}
	if strings.TrimSpace(string(ev.Type)) == "" {
		return Event{}, fmt.Errorf("parse event: missing type discriminator")
	}
	return ev, nil
}

// Encode renders the event for the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// ModeDelta returns the mode-specific delta if present, otherwise the
// generic gameState payload. Mode-specific keys win so a backend can ship a
// richer projection alongside the shared one.
func (e Event) ModeDelta() *StateDelta {
	switch {
	case e.NegotiationState != nil:
		return e.NegotiationState
	case e.AuctionState != nil:
		return e.AuctionState
	case e.GPUMarketState != nil:
		return e.GPUMarketState
	default:
		return e.GameState
	}
}
