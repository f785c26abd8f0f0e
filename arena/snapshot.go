package arena

// Snapshot is the single aggregate view of a match. It is produced only by
// Apply; consumers treat it as read-only.
type Snapshot struct {
	MatchID     string    `json:"matchId"`
	GameType    GameType  `json:"gameType"`
	Agents      AgentPair `json:"agents"`
	TotalRounds int       `json:"totalRounds"`

	CurrentRound int   `json:"currentRound"`
	Phase        Phase `json:"phase"`

	Mode ModeState `json:"mode"`

	RedPredictions  []Prediction `json:"redPredictions"`
	BluePredictions []Prediction `json:"bluePredictions"`
	RedMove         *Move        `json:"redMove,omitempty"`
	BlueMove        *Move        `json:"blueMove,omitempty"`

	Accuracy              AccuracyPair `json:"accuracy"`
	TotalFuturesSimulated int          `json:"totalFuturesSimulated"`
	Winner                string       `json:"winner,omitempty"`
}

// NewSnapshot returns the fixed pre-match state.
func NewSnapshot() Snapshot {
	return Snapshot{Phase: PhaseLobby, GameType: GameResourceWars}
}

// Clone deep-copies the snapshot so a reducer step never mutates its input.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Mode = s.Mode.clone()
	out.RedPredictions = clonePredictions(s.RedPredictions)
	out.BluePredictions = clonePredictions(s.BluePredictions)
	if s.RedMove != nil {
		mv := *s.RedMove
		out.RedMove = &mv
	}
	if s.BlueMove != nil {
		mv := *s.BlueMove
		out.BlueMove = &mv
	}
	return out
}

// Scores exposes the running score pair of the active mode.
func (s Snapshot) Scores() ScorePair {
	return s.Mode.scores()
}

func clonePredictions(in []Prediction) []Prediction {
	if in == nil {
		return nil
	}
	out := make([]Prediction, len(in))
	for i, p := range in {
		out[i] = p
		if p.WasCorrect != nil {
			v := *p.WasCorrect
			out[i].WasCorrect = &v
		}
		if p.PartialMatch != nil {
			v := *p.PartialMatch
			out[i].PartialMatch = &v
		}
	}
	return out
}
