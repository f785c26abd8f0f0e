package arena

// Apply folds one event into the snapshot and returns the successor state.
// It is pure and total: every event tag is handled, keep-alive and unknown
// tags reduce to identity, and a structurally valid event never panics.
// Replaying the same ordered log therefore always yields the same snapshots.
func Apply(s Snapshot, ev Event) Snapshot {
	switch ev.Type {
	case EventMatchStart:
		return applyMatchStart(ev)
	case EventRoundStart:
		return applyRoundStart(s, ev)
	case EventThinkingStart:
		out := s.Clone()
		if out.Phase == PhaseLobby || out.Phase == PhaseThinking || out.Phase == PhaseCommitted {
			out.Phase = PhaseThinking
		}
		return out
	case EventPrediction:
		return applyPrediction(s, ev)
	case EventThinkingEnd:
		return applyThinkingEnd(s, ev)
	case EventCollapse:
		return applyCollapse(s, ev)
	case EventRoundEnd:
		return applyRoundEnd(s, ev)
	case EventMatchEnd:
		return applyMatchEnd(s, ev)
	default:
		// keep_alive, error, and any future tag: identity.
		return s
	}
}

// Reduce folds a whole log from the initial snapshot.
func Reduce(events []Event) Snapshot {
	s := NewSnapshot()
	for _, ev := range events {
		s = Apply(s, ev)
	}
	return s
}

func applyMatchStart(ev Event) Snapshot {
	out := NewSnapshot()
	out.MatchID = ev.MatchID
	if ev.GameType.Valid() {
		out.GameType = ev.GameType
	}
	if ev.Agents != nil {
		out.Agents = *ev.Agents
	}
	out.TotalRounds = ev.TotalRounds
	out.CurrentRound = 0
	out.Phase = PhaseLobby
	out.Mode = newModeState(out.GameType, out.TotalRounds)
	return out
}

func applyRoundStart(s Snapshot, ev Event) Snapshot {
	out := s.Clone()
	out.CurrentRound = ev.Round
	if out.TotalRounds > 0 && out.CurrentRound > out.TotalRounds {
		out.CurrentRound = out.TotalRounds
	}
	out.Mode.merge(ev.ModeDelta())
	out.Phase = PhaseThinking
	out.RedPredictions = nil
	out.BluePredictions = nil
	out.RedMove = nil
	out.BlueMove = nil
	return out
}

func applyPrediction(s Snapshot, ev Event) Snapshot {
	if ev.Prediction == nil {
		return s
	}
	out := s.Clone()
	pred := *ev.Prediction
	switch ev.Agent {
	case AgentBlue:
		out.BluePredictions = append(out.BluePredictions, pred)
	default:
		out.RedPredictions = append(out.RedPredictions, pred)
	}
	out.TotalFuturesSimulated++
	return out
}

// applyThinkingEnd reconciles streamed predictions with the event's
// authoritative final list: append-then-replace, the streamed copies are
// discarded wholesale in favor of the list carried here.
func applyThinkingEnd(s Snapshot, ev Event) Snapshot {
	out := s.Clone()
	final := clonePredictions(ev.Predictions)
	var mv *Move
	if ev.ChosenMove != nil {
		m := *ev.ChosenMove
		mv = &m
	}
	switch ev.Agent {
	case AgentBlue:
		out.BluePredictions = final
		out.BlueMove = mv
	default:
		out.RedPredictions = final
		out.RedMove = mv
	}
	out.Phase = PhaseCommitted
	return out
}

func applyCollapse(s Snapshot, ev Event) Snapshot {
	out := s.Clone()
	if ev.RedPredictions != nil {
		out.RedPredictions = clonePredictions(ev.RedPredictions)
	}
	if ev.BluePredictions != nil {
		out.BluePredictions = clonePredictions(ev.BluePredictions)
	}
	out.Phase = PhaseRevealed
	return out
}

func applyRoundEnd(s Snapshot, ev Event) Snapshot {
	out := s.Clone()
	out.Mode.merge(ev.ModeDelta())
	if ev.Scores != nil {
		out.Mode.setScores(*ev.Scores)
	}
	if ev.Accuracy != nil {
		out.Accuracy = *ev.Accuracy
	}
	out.Phase = PhaseRoundEnd
	return out
}

func applyMatchEnd(s Snapshot, ev Event) Snapshot {
	out := s.Clone()
	out.Winner = ev.Winner
	if ev.FinalScores != nil {
		out.Mode.setScores(*ev.FinalScores)
	}
	if ev.PredictionAccuracy != nil {
		out.Accuracy = *ev.PredictionAccuracy
	}
	if ev.TotalFuturesSimulated > 0 {
		out.TotalFuturesSimulated = ev.TotalFuturesSimulated
	}
	out.Phase = PhaseMatchEnd
	return out
}
