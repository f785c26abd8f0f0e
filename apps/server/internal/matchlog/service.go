// Package matchlog persists match event logs so finished matches can be
// listed and replayed. Backends: sqlite (default), postgres, memory.
package matchlog

import (
	"context"
	"errors"
	"time"

	"colosseum-lite/arena"
)

// ErrMatchNotFound is returned when no events exist for a match id.
var ErrMatchNotFound = errors.New("matchlog: match not found")

// Summary is one row in the match listing.
type Summary struct {
	MatchID         string         `json:"matchId"`
	GameType        arena.GameType `json:"gameType"`
	RedPersonality  string         `json:"redPersonality"`
	BluePersonality string         `json:"bluePersonality"`
	TotalRounds     int            `json:"totalRounds"`
	Winner          string         `json:"winner,omitempty"`
	Finished        bool           `json:"finished"`
	EventCount      int            `json:"eventCount"`
	StartedAt       time.Time      `json:"startedAt"`
}

// Store records events in arrival order and serves them back for replay.
type Store interface {
	// Append stores one event under the given sequence number. Appending
	// the same (matchID, seq) twice is an error.
	Append(ctx context.Context, matchID string, seq int, ev arena.Event) error

	// Events returns the full ordered log for a match.
	Events(ctx context.Context, matchID string) ([]arena.Event, error)

	// List returns summaries of all recorded matches, newest first.
	List(ctx context.Context) ([]Summary, error)

	Close() error
}

// summaryPatch captures the listing fields an event contributes, so the
// three backends share one interpretation of the stream.
type summaryPatch struct {
	create *Summary
	winner string
	finish bool
}

func patchFor(matchID string, ev arena.Event) summaryPatch {
	switch ev.Type {
	case arena.EventMatchStart:
		s := &Summary{
			MatchID:     matchID,
			GameType:    ev.GameType,
			TotalRounds: ev.TotalRounds,
			StartedAt:   time.Now().UTC(),
		}
		if ev.Agents != nil {
			s.RedPersonality = ev.Agents.Red.Personality
			s.BluePersonality = ev.Agents.Blue.Personality
		}
		return summaryPatch{create: s}
	case arena.EventMatchEnd:
		return summaryPatch{winner: ev.Winner, finish: true}
	default:
		return summaryPatch{}
	}
}
