// Package replay folds persisted match event logs back into snapshots and
// plays them forward under user control. Replay is never index-aware: every
// snapshot is the pure fold of the log prefix, so a replayed match is
// indistinguishable from the live one.
package replay

import (
	"encoding/json"
	"fmt"

	"colosseum-lite/arena"
)

// Log is the ordered event record of one match.
type Log []arena.Event

// ParseLog decodes a JSON event array.
func ParseLog(data []byte) (Log, error) {
	var l Log
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse replay log: %w", err)
	}
	for i, ev := range l {
		if ev.Type == "" {
			return nil, fmt.Errorf("parse replay log: event %d has no type", i)
		}
	}
	return l, nil
}

func (l Log) Encode() ([]byte, error) {
	return json.Marshal(l)
}

// MatchID returns the id carried by the log's match_start, if any.
func (l Log) MatchID() string {
	for _, ev := range l {
		if ev.Type == arena.EventMatchStart {
			return ev.MatchID
		}
	}
	return ""
}

// SnapshotAt folds the first n events from the initial snapshot. n is
// clamped to the log bounds.
func SnapshotAt(l Log, n int) arena.Snapshot {
	if n > len(l) {
		n = len(l)
	}
	s := arena.NewSnapshot()
	for i := 0; i < n; i++ {
		s = arena.Apply(s, l[i])
	}
	return s
}
