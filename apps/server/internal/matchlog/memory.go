package matchlog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"colosseum-lite/arena"
)

type memoryStore struct {
	mu        sync.Mutex
	events    map[string]map[int]arena.Event
	summaries map[string]*Summary
}

// NewMemoryStore keeps everything in process memory. Useful for tests and
// for running the server without a database.
func NewMemoryStore() Store {
	return &memoryStore{
		events:    make(map[string]map[int]arena.Event),
		summaries: make(map[string]*Summary),
	}
}

func (s *memoryStore) Append(ctx context.Context, matchID string, seq int, ev arena.Event) error {
	if matchID == "" {
		return fmt.Errorf("matchlog: empty match id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.events[matchID]
	if !ok {
		log = make(map[int]arena.Event)
		s.events[matchID] = log
	}
	if _, dup := log[seq]; dup {
		return fmt.Errorf("matchlog: duplicate seq %d for match %s", seq, matchID)
	}
	log[seq] = ev

	patch := patchFor(matchID, ev)
	if patch.create != nil {
		s.summaries[matchID] = patch.create
	}
	if sum, ok := s.summaries[matchID]; ok {
		sum.EventCount = len(log)
		if patch.finish {
			sum.Finished = true
			sum.Winner = patch.winner
		}
	}
	return nil
}

func (s *memoryStore) Events(ctx context.Context, matchID string) ([]arena.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.events[matchID]
	if !ok || len(log) == 0 {
		return nil, ErrMatchNotFound
	}
	seqs := make([]int, 0, len(log))
	for seq := range log {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)
	out := make([]arena.Event, 0, len(seqs))
	for _, seq := range seqs {
		out = append(out, log[seq])
	}
	return out, nil
}

func (s *memoryStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Summary, 0, len(s.summaries))
	for _, sum := range s.summaries {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].MatchID < out[j].MatchID
	})
	return out, nil
}

func (s *memoryStore) Close() error { return nil }
