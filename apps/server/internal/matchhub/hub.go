// Package matchhub owns the set of in-flight and recently finished matches.
// It caps the registry, fans events out to subscribers with a backlog for
// late joiners, and records every event to the match log.
package matchhub

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"colosseum-lite/apps/server/internal/matchlog"
	"colosseum-lite/arena"
	"colosseum-lite/match"
	"colosseum-lite/sim"
)

// MaxMatches bounds the registry. When full, the oldest match is evicted.
const MaxMatches = 100

const subscriberBuffer = 256

// Source is anything that plays a match and emits the event stream. Both the
// rule-brain runner and the synthetic generator satisfy it.
type Source interface {
	Run(ctx context.Context) <-chan arena.Event
}

// Match is one registered match: a running (or finished) event source plus
// the accumulated backlog and live subscribers.
type Match struct {
	ID     string
	Config match.Config

	cancel context.CancelFunc

	mu       sync.Mutex
	backlog  []arena.Event
	snap     arena.Snapshot
	subs     map[int]chan arena.Event
	nextSub  int
	finished bool
	done     chan struct{}
}

// Subscribe returns a copy of everything emitted so far plus a channel of
// subsequent events. A reconnecting client replays the backlog first, so its
// reducer state catches up before live events resume. The returned cancel
// func must be called when the subscriber goes away.
func (m *Match) Subscribe() ([]arena.Event, <-chan arena.Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	backlog := make([]arena.Event, len(m.backlog))
	copy(backlog, m.backlog)

	ch := make(chan arena.Event, subscriberBuffer)
	if m.finished {
		close(ch)
		return backlog, ch, func() {}
	}

	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	return backlog, ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(ch)
		}
	}
}

// Snapshot returns the folded state of everything emitted so far.
func (m *Match) Snapshot() arena.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone()
}

// Events returns a copy of the full backlog.
func (m *Match) Events() []arena.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]arena.Event, len(m.backlog))
	copy(out, m.backlog)
	return out
}

func (m *Match) Finished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished
}

// Done closes when the match source stops emitting.
func (m *Match) Done() <-chan struct{} { return m.done }

// Stop cancels the match source. Subscribers see their channels close once
// the source drains.
func (m *Match) Stop() { m.cancel() }

func (m *Match) deliver(ev arena.Event) {
	m.mu.Lock()
	m.backlog = append(m.backlog, ev)
	m.snap = arena.Apply(m.snap, ev)
	for id, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			// Slow consumer: drop it rather than stall the match.
			log.Printf("[Hub %s] dropping slow subscriber %d", m.ID, id)
			delete(m.subs, id)
			close(ch)
		}
	}
	m.mu.Unlock()
}

func (m *Match) finish() {
	m.mu.Lock()
	m.finished = true
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	close(m.done)
	m.mu.Unlock()
}

// Hub is the bounded match registry.
type Hub struct {
	mu      sync.Mutex
	matches map[string]*Match
	order   []string // creation order, oldest first
	store   matchlog.Store
}

func New(store matchlog.Store) *Hub {
	if store == nil {
		store = matchlog.NewMemoryStore()
	}
	return &Hub{
		matches: make(map[string]*Match),
		store:   store,
	}
}

// Create registers and starts a rule-brain match.
func (h *Hub) Create(cfg match.Config) *Match {
	if cfg.MatchID == "" {
		cfg.MatchID = "match_" + uuid.NewString()[:8]
	}
	runner := match.NewRunner(cfg)
	return h.register(runner.Config().MatchID, runner.Config(), runner)
}

// CreateSimulated registers and starts a synthetic match. Used when a
// client asks for a demo stream or as a fallback source.
func (h *Hub) CreateSimulated(cfg sim.Config) *Match {
	gen := sim.New(cfg)
	c := gen.Config()
	return h.register(c.MatchID, match.Config{
		MatchID:     c.MatchID,
		GameType:    c.GameType,
		TotalRounds: c.TotalRounds,
	}, gen)
}

func (h *Hub) register(id string, cfg match.Config, src Source) *Match {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Match{
		ID:     id,
		Config: cfg,
		cancel: cancel,
		snap:   arena.NewSnapshot(),
		subs:   make(map[int]chan arena.Event),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	for len(h.order) >= MaxMatches {
		oldest := h.order[0]
		h.order = h.order[1:]
		if old, ok := h.matches[oldest]; ok {
			delete(h.matches, oldest)
			old.Stop()
			log.Printf("[Hub] evicted oldest match %s (registry full)", oldest)
		}
	}
	h.matches[id] = m
	h.order = append(h.order, id)
	h.mu.Unlock()

	log.Printf("[Hub] match %s registered (%s, %d rounds)", id, cfg.GameType, cfg.TotalRounds)
	go h.pump(ctx, m, src)
	return m
}

func (h *Hub) pump(ctx context.Context, m *Match, src Source) {
	seq := 0
	for ev := range src.Run(ctx) {
		m.deliver(ev)
		if err := h.store.Append(ctx, m.ID, seq, ev); err != nil {
			log.Printf("[Hub %s] record event %d: %v", m.ID, seq, err)
		}
		seq++
	}
	m.finish()
	log.Printf("[Hub] match %s finished after %d events", m.ID, seq)
}

// Get returns a registered match, or nil.
func (h *Hub) Get(id string) *Match {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.matches[id]
}

// Stop cancels a match by id.
func (h *Hub) Stop(id string) bool {
	h.mu.Lock()
	m := h.matches[id]
	h.mu.Unlock()
	if m == nil {
		return false
	}
	m.Stop()
	return true
}

// IDs returns registered match ids, oldest first.
func (h *Hub) IDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.matches)
}

// Store exposes the underlying match log for the HTTP API.
func (h *Hub) Store() matchlog.Store { return h.store }
