// Package live owns the client side of a running match: one websocket-style
// transport at a time, every received event folded through the reducer,
// reconnect with capped exponential backoff, and the start_match command
// channel. All correctness guards from the connection lifecycle live here so
// consumers only ever see a snapshot, a connected flag and an error.
package live

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"colosseum-lite/arena"
)

var (
	// ErrClosed is returned by operations on a controller after Close.
	ErrClosed = errors.New("live: controller closed")
	// ErrReconnectExhausted is the terminal error after the reconnect
	// attempt cap is hit. No further automatic retries follow.
	ErrReconnectExhausted = errors.New("live: reconnect attempts exhausted")
)

const (
	DefaultBackoffBase = 1 * time.Second
	DefaultBackoffCap  = 30 * time.Second
	DefaultMaxAttempts = 10
)

// Transport is one open bidirectional message channel. ReadMessage blocks
// until a frame or error; both are delivered to the controller's read loop.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

// DialFunc opens a transport to the match backend.
type DialFunc func(ctx context.Context) (Transport, error)

// StartConfig is the outbound start_match command.
type StartConfig struct {
	GameType        arena.GameType `json:"gameType"`
	RedPersonality  string         `json:"redPersonality"`
	BluePersonality string         `json:"bluePersonality"`
	Rounds          int            `json:"rounds"`
}

type startCommand struct {
	Type string `json:"type"`
	StartConfig
}

// Options configures a Controller.
type Options struct {
	Dial DialFunc

	BackoffBase time.Duration // default 1s
	BackoffCap  time.Duration // default 30s
	MaxAttempts int           // default 10

	// OnEvent, when set, fires after each applied event with the snapshot
	// including it, in receipt order.
	OnEvent func(arena.Event, arena.Snapshot)
}

// Controller drives one live match subscription.
type Controller struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	mu sync.Mutex

	// cur is the authoritative current-connection slot. Every transport
	// callback compares its own handle against cur by identity; a mismatch
	// means the callback belongs to a superseded connection and is
	// discarded unconditionally.
	cur Transport

	snap      arena.Snapshot
	connected bool
	closed    bool
	err       error

	attempts       int
	reconnectTimer *time.Timer

	pending      *StartConfig // queued while dialing; latest wins
	lastStart    *StartConfig // replayed on reconnect while a match is in flight
	matchStarted bool
	matchEnded   bool

	done chan struct{}
}

// NewController builds a controller and begins dialing immediately.
func NewController(opts Options) (*Controller, error) {
	if opts.Dial == nil {
		return nil, errors.New("live: Dial is required")
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = DefaultBackoffCap
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		snap:   arena.NewSnapshot(),
		done:   make(chan struct{}),
	}
	go c.dial()
	return c, nil
}

// Snapshot returns the current folded match state.
func (c *Controller) Snapshot() arena.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.Clone()
}

func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Err returns the terminal error, if any. Transient reconnects do not set it.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done closes when the controller reaches a terminal state: graceful close
// after match_end, reconnect exhaustion, or Close.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Start requests a match. While the transport is still dialing the request
// is queued, superseding any earlier queued one. After a match_start has
// been observed and before match_end, duplicates are suppressed entirely:
// re-sending would corrupt the in-progress server match.
func (c *Controller) Start(cfg StartConfig) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.matchStarted && !c.matchEnded {
		c.mu.Unlock()
		log.Printf("[Live] start suppressed: match already in progress")
		return nil
	}
	if !c.connected || c.cur == nil {
		c.pending = &cfg
		c.mu.Unlock()
		return nil
	}
	t := c.cur
	c.lastStart = &cfg
	c.matchEnded = false
	c.mu.Unlock()

	return c.send(t, cfg)
}

// Close tears the controller down. The current-connection slot is nulled
// before the transport is closed so in-flight callbacks observe staleness.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	t := c.cur
	c.cur = nil
	c.connected = false
	c.pending = nil
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	close(c.done)
	c.mu.Unlock()

	c.cancel()
	if t != nil {
		return t.Close()
	}
	return nil
}

func (c *Controller) send(t Transport, cfg StartConfig) error {
	cmd := startCommand{Type: "start_match", StartConfig: cfg}
	if err := t.WriteJSON(cmd); err != nil {
		log.Printf("[Live] start_match write failed: %v", err)
		return err
	}
	return nil
}

func (c *Controller) dial() {
	t, err := c.opts.Dial(c.ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if t != nil {
			t.Close()
		}
		return
	}
	if err != nil {
		log.Printf("[Live] dial failed: %v", err)
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		return
	}

	c.cur = t
	c.connected = true

	// Flush exactly one start command: a queued request wins over a
	// resume, and a finished match is never resumed.
	var cfg *StartConfig
	if c.pending != nil {
		cfg = c.pending
		c.pending = nil
		c.lastStart = cfg
		c.matchEnded = false
	} else if c.lastStart != nil && !c.matchEnded {
		cfg = c.lastStart
		log.Printf("[Live] resuming match with last start config")
	}
	c.mu.Unlock()

	if cfg != nil {
		c.send(t, *cfg)
	}
	go c.readLoop(t)
}

// readLoop pumps one transport until it errors or is superseded. All state
// checks happen under the lock against the identity of this handle.
func (c *Controller) readLoop(t Transport) {
	for {
		data, err := t.ReadMessage()

		c.mu.Lock()
		if c.cur != t {
			// Superseded connection: discard everything.
			c.mu.Unlock()
			return
		}
		if err != nil {
			c.cur = nil
			c.connected = false
			if c.matchEnded || c.closed {
				// Expected termination after match_end: no error, no
				// reconnect.
				log.Printf("[Live] connection closed after match end")
				if !c.closed {
					c.closed = true
					close(c.done)
				}
				c.mu.Unlock()
				c.cancel()
				return
			}
			log.Printf("[Live] connection lost: %v", err)
			c.scheduleReconnectLocked()
			c.mu.Unlock()
			return
		}

		ev, perr := arena.ParseEvent(data)
		if perr != nil {
			// Malformed frames never affect connection or reducer state.
			log.Printf("[Live] dropping malformed event: %v", perr)
			c.mu.Unlock()
			continue
		}

		c.snap = arena.Apply(c.snap, ev)
		switch ev.Type {
		case arena.EventMatchStart:
			c.matchStarted = true
			c.matchEnded = false
			// Only an observed fresh match_start proves the reconnect
			// cycle succeeded.
			c.attempts = 0
		case arena.EventMatchEnd:
			c.matchEnded = true
		}
		cb := c.opts.OnEvent
		snap := c.snap
		c.mu.Unlock()

		if cb != nil {
			cb(ev, snap)
		}
	}
}

func (c *Controller) scheduleReconnectLocked() {
	if c.closed {
		return
	}
	if c.attempts >= c.opts.MaxAttempts {
		log.Printf("[Live] giving up after %d attempts", c.attempts)
		c.err = ErrReconnectExhausted
		c.closed = true
		close(c.done)
		c.cancel()
		return
	}
	delay := backoffDelay(c.attempts, c.opts.BackoffBase, c.opts.BackoffCap)
	c.attempts++
	log.Printf("[Live] reconnect attempt %d/%d in %s", c.attempts, c.opts.MaxAttempts, delay)
	c.reconnectTimer = time.AfterFunc(delay, c.dial)
}

// backoffDelay is min(base << attempt, ceiling).
func backoffDelay(attempt int, base, ceiling time.Duration) time.Duration {
	if attempt > 30 {
		return ceiling
	}
	d := base << uint(attempt)
	if d <= 0 || d > ceiling {
		return ceiling
	}
	return d
}
