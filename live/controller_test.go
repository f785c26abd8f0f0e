package live

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"colosseum-lite/arena"
)

type readResult struct {
	data []byte
	err  error
}

// fakeTransport is a scriptable Transport: tests push frames or errors and
// record every outbound command.
type fakeTransport struct {
	reads chan readResult

	mu     sync.Mutex
	writes []startCommand
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{reads: make(chan readResult, 32)}
}

func (t *fakeTransport) ReadMessage() ([]byte, error) {
	r := <-t.reads
	return r.data, r.err
}

func (t *fakeTransport) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var cmd startCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = append(t.writes, cmd)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		t.reads <- readResult{err: errors.New("transport closed")}
	}
	return nil
}

func (t *fakeTransport) pushEvent(tb testing.TB, ev arena.Event) {
	tb.Helper()
	data, err := ev.Encode()
	if err != nil {
		tb.Fatalf("encode: %v", err)
	}
	t.reads <- readResult{data: data}
}

func (t *fakeTransport) pushRaw(data []byte) { t.reads <- readResult{data: data} }

func (t *fakeTransport) fail(err error) { t.reads <- readResult{err: err} }

func (t *fakeTransport) writeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.writes)
}

func (t *fakeTransport) lastWrite(tb testing.TB) startCommand {
	tb.Helper()
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.writes) == 0 {
		tb.Fatalf("no outbound commands recorded")
	}
	return t.writes[len(t.writes)-1]
}

// seqDialer hands out transports in order, or fails when the script runs dry.
type seqDialer struct {
	mu         sync.Mutex
	transports []*fakeTransport
	calls      int
	gate       chan struct{} // when set, dials block until the gate closes
}

func (d *seqDialer) dial(ctx context.Context) (Transport, error) {
	d.mu.Lock()
	gate := d.gate
	d.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if len(d.transports) == 0 {
		return nil, errors.New("backend unreachable")
	}
	t := d.transports[0]
	d.transports = d.transports[1:]
	return t, nil
}

func (d *seqDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func fastOptions(dial DialFunc) Options {
	return Options{
		Dial:        dial,
		BackoffBase: time.Millisecond,
		BackoffCap:  4 * time.Millisecond,
		MaxAttempts: 3,
	}
}

func matchStartEvent(id string) arena.Event {
	return arena.Event{
		Type:        arena.EventMatchStart,
		MatchID:     id,
		GameType:    arena.GameResourceWars,
		TotalRounds: 3,
	}
}

func TestBackoffDelay_IncreasesThenCaps(t *testing.T) {
	base, ceiling := time.Second, 30*time.Second
	prev := time.Duration(0)
	for attempt := 0; attempt < 4; attempt++ {
		d := backoffDelay(attempt, base, ceiling)
		if d <= prev {
			t.Fatalf("attempt %d: delay %v not strictly increasing past %v", attempt, d, prev)
		}
		prev = d
	}
	if got := backoffDelay(10, base, ceiling); got != ceiling {
		t.Fatalf("expected cap %v, got %v", ceiling, got)
	}
	if got := backoffDelay(500, base, ceiling); got != ceiling {
		t.Fatalf("huge attempt must stay capped, got %v", got)
	}
}

func TestController_ReconnectCeiling(t *testing.T) {
	d := &seqDialer{} // every dial fails
	c, err := NewController(fastOptions(d.dial))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	defer c.Close()

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("controller never reached terminal state")
	}
	if !errors.Is(c.Err(), ErrReconnectExhausted) {
		t.Fatalf("expected ErrReconnectExhausted, got %v", c.Err())
	}
	// Initial dial plus exactly MaxAttempts retries.
	if got := d.dialCount(); got != 4 {
		t.Fatalf("expected 4 dial attempts, got %d", got)
	}
	if c.Connected() {
		t.Fatalf("terminal controller must not report connected")
	}
}

func TestController_DuplicateStartSuppressed(t *testing.T) {
	ft := newFakeTransport()
	d := &seqDialer{transports: []*fakeTransport{ft}}
	c, err := NewController(fastOptions(d.dial))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	defer c.Close()
	waitFor(t, "connect", c.Connected)

	cfg := StartConfig{GameType: arena.GameResourceWars, RedPersonality: "aggressive", BluePersonality: "defensive", Rounds: 3}
	if err := c.Start(cfg); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, "start command", func() bool { return ft.writeCount() == 1 })
	if cmd := ft.lastWrite(t); cmd.Type != "start_match" || cmd.Rounds != 3 {
		t.Fatalf("unexpected command: %+v", cmd)
	}

	ft.pushEvent(t, matchStartEvent("m1"))
	waitFor(t, "match_start applied", func() bool { return c.Snapshot().MatchID == "m1" })

	// A second start against the in-progress match must never hit the wire.
	if err := c.Start(cfg); err != nil {
		t.Fatalf("duplicate start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if ft.writeCount() != 1 {
		t.Fatalf("duplicate start reached the wire: %d writes", ft.writeCount())
	}
}

func TestController_QueuedStartLatestWins(t *testing.T) {
	ft := newFakeTransport()
	gate := make(chan struct{})
	d := &seqDialer{transports: []*fakeTransport{ft}, gate: gate}
	c, err := NewController(fastOptions(d.dial))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	defer c.Close()

	// Both starts land while the dial is still in flight.
	c.Start(StartConfig{GameType: arena.GameResourceWars, Rounds: 3})
	c.Start(StartConfig{GameType: arena.GameNegotiation, Rounds: 5})
	close(gate)

	waitFor(t, "flushed start", func() bool { return ft.writeCount() > 0 })
	time.Sleep(20 * time.Millisecond)
	if ft.writeCount() != 1 {
		t.Fatalf("queued starts must flush exactly once, got %d", ft.writeCount())
	}
	if cmd := ft.lastWrite(t); cmd.GameType != arena.GameNegotiation || cmd.Rounds != 5 {
		t.Fatalf("expected latest queued config, got %+v", cmd)
	}
}

func TestController_StaleConnectionDiscarded(t *testing.T) {
	ft := newFakeTransport()
	d := &seqDialer{transports: []*fakeTransport{ft}}

	var mu sync.Mutex
	applied := 0
	opts := fastOptions(d.dial)
	opts.OnEvent = func(arena.Event, arena.Snapshot) {
		mu.Lock()
		applied++
		mu.Unlock()
	}
	c, err := NewController(opts)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	waitFor(t, "connect", c.Connected)

	ft.pushEvent(t, matchStartEvent("m1"))
	waitFor(t, "event applied", func() bool { mu.Lock(); defer mu.Unlock(); return applied == 1 })
	before := c.Snapshot()

	// Teardown nulls the current-connection slot, then a late message
	// arrives on the old handle.
	c.Close()
	ft.pushEvent(t, arena.Event{Type: arena.EventRoundStart, Round: 1})
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	got := applied
	mu.Unlock()
	if got != 1 {
		t.Fatalf("stale connection delivered events: %d applied", got)
	}
	after := c.Snapshot()
	if before.CurrentRound != after.CurrentRound || after.Phase != before.Phase {
		t.Fatalf("snapshot changed on stale delivery: %+v vs %+v", before, after)
	}
}

func TestController_ResumeReplaysLastStart(t *testing.T) {
	first := newFakeTransport()
	second := newFakeTransport()
	d := &seqDialer{transports: []*fakeTransport{first, second}}
	c, err := NewController(fastOptions(d.dial))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	defer c.Close()
	waitFor(t, "connect", c.Connected)

	cfg := StartConfig{GameType: arena.GameAuction, RedPersonality: "adaptive", BluePersonality: "chaotic", Rounds: 8}
	c.Start(cfg)
	waitFor(t, "start sent", func() bool { return first.writeCount() == 1 })
	first.pushEvent(t, matchStartEvent("m1"))
	waitFor(t, "match started", func() bool { return c.Snapshot().MatchID == "m1" })

	// Abnormal close mid-match: controller reconnects and replays the
	// remembered start config on the fresh transport.
	first.fail(errors.New("connection reset"))
	waitFor(t, "resume command", func() bool { return second.writeCount() == 1 })
	if cmd := second.lastWrite(t); cmd.GameType != arena.GameAuction || cmd.RedPersonality != "adaptive" {
		t.Fatalf("resume sent wrong config: %+v", cmd)
	}
	if d.dialCount() != 2 {
		t.Fatalf("expected exactly one reconnect, got %d dials", d.dialCount())
	}
}

func TestController_GracefulCloseAfterMatchEnd(t *testing.T) {
	ft := newFakeTransport()
	d := &seqDialer{transports: []*fakeTransport{ft}}
	c, err := NewController(fastOptions(d.dial))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	defer c.Close()
	waitFor(t, "connect", c.Connected)

	ft.pushEvent(t, matchStartEvent("m1"))
	ft.pushEvent(t, arena.Event{Type: arena.EventMatchEnd, Winner: "red"})
	waitFor(t, "match ended", func() bool { return c.Snapshot().Phase == arena.PhaseMatchEnd })

	ft.fail(errors.New("server closed connection"))
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("graceful close never terminated the controller")
	}
	if c.Err() != nil {
		t.Fatalf("graceful close must not surface an error, got %v", c.Err())
	}
	if d.dialCount() != 1 {
		t.Fatalf("graceful close must not reconnect, got %d dials", d.dialCount())
	}
}

func TestController_MalformedFramesDropped(t *testing.T) {
	ft := newFakeTransport()
	d := &seqDialer{transports: []*fakeTransport{ft}}
	c, err := NewController(fastOptions(d.dial))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	defer c.Close()
	waitFor(t, "connect", c.Connected)

	ft.pushRaw([]byte(`{"type":`))
	ft.pushRaw([]byte(`{"round":2}`))
	ft.pushEvent(t, matchStartEvent("m1"))

	waitFor(t, "valid event applied", func() bool { return c.Snapshot().MatchID == "m1" })
	if !c.Connected() {
		t.Fatalf("malformed frames must not kill the connection")
	}
}

func TestController_KeepAliveIsNoOp(t *testing.T) {
	ft := newFakeTransport()
	d := &seqDialer{transports: []*fakeTransport{ft}}
	c, err := NewController(fastOptions(d.dial))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	defer c.Close()
	waitFor(t, "connect", c.Connected)

	ft.pushEvent(t, matchStartEvent("m1"))
	waitFor(t, "match started", func() bool { return c.Snapshot().MatchID == "m1" })
	before := c.Snapshot()

	ft.pushEvent(t, arena.Event{Type: arena.EventKeepAlive})
	ft.pushEvent(t, arena.Event{Type: arena.EventKeepAlive})
	time.Sleep(20 * time.Millisecond)

	after := c.Snapshot()
	if before.Phase != after.Phase || before.MatchID != after.MatchID || !c.Connected() {
		t.Fatalf("keep-alive changed state: %+v vs %+v", before, after)
	}
}

func TestController_StartAfterCloseFails(t *testing.T) {
	ft := newFakeTransport()
	d := &seqDialer{transports: []*fakeTransport{ft}}
	c, err := NewController(fastOptions(d.dial))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	c.Close()
	if err := c.Start(StartConfig{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
