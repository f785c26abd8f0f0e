package replay

import (
	"log"
	"sync"
	"time"

	"colosseum-lite/arena"
)

// DefaultInterval is the base delay between replayed events at speed 1.0.
const DefaultInterval = 400 * time.Millisecond

// Player steps a log forward on a timer with play/pause, speed and seek
// controls. The current snapshot always equals SnapshotAt(log, Pos()).
type Player struct {
	mu sync.Mutex

	log  Log
	pos  int // events applied so far
	snap arena.Snapshot

	playing      bool
	speed        float64
	baseInterval time.Duration
	timer        *time.Timer

	// onEvent, when set, fires after each applied event with the snapshot
	// that includes it. Called with the player lock held; must not call
	// back into the player.
	onEvent func(arena.Event, arena.Snapshot)
}

// Option configures a Player.
type Option func(*Player)

// WithInterval overrides the base event interval.
func WithInterval(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.baseInterval = d
		}
	}
}

// WithObserver registers the per-event callback.
func WithObserver(fn func(arena.Event, arena.Snapshot)) Option {
	return func(p *Player) { p.onEvent = fn }
}

func NewPlayer(l Log, opts ...Option) *Player {
	p := &Player{
		log:          l,
		snap:         arena.NewSnapshot(),
		speed:        1.0,
		baseInterval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Player) Len() int { return len(p.log) }

func (p *Player) Pos() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

func (p *Player) Snapshot() arena.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap.Clone()
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Player) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// Play starts or resumes timed playback. No-op at end of log.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing || p.pos >= len(p.log) {
		return
	}
	p.playing = true
	p.schedule()
}

// Pause halts playback; position is retained.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimer()
	p.playing = false
}

// SetSpeed changes the playback multiplier. Non-positive values are ignored.
// Takes effect from the next scheduled event.
func (p *Player) SetSpeed(mult float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mult <= 0 {
		return
	}
	p.speed = mult
	if p.playing {
		p.stopTimer()
		p.schedule()
	}
}

// Step applies n events forward, or rewinds by -n. Stepping pauses playback.
func (p *Player) Step(n int) arena.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimer()
	p.playing = false
	p.seekLocked(p.pos + n)
	return p.snap.Clone()
}

// SeekFraction jumps to a fraction of the log in [0,1].
func (p *Player) SeekFraction(f float64) arena.Snapshot {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seekLocked(int(f * float64(len(p.log))))
	return p.snap.Clone()
}

// seekLocked moves to an absolute position. Forward seeks fold incrementally
// from the current snapshot; backward seeks refold from the start, which
// keeps the fold-from-scratch equivalence trivially true.
func (p *Player) seekLocked(target int) {
	if target < 0 {
		target = 0
	}
	if target > len(p.log) {
		target = len(p.log)
	}
	if target < p.pos {
		p.snap = arena.NewSnapshot()
		p.pos = 0
	}
	for p.pos < target {
		p.applyNextLocked()
	}
	if p.playing && p.pos >= len(p.log) {
		// Landed on end of log; nothing left for the timer to apply.
		p.stopTimer()
		p.playing = false
	}
}

func (p *Player) applyNextLocked() {
	ev := p.log[p.pos]
	p.snap = arena.Apply(p.snap, ev)
	p.pos++
	if p.onEvent != nil {
		p.onEvent(ev, p.snap)
	}
}

func (p *Player) schedule() {
	p.timer = time.AfterFunc(p.interval(), p.tick)
}

func (p *Player) interval() time.Duration {
	return time.Duration(float64(p.baseInterval) / p.speed)
}

func (p *Player) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	if p.pos >= len(p.log) {
		p.playing = false
		return
	}
	p.applyNextLocked()
	if p.pos >= len(p.log) {
		// Auto-pause at end of log.
		p.playing = false
		log.Printf("[Replay %s] playback complete at %d events", p.log.MatchID(), p.pos)
		return
	}
	p.schedule()
}

func (p *Player) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
