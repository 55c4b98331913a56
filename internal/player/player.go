package player

import (
	"context"
	"math"
	"sync"
	"time"
)

// Listener receives clock events from the player.
type Listener interface {
	Tick(position float64)
	Pause(position float64)
	Resume(position float64)
}

// Options configures a Player.
type Options struct {
	// Start is the initial position in seconds.
	Start float64
	// Duration ends playback when reached; zero plays forever.
	Duration float64
	// Now overrides the wall clock.
	Now func() time.Time
}

// Player is a simulated playback clock. Position advances with wall time
// while playing.
type Player struct {
	listener Listener
	duration float64
	now      func() time.Time

	mu       sync.Mutex
	position float64
	anchor   time.Time
	playing  bool
	ended    bool
}

// New returns a paused player positioned at opts.Start.
func New(listener Listener, opts Options) *Player {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Player{
		listener: listener,
		duration: math.Max(opts.Duration, 0),
		now:      now,
		position: math.Max(opts.Start, 0),
	}
}

// Position returns the current playback position in seconds.
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

// Playing reports whether the clock is running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Ended reports whether playback reached Duration.
func (p *Player) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ended
}

// Play starts the clock and notifies the listener.
func (p *Player) Play() {
	p.mu.Lock()
	if p.playing || p.ended {
		p.mu.Unlock()
		return
	}
	p.playing = true
	p.anchor = p.now()
	pos := p.position
	p.mu.Unlock()
	p.listener.Resume(pos)
}

// Pause stops the clock and notifies the listener.
func (p *Player) Pause() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.position = p.positionLocked()
	p.playing = false
	pos := p.position
	p.mu.Unlock()
	p.listener.Pause(pos)
}

// Seek jumps to position. A running clock keeps running from there and the
// listener sees a tick at the new position.
func (p *Player) Seek(position float64) {
	p.mu.Lock()
	position = math.Max(position, 0)
	if p.duration > 0 {
		position = math.Min(position, p.duration)
	}
	p.position = position
	p.anchor = p.now()
	p.ended = false
	playing := p.playing
	p.mu.Unlock()
	if playing {
		p.listener.Tick(position)
	}
}

// Step emits one tick at the current position and reports whether playback
// is still running. Reaching Duration pauses the player.
func (p *Player) Step() bool {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return !p.ended
	}
	pos := p.positionLocked()
	reachedEnd := p.duration > 0 && pos >= p.duration
	if reachedEnd {
		pos = p.duration
		p.position = pos
		p.playing = false
		p.ended = true
	}
	p.mu.Unlock()

	p.listener.Tick(pos)
	if reachedEnd {
		p.listener.Pause(pos)
		return false
	}
	return true
}

// Run ticks every interval until ctx is done or playback ends.
func (p *Player) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !p.Step() {
				return nil
			}
		}
	}
}

func (p *Player) positionLocked() float64 {
	if !p.playing {
		return p.position
	}
	pos := p.position + p.now().Sub(p.anchor).Seconds()
	if p.duration > 0 {
		pos = math.Min(pos, p.duration)
	}
	return pos
}
