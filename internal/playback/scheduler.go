package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"dubsync/internal/cues"
	"dubsync/internal/logging"
	"dubsync/internal/narration"
	"dubsync/internal/pacing"
)

// State is the scheduler's position in its state machine.
type State int

const (
	// Idle means no cue is active.
	Idle State = iota
	// Armed means a cue is active and its narration was issued.
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// Options configures a Scheduler. Sink is required.
type Options struct {
	Sink    narration.Sink
	Display Display
	Clock   Clock
	Pacer   pacing.Pacer
	// StrictLookahead only pre-arms cues that start strictly after the
	// active cue ends, skipping zero-gap neighbours.
	StrictLookahead bool
	Logger          *slog.Logger
}

// Snapshot is a point-in-time view of the scheduler.
type Snapshot struct {
	State       State
	Paused      bool
	ActiveIndex int
	DisplayText string
	Position    float64
	TimerArmed  bool
}

// Scheduler maps clock positions onto narrated cues. Every entry point
// holds the same mutex, so ticks, timer firings, pauses and stops are
// processed one at a time.
type Scheduler struct {
	ctx     context.Context
	cues    []cues.NarratedCue
	sink    narration.Sink
	display Display
	clock   Clock
	pacer   pacing.Pacer
	strict  bool
	logger  *slog.Logger

	mu          sync.Mutex
	state       State
	active      cues.Identity
	activeIndex int
	displayText string
	position    float64
	paused      bool
	timer       Timer
	generation  uint64
}

// NewScheduler returns an idle scheduler over list. ctx scopes every
// narration request the scheduler issues.
func NewScheduler(ctx context.Context, list []cues.NarratedCue, opts Options) *Scheduler {
	if opts.Display == nil {
		opts.Display = nopDisplay{}
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	return &Scheduler{
		ctx:         ctx,
		cues:        list,
		sink:        opts.Sink,
		display:     opts.Display,
		clock:       opts.Clock,
		pacer:       opts.Pacer,
		strict:      opts.StrictLookahead,
		logger:      logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "playback")),
		activeIndex: -1,
	}
}

// OnClockTick reconciles the scheduler with the playback position.
// Ticks are ignored while paused.
func (s *Scheduler) OnClockTick(position float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return
	}
	s.tick(position)
}

// Pause silences narration and disarms the timer. The displayed text stays.
func (s *Scheduler) Pause(position float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return
	}
	s.paused = true
	s.position = position
	s.cancelTimer()
	s.sink.Cancel()
	s.forget()
	s.logger.Debug("playback paused", logging.Float64("position", position))
}

// Resume re-enters the tick path so the cue under position is narrated
// again at a rate fitted to what is left of its window.
func (s *Scheduler) Resume(position float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return
	}
	s.paused = false
	s.logger.Debug("playback resumed", logging.Float64("position", position))
	s.tick(position)
}

// Stop cancels narration and the timer, clears the display and returns to
// Idle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimer()
	s.sink.Cancel()
	s.display.Clear()
	s.displayText = ""
	s.forget()
	s.paused = false
}

// Snapshot returns the current state.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:       s.state,
		Paused:      s.paused,
		ActiveIndex: s.activeIndex,
		DisplayText: s.displayText,
		Position:    s.position,
		TimerArmed:  s.timer != nil,
	}
}

// Len returns the number of cues the scheduler plays.
func (s *Scheduler) Len() int { return len(s.cues) }

func (s *Scheduler) tick(position float64) {
	s.position = position
	idx := cues.Lookup(s.cues, position)
	if idx < 0 {
		if s.state == Armed {
			s.display.Clear()
			s.displayText = ""
			s.sink.Cancel()
			s.forget()
			s.logger.Debug("left cue window", logging.Float64("position", position))
		}
		s.cancelTimer()
		if next := s.nextAfter(position); next >= 0 {
			s.arm(next, position)
		}
		return
	}
	if s.state == Armed && s.active == s.cues[idx].Identity() {
		// Same cue keeps speaking; re-arm the look-ahead from position.
		s.cancelTimer()
		if next := s.lookahead(idx); next >= 0 {
			s.arm(next, position)
		}
		return
	}
	s.activate(idx, position)
}

func (s *Scheduler) activate(idx int, position float64) {
	cue := s.cues[idx]
	s.sink.Cancel()
	s.display.Show(cue.TranslatedText)
	s.displayText = cue.TranslatedText

	remaining := cue.End() - position
	rate := s.pacer.RecalculateRate(cue.TranslatedText, remaining, cue.BaseRate)
	s.state = Armed
	s.active = cue.Identity()
	s.activeIndex = idx

	if rate != cue.BaseRate {
		s.logger.Debug("narration rate adjusted", logging.Args(append(
			logging.DecisionAttrs("narration_rate", "boosted", "late activation"),
			logging.CueIndex(idx),
			logging.Float64("base_rate", cue.BaseRate),
			logging.Float64("rate", rate),
			logging.Float64("remaining_seconds", remaining),
		)...)...)
	}
	speech, err := s.sink.Speak(s.ctx, cue.Request.WithRate(rate))
	if err != nil {
		logging.WarnWithContext(s.logger, "narration failed to start", "narration_failed",
			logging.CueIndex(idx),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check narration.command"),
			logging.String(logging.FieldImpact, "cue shown without speech"),
		)
	} else if speech != nil {
		go s.observe(speech, idx)
	}

	s.cancelTimer()
	if next := s.lookahead(idx); next >= 0 {
		s.arm(next, position)
	}
}

// lookahead picks the cue to pre-arm after active. By default that is the
// next cue in order that does not start before active ends; in strict mode
// it is the earliest cue starting strictly after active ends.
func (s *Scheduler) lookahead(active int) int {
	end := s.cues[active].End()
	if !s.strict {
		for j := active + 1; j < len(s.cues); j++ {
			if s.cues[j].Start >= end {
				return j
			}
		}
		return -1
	}
	best := -1
	for j := range s.cues {
		if s.cues[j].Start > end && (best < 0 || s.cues[j].Start < s.cues[best].Start) {
			best = j
		}
	}
	return best
}

func (s *Scheduler) nextAfter(position float64) int {
	for j := range s.cues {
		if s.cues[j].Start > position {
			return j
		}
	}
	return -1
}

func (s *Scheduler) arm(next int, position float64) {
	s.generation++
	gen := s.generation
	delay := secondsToDuration(s.cues[next].Start - position)
	s.timer = s.clock.AfterFunc(delay, func() { s.fire(gen, next) })
}

func (s *Scheduler) fire(gen uint64, next int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.paused {
		s.logger.Debug("stale look-ahead timer ignored", logging.CueIndex(next))
		return
	}
	s.timer = nil
	cue := s.cues[next]
	if s.state == Armed && s.active == cue.Identity() {
		return
	}
	s.position = cue.Start
	s.activate(next, cue.Start)
}

func (s *Scheduler) cancelTimer() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) forget() {
	s.state = Idle
	s.active = cues.Identity{}
	s.activeIndex = -1
}

func (s *Scheduler) observe(speech *narration.Utterance, idx int) {
	select {
	case <-speech.Done():
	case <-s.ctx.Done():
		return
	}
	if err := speech.Err(); err != nil && !errors.Is(err, narration.ErrCanceled) && !errors.Is(err, context.Canceled) {
		s.logger.Debug("narration ended with error", logging.CueIndex(idx), logging.Error(err))
		return
	}
	s.logger.Debug("narration finished", logging.CueIndex(idx))
}
