package playback

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"dubsync/internal/cues"
	"dubsync/internal/narration"
	"dubsync/internal/pacing"
)

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

type fakeSink struct {
	spoken   []narration.Request
	cancels  int
	speakErr error
}

func (s *fakeSink) Speak(_ context.Context, req narration.Request) (*narration.Utterance, error) {
	if s.speakErr != nil {
		return nil, s.speakErr
	}
	s.spoken = append(s.spoken, req)
	return narration.NewUtterance(), nil
}

func (s *fakeSink) Cancel() { s.cancels++ }

type fakeDisplay struct {
	shown  []string
	clears int
}

func (d *fakeDisplay) Show(text string) { d.shown = append(d.shown, text) }
func (d *fakeDisplay) Clear()           { d.clears++ }

func narrated(start, duration float64, text, translated string) cues.NarratedCue {
	rate := pacing.Default().EstimateRate(translated, duration)
	return cues.NarratedCue{
		Cue:            cues.Cue{Start: start, Duration: duration, Text: text},
		TranslatedText: translated,
		BaseRate:       rate,
		Request:        narration.Request{Text: translated, Lang: "zh-CN", Rate: rate, Pitch: 1, Volume: 1},
	}
}

type harness struct {
	sched   *Scheduler
	sink    *fakeSink
	display *fakeDisplay
	clock   *fakeClock
}

func newHarness(t *testing.T, list []cues.NarratedCue, strict bool) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := &harness{sink: &fakeSink{}, display: &fakeDisplay{}, clock: &fakeClock{}}
	h.sched = NewScheduler(ctx, list, Options{
		Sink:            h.sink,
		Display:         h.display,
		Clock:           h.clock,
		Pacer:           pacing.Default(),
		StrictLookahead: strict,
	})
	return h
}

func twoCues() []cues.NarratedCue {
	return []cues.NarratedCue{
		narrated(0, 2, "Hello world", "你好世界"),
		narrated(3, 1, "Bye.", "再见"),
	}
}

func TestRepeatedTicksInsideCueSpeakOnce(t *testing.T) {
	h := newHarness(t, twoCues(), false)
	h.sched.OnClockTick(0.2)
	h.sched.OnClockTick(0.7)
	h.sched.OnClockTick(1.9)

	if len(h.sink.spoken) != 1 {
		t.Fatalf("expected a single narration, got %d", len(h.sink.spoken))
	}
	if h.sink.cancels != 1 {
		t.Fatalf("expected one cancel before the speak, got %d", h.sink.cancels)
	}
	snap := h.sched.Snapshot()
	if snap.State != Armed || snap.ActiveIndex != 0 || snap.DisplayText != "你好世界" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestCueIntervalIsClosed(t *testing.T) {
	for _, position := range []float64{3, 4} {
		h := newHarness(t, twoCues(), false)
		h.sched.OnClockTick(position)
		if snap := h.sched.Snapshot(); snap.ActiveIndex != 1 {
			t.Fatalf("position %v: expected cue 1 active, got %+v", position, snap)
		}
	}
}

func TestMovingIntoGapGoesIdle(t *testing.T) {
	h := newHarness(t, twoCues(), false)
	h.sched.OnClockTick(1)
	cancelsBefore := h.sink.cancels

	h.sched.OnClockTick(2.5)

	snap := h.sched.Snapshot()
	if snap.State != Idle || snap.ActiveIndex != -1 || snap.DisplayText != "" {
		t.Fatalf("expected idle with cleared text, got %+v", snap)
	}
	if h.display.clears != 1 {
		t.Fatalf("expected display cleared once, got %d", h.display.clears)
	}
	if h.sink.cancels != cancelsBefore+1 {
		t.Fatalf("expected narration cancelled, cancels=%d", h.sink.cancels)
	}

	h.sched.OnClockTick(2.6)
	if h.display.clears != 1 {
		t.Fatal("idle ticks must not clear again")
	}
}

func TestGapTickPrearmsNextCue(t *testing.T) {
	h := newHarness(t, twoCues(), false)
	h.sched.OnClockTick(2.5)
	if !h.sched.Snapshot().TimerArmed {
		t.Fatal("expected look-ahead armed from the gap")
	}
	h.clock.Advance(500 * time.Millisecond)
	if snap := h.sched.Snapshot(); snap.ActiveIndex != 1 {
		t.Fatalf("expected cue 1 activated by timer, got %+v", snap)
	}
}

func TestLateActivationBoostsRate(t *testing.T) {
	list := []cues.NarratedCue{narrated(0, 2, "Hello world", "你好世界")}

	h := newHarness(t, list, false)
	h.sched.OnClockTick(0)
	if got := h.sink.spoken[0].Rate; got != list[0].BaseRate {
		t.Fatalf("expected base rate %v at cue start, got %v", list[0].BaseRate, got)
	}

	h = newHarness(t, list, false)
	h.sched.OnClockTick(1.5)
	// 4 characters need 1.2s, only 0.5s remain: 0.8 * 1.2 / 0.5
	got := h.sink.spoken[0].Rate
	if math.Abs(got-1.92) > 1e-9 {
		t.Fatalf("expected boosted rate 1.92, got %v", got)
	}
	if h.sink.spoken[0].Text != "你好世界" || h.sink.spoken[0].Lang != "zh-CN" {
		t.Fatalf("request fields not carried over: %+v", h.sink.spoken[0])
	}
}

func TestLookaheadTimerActivatesNextCue(t *testing.T) {
	h := newHarness(t, twoCues(), false)
	h.sched.OnClockTick(0)
	timer := h.clock.last()
	if timer == nil || timer.at != 3*time.Second {
		t.Fatalf("expected timer at 3s, got %+v", timer)
	}

	h.clock.Advance(3 * time.Second)

	if len(h.sink.spoken) != 2 || h.sink.spoken[1].Text != "再见" {
		t.Fatalf("expected second cue narrated, got %+v", h.sink.spoken)
	}
	if h.display.shown[len(h.display.shown)-1] != "再见" {
		t.Fatalf("display not updated: %v", h.display.shown)
	}
	// A tick landing on the same cue afterwards is a no-op.
	h.sched.OnClockTick(3.2)
	if len(h.sink.spoken) != 2 {
		t.Fatal("tick after timer activation re-triggered narration")
	}
}

func TestZeroGapNeighbourNarratedByDefault(t *testing.T) {
	list := []cues.NarratedCue{
		narrated(0, 2, "First part", "第一"),
		narrated(2, 1, "second part", "第二"),
	}
	h := newHarness(t, list, false)
	h.sched.OnClockTick(0)
	h.clock.Advance(2 * time.Second)
	if snap := h.sched.Snapshot(); snap.ActiveIndex != 1 {
		t.Fatalf("expected adjacent cue activated, got %+v", snap)
	}
}

func TestStrictLookaheadSkipsZeroGapNeighbour(t *testing.T) {
	list := []cues.NarratedCue{
		narrated(0, 2, "First part", "第一"),
		narrated(2, 1, "second part", "第二"),
		narrated(4, 1, "Later.", "稍后"),
	}
	h := newHarness(t, list, true)
	h.sched.OnClockTick(0)
	timer := h.clock.last()
	if timer == nil || timer.at != 4*time.Second {
		t.Fatalf("expected timer for the cue at 4s, got %+v", timer)
	}
}

func TestSupersededTimerIsNoop(t *testing.T) {
	list := []cues.NarratedCue{
		narrated(0, 2, "One.", "一"),
		narrated(3, 1, "Two.", "二"),
		narrated(5, 1, "Three.", "三"),
	}
	h := newHarness(t, list, false)
	h.sched.OnClockTick(0)
	stale := h.clock.last()

	h.sched.OnClockTick(5.2)
	if !stale.stopped {
		t.Fatal("expected the pending timer to be stopped")
	}
	// Simulate the timer firing anyway after losing the race.
	stale.f()

	if len(h.sink.spoken) != 2 || h.sink.spoken[1].Text != "三" {
		t.Fatalf("stale timer changed narration: %+v", h.sink.spoken)
	}
	if snap := h.sched.Snapshot(); snap.ActiveIndex != 2 {
		t.Fatalf("stale timer changed active cue: %+v", snap)
	}
}

func TestPauseAndResume(t *testing.T) {
	list := []cues.NarratedCue{narrated(0, 2, "Hello world", "你好世界")}
	h := newHarness(t, list, false)
	h.sched.OnClockTick(0.5)

	h.sched.Pause(1.0)
	snap := h.sched.Snapshot()
	if !snap.Paused || snap.State != Idle || snap.TimerArmed {
		t.Fatalf("unexpected paused snapshot %+v", snap)
	}
	if snap.DisplayText != "你好世界" {
		t.Fatal("pause should keep the caption on screen")
	}

	h.sched.OnClockTick(1.2)
	if len(h.sink.spoken) != 1 {
		t.Fatal("ticks while paused must be ignored")
	}

	h.sched.Resume(1.5)
	if len(h.sink.spoken) != 2 {
		t.Fatalf("expected narration restarted on resume, got %d", len(h.sink.spoken))
	}
	if rate := h.sink.spoken[1].Rate; rate <= list[0].BaseRate {
		t.Fatalf("expected rate fitted to the remaining window, got %v", rate)
	}
}

func TestStopResetsEverything(t *testing.T) {
	h := newHarness(t, twoCues(), false)
	h.sched.OnClockTick(0.5)
	timer := h.clock.last()

	h.sched.Stop()

	snap := h.sched.Snapshot()
	if snap.State != Idle || snap.TimerArmed || snap.DisplayText != "" || snap.ActiveIndex != -1 {
		t.Fatalf("unexpected snapshot after stop %+v", snap)
	}
	if !timer.stopped || h.display.clears != 1 {
		t.Fatalf("expected timer stopped and display cleared (clears=%d)", h.display.clears)
	}

	// The same cue narrates again after a stop since its identity was forgotten.
	h.sched.OnClockTick(0.6)
	if len(h.sink.spoken) != 2 {
		t.Fatalf("expected re-narration after stop, got %d", len(h.sink.spoken))
	}
}

func TestSpeakErrorStillShowsText(t *testing.T) {
	h := newHarness(t, twoCues(), false)
	h.sink.speakErr = errors.New("engine missing")
	h.sched.OnClockTick(0.5)
	if snap := h.sched.Snapshot(); snap.State != Armed || snap.DisplayText != "你好世界" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	h.sched.OnClockTick(0.6)
	if h.sink.cancels != 1 {
		t.Fatal("same cue must not be retried on every tick")
	}
}

func TestSeekBackWithinCueRearmsLookahead(t *testing.T) {
	list := []cues.NarratedCue{
		narrated(0, 4, "Hello world", "你好世界"),
		narrated(4.5, 1, "Bye.", "再见"),
	}
	h := newHarness(t, list, false)
	h.sched.OnClockTick(0)
	first := h.clock.last()

	h.clock.Advance(3 * time.Second)
	h.sched.OnClockTick(0.5)

	if !first.stopped {
		t.Fatal("expected the timer armed from the old position to be stopped")
	}
	if h.sched.timer == nil {
		t.Fatal("expected a look-ahead timer re-armed from the new position")
	}
	if got := h.clock.last().at; got != 7*time.Second {
		t.Fatalf("expected next cue due 4s after the seek, got %v", got)
	}

	// Video at 2.0: still inside the first cue.
	h.clock.Advance(1500 * time.Millisecond)
	if len(h.sink.spoken) != 1 || h.sched.Snapshot().ActiveIndex != 0 {
		t.Fatalf("next cue narrated early: spoken=%d snapshot=%+v", len(h.sink.spoken), h.sched.Snapshot())
	}

	h.clock.Advance(2500 * time.Millisecond)
	if len(h.sink.spoken) != 2 || h.sink.spoken[1].Text != "再见" {
		t.Fatalf("expected second cue narrated on time, got %+v", h.sink.spoken)
	}
}
