package narration

import (
	"context"
	"errors"
	"sync"
)

// ErrCanceled is reported by an utterance that was cut off by Cancel.
var ErrCanceled = errors.New("narration canceled")

// Request describes one piece of speech. Rate is a multiplier on the
// engine's normal pace; Pitch and Volume are 1 for neutral and full.
type Request struct {
	Text   string  `json:"text"`
	Lang   string  `json:"lang"`
	Voice  string  `json:"voice,omitempty"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

// WithRate returns a copy of r spoken at rate.
func (r Request) WithRate(rate float64) Request {
	r.Rate = rate
	return r
}

// Sink is an exclusive single-voice speech engine. Callers cancel the
// previous utterance before speaking again.
type Sink interface {
	Speak(ctx context.Context, req Request) (*Utterance, error)
	Cancel()
}

// Utterance tracks one in-flight Speak call. Completion is observational.
type Utterance struct {
	done chan struct{}
	once sync.Once
	err  error
}

// NewUtterance returns an unfinished utterance.
func NewUtterance() *Utterance {
	return &Utterance{done: make(chan struct{})}
}

// Finished returns an utterance that has already completed with err.
func Finished(err error) *Utterance {
	u := NewUtterance()
	u.Finish(err)
	return u
}

// Finish records the outcome. Only the first call has any effect.
func (u *Utterance) Finish(err error) {
	u.once.Do(func() {
		u.err = err
		close(u.done)
	})
}

// Done is closed when speech ends, fails or is canceled.
func (u *Utterance) Done() <-chan struct{} { return u.done }

// Err returns the outcome once Done is closed.
func (u *Utterance) Err() error {
	select {
	case <-u.done:
		return u.err
	default:
		return nil
	}
}
