package narration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"dubsync/internal/logging"
)

// LogSink prints requests instead of speaking them. Used for dry runs.
type LogSink struct {
	logger *slog.Logger
	out    io.Writer

	mu     sync.Mutex
	speech *Utterance
}

// NewLogSink returns a sink that logs each request and, when out is set,
// writes one line per request to it.
func NewLogSink(logger *slog.Logger, out io.Writer) *LogSink {
	return &LogSink{logger: logging.NewComponentLogger(logger, "narration"), out: out}
}

// Speak records req. The utterance stays open until the next Speak or Cancel.
func (s *LogSink) Speak(_ context.Context, req Request) (*Utterance, error) {
	s.Cancel()
	speech := NewUtterance()
	s.mu.Lock()
	s.speech = speech
	s.mu.Unlock()

	s.logger.Info("speak",
		logging.String("text", req.Text),
		logging.String("lang", req.Lang),
		logging.Float64("rate", req.Rate),
	)
	if s.out != nil {
		if _, err := fmt.Fprintf(s.out, "▶ [x%.2f] %s\n", req.Rate, req.Text); err != nil {
			speech.Finish(err)
			return speech, nil
		}
	}
	return speech, nil
}

// Cancel ends the open utterance.
func (s *LogSink) Cancel() {
	s.mu.Lock()
	speech := s.speech
	s.speech = nil
	s.mu.Unlock()
	if speech != nil {
		speech.Finish(ErrCanceled)
	}
}
