package narration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"dubsync/internal/config"
	"dubsync/internal/logging"
	"dubsync/internal/services"
)

const defaultBaseWPM = 175

// CommandSink speaks by running an external engine such as espeak-ng once per
// request. Cancel kills the whole process group of the running engine.
type CommandSink struct {
	command string
	args    []string
	voice   string
	baseWPM int
	logger  *slog.Logger

	mu      sync.Mutex
	current *exec.Cmd
	speech  *Utterance
}

// NewCommandSink builds a sink from the [narration] config section.
func NewCommandSink(cfg config.Narration, logger *slog.Logger) (*CommandSink, error) {
	command := strings.TrimSpace(cfg.Command)
	if command == "" {
		return nil, services.Wrap(services.ErrConfiguration, "narration", "command sink", "narration.command is empty", nil)
	}
	wpm := cfg.BaseWPM
	if wpm <= 0 {
		wpm = defaultBaseWPM
	}
	return &CommandSink{
		command: command,
		args:    append([]string(nil), cfg.Args...),
		voice:   strings.TrimSpace(cfg.Voice),
		baseWPM: wpm,
		logger:  logging.NewComponentLogger(logger, "narration"),
	}, nil
}

// Args expands the argument template for req.
func (s *CommandSink) Args(req Request) []string {
	voice := firstNonEmpty(req.Voice, s.voice, req.Lang)
	rate := req.Rate
	if rate <= 0 {
		rate = 1
	}
	replacer := strings.NewReplacer(
		"{text}", req.Text,
		"{lang}", req.Lang,
		"{voice}", voice,
		"{wpm}", strconv.Itoa(int(math.Round(float64(s.baseWPM)*rate))),
		"{rate}", strconv.FormatFloat(rate, 'f', 2, 64),
		"{pitch}", strconv.Itoa(scaled(req.Pitch, 50, 0, 99)),
		"{amplitude}", strconv.Itoa(scaled(req.Volume, 100, 0, 200)),
	)
	out := make([]string, len(s.args))
	for i, arg := range s.args {
		out[i] = replacer.Replace(arg)
	}
	return out
}

// Speak starts the engine for req. Any utterance still running is canceled
// first. The returned utterance finishes when the process exits.
func (s *CommandSink) Speak(ctx context.Context, req Request) (*Utterance, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Finished(nil), nil
	}
	s.Cancel()

	cmd := exec.CommandContext(ctx, s.command, s.Args(req)...) //nolint:gosec
	prepareProcessGroup(cmd)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "narration", "start", s.command, err)
	}

	speech := NewUtterance()
	s.mu.Lock()
	s.current = cmd
	s.speech = speech
	s.mu.Unlock()

	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		if s.current == cmd {
			s.current = nil
			s.speech = nil
		}
		s.mu.Unlock()
		if err != nil && speech.Err() == nil {
			if ctx.Err() != nil {
				err = ErrCanceled
			} else {
				err = fmt.Errorf("%s: %w: %s", s.command, err, strings.TrimSpace(stderr.String()))
			}
		}
		speech.Finish(err)
	}()
	return speech, nil
}

// Cancel stops the running engine, if any.
func (s *CommandSink) Cancel() {
	s.mu.Lock()
	cmd, speech := s.current, s.speech
	s.current, s.speech = nil, nil
	s.mu.Unlock()
	if cmd == nil {
		return
	}
	speech.Finish(ErrCanceled)
	if err := killProcessGroup(cmd); err != nil && !errors.Is(err, errProcessDone) {
		s.logger.Debug("kill narration process", logging.Error(err))
	}
}

func scaled(value, neutral float64, lo, hi int) int {
	if value <= 0 {
		value = 1
	}
	n := int(math.Round(value * neutral))
	return min(max(n, lo), hi)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
