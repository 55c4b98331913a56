package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dubsync/internal/captions"
	"dubsync/internal/deps"
	"dubsync/internal/narration"
	"dubsync/internal/player"
	"dubsync/internal/session"
	"dubsync/internal/store"
)

// trailingSeconds keeps the player running past the last cue so its
// narration is not cut off by the end of playback.
const trailingSeconds = 1.0

func newNarrateCommand(ctx *commandContext) *cobra.Command {
	var input cueInput
	var target string
	var styleHint string
	var start float64
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "narrate",
		Short: "Play a caption track on a simulated clock and narrate it",
		Long: `Translates the caption track, then plays it on a wall-clock player and
speaks every cue as it becomes active. While playing, stdin accepts:
  pause | play | seek <seconds> | quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger := ctx.loggerValue()

			lock, err := ctx.acquireLock()
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			raw, err := input.raw(runCtx, cfg)
			if err != nil {
				return err
			}
			locale, err := resolveTarget(cfg, target)
			if err != nil {
				return err
			}

			out := &lockedWriter{w: cmd.OutOrStdout()}
			var sink narration.Sink
			if dryRun {
				sink = narration.NewLogSink(logger, out)
			} else {
				for _, status := range deps.CheckBinaries(deps.NarrationRequirements(cfg.Narration)) {
					if !status.Available {
						return fmt.Errorf("%s: %s (use --dry-run to print instead)", status.Name, status.Detail)
					}
				}
				commandSink, err := narration.NewCommandSink(cfg.Narration, logger)
				if err != nil {
					return err
				}
				defer commandSink.Cancel()
				sink = commandSink
			}

			opts := session.Options{
				Config:  cfg,
				Source:  captions.StaticSource(raw),
				Sink:    sink,
				Display: &terminalDisplay{out: out},
				Logger:  logger,
			}
			if cfg.Translation.MemoEnabled {
				memo, err := store.Open(cfg)
				if err != nil {
					return fmt.Errorf("open translation memo: %w", err)
				}
				defer memo.Close()
				opts.Memo = memo
			}
			mgr := session.NewManager(opts)
			defer mgr.Disable()

			if err := mgr.Enable(runCtx, session.EnableRequest{
				VideoID:      videoIDFor(input),
				TargetLocale: locale,
				StyleHint:    styleHint,
			}); err != nil {
				return err
			}
			status, err := waitReady(runCtx, mgr, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if status.State != session.StateReady {
				return fmt.Errorf("narration unavailable: %s", status.Error)
			}
			fmt.Fprintf(out, "Narrating %d cue(s) in %s (%d untranslated)\n", status.CueCount, locale, status.Failures)

			list := mgr.Cues()
			duration := start
			if n := len(list); n > 0 {
				duration = list[n-1].End() + trailingSeconds
			}
			p := player.New(mgr, player.Options{Start: start, Duration: duration})

			playCtx, quit := context.WithCancel(runCtx)
			defer quit()
			go readControls(playCtx, cmd.InOrStdin(), p, quit, out)

			p.Play()
			err = p.Run(playCtx, time.Duration(cfg.Playback.TickIntervalMillis)*time.Millisecond)
			if errors.Is(err, context.Canceled) {
				err = nil
			}
			fmt.Fprintf(out, "Stopped at %s\n", formatSeconds(p.Position()))
			return err
		},
	}
	input.register(cmd)
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target locale (defaults to translation.target_language)")
	cmd.Flags().StringVar(&styleHint, "style", "", "Style hint passed to the translator")
	cmd.Flags().Float64Var(&start, "start", 0, "Start position in seconds")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print narration instead of running the speech engine")
	return cmd
}

func videoIDFor(input cueInput) string {
	if id := strings.TrimSpace(input.videoID); id != "" {
		return id
	}
	base := filepath.Base(input.file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// waitReady blocks until preparation finishes, redrawing progress on
// terminals.
func waitReady(ctx context.Context, mgr *session.Manager, progressOut io.Writer) (session.Status, error) {
	progress := newProgressPrinter(progressOut, "Preparing")
	defer progress.done()

	done := make(chan struct{})
	var (
		status session.Status
		err    error
	)
	go func() {
		defer close(done)
		status, err = mgr.Wait(ctx)
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			progress.update(status.Progress)
			return status, err
		case <-ticker.C:
			progress.update(mgr.Status().Progress)
		}
	}
}

// readControls applies line commands from in to the player. EOF leaves the
// player running.
func readControls(ctx context.Context, in io.Reader, p *player.Player, quit context.CancelFunc, out io.Writer) {
	reply := func(format string, args ...any) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "pause", "p":
			p.Pause()
			reply("paused at %s", formatSeconds(p.Position()))
		case "play", "resume", "r":
			p.Play()
		case "seek", "s":
			if len(fields) < 2 {
				reply("usage: seek <seconds>")
				continue
			}
			pos, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				reply("invalid position %q", fields[1])
				continue
			}
			p.Seek(pos)
		case "quit", "q", "exit":
			quit()
			return
		default:
			reply("commands: pause | play | seek <seconds> | quit")
		}
	}
}

// terminalDisplay prints each activated cue's text on its own line.
type terminalDisplay struct {
	out io.Writer
}

func (d *terminalDisplay) Show(text string) {
	fmt.Fprintf(d.out, "» %s\n", text)
}

func (d *terminalDisplay) Clear() {}
