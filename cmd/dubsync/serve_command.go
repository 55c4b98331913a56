package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dubsync/internal/api"
	"dubsync/internal/logging"
	"dubsync/internal/narration"
	"dubsync/internal/preflight"
	"dubsync/internal/session"
	"dubsync/internal/store"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var skipChecks bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control API and narrate the session it drives",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger := ctx.loggerValue()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !skipChecks {
				results := preflight.RunAll(runCtx, cfg)
				for _, r := range results {
					if !r.Passed && (r.Optional || dryRun) {
						logging.WarnWithContext(logger, "preflight check failed", "preflight_warning",
							logging.String("check", r.Name),
							logging.String("detail", r.Detail),
							logging.String(logging.FieldImpact, "continuing without it"),
						)
					}
				}
				if failed := preflight.Failed(results); len(failed) > 0 && !dryRun {
					fmt.Fprintln(cmd.ErrOrStderr(), renderPreflight(failed))
					return fmt.Errorf("%d required check(s) failed; run `dubsync check` for details", len(failed))
				}
			}

			lock, err := ctx.acquireLock()
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			var sink narration.Sink
			if dryRun {
				sink = narration.NewLogSink(logger, nil)
			} else {
				commandSink, err := narration.NewCommandSink(cfg.Narration, logger)
				if err != nil {
					return err
				}
				defer commandSink.Cancel()
				sink = commandSink
			}

			opts := session.Options{Config: cfg, Sink: sink, Logger: logger}
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

			server := api.NewServer(cfg, mgr, logger)
			if err := server.Start(runCtx); err != nil {
				return err
			}
			defer server.Stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s/api\n", server.Addr())

			<-runCtx.Done()
			logger.Info("dubsync shutting down")
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Start without running preflight checks")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log narration instead of running the speech engine")
	return cmd
}
