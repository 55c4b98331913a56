package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dubsync/internal/config"
	"dubsync/internal/cues"
	"dubsync/internal/language"
	"dubsync/internal/pacing"
	"dubsync/internal/store"
	"dubsync/internal/translation"
)

type translateReport struct {
	Source    string                `json:"source"`
	Target    string                `json:"target"`
	Cues      []cues.NarratedCue    `json:"cues"`
	Failures  []translation.Failure `json:"failures"`
	Fallbacks int                   `json:"fallbacks"`
	MemoHits  int                   `json:"memo_hits"`
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var input cueInput
	var target string
	var styleHint string
	var noMemo bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Merge and translate a caption track, showing the narration plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger := ctx.loggerValue()

			merged, err := input.merged(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			locale, err := resolveTarget(cfg, target)
			if err != nil {
				return err
			}

			opts := translation.Options{
				Pacer:        pacing.FromConfig(cfg.Pacing),
				SourceLocale: cfg.Translation.SourceLanguage,
				TargetLocale: locale,
				StyleHint:    firstNonEmpty(styleHint, cfg.Translation.StyleHint),
				Voice:        cfg.Narration.Voice,
				Logger:       logger,
			}
			opts.Primary, opts.Secondary = translation.FromConfig(cfg.Translation, cfg.MergeCredentials(config.Credentials{}))
			if opts.Primary == nil && opts.Secondary == nil {
				return errors.New("no translator configured; set translation.api_key or translation.fallback_url")
			}
			if cfg.Translation.MemoEnabled && !noMemo {
				memo, err := store.Open(cfg)
				if err != nil {
					return fmt.Errorf("open translation memo: %w", err)
				}
				defer memo.Close()
				opts.Memo = memo
			}

			progress := newProgressPrinter(cmd.ErrOrStderr(), "Translating")
			result, err := translation.NewPipeline(opts).TranslateAll(cmd.Context(), merged, progress.update)
			progress.done()
			if err != nil {
				return err
			}

			if asJSON {
				failures := result.Failures
				if failures == nil {
					failures = []translation.Failure{}
				}
				return writeJSON(cmd, translateReport{
					Source:    input.label(),
					Target:    locale,
					Cues:      result.Cues,
					Failures:  failures,
					Fallbacks: result.Fallbacks,
					MemoHits:  result.MemoHits,
				})
			}

			rows := make([][]string, 0, len(result.Cues))
			for i, c := range result.Cues {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					formatSeconds(c.Start),
					formatSeconds(c.End()),
					fmt.Sprintf("x%.2f", c.BaseRate),
					c.Text,
					c.TranslatedText,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]column{
				rightColumn("#"),
				rightColumn("Start"),
				rightColumn("End"),
				rightColumn("Rate"),
				textColumn("Original", sideBySideWidth),
				textColumn(language.DisplayName(locale), sideBySideWidth),
			}, rows))
			fmt.Fprintf(out, "%d cue(s), %d fallback(s), %d memo hit(s), %d untranslated\n",
				len(result.Cues), result.Fallbacks, result.MemoHits, len(result.Failures))
			return nil
		},
	}
	input.register(cmd)
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target locale (defaults to translation.target_language)")
	cmd.Flags().StringVar(&styleHint, "style", "", "Style hint passed to the translator")
	cmd.Flags().BoolVar(&noMemo, "no-memo", false, "Bypass the translation memo")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write narrated cues as JSON")
	return cmd
}

func resolveTarget(cfg *config.Config, flag string) (string, error) {
	raw := firstNonEmpty(flag, cfg.Translation.TargetLanguage)
	locale := language.Normalize(raw)
	if locale == "" {
		return "", fmt.Errorf("unknown target locale %q", raw)
	}
	return locale, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
