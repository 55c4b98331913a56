package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"dubsync/internal/captions"
	"dubsync/internal/config"
	"dubsync/internal/cues"
)

// cueInput selects a caption track either from a local file or by video id
// through the configured caption sources.
type cueInput struct {
	file    string
	videoID string
}

func (in *cueInput) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&in.file, "file", "f", "", "Caption file (timedtext XML or json3)")
	cmd.Flags().StringVar(&in.videoID, "video", "", "Video id resolved through the configured caption sources")
}

func (in *cueInput) label() string {
	if in.videoID != "" {
		return in.videoID
	}
	return in.file
}

func (in *cueInput) raw(ctx context.Context, cfg *config.Config) ([]cues.RawCue, error) {
	file := strings.TrimSpace(in.file)
	videoID := strings.TrimSpace(in.videoID)
	switch {
	case file != "" && videoID != "":
		return nil, errors.New("use either --file or --video, not both")
	case file != "":
		return captions.LoadFile(file)
	case videoID != "":
		return captions.FromConfig(cfg.Captions).Fetch(ctx, videoID)
	default:
		return nil, errors.New("a caption track is required (--file or --video)")
	}
}

func (in *cueInput) merged(ctx context.Context, cfg *config.Config) ([]cues.Cue, error) {
	raw, err := in.raw(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return cues.MergerFromConfig(cfg.Merge).Merge(raw), nil
}
