package captions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dubsync/internal/config"
	"dubsync/internal/cues"
	"dubsync/internal/services"
)

// Source loads the raw caption fragments for a video.
type Source interface {
	Fetch(ctx context.Context, videoID string) ([]cues.RawCue, error)
}

// StaticSource serves cues handed over directly, for example in a control
// API request.
type StaticSource []cues.RawCue

// Fetch returns the valid cues ordered by start. Cues without a positive
// duration or with a negative start are dropped.
func (s StaticSource) Fetch(context.Context, string) ([]cues.RawCue, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: no cues supplied", ErrUnavailable)
	}
	out := usable(s)
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: none of the %d supplied cues has a valid time range", ErrUnavailable, len(s))
	}
	return out, nil
}

// fileExtensions are tried in order for <dir>/<video_id><ext>.
var fileExtensions = []string{".xml", ".srv3", ".json3", ".json"}

// FileSource reads caption files from a directory.
type FileSource struct {
	Dir string
}

// Fetch loads the first <Dir>/<videoID>.{xml,srv3,json3,json} that exists.
func (s FileSource) Fetch(ctx context.Context, videoID string) ([]cues.RawCue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	videoID = strings.TrimSpace(videoID)
	if videoID == "" || strings.ContainsAny(videoID, `/\`) {
		return nil, services.Wrap(services.ErrValidation, "captions", "file", fmt.Sprintf("invalid video id %q", videoID), nil)
	}
	if strings.TrimSpace(s.Dir) == "" {
		return nil, fmt.Errorf("%w: caption directory not configured", ErrUnavailable)
	}
	for _, ext := range fileExtensions {
		path := filepath.Join(s.Dir, videoID+ext)
		raw, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return raw, err
	}
	return nil, fmt.Errorf("%w: no caption file for %s in %s", ErrUnavailable, videoID, s.Dir)
}

// LoadFile parses the caption file at path.
func LoadFile(path string) ([]cues.RawCue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read captions %s: %w", path, err)
	}
	raw, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return raw, nil
}

const (
	defaultHTTPTimeout = 15 * time.Second
	maxCaptionBytes    = 8 << 20
)

// HTTPSource downloads captions from a URL template. {video_id} and {lang}
// are replaced with query-escaped values.
type HTTPSource struct {
	Template string
	Language string
	Client   *http.Client
}

// URL expands the template for videoID.
func (s HTTPSource) URL(videoID string) string {
	return strings.NewReplacer(
		"{video_id}", url.QueryEscape(strings.TrimSpace(videoID)),
		"{lang}", url.QueryEscape(strings.TrimSpace(s.Language)),
	).Replace(s.Template)
}

func (s HTTPSource) Fetch(ctx context.Context, videoID string) ([]cues.RawCue, error) {
	if strings.TrimSpace(s.Template) == "" {
		return nil, fmt.Errorf("%w: caption url template not configured", ErrUnavailable)
	}
	if strings.TrimSpace(videoID) == "" {
		return nil, services.Wrap(services.ErrValidation, "captions", "http", "video id required", nil)
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(videoID), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "captions", "http", "build request", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, services.Wrap(services.ErrTransient, "captions", "http", "request failed", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: no captions for %s", ErrUnavailable, videoID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable,
			services.Wrap(services.ErrExternalTool, "captions", "http", fmt.Sprintf("status %d", resp.StatusCode), nil))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCaptionBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	return Parse(data)
}

// ChainSource tries each source in turn and returns the first track found.
// Errors other than ErrUnavailable stop the chain.
type ChainSource []Source

func (c ChainSource) Fetch(ctx context.Context, videoID string) ([]cues.RawCue, error) {
	var errs []error
	for _, src := range c {
		raw, err := src.Fetch(ctx, videoID)
		if err == nil {
			return raw, nil
		}
		if !errors.Is(err, ErrUnavailable) || errors.Is(err, ErrMalformed) {
			return nil, err
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no caption source configured", ErrUnavailable)
	}
	return nil, errors.Join(errs...)
}

// FromConfig builds the configured sources: the caption directory first,
// then the URL template.
func FromConfig(cfg config.Captions) ChainSource {
	var chain ChainSource
	if strings.TrimSpace(cfg.Dir) != "" {
		chain = append(chain, FileSource{Dir: cfg.Dir})
	}
	if strings.TrimSpace(cfg.URLTemplate) != "" {
		chain = append(chain, HTTPSource{Template: cfg.URLTemplate, Language: cfg.Language})
	}
	return chain
}
