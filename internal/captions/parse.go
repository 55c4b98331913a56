package captions

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"dubsync/internal/cues"
)

var (
	// ErrUnavailable means the video has no usable caption track.
	ErrUnavailable = errors.New("captions unavailable")
	// ErrMalformed means a caption track was found but could not be parsed.
	// It also matches ErrUnavailable.
	ErrMalformed = fmt.Errorf("%w: malformed caption track", ErrUnavailable)
)

// Format names a caption payload encoding.
type Format string

const (
	FormatTimedText Format = "timedtext"
	FormatJSON3     Format = "json3"
)

// Sniff guesses the payload format from its first significant byte.
func Sniff(data []byte) (Format, bool) {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	if len(trimmed) == 0 {
		return "", false
	}
	switch trimmed[0] {
	case '<':
		return FormatTimedText, true
	case '{':
		return FormatJSON3, true
	default:
		return "", false
	}
}

// Parse decodes a caption payload in any supported format. An empty track
// yields ErrUnavailable.
func Parse(data []byte) ([]cues.RawCue, error) {
	format, ok := Sniff(data)
	if !ok {
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, fmt.Errorf("%w: empty caption payload", ErrUnavailable)
		}
		return nil, fmt.Errorf("%w: unrecognised format", ErrMalformed)
	}
	var (
		raw []cues.RawCue
		err error
	)
	switch format {
	case FormatJSON3:
		raw, err = ParseJSON3(data)
	default:
		raw, err = ParseTimedText(data)
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: caption track has no cues", ErrUnavailable)
	}
	return raw, nil
}

// ParseTimedText decodes the timedtext XML served for video captions. Both
// the classic <text start="s" dur="s"> layout and the format 3 <p t="ms"
// d="ms"> layout are understood. Entities are unescaped twice because the
// service double-encodes apostrophes and ampersands.
func ParseTimedText(data []byte) ([]cues.RawCue, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity

	var (
		out     []cues.RawCue
		current *cues.RawCue
		text    strings.Builder
		depth   int
	)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if current != nil {
				depth++
				if t.Name.Local == "br" {
					text.WriteByte(' ')
				}
				continue
			}
			cue, ok, err := timedTextCue(t)
			if err != nil {
				return nil, err
			}
			if ok {
				current = &cue
				text.Reset()
				depth = 0
			}
		case xml.CharData:
			if current != nil {
				text.Write(t)
			}
		case xml.EndElement:
			if current == nil {
				continue
			}
			if depth > 0 {
				depth--
				continue
			}
			current.Text = cleanText(text.String())
			if current.Text != "" {
				out = append(out, *current)
			}
			current = nil
		}
	}
	return usable(out), nil
}

func timedTextCue(el xml.StartElement) (cues.RawCue, bool, error) {
	attrs := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		attrs[a.Name.Local] = a.Value
	}
	switch el.Name.Local {
	case "text":
		start, err := parseSeconds(attrs["start"], 1)
		if err != nil {
			return cues.RawCue{}, false, err
		}
		dur, err := parseSeconds(attrs["dur"], 1)
		if err != nil {
			return cues.RawCue{}, false, err
		}
		return cues.RawCue{Start: start, Duration: dur}, true, nil
	case "p":
		if _, ok := attrs["t"]; !ok {
			return cues.RawCue{}, false, nil
		}
		start, err := parseSeconds(attrs["t"], 1000)
		if err != nil {
			return cues.RawCue{}, false, err
		}
		dur, err := parseSeconds(attrs["d"], 1000)
		if err != nil {
			return cues.RawCue{}, false, err
		}
		return cues.RawCue{Start: start, Duration: dur}, true, nil
	default:
		return cues.RawCue{}, false, nil
	}
}

// parseSeconds parses value and divides it by scale. A missing duration is
// zero; a negative or non-finite one is malformed.
func parseSeconds(value string, scale float64) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("%w: bad time value %q", ErrMalformed, value)
	}
	return f / scale, nil
}

type json3Payload struct {
	Events []json3Event `json:"events"`
}

type json3Event struct {
	StartMs    *float64       `json:"tStartMs"`
	DurationMs float64        `json:"dDurationMs"`
	Segs       []json3Segment `json:"segs"`
}

type json3Segment struct {
	UTF8 string `json:"utf8"`
}

// ParseJSON3 decodes the json3 caption format. Events without segments
// (window and style declarations) are skipped.
func ParseJSON3(data []byte) ([]cues.RawCue, error) {
	var payload json3Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	out := make([]cues.RawCue, 0, len(payload.Events))
	for _, ev := range payload.Events {
		if ev.StartMs == nil || len(ev.Segs) == 0 {
			continue
		}
		if *ev.StartMs < 0 || ev.DurationMs < 0 {
			return nil, fmt.Errorf("%w: negative event time", ErrMalformed)
		}
		var b strings.Builder
		for _, seg := range ev.Segs {
			b.WriteString(seg.UTF8)
		}
		text := cleanText(b.String())
		if text == "" {
			continue
		}
		out = append(out, cues.RawCue{
			Start:    *ev.StartMs / 1000,
			Duration: ev.DurationMs / 1000,
			Text:     text,
		})
	}
	return usable(out), nil
}

func cleanText(s string) string {
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// usable drops fragments that cannot be placed on the timeline, such as a
// <text> without dur, and orders the rest by start.
func usable(raw []cues.RawCue) []cues.RawCue {
	out := make([]cues.RawCue, 0, len(raw))
	for _, cue := range raw {
		if cue.Valid() {
			out = append(out, cue)
		}
	}
	slices.SortStableFunc(out, func(a, b cues.RawCue) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})
	return out
}
