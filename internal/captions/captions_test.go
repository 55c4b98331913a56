package captions

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"dubsync/internal/config"
	"dubsync/internal/cues"
	"dubsync/internal/testsupport"
)

func TestParseTimedText(t *testing.T) {
	raw, err := Parse([]byte(testsupport.TimedTextSample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []cues.RawCue{
		{Start: 0, Duration: 1, Text: "Hello"},
		{Start: 1.1, Duration: 1, Text: "world."},
		{Start: 3, Duration: 1.5, Text: "It's a test"},
	}
	if len(raw) != len(want) {
		t.Fatalf("expected %d cues, got %d: %+v", len(want), len(raw), raw)
	}
	for i := range want {
		if raw[i] != want[i] {
			t.Fatalf("cue %d = %+v, want %+v", i, raw[i], want[i])
		}
	}
}

func TestParseTimedTextFormat3(t *testing.T) {
	payload := `<timedtext format="3"><body>
<p t="1500" d="2000">Line one<br/>continues</p>
<p t="4000" d="500"><s>word</s><s> by word</s></p>
<p t="5000" d="500">   </p>
</body></timedtext>`
	raw, err := ParseTimedText([]byte(payload))
	if err != nil {
		t.Fatalf("ParseTimedText: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("expected 2 cues (blank skipped), got %+v", raw)
	}
	if raw[0] != (cues.RawCue{Start: 1.5, Duration: 2, Text: "Line one continues"}) {
		t.Fatalf("unexpected first cue %+v", raw[0])
	}
	if raw[1].Text != "word by word" {
		t.Fatalf("nested spans not joined: %q", raw[1].Text)
	}
}

func TestParseJSON3(t *testing.T) {
	payload := `{"events":[
		{"tStartMs":0,"dDurationMs":120000,"id":1},
		{"tStartMs":250,"dDurationMs":1500,"segs":[{"utf8":"Hello"},{"utf8":" there"}]},
		{"tStartMs":1800,"dDurationMs":900,"segs":[{"utf8":"\n"}]},
		{"tStartMs":2000,"dDurationMs":1000,"segs":[{"utf8":"Tom &amp; Jerry"}]}
	]}`
	raw, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("expected 2 cues, got %+v", raw)
	}
	if raw[0] != (cues.RawCue{Start: 0.25, Duration: 1.5, Text: "Hello there"}) {
		t.Fatalf("unexpected first cue %+v", raw[0])
	}
	if raw[1].Text != "Tom & Jerry" {
		t.Fatalf("entities not decoded: %q", raw[1].Text)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		malformed bool
	}{
		{name: "empty", payload: "  \n"},
		{name: "no cues", payload: "<transcript></transcript>"},
		{name: "bad start", payload: `<transcript><text start="abc" dur="1">x</text></transcript>`, malformed: true},
		{name: "negative dur", payload: `<transcript><text start="1" dur="-1">x</text></transcript>`, malformed: true},
		{name: "bad json", payload: `{"events": [`, malformed: true},
		{name: "unknown", payload: "WEBVTT", malformed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.payload))
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
			if got := errors.Is(err, ErrMalformed); got != tt.malformed {
				t.Fatalf("malformed = %v, want %v (%v)", got, tt.malformed, err)
			}
		})
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "abc123.xml"), testsupport.TimedTextSample)
	testsupport.WriteFile(t, filepath.Join(dir, "json-only.json3"), `{"events":[{"tStartMs":0,"dDurationMs":1000,"segs":[{"utf8":"Hi"}]}]}`)

	src := FileSource{Dir: dir}
	raw, err := src.Fetch(context.Background(), "abc123")
	if err != nil || len(raw) != 3 {
		t.Fatalf("expected 3 cues, got %d err=%v", len(raw), err)
	}
	raw, err = src.Fetch(context.Background(), "json-only")
	if err != nil || len(raw) != 1 {
		t.Fatalf("expected json3 fallback, got %d err=%v", len(raw), err)
	}
	if _, err := src.Fetch(context.Background(), "missing"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := src.Fetch(context.Background(), "../etc"); err == nil || errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHTTPSource(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		switch r.URL.Query().Get("v") {
		case "missing":
			http.NotFound(w, r)
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(testsupport.TimedTextSample))
		}
	}))
	defer server.Close()

	src := HTTPSource{Template: server.URL + "/api/timedtext?v={video_id}&lang={lang}", Language: "en"}
	raw, err := src.Fetch(context.Background(), "abc 123")
	if err != nil || len(raw) != 3 {
		t.Fatalf("expected 3 cues, got %d err=%v", len(raw), err)
	}
	if gotPath != "/api/timedtext" || gotQuery != "v=abc+123&lang=en" {
		t.Fatalf("unexpected request %s?%s", gotPath, gotQuery)
	}
	for _, id := range []string{"missing", "broken"} {
		if _, err := src.Fetch(context.Background(), id); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("%s: expected ErrUnavailable, got %v", id, err)
		}
	}
}

func TestChainSourceFallsThrough(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "vid.xml"), testsupport.TimedTextSample)
	chain := FromConfig(config.Captions{Dir: t.TempDir()})
	chain = append(chain, FileSource{Dir: dir})

	raw, err := chain.Fetch(context.Background(), "vid")
	if err != nil || len(raw) != 3 {
		t.Fatalf("expected second source to answer, got %d err=%v", len(raw), err)
	}
	if _, err := (ChainSource{}).Fetch(context.Background(), "vid"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("empty chain should be unavailable, got %v", err)
	}
}

func TestChainSourceStopsOnMalformed(t *testing.T) {
	bad := t.TempDir()
	good := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(bad, "vid.xml"), `<transcript><text start="x">a</text></transcript>`)
	testsupport.WriteFile(t, filepath.Join(good, "vid.xml"), testsupport.TimedTextSample)

	_, err := ChainSource{FileSource{Dir: bad}, FileSource{Dir: good}}.Fetch(context.Background(), "vid")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestStaticSource(t *testing.T) {
	if _, err := (StaticSource{}).Fetch(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	raw, err := StaticSource{{Start: 1, Duration: 1, Text: "a"}}.Fetch(context.Background(), "x")
	if err != nil || len(raw) != 1 {
		t.Fatalf("unexpected %v %v", raw, err)
	}
}

func TestTimedTextWithoutDurationIsDropped(t *testing.T) {
	payload := `<transcript>
<text start="1">no duration</text>
<text start="2" dur="0">zero</text>
<text start="3" dur="1.5">kept</text>
</transcript>`
	raw, err := ParseTimedText([]byte(payload))
	if err != nil {
		t.Fatalf("ParseTimedText: %v", err)
	}
	if len(raw) != 1 || raw[0] != (cues.RawCue{Start: 3, Duration: 1.5, Text: "kept"}) {
		t.Fatalf("expected only the timed cue, got %+v", raw)
	}

	_, err = Parse([]byte(`<transcript><text start="1">only</text></transcript>`))
	if !errors.Is(err, ErrUnavailable) || errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrUnavailable for a track without timed cues, got %v", err)
	}
}

func TestParseJSON3DropsZeroDuration(t *testing.T) {
	payload := `{"events":[
		{"tStartMs":2000,"dDurationMs":1000,"segs":[{"utf8":"second"}]},
		{"tStartMs":500,"segs":[{"utf8":"untimed"}]},
		{"tStartMs":1000,"dDurationMs":500,"segs":[{"utf8":"first"}]}
	]}`
	raw, err := ParseJSON3([]byte(payload))
	if err != nil {
		t.Fatalf("ParseJSON3: %v", err)
	}
	if len(raw) != 2 || raw[0].Text != "first" || raw[1].Text != "second" {
		t.Fatalf("expected two cues ordered by start, got %+v", raw)
	}
}

func TestStaticSourceFiltersInvalidRanges(t *testing.T) {
	src := StaticSource{
		{Start: 5, Duration: 1, Text: "later"},
		{Start: 5, Duration: -2, Text: "backwards"},
		{Start: -1, Duration: 1, Text: "before zero"},
		{Start: 2, Duration: 0, Text: "instant"},
		{Start: 1, Duration: 1, Text: "sooner"},
	}
	raw, err := src.Fetch(context.Background(), "x")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []cues.RawCue{
		{Start: 1, Duration: 1, Text: "sooner"},
		{Start: 5, Duration: 1, Text: "later"},
	}
	if len(raw) != len(want) || raw[0] != want[0] || raw[1] != want[1] {
		t.Fatalf("got %+v, want %+v", raw, want)
	}
	for _, cue := range raw {
		if !cue.Valid() {
			t.Fatalf("invalid cue returned: %+v", cue)
		}
	}
	if src[0].Text != "later" {
		t.Fatal("Fetch reordered the caller's slice")
	}

	_, err = StaticSource{{Start: 5, Duration: -2, Text: "backwards"}}.Fetch(context.Background(), "x")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable when nothing is usable, got %v", err)
	}
}
