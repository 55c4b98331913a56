package cues

import (
	"math"
	"reflect"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func assertCues(t *testing.T, got, want []Cue) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d cues, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if !approx(got[i].Start, want[i].Start) || !approx(got[i].Duration, want[i].Duration) || got[i].Text != want[i].Text {
			t.Fatalf("cue %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMergeHelloWorldScenario(t *testing.T) {
	raw := []RawCue{
		{Start: 0, Duration: 1, Text: "Hello"},
		{Start: 1.1, Duration: 1, Text: "world"},
		{Start: 2.5, Duration: 1, Text: "Next."},
	}
	assertCues(t, Merge(raw), []Cue{
		{Start: 0, Duration: 2.1, Text: "Hello world"},
		{Start: 2.5, Duration: 1, Text: "Next."},
	})
}

func TestMergeBoundaries(t *testing.T) {
	tests := []struct {
		name string
		raw  []RawCue
		want []Cue
	}{
		{
			name: "gap 0.19 combined 3.9 merges",
			raw:  []RawCue{{Start: 0, Duration: 2, Text: "so the"}, {Start: 2.19, Duration: 1.71, Text: "answer is"}},
			want: []Cue{{Start: 0, Duration: 3.9, Text: "so the answer is"}},
		},
		{
			name: "combined 4.1 does not merge",
			raw:  []RawCue{{Start: 0, Duration: 2, Text: "so the"}, {Start: 2.19, Duration: 1.91, Text: "answer is"}},
			want: []Cue{{Start: 0, Duration: 2, Text: "so the"}, {Start: 2.19, Duration: 1.91, Text: "answer is"}},
		},
		{
			name: "gap 0.2 does not merge",
			raw:  []RawCue{{Start: 0, Duration: 1, Text: "a"}, {Start: 1.2, Duration: 1, Text: "b"}},
			want: []Cue{{Start: 0, Duration: 1, Text: "a"}, {Start: 1.2, Duration: 1, Text: "b"}},
		},
		{
			name: "combined exactly 4 merges",
			raw:  []RawCue{{Start: 0, Duration: 2, Text: "a"}, {Start: 2, Duration: 2, Text: "b"}},
			want: []Cue{{Start: 0, Duration: 4, Text: "a b"}},
		},
		{
			name: "terminal punctuation blocks merge",
			raw:  []RawCue{{Start: 0, Duration: 1, Text: "Done."}, {Start: 1, Duration: 1, Text: "Next"}},
			want: []Cue{{Start: 0, Duration: 1, Text: "Done."}, {Start: 1, Duration: 1, Text: "Next"}},
		},
		{
			name: "full-width terminator blocks merge",
			raw:  []RawCue{{Start: 0, Duration: 1, Text: "好的！"}, {Start: 1, Duration: 1, Text: "然后"}},
			want: []Cue{{Start: 0, Duration: 1, Text: "好的！"}, {Start: 1, Duration: 1, Text: "然后"}},
		},
		{
			name: "comma does not block merge",
			raw:  []RawCue{{Start: 0, Duration: 1, Text: "well,"}, {Start: 1, Duration: 1, Text: "yes"}},
			want: []Cue{{Start: 0, Duration: 2, Text: "well, yes"}},
		},
		{
			name: "chain merges until ceiling",
			raw: []RawCue{
				{Start: 0, Duration: 1.5, Text: "one"},
				{Start: 1.5, Duration: 1.5, Text: "two"},
				{Start: 3, Duration: 1.5, Text: "three"},
			},
			want: []Cue{{Start: 0, Duration: 3, Text: "one two"}, {Start: 3, Duration: 1.5, Text: "three"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCues(t, Merge(tt.raw), tt.want)
		})
	}
}

func TestMergeEmptyAndSingle(t *testing.T) {
	if got := Merge(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	got := Merge([]RawCue{{Start: 3, Duration: 0.5, Text: "solo"}})
	assertCues(t, got, []Cue{{Start: 3, Duration: 0.5, Text: "solo"}})
}

func TestMergeIsIdempotent(t *testing.T) {
	raw := []RawCue{
		{Start: 0, Duration: 0.8, Text: "we start"},
		{Start: 0.85, Duration: 0.9, Text: "with the"},
		{Start: 1.8, Duration: 1.2, Text: "basics."},
		{Start: 3.05, Duration: 1.5, Text: "first"},
		{Start: 4.6, Duration: 1.5, Text: "a long"},
		{Start: 6.15, Duration: 1.5, Text: "phrase"},
		{Start: 7.7, Duration: 1.5, Text: "that keeps going"},
		{Start: 10, Duration: 1, Text: "after a pause"},
	}
	once := Merge(raw)
	again := make([]RawCue, len(once))
	for i, c := range once {
		again[i] = RawCue(c)
	}
	twice := Merge(again)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("re-merge changed output:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMergerUsesCustomThresholds(t *testing.T) {
	m := Merger{MaxGap: 0.5, MaxDuration: 10, Terminators: "."}
	raw := []RawCue{{Start: 0, Duration: 1, Text: "a!"}, {Start: 1.4, Duration: 1, Text: "b"}}
	assertCues(t, m.Merge(raw), []Cue{{Start: 0, Duration: 2.4, Text: "a! b"}})
}

func TestLookupUsesClosedInterval(t *testing.T) {
	list := []NarratedCue{
		{Cue: Cue{Start: 0, Duration: 2, Text: "a"}},
		{Cue: Cue{Start: 3, Duration: 1, Text: "b"}},
	}
	tests := []struct {
		position float64
		want     int
	}{
		{0, 0},
		{2, 0},
		{2.5, -1},
		{3, 1},
		{4, 1},
		{4.01, -1},
		{-1, -1},
	}
	for _, tt := range tests {
		if got := Lookup(list, tt.position); got != tt.want {
			t.Fatalf("Lookup(%v) = %d, want %d", tt.position, got, tt.want)
		}
	}
}

func TestEndsPhraseIgnoresTrailingSpace(t *testing.T) {
	m := DefaultMerger().withDefaults()
	for text, want := range map[string]bool{
		"Done.  ":   true,
		"Really?\n": true,
		"and then":  false,
		"   ":       false,
	} {
		if got := m.endsPhrase(text); got != want {
			t.Fatalf("endsPhrase(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestRawCueValid(t *testing.T) {
	tests := []struct {
		cue  RawCue
		want bool
	}{
		{RawCue{Start: 0, Duration: 1}, true},
		{RawCue{Start: 1, Duration: 0}, false},
		{RawCue{Start: 5, Duration: -2}, false},
		{RawCue{Start: -0.5, Duration: 1}, false},
		{RawCue{Start: math.NaN(), Duration: 1}, false},
		{RawCue{Start: 1, Duration: math.Inf(1)}, false},
	}
	for _, tt := range tests {
		if got := tt.cue.Valid(); got != tt.want {
			t.Fatalf("%+v: Valid() = %v, want %v", tt.cue, got, tt.want)
		}
	}
}
