package translation_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"dubsync/internal/cues"
	"dubsync/internal/pacing"
	"dubsync/internal/translation"
)

type fakeTranslator struct {
	name  string
	fail  map[string]error
	reply func(string) string
	calls []string
}

func (f *fakeTranslator) Name() string { return f.name }

func (f *fakeTranslator) Translate(_ context.Context, req translation.TextRequest) (string, error) {
	f.calls = append(f.calls, req.Text)
	if err, ok := f.fail[req.Text]; ok {
		return "", err
	}
	if f.reply != nil {
		return f.reply(req.Text), nil
	}
	return f.name + ":" + req.Text, nil
}

type mapMemo struct {
	mu      sync.Mutex
	entries map[translation.MemoKey]string
	engines map[translation.MemoKey]string
}

func newMapMemo() *mapMemo {
	return &mapMemo{entries: map[translation.MemoKey]string{}, engines: map[translation.MemoKey]string{}}
}

func (m *mapMemo) Lookup(_ context.Context, key translation.MemoKey) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.entries[key]
	return text, ok, nil
}

func (m *mapMemo) Save(_ context.Context, key translation.MemoKey, text, engine string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = text
	m.engines[key] = engine
	return nil
}

func sampleCues() []cues.Cue {
	return []cues.Cue{
		{Start: 0, Duration: 2.1, Text: "Hello world"},
		{Start: 2.5, Duration: 1, Text: "Next."},
		{Start: 4, Duration: 3, Text: "And then more"},
	}
}

func TestPrimaryFailureFallsBackToSecondary(t *testing.T) {
	primary := &fakeTranslator{name: "llm", fail: map[string]error{"Next.": errors.New("http 503")}}
	secondary := &fakeTranslator{name: "deeplx"}
	var progress []float64

	p := translation.NewPipeline(translation.Options{
		Primary:      primary,
		Secondary:    secondary,
		Pacer:        pacing.Default(),
		SourceLocale: "en",
		TargetLocale: "zh",
	})
	result, err := p.TranslateAll(context.Background(), sampleCues(), func(f float64) { progress = append(progress, f) })
	if err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}

	want := []string{"llm:Hello world", "deeplx:Next.", "llm:And then more"}
	for i, cue := range result.Cues {
		if cue.TranslatedText != want[i] {
			t.Fatalf("cue %d translated = %q, want %q", i, cue.TranslatedText, want[i])
		}
	}
	if result.Fallbacks != 1 || len(result.Failures) != 0 {
		t.Fatalf("unexpected counters fallbacks=%d failures=%d", result.Fallbacks, len(result.Failures))
	}
	if len(secondary.calls) != 1 || secondary.calls[0] != "Next." {
		t.Fatalf("secondary should only see the failed cue, got %v", secondary.calls)
	}
	if len(progress) != 3 || progress[len(progress)-1] != 1.0 {
		t.Fatalf("expected progress after every cue ending at 1.0, got %v", progress)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Fatalf("progress went backwards: %v", progress)
		}
	}
}

func TestBothTranslatorsFailPassesThroughOriginal(t *testing.T) {
	boom := errors.New("down")
	primary := &fakeTranslator{name: "llm", fail: map[string]error{"Next.": boom}}
	secondary := &fakeTranslator{name: "deeplx", fail: map[string]error{"Next.": boom}}

	p := translation.NewPipeline(translation.Options{Primary: primary, Secondary: secondary, SourceLocale: "en", TargetLocale: "zh"})
	result, err := p.TranslateAll(context.Background(), sampleCues(), nil)
	if err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}
	if len(result.Cues) != 3 {
		t.Fatalf("expected the batch to continue, got %d cues", len(result.Cues))
	}
	passthrough := result.Cues[1]
	if passthrough.TranslatedText != "Next." {
		t.Fatalf("expected original text, got %q", passthrough.TranslatedText)
	}
	if passthrough.Request.Lang != "en-US" {
		t.Fatalf("expected passthrough voiced in the source language, got %q", passthrough.Request.Lang)
	}
	if result.Cues[2].TranslatedText != "llm:And then more" {
		t.Fatalf("subsequent cue not translated: %q", result.Cues[2].TranslatedText)
	}
	if len(result.Failures) != 1 || result.Failures[0].Index != 1 {
		t.Fatalf("expected one failure at index 1, got %+v", result.Failures)
	}
	failure := result.Failures[0].Err
	if !errors.Is(failure, translation.ErrUnrecoverable) || !errors.Is(failure, translation.ErrTranslationFailure) || !errors.Is(failure, boom) {
		t.Fatalf("failure should wrap both markers and the cause, got %v", failure)
	}
}

func TestNarrationRequestUsesBaseRate(t *testing.T) {
	primary := &fakeTranslator{name: "llm", reply: func(string) string { return "  你好世界  " }}
	p := translation.NewPipeline(translation.Options{Primary: primary, Pacer: pacing.Default(), TargetLocale: "zh", Voice: "cmn"})
	result, err := p.TranslateAll(context.Background(), []cues.Cue{{Start: 1, Duration: 0.6, Text: "Hello world"}}, nil)
	if err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}
	cue := result.Cues[0]
	if cue.TranslatedText != "你好世界" {
		t.Fatalf("expected trimmed text, got %q", cue.TranslatedText)
	}
	// 4 characters * 0.3s over 0.6s = 2.0
	if cue.BaseRate != 2.0 || cue.Request.Rate != cue.BaseRate {
		t.Fatalf("unexpected rates base=%v request=%v", cue.BaseRate, cue.Request.Rate)
	}
	req := cue.Request
	if req.Text != "你好世界" || req.Lang != "zh-CN" || req.Voice != "cmn" || req.Pitch != 1 || req.Volume != 1 {
		t.Fatalf("unexpected narration request %+v", req)
	}
	if cue.Cue != (cues.Cue{Start: 1, Duration: 0.6, Text: "Hello world"}) {
		t.Fatalf("source cue not preserved: %+v", cue.Cue)
	}
}

func TestEmptyTranslationCountsAsFailure(t *testing.T) {
	primary := &fakeTranslator{name: "llm", reply: func(string) string { return "   " }}
	secondary := &fakeTranslator{name: "deeplx"}
	p := translation.NewPipeline(translation.Options{Primary: primary, Secondary: secondary, TargetLocale: "zh"})
	result, err := p.TranslateAll(context.Background(), sampleCues()[:1], nil)
	if err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}
	if result.Cues[0].TranslatedText != "deeplx:Hello world" {
		t.Fatalf("expected fallback for empty reply, got %q", result.Cues[0].TranslatedText)
	}
}

func TestMemoShortCircuitsTranslators(t *testing.T) {
	memo := newMapMemo()
	primary := &fakeTranslator{name: "llm"}
	opts := translation.Options{Primary: primary, Memo: memo, SourceLocale: "en", TargetLocale: "zh"}

	if _, err := translation.NewPipeline(opts).TranslateAll(context.Background(), sampleCues(), nil); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if len(primary.calls) != 3 {
		t.Fatalf("expected 3 primary calls, got %d", len(primary.calls))
	}

	result, err := translation.NewPipeline(opts).TranslateAll(context.Background(), sampleCues(), nil)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(primary.calls) != 3 {
		t.Fatalf("memo hits should skip the primary, got %d calls", len(primary.calls))
	}
	if result.MemoHits != 3 || result.Cues[0].TranslatedText != "llm:Hello world" {
		t.Fatalf("unexpected memo result hits=%d first=%q", result.MemoHits, result.Cues[0].TranslatedText)
	}
	key := translation.MemoKey{SourceLocale: "en", TargetLocale: "zh", Text: "Next."}
	if memo.engines[key] != "llm" {
		t.Fatalf("expected engine recorded, got %q", memo.engines[key])
	}
}

func TestPassthroughIsNotMemoised(t *testing.T) {
	memo := newMapMemo()
	primary := &fakeTranslator{name: "llm", fail: map[string]error{"Next.": errors.New("down")}}
	p := translation.NewPipeline(translation.Options{Primary: primary, Memo: memo, TargetLocale: "zh"})
	if _, err := p.TranslateAll(context.Background(), sampleCues(), nil); err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}
	if _, ok := memo.entries[translation.MemoKey{TargetLocale: "zh", Text: "Next."}]; ok {
		t.Fatal("passthrough text must not be memoised")
	}
	if len(memo.entries) != 2 {
		t.Fatalf("expected 2 memo entries, got %d", len(memo.entries))
	}
}

type cancelingTranslator struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancelingTranslator) Name() string { return "llm" }

func (c *cancelingTranslator) Translate(ctx context.Context, req translation.TextRequest) (string, error) {
	c.calls++
	if c.calls == 2 {
		c.cancel()
		return "", ctx.Err()
	}
	return "ok", nil
}

func TestCancellationStopsBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	primary := &cancelingTranslator{cancel: cancel}
	secondary := &fakeTranslator{name: "deeplx"}

	p := translation.NewPipeline(translation.Options{Primary: primary, Secondary: secondary, TargetLocale: "zh"})
	result, err := p.TranslateAll(ctx, sampleCues(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(result.Cues) != 1 {
		t.Fatalf("expected partial result of 1 cue, got %d", len(result.Cues))
	}
	if len(secondary.calls) != 0 {
		t.Fatal("secondary must not run after cancellation")
	}
}

func TestEmptyInputReportsCompletion(t *testing.T) {
	var progress []float64
	p := translation.NewPipeline(translation.Options{TargetLocale: "zh"})
	result, err := p.TranslateAll(context.Background(), nil, func(f float64) { progress = append(progress, f) })
	if err != nil || len(result.Cues) != 0 {
		t.Fatalf("unexpected result %+v err=%v", result, err)
	}
	if len(progress) != 1 || progress[0] != 1 {
		t.Fatalf("expected single completion report, got %v", progress)
	}
}

func TestSystemPromptMentionsTargetAndHint(t *testing.T) {
	prompt := translation.SystemPrompt(translation.TextRequest{SourceLocale: "en", TargetLocale: "zh", StyleHint: "calculus lecture"})
	for _, fragment := range []string{"simultaneous interpreter", "English", "Chinese", "20 words or characters", "calculus lecture"} {
		if !strings.Contains(prompt, fragment) {
			t.Fatalf("prompt missing %q: %s", fragment, prompt)
		}
	}
}
