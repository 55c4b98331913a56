package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dubsync/internal/language"
	"dubsync/internal/services"
)

var (
	// ErrTranslationFailure marks a primary translator failure that was
	// handed to the secondary translator.
	ErrTranslationFailure = errors.New("translation failure")
	// ErrUnrecoverable marks a cue that both translators failed on; the
	// original text is narrated instead.
	ErrUnrecoverable = errors.New("translation unrecoverable")
)

// TextRequest is a single text to translate.
type TextRequest struct {
	Text         string
	SourceLocale string
	TargetLocale string
	StyleHint    string
}

// Translator turns one text into the target language.
type Translator interface {
	Name() string
	Translate(ctx context.Context, req TextRequest) (string, error)
}

// Completer is the chat capability LLMTranslator needs; *llm.Client
// satisfies it.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMTranslator translates through a chat completion model.
type LLMTranslator struct {
	client Completer
}

// NewLLMTranslator wraps client.
func NewLLMTranslator(client Completer) *LLMTranslator {
	return &LLMTranslator{client: client}
}

func (t *LLMTranslator) Name() string { return "llm" }

func (t *LLMTranslator) Translate(ctx context.Context, req TextRequest) (string, error) {
	out, err := t.client.Complete(ctx, SystemPrompt(req), req.Text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// SystemPrompt builds the fixed interpreter instruction for req.
func SystemPrompt(req TextRequest) string {
	target := language.DisplayName(req.TargetLocale)
	var b strings.Builder
	b.WriteString("You are a professional simultaneous interpreter working on video captions. ")
	if source := strings.TrimSpace(req.SourceLocale); source != "" {
		fmt.Fprintf(&b, "Translate the user's text from %s into concise, fluent %s. ", language.DisplayName(source), target)
	} else {
		fmt.Fprintf(&b, "Translate the user's text into concise, fluent %s. ", target)
	}
	fmt.Fprintf(&b, "Match the speaker's register, keep each sentence within 20 words or characters, and use natural %s word order. ", target)
	b.WriteString("The text may be a fragment of a longer sentence; translate it as spoken without completing it. ")
	b.WriteString("Reply with the translation only, without quotes, notes or explanations.")
	if hint := strings.TrimSpace(req.StyleHint); hint != "" {
		b.WriteString("\nContext: ")
		b.WriteString(hint)
	}
	return b.String()
}

// DeepLXClient is the capability DeepLXTranslator needs; *deeplx.Client
// satisfies it.
type DeepLXClient interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// DeepLXTranslator is the secondary translator. It ignores style hints.
type DeepLXTranslator struct {
	client DeepLXClient
}

// NewDeepLXTranslator wraps client.
func NewDeepLXTranslator(client DeepLXClient) *DeepLXTranslator {
	return &DeepLXTranslator{client: client}
}

func (t *DeepLXTranslator) Name() string { return "deeplx" }

func (t *DeepLXTranslator) Translate(ctx context.Context, req TextRequest) (string, error) {
	source := language.DeepLXCode(req.SourceLocale)
	if source == "" {
		source = "EN"
	}
	target := language.DeepLXCode(req.TargetLocale)
	if target == "" {
		return "", services.Wrap(services.ErrValidation, "translation", "deeplx", "target locale required", nil)
	}
	out, err := t.client.Translate(ctx, req.Text, source, target)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
