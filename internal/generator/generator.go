// Package generator turns a free-text job description into a categorized
// topic mapping by calling a generative-text provider, validating the
// structured payload it returns.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/prepdesk/prepdesk/internal/ai"
)

// Categories the model is asked to sort topics into. Advisory only: the
// normalizer accepts any category key the payload carries.
var categories = []struct {
	Name        string
	Description string
}{
	{"DSA", "Data Structures and Algorithms topics"},
	{"Aptitude", "Aptitude and reasoning topics"},
	{"Development", "Software development, frameworks, and tools"},
	{"Cloud", "Cloud computing concepts and platforms"},
	{"System Design", "System design and architecture principles"},
	{"Core Subjects", "Core computer science subjects like OS, DBMS, Networks"},
}

var (
	// ErrGenerationInFlight is returned when a generation request is already
	// running; the caller must wait for it to finish before resubmitting.
	ErrGenerationInFlight = errors.New("a generation request is already in flight")

	// ErrGenerationFailed wraps provider and payload failures. Distinct from
	// an empty-but-successful mapping.
	ErrGenerationFailed = errors.New("learning path generation failed")
)

// payloadSchema validates the category-to-topic-list mapping the model
// returns: every value must be an array of strings.
var payloadSchema = gojsonschema.NewStringLoader(`{
	"type": "object",
	"additionalProperties": {
		"type": "array",
		"items": {"type": "string"}
	}
}`)

// Completer is the slice of the ai gateway the generator needs.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// ResultCache stores generated mappings keyed by job-description text so
// identical submissions skip the provider call. Optional.
type ResultCache interface {
	Get(ctx context.Context, jobDescription string) (map[string][]string, bool)
	Set(ctx context.Context, jobDescription string, payload map[string][]string)
}

// Generator produces categorized topic mappings from job descriptions.
// A nil completer puts it in offline mode, serving the canned fallback
// payload after a simulated delay.
type Generator struct {
	completer     Completer
	cache         ResultCache
	model         string
	fallbackDelay time.Duration
	inFlight      atomic.Bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithCache attaches a result cache.
func WithCache(cache ResultCache) Option {
	return func(g *Generator) {
		g.cache = cache
	}
}

// WithFallbackDelay overrides the simulated delay of offline mode.
func WithFallbackDelay(d time.Duration) Option {
	return func(g *Generator) {
		g.fallbackDelay = d
	}
}

// WithModel pins the provider model used for generation requests.
func WithModel(model string) Option {
	return func(g *Generator) {
		g.model = model
	}
}

// New creates a Generator. Pass a nil completer for offline mode.
func New(completer Completer, opts ...Option) *Generator {
	g := &Generator{
		completer:     completer,
		fallbackDelay: 1500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Offline reports whether the generator serves the canned fallback payload.
func (g *Generator) Offline() bool {
	return g.completer == nil
}

// Generate returns the categorized topic mapping for the job description.
// Only one generation may run at a time; a concurrent call fails with
// ErrGenerationInFlight without contacting the provider. There is no
// automatic retry: a failed call surfaces and the user resubmits.
func (g *Generator) Generate(ctx context.Context, jobDescription string) (map[string][]string, error) {
	if !g.inFlight.CompareAndSwap(false, true) {
		return nil, ErrGenerationInFlight
	}
	defer g.inFlight.Store(false)

	if g.cache != nil {
		if payload, ok := g.cache.Get(ctx, jobDescription); ok {
			slog.Debug("generation served from cache")
			return payload, nil
		}
	}

	payload, err := g.generate(ctx, jobDescription)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		g.cache.Set(ctx, jobDescription, payload)
	}
	return payload, nil
}

func (g *Generator) generate(ctx context.Context, jobDescription string) (map[string][]string, error) {
	if g.Offline() {
		slog.Info("no AI provider configured, using canned learning path")
		select {
		case <-time.After(g.fallbackDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, ctx.Err())
		}
		return FallbackPayload(), nil
	}

	resp, err := g.completer.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "user", Content: buildPrompt(jobDescription)},
		},
		Model:          g.model,
		ResponseSchema: responseSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	payload, err := parsePayload(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	slog.Info("learning path generated",
		"model", resp.Model,
		"categories", len(payload),
		"tokens", resp.TotalTokens(),
	)
	return payload, nil
}

func buildPrompt(jobDescription string) string {
	var b strings.Builder
	b.WriteString("Analyze the following job description and generate a structured learning path ")
	b.WriteString("for a student preparing for this role. Categorize the topics into the following sections: ")
	for i, c := range categories {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q", c.Name)
	}
	b.WriteString(". Only include relevant topics extracted or inferred from the job description.\n\n")
	b.WriteString("Job Description:\n---\n")
	b.WriteString(jobDescription)
	b.WriteString("\n---\n")
	return b.String()
}

// responseSchema is the schema sent to the provider constraining its output.
func responseSchema() map[string]any {
	props := make(map[string]any, len(categories))
	for _, c := range categories {
		props[c.Name] = map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": c.Description,
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

// parsePayload validates and decodes the model's JSON output. Category keys
// outside the advisory set are accepted; values that are not string arrays
// fail validation.
func parsePayload(content string) (map[string][]string, error) {
	content = strings.TrimSpace(content)

	result, err := gojsonschema.Validate(payloadSchema, gojsonschema.NewStringLoader(content))
	if err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("payload failed schema validation: %s", strings.Join(details, "; "))
	}

	var payload map[string][]string
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}
