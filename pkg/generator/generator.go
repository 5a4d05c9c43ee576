// Package generator turns one week chunk into generated training text by
// prompting the text-completion backend, bounded by a per-call timeout.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tiktoken-go/tokenizer"

	"trainplan/pkg/llm"
	"trainplan/pkg/llm/llmerrors"
	"trainplan/pkg/logx"
)

// FailureKind distinguishes generation failures the boundary reports differently.
type FailureKind string

const (
	// KindTimeout means the backend call exceeded the generation timeout.
	KindTimeout FailureKind = "timeout"
	// KindBackend means the backend returned an error or malformed response.
	KindBackend FailureKind = "backend-error"
)

// GenerationError is the single expected failure mode of one week step.
// The client may re-attempt the same week; nothing here auto-retries.
type GenerationError struct {
	Kind FailureKind
	Week int
	Err  error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("week %d generation failed (%s): %v", e.Week, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// DefaultTimeout bounds one backend call. Generation latency is on the order
// of seconds; anything past this is reported as a timeout failure.
const DefaultTimeout = 25 * time.Second

// Recorder receives per-call observations. Implemented by pkg/metrics.
type Recorder interface {
	ObserveGeneration(model string, promptTokens, completionTokens int, success bool, errorKind string, duration time.Duration)
}

// NopRecorder discards all observations.
type NopRecorder struct{}

// ObserveGeneration implements Recorder.
func (NopRecorder) ObserveGeneration(string, int, int, bool, string, time.Duration) {}

// Generator builds week prompts and calls the text-generation backend.
type Generator struct {
	client   llm.Client
	timeout  time.Duration
	codec    tokenizer.Codec
	recorder Recorder
	logger   *logx.Logger
}

// New creates a Generator. timeout <= 0 selects DefaultTimeout; a nil recorder
// disables metrics.
func New(client llm.Client, timeout time.Duration, recorder Recorder) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}

	// Claude and Gemini tokenize similarly enough; GPT-4 encoding is the
	// common approximation for accounting purposes.
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		codec = nil // fall back to character estimation
	}

	return &Generator{
		client:   client,
		timeout:  timeout,
		codec:    codec,
		recorder: recorder,
		logger:   logx.NewLogger("generator"),
	}
}

// countTokens returns the token count for text, estimating when no codec is available.
func (g *Generator) countTokens(text string) int {
	if g.codec == nil {
		return len(text) / 4 // 4 chars ≈ 1 token
	}
	count, err := g.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// GenerateWeek produces the training text for one week chunk. An empty result
// is permitted (degenerate but non-fatal) when the backend returns no content.
// All failures are reported as *GenerationError.
func (g *Generator) GenerateWeek(ctx context.Context, in WeekInput) (string, error) {
	userPrompt := buildPrompt(in)

	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: userPrompt},
		},
		MaxTokens:   llm.DefaultMaxTokens,
		Temperature: llm.TemperatureDefault,
	}

	promptTokens := g.countTokens(systemPrompt + userPrompt)
	g.logger.Debug("generating week %d/%d (%s - %s), ~%d prompt tokens",
		in.Week, in.TotalWeeks,
		in.ChunkStart.Format("2006-01-02"), in.ChunkEnd.Format("2006-01-02"),
		promptTokens)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Complete(callCtx, req)
	elapsed := time.Since(start)

	if err != nil {
		genErr := &GenerationError{Kind: classifyFailure(callCtx, err), Week: in.Week, Err: err}
		g.recorder.ObserveGeneration(g.client.GetModelName(), promptTokens, 0, false, string(genErr.Kind), elapsed)
		g.logger.Warn("week %d generation failed after %v: %v", in.Week, elapsed, err)
		return "", genErr
	}

	completionTokens := g.countTokens(resp.Content)
	g.recorder.ObserveGeneration(g.client.GetModelName(), promptTokens, completionTokens, true, "", elapsed)
	g.logger.Info("week %d/%d generated in %v (~%d completion tokens)",
		in.Week, in.TotalWeeks, elapsed, completionTokens)

	return resp.Content, nil
}

// classifyFailure decides the failure sub-kind so the boundary can return a
// distinct status code for timeouts.
func classifyFailure(ctx context.Context, err error) FailureKind {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTimeout
	}
	if llmerrors.Is(err, llmerrors.ErrorTypeTimeout) {
		return KindTimeout
	}
	return KindBackend
}
