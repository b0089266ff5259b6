// Package analysis runs contract review tasks against a language model and
// turns its loosely formatted output into typed results.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// MaxTextRunes caps how much contract text is sent with each prompt.
const MaxTextRunes = 12000

var ErrNoText = errors.New("no contract text provided")

// ValidateText rejects input too short to be a contract.
func ValidateText(text string) error {
	if len(strings.TrimSpace(text)) < 10 {
		return ErrNoText
	}
	return nil
}

type Analyzer struct {
	gen        Generator
	limiter    *rate.Limiter
	maxRetries uint64
	backoff    time.Duration
	logger     *slog.Logger
}

type Option func(*Analyzer)

// WithRateLimit throttles outbound model calls.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(a *Analyzer) {
		a.limiter = rate.NewLimiter(r, burst)
	}
}

func WithRetry(maxRetries uint64, backoff time.Duration) Option {
	return func(a *Analyzer) {
		a.maxRetries = maxRetries
		a.backoff = backoff
	}
}

func NewAnalyzer(gen Generator, logger *slog.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		gen:        gen,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5),
		maxRetries: 2,
		backoff:    time.Second,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func capText(text string) string {
	if utf8.RuneCountInString(text) <= MaxTextRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxTextRunes])
}

func (a *Analyzer) call(ctx context.Context, system, prompt string) (string, error) {
	var out string
	b := retry.WithMaxRetries(a.maxRetries, retry.NewExponential(a.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}
		text, err := a.gen.Generate(ctx, system, prompt)
		if err != nil {
			if errors.Is(err, ErrUnavailable) || ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		out = text
		return nil
	})
	return out, err
}

func structured[T any](ctx context.Context, a *Analyzer, task, prompt string, fallback func() T) (T, Result) {
	raw, err := a.call(ctx, systemJSON, prompt)
	if err != nil {
		a.logger.Warn("model call failed", "task", task, "error", err)
		return fallback(), Result{Outcome: OutcomeCallError, Error: err.Error()}
	}

	var v T
	outcome, err := Decode(raw, &v)
	if err != nil {
		a.logger.Warn("unparseable model output", "task", task, "error", err, "raw", raw)
		return fallback(), Result{Outcome: OutcomeParseError, Error: err.Error()}
	}
	if outcome == OutcomeRepaired {
		a.logger.Debug("repaired model output", "task", task)
	}
	return v, Result{Outcome: outcome}
}

func (a *Analyzer) Score(ctx context.Context, text string) (Score, Result) {
	return structured(ctx, a, "score", scorePrompt(capText(text)), fallbackScore)
}

func (a *Analyzer) RisksAndOpportunities(ctx context.Context, text string) (RisksAndOpportunities, Result) {
	return structured(ctx, a, "risks", risksPrompt(capText(text)), fallbackRisks)
}

func (a *Analyzer) Clauses(ctx context.Context, text string) (Clauses, Result) {
	return structured(ctx, a, "clauses", clausesPrompt(capText(text)), fallbackClauses)
}

func (a *Analyzer) ClauseQuery(ctx context.Context, text, query string) (ClauseAnswer, Result) {
	return structured(ctx, a, "clause_query", clauseQueryPrompt(capText(text), query), fallbackClauseAnswer)
}

func (a *Analyzer) KeyTerms(ctx context.Context, text string) (KeyTerms, Result) {
	return structured(ctx, a, "key_terms", keyTermsPrompt(capText(text)), fallbackKeyTerms)
}

func (a *Analyzer) Summary(ctx context.Context, text string) (Summary, Result) {
	return structured(ctx, a, "summary", summaryPrompt(capText(text)), fallbackSummary)
}

// Full runs every structured task concurrently.
func (a *Analyzer) Full(ctx context.Context, text string) Full {
	var (
		f       Full
		results [5]Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { f.Score, results[0] = a.Score(gctx, text); return nil })
	g.Go(func() error { f.Risks, results[1] = a.RisksAndOpportunities(gctx, text); return nil })
	g.Go(func() error { f.Clauses, results[2] = a.Clauses(gctx, text); return nil })
	g.Go(func() error { f.KeyTerms, results[3] = a.KeyTerms(gctx, text); return nil })
	g.Go(func() error { f.Summary, results[4] = a.Summary(gctx, text); return nil })
	_ = g.Wait()

	f.Results = map[string]Result{
		"score":     results[0],
		"risks":     results[1],
		"clauses":   results[2],
		"key_terms": results[3],
		"summary":   results[4],
	}
	return f
}

// Ask answers a free-form question about the contract.
func (a *Analyzer) Ask(ctx context.Context, text, question string) (string, Result) {
	out, err := a.call(ctx, systemText, askPrompt(capText(text), question))
	if err != nil {
		a.logger.Warn("model call failed", "task", "ask", "error", err)
		return fallbackAnswer, Result{Outcome: OutcomeCallError, Error: err.Error()}
	}
	return strings.TrimSpace(out), Result{Outcome: OutcomeOK}
}

// GenerateContract drafts a contract of the given type from free-form details.
func (a *Analyzer) GenerateContract(ctx context.Context, contractType, details string) (string, Result) {
	if strings.TrimSpace(contractType) == "" {
		return fallbackContract, Result{Outcome: OutcomeCallError, Error: "contract type is required"}
	}
	out, err := a.call(ctx, systemText, generatePrompt(contractType, capText(details)))
	if err != nil {
		a.logger.Warn("model call failed", "task", "generate", "error", err)
		return fallbackContract, Result{Outcome: OutcomeCallError, Error: fmt.Sprintf("generate contract: %v", err)}
	}
	return strings.TrimSpace(out), Result{Outcome: OutcomeOK}
}
