// Package agents runs the multi-agent generation pipeline: concurrent
// feature generation, a reviewer pass, and bounded regeneration.
package agents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/notewise/notewise-backend/internal/config"
	types "github.com/notewise/notewise-backend/internal/domain"
	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
	"github.com/notewise/notewise-backend/internal/platform/openai"
)

// ProgressFunc receives pipeline checkpoints. Implementations must tolerate
// being called from multiple goroutines.
type ProgressFunc func(stage string, progress int)

const (
	StageGenerating = "generating_content"
	StageReviewing  = "reviewing_content"
)

// Pipeline checkpoints sit between the orchestrator's extraction (below)
// and finalization (above) marks.
const (
	generateStartPct = 40
	reviewPct        = 80
)

type Pipeline interface {
	// Generate produces the study bundle for already-normalized text using
	// the features and model frozen in decision. Disabled features are never
	// generated. onProgress may be nil.
	Generate(ctx context.Context, processedText string, decision types.FeatureDecision, onProgress ProgressFunc) (*types.Bundle, error)
}

type pipeline struct {
	log    *logger.Logger
	client openai.Client
	cfg    *config.Config
}

func NewPipeline(log *logger.Logger, client openai.Client, cfg *config.Config) Pipeline {
	return &pipeline{
		log:    log.With("service", "AgentPipeline"),
		client: client,
		cfg:    cfg,
	}
}

func (p *pipeline) Generate(ctx context.Context, processedText string, decision types.FeatureDecision, onProgress ProgressFunc) (*types.Bundle, error) {
	if decision.EnabledCount() == 0 {
		return nil, fmt.Errorf("%w: no features enabled", apperr.ErrAllFeaturesFailed)
	}
	client := openai.WithModel(p.client, decision.Model)

	emit := func(stage string, pct int) {
		if onProgress != nil {
			onProgress(stage, pct)
		}
	}

	guidance := ""
	maxPasses := 1 + p.cfg.Pipeline.MaxRegenerations
	enabled := decision.EnabledCount()

	var bundle *types.Bundle
	for pass := 0; pass < maxPasses; pass++ {
		emit(StageGenerating, generateStartPct)

		// Each finished feature advances the bar toward the review mark so
		// pollers see movement during long fan-outs.
		b, err := p.generateOnce(ctx, client, processedText, decision, guidance, func(done int) {
			emit(StageGenerating, generateStartPct+done*(reviewPct-generateStartPct-5)/enabled)
		})
		if err != nil {
			return nil, err
		}
		bundle = b

		emit(StageReviewing, reviewPct)

		review, err := p.review(ctx, client, processedText, bundle)
		bundle.Review = review
		if err != nil || review.Valid {
			break
		}

		p.log.Info("reviewer rejected bundle",
			"pass", pass+1,
			"max_passes", maxPasses,
			"notes", review.Notes,
		)
		guidance = review.Notes
	}

	bundle.ProcessedText = processedText
	if bundle.Summaries != nil {
		bundle.Summary = bundle.Summaries.Primary()
	}
	return bundle, nil
}

// generateOnce fans the enabled steps out concurrently and joins them.
// Individual step failure degrades that feature; only a full wipe-out is a
// hard error. onStep is invoked with the number of features settled so far,
// whether each succeeded or degraded.
func (p *pipeline) generateOnce(ctx context.Context, client openai.Client, text string, decision types.FeatureDecision, guidance string, onStep func(done int)) (*types.Bundle, error) {
	bundle := &types.Bundle{}
	var mu sync.Mutex
	failed := 0
	settled := 0

	stepSettled := func() {
		settled++
		if onStep != nil {
			onStep(settled)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if decision.IsEnabled(types.FeatureSummaries) {
		g.Go(func() error {
			s, err := retryStep(gctx, p.cfg, func(c context.Context) (*types.Summaries, error) {
				return generateSummaries(c, client, text, guidance)
			})
			mu.Lock()
			defer mu.Unlock()
			defer stepSettled()
			if err != nil {
				p.log.Warn("summaries step degraded", "error", err.Error())
				failed++
				return nil
			}
			bundle.Summaries = s
			return nil
		})
	}

	if decision.IsEnabled(types.FeatureQuestions) {
		g.Go(func() error {
			qs, err := retryStep(gctx, p.cfg, func(c context.Context) ([]types.QAPair, error) {
				return generateQuestions(c, client, text, guidance)
			})
			mu.Lock()
			defer mu.Unlock()
			defer stepSettled()
			if err != nil {
				p.log.Warn("questions step degraded", "error", err.Error())
				failed++
				return nil
			}
			bundle.Questions = qs
			return nil
		})
	}

	if decision.IsEnabled(types.FeatureMCQs) {
		g.Go(func() error {
			m, err := retryStep(gctx, p.cfg, func(c context.Context) (map[string][]types.MCQItem, error) {
				return generateMCQs(c, client, text, guidance)
			})
			mu.Lock()
			defer mu.Unlock()
			defer stepSettled()
			if err != nil {
				p.log.Warn("mcq step degraded", "error", err.Error())
				failed++
				return nil
			}
			bundle.MCQs = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if failed == decision.EnabledCount() {
		return nil, fmt.Errorf("%w: all %d enabled steps failed", apperr.ErrAllFeaturesFailed, failed)
	}
	return bundle, nil
}

// review runs the reviewer with the same retry budget as generation steps.
// A reviewer outage never sinks an otherwise good bundle.
func (p *pipeline) review(ctx context.Context, client openai.Client, text string, b *types.Bundle) (types.Review, error) {
	review, err := retryStep(ctx, p.cfg, func(c context.Context) (types.Review, error) {
		return reviewBundle(c, client, text, b)
	})
	if err != nil {
		p.log.Warn("review step unavailable", "error", err.Error())
		return types.Review{Valid: true, Notes: "review skipped: reviewer unavailable"}, err
	}
	return review, nil
}

// retryStep runs fn with a per-attempt timeout and exponential backoff
// between attempts.
func retryStep[T any](ctx context.Context, cfg *config.Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := cfg.Pipeline.StepMaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := cfg.Pipeline.StepBackoffBase()

	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		stepCtx, cancel := context.WithTimeout(ctx, cfg.Pipeline.StepTimeout())
		out, err := fn(stepCtx)
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return zero, fmt.Errorf("%w: %v", apperr.ErrGenerationStepFailed, lastErr)
}
