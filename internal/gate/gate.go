// Package gate decides, per submission, which generation features an
// account may use and consumes its daily quota.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/notewise/notewise-backend/internal/config"
	"github.com/notewise/notewise-backend/internal/data/repos"
	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/pkg/dbctx"
	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type Gate interface {
	// Decide consumes one unit of the account's daily quota and returns the
	// feature decision for this submission. Callers freeze the decision in
	// the job payload; it is never re-derived mid-run.
	Decide(ctx context.Context, account types.AccountContext, requested []types.Feature) (types.FeatureDecision, error)
}

type gate struct {
	log   *logger.Logger
	db    *gorm.DB
	users repos.UserRepo
	cfg   *config.Config
}

func New(log *logger.Logger, db *gorm.DB, users repos.UserRepo, cfg *config.Config) Gate {
	return &gate{
		log:   log.With("service", "FeatureGate"),
		db:    db,
		users: users,
		cfg:   cfg,
	}
}

func (g *gate) Decide(ctx context.Context, account types.AccountContext, requested []types.Feature) (types.FeatureDecision, error) {
	tier := g.cfg.Tier(string(account.Tier))

	enabled := map[types.Feature]bool{}
	for _, f := range defaultFeatures(requested) {
		enabled[f] = true
	}

	decision := types.FeatureDecision{
		Enabled:        enabled,
		Model:          tier.Model,
		QuotaRemaining: -1,
	}

	if tier.DailyNoteLimit < 0 {
		return decision, nil
	}

	c := dbctx.Context{Ctx: ctx, Tx: g.db}
	if err := g.users.ResetDailyCountIfStale(c, account.AccountID, time.Now().UTC()); err != nil {
		return types.FeatureDecision{}, fmt.Errorf("reset daily count: %w", err)
	}

	ok, err := g.users.IncrementQuotaIfBelow(c, account.AccountID, tier.DailyNoteLimit)
	if err != nil {
		return types.FeatureDecision{}, fmt.Errorf("consume quota: %w", err)
	}
	if !ok {
		g.log.Info("daily note quota exhausted",
			"user_id", account.AccountID.String(),
			"tier", string(account.Tier),
			"limit", tier.DailyNoteLimit,
		)
		return types.FeatureDecision{}, fmt.Errorf("%w: %d notes per day", apperr.ErrQuotaExceeded, tier.DailyNoteLimit)
	}

	u, err := g.users.GetByID(c, account.AccountID)
	if err != nil {
		return types.FeatureDecision{}, fmt.Errorf("load user after quota: %w", err)
	}
	decision.QuotaRemaining = tier.DailyNoteLimit - u.NotesCreatedToday
	if decision.QuotaRemaining < 0 {
		decision.QuotaRemaining = 0
	}
	return decision, nil
}

func defaultFeatures(requested []types.Feature) []types.Feature {
	if len(requested) == 0 {
		return []types.Feature{types.FeatureSummaries, types.FeatureQuestions, types.FeatureMCQs}
	}
	out := make([]types.Feature, 0, len(requested))
	for _, f := range requested {
		switch f {
		case types.FeatureSummaries, types.FeatureQuestions, types.FeatureMCQs:
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return []types.Feature{types.FeatureSummaries, types.FeatureQuestions, types.FeatureMCQs}
	}
	return out
}
