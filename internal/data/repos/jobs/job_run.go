package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/pkg/dbctx"
	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
)

type JobRunRepo interface {
	Create(c dbctx.Context, run *types.JobRun) error
	GetByID(c dbctx.Context, id uuid.UUID) (*types.JobRun, error)
	GetByIDForUser(c dbctx.Context, id, userID uuid.UUID) (*types.JobRun, error)

	// ClaimNextRunnable atomically claims the oldest runnable job: a pending
	// row past its retry delay, or a processing row whose heartbeat has gone
	// stale for longer than staleProcessing. The claim bumps attempts and
	// stamps locked_at/heartbeat_at. Returns nil when nothing is runnable.
	ClaimNextRunnable(c dbctx.Context, maxAttempts int, retryDelay, staleProcessing time.Duration) (*types.JobRun, error)

	UpdateFields(c dbctx.Context, id uuid.UUID, updates map[string]any) error

	// UpdateFieldsUnlessStatus applies updates only while the row's status is
	// not one of disallowed. Returns false when the guard refused the write.
	UpdateFieldsUnlessStatus(c dbctx.Context, id uuid.UUID, disallowed []types.JobStatus, updates map[string]any) (bool, error)

	// UpdateProgress advances stage/progress, refusing regressions and writes
	// against terminal rows. Returns false when nothing was written.
	UpdateProgress(c dbctx.Context, id uuid.UUID, stage string, progress int) (bool, error)

	Heartbeat(c dbctx.Context, id uuid.UUID) error

	// FailExhausted terminally fails processing rows whose heartbeat has gone
	// stale and whose attempts have reached maxAttempts. Returns the number
	// of rows failed.
	FailExhausted(c dbctx.Context, maxAttempts int, staleProcessing time.Duration) (int64, error)
}

type jobRunRepo struct {
	log *logger.Logger
}

func NewJobRunRepo(log *logger.Logger) JobRunRepo {
	return &jobRunRepo{log: log}
}

func (r *jobRunRepo) Create(c dbctx.Context, run *types.JobRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = types.JobStatusPending
	}
	return c.Tx.WithContext(c.Ctx).Create(run).Error
}

func (r *jobRunRepo) GetByID(c dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	var run types.JobRun
	err := c.Tx.WithContext(c.Ctx).Where("id = ?", id).First(&run).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *jobRunRepo) GetByIDForUser(c dbctx.Context, id, userID uuid.UUID) (*types.JobRun, error) {
	var run types.JobRun
	err := c.Tx.WithContext(c.Ctx).
		Where("id = ? AND owner_user_id = ?", id, userID).
		First(&run).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *jobRunRepo) ClaimNextRunnable(c dbctx.Context, maxAttempts int, retryDelay, staleProcessing time.Duration) (*types.JobRun, error) {
	now := time.Now().UTC()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleProcessing)

	var claimed *types.JobRun
	err := c.Tx.WithContext(c.Ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.
			Where("attempts < ?", maxAttempts).
			Where(
				tx.Where("status = ? AND (last_error_at IS NULL OR last_error_at < ?)", types.JobStatusPending, retryCutoff).
					Or("status = ? AND heartbeat_at IS NOT NULL AND heartbeat_at < ?", types.JobStatusProcessing, staleCutoff),
			).
			Order("created_at ASC")

		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var run types.JobRun
		if err := q.First(&run).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}

		updates := map[string]any{
			"status":       types.JobStatusProcessing,
			"attempts":     run.Attempts + 1,
			"locked_at":    now,
			"heartbeat_at": now,
		}
		if err := tx.Model(&types.JobRun{}).Where("id = ?", run.ID).Updates(updates).Error; err != nil {
			return err
		}

		run.Status = types.JobStatusProcessing
		run.Attempts++
		run.LockedAt = &now
		run.HeartbeatAt = &now
		claimed = &run
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRunRepo) UpdateFields(c dbctx.Context, id uuid.UUID, updates map[string]any) error {
	return c.Tx.WithContext(c.Ctx).
		Model(&types.JobRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRunRepo) UpdateFieldsUnlessStatus(c dbctx.Context, id uuid.UUID, disallowed []types.JobStatus, updates map[string]any) (bool, error) {
	q := c.Tx.WithContext(c.Ctx).
		Model(&types.JobRun{}).
		Where("id = ?", id)
	if len(disallowed) > 0 {
		q = q.Where("status NOT IN ?", disallowed)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *jobRunRepo) UpdateProgress(c dbctx.Context, id uuid.UUID, stage string, progress int) (bool, error) {
	res := c.Tx.WithContext(c.Ctx).
		Model(&types.JobRun{}).
		Where("id = ? AND progress <= ? AND status NOT IN ?",
			id, progress, []types.JobStatus{types.JobStatusCompleted, types.JobStatusFailed}).
		Updates(map[string]any{
			"stage":        stage,
			"progress":     progress,
			"heartbeat_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *jobRunRepo) Heartbeat(c dbctx.Context, id uuid.UUID) error {
	return c.Tx.WithContext(c.Ctx).
		Model(&types.JobRun{}).
		Where("id = ? AND status = ?", id, types.JobStatusProcessing).
		UpdateColumn("heartbeat_at", time.Now().UTC()).Error
}

func (r *jobRunRepo) FailExhausted(c dbctx.Context, maxAttempts int, staleProcessing time.Duration) (int64, error) {
	now := time.Now().UTC()
	staleCutoff := now.Add(-staleProcessing)
	res := c.Tx.WithContext(c.Ctx).
		Model(&types.JobRun{}).
		Where("status = ? AND attempts >= ? AND heartbeat_at IS NOT NULL AND heartbeat_at < ?",
			types.JobStatusProcessing, maxAttempts, staleCutoff).
		Updates(map[string]any{
			"status":        types.JobStatusFailed,
			"error":         "abandoned after repeated worker loss",
			"last_error_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
