package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/pkg/dbctx"
	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
)

type UserRepo interface {
	Create(c dbctx.Context, u *types.User) error
	GetByID(c dbctx.Context, id uuid.UUID) (*types.User, error)
	GetByEmail(c dbctx.Context, email string) (*types.User, error)

	// ResetDailyCountIfStale zeroes notes_created_today when the stored
	// reset date is before the calendar day of now. Safe to call on every
	// submission.
	ResetDailyCountIfStale(c dbctx.Context, id uuid.UUID, now time.Time) error

	// IncrementQuotaIfBelow bumps notes_created_today by one only while the
	// count is still below ceiling, in a single guarded UPDATE. Returns
	// false when the ceiling was already reached.
	IncrementQuotaIfBelow(c dbctx.Context, id uuid.UUID, ceiling int) (bool, error)
}

type userRepo struct {
	log *logger.Logger
}

func NewUserRepo(log *logger.Logger) UserRepo {
	return &userRepo{log: log}
}

func (r *userRepo) Create(c dbctx.Context, u *types.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return c.Tx.WithContext(c.Ctx).Create(u).Error
}

func (r *userRepo) GetByID(c dbctx.Context, id uuid.UUID) (*types.User, error) {
	var u types.User
	err := c.Tx.WithContext(c.Ctx).Where("id = ?", id).First(&u).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(c dbctx.Context, email string) (*types.User, error) {
	var u types.User
	err := c.Tx.WithContext(c.Ctx).Where("email = ?", email).First(&u).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) ResetDailyCountIfStale(c dbctx.Context, id uuid.UUID, now time.Time) error {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return c.Tx.WithContext(c.Ctx).
		Model(&types.User{}).
		Where("id = ? AND last_reset_date < ?", id, dayStart).
		Updates(map[string]any{
			"notes_created_today": 0,
			"last_reset_date":     now.UTC(),
		}).Error
}

func (r *userRepo) IncrementQuotaIfBelow(c dbctx.Context, id uuid.UUID, ceiling int) (bool, error) {
	res := c.Tx.WithContext(c.Ctx).
		Model(&types.User{}).
		Where("id = ? AND notes_created_today < ?", id, ceiling).
		UpdateColumn("notes_created_today", gorm.Expr("notes_created_today + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
