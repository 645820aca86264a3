package notes

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/pkg/dbctx"
	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
)

type NoteRepo interface {
	Create(c dbctx.Context, n *types.Note) error
	GetByID(c dbctx.Context, id uuid.UUID) (*types.Note, error)
	GetByIDForUser(c dbctx.Context, id, userID uuid.UUID) (*types.Note, error)
	ListByUser(c dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.Note, error)
	SearchByUser(c dbctx.Context, userID uuid.UUID, query string, limit int) ([]*types.Note, error)
	Delete(c dbctx.Context, id, userID uuid.UUID) error
}

type noteRepo struct {
	log *logger.Logger
}

func NewNoteRepo(log *logger.Logger) NoteRepo {
	return &noteRepo{log: log}
}

func (r *noteRepo) Create(c dbctx.Context, n *types.Note) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return c.Tx.WithContext(c.Ctx).Create(n).Error
}

func (r *noteRepo) GetByID(c dbctx.Context, id uuid.UUID) (*types.Note, error) {
	var n types.Note
	err := c.Tx.WithContext(c.Ctx).Where("id = ?", id).First(&n).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *noteRepo) GetByIDForUser(c dbctx.Context, id, userID uuid.UUID) (*types.Note, error) {
	var n types.Note
	err := c.Tx.WithContext(c.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&n).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *noteRepo) ListByUser(c dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.Note, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []*types.Note
	err := c.Tx.WithContext(c.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *noteRepo) SearchByUser(c dbctx.Context, userID uuid.UUID, query string, limit int) ([]*types.Note, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	var out []*types.Note
	err := c.Tx.WithContext(c.Ctx).
		Where("user_id = ? AND (LOWER(title) LIKE ? OR LOWER(summary) LIKE ? OR LOWER(processed_text) LIKE ?)", userID, like, like, like).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *noteRepo) Delete(c dbctx.Context, id, userID uuid.UUID) error {
	res := c.Tx.WithContext(c.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.Note{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
