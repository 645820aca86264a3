package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/notewise/notewise-backend/internal/data/repos"
	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/pkg/dbctx"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
)

type NoteService interface {
	Get(ctx context.Context, account types.AccountContext, noteID uuid.UUID) (*types.Note, error)
	List(ctx context.Context, account types.AccountContext, limit, offset int) ([]*types.Note, error)
	Search(ctx context.Context, account types.AccountContext, query string, limit int) ([]*types.Note, error)
	Delete(ctx context.Context, account types.AccountContext, noteID uuid.UUID) error
}

type noteService struct {
	log   *logger.Logger
	db    *gorm.DB
	notes repos.NoteRepo
}

func NewNoteService(log *logger.Logger, db *gorm.DB, notes repos.NoteRepo) NoteService {
	return &noteService{
		log:   log.With("service", "NoteService"),
		db:    db,
		notes: notes,
	}
}

func (s *noteService) Get(ctx context.Context, account types.AccountContext, noteID uuid.UUID) (*types.Note, error) {
	return s.notes.GetByIDForUser(s.dbc(ctx), noteID, account.AccountID)
}

func (s *noteService) List(ctx context.Context, account types.AccountContext, limit, offset int) ([]*types.Note, error) {
	return s.notes.ListByUser(s.dbc(ctx), account.AccountID, limit, offset)
}

func (s *noteService) Search(ctx context.Context, account types.AccountContext, query string, limit int) ([]*types.Note, error) {
	return s.notes.SearchByUser(s.dbc(ctx), account.AccountID, query, limit)
}

func (s *noteService) Delete(ctx context.Context, account types.AccountContext, noteID uuid.UUID) error {
	return s.notes.Delete(s.dbc(ctx), noteID, account.AccountID)
}

func (s *noteService) dbc(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx, Tx: s.db}
}
