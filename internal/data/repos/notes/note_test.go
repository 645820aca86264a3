package notes

import (
	"context"
	"testing"

	"github.com/notewise/notewise-backend/internal/data/repos/testutil"
	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/pkg/dbctx"
	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
)

func TestNoteRepo_CreateAndGet(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewNoteRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	u := testutil.SeedUser(t, tx, types.TierFree)
	n := testutil.SeedNote(t, tx, u.ID, "Photosynthesis")

	got, err := repo.GetByID(c, n.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Photosynthesis" {
		t.Fatalf("expected title Photosynthesis, got %q", got.Title)
	}
}

func TestNoteRepo_GetByIDForUserScopesOwner(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewNoteRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	owner := testutil.SeedUser(t, tx, types.TierFree)
	stranger := testutil.SeedUser(t, tx, types.TierPro)
	n := testutil.SeedNote(t, tx, owner.ID, "Mitosis")

	if _, err := repo.GetByIDForUser(c, n.ID, owner.ID); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := repo.GetByIDForUser(c, n.ID, stranger.ID); err != apperr.ErrNotFound {
		t.Fatalf("expected ErrNotFound for stranger, got %v", err)
	}
}

func TestNoteRepo_ListAndSearch(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewNoteRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	u := testutil.SeedUser(t, tx, types.TierFree)
	testutil.SeedNote(t, tx, u.ID, "Cell Biology")
	testutil.SeedNote(t, tx, u.ID, "Organic Chemistry")
	testutil.SeedNote(t, tx, u.ID, "Cell Division")

	all, err := repo.ListByUser(c, u.ID, 10, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(all))
	}

	hits, err := repo.SearchByUser(c, u.ID, "cell", 10)
	if err != nil {
		t.Fatalf("SearchByUser: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits for %q, got %d", "cell", len(hits))
	}
}

func TestNoteRepo_Delete(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewNoteRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	u := testutil.SeedUser(t, tx, types.TierFree)
	n := testutil.SeedNote(t, tx, u.ID, "Thermodynamics")

	if err := repo.Delete(c, n.ID, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(c, n.ID); err != apperr.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(c, n.ID, u.ID); err != apperr.ErrNotFound {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}
