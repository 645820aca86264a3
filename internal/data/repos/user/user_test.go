package user

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/notewise/notewise-backend/internal/data/repos/testutil"
	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/pkg/dbctx"
	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
)

func TestUserRepo_CreateAndGet(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewUserRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	seeded := testutil.SeedUser(t, tx, types.TierFree)

	got, err := repo.GetByID(c, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != seeded.Email {
		t.Fatalf("expected email %q, got %q", seeded.Email, got.Email)
	}
	if got.Tier != types.TierFree {
		t.Fatalf("expected tier free, got %q", got.Tier)
	}

	byEmail, err := repo.GetByEmail(c, seeded.Email)
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != seeded.ID {
		t.Fatalf("expected id %s, got %s", seeded.ID, byEmail.ID)
	}
}

func TestUserRepo_GetByIDNotFound(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewUserRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	u := testutil.SeedUser(t, tx, types.TierFree)
	other := u.ID
	other[0] ^= 0xff

	if _, err := repo.GetByID(c, other); err != apperr.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepo_IncrementQuotaIfBelow(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewUserRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	u := testutil.SeedUser(t, tx, types.TierFree)

	// ceiling of 3: exactly three increments may succeed, never a fourth
	for i := 0; i < 3; i++ {
		ok, err := repo.IncrementQuotaIfBelow(c, u.ID, 3)
		if err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("increment %d: expected success below ceiling", i)
		}
	}

	ok, err := repo.IncrementQuotaIfBelow(c, u.ID, 3)
	if err != nil {
		t.Fatalf("increment at ceiling: %v", err)
	}
	if ok {
		t.Fatal("expected increment to be refused at ceiling")
	}

	got, err := repo.GetByID(c, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.NotesCreatedToday != 3 {
		t.Fatalf("expected notes_created_today=3, got %d", got.NotesCreatedToday)
	}
}

func TestUserRepo_ResetDailyCountIfStale(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewUserRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	u := testutil.SeedUser(t, tx, types.TierFree)

	now := time.Now().UTC()
	yesterday := now.Add(-24 * time.Hour)
	if err := tx.Model(&types.User{}).Where("id = ?", u.ID).
		Updates(map[string]any{"notes_created_today": 2, "last_reset_date": yesterday}).Error; err != nil {
		t.Fatalf("backdate user: %v", err)
	}

	if err := repo.ResetDailyCountIfStale(c, u.ID, now); err != nil {
		t.Fatalf("ResetDailyCountIfStale: %v", err)
	}

	got, err := repo.GetByID(c, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.NotesCreatedToday != 0 {
		t.Fatalf("expected count reset to 0, got %d", got.NotesCreatedToday)
	}

	// same-day call must not clobber an in-flight count
	ok, err := repo.IncrementQuotaIfBelow(c, u.ID, 3)
	if err != nil || !ok {
		t.Fatalf("increment after reset: ok=%v err=%v", ok, err)
	}
	if err := repo.ResetDailyCountIfStale(c, u.ID, now); err != nil {
		t.Fatalf("second reset: %v", err)
	}
	got, err = repo.GetByID(c, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.NotesCreatedToday != 1 {
		t.Fatalf("expected count preserved at 1, got %d", got.NotesCreatedToday)
	}
}

func TestUserRepo_IncrementQuotaConcurrentBoundary(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserRepo(testutil.Logger(t))

	// Runs against the shared handle, not a per-test transaction: the point
	// is racing independent statements. One connection keeps the in-memory
	// sqlite fallback serializable; Postgres races for real.
	if db.Dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			t.Fatalf("raw db: %v", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	u := testutil.SeedUser(t, db, types.TierFree)
	if err := db.Model(&types.User{}).Where("id = ?", u.ID).
		Update("notes_created_today", 2).Error; err != nil {
		t.Fatalf("set count: %v", err)
	}

	const workers = 8
	results := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := dbctx.Context{Ctx: context.Background(), Tx: db}
			ok, err := repo.IncrementQuotaIfBelow(c, u.ID, 3)
			if err != nil {
				t.Errorf("IncrementQuotaIfBelow: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	granted := 0
	for ok := range results {
		if ok {
			granted++
		}
	}
	if granted != 1 {
		t.Fatalf("expected exactly one winner at the boundary, got %d", granted)
	}

	got, err := repo.GetByID(dbctx.Context{Ctx: context.Background(), Tx: db}, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.NotesCreatedToday != 3 {
		t.Fatalf("expected count 3 after the race, got %d", got.NotesCreatedToday)
	}
}
