package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/notewise/notewise-backend/internal/data/repos/testutil"
	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/pkg/dbctx"
	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
)

func seedRun(t *testing.T, c dbctx.Context, repo JobRunRepo) *types.JobRun {
	t.Helper()
	owner := testutil.SeedUser(t, c.Tx, types.TierFree)
	run := &types.JobRun{
		OwnerUserID: owner.ID,
		JobType:     types.JobTypeNoteGeneration,
		Payload:     []byte(`{"modality":"text"}`),
	}
	if err := repo.Create(c, run); err != nil {
		t.Fatalf("create run: %v", err)
	}
	return run
}

func TestJobRunRepo_CreateDefaultsPending(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewJobRunRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	run := seedRun(t, c, repo)

	got, err := repo.GetByID(c, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.JobStatusPending {
		t.Fatalf("expected pending, got %q", got.Status)
	}
	if got.Progress != 0 {
		t.Fatalf("expected progress 0, got %d", got.Progress)
	}
}

func TestJobRunRepo_ClaimNextRunnable(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewJobRunRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	run := seedRun(t, c, repo)

	claimed, err := repo.ClaimNextRunnable(c, 5, 30*time.Second, 30*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable: %v", err)
	}
	if claimed == nil {
		t.Fatal("expected a claim, got nil")
	}
	if claimed.ID != run.ID {
		t.Fatalf("expected run %s, got %s", run.ID, claimed.ID)
	}
	if claimed.Status != types.JobStatusProcessing {
		t.Fatalf("expected processing, got %q", claimed.Status)
	}
	if claimed.Attempts != 1 {
		t.Fatalf("expected attempts=1, got %d", claimed.Attempts)
	}

	// freshly claimed row is not runnable again
	again, err := repo.ClaimNextRunnable(c, 5, 30*time.Second, 30*time.Minute)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if again != nil {
		t.Fatalf("expected no runnable job, got %s", again.ID)
	}
}

func TestJobRunRepo_ClaimReclaimsStaleProcessing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewJobRunRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	run := seedRun(t, c, repo)
	stale := time.Now().UTC().Add(-2 * time.Hour)
	if err := tx.Model(&types.JobRun{}).Where("id = ?", run.ID).
		Updates(map[string]any{
			"status":       types.JobStatusProcessing,
			"attempts":     1,
			"heartbeat_at": stale,
		}).Error; err != nil {
		t.Fatalf("backdate heartbeat: %v", err)
	}

	claimed, err := repo.ClaimNextRunnable(c, 5, 30*time.Second, 30*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable: %v", err)
	}
	if claimed == nil {
		t.Fatal("expected stale processing row to be reclaimed")
	}
	if claimed.Attempts != 2 {
		t.Fatalf("expected attempts=2, got %d", claimed.Attempts)
	}
}

func TestJobRunRepo_ClaimSkipsExhaustedAttempts(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewJobRunRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	run := seedRun(t, c, repo)
	if err := tx.Model(&types.JobRun{}).Where("id = ?", run.ID).
		UpdateColumn("attempts", 5).Error; err != nil {
		t.Fatalf("set attempts: %v", err)
	}

	claimed, err := repo.ClaimNextRunnable(c, 5, 30*time.Second, 30*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable: %v", err)
	}
	if claimed != nil {
		t.Fatalf("expected exhausted row to be skipped, got %s", claimed.ID)
	}
}

func TestJobRunRepo_UpdateProgressMonotonic(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewJobRunRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	run := seedRun(t, c, repo)

	ok, err := repo.UpdateProgress(c, run.ID, "generating_content", 60)
	if err != nil || !ok {
		t.Fatalf("advance to 60: ok=%v err=%v", ok, err)
	}

	// regression is refused
	ok, err = repo.UpdateProgress(c, run.ID, "processing_input", 30)
	if err != nil {
		t.Fatalf("regress to 30: %v", err)
	}
	if ok {
		t.Fatal("expected progress regression to be refused")
	}

	got, err := repo.GetByID(c, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Progress != 60 || got.Stage != "generating_content" {
		t.Fatalf("expected 60/generating_content, got %d/%q", got.Progress, got.Stage)
	}
}

func TestJobRunRepo_TerminalStatusGuards(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewJobRunRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	run := seedRun(t, c, repo)

	terminal := []types.JobStatus{types.JobStatusCompleted, types.JobStatusFailed}
	ok, err := repo.UpdateFieldsUnlessStatus(c, run.ID, terminal, map[string]any{
		"status":   types.JobStatusCompleted,
		"progress": 100,
	})
	if err != nil || !ok {
		t.Fatalf("complete run: ok=%v err=%v", ok, err)
	}

	// terminal rows reject both status flips and progress writes
	ok, err = repo.UpdateFieldsUnlessStatus(c, run.ID, terminal, map[string]any{
		"status": types.JobStatusFailed,
	})
	if err != nil {
		t.Fatalf("fail after complete: %v", err)
	}
	if ok {
		t.Fatal("expected write against completed run to be refused")
	}

	ok, err = repo.UpdateProgress(c, run.ID, "generating_content", 100)
	if err != nil {
		t.Fatalf("progress after complete: %v", err)
	}
	if ok {
		t.Fatal("expected progress write against completed run to be refused")
	}
}

func TestJobRunRepo_FailExhausted(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewJobRunRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	run := seedRun(t, c, repo)
	stale := time.Now().UTC().Add(-2 * time.Hour)
	if err := tx.Model(&types.JobRun{}).Where("id = ?", run.ID).
		Updates(map[string]any{
			"status":       types.JobStatusProcessing,
			"attempts":     5,
			"heartbeat_at": stale,
		}).Error; err != nil {
		t.Fatalf("backdate run: %v", err)
	}

	n, err := repo.FailExhausted(c, 5, 30*time.Minute)
	if err != nil {
		t.Fatalf("FailExhausted: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 failed row, got %d", n)
	}

	got, err := repo.GetByID(c, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.JobStatusFailed {
		t.Fatalf("expected failed, got %q", got.Status)
	}
	if got.Error == "" {
		t.Fatal("expected a failure reason to be recorded")
	}
}

func TestJobRunRepo_GetByIDForUser(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewJobRunRepo(testutil.Logger(t))
	c := dbctx.Context{Ctx: context.Background(), Tx: tx}

	run := seedRun(t, c, repo)
	stranger := testutil.SeedUser(t, tx, types.TierPro)

	if _, err := repo.GetByIDForUser(c, run.ID, run.OwnerUserID); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := repo.GetByIDForUser(c, run.ID, stranger.ID); err != apperr.ErrJobNotFound {
		t.Fatalf("expected ErrJobNotFound for stranger, got %v", err)
	}
}
