package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/notewise/notewise-backend/internal/agents"
	"github.com/notewise/notewise-backend/internal/config"
	"github.com/notewise/notewise-backend/internal/data/repos"
	"github.com/notewise/notewise-backend/internal/data/repos/testutil"
	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/gate"
	"github.com/notewise/notewise-backend/internal/ingestion"
	"github.com/notewise/notewise-backend/internal/jobs/notegen"
	"github.com/notewise/notewise-backend/internal/pkg/dbctx"
	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
)

// cannedClient returns fixed structured outputs for every schema.
type cannedClient struct{}

func (cannedClient) GenerateJSON(_ context.Context, _, _, schemaName string, _ map[string]any) (map[string]any, error) {
	switch schemaName {
	case "note_summaries":
		return map[string]any{
			"one_sentence":    "One sentence.",
			"short_paragraph": "A short paragraph.",
			"bullet_points":   []any{"a", "b"},
		}, nil
	case "review_questions":
		qs := make([]any, 5)
		for i := range qs {
			qs[i] = map[string]any{"question": "Q?", "answer": "A."}
		}
		return map[string]any{"questions": qs}, nil
	case "multiple_choice":
		item := map[string]any{
			"question":    "Q?",
			"options":     map[string]any{"A": "1", "B": "2", "C": "3", "D": "4"},
			"answer":      "A",
			"explanation": "because",
		}
		return map[string]any{"easy": []any{item}, "medium": []any{item}, "hard": []any{item}}, nil
	case "material_review":
		return map[string]any{"valid": true, "notes": ""}, nil
	}
	return nil, errors.New("unexpected schema " + schemaName)
}

func (cannedClient) GenerateText(context.Context, string, string) (string, error) {
	return "", errors.New("not used")
}

func newService(t *testing.T) (JobService, *repos.Repos, dbctx.Context, types.AccountContext) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	cfg := config.Default()
	cfg.Pipeline.StepBackoffBaseMS = 1

	r := repos.New(log)
	g := gate.New(log, tx, r.User, &cfg)
	normalizer := ingestion.NewNormalizer(log, nil, nil)
	pipeline := agents.NewPipeline(log, cannedClient{}, &cfg)

	svc := NewJobService(log, tx, nil, r, g, normalizer, pipeline, nil)

	u := testutil.SeedUser(t, tx, types.TierFree)
	account := types.AccountContext{AccountID: u.ID, Tier: types.TierFree}
	return svc, r, dbctx.Context{Ctx: context.Background(), Tx: tx}, account
}

func TestSubmit_FreezesDecisionInPayload(t *testing.T) {
	svc, r, c, account := newService(t)

	jobID, err := svc.Submit(context.Background(), account, ProcessInput{
		Title:    "Mitosis",
		Artifact: types.InputArtifact{Text: "cells divide"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	run, err := r.JobRun.GetByID(c, jobID)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if run.Status != types.JobStatusPending {
		t.Fatalf("expected pending job, got %q", run.Status)
	}

	var p notegen.Payload
	if err := json.Unmarshal(run.Payload, &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.UserID != account.AccountID {
		t.Fatalf("payload user mismatch: %s", p.UserID)
	}
	if p.Decision.Model != "gpt-4o-mini" {
		t.Fatalf("expected frozen free-tier model, got %q", p.Decision.Model)
	}
	if !p.Decision.IsEnabled(types.FeatureSummaries) {
		t.Fatal("expected summaries enabled in frozen decision")
	}
}

func TestSubmit_ConsumesQuota(t *testing.T) {
	svc, _, _, account := newService(t)

	in := ProcessInput{Artifact: types.InputArtifact{Text: "notes"}}
	for i := 0; i < 3; i++ {
		if _, err := svc.Submit(context.Background(), account, in); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	_, err := svc.Submit(context.Background(), account, in)
	if !errors.Is(err, apperr.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestSubmit_UnsupportedArtifactCreatesNoJob(t *testing.T) {
	svc, r, c, account := newService(t)

	_, err := svc.Submit(context.Background(), account, ProcessInput{
		Artifact: types.InputArtifact{
			Filename: "lecture.mkv",
			MimeType: "video/x-matroska",
			Data:     []byte{0x1a, 0x45, 0xdf, 0xa3},
		},
	})
	if !errors.Is(err, apperr.ErrUnsupportedModality) {
		t.Fatalf("expected ErrUnsupportedModality, got %v", err)
	}

	var count int64
	if err := c.Tx.Model(&types.JobRun{}).
		Where("owner_user_id = ?", account.AccountID).
		Count(&count).Error; err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no job rows for rejected submission, got %d", count)
	}

	u, err := r.User.GetByID(c, account.AccountID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if u.NotesCreatedToday != 0 {
		t.Fatalf("rejected submission consumed quota: %d", u.NotesCreatedToday)
	}
}

func TestGetStatusAndResultLifecycle(t *testing.T) {
	svc, r, c, account := newService(t)

	jobID, err := svc.Submit(context.Background(), account, ProcessInput{
		Artifact: types.InputArtifact{Text: "notes"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	snap, err := svc.GetStatus(context.Background(), account, jobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if snap.Status != types.JobStatusPending || snap.Progress != 0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if _, err := svc.GetResult(context.Background(), account, jobID); !errors.Is(err, apperr.ErrResultNotReady) {
		t.Fatalf("expected ErrResultNotReady, got %v", err)
	}

	if err := r.JobRun.UpdateFields(c, jobID, map[string]any{
		"status": types.JobStatusFailed,
		"error":  "all enabled generation features failed",
	}); err != nil {
		t.Fatalf("fail job: %v", err)
	}
	_, err = svc.GetResult(context.Background(), account, jobID)
	if !errors.Is(err, apperr.ErrJobFailed) {
		t.Fatalf("expected ErrJobFailed, got %v", err)
	}

	if _, err := svc.GetStatus(context.Background(), account, uuid.New()); !errors.Is(err, apperr.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestGetStatus_ScopedToOwner(t *testing.T) {
	svc, _, c, account := newService(t)

	jobID, err := svc.Submit(context.Background(), account, ProcessInput{
		Artifact: types.InputArtifact{Text: "notes"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	stranger := testutil.SeedUser(t, c.Tx, types.TierPro)
	other := types.AccountContext{AccountID: stranger.ID, Tier: types.TierPro}
	if _, err := svc.GetStatus(context.Background(), other, jobID); !errors.Is(err, apperr.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound for stranger, got %v", err)
	}
}

func TestRunSync_PersistsNote(t *testing.T) {
	svc, r, c, account := newService(t)

	note, bundle, err := svc.RunSync(context.Background(), account, ProcessInput{
		Title:    "Mitosis",
		Artifact: types.InputArtifact{Text: "cells divide by mitosis"},
	})
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if bundle.Summary != "A short paragraph." {
		t.Fatalf("unexpected summary %q", bundle.Summary)
	}
	if !bundle.Review.Valid {
		t.Fatal("expected valid review")
	}

	stored, err := r.Note.GetByIDForUser(c, note.ID, account.AccountID)
	if err != nil {
		t.Fatalf("load note: %v", err)
	}
	if stored.Summary != "A short paragraph." {
		t.Fatalf("stored summary %q", stored.Summary)
	}
	if stored.ProcessedText != "cells divide by mitosis" {
		t.Fatalf("stored processed text %q", stored.ProcessedText)
	}
}

func TestRunSync_UnsupportedInput(t *testing.T) {
	svc, _, _, account := newService(t)

	_, _, err := svc.RunSync(context.Background(), account, ProcessInput{
		Artifact: types.InputArtifact{Filename: "data.bin", Data: []byte{0x00}},
	})
	if !errors.Is(err, apperr.ErrUnsupportedModality) {
		t.Fatalf("expected ErrUnsupportedModality, got %v", err)
	}
}
