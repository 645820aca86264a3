package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/notewise/notewise-backend/internal/domain"
)

func SeedUser(tb testing.TB, tx *gorm.DB, tier types.Tier) *types.User {
	tb.Helper()
	now := time.Now().UTC()
	u := &types.User{
		ID:             uuid.New(),
		Email:          fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8]),
		Tier:           tier,
		DailyNoteLimit: 3,
		LastResetDate:  &now,
	}
	if err := tx.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedNote(tb testing.TB, tx *gorm.DB, userID uuid.UUID, title string) *types.Note {
	tb.Helper()
	n := &types.Note{
		ID:            uuid.New(),
		UserID:        userID,
		Title:         title,
		Modality:      types.ModalityText,
		RawText:       "raw " + title,
		ProcessedText: "processed " + title,
	}
	if err := tx.Create(n).Error; err != nil {
		tb.Fatalf("seed note: %v", err)
	}
	return n
}
