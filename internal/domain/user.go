package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// ParseTier maps a raw tier string to a known tier, defaulting to FREE.
func ParseTier(raw string) Tier {
	switch Tier(raw) {
	case TierPro:
		return TierPro
	case TierEnterprise:
		return TierEnterprise
	default:
		return TierFree
	}
}

type User struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email             string         `gorm:"uniqueIndex;not null" json:"email"`
	Tier              Tier           `gorm:"column:tier;not null;default:'free';index" json:"tier"`
	NotesCreatedToday int            `gorm:"column:notes_created_today;not null;default:0" json:"notes_created_today"`
	DailyNoteLimit    int            `gorm:"column:daily_note_limit;not null;default:3" json:"daily_note_limit"`
	LastResetDate     *time.Time     `gorm:"column:last_reset_date" json:"last_reset_date,omitempty"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

// AccountContext is the per-request identity resolved by the auth
// collaborator. It is input to the feature gate, never persisted.
type AccountContext struct {
	AccountID uuid.UUID
	Tier      Tier
}
