package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Note is the persisted record of one processed submission plus its
// generated bundle fields (JSON columns mirror Bundle).
type Note struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Title         string         `gorm:"column:title" json:"title,omitempty"`
	Modality      Modality       `gorm:"column:modality;not null;index" json:"modality"`
	Filename      string         `gorm:"column:filename" json:"filename,omitempty"`
	RawText       string         `gorm:"column:raw_text;type:text" json:"raw_text,omitempty"`
	ProcessedText string         `gorm:"column:processed_text;type:text" json:"processed_text,omitempty"`
	Summary       string         `gorm:"column:summary;type:text" json:"summary,omitempty"`
	Summaries     datatypes.JSON `gorm:"column:summaries;type:jsonb" json:"summaries,omitempty"`
	Questions     datatypes.JSON `gorm:"column:questions;type:jsonb" json:"questions,omitempty"`
	MCQs          datatypes.JSON `gorm:"column:mcqs;type:jsonb" json:"mcqs,omitempty"`
	Review        datatypes.JSON `gorm:"column:review;type:jsonb" json:"review,omitempty"`
	ProcessedAt   *time.Time     `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Note) TableName() string { return "note" }
