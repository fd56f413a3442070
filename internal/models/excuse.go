package models

import (
	"time"

	"gorm.io/gorm"
)

// Excuse is a saved excuse, either entered by hand or kept from a generation
type Excuse struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Category    string         `gorm:"index" json:"category"`
	UserID      string         `gorm:"index" json:"user_id,omitempty"` // identity service subject, empty for shared rows
}

// Generation outcomes
const (
	OutcomeSuccess = "success"
	OutcomeBusy    = "busy"
	OutcomeFailed  = "failed"
)

// GenerationLog records one /generate_excuse request
type GenerationLog struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	RequestID    string    `gorm:"index" json:"request_id"`
	UserID       string    `gorm:"index" json:"user_id,omitempty"`
	Mode         string    `json:"mode"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Attempts     int       `gorm:"not null" json:"attempts"`
	Outcome      string    `gorm:"not null;index" json:"outcome"`
	DurationMS   int64     `json:"duration_ms"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
}
