package model

import (
	"time"

	"github.com/google/uuid"
)

// PromptTemplate is the text sent to the AI model, loaded by logical name.
// Only enabled templates are served to the pipeline.
type PromptTemplate struct {
	ID        uuid.UUID `gorm:"primaryKey;type:TEXT"`
	Name      string    `gorm:"not null;uniqueIndex:prompt_templates_name_idx"`
	Content   string    `gorm:"not null"`
	Enabled   bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt *time.Time
}
