package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExtractionStatus string

const (
	ExtractionStatusPending    ExtractionStatus = "pending"
	ExtractionStatusProcessing ExtractionStatus = "processing"
	ExtractionStatusCompleted  ExtractionStatus = "completed"
	ExtractionStatusFailed     ExtractionStatus = "failed"
	ExtractionStatusCancelled  ExtractionStatus = "cancelled"
)

// ActiveStatuses are the non-terminal statuses. At most one extraction per
// contract may be in one of them (enforced by a partial unique index).
var ActiveStatuses = []ExtractionStatus{ExtractionStatusPending, ExtractionStatusProcessing}

func (s ExtractionStatus) Terminal() bool {
	switch s {
	case ExtractionStatusCompleted, ExtractionStatusFailed, ExtractionStatusCancelled:
		return true
	}
	return false
}

// InvalidTransitionError reports a state machine transition that is not
// permitted from the extraction's current status.
type InvalidTransitionError struct {
	From ExtractionStatus
	To   ExtractionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid extraction transition from %s to %s", e.From, e.To)
}

// Extraction tracks the lifecycle of one contract's clause-extraction job.
// Rows are never physically deleted, only soft deleted.
type Extraction struct {
	ID           uuid.UUID        `gorm:"primaryKey;type:TEXT"`
	ContractID   uuid.UUID        `gorm:"not null;type:TEXT;index:extractions_contract_id_idx"`
	Status       ExtractionStatus `gorm:"not null;type:VARCHAR(20);default:'pending'"`
	ErrorMessage *string
	Result       *JSONField[ResultSummary] `gorm:"type:jsonb"`
	FileRef      string                    `gorm:"not null"`
	CreatedBy    string                    `gorm:"type:VARCHAR(255)"`
	Version      int                       `gorm:"not null;default:1"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time `gorm:"not null;default:now()"`
	UpdatedAt    *time.Time
	DeletedAt    gorm.DeletedAt
	Clauses      []Clause `gorm:"foreignKey:ExtractionID;references:ID;constraint:OnDelete:CASCADE;"`
}

type ExtractionList []Extraction

func (e Extraction) String() string {
	val, _ := json.Marshal(e)
	return string(val)
}

func (e Extraction) Terminal() bool {
	return e.Status.Terminal()
}

// CanRetry reports whether the extraction may be reset to pending again.
func (e Extraction) CanRetry() bool {
	return e.Status == ExtractionStatusFailed || e.Status == ExtractionStatusCancelled
}

// StartProcessing moves the extraction from pending to processing and stamps
// the start time.
func (e *Extraction) StartProcessing() error {
	if e.Status != ExtractionStatusPending {
		return &InvalidTransitionError{From: e.Status, To: ExtractionStatusProcessing}
	}
	now := time.Now()
	e.Status = ExtractionStatusProcessing
	e.StartedAt = &now
	return nil
}

// Complete moves the extraction from processing to completed. A result is
// required: completed-with-no-result is not a representable state.
func (e *Extraction) Complete(result ResultSummary) error {
	if e.Status != ExtractionStatusProcessing {
		return &InvalidTransitionError{From: e.Status, To: ExtractionStatusCompleted}
	}
	now := time.Now()
	e.Status = ExtractionStatusCompleted
	e.Result = MakeJSONField(result)
	e.ErrorMessage = nil
	e.CompletedAt = &now
	return nil
}

// Fail moves the extraction from processing to failed with a mandatory
// message. Any partial result is discarded.
func (e *Extraction) Fail(message string) error {
	if e.Status != ExtractionStatusProcessing {
		return &InvalidTransitionError{From: e.Status, To: ExtractionStatusFailed}
	}
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("failing extraction %s requires a message", e.ID)
	}
	now := time.Now()
	e.Status = ExtractionStatusFailed
	e.ErrorMessage = &message
	e.Result = nil
	e.CompletedAt = &now
	return nil
}

// Cancel is legal from pending or processing. Cancellation of a dispatched
// job is cooperative: the worker checks for it before its terminal write.
func (e *Extraction) Cancel() error {
	if e.Status != ExtractionStatusPending && e.Status != ExtractionStatusProcessing {
		return &InvalidTransitionError{From: e.Status, To: ExtractionStatusCancelled}
	}
	now := time.Now()
	e.Status = ExtractionStatusCancelled
	e.Result = nil
	e.CompletedAt = &now
	return nil
}

// ResetForRetry returns a failed or cancelled extraction to pending, clearing
// everything the previous run produced.
func (e *Extraction) ResetForRetry() error {
	if !e.CanRetry() {
		return &InvalidTransitionError{From: e.Status, To: ExtractionStatusPending}
	}
	e.Status = ExtractionStatusPending
	e.ErrorMessage = nil
	e.Result = nil
	e.StartedAt = nil
	e.CompletedAt = nil
	return nil
}

// ResultSummary is the flattened projection of a parse result kept on the
// extraction row for status queries. Detailed clauses live in their own table.
type ResultSummary struct {
	Parties           []string  `json:"parties,omitempty"`
	KeyClauses        []string  `json:"key_clauses,omitempty"`
	RiskClauses       []string  `json:"risk_clauses,omitempty"`
	ClauseCount       int       `json:"clause_count"`
	OverallConfidence float64   `json:"overall_confidence"`
	ModelName         string    `json:"model_name,omitempty"`
	AnalyzedAt        time.Time `json:"analyzed_at"`
}
