package audit

import "time"

// ExtractionEvent is the audit payload emitted around an extraction run.
// Events are best-effort: a lost event never fails the extraction itself.
type ExtractionEvent struct {
	ExtractionID string        `json:"extraction_id"`
	ContractID   string        `json:"contract_id"`
	RequestedBy  string        `json:"requested_by,omitempty"`
	Status       string        `json:"status"`
	Summary      string        `json:"summary,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Duration     time.Duration `json:"duration_ms,omitempty"`
	OccurredAt   time.Time     `json:"occurred_at"`
}
