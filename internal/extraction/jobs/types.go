package jobs

import (
	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

const (
	JobKind       = "clause_extract"
	DefaultQueue  = "extraction"
	MaxJobRetries = 1
)

// ExtractArgs contains the arguments for a clause-extraction job.
// This is stored in river_job.args as JSON.
type ExtractArgs struct {
	ExtractionID uuid.UUID `json:"extraction_id"`
	ContractID   uuid.UUID `json:"contract_id"`
	FileRef      string    `json:"file_ref"`
	RequestedBy  string    `json:"requested_by"`
}

// Kind returns the job kind for River registration.
func (ExtractArgs) Kind() string {
	return JobKind
}

// InsertOpts returns the default insert options for this job type.
func (ExtractArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       DefaultQueue,
		MaxAttempts: MaxJobRetries,
	}
}
