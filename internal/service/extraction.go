package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/contracthub/extraction-service/internal/audit"
	"github.com/contracthub/extraction-service/internal/extraction/jobs"
	"github.com/contracthub/extraction-service/internal/store"
	"github.com/contracthub/extraction-service/internal/store/model"
	"github.com/contracthub/extraction-service/pkg/metrics"
)

const (
	TriggerModeReuse    = "reuse"
	TriggerModeConflict = "conflict"
)

// Trigger outcomes, also used as the metric label.
const (
	TriggerOutcomeCreated = "created"
	TriggerOutcomeReused  = "reused"
	TriggerOutcomeRetried = "retried"
)

// JobDispatcher hands extraction jobs to the worker pool. Satisfied by
// jobs.Client; tests plug in a recorder.
type JobDispatcher interface {
	InsertJob(ctx context.Context, args jobs.ExtractArgs) (int64, error)
	CancelJob(ctx context.Context, jobID int64) error
}

type ExtractionService struct {
	store       store.Store
	dispatcher  JobDispatcher
	riverJobs   store.RiverJob
	auditSink   audit.Sink
	triggerMode string
}

func NewExtractionService(s store.Store, dispatcher JobDispatcher, riverJobs store.RiverJob, auditSink audit.Sink, triggerMode string) *ExtractionService {
	if triggerMode != TriggerModeConflict {
		triggerMode = TriggerModeReuse
	}
	return &ExtractionService{
		store:       s,
		dispatcher:  dispatcher,
		riverJobs:   riverJobs,
		auditSink:   auditSink,
		triggerMode: triggerMode,
	}
}

type TriggerRequest struct {
	ContractID  uuid.UUID
	FileRef     string
	RequestedBy string
}

type TriggerResult struct {
	Extraction *model.Extraction
	Outcome    string
}

// Trigger starts, restarts or reuses the extraction for a contract.
//
// The whole decision runs in one transaction and the schema carries a partial
// unique index on active extractions, so two concurrent triggers for the same
// contract cannot both create a row: the loser hits a duplicate key, re-reads
// and applies the same policy as if the winner had been there all along.
func (s *ExtractionService) Trigger(ctx context.Context, request TriggerRequest) (*TriggerResult, error) {
	result, err := s.trigger(ctx, request)
	if err != nil {
		var inFlight *ErrExtractionInFlight
		if errors.As(err, &inFlight) {
			metrics.IncreaseExtractionsTriggered("conflict")
		}
		return nil, err
	}

	metrics.IncreaseExtractionsTriggered(result.Outcome)

	// Only outcomes that schedule a run leave an audit trace. Reuse and
	// conflict change nothing worth recording.
	if result.Outcome == TriggerOutcomeCreated || result.Outcome == TriggerOutcomeRetried {
		s.auditSink.Append(ctx, audit.TriggeredMessageKind, audit.ExtractionEvent{
			ExtractionID: result.Extraction.ID.String(),
			ContractID:   result.Extraction.ContractID.String(),
			RequestedBy:  request.RequestedBy,
			Status:       string(result.Extraction.Status),
			OccurredAt:   time.Now(),
		})
	}

	return result, nil
}

func (s *ExtractionService) trigger(ctx context.Context, request TriggerRequest) (*TriggerResult, error) {
	ctx, err := s.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.Extraction().FindActiveByContract(ctx, request.ContractID)
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		_, _ = store.Rollback(ctx)
		return nil, err
	}

	if existing == nil {
		return s.createAndEnqueue(ctx, request)
	}

	switch {
	case !existing.Terminal():
		_, _ = store.Rollback(ctx)
		if s.triggerMode == TriggerModeConflict {
			return nil, NewErrExtractionInFlight(request.ContractID, existing.ID)
		}
		return &TriggerResult{Extraction: existing, Outcome: TriggerOutcomeReused}, nil

	case existing.CanRetry():
		return s.retryAndEnqueue(ctx, request, existing)

	default:
		// Completed. The result stands until someone explicitly re-analyzes.
		_, _ = store.Rollback(ctx)
		return &TriggerResult{Extraction: existing, Outcome: TriggerOutcomeReused}, nil
	}
}

func (s *ExtractionService) createAndEnqueue(ctx context.Context, request TriggerRequest) (*TriggerResult, error) {
	created, err := s.store.Extraction().Create(ctx, model.Extraction{
		ID:         uuid.New(),
		ContractID: request.ContractID,
		Status:     model.ExtractionStatusPending,
		FileRef:    request.FileRef,
		CreatedBy:  request.RequestedBy,
	})
	if err != nil {
		_, _ = store.Rollback(ctx)
		if errors.Is(err, store.ErrDuplicateKey) {
			// Lost the race against a concurrent trigger. Re-read and apply
			// the same policy against the winner's row.
			return s.resolveTriggerRace(ctx, request)
		}
		return nil, err
	}

	if ctx, err = store.Commit(ctx); err != nil {
		return nil, err
	}

	if err := s.enqueue(ctx, created, request.RequestedBy); err != nil {
		return nil, err
	}

	return &TriggerResult{Extraction: created, Outcome: TriggerOutcomeCreated}, nil
}

func (s *ExtractionService) retryAndEnqueue(ctx context.Context, request TriggerRequest, existing *model.Extraction) (*TriggerResult, error) {
	if err := existing.ResetForRetry(); err != nil {
		_, _ = store.Rollback(ctx)
		return nil, err
	}

	// Clauses from the aborted run would otherwise double up with the rerun's.
	if err := s.store.Clause().DeleteByExtraction(ctx, existing.ID); err != nil {
		_, _ = store.Rollback(ctx)
		return nil, err
	}

	updated, err := s.store.Extraction().Update(ctx, existing)
	if err != nil {
		_, _ = store.Rollback(ctx)
		if errors.Is(err, store.ErrStaleVersion) {
			return s.resolveTriggerRace(ctx, request)
		}
		return nil, err
	}

	if ctx, err = store.Commit(ctx); err != nil {
		return nil, err
	}

	if err := s.enqueue(ctx, updated, request.RequestedBy); err != nil {
		return nil, err
	}

	return &TriggerResult{Extraction: updated, Outcome: TriggerOutcomeRetried}, nil
}

func (s *ExtractionService) resolveTriggerRace(ctx context.Context, request TriggerRequest) (*TriggerResult, error) {
	winner, err := s.store.Extraction().FindActiveByContract(ctx, request.ContractID)
	if err != nil {
		return nil, err
	}
	if s.triggerMode == TriggerModeConflict && !winner.Terminal() {
		return nil, NewErrExtractionInFlight(request.ContractID, winner.ID)
	}
	return &TriggerResult{Extraction: winner, Outcome: TriggerOutcomeReused}, nil
}

// enqueue hands the pending row to the worker pool. When dispatch fails the
// row is removed again: a pending extraction nobody will ever pick up would
// wedge the contract until the reaper's timeout.
func (s *ExtractionService) enqueue(ctx context.Context, e *model.Extraction, requestedBy string) error {
	jobID, err := s.dispatcher.InsertJob(ctx, jobs.ExtractArgs{
		ExtractionID: e.ID,
		ContractID:   e.ContractID,
		FileRef:      e.FileRef,
		RequestedBy:  requestedBy,
	})
	if err != nil {
		zap.S().Named("extraction_service").Errorw("failed to dispatch extraction job",
			"extraction_id", e.ID, "error", err)
		if delErr := s.store.Extraction().Delete(ctx, e.ID); delErr != nil {
			zap.S().Named("extraction_service").Errorw("failed to remove undispatched extraction",
				"extraction_id", e.ID, "error", delErr)
		}
		return fmt.Errorf("failed to dispatch extraction job: %w", err)
	}

	zap.S().Named("extraction_service").Infow("extraction job dispatched",
		"extraction_id", e.ID, "contract_id", e.ContractID, "job_id", jobID)
	return nil
}

// Cancel stops an extraction. It returns false without error when the row is
// already terminal, so a cancel arriving after completion is a no-op rather
// than a failure. The status row is the authority; the river-side cancel is
// advisory.
func (s *ExtractionService) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	e, err := s.store.Extraction().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return false, NewErrExtractionNotFound(id)
		}
		return false, err
	}

	if e.Terminal() {
		return false, nil
	}

	if err := e.Cancel(); err != nil {
		return false, err
	}
	if _, err := s.store.Extraction().Update(ctx, e); err != nil {
		if errors.Is(err, store.ErrStaleVersion) {
			// The worker finished first. Treat like cancelling a terminal row.
			return false, nil
		}
		return false, err
	}

	s.cancelDispatchedJob(ctx, id)

	s.auditSink.Append(ctx, audit.CancelledMessageKind, audit.ExtractionEvent{
		ExtractionID: e.ID.String(),
		ContractID:   e.ContractID.String(),
		Status:       string(model.ExtractionStatusCancelled),
		OccurredAt:   time.Now(),
	})
	metrics.ObserveExtractionFinished(string(model.ExtractionStatusCancelled), 0)

	return true, nil
}

func (s *ExtractionService) cancelDispatchedJob(ctx context.Context, extractionID uuid.UUID) {
	if s.riverJobs == nil {
		return
	}

	jobID, err := s.riverJobs.GetJob(ctx, extractionID)
	if err != nil || jobID == nil {
		if err != nil {
			zap.S().Named("extraction_service").Warnw("failed to look up river job", "extraction_id", extractionID, "error", err)
		}
		return
	}

	if err := s.dispatcher.CancelJob(ctx, *jobID); err != nil {
		zap.S().Named("extraction_service").Warnw("failed to cancel river job",
			"extraction_id", extractionID, "job_id", *jobID, "error", err)
	}
}

// StatusInfo is the status projection served to clients.
type StatusInfo struct {
	ExtractionID uuid.UUID
	ContractID   uuid.UUID
	Status       model.ExtractionStatus
	ErrorMessage *string
	Result       *model.ResultSummary
	ClauseCount  int64
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

func (s *ExtractionService) GetStatus(ctx context.Context, id uuid.UUID) (*StatusInfo, error) {
	e, err := s.store.Extraction().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrExtractionNotFound(id)
		}
		return nil, err
	}
	return s.toStatusInfo(ctx, e)
}

func (s *ExtractionService) GetStatusByContract(ctx context.Context, contractID uuid.UUID) (*StatusInfo, error) {
	e, err := s.store.Extraction().FindActiveByContract(ctx, contractID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrContractHasNoExtraction(contractID)
		}
		return nil, err
	}
	return s.toStatusInfo(ctx, e)
}

func (s *ExtractionService) toStatusInfo(ctx context.Context, e *model.Extraction) (*StatusInfo, error) {
	info := &StatusInfo{
		ExtractionID: e.ID,
		ContractID:   e.ContractID,
		Status:       e.Status,
		ErrorMessage: e.ErrorMessage,
		CreatedAt:    e.CreatedAt,
		StartedAt:    e.StartedAt,
		CompletedAt:  e.CompletedAt,
	}
	if e.Result != nil {
		result := e.Result.Data
		info.Result = &result
	}

	count, err := s.store.Clause().CountByExtraction(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	info.ClauseCount = count

	return info, nil
}

func (s *ExtractionService) ListClauses(ctx context.Context, extractionID uuid.UUID) (model.ClauseList, error) {
	if _, err := s.store.Extraction().Get(ctx, extractionID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrExtractionNotFound(extractionID)
		}
		return nil, err
	}

	return s.store.Clause().List(ctx, store.NewClauseQueryFilter().ByExtractionID(extractionID))
}

type ReanalyzeClauseRequest struct {
	Confidence  *float64
	RiskLevel   string
	Entities    []byte
	RiskFactors []byte
}

// ReanalyzeClause overwrites a clause's analytical fields after a manual
// review. Identity and content never change here.
func (s *ExtractionService) ReanalyzeClause(ctx context.Context, clauseID uuid.UUID, request ReanalyzeClauseRequest) (*model.Clause, error) {
	level := model.ParseRiskLevel(request.RiskLevel)
	if level == model.RiskLevelUnknown && !strings.EqualFold(strings.TrimSpace(request.RiskLevel), string(model.RiskLevelUnknown)) {
		return nil, NewErrInvalidRiskLevel(request.RiskLevel)
	}

	clause, err := s.store.Clause().UpdateAnalysis(ctx, clauseID, request.Confidence, request.Entities, level, request.RiskFactors)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrClauseNotFound(clauseID)
		}
		return nil, err
	}
	return clause, nil
}
