package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/contracthub/extraction-service/internal/ai"
	"github.com/contracthub/extraction-service/internal/audit"
	"github.com/contracthub/extraction-service/internal/extraction"
	"github.com/contracthub/extraction-service/internal/filestore"
	"github.com/contracthub/extraction-service/internal/store"
	"github.com/contracthub/extraction-service/internal/store/model"
	"github.com/contracthub/extraction-service/pkg/metrics"
)

const JobTimeout = 10 * time.Minute

// ExtractWorker runs the extraction pipeline for one dispatched job: fetch
// the document, validate it, ask the model, parse the answer and persist the
// clauses. Every failure ends with a terminal FAILED row, never a retry loop.
type ExtractWorker struct {
	river.WorkerDefaults[ExtractArgs]
	store     store.Store
	files     filestore.FileStore
	gateway   ai.Gateway
	auditSink audit.Sink

	promptName string
	maxPages   int
	modelName  string
}

func NewExtractWorker(
	s store.Store,
	files filestore.FileStore,
	gateway ai.Gateway,
	auditSink audit.Sink,
	promptName string,
	maxPages int,
	modelName string,
) *ExtractWorker {
	return &ExtractWorker{
		store:      s,
		files:      files,
		gateway:    gateway,
		auditSink:  auditSink,
		promptName: promptName,
		maxPages:   maxPages,
		modelName:  modelName,
	}
}

func (w *ExtractWorker) Timeout(job *river.Job[ExtractArgs]) time.Duration {
	return JobTimeout
}

func (w *ExtractWorker) Work(ctx context.Context, job *river.Job[ExtractArgs]) error {
	return w.Run(ctx, job.Args)
}

// Run executes the pipeline outside of River's job envelope. Split from Work
// so tests can drive it directly against an sqlite store.
func (w *ExtractWorker) Run(ctx context.Context, args ExtractArgs) error {
	logger := zap.S().Named("extraction_worker").With("extraction_id", args.ExtractionID, "contract_id", args.ContractID)

	e, err := w.store.Extraction().Get(ctx, args.ExtractionID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			logger.Warn("extraction row is gone, dropping job")
			return nil
		}
		return err
	}

	// The row may have been cancelled between enqueue and pickup.
	if e.Terminal() {
		logger.Infow("extraction already terminal, dropping job", "status", e.Status)
		return nil
	}

	if err := e.StartProcessing(); err != nil {
		logger.Warnw("cannot start processing", "status", e.Status, "error", err)
		return nil
	}
	if e, err = w.store.Extraction().Update(ctx, e); err != nil {
		if errors.Is(err, store.ErrStaleVersion) {
			// Someone raced us, most likely a cancel. Leave the row alone.
			logger.Info("extraction changed under us before start, dropping job")
			return nil
		}
		return err
	}

	startedAt := time.Now()
	if e.StartedAt != nil {
		startedAt = *e.StartedAt
	}

	w.auditSink.Append(ctx, audit.StartedMessageKind, audit.ExtractionEvent{
		ExtractionID: e.ID.String(),
		ContractID:   e.ContractID.String(),
		RequestedBy:  args.RequestedBy,
		Status:       string(model.ExtractionStatusProcessing),
		OccurredAt:   startedAt,
	})

	summary, clauseCount, pipelineErr := w.runPipeline(ctx, e, args)
	if pipelineErr != nil {
		logger.Errorw("extraction pipeline failed", "error", pipelineErr)
	}

	return w.finish(ctx, logger, args, summary, clauseCount, pipelineErr, startedAt)
}

func (w *ExtractWorker) runPipeline(ctx context.Context, e *model.Extraction, args ExtractArgs) (*model.ResultSummary, int, error) {
	data, err := w.files.Resolve(ctx, args.FileRef)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch document %q: %w", args.FileRef, err)
	}

	if err := extraction.ValidateDocument(data, w.maxPages); err != nil {
		return nil, 0, err
	}

	prompt, err := w.store.Prompt().FindEnabledByName(ctx, w.promptName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load prompt template %q: %w", w.promptName, err)
	}

	messages, err := w.gateway.Chat(ctx, prompt.Content, []ai.Attachment{
		{MIMEType: detectMIMEType(data), Data: data},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("AI request failed: %w", err)
	}
	raw := concatMessages(messages)
	if strings.TrimSpace(raw) == "" {
		return nil, 0, errors.New("AI response was empty")
	}

	result, err := extraction.Parse(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse AI response: %w", err)
	}

	clauses := extraction.MapClauses(e.ID, e.ContractID, result.Clauses)
	if len(clauses) > 0 {
		// Best effort. Losing clause rows degrades the result, it does not
		// invalidate the run: the summary on the extraction row survives.
		if err := w.store.Clause().CreateBatch(ctx, clauses); err != nil {
			zap.S().Named("extraction_worker").Errorw("failed to persist clauses",
				"extraction_id", e.ID, "count", len(clauses), "error", err)
		} else {
			metrics.AddClausesPersisted(len(clauses))
		}
	}

	summary := extraction.Summarize(result, w.modelName)
	return &summary, len(clauses), nil
}

// finish applies the terminal transition. The row is re-read first: a cancel
// that landed while the pipeline ran must win over our result.
func (w *ExtractWorker) finish(ctx context.Context, logger *zap.SugaredLogger, args ExtractArgs, summary *model.ResultSummary, clauseCount int, pipelineErr error, startedAt time.Time) error {
	for attempt := 0; attempt < 2; attempt++ {
		e, err := w.store.Extraction().Get(ctx, args.ExtractionID)
		if err != nil {
			return err
		}

		if e.Status == model.ExtractionStatusCancelled {
			logger.Info("extraction was cancelled mid-run, discarding result")
			w.observeFinish(ctx, args, e, clauseCount, startedAt)
			return nil
		}
		if e.Terminal() {
			logger.Infow("extraction already terminal, skipping write", "status", e.Status)
			return nil
		}

		if pipelineErr != nil {
			err = e.Fail(pipelineErr.Error())
		} else {
			err = e.Complete(*summary)
		}
		if err != nil {
			logger.Warnw("terminal transition rejected", "error", err)
			return nil
		}

		if _, err = w.store.Extraction().Update(ctx, e); err != nil {
			if errors.Is(err, store.ErrStaleVersion) {
				continue
			}
			return err
		}

		w.observeFinish(ctx, args, e, clauseCount, startedAt)
		return nil
	}

	return fmt.Errorf("failed to finish extraction %s, row kept changing", args.ExtractionID)
}

func (w *ExtractWorker) observeFinish(ctx context.Context, args ExtractArgs, e *model.Extraction, clauseCount int, startedAt time.Time) {
	duration := time.Since(startedAt)
	metrics.ObserveExtractionFinished(string(e.Status), duration.Seconds())

	event := audit.ExtractionEvent{
		ExtractionID: e.ID.String(),
		ContractID:   e.ContractID.String(),
		RequestedBy:  args.RequestedBy,
		Status:       string(e.Status),
		Duration:     duration,
		OccurredAt:   time.Now(),
	}

	var kind string
	switch e.Status {
	case model.ExtractionStatusCompleted:
		kind = audit.CompletedMessageKind
		event.Summary = fmt.Sprintf("%d clauses extracted", clauseCount)
	case model.ExtractionStatusFailed:
		kind = audit.FailedMessageKind
		if e.ErrorMessage != nil {
			event.ErrorMessage = *e.ErrorMessage
		}
	case model.ExtractionStatusCancelled:
		kind = audit.CancelledMessageKind
	default:
		return
	}

	w.auditSink.Append(ctx, kind, event)
}

func concatMessages(messages []ai.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}

func detectMIMEType(data []byte) string {
	if len(data) > 4 && string(data[:5]) == "%PDF-" {
		return "application/pdf"
	}
	return http.DetectContentType(data)
}
