package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/contracthub/extraction-service/internal/service"
	"github.com/contracthub/extraction-service/internal/store/model"
	"github.com/contracthub/extraction-service/pkg/requestid"
)

type ServiceHandler struct {
	extractionSrv *service.ExtractionService
	validate      *validator.Validate
}

func NewServiceHandler(extractionSrv *service.ExtractionService) *ServiceHandler {
	return &ServiceHandler{
		extractionSrv: extractionSrv,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *ServiceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/contracts/{contractId}/extractions", h.TriggerExtraction)
		r.Get("/contracts/{contractId}/extraction", h.GetExtractionByContract)
		r.Get("/extractions/{id}", h.GetExtraction)
		r.Delete("/extractions/{id}", h.CancelExtraction)
		r.Get("/extractions/{id}/clauses", h.ListClauses)
		r.Put("/clauses/{id}/analysis", h.ReanalyzeClause)
	})
}

func (h *ServiceHandler) TriggerExtraction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contractID, err := uuid.Parse(chi.URLParam(r, "contractId"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid contract id: %v", err))
		return
	}

	var body TriggerExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := h.validate.Struct(body); err != nil {
		h.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	result, err := h.extractionSrv.Trigger(ctx, service.TriggerRequest{
		ContractID:  contractID,
		FileRef:     body.FileRef,
		RequestedBy: body.RequestedBy,
	})
	if err != nil {
		var inFlight *service.ErrExtractionInFlight
		if errors.As(err, &inFlight) {
			h.renderError(w, r, http.StatusConflict, err.Error())
			return
		}
		zap.S().Named("extraction_handler").Errorw("trigger failed", "contract_id", contractID, "error", err)
		h.renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to trigger extraction: %v", err))
		return
	}

	info, err := h.extractionSrv.GetStatus(ctx, result.Extraction.ID)
	if err != nil {
		zap.S().Named("extraction_handler").Errorw("status read-back failed", "extraction_id", result.Extraction.ID, "error", err)
		h.renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to read extraction: %v", err))
		return
	}

	status := http.StatusCreated
	if result.Outcome == service.TriggerOutcomeReused {
		status = http.StatusOK
	}
	render.Status(r, status)
	render.JSON(w, r, statusToReply(info, result.Outcome))
}

func (h *ServiceHandler) GetExtraction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid extraction id: %v", err))
		return
	}

	info, err := h.extractionSrv.GetStatus(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, err, "failed to get extraction")
		return
	}

	render.JSON(w, r, statusToReply(info, ""))
}

func (h *ServiceHandler) GetExtractionByContract(w http.ResponseWriter, r *http.Request) {
	contractID, err := uuid.Parse(chi.URLParam(r, "contractId"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid contract id: %v", err))
		return
	}

	info, err := h.extractionSrv.GetStatusByContract(r.Context(), contractID)
	if err != nil {
		h.renderServiceError(w, r, err, "failed to get extraction")
		return
	}

	render.JSON(w, r, statusToReply(info, ""))
}

func (h *ServiceHandler) CancelExtraction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid extraction id: %v", err))
		return
	}

	cancelled, err := h.extractionSrv.Cancel(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, err, "failed to cancel extraction")
		return
	}

	if !cancelled {
		h.renderError(w, r, http.StatusConflict, fmt.Sprintf("extraction %s is already finished", id))
		return
	}

	info, err := h.extractionSrv.GetStatus(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, err, "failed to read extraction")
		return
	}
	render.JSON(w, r, statusToReply(info, ""))
}

func (h *ServiceHandler) ListClauses(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid extraction id: %v", err))
		return
	}

	clauses, err := h.extractionSrv.ListClauses(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, err, "failed to list clauses")
		return
	}

	render.JSON(w, r, clausesToReply(clauses))
}

func (h *ServiceHandler) ReanalyzeClause(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid clause id: %v", err))
		return
	}

	var body ReanalyzeClauseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := h.validate.Struct(body); err != nil {
		h.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	request := service.ReanalyzeClauseRequest{
		Confidence: body.Confidence,
		RiskLevel:  body.RiskLevel,
	}
	if body.Entities != nil {
		if request.Entities, err = json.Marshal(body.Entities); err != nil {
			h.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid entities: %v", err))
			return
		}
	}
	if body.RiskFactors != nil {
		if request.RiskFactors, err = json.Marshal(body.RiskFactors); err != nil {
			h.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid risk factors: %v", err))
			return
		}
	}

	clause, err := h.extractionSrv.ReanalyzeClause(r.Context(), id, request)
	if err != nil {
		var invalid *service.ErrInvalidRiskLevel
		if errors.As(err, &invalid) {
			h.renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		h.renderServiceError(w, r, err, "failed to re-analyze clause")
		return
	}

	render.JSON(w, r, clauseToReply(*clause))
}

func (h *ServiceHandler) renderServiceError(w http.ResponseWriter, r *http.Request, err error, message string) {
	var notFound *service.ErrResourceNotFound
	var noExtraction *service.ErrContractHasNoExtraction
	var transition *model.InvalidTransitionError

	switch {
	case errors.As(err, &notFound), errors.As(err, &noExtraction):
		h.renderError(w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &transition):
		h.renderError(w, r, http.StatusBadRequest, err.Error())
	default:
		zap.S().Named("extraction_handler").Errorw(message, "error", err)
		h.renderError(w, r, http.StatusInternalServerError, fmt.Sprintf("%s: %v", message, err))
	}
}

func (h *ServiceHandler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorReply{Message: message, RequestID: requestid.FromContextPtr(r.Context())})
}
