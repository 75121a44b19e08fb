package handlers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/contracthub/extraction-service/internal/service"
	"github.com/contracthub/extraction-service/internal/store/model"
)

// TriggerExtractionRequest is the body of POST /contracts/{contractId}/extractions.
type TriggerExtractionRequest struct {
	FileRef     string `json:"file_ref" validate:"required,min=1,max=1024"`
	RequestedBy string `json:"requested_by" validate:"omitempty,max=255"`
}

type ExtractionReply struct {
	ID           uuid.UUID            `json:"id"`
	ContractID   uuid.UUID            `json:"contract_id"`
	Status       string               `json:"status"`
	Outcome      string               `json:"outcome,omitempty"`
	ErrorMessage *string              `json:"error_message,omitempty"`
	Result       *model.ResultSummary `json:"result,omitempty"`
	ClauseCount  int64                `json:"clause_count"`
	CreatedAt    time.Time            `json:"created_at"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
}

type ClauseReply struct {
	ID          uuid.UUID        `json:"id"`
	Type        model.ClauseType `json:"type"`
	Title       *string          `json:"title,omitempty"`
	Content     string           `json:"content"`
	Confidence  *float64         `json:"confidence,omitempty"`
	RiskLevel   model.RiskLevel  `json:"risk_level"`
	Positions   json.RawMessage  `json:"positions,omitempty"`
	Entities    json.RawMessage  `json:"entities,omitempty"`
	RiskFactors json.RawMessage  `json:"risk_factors,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

type ReanalyzeClauseRequest struct {
	Confidence  *float64       `json:"confidence" validate:"omitempty,gte=0,lte=100"`
	RiskLevel   string         `json:"risk_level" validate:"required"`
	Entities    map[string]any `json:"entities"`
	RiskFactors []string       `json:"risk_factors"`
}

type ErrorReply struct {
	Message   string  `json:"message"`
	RequestID *string `json:"request_id,omitempty"`
}

func statusToReply(info *service.StatusInfo, outcome string) ExtractionReply {
	return ExtractionReply{
		ID:           info.ExtractionID,
		ContractID:   info.ContractID,
		Status:       string(info.Status),
		Outcome:      outcome,
		ErrorMessage: info.ErrorMessage,
		Result:       info.Result,
		ClauseCount:  info.ClauseCount,
		CreatedAt:    info.CreatedAt,
		StartedAt:    info.StartedAt,
		CompletedAt:  info.CompletedAt,
	}
}

func clauseToReply(c model.Clause) ClauseReply {
	return ClauseReply{
		ID:          c.ID,
		Type:        c.Type,
		Title:       c.Title,
		Content:     c.Content,
		Confidence:  c.Confidence,
		RiskLevel:   c.RiskLevel,
		Positions:   c.Positions,
		Entities:    c.Entities,
		RiskFactors: c.RiskFactors,
		CreatedAt:   c.CreatedAt,
	}
}

func clausesToReply(clauses model.ClauseList) []ClauseReply {
	replies := make([]ClauseReply, 0, len(clauses))
	for _, c := range clauses {
		replies = append(replies, clauseToReply(c))
	}
	return replies
}
