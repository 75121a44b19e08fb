package store

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contracthub/extraction-service/internal/store/model"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type ExtractionQueryFilter BaseQuerier

func NewExtractionQueryFilter() *ExtractionQueryFilter {
	return &ExtractionQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *ExtractionQueryFilter) ByContractID(contractID uuid.UUID) *ExtractionQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("contract_id = ?", contractID)
	})
	return qf
}

func (qf *ExtractionQueryFilter) ByStatus(statuses ...model.ExtractionStatus) *ExtractionQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status IN ?", statuses)
	})
	return qf
}

type ClauseQueryFilter BaseQuerier

func NewClauseQueryFilter() *ClauseQueryFilter {
	return &ClauseQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *ClauseQueryFilter) ByExtractionID(extractionID uuid.UUID) *ClauseQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("extraction_id = ?", extractionID)
	})
	return qf
}

func (qf *ClauseQueryFilter) ByContractID(contractID uuid.UUID) *ClauseQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("contract_id = ?", contractID)
	})
	return qf
}

func (qf *ClauseQueryFilter) ByType(t model.ClauseType) *ClauseQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("type = ?", t)
	})
	return qf
}

func (qf *ClauseQueryFilter) ByRiskLevel(level model.RiskLevel) *ClauseQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("risk_level = ?", level)
	})
	return qf
}
