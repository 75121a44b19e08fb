package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/contracthub/extraction-service/internal/store/model"
)

type Extraction interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Extraction, error)
	FindActiveByContract(ctx context.Context, contractID uuid.UUID) (*model.Extraction, error)
	ExistsActive(ctx context.Context, contractID uuid.UUID) (bool, error)
	List(ctx context.Context, filter *ExtractionQueryFilter) (model.ExtractionList, error)
	Create(ctx context.Context, extraction model.Extraction) (*model.Extraction, error)
	Update(ctx context.Context, extraction *model.Extraction) (*model.Extraction, error)
	ListStaleProcessing(ctx context.Context, olderThan time.Time) (model.ExtractionList, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ExtractionStore struct {
	db *gorm.DB
}

// Make sure we conform to Extraction interface
var _ Extraction = (*ExtractionStore)(nil)

func NewExtractionStore(db *gorm.DB) Extraction {
	return &ExtractionStore{db: db}
}

func (s *ExtractionStore) Get(ctx context.Context, id uuid.UUID) (*model.Extraction, error) {
	var extraction model.Extraction
	result := s.getDB(ctx).First(&extraction, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &extraction, nil
}

// FindActiveByContract returns the contract's current extraction, terminal or
// not. Soft-deleted rows are excluded by gorm.
func (s *ExtractionStore) FindActiveByContract(ctx context.Context, contractID uuid.UUID) (*model.Extraction, error) {
	var extraction model.Extraction
	result := s.getDB(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at DESC").
		First(&extraction)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &extraction, nil
}

// ExistsActive reports whether the contract has a non-terminal extraction.
func (s *ExtractionStore) ExistsActive(ctx context.Context, contractID uuid.UUID) (bool, error) {
	var count int64
	result := s.getDB(ctx).Model(&model.Extraction{}).
		Where("contract_id = ? AND status IN ?", contractID, model.ActiveStatuses).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

func (s *ExtractionStore) List(ctx context.Context, filter *ExtractionQueryFilter) (model.ExtractionList, error) {
	var extractions model.ExtractionList
	tx := s.getDB(ctx).Model(&extractions).Order("created_at DESC")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	result := tx.Find(&extractions)
	if result.Error != nil {
		return nil, result.Error
	}
	return extractions, nil
}

func (s *ExtractionStore) Create(ctx context.Context, extraction model.Extraction) (*model.Extraction, error) {
	result := s.getDB(ctx).Clauses(clause.Returning{}).Create(&extraction)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &extraction, nil
}

// Update persists the extraction's mutable fields guarded by the optimistic
// version counter. A write based on a stale version returns ErrStaleVersion,
// distinct from ErrRecordNotFound, and callers retry by re-reading.
func (s *ExtractionStore) Update(ctx context.Context, extraction *model.Extraction) (*model.Extraction, error) {
	readVersion := extraction.Version
	now := time.Now()

	updates := map[string]any{
		"status":        extraction.Status,
		"error_message": extraction.ErrorMessage,
		"result":        extraction.Result,
		"started_at":    extraction.StartedAt,
		"completed_at":  extraction.CompletedAt,
		"version":       readVersion + 1,
		"updated_at":    &now,
	}

	result := s.getDB(ctx).Model(&model.Extraction{}).
		Where("id = ? AND version = ?", extraction.ID, readVersion).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := s.Get(ctx, extraction.ID); err != nil {
			return nil, err
		}
		return nil, ErrStaleVersion
	}

	extraction.Version = readVersion + 1
	extraction.UpdatedAt = &now
	return extraction, nil
}

// ListStaleProcessing returns processing rows whose run started before the
// given deadline. Used by the reaper to fail stuck extractions.
func (s *ExtractionStore) ListStaleProcessing(ctx context.Context, olderThan time.Time) (model.ExtractionList, error) {
	var extractions model.ExtractionList
	result := s.getDB(ctx).
		Where("status = ? AND started_at < ?", model.ExtractionStatusProcessing, olderThan).
		Find(&extractions)
	if result.Error != nil {
		return nil, result.Error
	}
	return extractions, nil
}

func (s *ExtractionStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).Delete(&model.Extraction{}, "id = ?", id)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return nil
}

func (s *ExtractionStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
