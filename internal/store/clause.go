package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contracthub/extraction-service/internal/store/model"
)

type Clause interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Clause, error)
	List(ctx context.Context, filter *ClauseQueryFilter) (model.ClauseList, error)
	CountByExtraction(ctx context.Context, extractionID uuid.UUID) (int64, error)
	CreateBatch(ctx context.Context, clauses []model.Clause) error
	UpdateAnalysis(ctx context.Context, id uuid.UUID, confidence *float64, entities []byte, riskLevel model.RiskLevel, riskFactors []byte) (*model.Clause, error)
	DeleteByExtraction(ctx context.Context, extractionID uuid.UUID) error
}

type ClauseStore struct {
	db *gorm.DB
}

// Make sure we conform to Clause interface
var _ Clause = (*ClauseStore)(nil)

func NewClauseStore(db *gorm.DB) Clause {
	return &ClauseStore{db: db}
}

func (s *ClauseStore) Get(ctx context.Context, id uuid.UUID) (*model.Clause, error) {
	var c model.Clause
	result := s.getDB(ctx).First(&c, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &c, nil
}

func (s *ClauseStore) List(ctx context.Context, filter *ClauseQueryFilter) (model.ClauseList, error) {
	var clauses model.ClauseList
	tx := s.getDB(ctx).Model(&clauses).Order("created_at ASC")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	result := tx.Find(&clauses)
	if result.Error != nil {
		return nil, result.Error
	}
	return clauses, nil
}

func (s *ClauseStore) CountByExtraction(ctx context.Context, extractionID uuid.UUID) (int64, error) {
	var count int64
	result := s.getDB(ctx).Model(&model.Clause{}).
		Where("extraction_id = ?", extractionID).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

func (s *ClauseStore) CreateBatch(ctx context.Context, clauses []model.Clause) error {
	if len(clauses) == 0 {
		return nil
	}
	return s.getDB(ctx).CreateInBatches(clauses, 100).Error
}

// UpdateAnalysis overwrites the analytical fields of a clause while keeping
// its identity and content. Used by manual re-analysis.
func (s *ClauseStore) UpdateAnalysis(ctx context.Context, id uuid.UUID, confidence *float64, entities []byte, riskLevel model.RiskLevel, riskFactors []byte) (*model.Clause, error) {
	var c model.Clause
	if err := s.getDB(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	updates := map[string]any{
		"confidence":   confidence,
		"entities":     entities,
		"risk_level":   riskLevel,
		"risk_factors": riskFactors,
	}
	if err := s.getDB(ctx).Model(&c).Updates(updates).Error; err != nil {
		return nil, err
	}

	c.Confidence = confidence
	c.Entities = entities
	c.RiskLevel = riskLevel
	c.RiskFactors = riskFactors
	return &c, nil
}

func (s *ClauseStore) DeleteByExtraction(ctx context.Context, extractionID uuid.UUID) error {
	result := s.getDB(ctx).Delete(&model.Clause{}, "extraction_id = ?", extractionID)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return nil
}

func (s *ClauseStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
