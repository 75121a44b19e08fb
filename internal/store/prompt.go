package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/contracthub/extraction-service/internal/store/model"
)

type Prompt interface {
	FindEnabledByName(ctx context.Context, name string) (*model.PromptTemplate, error)
	Create(ctx context.Context, template model.PromptTemplate) (*model.PromptTemplate, error)
	Upsert(ctx context.Context, template model.PromptTemplate) error
}

type PromptStore struct {
	db *gorm.DB
}

// Make sure we conform to Prompt interface
var _ Prompt = (*PromptStore)(nil)

func NewPromptStore(db *gorm.DB) Prompt {
	return &PromptStore{db: db}
}

func (s *PromptStore) FindEnabledByName(ctx context.Context, name string) (*model.PromptTemplate, error) {
	var template model.PromptTemplate
	result := s.getDB(ctx).First(&template, "name = ? AND enabled = ?", name, true)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &template, nil
}

func (s *PromptStore) Create(ctx context.Context, template model.PromptTemplate) (*model.PromptTemplate, error) {
	result := s.getDB(ctx).Create(&template)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &template, nil
}

// Upsert is used at startup to seed the default extraction prompt.
func (s *PromptStore) Upsert(ctx context.Context, template model.PromptTemplate) error {
	return s.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "enabled"}),
	}).Create(&template).Error
}

func (s *PromptStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
