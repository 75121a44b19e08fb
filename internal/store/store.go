package store

import (
	"context"

	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Extraction() Extraction
	Clause() Clause
	Prompt() Prompt
	Close() error
}

type DataStore struct {
	db         *gorm.DB
	extraction Extraction
	clause     Clause
	prompt     Prompt
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:         db,
		extraction: NewExtractionStore(db),
		clause:     NewClauseStore(db),
		prompt:     NewPromptStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Extraction() Extraction {
	return s.extraction
}

func (s *DataStore) Clause() Clause {
	return s.clause
}

func (s *DataStore) Prompt() Prompt {
	return s.prompt
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
