package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrExtractionNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "extraction")
}

func NewErrClauseNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "clause")
}

type ErrContractHasNoExtraction struct {
	error
}

func NewErrContractHasNoExtraction(contractID uuid.UUID) *ErrContractHasNoExtraction {
	return &ErrContractHasNoExtraction{fmt.Errorf("contract %s has no extraction", contractID)}
}

type ErrExtractionInFlight struct {
	error
}

func NewErrExtractionInFlight(contractID, extractionID uuid.UUID) *ErrExtractionInFlight {
	return &ErrExtractionInFlight{fmt.Errorf("contract %s already has extraction %s in flight", contractID, extractionID)}
}

type ErrInvalidRiskLevel struct {
	error
}

func NewErrInvalidRiskLevel(value string) *ErrInvalidRiskLevel {
	return &ErrInvalidRiskLevel{fmt.Errorf("invalid risk level %q", value)}
}
