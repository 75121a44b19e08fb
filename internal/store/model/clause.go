package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ClauseType string

const (
	ClauseTypePayment           ClauseType = "payment"
	ClauseTypeDelivery          ClauseType = "delivery"
	ClauseTypeBreach            ClauseType = "breach"
	ClauseTypeConfidentiality   ClauseType = "confidentiality"
	ClauseTypeIP                ClauseType = "ip"
	ClauseTypeDisputeResolution ClauseType = "dispute_resolution"
	ClauseTypeForceMajeure      ClauseType = "force_majeure"
	ClauseTypeTermination       ClauseType = "termination"
	ClauseTypeWarranty          ClauseType = "warranty"
	ClauseTypeIndemnity         ClauseType = "indemnity"
	ClauseTypeOther             ClauseType = "other"
)

type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
	RiskLevelUnknown  RiskLevel = "unknown"
)

var clauseTypes = map[string]ClauseType{
	"payment":            ClauseTypePayment,
	"delivery":           ClauseTypeDelivery,
	"breach":             ClauseTypeBreach,
	"confidentiality":    ClauseTypeConfidentiality,
	"ip":                 ClauseTypeIP,
	"dispute_resolution": ClauseTypeDisputeResolution,
	"force_majeure":      ClauseTypeForceMajeure,
	"termination":        ClauseTypeTermination,
	"warranty":           ClauseTypeWarranty,
	"indemnity":          ClauseTypeIndemnity,
	"other":              ClauseTypeOther,
}

var riskLevels = map[string]RiskLevel{
	"low":      RiskLevelLow,
	"medium":   RiskLevelMedium,
	"high":     RiskLevelHigh,
	"critical": RiskLevelCritical,
	"unknown":  RiskLevelUnknown,
}

// ParseClauseType maps a raw type string to the closed enumeration.
// The match is case-insensitive and anything unrecognized degrades to other.
func ParseClauseType(raw string) ClauseType {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	if t, ok := clauseTypes[key]; ok {
		return t
	}
	return ClauseTypeOther
}

// ParseRiskLevel maps a raw risk string to the closed enumeration,
// degrading to unknown instead of failing.
func ParseRiskLevel(raw string) RiskLevel {
	if l, ok := riskLevels[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return l
	}
	return RiskLevelUnknown
}

// Clause is one extracted contractual provision. Rows are written in bulk by
// the extraction worker and are immutable afterwards, except for the
// analytical fields which a manual re-analysis may overwrite.
type Clause struct {
	ID           uuid.UUID  `gorm:"primaryKey;type:TEXT"`
	ExtractionID uuid.UUID  `gorm:"not null;type:TEXT;index:clauses_extraction_id_idx"`
	ContractID   uuid.UUID  `gorm:"not null;type:TEXT;index:clauses_contract_id_idx"`
	Type         ClauseType `gorm:"not null;type:VARCHAR(30)"`
	Title        *string
	Content      string    `gorm:"not null"`
	Positions    []byte    `gorm:"type:jsonb"`
	Confidence   *float64  // 0-100, normalized by the parser
	Entities     []byte    `gorm:"type:jsonb"`
	RiskLevel    RiskLevel `gorm:"not null;type:VARCHAR(20);default:'unknown'"`
	RiskFactors  []byte    `gorm:"type:jsonb"`
	CreatedAt    time.Time `gorm:"not null;default:now()"`
}

type ClauseList []Clause

func (c Clause) String() string {
	val, _ := json.Marshal(c)
	return string(val)
}
