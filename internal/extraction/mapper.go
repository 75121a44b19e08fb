package extraction

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/contracthub/extraction-service/internal/store/model"
)

// MapClauses converts parsed clauses into persistable rows.
//
// A clause without content is dropped: the content column is NOT NULL and an
// empty provision is useless to reviewers. Serialization of the auxiliary
// blobs is independent per blob, so a single unmarshalable sub-object only
// costs that sub-object.
func MapClauses(extractionID, contractID uuid.UUID, parsed []ParsedClause) []model.Clause {
	clauses := make([]model.Clause, 0, len(parsed))

	for _, p := range parsed {
		if strings.TrimSpace(p.Content) == "" {
			zap.S().Named("extraction").Warnw("dropping clause without content", "parsed_clause_id", p.ID)
			continue
		}

		c := model.Clause{
			ID:           uuid.New(),
			ExtractionID: extractionID,
			ContractID:   contractID,
			Type:         model.ParseClauseType(p.Type),
			Content:      p.Content,
			Confidence:   p.Confidence,
			RiskLevel:    model.ParseRiskLevel(p.RiskLevel),
		}

		if p.Title != "" {
			title := p.Title
			c.Title = &title
		}

		if len(p.Positions) > 0 {
			c.Positions = marshalBlob("positions", p.ID, p.Positions)
		}
		if len(p.Entities) > 0 {
			c.Entities = marshalBlob("entities", p.ID, p.Entities)
		}
		if len(p.RiskFactors) > 0 {
			c.RiskFactors = marshalBlob("risk_factors", p.ID, p.RiskFactors)
		}

		clauses = append(clauses, c)
	}

	return clauses
}

func marshalBlob(field, clauseID string, value any) []byte {
	data, err := json.Marshal(value)
	if err != nil {
		zap.S().Named("extraction").Warnw("failed to serialize clause blob, omitting it",
			"field", field, "parsed_clause_id", clauseID, "error", err)
		return nil
	}
	return data
}
