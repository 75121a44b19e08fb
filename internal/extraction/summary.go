package extraction

import (
	"time"

	"github.com/contracthub/extraction-service/internal/store/model"
)

// Summarize folds a parse result into the flat legacy summary stored on the
// extraction row. Status queries read this projection; the clause table holds
// the detailed one.
func Summarize(result *ParseResult, modelName string) model.ResultSummary {
	summary := model.ResultSummary{
		ClauseCount: len(result.Clauses),
		ModelName:   modelName,
		AnalyzedAt:  time.Now(),
	}

	if result.DocumentInfo != nil {
		for _, p := range result.DocumentInfo.Parties {
			if p.Name != "" {
				summary.Parties = append(summary.Parties, p.Name)
			}
		}
	}

	var confidenceSum float64
	var confidenceCount int
	for _, c := range result.Clauses {
		label := c.Title
		if label == "" {
			label = string(model.ParseClauseType(c.Type))
		}
		summary.KeyClauses = append(summary.KeyClauses, label)

		switch model.ParseRiskLevel(c.RiskLevel) {
		case model.RiskLevelHigh, model.RiskLevelCritical:
			summary.RiskClauses = append(summary.RiskClauses, label)
		}

		if c.Confidence != nil {
			confidenceSum += *c.Confidence
			confidenceCount++
		}
	}

	if confidenceCount > 0 {
		summary.OverallConfidence = confidenceSum / float64(confidenceCount)
	}

	return summary
}
