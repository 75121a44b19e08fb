package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Parse converts a raw AI response into a ParseResult.
//
// Only the top level is strict: if the blob is not a JSON object the whole
// parse fails and the caller fails the extraction. Inside a parseable object
// every section is decoded independently, so a malformed quality_metrics
// block still leaves the clause list usable.
func Parse(raw string) (*ParseResult, error) {
	cleaned := stripCodeFence(raw)

	var sections map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &sections); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}

	result := &ParseResult{}
	decodeSection(sections, "task_info", &result.TaskInfo)
	decodeSection(sections, "document_info", &result.DocumentInfo)
	decodeSection(sections, "structure", &result.Structure)
	decodeSection(sections, "quality_metrics", &result.QualityMetrics)
	result.Clauses = decodeClauses(sections["clauses"])

	for i := range result.Clauses {
		result.Clauses[i].Confidence = normalizeConfidence(result.Clauses[i].Confidence)
	}

	return result, nil
}

// decodeSection unmarshals one top-level section into dst, leaving dst
// untouched when the section is absent or malformed.
func decodeSection[T any](sections map[string]json.RawMessage, key string, dst **T) {
	raw, ok := sections[key]
	if !ok {
		return
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		zap.S().Named("parser").Warnw("skipping malformed section", "section", key, "error", err)
		return
	}
	*dst = &value
}

// decodeClauses decodes the clause array element by element: one malformed
// clause entry is dropped, the rest survive.
func decodeClauses(raw json.RawMessage) []ParsedClause {
	if raw == nil {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		zap.S().Named("parser").Warnw("clauses section is not an array", "error", err)
		return nil
	}

	clauses := make([]ParsedClause, 0, len(items))
	for i, item := range items {
		var c ParsedClause
		if err := json.Unmarshal(item, &c); err != nil {
			zap.S().Named("parser").Warnw("skipping malformed clause entry", "index", i, "error", err)
			continue
		}
		clauses = append(clauses, c)
	}
	return clauses
}

// normalizeConfidence maps scores to the 0-100 range. Models report either
// fractions (0.92) or percentages (92); fractions are scaled up.
func normalizeConfidence(score *float64) *float64 {
	if score == nil {
		return nil
	}
	v := *score
	if v <= 1.0 {
		v = v * 100
	}
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return &v
}

// stripCodeFence removes a surrounding markdown code fence, which chat models
// frequently wrap JSON answers in.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
