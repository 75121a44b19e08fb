package extraction

// ParseResult is the transient structured form of one AI response. It is not
// persisted as-is: it is folded into the flat result summary kept on the
// extraction row and expanded into individual clause rows.
//
// Every section is optional. The AI output shape drifts between models and
// prompt revisions, so a missing or malformed section degrades to nil instead
// of failing the parse.
type ParseResult struct {
	TaskInfo       *TaskInfo       `json:"task_info,omitempty"`
	DocumentInfo   *DocumentInfo   `json:"document_info,omitempty"`
	Structure      *Structure      `json:"structure,omitempty"`
	Clauses        []ParsedClause  `json:"clauses,omitempty"`
	QualityMetrics *QualityMetrics `json:"quality_metrics,omitempty"`
}

type TaskInfo struct {
	Quality          string  `json:"quality,omitempty"`
	ProcessingTimeMs float64 `json:"processing_time_ms,omitempty"`
}

type DocumentInfo struct {
	Parties       []Party `json:"parties,omitempty"`
	PageCount     int     `json:"page_count,omitempty"`
	Amount        *Amount `json:"amount,omitempty"`
	SignDate      string  `json:"sign_date,omitempty"`
	EffectiveDate string  `json:"effective_date,omitempty"`
}

type Party struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

type Amount struct {
	Value    float64 `json:"value,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

type Structure struct {
	Chapters []Chapter `json:"chapters,omitempty"`
}

type Chapter struct {
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title,omitempty"`
	PageStart int       `json:"page_start,omitempty"`
	PageEnd   int       `json:"page_end,omitempty"`
	Sections  []Section `json:"sections,omitempty"`
}

type Section struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title,omitempty"`
	PageStart int    `json:"page_start,omitempty"`
	PageEnd   int    `json:"page_end,omitempty"`
}

type ParsedClause struct {
	ID              string         `json:"id,omitempty"`
	Type            string         `json:"type,omitempty"`
	Title           string         `json:"title,omitempty"`
	Content         string         `json:"content,omitempty"`
	Confidence      *float64       `json:"confidence,omitempty"`
	RiskLevel       string         `json:"risk_level,omitempty"`
	Entities        map[string]any `json:"entities,omitempty"`
	RiskFactors     []string       `json:"risk_factors,omitempty"`
	Positions       []Position     `json:"positions,omitempty"`
	RelatedChapters []string       `json:"related_chapters,omitempty"`
}

type Position struct {
	Page int       `json:"page,omitempty"`
	BBox []float64 `json:"bbox,omitempty"`
	Text string    `json:"text,omitempty"`
}

type QualityMetrics struct {
	HighConfidenceCount   int      `json:"high_confidence_count,omitempty"`
	MediumConfidenceCount int      `json:"medium_confidence_count,omitempty"`
	LowConfidenceCount    int      `json:"low_confidence_count,omitempty"`
	OCRAverageConfidence  float64  `json:"ocr_average_confidence,omitempty"`
	StructureAccuracy     float64  `json:"structure_accuracy,omitempty"`
	PagesWithIssues       []int    `json:"pages_with_issues,omitempty"`
	ReviewRecommended     []string `json:"review_recommended,omitempty"`
}
