package narrative

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies the kind of narrative being generated.
type Type string

const (
	TypeStatisticalTest  Type = "statistical_test"
	TypeDataSummary      Type = "data_summary"
	TypeVisualization    Type = "visualization"
	TypeExecutiveSummary Type = "executive_summary"
)

// Method identifies how a narrative was generated. Template generation is
// the bottom tier; every other method falls back to it on failure.
type Method string

const (
	MethodTemplate Method = "template"
	MethodCloudAI  Method = "cloud_ai"
	MethodLocalAI  Method = "local_ai"
	MethodHybrid   Method = "hybrid"
)

// Priority orders insights from contextual to action-required.
type Priority int

const (
	PriorityInfo Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

var priorityNames = map[Priority]string{
	PriorityInfo:     "info",
	PriorityLow:      "low",
	PriorityMedium:   "medium",
	PriorityHigh:     "high",
	PriorityCritical: "critical",
}

func (p Priority) String() string {
	if s, ok := priorityNames[p]; ok {
		return s
	}
	return "info"
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for k, v := range priorityNames {
		if v == s {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown priority %q", s)
}

// Confidence orders the strength of evidence behind an insight.
type Confidence int

const (
	ConfidenceUnknown Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

var confidenceNames = map[Confidence]string{
	ConfidenceUnknown: "unknown",
	ConfidenceLow:     "low",
	ConfidenceMedium:  "medium",
	ConfidenceHigh:    "high",
}

func (c Confidence) String() string {
	if s, ok := confidenceNames[c]; ok {
		return s
	}
	return "unknown"
}

func (c Confidence) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Confidence) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for k, v := range confidenceNames {
		if v == s {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown confidence %q", s)
}

// Request is the closed set of narrative request variants. Requests are
// immutable once handed to the Assembler.
type Request interface {
	NarrativeType() Type
	// Options returns the generation preferences shared by all variants.
	Options() RequestOptions
	// contextFields returns the flat field map used for template rendering
	// and request hashing. Optional fields absent from the request are
	// omitted from the map.
	contextFields() map[string]any
}

// RequestOptions carries generation preferences common to all variants.
type RequestOptions struct {
	Method  Method         `json:"generation_method,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// StatisticalTestRequest carries the facts needed to narrate one
// statistical test result.
type StatisticalTestRequest struct {
	TestName                string         `json:"test_name"`
	TestStatistic           float64        `json:"test_statistic"`
	PValue                  float64        `json:"p_value"`
	DegreesOfFreedom        *float64       `json:"degrees_of_freedom,omitempty"`
	EffectSize              *float64       `json:"effect_size,omitempty"`
	SampleSize              int            `json:"sample_size"`
	ConfidenceIntervalLower *float64       `json:"confidence_interval_lower,omitempty"`
	ConfidenceIntervalUpper *float64       `json:"confidence_interval_upper,omitempty"`
	Columns                 []string       `json:"columns,omitempty"`
	GroupStatistics         map[string]any `json:"group_statistics,omitempty"`
	Opts                    RequestOptions `json:"options,omitempty"`
}

func (r *StatisticalTestRequest) NarrativeType() Type    { return TypeStatisticalTest }
func (r *StatisticalTestRequest) Options() RequestOptions { return r.Opts }

func (r *StatisticalTestRequest) contextFields() map[string]any {
	ctx := map[string]any{
		"test_name":      r.TestName,
		"test_statistic": r.TestStatistic,
		"p_value":        r.PValue,
		"sample_size":    r.SampleSize,
	}
	if r.DegreesOfFreedom != nil {
		ctx["degrees_of_freedom"] = *r.DegreesOfFreedom
	}
	if r.EffectSize != nil {
		ctx["effect_size"] = *r.EffectSize
	}
	if r.ConfidenceIntervalLower != nil {
		ctx["confidence_interval_lower"] = *r.ConfidenceIntervalLower
	}
	if r.ConfidenceIntervalUpper != nil {
		ctx["confidence_interval_upper"] = *r.ConfidenceIntervalUpper
	}
	if len(r.Columns) > 0 {
		ctx["columns"] = r.Columns
	}
	if len(r.GroupStatistics) > 0 {
		ctx["group_statistics"] = r.GroupStatistics
	}
	return ctx
}

// DataSummaryRequest carries the profile of one dataset.
type DataSummaryRequest struct {
	TotalRows          int                           `json:"total_rows"`
	TotalColumns       int                           `json:"total_columns"`
	MissingValues      map[string]int                `json:"missing_values,omitempty"`
	ColumnTypes        map[string]string             `json:"column_types,omitempty"`
	NumericSummary     map[string]map[string]float64 `json:"numeric_summary,omitempty"`
	CategoricalSummary map[string]map[string]int     `json:"categorical_summary,omitempty"`
	OutliersDetected   map[string]int                `json:"outliers_detected,omitempty"`
	DataQualityScore   *float64                      `json:"data_quality_score,omitempty"`
	Opts               RequestOptions                `json:"options,omitempty"`
}

func (r *DataSummaryRequest) NarrativeType() Type    { return TypeDataSummary }
func (r *DataSummaryRequest) Options() RequestOptions { return r.Opts }

func (r *DataSummaryRequest) contextFields() map[string]any {
	ctx := map[string]any{
		"total_rows":    r.TotalRows,
		"total_columns": r.TotalColumns,
	}
	if len(r.MissingValues) > 0 {
		ctx["missing_values"] = r.MissingValues
	}
	if len(r.ColumnTypes) > 0 {
		ctx["column_types"] = r.ColumnTypes
	}
	if len(r.NumericSummary) > 0 {
		ctx["numeric_summary"] = r.NumericSummary
	}
	if len(r.CategoricalSummary) > 0 {
		ctx["categorical_summary"] = r.CategoricalSummary
	}
	if len(r.OutliersDetected) > 0 {
		ctx["outliers_detected"] = r.OutliersDetected
	}
	if r.DataQualityScore != nil {
		ctx["data_quality_score"] = *r.DataQualityScore
	}
	return ctx
}

// VisualizationRequest carries the facts describing one rendered chart.
type VisualizationRequest struct {
	ChartType         string         `json:"chart_type"`
	XColumn           string         `json:"x_column,omitempty"`
	YColumn           string         `json:"y_column,omitempty"`
	GroupingColumn    string         `json:"grouping_column,omitempty"`
	SummaryStatistics map[string]any `json:"summary_statistics,omitempty"`
	PatternsDetected  []string       `json:"patterns_detected,omitempty"`
	Opts              RequestOptions `json:"options,omitempty"`
}

func (r *VisualizationRequest) NarrativeType() Type    { return TypeVisualization }
func (r *VisualizationRequest) Options() RequestOptions { return r.Opts }

func (r *VisualizationRequest) contextFields() map[string]any {
	ctx := map[string]any{
		"chart_type": r.ChartType,
	}
	if r.XColumn != "" {
		ctx["x_column"] = r.XColumn
	}
	if r.YColumn != "" {
		ctx["y_column"] = r.YColumn
	}
	if r.GroupingColumn != "" {
		ctx["grouping_column"] = r.GroupingColumn
	}
	if len(r.SummaryStatistics) > 0 {
		ctx["summary_statistics"] = r.SummaryStatistics
	}
	if len(r.PatternsDetected) > 0 {
		ctx["patterns_detected"] = r.PatternsDetected
	}
	return ctx
}

// Insight is a single structured finding extracted from request data.
// Title doubles as the identity key during cross-narrative deduplication.
type Insight struct {
	Title                   string         `json:"title"`
	Description             string         `json:"description"`
	Priority                Priority       `json:"priority"`
	Confidence              Confidence     `json:"confidence"`
	Evidence                map[string]any `json:"evidence,omitempty"`
	Recommendations         []string       `json:"recommendations,omitempty"`
	RelatedColumns          []string       `json:"related_columns,omitempty"`
	StatisticalSignificance *bool          `json:"statistical_significance,omitempty"`
}

// Section is one structural unit of a rendered narrative.
type Section struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	SectionType string    `json:"section_type"`
	Insights    []Insight `json:"insights"`
}

// Section type tags.
const (
	SectionOverview        = "overview"
	SectionAnalysis        = "analysis"
	SectionRecommendations = "recommendations"
	SectionInterpretation  = "interpretation"
	SectionSummary         = "summary"
	SectionGeneral         = "general"
)

// Metadata describes how and when a narrative was produced.
type Metadata struct {
	GeneratedAt      time.Time `json:"generated_at"`
	GenerationMethod Method    `json:"generation_method"`
	GenerationTimeMs int64     `json:"generation_time_ms"`
	ModelVersion     string    `json:"model_version,omitempty"`
	TemplateVersion  string    `json:"template_version,omitempty"`
	SourceDataHash   string    `json:"source_data_hash,omitempty"`
	QualityScore     *float64  `json:"quality_score,omitempty"`
}

// Narrative is the structured explanation produced for one request.
type Narrative struct {
	NarrativeType   Type      `json:"narrative_type"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary"`
	Content         string    `json:"content"`
	Sections        []Section `json:"sections"`
	KeyInsights     []Insight `json:"key_insights"`
	Recommendations []string  `json:"recommendations"`
	Metadata        Metadata  `json:"metadata"`
}

// BatchResult aggregates the narratives produced for a batch of requests.
// Narratives preserves request order.
type BatchResult struct {
	Narratives            []*Narrative `json:"narratives"`
	CombinedInsights      []Insight    `json:"combined_insights,omitempty"`
	ExecutiveSummary      string       `json:"executive_summary,omitempty"`
	TotalGenerationTimeMs int64        `json:"total_generation_time_ms"`
}
