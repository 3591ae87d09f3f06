package narrative

import (
	"strings"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestExtractTestInsightsSignificant(t *testing.T) {
	insights := ExtractInsights(&StatisticalTestRequest{
		TestName:      "Independent T-Test",
		TestStatistic: 3.47,
		PValue:        0.001,
		SampleSize:    100,
		EffectSize:    f(0.68),
	})
	if len(insights) != 2 {
		t.Fatalf("got %d insights, want 2", len(insights))
	}

	sig := insights[0]
	if sig.Title != "Statistically Significant Result" {
		t.Errorf("title = %q", sig.Title)
	}
	if sig.Priority != PriorityHigh {
		t.Errorf("priority = %v, want high", sig.Priority)
	}
	if sig.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %v, want high for p < 0.01", sig.Confidence)
	}
	if sig.StatisticalSignificance == nil || !*sig.StatisticalSignificance {
		t.Error("statistical significance flag not set")
	}
	if !strings.Contains(sig.Description, "< 0.001") {
		t.Errorf("description = %q", sig.Description)
	}

	effect := insights[1]
	if effect.Title != "Medium to large Effect Size" {
		t.Errorf("title = %q", effect.Title)
	}
	if effect.Priority != PriorityHigh {
		t.Errorf("effect priority = %v, want high for effect > 0.5", effect.Priority)
	}
}

func TestExtractTestInsightsMediumConfidence(t *testing.T) {
	insights := ExtractInsights(&StatisticalTestRequest{
		TestName:      "ttest",
		TestStatistic: 2.1,
		PValue:        0.03,
		SampleSize:    50,
	})
	if len(insights) != 1 {
		t.Fatalf("got %d insights, want 1", len(insights))
	}
	if insights[0].Confidence != ConfidenceMedium {
		t.Errorf("confidence = %v, want medium for 0.01 <= p < 0.05", insights[0].Confidence)
	}
}

func TestExtractTestInsightsNotSignificant(t *testing.T) {
	insights := ExtractInsights(&StatisticalTestRequest{
		TestName:      "ttest",
		TestStatistic: 0.4,
		PValue:        0.7,
		SampleSize:    30,
		EffectSize:    f(0.1),
	})
	if len(insights) != 1 {
		t.Fatalf("got %d insights, want 1 (effect size only)", len(insights))
	}
	if insights[0].Priority != PriorityMedium {
		t.Errorf("priority = %v, want medium for small effect", insights[0].Priority)
	}
}

func TestExtractSummaryInsightsQualityConcerns(t *testing.T) {
	insights := ExtractInsights(&DataSummaryRequest{
		TotalRows:        1000,
		TotalColumns:     10,
		MissingValues:    map[string]int{"age": 150},
		DataQualityScore: f(0.45),
	})
	if len(insights) != 2 {
		t.Fatalf("got %d insights, want 2", len(insights))
	}

	quality := insights[0]
	if quality.Title != "Data Quality Concerns" {
		t.Errorf("title = %q", quality.Title)
	}
	if quality.Priority != PriorityCritical {
		t.Errorf("priority = %v, want critical for score < 0.5", quality.Priority)
	}
	if len(quality.Recommendations) == 0 {
		t.Error("quality insight carries no recommendations")
	}

	missing := insights[1]
	if missing.Title != "Missing Values Detected" {
		t.Errorf("title = %q", missing.Title)
	}
	// 150 of 10,000 cells is 1.5%, below the 10% escalation threshold.
	if missing.Priority != PriorityMedium {
		t.Errorf("priority = %v, want medium", missing.Priority)
	}
	if !strings.Contains(missing.Description, "1.5%") {
		t.Errorf("description = %q", missing.Description)
	}
}

func TestExtractSummaryInsightsExcellent(t *testing.T) {
	insights := ExtractInsights(&DataSummaryRequest{
		TotalRows:        500,
		TotalColumns:     4,
		DataQualityScore: f(0.95),
	})
	if len(insights) != 1 {
		t.Fatalf("got %d insights, want 1", len(insights))
	}
	if insights[0].Title != "Excellent Data Quality" {
		t.Errorf("title = %q", insights[0].Title)
	}
}

func TestExtractSummaryInsightsHighMissing(t *testing.T) {
	insights := ExtractInsights(&DataSummaryRequest{
		TotalRows:     100,
		TotalColumns:  2,
		MissingValues: map[string]int{"a": 30},
	})
	if len(insights) != 1 {
		t.Fatalf("got %d insights, want 1", len(insights))
	}
	// 30 of 200 cells is 15%; above 10% the priority escalates.
	if insights[0].Priority != PriorityHigh {
		t.Errorf("priority = %v, want high", insights[0].Priority)
	}
}

func TestExtractInsightsVisualization(t *testing.T) {
	if got := ExtractInsights(&VisualizationRequest{ChartType: "bar"}); got != nil {
		t.Errorf("visualization requests have no insight rules, got %v", got)
	}
}
