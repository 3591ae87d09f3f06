package narrative

import "fmt"

// ExtractInsights derives structured insights from a request using fixed
// threshold rules. The returned order is extraction order; priority sorting
// happens during batch merging. Rules are independent, so several may fire
// for one request. Visualization requests have no built-in rules.
func ExtractInsights(req Request) []Insight {
	switch r := req.(type) {
	case *StatisticalTestRequest:
		return extractTestInsights(r)
	case *DataSummaryRequest:
		return extractSummaryInsights(r)
	default:
		return nil
	}
}

func extractTestInsights(r *StatisticalTestRequest) []Insight {
	var insights []Insight

	if r.PValue < DefaultAlpha {
		confidence := ConfidenceMedium
		if r.PValue < 0.01 {
			confidence = ConfidenceHigh
		}
		significant := true
		insights = append(insights, Insight{
			Title:       "Statistically Significant Result",
			Description: fmt.Sprintf("The test shows a significant result with p %s", FormatPValue(r.PValue)),
			Priority:    PriorityHigh,
			Confidence:  confidence,
			Evidence: map[string]any{
				"p_value":        r.PValue,
				"test_statistic": r.TestStatistic,
			},
			StatisticalSignificance: &significant,
		})
	}

	if r.EffectSize != nil {
		magnitude := InterpretEffectSize(*r.EffectSize, r.TestName)
		priority := PriorityMedium
		if *r.EffectSize > 0.5 {
			priority = PriorityHigh
		}
		insights = append(insights, Insight{
			Title:       fmt.Sprintf("%s Effect Size", titleFirst(magnitude)),
			Description: fmt.Sprintf("The effect size (%.3f) indicates a %s practical effect", *r.EffectSize, magnitude),
			Priority:    priority,
			Confidence:  ConfidenceHigh,
			Evidence: map[string]any{
				"effect_size": *r.EffectSize,
				"magnitude":   magnitude,
			},
		})
	}

	return insights
}

func extractSummaryInsights(r *DataSummaryRequest) []Insight {
	var insights []Insight

	if r.DataQualityScore != nil {
		score := *r.DataQualityScore
		if score > 0.9 {
			insights = append(insights, Insight{
				Title:       "Excellent Data Quality",
				Description: fmt.Sprintf("Data quality score of %.1f%% indicates excellent dataset readiness", score*100),
				Priority:    PriorityHigh,
				Confidence:  ConfidenceHigh,
			})
		} else if score < 0.5 {
			insights = append(insights, Insight{
				Title:       "Data Quality Concerns",
				Description: fmt.Sprintf("Data quality score of %.1f%% suggests significant preprocessing needed", score*100),
				Priority:    PriorityCritical,
				Confidence:  ConfidenceHigh,
				Recommendations: []string{
					"Review data collection process",
					"Implement data validation",
					"Consider data cleaning pipeline",
				},
			})
		}
	}

	if totalMissing := sumInts(r.MissingValues); totalMissing > 0 {
		missingPct := float64(totalMissing) / float64(r.TotalRows*r.TotalColumns) * 100
		priority := PriorityMedium
		if missingPct > 10 {
			priority = PriorityHigh
		}
		insights = append(insights, Insight{
			Title:       "Missing Values Detected",
			Description: fmt.Sprintf("%d missing values (%.1f%% of total data)", totalMissing, missingPct),
			Priority:    priority,
			Confidence:  ConfidenceHigh,
			Recommendations: []string{
				"Consider imputation strategies",
				"Analyze missing data patterns",
			},
		})
	}

	return insights
}
