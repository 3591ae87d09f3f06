package narrative

import (
	"context"
	"fmt"
	"sort"
)

// maxCombinedInsights caps the deduplicated cross-narrative insight list.
const maxCombinedInsights = 10

// GenerateBatch runs the assembler over requests in order. The batch is
// strict: the first failing request aborts the whole batch with a
// structured *Error, and no partial result is returned. Total generation
// time is the sum of per-request durations, not the batch wall clock.
func (a *Assembler) GenerateBatch(ctx context.Context, requests []Request, combineInsights bool, globalContext map[string]any) (*BatchResult, error) {
	result := &BatchResult{}
	var gathered []Insight

	for i, req := range requests {
		n, err := a.generate(ctx, req, globalContext)
		if err != nil {
			nerr := AsError(err)
			if nerr.Details == nil {
				nerr.Details = map[string]any{}
			}
			nerr.Details["request_index"] = i
			return nil, nerr
		}
		result.Narratives = append(result.Narratives, n)
		result.TotalGenerationTimeMs += n.Metadata.GenerationTimeMs
		if combineInsights {
			gathered = append(gathered, n.KeyInsights...)
		}
	}

	if combineInsights {
		result.CombinedInsights = MergeInsights(gathered, maxCombinedInsights)
		if len(result.Narratives) > 0 {
			result.ExecutiveSummary = executiveSummary(len(result.Narratives), result.CombinedInsights)
		}
	}

	return result, nil
}

// MergeInsights sorts insights by priority then confidence, descending,
// deduplicates by title keeping the first (highest-ranked) occurrence, and
// truncates to limit. The sort is stable, so equal-ranked insights keep
// their gathering order.
func MergeInsights(insights []Insight, limit int) []Insight {
	sorted := make([]Insight, len(insights))
	copy(sorted, insights)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].Confidence > sorted[j].Confidence
	})

	seen := make(map[string]bool, len(sorted))
	var unique []Insight
	for _, in := range sorted {
		if seen[in.Title] {
			continue
		}
		seen[in.Title] = true
		unique = append(unique, in)
		if len(unique) == limit {
			break
		}
	}
	return unique
}

func executiveSummary(narrativeCount int, combined []Insight) string {
	summary := fmt.Sprintf("Analysis of %d components reveals %d key insights. ", narrativeCount, len(combined))
	for _, in := range combined {
		if in.Priority == PriorityCritical {
			summary += "Critical findings require immediate attention. "
			break
		}
	}
	return summary + "See detailed narratives below for complete analysis."
}
