package narrative

import "strings"

// splitSections decomposes rendered content into consecutive sections. A
// line consisting solely of a bolded phrase starts a new section; content
// before the first header belongs to an implicit "Overview" section. Every
// section carries the high/critical subset of the request's insights.
func splitSections(content string, insights []Insight) []Section {
	important := filterImportant(insights)

	title := "Overview"
	sectionType := SectionOverview
	var body []string
	var sections []Section

	flush := func() {
		if len(body) == 0 {
			return
		}
		sections = append(sections, Section{
			Title:       title,
			Content:     strings.Join(body, "\n"),
			SectionType: sectionType,
			Insights:    important,
		})
		body = nil
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**") && len(line) > 4 {
			flush()
			title = strings.TrimSpace(strings.Trim(line, "*"))
			sectionType = classifySection(title)
			continue
		}
		if line != "" {
			body = append(body, line)
		}
	}
	flush()

	return sections
}

// classifySection tags a section by keywords in its title.
func classifySection(title string) string {
	lower := strings.ToLower(title)
	switch {
	case containsAny(lower, "result", "finding", "analysis"):
		return SectionAnalysis
	case containsAny(lower, "recommend", "suggest", "next"):
		return SectionRecommendations
	case containsAny(lower, "interpret", "meaning", "conclusion"):
		return SectionInterpretation
	case containsAny(lower, "summary", "overview", "key"):
		return SectionSummary
	default:
		return SectionGeneral
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// filterImportant keeps only high and critical priority insights.
func filterImportant(insights []Insight) []Insight {
	var out []Insight
	for _, in := range insights {
		if in.Priority >= PriorityHigh {
			out = append(out, in)
		}
	}
	return out
}
