package narrative

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"text/template"
)

// FormatPValue formats a p-value for display: "< 0.001" below the reporting
// threshold, "= 0.031" style otherwise.
func FormatPValue(p float64) string {
	if p < 0.001 {
		return "< 0.001"
	}
	return fmt.Sprintf("= %.3f", p)
}

var ttestFamily = map[string]bool{
	"ttest":              true,
	"t-test":             true,
	"independent t-test": true,
	"one-sample t-test":  true,
	"paired t-test":      true,
}

// InterpretEffectSize maps an effect size magnitude to a plain-language
// label. T-test family uses Cohen's d bands; everything else uses the
// eta-squared style bands. Callers pass the unsigned magnitude.
func InterpretEffectSize(effectSize float64, testName string) string {
	if ttestFamily[strings.ToLower(testName)] {
		switch {
		case effectSize < 0.2:
			return "small"
		case effectSize < 0.5:
			return "small to medium"
		case effectSize < 0.8:
			return "medium to large"
		default:
			return "large"
		}
	}
	switch {
	case effectSize < 0.1:
		return "small"
	case effectSize < 0.3:
		return "medium"
	default:
		return "large"
	}
}

// SignificanceStatement words the significance of p against alpha.
func SignificanceStatement(p, alpha float64) string {
	if p < alpha {
		return "statistically significant"
	}
	return "not statistically significant"
}

// DefaultAlpha is the conventional significance threshold.
const DefaultAlpha = 0.05

// Renderer executes registry templates against flat context maps.
type Renderer struct {
	registry *Registry
	tmpl     *template.Template
}

// NewRenderer compiles every template in the registry. Template bodies are
// static configuration, so a parse failure is a startup error.
func NewRenderer(registry *Registry) (*Renderer, error) {
	root := template.New("narratives").Funcs(templateFuncs())
	for _, t := range registry.List() {
		if _, err := root.New(t.ID).Parse(t.Body); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", t.ID, err)
		}
	}
	return &Renderer{registry: registry, tmpl: root}, nil
}

// Render executes a template against the context. Every required field must
// be present in the context with a non-nil value.
func (r *Renderer) Render(tpl *Template, ctx map[string]any) (string, error) {
	var missing []string
	for _, field := range tpl.RequiredFields {
		if v, ok := ctx[field]; !ok || v == nil {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return "", &TemplateRenderError{TemplateID: tpl.ID, MissingFields: missing}
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, tpl.ID, ctx); err != nil {
		return "", &TemplateRenderError{TemplateID: tpl.ID, Err: err}
	}
	return strings.TrimSpace(buf.String()), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatPValue":        FormatPValue,
		"interpretEffectSize": func(v any, testName string) string { return InterpretEffectSize(toFloat(v), testName) },
		"significanceStatement": func(v any) string {
			return SignificanceStatement(toFloat(v), DefaultAlpha)
		},
		"abs":           func(v any) float64 { return math.Abs(toFloat(v)) },
		"mul":           func(a any, b float64) float64 { return toFloat(a) * b },
		"rsquaredPct":   func(v any) float64 { r := toFloat(v); return r * r * 100 },
		"comma":         func(v any) string { return commaInt(toInt(v)) },
		"plural": func(v any) string {
			if toInt(v) == 1 {
				return ""
			}
			return "s"
		},
		"colName":       colName,
		"groupDiff":     groupDiff,
		"groupLabel":    groupLabel,
		"corrStrength":  func(v any) string { return corrStrength(toFloat(v)) },
		"num2":          num2,
		"countType":     countType,
		"sumInts":       sumInts,
		"countPositive": countPositive,
		"cells":         func(rows, cols any) int { return toInt(rows) * toInt(cols) },
		"pctOf":         pctOf,
		"topCategory":   topCategory,
		"topCount":      topCount,
	}
}

// colName returns the i-th column name, or the fallback when the request
// named fewer columns.
func colName(v any, i int, fallback string) string {
	cols, ok := v.([]string)
	if !ok || i >= len(cols) || cols[i] == "" {
		return fallback
	}
	return cols[i]
}

// groupDiff returns |m[a] - m[b]| for numeric group statistics.
func groupDiff(v any, a, b string) float64 {
	m, ok := v.(map[string]any)
	if !ok {
		return 0
	}
	return math.Abs(toFloat(m[a]) - toFloat(m[b]))
}

// groupLabel turns a group_statistics key like "group_a_mean" into
// "Group A Mean".
func groupLabel(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func corrStrength(r float64) string {
	switch {
	case math.Abs(r) > 0.7:
		return "strong"
	case math.Abs(r) > 0.3:
		return "moderate"
	default:
		return "weak"
	}
}

// num2 formats numeric values with two decimals and leaves everything
// else to default formatting.
func num2(v any) string {
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f", n)
	case float32:
		return fmt.Sprintf("%.2f", n)
	case int:
		return fmt.Sprintf("%.2f", float64(n))
	case int64:
		return fmt.Sprintf("%.2f", float64(n))
	default:
		return fmt.Sprintf("%v", v)
	}
}

func countType(v any, want string) int {
	m, ok := v.(map[string]string)
	if !ok {
		return 0
	}
	n := 0
	for _, t := range m {
		if t == want {
			n++
		}
	}
	return n
}

func sumInts(v any) int {
	m, ok := v.(map[string]int)
	if !ok {
		return 0
	}
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}

func countPositive(v any) int {
	m, ok := v.(map[string]int)
	if !ok {
		return 0
	}
	n := 0
	for _, c := range m {
		if c > 0 {
			n++
		}
	}
	return n
}

// pctOf returns 100*part/whole, or 0 for an empty whole.
func pctOf(part, whole any) float64 {
	w := toFloat(whole)
	if w == 0 {
		return 0
	}
	return toFloat(part) / w * 100
}

// topCategory returns the most frequent category; count ties break by
// lexical order so rendering stays deterministic.
func topCategory(v any) string {
	m, ok := v.(map[string]int)
	if !ok || len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if m[k] > m[best] {
			best = k
		}
	}
	return best
}

func topCount(v any) int {
	m, ok := v.(map[string]int)
	if !ok {
		return 0
	}
	best := 0
	for _, n := range m {
		if n > best {
			best = n
		}
	}
	return best
}

func commaInt(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	default:
		return 0
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// titleFirst uppercases only the first letter, leaving the rest alone.
func titleFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
