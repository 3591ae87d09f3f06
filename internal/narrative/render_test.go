package narrative

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatPValue(t *testing.T) {
	cases := []struct {
		p    float64
		want string
	}{
		{0.0004, "< 0.001"},
		{0.0009999, "< 0.001"},
		{0.001, "= 0.001"},
		{0.031, "= 0.031"},
		{0.05, "= 0.050"},
		{0.5, "= 0.500"},
	}
	for _, c := range cases {
		if got := FormatPValue(c.p); got != c.want {
			t.Errorf("FormatPValue(%v) = %q, want %q", c.p, got, c.want)
		}
	}
}

func TestInterpretEffectSize(t *testing.T) {
	cases := []struct {
		effect float64
		test   string
		want   string
	}{
		{0.15, "ttest", "small"},
		{0.15, "Independent T-Test", "small"},
		{0.3, "ttest", "small to medium"},
		{0.68, "paired t-test", "medium to large"},
		{0.85, "ttest", "large"},
		{0.05, "anova", "small"},
		{0.15, "anova", "medium"},
		{0.35, "chi_square", "large"},
	}
	for _, c := range cases {
		if got := InterpretEffectSize(c.effect, strings.ToLower(c.test)); got != c.want {
			t.Errorf("InterpretEffectSize(%v, %q) = %q, want %q", c.effect, c.test, got, c.want)
		}
	}
}

func TestSignificanceStatement(t *testing.T) {
	if got := SignificanceStatement(0.01, DefaultAlpha); got != "statistically significant" {
		t.Errorf("got %q", got)
	}
	if got := SignificanceStatement(0.05, DefaultAlpha); got != "not statistically significant" {
		t.Errorf("got %q", got)
	}
}

func TestCommaInt(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-45000, "-45,000"},
	}
	for _, c := range cases {
		if got := commaInt(c.n); got != c.want {
			t.Errorf("commaInt(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestGroupLabel(t *testing.T) {
	if got := groupLabel("group_a_mean"); got != "Group A Mean" {
		t.Errorf("got %q", got)
	}
	if got := groupLabel("control"); got != "Control" {
		t.Errorf("got %q", got)
	}
}

func TestTopCategoryDeterministic(t *testing.T) {
	counts := map[string]int{"b": 5, "a": 5, "c": 3}
	// Count ties break lexically.
	if got := topCategory(counts); got != "a" {
		t.Errorf("topCategory = %q, want a", got)
	}
	if got := topCount(counts); got != 5 {
		t.Errorf("topCount = %d, want 5", got)
	}
}

func TestCorrStrength(t *testing.T) {
	if got := corrStrength(-0.82); got != "strong" {
		t.Errorf("got %q", got)
	}
	if got := corrStrength(0.4); got != "moderate" {
		t.Errorf("got %q", got)
	}
	if got := corrStrength(0.1); got != "weak" {
		t.Errorf("got %q", got)
	}
}

func TestPctOf(t *testing.T) {
	if got := pctOf(150, 10000); got != 1.5 {
		t.Errorf("pctOf = %v, want 1.5", got)
	}
	if got := pctOf(5, 0); got != 0 {
		t.Errorf("pctOf with zero whole = %v, want 0", got)
	}
}

func TestRendererMissingRequiredField(t *testing.T) {
	r, err := NewRenderer(DefaultRegistry())
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	tpl := DefaultRegistry().Get("ttest")
	_, err = r.Render(tpl, map[string]any{
		"test_name": "Independent T-Test",
		"p_value":   0.01,
	})
	var rerr *TemplateRenderError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected TemplateRenderError, got %v", err)
	}
	if len(rerr.MissingFields) != 2 {
		t.Errorf("missing fields = %v, want test_statistic and sample_size", rerr.MissingFields)
	}
}

func TestRendererRendersTTest(t *testing.T) {
	r, err := NewRenderer(DefaultRegistry())
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	tpl := DefaultRegistry().Get("ttest")
	out, err := r.Render(tpl, map[string]any{
		"test_name":      "Independent T-Test",
		"test_statistic": 3.47,
		"p_value":        0.001,
		"sample_size":    100,
		"effect_size":    0.68,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "statistically significant") {
		t.Errorf("rendered output missing significance statement:\n%s", out)
	}
	if !strings.Contains(out, "p = 0.001") {
		t.Errorf("rendered output missing formatted p-value:\n%s", out)
	}
	if !strings.Contains(out, "medium to large") {
		t.Errorf("rendered output missing effect size interpretation:\n%s", out)
	}
	if strings.Contains(out, "{{") {
		t.Errorf("unrendered directives leaked into output:\n%s", out)
	}
}
