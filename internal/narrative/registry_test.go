package narrative

import (
	"errors"
	"testing"
)

func TestDefaultRegistryContents(t *testing.T) {
	r := DefaultRegistry()
	templates := r.List()
	if len(templates) != 5 {
		t.Fatalf("got %d templates, want 5", len(templates))
	}
	wantIDs := []string{"ttest", "correlation", "anova", "chi_square", "data_summary"}
	for i, id := range wantIDs {
		if templates[i].ID != id {
			t.Errorf("templates[%d].ID = %q, want %q", i, templates[i].ID, id)
		}
	}
	for _, tpl := range templates {
		if tpl.Version == "" {
			t.Errorf("template %s has no version", tpl.ID)
		}
		if len(tpl.RequiredFields) == 0 {
			t.Errorf("template %s has no required fields", tpl.ID)
		}
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(
		&Template{ID: "a", NarrativeType: TypeStatisticalTest},
		&Template{ID: "a", NarrativeType: TypeStatisticalTest},
	)
	if err == nil {
		t.Fatal("expected duplicate ID error")
	}

	_, err = NewRegistry(&Template{NarrativeType: TypeStatisticalTest})
	if err == nil {
		t.Fatal("expected empty ID error")
	}
}

func TestFindMatchesTestNames(t *testing.T) {
	r := DefaultRegistry()
	cases := []struct {
		testName string
		wantID   string
	}{
		{"Independent T-Test", "ttest"},
		{"paired t-test", "ttest"},
		{"Pearson Correlation", "correlation"},
		{"One-Way ANOVA", "anova"},
		{"Chi-Square Test of Independence", "chi_square"},
		{"chi2 test", "chi_square"},
	}
	for _, c := range cases {
		tpl, err := r.Find(&StatisticalTestRequest{TestName: c.testName})
		if err != nil {
			t.Errorf("Find(%q): %v", c.testName, err)
			continue
		}
		if tpl.ID != c.wantID {
			t.Errorf("Find(%q) = %s, want %s", c.testName, tpl.ID, c.wantID)
		}
	}
}

func TestFindUnknownTest(t *testing.T) {
	_, err := DefaultRegistry().Find(&StatisticalTestRequest{TestName: "Mann-Whitney U"})
	var notFound *TemplateNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected TemplateNotFoundError, got %v", err)
	}
	if notFound.TestName != "Mann-Whitney U" {
		t.Errorf("TestName = %q", notFound.TestName)
	}
}

func TestFindPrefersHigherPriority(t *testing.T) {
	low := &Template{
		ID:            "generic",
		NarrativeType: TypeStatisticalTest,
		TestTypes:     []string{"test"},
		Body:          "generic",
		Priority:      1,
	}
	high := &Template{
		ID:            "specific",
		NarrativeType: TypeStatisticalTest,
		TestTypes:     []string{"t-test"},
		Body:          "specific",
		Priority:      10,
	}
	r, err := NewRegistry(low, high)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	// Both match "independent t-test" by substring; priority decides.
	tpl, err := r.Find(&StatisticalTestRequest{TestName: "Independent T-Test"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if tpl.ID != "specific" {
		t.Errorf("Find picked %s, want specific", tpl.ID)
	}
}

func TestFindTiesBreakByRegistrationOrder(t *testing.T) {
	first := &Template{
		ID:            "first",
		NarrativeType: TypeStatisticalTest,
		TestTypes:     []string{"t-test"},
		Body:          "first",
		Priority:      10,
	}
	second := &Template{
		ID:            "second",
		NarrativeType: TypeStatisticalTest,
		TestTypes:     []string{"t-test"},
		Body:          "second",
		Priority:      10,
	}
	r, err := NewRegistry(first, second)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	tpl, err := r.Find(&StatisticalTestRequest{TestName: "Paired T-Test"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if tpl.ID != "first" {
		t.Errorf("Find picked %s, want first", tpl.ID)
	}
}

func TestFindDataSummary(t *testing.T) {
	tpl, err := DefaultRegistry().Find(&DataSummaryRequest{TotalRows: 10, TotalColumns: 2})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if tpl.ID != "data_summary" {
		t.Errorf("Find = %s, want data_summary", tpl.ID)
	}
}

func TestFindVisualizationHasNoTemplate(t *testing.T) {
	_, err := DefaultRegistry().Find(&VisualizationRequest{ChartType: "scatter"})
	var notFound *TemplateNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected TemplateNotFoundError, got %v", err)
	}
}

func TestListIsACopy(t *testing.T) {
	r := DefaultRegistry()
	list := r.List()
	list[0] = nil
	if r.List()[0] == nil {
		t.Error("mutating the listed slice changed the registry")
	}
}
