package dataset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = `name,age,score,signup_date
Alice,34,88.5,2024-01-15
Bob,29,91.0,2024-02-03
Carol,41,79.5,2024-02-20
Dan,,85.0,2024-03-11
Eve,38,NA,2024-04-02
`

func parseSample(t *testing.T) *Profile {
	t.Helper()
	p, err := Parse(strings.NewReader(sampleCSV), "sample.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestParseDimensions(t *testing.T) {
	p := parseSample(t)
	if p.TotalRows != 5 {
		t.Errorf("expected 5 rows, got %d", p.TotalRows)
	}
	if p.TotalColumns != 4 {
		t.Errorf("expected 4 columns, got %d", p.TotalColumns)
	}
	if p.Filename != "sample.csv" {
		t.Errorf("expected filename recorded, got %q", p.Filename)
	}
}

func TestParseColumnTypes(t *testing.T) {
	p := parseSample(t)
	want := map[string]string{
		"name":        ColumnCategorical,
		"age":         ColumnNumeric,
		"score":       ColumnNumeric,
		"signup_date": ColumnDatetime,
	}
	for col, typ := range want {
		if p.ColumnTypes[col] != typ {
			t.Errorf("column %q: expected %s, got %s", col, typ, p.ColumnTypes[col])
		}
	}
}

func TestParseMissingValues(t *testing.T) {
	p := parseSample(t)
	if p.MissingValues["age"] != 1 {
		t.Errorf("expected 1 missing age, got %d", p.MissingValues["age"])
	}
	if p.MissingValues["score"] != 1 {
		t.Errorf("expected 1 missing score (NA marker), got %d", p.MissingValues["score"])
	}
	if p.MissingValues["name"] != 0 {
		t.Errorf("expected 0 missing names, got %d", p.MissingValues["name"])
	}
}

func TestParseNumericSummary(t *testing.T) {
	p := parseSample(t)
	age := p.NumericSummary["age"]
	if age == nil {
		t.Fatal("expected numeric summary for age")
	}
	if age["count"] != 4 {
		t.Errorf("expected count 4, got %v", age["count"])
	}
	if math.Abs(age["mean"]-35.5) > 1e-9 {
		t.Errorf("expected mean 35.5, got %v", age["mean"])
	}
	if age["min"] != 29 || age["max"] != 41 {
		t.Errorf("expected min 29 max 41, got %v..%v", age["min"], age["max"])
	}
	// Linear interpolation between order statistics.
	if math.Abs(age["50%"]-36) > 1e-9 {
		t.Errorf("expected median 36, got %v", age["50%"])
	}
}

func TestParseCategoricalSummary(t *testing.T) {
	p := parseSample(t)
	names := p.CategoricalSummary["name"]
	if len(names) != 5 {
		t.Errorf("expected 5 distinct names, got %d", len(names))
	}
	if names["Alice"] != 1 {
		t.Errorf("expected Alice count 1, got %d", names["Alice"])
	}
}

func TestTopValuesCapped(t *testing.T) {
	values := []string{"a", "a", "a", "b", "b", "c", "d", "e", "f", "g"}
	top := topValues(values)
	if len(top) != topValueCount {
		t.Fatalf("expected %d top values, got %d", topValueCount, len(top))
	}
	if top["a"] != 3 {
		t.Errorf("expected a=3, got %d", top["a"])
	}
	if _, ok := top["g"]; ok {
		t.Error("expected rare value to be dropped")
	}
}

func TestOutlierDetection(t *testing.T) {
	csv := "value\n10\n11\n12\n11\n10\n12\n11\n500\n"
	p, err := Parse(strings.NewReader(csv), "outliers.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.OutliersDetected["value"] != 1 {
		t.Errorf("expected 1 outlier, got %d", p.OutliersDetected["value"])
	}
}

func TestQualityScoreCleanData(t *testing.T) {
	csv := "a,b\n1,x\n2,y\n3,z\n"
	p, err := Parse(strings.NewReader(csv), "clean.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.QualityScore != 1.0 {
		t.Errorf("expected quality 1.0 for clean data, got %v", p.QualityScore)
	}
}

func TestQualityScorePenalizesMissing(t *testing.T) {
	csv := "a,b\n1,\n,\n3,\n"
	p, err := Parse(strings.NewReader(csv), "holes.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.QualityScore >= 0.8 {
		t.Errorf("expected degraded quality score, got %v", p.QualityScore)
	}
}

func TestParseEmptyFile(t *testing.T) {
	if _, err := Parse(strings.NewReader(""), "empty.csv"); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestParseHeaderOnly(t *testing.T) {
	if _, err := Parse(strings.NewReader("a,b,c\n"), "header.csv"); err == nil {
		t.Error("expected error for header-only file")
	}
}

func TestParseShortRecords(t *testing.T) {
	// Ragged rows are rejected by the CSV reader.
	csv := "a,b,c\n1,2,3\n4,5\n"
	if _, err := Parse(strings.NewReader(csv), "ragged.csv"); err == nil {
		t.Error("expected error for ragged rows")
	}
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Filename != "data.csv" {
		t.Errorf("expected base filename, got %q", p.Filename)
	}
	if p.TotalRows != 5 {
		t.Errorf("expected 5 rows, got %d", p.TotalRows)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSummaryRequest(t *testing.T) {
	p := parseSample(t)
	req := p.SummaryRequest()
	if req.TotalRows != 5 || req.TotalColumns != 4 {
		t.Errorf("expected dimensions carried over, got %dx%d", req.TotalRows, req.TotalColumns)
	}
	if req.DataQualityScore == nil {
		t.Fatal("expected quality score")
	}
	if *req.DataQualityScore != p.QualityScore {
		t.Errorf("expected score %v, got %v", p.QualityScore, *req.DataQualityScore)
	}
	if req.ColumnTypes["age"] != ColumnNumeric {
		t.Error("expected column types carried over")
	}
}

func TestQuantileInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	if q := quantile(sorted, 0.5); math.Abs(q-2.5) > 1e-9 {
		t.Errorf("expected median 2.5, got %v", q)
	}
	if q := quantile(sorted, 0.25); math.Abs(q-1.75) > 1e-9 {
		t.Errorf("expected q1 1.75, got %v", q)
	}
	if q := quantile([]float64{7}, 0.75); q != 7 {
		t.Errorf("expected single-value quantile 7, got %v", q)
	}
}
