// Package dataset loads CSV files and profiles them into the summary
// shape the narrative engine consumes.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"datasnap/internal/narrative"
)

const (
	// MaxFileSize caps CSV uploads at 50MB.
	MaxFileSize = 50 * 1024 * 1024
	// MaxRows caps the number of data rows processed per file.
	MaxRows = 100000

	topValueCount = 5
)

// Column type labels used in profiles.
const (
	ColumnNumeric     = "numeric"
	ColumnCategorical = "categorical"
	ColumnDatetime    = "datetime"
)

// Profile summarizes one CSV file.
type Profile struct {
	Filename           string
	TotalRows          int
	TotalColumns       int
	Columns            []string
	ColumnTypes        map[string]string
	MissingValues      map[string]int
	NumericSummary     map[string]map[string]float64
	CategoricalSummary map[string]map[string]int
	OutliersDetected   map[string]int
	QualityScore       float64
}

// dateLayouts are tried in order when sniffing datetime columns.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
}

// Load reads and profiles a CSV file from disk.
func Load(path string) (*Profile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading CSV file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), MaxFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading CSV file: %w", err)
	}
	defer f.Close()

	return Parse(f, filepath.Base(path))
}

// Parse profiles CSV data from a reader. The filename is recorded in
// the profile only.
func Parse(r io.Reader, filename string) (*Profile, error) {
	reader := csv.NewReader(io.LimitReader(r, MaxFileSize+1))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("the CSV file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("parsing CSV header: %w", err)
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("CSV must have at least one column")
	}
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
	}

	columns := make([][]string, len(header))
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing CSV row %d: %w", rows+2, err)
		}
		if rows >= MaxRows {
			return nil, fmt.Errorf("too many rows (max %d)", MaxRows)
		}
		for i := range header {
			val := ""
			if i < len(record) {
				val = strings.TrimSpace(record[i])
			}
			columns[i] = append(columns[i], val)
		}
		rows++
	}
	if rows == 0 {
		return nil, fmt.Errorf("CSV must have at least one row")
	}

	return buildProfile(filename, header, columns, rows), nil
}

func buildProfile(filename string, header []string, columns [][]string, rows int) *Profile {
	p := &Profile{
		Filename:           filename,
		TotalRows:          rows,
		TotalColumns:       len(header),
		Columns:            header,
		ColumnTypes:        map[string]string{},
		MissingValues:      map[string]int{},
		NumericSummary:     map[string]map[string]float64{},
		CategoricalSummary: map[string]map[string]int{},
		OutliersDetected:   map[string]int{},
	}

	totalMissing := 0
	numericValues := 0
	outlierValues := 0

	for i, name := range header {
		values := columns[i]
		present := make([]string, 0, len(values))
		missing := 0
		for _, v := range values {
			if isMissing(v) {
				missing++
			} else {
				present = append(present, v)
			}
		}
		p.MissingValues[name] = missing
		totalMissing += missing

		colType := inferType(present)
		p.ColumnTypes[name] = colType

		switch colType {
		case ColumnNumeric:
			nums := make([]float64, 0, len(present))
			for _, v := range present {
				f, err := strconv.ParseFloat(v, 64)
				if err == nil {
					nums = append(nums, f)
				}
			}
			p.NumericSummary[name] = describeNumeric(nums)
			outliers := countOutliers(nums)
			p.OutliersDetected[name] = outliers
			numericValues += len(nums)
			outlierValues += outliers
		case ColumnCategorical:
			p.CategoricalSummary[name] = topValues(present)
		}
	}

	p.QualityScore = qualityScore(rows, len(header), totalMissing, numericValues, outlierValues)
	return p
}

// isMissing reports whether a cell counts as a missing value.
func isMissing(v string) bool {
	switch strings.ToLower(v) {
	case "", "na", "n/a", "nan", "null":
		return true
	}
	return false
}

// inferType classifies a column by its non-missing values. Empty
// columns fall back to categorical.
func inferType(values []string) string {
	if len(values) == 0 {
		return ColumnCategorical
	}

	numeric := true
	for _, v := range values {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			numeric = false
			break
		}
	}
	if numeric {
		return ColumnNumeric
	}

	for _, layout := range dateLayouts {
		all := true
		for _, v := range values {
			if _, err := time.Parse(layout, v); err != nil {
				all = false
				break
			}
		}
		if all {
			return ColumnDatetime
		}
	}

	return ColumnCategorical
}

// describeNumeric computes count/mean/std/min/quartiles/max with the
// same conventions as pandas describe (sample std, linear quartile
// interpolation).
func describeNumeric(nums []float64) map[string]float64 {
	n := len(nums)
	if n == 0 {
		return map[string]float64{"count": 0}
	}

	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	std := 0.0
	if n > 1 {
		ss := 0.0
		for _, v := range sorted {
			d := v - mean
			ss += d * d
		}
		std = math.Sqrt(ss / float64(n-1))
	}

	return map[string]float64{
		"count": float64(n),
		"mean":  mean,
		"std":   std,
		"min":   sorted[0],
		"25%":   quantile(sorted, 0.25),
		"50%":   quantile(sorted, 0.50),
		"75%":   quantile(sorted, 0.75),
		"max":   sorted[n-1],
	}
}

// quantile interpolates linearly between order statistics. Input must
// be sorted.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// countOutliers counts values outside the 1.5 IQR fences.
func countOutliers(nums []float64) int {
	if len(nums) < 4 {
		return 0
	}
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)

	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	count := 0
	for _, v := range sorted {
		if v < lower || v > upper {
			count++
		}
	}
	return count
}

// topValues returns the most frequent values, capped at topValueCount.
func topValues(values []string) map[string]int {
	counts := map[string]int{}
	for _, v := range values {
		counts[v]++
	}
	if len(counts) <= topValueCount {
		return counts
	}

	type vc struct {
		value string
		count int
	}
	pairs := make([]vc, 0, len(counts))
	for v, c := range counts {
		pairs = append(pairs, vc{v, c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].value < pairs[j].value
	})

	top := map[string]int{}
	for _, p := range pairs[:topValueCount] {
		top[p.value] = p.count
	}
	return top
}

// qualityScore blends completeness with outlier contamination into [0, 1].
func qualityScore(rows, cols, missing, numericValues, outlierValues int) float64 {
	if rows == 0 || cols == 0 {
		return 0
	}
	completeness := 1 - float64(missing)/float64(rows*cols)

	consistency := 1.0
	if numericValues > 0 {
		consistency = 1 - float64(outlierValues)/float64(numericValues)
	}

	score := 0.8*completeness + 0.2*consistency
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// SummaryRequest converts the profile into a data summary request for
// narrative generation.
func (p *Profile) SummaryRequest() *narrative.DataSummaryRequest {
	score := p.QualityScore
	return &narrative.DataSummaryRequest{
		TotalRows:          p.TotalRows,
		TotalColumns:       p.TotalColumns,
		MissingValues:      p.MissingValues,
		ColumnTypes:        p.ColumnTypes,
		NumericSummary:     p.NumericSummary,
		CategoricalSummary: p.CategoricalSummary,
		OutliersDetected:   p.OutliersDetected,
		DataQualityScore:   &score,
	}
}
