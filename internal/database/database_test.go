package database

import (
	"path/filepath"
	"testing"

	"datasnap/internal/narrative"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func testRecord(title string) *NarrativeRecord {
	sig := true
	return &NarrativeRecord{
		NarrativeType: "statistical_test",
		Title:         title,
		Summary:       "Statistically significant results found (p < 0.001)",
		Content:       "**Key Findings:**\nThe test was significant.",
		Sections: []narrative.Section{
			{Title: "Key Findings", Content: "The test was significant.", SectionType: narrative.SectionAnalysis},
		},
		KeyInsights: []narrative.Insight{
			{
				Title:                   "Statistically Significant Result",
				Description:             "The data shows a statistically significant pattern",
				Priority:                narrative.PriorityHigh,
				Confidence:              narrative.ConfidenceHigh,
				StatisticalSignificance: &sig,
			},
		},
		Recommendations:  []string{"Validate findings with additional data"},
		GenerationMethod: "template",
		GenerationTimeMs: 2.5,
		TemplateVersion:  ptr("1.0.0"),
		SourceDataHash:   ptr("a1b2c3d4"),
		Tags:             []string{"ttest", "report"},
	}
}

func TestInsertAndGetNarrative(t *testing.T) {
	db := openTestDB(t)

	id, err := db.InsertNarrative(testRecord("T-Test Analysis Results"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero narrative ID")
	}

	rec, err := db.GetNarrative(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil {
		t.Fatal("expected narrative")
	}
	if rec.Title != "T-Test Analysis Results" {
		t.Errorf("expected title round trip, got %q", rec.Title)
	}
	if len(rec.Sections) != 1 || rec.Sections[0].SectionType != narrative.SectionAnalysis {
		t.Errorf("expected sections round trip, got %+v", rec.Sections)
	}
	if len(rec.KeyInsights) != 1 {
		t.Fatalf("expected 1 insight, got %d", len(rec.KeyInsights))
	}
	if rec.KeyInsights[0].Priority != narrative.PriorityHigh {
		t.Errorf("expected high priority insight, got %v", rec.KeyInsights[0].Priority)
	}
	if len(rec.Tags) != 2 {
		t.Errorf("expected 2 tags, got %v", rec.Tags)
	}
	if rec.TemplateVersion == nil || *rec.TemplateVersion != "1.0.0" {
		t.Error("expected template version round trip")
	}
	if rec.CreatedAt == nil {
		t.Error("expected created_at to be set")
	}
}

func TestGetNarrativeMissing(t *testing.T) {
	db := openTestDB(t)
	rec, err := db.GetNarrative(999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Error("expected nil for missing narrative")
	}
}

func TestListNarrativesFilters(t *testing.T) {
	db := openTestDB(t)

	r1 := testRecord("First")
	r1.UserID = ptr("alice")
	db.InsertNarrative(r1)

	r2 := testRecord("Second")
	r2.UserID = ptr("alice")
	r2.NarrativeType = "data_summary"
	r2.IsFavorite = true
	db.InsertNarrative(r2)

	r3 := testRecord("Third")
	r3.UserID = ptr("bob")
	r3.IsArchived = true
	db.InsertNarrative(r3)

	all, err := db.ListNarratives(NarrativeFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 narratives, got %d", len(all))
	}

	alice, _ := db.ListNarratives(NarrativeFilters{UserID: ptr("alice")})
	if len(alice) != 2 {
		t.Errorf("expected 2 for alice, got %d", len(alice))
	}

	summaries, _ := db.ListNarratives(NarrativeFilters{NarrativeType: ptr("data_summary")})
	if len(summaries) != 1 || summaries[0].Title != "Second" {
		t.Errorf("expected only 'Second', got %+v", summaries)
	}

	fav := true
	favorites, _ := db.ListNarratives(NarrativeFilters{Favorite: &fav})
	if len(favorites) != 1 || favorites[0].Title != "Second" {
		t.Errorf("expected only favorite 'Second', got %d", len(favorites))
	}

	archived := false
	active, _ := db.ListNarratives(NarrativeFilters{Archived: &archived})
	if len(active) != 2 {
		t.Errorf("expected 2 non-archived, got %d", len(active))
	}

	tagged, _ := db.ListNarratives(NarrativeFilters{Tag: ptr("ttest")})
	if len(tagged) != 3 {
		t.Errorf("expected 3 tagged, got %d", len(tagged))
	}
	tagged, _ = db.ListNarratives(NarrativeFilters{Tag: ptr("missing")})
	if len(tagged) != 0 {
		t.Errorf("expected 0 for unused tag, got %d", len(tagged))
	}
}

func TestListNarrativesOrderAndPagination(t *testing.T) {
	db := openTestDB(t)
	db.InsertNarrative(testRecord("Banana"))
	db.InsertNarrative(testRecord("Apple"))
	db.InsertNarrative(testRecord("Cherry"))

	byTitle, err := db.ListNarratives(NarrativeFilters{OrderBy: "title", SortAsc: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byTitle[0].Title != "Apple" || byTitle[2].Title != "Cherry" {
		t.Errorf("expected alphabetical order, got %q..%q", byTitle[0].Title, byTitle[2].Title)
	}

	// Unknown order columns fall back to created_at rather than being
	// interpolated into SQL.
	unsafe, err := db.ListNarratives(NarrativeFilters{OrderBy: "title; DROP TABLE narratives"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(unsafe) != 3 {
		t.Errorf("expected 3 rows with fallback ordering, got %d", len(unsafe))
	}

	page, _ := db.ListNarratives(NarrativeFilters{OrderBy: "title", SortAsc: true, Limit: 2, Offset: 1})
	if len(page) != 2 || page[0].Title != "Banana" {
		t.Errorf("expected page starting at 'Banana', got %+v", page)
	}
}

func TestUpdateNarrative(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.InsertNarrative(testRecord("Original"))

	found, err := db.UpdateNarrative(id, ptr("Renamed"), nil, []string{"updated"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Error("expected update to find the narrative")
	}

	rec, _ := db.GetNarrative(id)
	if rec.Title != "Renamed" {
		t.Errorf("expected renamed title, got %q", rec.Title)
	}
	if len(rec.Tags) != 1 || rec.Tags[0] != "updated" {
		t.Errorf("expected replaced tags, got %v", rec.Tags)
	}
	// Summary untouched.
	if rec.Summary == "" {
		t.Error("expected summary to be preserved")
	}

	found, err = db.UpdateNarrative(999, ptr("X"), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected false for missing narrative")
	}
}

func TestDeleteNarrative(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.InsertNarrative(testRecord("Doomed"))

	found, err := db.DeleteNarrative(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Error("expected delete to find the narrative")
	}

	rec, _ := db.GetNarrative(id)
	if rec != nil {
		t.Error("expected nil after delete")
	}

	found, _ = db.DeleteNarrative(id)
	if found {
		t.Error("expected false on second delete")
	}
}

func TestToggleFavorite(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.InsertNarrative(testRecord("Fav"))

	rec, err := db.ToggleFavorite(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil || !rec.IsFavorite {
		t.Error("expected favorite after first toggle")
	}

	rec, _ = db.ToggleFavorite(id)
	if rec.IsFavorite {
		t.Error("expected unfavorite after second toggle")
	}

	rec, err = db.ToggleFavorite(999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Error("expected nil for missing narrative")
	}
}

func TestArchiveNarrative(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.InsertNarrative(testRecord("Old"))

	found, err := db.ArchiveNarrative(id, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Error("expected archive to find the narrative")
	}

	rec, _ := db.GetNarrative(id)
	if !rec.IsArchived {
		t.Error("expected archived flag")
	}

	db.ArchiveNarrative(id, false)
	rec, _ = db.GetNarrative(id)
	if rec.IsArchived {
		t.Error("expected unarchived flag")
	}
}

func TestSearchNarratives(t *testing.T) {
	db := openTestDB(t)

	r1 := testRecord("Revenue Analysis")
	r1.Content = "Quarterly revenue grew by 12 percent."
	db.InsertNarrative(r1)

	r2 := testRecord("Churn Report")
	r2.Summary = "Customer churn is stable"
	r2.Content = "No notable change."
	db.InsertNarrative(r2)

	results, err := db.SearchNarratives("revenue", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Revenue Analysis" {
		t.Errorf("expected 'Revenue Analysis', got %+v", results)
	}

	results, _ = db.SearchNarratives("churn", 10)
	if len(results) != 1 {
		t.Errorf("expected 1 summary match, got %d", len(results))
	}

	results, _ = db.SearchNarratives("nonexistent", 10)
	if len(results) != 0 {
		t.Errorf("expected 0 matches, got %d", len(results))
	}
}

func TestGetNarrativeStats(t *testing.T) {
	db := openTestDB(t)

	r1 := testRecord("A")
	r1.UserID = ptr("alice")
	r1.IsFavorite = true
	db.InsertNarrative(r1)

	r2 := testRecord("B")
	r2.UserID = ptr("alice")
	r2.NarrativeType = "data_summary"
	r2.KeyInsights = nil
	r2.Tags = []string{"report"}
	db.InsertNarrative(r2)

	r3 := testRecord("C")
	r3.UserID = ptr("bob")
	db.InsertNarrative(r3)

	stats, err := db.GetNarrativeStats(ptr("alice"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("expected 2 for alice, got %d", stats.Total)
	}
	if stats.ByType["statistical_test"] != 1 || stats.ByType["data_summary"] != 1 {
		t.Errorf("unexpected type counts: %v", stats.ByType)
	}
	if stats.Favorites != 1 {
		t.Errorf("expected 1 favorite, got %d", stats.Favorites)
	}
	if stats.AvgInsights != 0.5 {
		t.Errorf("expected avg 0.5 insights, got %v", stats.AvgInsights)
	}
	if len(stats.TopTags) == 0 || stats.TopTags[0].Tag != "report" {
		t.Errorf("expected 'report' as top tag, got %+v", stats.TopTags)
	}

	global, _ := db.GetNarrativeStats(nil)
	if global.Total != 3 {
		t.Errorf("expected 3 globally, got %d", global.Total)
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalNarratives != 0 {
		t.Errorf("expected 0 narratives, got %d", stats.TotalNarratives)
	}

	rec := testRecord("A")
	rec.IsFavorite = true
	db.InsertNarrative(rec)
	db.InsertDataset("sales.csv", 100, 5, []string{"a", "b"}, nil)

	stats, _ = db.GetStats()
	if stats.TotalNarratives != 1 {
		t.Errorf("expected 1 narrative, got %d", stats.TotalNarratives)
	}
	if stats.FavoriteNarratives != 1 {
		t.Errorf("expected 1 favorite, got %d", stats.FavoriteNarratives)
	}
	if stats.TotalDatasets != 1 {
		t.Errorf("expected 1 dataset, got %d", stats.TotalDatasets)
	}
}

func TestDatasetLifecycle(t *testing.T) {
	db := openTestDB(t)

	score := 0.92
	id, err := db.InsertDataset("survey.csv", 1000, 10, []string{"age", "score"}, &score)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero dataset ID")
	}

	ds, _ := db.GetDataset(id)
	if ds == nil {
		t.Fatal("expected dataset")
	}
	if ds.Filename != "survey.csv" {
		t.Errorf("expected filename round trip, got %q", ds.Filename)
	}
	if ds.RowCount != 1000 || ds.ColumnCount != 10 {
		t.Errorf("expected dimensions round trip, got %dx%d", ds.RowCount, ds.ColumnCount)
	}
	if len(ds.Columns) != 2 {
		t.Errorf("expected 2 columns, got %v", ds.Columns)
	}
	if ds.QualityScore == nil || *ds.QualityScore != 0.92 {
		t.Error("expected quality score round trip")
	}

	all, _ := db.GetAllDatasets()
	if len(all) != 1 {
		t.Errorf("expected 1 dataset, got %d", len(all))
	}

	found, _ := db.DeleteDataset(id)
	if !found {
		t.Error("expected delete to find the dataset")
	}
	ds, _ = db.GetDataset(id)
	if ds != nil {
		t.Error("expected nil after delete")
	}
}
