package database

import "datasnap/internal/narrative"

// NarrativeRecord is a persisted narrative with its JSON-encoded structure.
type NarrativeRecord struct {
	ID               int64               `json:"id"`
	UserID           *string             `json:"user_id,omitempty"`
	DatasetID        *int64              `json:"dataset_id,omitempty"`
	NarrativeType    string              `json:"narrative_type"`
	Title            string              `json:"title"`
	Summary          string              `json:"summary"`
	Content          string              `json:"content"`
	Sections         []narrative.Section `json:"sections,omitempty"`
	KeyInsights      []narrative.Insight `json:"key_insights,omitempty"`
	Recommendations  []string            `json:"recommendations,omitempty"`
	GenerationMethod string              `json:"generation_method"`
	GenerationTimeMs float64             `json:"generation_time_ms"`
	ModelVersion     *string             `json:"model_version,omitempty"`
	TemplateVersion  *string             `json:"template_version,omitempty"`
	SourceDataHash   *string             `json:"source_data_hash,omitempty"`
	QualityScore     *float64            `json:"quality_score,omitempty"`
	Tags             []string            `json:"tags,omitempty"`
	IsFavorite       bool                `json:"is_favorite"`
	IsArchived       bool                `json:"is_archived"`
	CreatedAt        *string             `json:"created_at,omitempty"`
	UpdatedAt        *string             `json:"updated_at,omitempty"`
}

// Dataset describes an uploaded CSV file and its profile summary.
type Dataset struct {
	ID           int64    `json:"id"`
	Filename     string   `json:"filename"`
	RowCount     int      `json:"row_count"`
	ColumnCount  int      `json:"column_count"`
	Columns      []string `json:"columns,omitempty"`
	QualityScore *float64 `json:"quality_score,omitempty"`
	UploadedAt   *string  `json:"uploaded_at,omitempty"`
}

// NarrativeFilters narrows ListNarratives results. Nil pointer fields
// are not applied.
type NarrativeFilters struct {
	UserID        *string
	DatasetID     *int64
	NarrativeType *string
	Favorite      *bool
	Archived      *bool
	Tag           *string
	Limit         int
	Offset        int
	OrderBy       string
	SortAsc       bool
}

// TagCount pairs a tag with its usage count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// NarrativeStats aggregates narrative usage for one user or globally.
type NarrativeStats struct {
	Total       int            `json:"total_narratives"`
	ByType      map[string]int `json:"by_type"`
	Favorites   int            `json:"favorites"`
	Archived    int            `json:"archived"`
	AvgInsights float64        `json:"avg_insights_per_narrative"`
	TopTags     []TagCount     `json:"top_tags"`
}

// RecordFromNarrative converts a generated narrative into a record
// ready for InsertNarrative.
func RecordFromNarrative(n *narrative.Narrative, datasetID *int64, userID *string, tags []string) *NarrativeRecord {
	rec := &NarrativeRecord{
		UserID:           userID,
		DatasetID:        datasetID,
		NarrativeType:    string(n.NarrativeType),
		Title:            n.Title,
		Summary:          n.Summary,
		Content:          n.Content,
		Sections:         n.Sections,
		KeyInsights:      n.KeyInsights,
		Recommendations:  n.Recommendations,
		GenerationMethod: string(n.Metadata.GenerationMethod),
		GenerationTimeMs: float64(n.Metadata.GenerationTimeMs),
		QualityScore:     n.Metadata.QualityScore,
		Tags:             tags,
	}
	if n.Metadata.ModelVersion != "" {
		v := n.Metadata.ModelVersion
		rec.ModelVersion = &v
	}
	if n.Metadata.TemplateVersion != "" {
		v := n.Metadata.TemplateVersion
		rec.TemplateVersion = &v
	}
	if n.Metadata.SourceDataHash != "" {
		v := n.Metadata.SourceDataHash
		rec.SourceDataHash = &v
	}
	return rec
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalNarratives    int
	FavoriteNarratives int
	ArchivedNarratives int
	NarrativeTypes     int
	TotalDatasets      int
}
