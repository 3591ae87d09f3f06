package database

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const narrativeColumns = `id, user_id, dataset_id, narrative_type, title, summary, content,
	sections, key_insights, recommendations, generation_method, generation_time_ms,
	model_version, template_version, source_data_hash, quality_score, tags,
	is_favorite, is_archived, created_at, updated_at`

// narrativeOrderColumns whitelists columns accepted by ListNarratives.
// Anything else falls back to created_at.
var narrativeOrderColumns = map[string]bool{
	"created_at":         true,
	"updated_at":         true,
	"title":              true,
	"narrative_type":     true,
	"generation_time_ms": true,
}

// InsertNarrative persists a narrative and returns its ID.
func (db *DB) InsertNarrative(rec *NarrativeRecord) (int64, error) {
	sections, err := marshalJSONColumn(rec.Sections)
	if err != nil {
		return 0, err
	}
	insights, err := marshalJSONColumn(rec.KeyInsights)
	if err != nil {
		return 0, err
	}
	recs, err := marshalJSONColumn(rec.Recommendations)
	if err != nil {
		return 0, err
	}
	tags, err := marshalJSONColumn(rec.Tags)
	if err != nil {
		return 0, err
	}

	result, err := db.conn.Exec(
		`INSERT INTO narratives
		(user_id, dataset_id, narrative_type, title, summary, content,
		 sections, key_insights, recommendations, generation_method, generation_time_ms,
		 model_version, template_version, source_data_hash, quality_score, tags,
		 is_favorite, is_archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.DatasetID, rec.NarrativeType, rec.Title, rec.Summary, rec.Content,
		sections, insights, recs, rec.GenerationMethod, rec.GenerationTimeMs,
		rec.ModelVersion, rec.TemplateVersion, rec.SourceDataHash, rec.QualityScore, tags,
		boolToInt(rec.IsFavorite), boolToInt(rec.IsArchived),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetNarrative returns a narrative by ID, or nil if it does not exist.
func (db *DB) GetNarrative(narrativeID int64) (*NarrativeRecord, error) {
	recs, err := db.queryNarratives(
		"SELECT "+narrativeColumns+" FROM narratives WHERE id = ?", narrativeID,
	)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// ListNarratives returns narratives matching the filters, newest first
// unless an order is given.
func (db *DB) ListNarratives(f NarrativeFilters) ([]NarrativeRecord, error) {
	var where []string
	var args []any

	if f.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.DatasetID != nil {
		where = append(where, "dataset_id = ?")
		args = append(args, *f.DatasetID)
	}
	if f.NarrativeType != nil {
		where = append(where, "narrative_type = ?")
		args = append(args, *f.NarrativeType)
	}
	if f.Favorite != nil {
		where = append(where, "is_favorite = ?")
		args = append(args, boolToInt(*f.Favorite))
	}
	if f.Archived != nil {
		where = append(where, "is_archived = ?")
		args = append(args, boolToInt(*f.Archived))
	}
	if f.Tag != nil {
		// Tags are stored as a JSON array of strings.
		where = append(where, "tags LIKE ?")
		args = append(args, `%"`+*f.Tag+`"%`)
	}

	query := "SELECT " + narrativeColumns + " FROM narratives"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	orderCol := f.OrderBy
	if !narrativeOrderColumns[orderCol] {
		orderCol = "created_at"
	}
	dir := "DESC"
	if f.SortAsc {
		dir = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", orderCol, dir)

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	return db.queryNarratives(query, args...)
}

// UpdateNarrative updates specified fields of a narrative. Nil fields
// are left unchanged. Returns false if the narrative does not exist.
func (db *DB) UpdateNarrative(narrativeID int64, title, summary *string, tags []string) (bool, error) {
	var updates []string
	var args []any

	if title != nil {
		updates = append(updates, "title = ?")
		args = append(args, *title)
	}
	if summary != nil {
		updates = append(updates, "summary = ?")
		args = append(args, *summary)
	}
	if tags != nil {
		data, err := json.Marshal(tags)
		if err != nil {
			return false, err
		}
		updates = append(updates, "tags = ?")
		args = append(args, string(data))
	}
	if len(updates) == 0 {
		rec, err := db.GetNarrative(narrativeID)
		return rec != nil, err
	}

	updates = append(updates, "updated_at = datetime('now')")
	args = append(args, narrativeID)

	query := fmt.Sprintf("UPDATE narratives SET %s WHERE id = ?", strings.Join(updates, ", "))
	result, err := db.conn.Exec(query, args...)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// DeleteNarrative removes a narrative. Returns false if it did not exist.
func (db *DB) DeleteNarrative(narrativeID int64) (bool, error) {
	result, err := db.conn.Exec("DELETE FROM narratives WHERE id = ?", narrativeID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// ToggleFavorite flips the favorite flag and returns the updated record,
// or nil if the narrative does not exist.
func (db *DB) ToggleFavorite(narrativeID int64) (*NarrativeRecord, error) {
	_, err := db.conn.Exec(
		`UPDATE narratives SET is_favorite = NOT is_favorite, updated_at = datetime('now') WHERE id = ?`,
		narrativeID,
	)
	if err != nil {
		return nil, err
	}
	return db.GetNarrative(narrativeID)
}

// ArchiveNarrative sets the archived flag. Returns false if the
// narrative does not exist.
func (db *DB) ArchiveNarrative(narrativeID int64, archived bool) (bool, error) {
	result, err := db.conn.Exec(
		`UPDATE narratives SET is_archived = ?, updated_at = datetime('now') WHERE id = ?`,
		boolToInt(archived), narrativeID,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// SearchNarratives matches the query against title, summary and content.
func (db *DB) SearchNarratives(query string, limit int) ([]NarrativeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + query + "%"
	return db.queryNarratives(
		"SELECT "+narrativeColumns+` FROM narratives
		WHERE title LIKE ? OR summary LIKE ? OR content LIKE ?
		ORDER BY created_at DESC LIMIT ?`,
		pattern, pattern, pattern, limit,
	)
}

// GetNarrativeStats aggregates narrative usage, optionally for one user.
func (db *DB) GetNarrativeStats(userID *string) (*NarrativeStats, error) {
	where := ""
	var args []any
	if userID != nil {
		where = " WHERE user_id = ?"
		args = append(args, *userID)
	}

	recs, err := db.queryNarratives("SELECT "+narrativeColumns+" FROM narratives"+where, args...)
	if err != nil {
		return nil, err
	}

	stats := &NarrativeStats{ByType: map[string]int{}}
	tagCounts := map[string]int{}
	totalInsights := 0

	for i := range recs {
		r := &recs[i]
		stats.Total++
		stats.ByType[r.NarrativeType]++
		if r.IsFavorite {
			stats.Favorites++
		}
		if r.IsArchived {
			stats.Archived++
		}
		totalInsights += len(r.KeyInsights)
		for _, tag := range r.Tags {
			tagCounts[tag]++
		}
	}

	if stats.Total > 0 {
		stats.AvgInsights = float64(totalInsights) / float64(stats.Total)
	}

	for tag, count := range tagCounts {
		stats.TopTags = append(stats.TopTags, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(stats.TopTags, func(i, j int) bool {
		if stats.TopTags[i].Count != stats.TopTags[j].Count {
			return stats.TopTags[i].Count > stats.TopTags[j].Count
		}
		return stats.TopTags[i].Tag < stats.TopTags[j].Tag
	})
	if len(stats.TopTags) > 10 {
		stats.TopTags = stats.TopTags[:10]
	}

	return stats, nil
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM narratives", &s.TotalNarratives},
		{"SELECT COUNT(*) FROM narratives WHERE is_favorite = 1", &s.FavoriteNarratives},
		{"SELECT COUNT(*) FROM narratives WHERE is_archived = 1", &s.ArchivedNarratives},
		{"SELECT COUNT(DISTINCT narrative_type) FROM narratives", &s.NarrativeTypes},
		{"SELECT COUNT(*) FROM datasets", &s.TotalDatasets},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (db *DB) queryNarratives(query string, args ...any) ([]NarrativeRecord, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []NarrativeRecord
	for rows.Next() {
		var r NarrativeRecord
		var sections, insights, recs, tags *string
		var favorite, archived int
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.DatasetID, &r.NarrativeType, &r.Title, &r.Summary, &r.Content,
			&sections, &insights, &recs, &r.GenerationMethod, &r.GenerationTimeMs,
			&r.ModelVersion, &r.TemplateVersion, &r.SourceDataHash, &r.QualityScore, &tags,
			&favorite, &archived, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		r.IsFavorite = favorite != 0
		r.IsArchived = archived != 0
		unmarshalJSONColumn(sections, &r.Sections)
		unmarshalJSONColumn(insights, &r.KeyInsights)
		unmarshalJSONColumn(recs, &r.Recommendations)
		unmarshalJSONColumn(tags, &r.Tags)
		records = append(records, r)
	}
	return records, rows.Err()
}

// marshalJSONColumn encodes v for a nullable JSON text column.
func marshalJSONColumn(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(data)
	if s == "null" {
		return nil, nil
	}
	return &s, nil
}

// unmarshalJSONColumn decodes a nullable JSON text column, ignoring
// malformed values.
func unmarshalJSONColumn(raw *string, dest any) {
	if raw == nil {
		return
	}
	_ = json.Unmarshal([]byte(*raw), dest)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
