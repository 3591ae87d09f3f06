package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS datasets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    filename TEXT NOT NULL,
    row_count INTEGER DEFAULT 0,
    column_count INTEGER DEFAULT 0,
    columns TEXT,
    quality_score REAL,
    uploaded_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS narratives (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT,
    dataset_id INTEGER REFERENCES datasets(id),
    narrative_type TEXT NOT NULL,
    title TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    sections TEXT,
    key_insights TEXT,
    recommendations TEXT,
    generation_method TEXT NOT NULL DEFAULT 'template',
    generation_time_ms REAL DEFAULT 0,
    model_version TEXT,
    template_version TEXT,
    source_data_hash TEXT,
    quality_score REAL,
    tags TEXT,
    is_favorite INTEGER DEFAULT 0,
    is_archived INTEGER DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_narratives_user ON narratives(user_id);
CREATE INDEX IF NOT EXISTS idx_narratives_dataset ON narratives(dataset_id);
CREATE INDEX IF NOT EXISTS idx_narratives_type ON narratives(narrative_type);
CREATE INDEX IF NOT EXISTS idx_narratives_created ON narratives(created_at);
CREATE INDEX IF NOT EXISTS idx_datasets_filename ON datasets(filename);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
