package database

import "encoding/json"

// InsertDataset records an analyzed CSV file and returns its ID.
func (db *DB) InsertDataset(filename string, rowCount, columnCount int, columns []string, qualityScore *float64) (int64, error) {
	cols, err := marshalJSONColumn(columns)
	if err != nil {
		return 0, err
	}

	result, err := db.conn.Exec(
		`INSERT INTO datasets (filename, row_count, column_count, columns, quality_score)
		VALUES (?, ?, ?, ?, ?)`,
		filename, rowCount, columnCount, cols, qualityScore,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetDataset returns a dataset by ID, or nil if it does not exist.
func (db *DB) GetDataset(datasetID int64) (*Dataset, error) {
	datasets, err := db.queryDatasets("SELECT id, filename, row_count, column_count, columns, quality_score, uploaded_at FROM datasets WHERE id = ?", datasetID)
	if err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		return nil, nil
	}
	return &datasets[0], nil
}

// GetAllDatasets returns all datasets, newest first.
func (db *DB) GetAllDatasets() ([]Dataset, error) {
	return db.queryDatasets("SELECT id, filename, row_count, column_count, columns, quality_score, uploaded_at FROM datasets ORDER BY uploaded_at DESC, id DESC")
}

// DeleteDataset removes a dataset. Returns false if it did not exist.
func (db *DB) DeleteDataset(datasetID int64) (bool, error) {
	result, err := db.conn.Exec("DELETE FROM datasets WHERE id = ?", datasetID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

func (db *DB) queryDatasets(query string, args ...any) ([]Dataset, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []Dataset
	for rows.Next() {
		var d Dataset
		var cols *string
		if err := rows.Scan(&d.ID, &d.Filename, &d.RowCount, &d.ColumnCount, &cols, &d.QualityScore, &d.UploadedAt); err != nil {
			return nil, err
		}
		if cols != nil {
			if err := json.Unmarshal([]byte(*cols), &d.Columns); err != nil {
				d.Columns = nil
			}
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}
