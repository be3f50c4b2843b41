package store

import (
	"context"
	"encoding/json"
	"fmt"

	"ductsync/internal/model"
)

// InsertSheetMeta 写入页签识别结果（用于追溯与容错）
func (s *Store) InsertSheetMeta(ctx context.Context, importLogID int64, rec model.SheetRecognition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sheets_meta (import_log_id, sheet_name, sheet_type, score, missing_fields)
		VALUES (?, ?, ?, ?, ?)
	`, importLogID, rec.SheetName, string(rec.Type), rec.Score, BuildColumnsJSON(rec.MissingFields))
	if err != nil {
		return fmt.Errorf("failed to insert sheets_meta: %w", err)
	}
	return nil
}

// ListSheetMeta 某次导入的页签识别结果
func (s *Store) ListSheetMeta(ctx context.Context, importLogID int64) ([]model.SheetRecognition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sheet_name, sheet_type, score, missing_fields
		FROM sheets_meta WHERE import_log_id = ? ORDER BY id
	`, importLogID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sheets_meta: %w", err)
	}
	defer rows.Close()

	var out []model.SheetRecognition
	for rows.Next() {
		var (
			rec     model.SheetRecognition
			typ     string
			missing string
		)
		if err := rows.Scan(&rec.SheetName, &typ, &rec.Score, &missing); err != nil {
			return nil, fmt.Errorf("failed to scan sheets_meta: %w", err)
		}
		rec.Type = model.SheetType(typ)
		_ = json.Unmarshal([]byte(missing), &rec.MissingFields)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// BuildColumnsJSON 将列名序列化为 JSON
func BuildColumnsJSON(columns []string) string {
	if columns == nil {
		return "[]"
	}
	b, err := json.Marshal(columns)
	if err != nil {
		return "[]"
	}
	return string(b)
}
