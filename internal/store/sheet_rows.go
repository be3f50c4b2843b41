package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetAllRows 按写入顺序读取某页签的所有行
func (s *Store) GetAllRows(ctx context.Context, table string) ([]Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT fields FROM sheet_rows WHERE sheet = ? ORDER BY id`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		r := Row{}
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("failed to decode %s row: %w", table, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AddRow 追加一行
func (s *Store) AddRow(ctx context.Context, table string, row Row) error {
	return s.AddRows(ctx, table, []Row{row})
}

// AddRows 在一个事务中追加多行
func (s *Store) AddRows(ctx context.Context, table string, rows []Row) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sheet_rows (sheet, fields) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode %s row: %w", table, err)
		}
		if _, err := stmt.ExecContext(ctx, table, string(b)); err != nil {
			return fmt.Errorf("failed to insert %s row: %w", table, err)
		}
	}
	return tx.Commit()
}

// CountRows 某页签行数
func (s *Store) CountRows(ctx context.Context, table string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sheet_rows WHERE sheet = ?`, table).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
