package store

import (
	"context"
	"fmt"
	"time"
)

// ImportLog 导入日志
type ImportLog struct {
	ID             int64      `json:"id"`
	Filename       string     `json:"filename"`
	FileSize       int64      `json:"fileSize"`
	FileHash       string     `json:"fileHash"`
	SessionID      string     `json:"sessionId"`
	ProjectID      string     `json:"projectId"`
	ParseStatus    string     `json:"parseStatus"`
	TotalLines     int        `json:"totalLines"`
	MappedLines    int        `json:"mappedLines"`
	ExceptionLines int        `json:"exceptionLines"`
	Warnings       int        `json:"warnings"`
	Status         string     `json:"status"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// ImportSummary 导入完成时回写的统计
type ImportSummary struct {
	SessionID      string
	ProjectID      string
	ParseStatus    string
	TotalLines     int
	MappedLines    int
	ExceptionLines int
	Warnings       int
	Status         string
	ErrorMessage   string
}

// CreateImportLog 创建导入日志，返回 import_log_id
func (s *Store) CreateImportLog(ctx context.Context, filename string, fileSize int64, fileHash string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO import_logs (filename, file_size, file_hash, status)
		VALUES (?, ?, ?, 'processing')
	`, filename, fileSize, fileHash)
	if err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get import log id: %w", err)
	}
	return id, nil
}

// UpdateImportLog 完成导入日志更新
func (s *Store) UpdateImportLog(ctx context.Context, id int64, sum ImportSummary) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE import_logs SET
			session_id = ?,
			project_id = ?,
			parse_status = ?,
			total_lines = ?,
			mapped_lines = ?,
			exception_lines = ?,
			warnings = ?,
			status = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, sum.SessionID, sum.ProjectID, sum.ParseStatus, sum.TotalLines, sum.MappedLines,
		sum.ExceptionLines, sum.Warnings, sum.Status, sum.ErrorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	return nil
}

// ListImportLogs 最近的导入日志（新的在前）
func (s *Store) ListImportLogs(ctx context.Context, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, file_size, file_hash, session_id, project_id, parse_status,
			total_lines, mapped_lines, exception_lines, warnings, status, error_message,
			created_at, completed_at
		FROM import_logs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	defer rows.Close()

	var out []ImportLog
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(&l.ID, &l.Filename, &l.FileSize, &l.FileHash, &l.SessionID, &l.ProjectID,
			&l.ParseStatus, &l.TotalLines, &l.MappedLines, &l.ExceptionLines, &l.Warnings,
			&l.Status, &l.ErrorMessage, &l.CreatedAt, &l.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
