package store

import (
	"context"
	"sync"

	rowstore "ductsync/internal/store"
)

// Op 存储操作类型
type Op string

const (
	OpGet Op = "get"
	OpAdd Op = "add"
)

// MemoryStore 内存行存储，记录每张表的读写次数，可注入失败
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]rowstore.Row
	gets   map[string]int
	adds   map[string]int
	fail   map[failKey]error
}

type failKey struct {
	table string
	op    Op
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string][]rowstore.Row),
		gets:   make(map[string]int),
		adds:   make(map[string]int),
		fail:   make(map[failKey]error),
	}
}

// Seed 直接写入初始数据，不计入调用次数
func (s *MemoryStore) Seed(table string, rows ...rowstore.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], r.Clone())
	}
}

// GetAllRows 读取整表（副本）
func (s *MemoryStore) GetAllRows(ctx context.Context, table string) ([]rowstore.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.gets[table]++
	err := s.fail[failKey{table, OpGet}]
	src := s.tables[table]
	out := make([]rowstore.Row, len(src))
	for i, r := range src {
		out[i] = r.Clone()
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddRow 追加一行
func (s *MemoryStore) AddRow(ctx context.Context, table string, row rowstore.Row) error {
	return s.AddRows(ctx, table, []rowstore.Row{row})
}

// AddRows 批量追加（全部成功或全部失败）
func (s *MemoryStore) AddRows(ctx context.Context, table string, rows []rowstore.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.adds[table]++
	if err := s.fail[failKey{table, OpAdd}]; err != nil {
		return err
	}
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], r.Clone())
	}
	return nil
}

// FailOn 让后续对 table 的 op 操作返回 err；err 为 nil 时取消
func (s *MemoryStore) FailOn(table string, op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, failKey{table, op})
		return
	}
	s.fail[failKey{table, op}] = err
}

// GetCalls 某表 GetAllRows 调用次数
func (s *MemoryStore) GetCalls(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gets[table]
}

// AddCalls 某表写入调用次数
func (s *MemoryStore) AddCalls(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adds[table]
}

// Rows 当前行（副本）
func (s *MemoryStore) Rows(table string) []rowstore.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rowstore.Row, len(s.tables[table]))
	for i, r := range s.tables[table] {
		out[i] = r.Clone()
	}
	return out
}

// Count 某表行数
func (s *MemoryStore) Count(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}

// Clear 清空所有数据与计数
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string][]rowstore.Row)
	s.gets = make(map[string]int)
	s.adds = make(map[string]int)
}
