package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	rowstore "ductsync/internal/store"
)

// TestNewMemoryStore 测试创建存储
func TestNewMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	if s == nil {
		t.Fatal("NewMemoryStore() returned nil")
	}
	if s.Count(rowstore.TableMappingHistory) != 0 {
		t.Errorf("New store should be empty")
	}
}

// TestMemoryStore_CountsCalls 读写次数统计，Seed 不计数
func TestMemoryStore_CountsCalls(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Seed(rowstore.TableMaterialReference, rowstore.Row{"description": "glue"})

	if s.GetCalls(rowstore.TableMaterialReference) != 0 {
		t.Fatalf("Seed should not count as a read")
	}
	rows, err := s.GetAllRows(ctx, rowstore.TableMaterialReference)
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetAllRows: %v %v", rows, err)
	}
	// 返回副本，修改不影响存储
	rows[0]["description"] = "changed"
	if s.Rows(rowstore.TableMaterialReference)[0]["description"] != "glue" {
		t.Fatalf("GetAllRows leaked internal row")
	}

	if err := s.AddRows(ctx, rowstore.TableBOMLines, []rowstore.Row{{"line_id": "a"}, {"line_id": "b"}}); err != nil {
		t.Fatalf("AddRows: %v", err)
	}
	if s.AddCalls(rowstore.TableBOMLines) != 1 || s.Count(rowstore.TableBOMLines) != 2 {
		t.Fatalf("adds=%d count=%d", s.AddCalls(rowstore.TableBOMLines), s.Count(rowstore.TableBOMLines))
	}
	if s.GetCalls(rowstore.TableMaterialReference) != 1 {
		t.Fatalf("gets=%d", s.GetCalls(rowstore.TableMaterialReference))
	}
}

// TestMemoryStore_FailOn 注入失败
func TestMemoryStore_FailOn(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")

	s.FailOn(rowstore.TableBOMLines, OpAdd, boom)
	if err := s.AddRow(ctx, rowstore.TableBOMLines, rowstore.Row{"line_id": "a"}); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if s.Count(rowstore.TableBOMLines) != 0 {
		t.Fatalf("failed batch must not be written")
	}

	s.FailOn(rowstore.TableBOMLines, OpAdd, nil)
	if err := s.AddRow(ctx, rowstore.TableBOMLines, rowstore.Row{"line_id": "a"}); err != nil {
		t.Fatalf("err=%v", err)
	}

	s.FailOn(rowstore.TableMaterialReference, OpGet, boom)
	if _, err := s.GetAllRows(ctx, rowstore.TableMaterialReference); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}

// TestConcurrentAccess 测试并发访问
func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.AddRow(ctx, rowstore.TableMappingHistory, rowstore.Row{"history_id": "x"})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.GetAllRows(ctx, rowstore.TableMappingHistory)
		}()
	}
	wg.Wait()

	if s.Count(rowstore.TableMappingHistory) != 50 {
		t.Errorf("count=%d, want 50", s.Count(rowstore.TableMappingHistory))
	}
}
