package store

import "context"

// Manifest 逻辑表/列到物理页签/列名的映射；未配置的名称原样透传
type Manifest struct {
	Tables  map[string]string            `toml:"tables" json:"tables"`
	Columns map[string]map[string]string `toml:"columns" json:"columns"`
}

// Table 逻辑表对应的物理页签名
func (m *Manifest) Table(logical string) string {
	if m == nil {
		return logical
	}
	if p, ok := m.Tables[logical]; ok && p != "" {
		return p
	}
	return logical
}

// Column 逻辑列对应的物理列名
func (m *Manifest) Column(table, logical string) string {
	if m == nil {
		return logical
	}
	if p, ok := m.Columns[table][logical]; ok && p != "" {
		return p
	}
	return logical
}

// ToPhysical 逻辑行 -> 物理行
func (m *Manifest) ToPhysical(table string, r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[m.Column(table, k)] = v
	}
	return out
}

// ToLogical 物理行 -> 逻辑行
func (m *Manifest) ToLogical(table string, r Row) Row {
	if m == nil || len(m.Columns[table]) == 0 {
		return r.Clone()
	}
	reverse := make(map[string]string, len(m.Columns[table]))
	for logical, physical := range m.Columns[table] {
		reverse[physical] = logical
	}
	out := make(Row, len(r))
	for k, v := range r {
		if l, ok := reverse[k]; ok {
			out[l] = v
			continue
		}
		out[k] = v
	}
	return out
}

// Mapped 在底层存储之上应用清单映射，调用方只使用逻辑名
type Mapped struct {
	inner    RowStore
	manifest *Manifest
}

// NewMapped 包装底层存储
func NewMapped(inner RowStore, manifest *Manifest) *Mapped {
	return &Mapped{inner: inner, manifest: manifest}
}

// GetAllRows 读取整表
func (s *Mapped) GetAllRows(ctx context.Context, table string) ([]Row, error) {
	rows, err := s.inner.GetAllRows(ctx, s.manifest.Table(table))
	if err != nil {
		return nil, err
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = s.manifest.ToLogical(table, r)
	}
	return out, nil
}

// AddRow 追加一行
func (s *Mapped) AddRow(ctx context.Context, table string, row Row) error {
	return s.inner.AddRow(ctx, s.manifest.Table(table), s.manifest.ToPhysical(table, row))
}

// AddRows 批量追加
func (s *Mapped) AddRows(ctx context.Context, table string, rows []Row) error {
	phys := make([]Row, len(rows))
	for i, r := range rows {
		phys[i] = s.manifest.ToPhysical(table, r)
	}
	return s.inner.AddRows(ctx, s.manifest.Table(table), phys)
}
