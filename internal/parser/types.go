package parser

import "fmt"

// ExtractOptions 抽取参数（可配置的启发式阈值）
type ExtractOptions struct {
	// BlockEndBlankRows 最后一个重复块在连续多少个近空行后结束
	BlockEndBlankRows int
	// FinishedGoodsBlankRows 成品表在标识列连续多少个空行后结束
	FinishedGoodsBlankRows int
	Finder                 FinderOptions
}

const (
	DefaultBlockEndBlankRows      = 5
	DefaultFinishedGoodsBlankRows = 3
)

// DefaultExtractOptions 默认抽取参数
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		BlockEndBlankRows:      DefaultBlockEndBlankRows,
		FinishedGoodsBlankRows: DefaultFinishedGoodsBlankRows,
	}
}

func (o ExtractOptions) withDefaults() ExtractOptions {
	if o.BlockEndBlankRows <= 0 {
		o.BlockEndBlankRows = DefaultBlockEndBlankRows
	}
	if o.FinishedGoodsBlankRows <= 0 {
		o.FinishedGoodsBlankRows = DefaultFinishedGoodsBlankRows
	}
	return o
}

// Result 单个抽取单元（字段/块/页签）的结果：数据 + 非致命警告 + 结构性错误
type Result[T any] struct {
	Data     T
	Warnings []string
	Errors   []string
}

// Warn 追加警告
func (r *Result[T]) Warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Fail 追加结构性错误
func (r *Result[T]) Fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Merge 合并另一个结果的警告与错误
func (r *Result[T]) Merge(warnings, errors []string) {
	r.Warnings = append(r.Warnings, warnings...)
	r.Errors = append(r.Errors, errors...)
}

// Safely 执行一个抽取单元，panic 被转换为警告并返回默认数据
func Safely[T any](label string, fn func() Result[T]) (res Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			res = Result[T]{Data: zero}
			res.Warn("%s: extraction failed: %v", label, p)
		}
	}()
	return fn()
}

// Extractor 单页签抽取器
type Extractor[T any] interface {
	Extract() Result[T]
}
