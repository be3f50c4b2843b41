package mapping

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	disallowedRe = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// Normalize 物料描述规范化：NFKC、小写、去除符号、压缩空白
// 参照表、覆盖规则与查询都使用同一规则，精确匹配基于规范化结果
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Lower(language.Und).String(s)
	s = disallowedRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func scopeKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
