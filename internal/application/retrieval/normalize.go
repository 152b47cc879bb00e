package retrieval

import (
	"strings"
	"unicode"
)

// 西语变音字符到 ASCII 的映射，ñ 同样折叠为 n
var diacritics = map[rune]rune{
	'á': 'a', 'é': 'e', 'í': 'i', 'ó': 'o', 'ú': 'u',
	'ä': 'a', 'ë': 'e', 'ï': 'i', 'ö': 'o', 'ü': 'u',
	'à': 'a', 'è': 'e', 'ì': 'i', 'ò': 'o', 'ù': 'u',
	'ñ': 'n', 'ç': 'c',
}

// Normalize 统一文本形态：小写并去除变音符号。
// 触发词匹配、关键词打分、CSV 指标行查找都走这一个入口。
func Normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if mapped, ok := diacritics[r]; ok {
			r = mapped
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Tokens 归一化后切词，丢弃过短词（冠词、介词一类）
func Tokens(s string) []string {
	norm := Normalize(s)
	fields := strings.FieldsFunc(norm, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) > 3 {
			out = append(out, f)
		}
	}
	return out
}

// ContainsAny 归一化后判断文本是否命中词表中任意一词
func ContainsAny(text string, words []string) bool {
	norm := Normalize(text)
	for _, w := range words {
		if w == "" {
			continue
		}
		if strings.Contains(norm, Normalize(w)) {
			return true
		}
	}
	return false
}

// countHits 统计词表各词在文本中的出现次数之和（打分用），
// 同一个词出现多次按多次计
func countHits(text string, words []string) int {
	norm := Normalize(text)
	n := 0
	for _, w := range words {
		if w == "" {
			continue
		}
		n += strings.Count(norm, Normalize(w))
	}
	return n
}
