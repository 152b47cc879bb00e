package ingest

import "strings"

// 递归切分的分隔符层级，从段落到句子再到单词
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter 递归文本切分器：优先在语义边界切开，
// 只有在没有可用边界时才按长度硬切。
type Splitter struct {
	chunkSize int
	overlap   int
	maxRunes  int
}

// NewSplitter 创建切分器。overlap 必须小于 chunkSize，
// maxRunes 是切分后的硬性上限（超长截断）。
func NewSplitter(chunkSize, overlap, maxRunes int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 2000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	if maxRunes < chunkSize {
		maxRunes = chunkSize * 2
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap, maxRunes: maxRunes}
}

// Split 把文本切成长度有界的非空片段
func (s *Splitter) Split(text string) []string {
	pieces := s.split(strings.TrimSpace(text), separators)

	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if r := []rune(p); len(r) > s.maxRunes {
			p = string(r[:s.maxRunes])
		}
		out = append(out, p)
	}
	return out
}

func (s *Splitter) split(text string, seps []string) []string {
	if text == "" {
		return nil
	}
	if len([]rune(text)) <= s.chunkSize {
		return []string{text}
	}
	if len(seps) == 0 {
		return s.splitByLength(text)
	}

	sep := seps[0]
	parts := strings.Split(text, sep)
	if len(parts) == 1 {
		// 当前分隔符不出现，降级到下一层
		return s.split(text, seps[1:])
	}

	// 超长片段先用更细的分隔符拆开，再合并回有界块
	var pieces []string
	for _, p := range parts {
		if len([]rune(p)) > s.chunkSize {
			pieces = append(pieces, s.split(p, seps[1:])...)
		} else if strings.TrimSpace(p) != "" {
			pieces = append(pieces, p)
		}
	}
	return s.merge(pieces, sep)
}

// merge 把相邻小片段合并到接近 chunkSize，块之间保留 overlap 的尾部重叠
func (s *Splitter) merge(pieces []string, sep string) []string {
	var out []string
	var current []rune
	for _, p := range pieces {
		piece := []rune(p)
		if len(current) > 0 && len(current)+len(sep)+len(piece) > s.chunkSize {
			out = append(out, string(current))
			current = tail(current, s.overlap)
		}
		if len(current) > 0 {
			current = append(current, []rune(sep)...)
		}
		current = append(current, piece...)
	}
	if len(current) > 0 {
		out = append(out, string(current))
	}
	return out
}

// splitByLength 无边界可用时按长度硬切，保留重叠
func (s *Splitter) splitByLength(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

func tail(r []rune, n int) []rune {
	if n <= 0 || len(r) <= n {
		return append([]rune(nil), r...)
	}
	return append([]rune(nil), r[len(r)-n:]...)
}
