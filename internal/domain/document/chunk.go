// Package document 定义语料块的领域模型
package document

import (
	"path/filepath"
	"strings"
)

// SourceType 来源类型
type SourceType string

// 来源类型取值
const (
	TypePDF                 SourceType = "pdf"
	TypeCSV                 SourceType = "csv"
	TypeJSON                SourceType = "json"
	TypeNotebook            SourceType = "notebook"
	TypeFindingSummary      SourceType = "hallazgo_rendimiento"
	TypeDataset             SourceType = "dataset"
	TypeDatasetUCI          SourceType = "dataset_uci"
	TypeCountryStats        SourceType = "estadisticas_ecuador"
	TypeAcademicPaper       SourceType = "academic_paper"
	TypeInstitutional       SourceType = "institutional_document"
	TypeScholarshipPolicy   SourceType = "scholarship_policy"
	TypeEducationalResource SourceType = "educational_resource"
	TypeOther               SourceType = "other"
)

// Metadata 语料块元数据
type Metadata struct {
	Source   string     `json:"source"`
	Type     SourceType `json:"type"`
	Filename string     `json:"filename,omitempty"`
}

// Chunk 检索的原子单位：来源文档切分出的有界文本片段。
// 入库后不可变；重新摄取是替换而不是更新。
type Chunk struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Basename 返回来源文件名（优先 Filename，退回 Source 的 basename）
func (c Chunk) Basename() string {
	if c.Metadata.Filename != "" {
		return filepath.Base(c.Metadata.Filename)
	}
	if c.Metadata.Source != "" {
		return filepath.Base(c.Metadata.Source)
	}
	return ""
}

// IsTabular 判断块是否为表格证据：类型为 csv、文件名以 .csv 结尾、
// 或内容以 CSV 摄取时写入的标题行开头。
func (c Chunk) IsTabular() bool {
	if c.Metadata.Type == TypeCSV {
		return true
	}
	name := strings.ToLower(c.Basename())
	if strings.HasSuffix(name, ".csv") {
		return true
	}
	first, _, _ := strings.Cut(strings.TrimSpace(c.Content), "\n")
	first = strings.ToLower(strings.TrimSpace(first))
	return strings.HasPrefix(first, "archivo:") && strings.HasSuffix(first, ".csv")
}
