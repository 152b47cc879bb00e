package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/domain/document"
)

// notebookFile Jupyter notebook 的结构子集（v4 格式）
type notebookFile struct {
	Cells []notebookCell `json:"cells"`
}

type notebookCell struct {
	CellType string          `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
	Outputs  []notebookOut   `json:"outputs"`
}

type notebookOut struct {
	Text json.RawMessage `json:"text"`
}

// loadNotebook 把 notebook 的 markdown、代码和文本输出拼成一个文档，
// 每个单元格带位置标记
func loadNotebook(root, path string) ([]SourceDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var nb notebookFile
	if err := json.Unmarshal(raw, &nb); err != nil {
		return nil, fmt.Errorf("parse notebook: %w", err)
	}

	var sections []string
	for i, cell := range nb.Cells {
		src := joinedText(cell.Source)
		switch cell.CellType {
		case "markdown":
			if src != "" {
				sections = append(sections, fmt.Sprintf("# Markdown (Celda %d)\n%s", i, src))
			}
		case "code":
			if src != "" {
				sections = append(sections, fmt.Sprintf("# Código (Celda %d)\n%s", i, src))
			}
		}
		for _, out := range cell.Outputs {
			if text := joinedText(out.Text); text != "" {
				sections = append(sections, fmt.Sprintf("# Output (Celda %d)\n%s", i, text))
			}
		}
	}
	if len(sections) == 0 {
		return nil, nil
	}
	return []SourceDocument{{
		Content:  strings.Join(sections, "\n\n"),
		Metadata: metadataFor(root, path, document.TypeNotebook),
	}}, nil
}

// joinedText notebook 字段既可能是字符串也可能是行数组
func joinedText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimRight(s, "\n")
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.TrimRight(strings.Join(lines, ""), "\n")
	}
	return ""
}
