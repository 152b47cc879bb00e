package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/domain/document"
	"github.com/SKEIILATT/ProyectoLP-2P/pkg/logger"
)

// SourceDocument 切分前的完整来源文档
type SourceDocument struct {
	Content  string
	Metadata document.Metadata
}

// Loader 多来源文档装载器。目录缺失或单个文件解析失败
// 只记日志跳过，装载过程不中断。
type Loader struct {
	roots []string
}

// NewLoader 创建装载器
func NewLoader(roots []string) *Loader {
	return &Loader{roots: roots}
}

// LoadAll 递归扫描所有根目录并装载支持的文件类型
func (l *Loader) LoadAll(ctx context.Context) []SourceDocument {
	log := logger.FromContext(ctx)
	var docs []SourceDocument

	for _, root := range l.roots {
		if _, err := os.Stat(root); err != nil {
			log.Warn("ingest root not found, skipping", "root", root)
			continue
		}
		files := listFiles(root)
		log.Info("scanning ingest root", "root", root, "files", len(files))
		for _, path := range files {
			loaded, err := l.loadFile(root, path)
			if err != nil {
				log.Warn("failed to load file, skipping", "path", path, "error", err)
				continue
			}
			docs = append(docs, loaded...)
		}
	}
	log.Info("document loading finished", "documents", len(docs))
	return docs
}

func listFiles(root string) []string {
	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf", ".txt", ".csv", ".json", ".ipynb":
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files
}

func (l *Loader) loadFile(root, path string) ([]SourceDocument, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(root, path)
	case ".txt":
		return loadText(root, path)
	case ".csv":
		return loadCSV(root, path)
	case ".json":
		return loadJSON(root, path)
	case ".ipynb":
		return loadNotebook(root, path)
	default:
		return nil, nil
	}
}

// loadPDF 逐页抽取纯文本
func loadPDF(root, path string) ([]SourceDocument, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	if strings.TrimSpace(sb.String()) == "" {
		return nil, nil
	}
	return []SourceDocument{{
		Content:  sb.String(),
		Metadata: metadataFor(root, path, document.TypePDF),
	}}, nil
}

func loadText(root, path string) ([]SourceDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(content)) == "" {
		return nil, nil
	}
	return []SourceDocument{{
		Content:  string(content),
		Metadata: metadataFor(root, path, typeForRoot(root, document.TypeOther)),
	}}, nil
}

// loadCSV 整文件读入并加标题行，让文件名本身参与语义检索
func loadCSV(root, path string) ([]SourceDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	return []SourceDocument{{
		Content:  fmt.Sprintf("Archivo: %s\n\nDatos:\n%s", name, string(content)),
		Metadata: metadataFor(root, path, document.TypeCSV),
	}}, nil
}

// loadJSON 列表按条目展开为 "clave: valor" 行；对象整体缩进序列化
func loadJSON(root, path string) ([]SourceDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var asList []map[string]interface{}
	if err := json.Unmarshal(raw, &asList); err == nil {
		docs := make([]SourceDocument, 0, len(asList))
		for _, item := range asList {
			keys := make([]string, 0, len(item))
			for k := range item {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			lines := make([]string, 0, len(keys))
			for _, k := range keys {
				lines = append(lines, fmt.Sprintf("%s: %v", k, item[k]))
			}
			docs = append(docs, SourceDocument{
				Content:  strings.Join(lines, "\n"),
				Metadata: metadataFor(root, path, typeForRoot(root, document.TypeJSON)),
			})
		}
		return docs, nil
	}

	var asAny interface{}
	if err := json.Unmarshal(raw, &asAny); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	pretty, err := json.MarshalIndent(asAny, "", "  ")
	if err != nil {
		return nil, err
	}
	return []SourceDocument{{
		Content:  string(pretty),
		Metadata: metadataFor(root, path, typeForRoot(root, document.TypeJSON)),
	}}, nil
}

func metadataFor(root, path string, typ document.SourceType) document.Metadata {
	return document.Metadata{
		Source:   path,
		Type:     typ,
		Filename: filepath.Base(path),
	}
}

// typeForRoot 按来源目录细化类型标签
func typeForRoot(root string, fallback document.SourceType) document.SourceType {
	norm := strings.ToLower(filepath.ToSlash(root))
	switch {
	case strings.Contains(norm, "estadisticas_ecuador"):
		return document.TypeCountryStats
	case strings.Contains(norm, "papers"):
		return document.TypeAcademicPaper
	case strings.Contains(norm, "resources"):
		return document.TypeEducationalResource
	default:
		return fallback
	}
}
