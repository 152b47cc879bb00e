// Package stats 对语料全量元数据做纯聚合统计
package stats

import (
	"context"
	"sort"
	"strings"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/application/retrieval"
	pkgerrors "github.com/SKEIILATT/ProyectoLP-2P/pkg/errors"
)

// CacheKey 语料统计报告的缓存键，重新摄取语料后按此键失效
const CacheKey = "rag:stats"

// Fuente 单个来源文件的统计
type Fuente struct {
	Nombre string `json:"nombre"`
	Chunks int    `json:"chunks"`
	Tipo   string `json:"tipo"`
}

// Tipos 按文件类型的块计数
type Tipos struct {
	CSV     int `json:"csv"`
	Jupyter int `json:"jupyter"`
	PDF     int `json:"pdf"`
	Otros   int `json:"otros"`
}

// Report 语料统计报告
type Report struct {
	TotalDocumentos int      `json:"total_documentos"`
	TotalChunks     int      `json:"total_chunks"`
	Fuentes         []Fuente `json:"fuentes"`
	Tipos           Tipos    `json:"tipos"`
}

// Reporter 语料统计器
type Reporter struct {
	store retrieval.ChunkStore
}

// NewReporter 创建统计器
func NewReporter(store retrieval.ChunkStore) *Reporter {
	return &Reporter{store: store}
}

// CorpusStats 全量扫描并按来源文件聚合。
// 存储不可达时返回错误，由 HTTP 层转成单一 error 字段。
func (r *Reporter) CorpusStats(ctx context.Context) (*Report, error) {
	if r.store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeServiceUnavailable, "chunk store not initialized")
	}
	chunks, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeVectorDBError, "failed to scan chunk store")
	}

	byName := make(map[string]*Fuente)
	report := &Report{TotalChunks: len(chunks), Fuentes: []Fuente{}}
	for _, c := range chunks {
		name := c.Basename()
		if name == "" {
			name = "desconocido"
		}
		f, ok := byName[name]
		if !ok {
			f = &Fuente{Nombre: name, Tipo: classify(name)}
			byName[name] = f
		}
		f.Chunks++

		switch f.Tipo {
		case "csv":
			report.Tipos.CSV++
		case "jupyter":
			report.Tipos.Jupyter++
		case "pdf":
			report.Tipos.PDF++
		default:
			report.Tipos.Otros++
		}
	}

	report.TotalDocumentos = len(byName)
	for _, f := range byName {
		report.Fuentes = append(report.Fuentes, *f)
	}
	// 块数降序，同数按名字典序，保证输出稳定
	sort.Slice(report.Fuentes, func(i, j int) bool {
		if report.Fuentes[i].Chunks != report.Fuentes[j].Chunks {
			return report.Fuentes[i].Chunks > report.Fuentes[j].Chunks
		}
		return report.Fuentes[i].Nombre < report.Fuentes[j].Nombre
	})
	return report, nil
}

// classify 按扩展名归类来源文件
func classify(name string) string {
	switch {
	case strings.HasSuffix(retrieval.Normalize(name), ".csv"):
		return "csv"
	case strings.HasSuffix(retrieval.Normalize(name), ".ipynb"):
		return "jupyter"
	case strings.HasSuffix(retrieval.Normalize(name), ".pdf"):
		return "pdf"
	default:
		return "otros"
	}
}
