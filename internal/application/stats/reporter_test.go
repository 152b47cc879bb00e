package stats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/domain/document"
)

type fakeStore struct {
	chunks []document.Chunk
	err    error
}

func (f *fakeStore) SimilaritySearch(_ context.Context, _ string, _ int) ([]document.Chunk, error) {
	return nil, errors.New("not used by reporter")
}

func (f *fakeStore) ListAll(_ context.Context) ([]document.Chunk, error) {
	return f.chunks, f.err
}

func corpus() []document.Chunk {
	var chunks []document.Chunk
	add := func(file string, n int) {
		for i := 0; i < n; i++ {
			chunks = append(chunks, document.Chunk{
				ID:      fmt.Sprintf("%s-%d", file, i),
				Content: "contenido",
				Metadata: document.Metadata{
					Source:   "data/" + file,
					Filename: file,
				},
			})
		}
	}
	// 23 块分布在 5 个来源文件上
	add("resumen_general_desercion_2022.csv", 3)
	add("desercion_por_sexo.csv", 2)
	add("informe_senescyt.pdf", 10)
	add("analisis_desercion.ipynb", 6)
	add("notas.txt", 2)
	return chunks
}

func TestCorpusStats(t *testing.T) {
	r := NewReporter(&fakeStore{chunks: corpus()})

	report, err := r.CorpusStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.TotalDocumentos)
	assert.Equal(t, 23, report.TotalChunks)

	assert.Equal(t, 5, report.Tipos.CSV)
	assert.Equal(t, 6, report.Tipos.Jupyter)
	assert.Equal(t, 10, report.Tipos.PDF)
	assert.Equal(t, 2, report.Tipos.Otros)

	require.Len(t, report.Fuentes, 5)
	// 块数降序
	assert.Equal(t, "informe_senescyt.pdf", report.Fuentes[0].Nombre)
	assert.Equal(t, 10, report.Fuentes[0].Chunks)
	assert.Equal(t, "pdf", report.Fuentes[0].Tipo)
	assert.Equal(t, "analisis_desercion.ipynb", report.Fuentes[1].Nombre)
	assert.Equal(t, "jupyter", report.Fuentes[1].Tipo)
}

func TestCorpusStatsEmptyStore(t *testing.T) {
	r := NewReporter(&fakeStore{})

	report, err := r.CorpusStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.TotalDocumentos)
	assert.Zero(t, report.TotalChunks)
	assert.Empty(t, report.Fuentes)
}

func TestCorpusStatsStoreError(t *testing.T) {
	r := NewReporter(&fakeStore{err: errors.New("milvus unreachable")})

	_, err := r.CorpusStats(context.Background())
	assert.Error(t, err)
}

func TestCorpusStatsNilStore(t *testing.T) {
	r := NewReporter(nil)

	_, err := r.CorpusStats(context.Background())
	assert.Error(t, err)
}
