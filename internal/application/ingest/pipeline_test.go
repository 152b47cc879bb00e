package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/config"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/domain/document"
)

type fakeUpserter struct {
	batches [][]document.Chunk
	err     error
}

func (f *fakeUpserter) Upsert(_ context.Context, chunks []document.Chunk) error {
	if f.err != nil {
		return f.err
	}
	batch := make([]document.Chunk, len(chunks))
	copy(batch, chunks)
	f.batches = append(f.batches, batch)
	return nil
}

func TestPipelineRunBatchesSequentially(t *testing.T) {
	dir := t.TempDir()
	// 足够长的文本，切出多个块
	writeFile(t, dir, "datos.txt", strings.Repeat("La deserción universitaria en Ecuador. ", 60))
	writeFile(t, dir, "tabla.csv", "a,b\n1,2\n")

	store := &fakeUpserter{}
	p := NewPipeline(store, config.IngestConfig{
		Roots:         []string{dir},
		ChunkSize:     200,
		ChunkOverlap:  20,
		MaxChunkRunes: 400,
		BatchSize:     3,
	})

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Documents)
	assert.Greater(t, summary.Chunks, 3)
	assert.Equal(t, (summary.Chunks+2)/3, summary.Batches)

	total := 0
	ids := map[string]struct{}{}
	for i, b := range store.batches {
		if i < len(store.batches)-1 {
			assert.Len(t, b, 3)
		}
		total += len(b)
		for _, c := range b {
			assert.NotEmpty(t, c.ID)
			ids[c.ID] = struct{}{}
			assert.NotEmpty(t, strings.TrimSpace(c.Content))
		}
	}
	assert.Equal(t, summary.Chunks, total)
	assert.Len(t, ids, total, "chunk IDs must be unique")
}

func TestPipelineReingestionIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "datos.txt", strings.Repeat("La deserción universitaria en Ecuador. ", 60))
	writeFile(t, dir, "tabla.csv", "Indicador,Valor\nTasa de Deserción,15.3\n")

	cfg := config.IngestConfig{
		Roots:         []string{dir},
		ChunkSize:     200,
		ChunkOverlap:  20,
		MaxChunkRunes: 400,
		BatchSize:     5,
	}

	// 同一语料对干净存储跑两遍，产出必须一致（ID 除外，每次重新生成）
	first := &fakeUpserter{}
	firstSummary, err := NewPipeline(first, cfg).Run(context.Background())
	require.NoError(t, err)

	second := &fakeUpserter{}
	secondSummary, err := NewPipeline(second, cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, firstSummary.Documents, secondSummary.Documents)
	assert.Equal(t, firstSummary.Chunks, secondSummary.Chunks)
	assert.Equal(t, firstSummary.Batches, secondSummary.Batches)

	flatten := func(f *fakeUpserter) []string {
		var contents []string
		for _, b := range f.batches {
			for _, c := range b {
				contents = append(contents, c.Content)
			}
		}
		return contents
	}
	assert.Equal(t, flatten(first), flatten(second))
}

func TestPipelineRunUpsertFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "datos.txt", "Texto breve sobre deserción universitaria.")

	p := NewPipeline(&fakeUpserter{err: errors.New("milvus down")}, config.IngestConfig{
		Roots: []string{dir}, ChunkSize: 200, ChunkOverlap: 20, MaxChunkRunes: 400, BatchSize: 10,
	})

	_, err := p.Run(context.Background())
	assert.Error(t, err)
}

func TestPipelineEmptyCorpus(t *testing.T) {
	p := NewPipeline(&fakeUpserter{}, config.IngestConfig{
		Roots: []string{t.TempDir()}, ChunkSize: 200, ChunkOverlap: 20, MaxChunkRunes: 400, BatchSize: 10,
	})

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Chunks)
	assert.Zero(t, summary.Batches)
}
