package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/config"
	"github.com/SKEIILATT/ProyectoLP-2P/internal/domain/document"
)

type fakeInsightStore struct {
	chunks []document.Chunk
	err    error
}

func (f *fakeInsightStore) SimilaritySearch(_ context.Context, _ string, _ int) ([]document.Chunk, error) {
	return nil, errors.New("not used by synthesizer")
}

func (f *fakeInsightStore) ListAll(_ context.Context) ([]document.Chunk, error) {
	return f.chunks, f.err
}

func insightsCfg() config.InsightsConfig {
	return config.InsightsConfig{DistinctSources: 3, MinLineRunes: 20}
}

func insightChunks() []document.Chunk {
	mk := func(id, file, content string) document.Chunk {
		return document.Chunk{
			ID:      id,
			Content: content,
			Metadata: document.Metadata{
				Source:   "data/" + file,
				Filename: file,
				Type:     document.TypeCSV,
			},
		}
	}
	return []document.Chunk{
		mk("1", "resumen.csv", "Tasa de deserción 15.3% en 2022."),
		mk("2", "resumen.csv", "Tasa de retención 84.7% en 2022."),
		mk("3", "sexo.csv", "Deserción masculina 16.5%."),
		mk("4", "tipo.csv", "Mayor deserción en instituciones públicas."),
		mk("5", "otro.csv", "Fragmento que excede la cuota de fuentes."),
	}
}

func TestSynthesizeExactlyThree(t *testing.T) {
	store := &fakeInsightStore{chunks: insightChunks()}
	model := &fakeModel{reply: "1. La tasa de deserción alcanzó el 15.3% en 2022.\n" +
		"2. Los hombres desertan más que las mujeres en Ecuador.\n" +
		"3. Las instituciones públicas concentran la mayor deserción.\n" +
		"4. Hallazgo extra que debe descartarse por exceder el límite."}
	s := NewSynthesizer(store, model, insightsCfg())

	r := s.Synthesize(context.Background(), "llama3")
	require.True(t, r.Success)
	assert.Len(t, r.Insights, 3)
	assert.NotContains(t, r.Insights[0], "1.")
	// 每个来源只采样一个块，且不超过配额
	assert.Equal(t, []string{"resumen.csv", "sexo.csv", "tipo.csv"}, r.Sources)
}

func TestSynthesizeStripsMarkersAndShortLines(t *testing.T) {
	store := &fakeInsightStore{chunks: insightChunks()}
	model := &fakeModel{reply: "Hallazgos:\n" +
		"- La deserción creció de forma sostenida durante 2022.\n" +
		"ok\n" +
		"• Las mujeres muestran mayor retención que los hombres.\n" +
		"3) El tipo de institución incide fuertemente en el abandono."}
	s := NewSynthesizer(store, model, insightsCfg())

	r := s.Synthesize(context.Background(), "llama3")
	require.True(t, r.Success)
	require.Len(t, r.Insights, 3)
	assert.Equal(t, "La deserción creció de forma sostenida durante 2022.", r.Insights[0])
	assert.Equal(t, "El tipo de institución incide fuertemente en el abandono.", r.Insights[2])
}

func TestSynthesizeEmptyStore(t *testing.T) {
	s := NewSynthesizer(&fakeInsightStore{}, &fakeModel{reply: "irrelevante"}, insightsCfg())

	r := s.Synthesize(context.Background(), "llama3")
	assert.False(t, r.Success)
	assert.Empty(t, r.Insights)
	assert.NotEmpty(t, r.Error)
}

func TestSynthesizeModelFailure(t *testing.T) {
	store := &fakeInsightStore{chunks: insightChunks()}
	s := NewSynthesizer(store, &fakeModel{err: errors.New("timeout")}, insightsCfg())

	r := s.Synthesize(context.Background(), "llama3")
	assert.False(t, r.Success)
	assert.Empty(t, r.Insights)
}

func TestSynthesizeDegenerateReply(t *testing.T) {
	store := &fakeInsightStore{chunks: insightChunks()}
	s := NewSynthesizer(store, &fakeModel{reply: "1. ok\n2. bien"}, insightsCfg())

	// 少于 3 条有效结论：返回 0 条，绝不返回残缺列表
	r := s.Synthesize(context.Background(), "llama3")
	assert.False(t, r.Success)
	assert.Empty(t, r.Insights)
}
