package answer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/config"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func deterministicCfg(dir string) config.DeterministicConfig {
	return config.DeterministicConfig{
		DataDir:            dir,
		SummaryFile:        "resumen_general_desercion_2022.csv",
		GenderFile:         "desercion_por_sexo.csv",
		InstitutionFile:    "desercion_por_tipo_institucion.csv",
		TriggerRate:        []string{"tasa", "porcentaje", "indice"},
		TriggerDropout:     []string{"desercion", "abandono", "abandonaron", "desertaron"},
		TriggerCount:       []string{"cuantos", "cuantas", "numero", "total"},
		TriggerGender:      []string{"sexo", "genero", "hombres", "mujeres"},
		TriggerInstitution: []string{"institucion", "instituciones", "financiamiento", "publica", "privada"},
		TriggerOverview:    []string{"resumen", "general", "estadisticas", "panorama"},
	}
}

func seedSummary(t *testing.T, dir string) {
	writeFixture(t, dir, "resumen_general_desercion_2022.csv",
		"Indicador,Valor\n"+
			"Total Estudiantes Matriculados 2022,612345\n"+
			"Total Estudiantes que Abandonaron,93690\n"+
			"Total Estudiantes que Continuaron,518655\n"+
			"Tasa de Deserción (%),15.3\n"+
			"Tasa de Retención (%),84.7\n")
}

func TestRoute(t *testing.T) {
	a := NewCSVAnswerer(deterministicCfg(t.TempDir()))

	tests := []struct {
		query string
		want  Intent
	}{
		{"¿Cuál es la tasa de deserción universitaria?", IntentRate},
		{"¿Cuántos estudiantes abandonaron sus estudios?", IntentCount},
		{"Deserción por sexo en Ecuador", IntentGender},
		{"¿Cómo es el abandono según el tipo de institución?", IntentInstitution},
		{"Dame un resumen general de la deserción", IntentOverview},
		// 细分意图优先于汇总意图
		{"tasa de deserción por género", IntentGender},
		// 没有辍学词组就不路由
		{"¿cuál es la tasa de interés bancaria?", IntentNone},
		{"¿cuál es la capital de Ecuador?", IntentNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.Route(tt.query), "query: %s", tt.query)
	}
}

func TestRateAnswer(t *testing.T) {
	dir := t.TempDir()
	seedSummary(t, dir)
	a := NewCSVAnswerer(deterministicCfg(dir))

	text, ok := a.Answer(context.Background(), IntentRate)
	require.True(t, ok)
	assert.Contains(t, text, "15.3%")
	assert.Contains(t, text, "612,345")
	assert.Contains(t, text, "93,690")
	assert.Contains(t, text, "84.7%")
}

func TestCountAnswer(t *testing.T) {
	dir := t.TempDir()
	seedSummary(t, dir)
	a := NewCSVAnswerer(deterministicCfg(dir))

	text, ok := a.Answer(context.Background(), IntentCount)
	require.True(t, ok)
	assert.Contains(t, text, "93,690")
	assert.Contains(t, text, "612,345")
	assert.Contains(t, text, "15.3%")
}

func TestGenderBreakdown(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "desercion_por_sexo.csv",
		"sexo,Estudiantes_Abandonaron,Total matriculados,Tasa Desercion\n"+
			"MASCULINO,51200,310000,16.5\n"+
			"FEMENINO,42490,302345,14.1\n")
	a := NewCSVAnswerer(deterministicCfg(dir))

	text, ok := a.Answer(context.Background(), IntentGender)
	require.True(t, ok)
	assert.Contains(t, text, "MASCULINO: 51,200 abandonaron de 310,000 matriculados (16.5% de deserción)")
	assert.Contains(t, text, "FEMENINO")
}

func TestOverviewAnswer(t *testing.T) {
	dir := t.TempDir()
	seedSummary(t, dir)
	a := NewCSVAnswerer(deterministicCfg(dir))

	text, ok := a.Answer(context.Background(), IntentOverview)
	require.True(t, ok)
	// 率类行带 % 后缀，人数行带千位分隔
	assert.Contains(t, text, "Tasa de Deserción (%): 15.3%")
	assert.Contains(t, text, "Total Estudiantes que Continuaron: 518,655")
}

func TestAnswerMissingFileIsNotAnError(t *testing.T) {
	a := NewCSVAnswerer(deterministicCfg(t.TempDir()))

	for _, intent := range []Intent{IntentRate, IntentCount, IntentGender, IntentInstitution, IntentOverview} {
		text, ok := a.Answer(context.Background(), intent)
		assert.False(t, ok, "intent %d", intent)
		assert.Empty(t, text)
	}
}

func TestAnswerMissingIndicatorRow(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "resumen_general_desercion_2022.csv",
		"Indicador,Valor\nOtro Indicador,42\n")
	a := NewCSVAnswerer(deterministicCfg(dir))

	_, ok := a.Answer(context.Background(), IntentRate)
	assert.False(t, ok)
}
