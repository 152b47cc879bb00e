package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SKEIILATT/ProyectoLP-2P/internal/domain/document"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSVPrependsTitle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "desercion_por_sexo.csv", "sexo,Estudiantes_Abandonaron\nMASCULINO,51200\n")

	docs := NewLoader([]string{dir}).LoadAll(context.Background())
	require.Len(t, docs, 1)
	assert.Equal(t, "Archivo: desercion_por_sexo.csv\n\nDatos:\nsexo,Estudiantes_Abandonaron\nMASCULINO,51200\n", docs[0].Content)
	assert.Equal(t, document.TypeCSV, docs[0].Metadata.Type)
	assert.Equal(t, "desercion_por_sexo.csv", docs[0].Metadata.Filename)
}

func TestLoadJSONListExpandsPerItem(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "papers.json",
		`[{"titulo":"Deserción en Ecuador","anio":2022},{"titulo":"Retención estudiantil","anio":2021}]`)

	docs := NewLoader([]string{dir}).LoadAll(context.Background())
	require.Len(t, docs, 2)
	assert.Contains(t, docs[0].Content, "titulo: Deserción en Ecuador")
	assert.Contains(t, docs[0].Content, "anio: 2022")
}

func TestLoadJSONObjectSerializedWhole(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "meta.json", `{"fuente":"SENESCYT","periodo":2022}`)

	docs := NewLoader([]string{dir}).LoadAll(context.Background())
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, `"fuente": "SENESCYT"`)
}

func TestLoadNotebookCells(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "analisis.ipynb", `{
		"cells": [
			{"cell_type": "markdown", "source": ["# Análisis de deserción\n", "Resumen del estudio."]},
			{"cell_type": "code", "source": "df.describe()",
			 "outputs": [{"text": ["Tasa media: 15.3\n"]}]},
			{"cell_type": "code", "source": ""}
		]
	}`)

	docs := NewLoader([]string{dir}).LoadAll(context.Background())
	require.Len(t, docs, 1)
	content := docs[0].Content
	assert.Contains(t, content, "# Markdown (Celda 0)\n# Análisis de deserción\nResumen del estudio.")
	assert.Contains(t, content, "# Código (Celda 1)\ndf.describe()")
	assert.Contains(t, content, "# Output (Celda 1)\nTasa media: 15.3")
	assert.NotContains(t, content, "Celda 2")
	assert.Equal(t, document.TypeNotebook, docs[0].Metadata.Type)
}

func TestLoadSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "roto.json", "{esto no es json")
	writeFile(t, dir, "valido.txt", "Contenido de texto válido sobre deserción.")

	docs := NewLoader([]string{dir}).LoadAll(context.Background())
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "texto válido")
}

func TestLoadMissingRootIsNotFatal(t *testing.T) {
	docs := NewLoader([]string{"/no/existe", "/tampoco"}).LoadAll(context.Background())
	assert.Empty(t, docs)
}

func TestTypeForRootClassification(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, filepath.Join("estadisticas_ecuador", "tabla.csv"), "a,b\n1,2\n")
	writeFile(t, dir, filepath.Join("papers", "articulo.txt"), "Texto del paper académico.")
	writeFile(t, dir, filepath.Join("resources", "guia.txt"), "Guía de recursos educativos.")

	docs := NewLoader([]string{
		filepath.Join(dir, "estadisticas_ecuador"),
		filepath.Join(dir, "papers"),
		filepath.Join(dir, "resources"),
	}).LoadAll(context.Background())
	require.Len(t, docs, 3)

	byName := map[string]document.SourceType{}
	for _, d := range docs {
		byName[d.Metadata.Filename] = d.Metadata.Type
	}
	// CSV 保持 csv 类型；文本按来源目录细化
	assert.Equal(t, document.TypeCSV, byName["tabla.csv"])
	assert.Equal(t, document.TypeAcademicPaper, byName["articulo.txt"])
	assert.Equal(t, document.TypeEducationalResource, byName["guia.txt"])
}
