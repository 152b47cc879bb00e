package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "DESERCIÓN", "desercion"},
		{"tilde n", "años de enseñanza", "anos de ensenanza"},
		{"mixed accents", "¿Cuántos estudiantes?", "¿cuantos estudiantes?"},
		{"already plain", "tasa 2022", "tasa 2022"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("¿Cuál es la tasa de deserción en el 2022?")
	// 短词（la、es、de、el 和年份以下长度）被丢弃
	assert.Equal(t, []string{"cual", "tasa", "desercion", "2022"}, got)
}

func TestCountHitsCountsOccurrences(t *testing.T) {
	// 同一个词出现多次按多次计分
	assert.Equal(t, 3, countHits("Deserción y más deserción, tasa alta", []string{"desercion", "tasa"}))
	assert.Equal(t, 0, countHits("sin coincidencias", []string{"desercion"}))
	assert.Equal(t, 0, countHits("", []string{"desercion"}))
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("Tasa de Deserción (%)", []string{"desercion"}))
	assert.True(t, ContainsAny("abandono escolar", []string{"matricula", "abandono"}))
	assert.False(t, ContainsAny("retención", []string{"desercion"}))
	assert.False(t, ContainsAny("cualquier texto", nil))
}
