package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/soilsense/pkg/models"
)

func TestEvaluate_Scenarios(t *testing.T) {
	tests := []struct {
		name    string
		reading models.Reading
		want    []string
	}{
		{
			name:    "acidic wet hot",
			reading: models.Reading{PH: 5.5, Moisture: 70, Temperature: 32},
			want:    []string{PHAcidic, MoistureWet, TempHigh},
		},
		{
			name:    "default state is ideal",
			reading: models.DefaultReading,
			want:    []string{PHOptimal, MoistureOK, TempOK},
		},
		{
			name:    "dry soil",
			reading: models.Reading{PH: 7.0, Moisture: 10, Temperature: 20},
			want:    []string{PHOptimal, MoistureDry, TempOK},
		},
		{
			name:    "out of domain values still classify",
			reading: models.Reading{PH: 8.1, Moisture: 45, Temperature: 5},
			want:    []string{PHAlkaline, MoistureOK, TempLow},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Evaluate(tt.reading)
			expected := ReportHeader + strings.Join(tt.want, "\n") + "\n"
			assert.Equal(t, expected, report)
		})
	}
}

func TestEvaluate_ClauseOrder(t *testing.T) {
	report := Evaluate(models.Reading{PH: 5.5, Moisture: 70, Temperature: 32})

	lime := strings.Index(report, "add lime")
	drainage := strings.Index(report, "improving drainage")
	shade := strings.Index(report, "providing shade")

	require.True(t, lime > 0)
	assert.Less(t, lime, drainage)
	assert.Less(t, drainage, shade)
}

func TestEvaluate_Boundaries(t *testing.T) {
	const eps = 0.001
	base := models.DefaultReading

	phTests := []struct {
		name string
		ph   float64
		want string
	}{
		{"lower bound is optimal", 6.0, PHOptimal},
		{"just below lower bound is acidic", 6.0 - eps, PHAcidic},
		{"upper bound is optimal", 7.5, PHOptimal},
		{"just above upper bound is alkaline", 7.5 + eps, PHAlkaline},
	}
	for _, tt := range phTests {
		t.Run("ph "+tt.name, func(t *testing.T) {
			r := base
			r.PH = tt.ph
			assert.Equal(t, tt.want, Clauses(r)[0])
		})
	}

	moistureTests := []struct {
		name     string
		moisture int
		want     string
	}{
		{"30 is ideal", 30, MoistureOK},
		{"29 is dry", 29, MoistureDry},
		{"60 is ideal", 60, MoistureOK},
		{"61 is wet", 61, MoistureWet},
	}
	for _, tt := range moistureTests {
		t.Run("moisture "+tt.name, func(t *testing.T) {
			r := base
			r.Moisture = tt.moisture
			assert.Equal(t, tt.want, Clauses(r)[1])
		})
	}

	tempTests := []struct {
		name string
		temp int
		want string
	}{
		{"15 is ideal", 15, TempOK},
		{"14 is low", 14, TempLow},
		{"30 is ideal", 30, TempOK},
		{"31 is high", 31, TempHigh},
	}
	for _, tt := range tempTests {
		t.Run("temperature "+tt.name, func(t *testing.T) {
			r := base
			r.Temperature = tt.temp
			assert.Equal(t, tt.want, Clauses(r)[2])
		})
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	sampler := NewSeededSampler(1, 2)
	for i := 0; i < 500; i++ {
		r := sampler.Sample()
		assert.Equal(t, Evaluate(r), Evaluate(r))
	}
}

func TestRandomSampler_StaysInDomain(t *testing.T) {
	sampler := NewSeededSampler(42, 7)
	for i := 0; i < 2000; i++ {
		r := sampler.Sample()
		require.True(t, r.InDomain(), "reading %+v out of domain", r)
		assert.Equal(t, r.PH, math.Round(r.PH*100)/100, "ph should have two decimals")
	}
}

func TestSeededSampler_Reproducible(t *testing.T) {
	a := NewSeededSampler(9, 9)
	b := NewSeededSampler(9, 9)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Sample(), b.Sample())
	}
}

func TestFixedSampler(t *testing.T) {
	want := models.Reading{PH: 5.5, Moisture: 70, Temperature: 32}
	assert.Equal(t, want, FixedSampler(want).Sample())
}
