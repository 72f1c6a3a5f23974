package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/soilsense/pkg/models"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	records := []models.AnalysisRecord{
		{
			ID:         "a",
			Reading:    models.Reading{PH: 5.57, Moisture: 70, Temperature: 32},
			ReportText: "Soil Analysis Results:\n\nSoil is acidic. Consider adding lime.\n",
			Timestamp:  "2026-10-17T08:00:00.000Z",
			PlantType:  "Rose",
		},
		{
			ID:         "b",
			Reading:    models.Reading{PH: 7.123456789, Moisture: 0, Temperature: 15},
			ReportText: "report \"quoted\" and unicode 土壤",
			Timestamp:  "2026-10-17T08:00:01.000Z",
		},
	}

	blob, err := Encode(records)
	require.NoError(t, err)

	decoded, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, records, decoded)
}

func TestEncode_FlatShape(t *testing.T) {
	blob, err := Encode([]models.AnalysisRecord{{
		Reading:    models.Reading{PH: 6.5, Moisture: 40, Temperature: 25},
		ReportText: "r",
		Timestamp:  "t",
	}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"ph":6.5,"moisture":40,"temp":25,"result":"r","timestamp":"t"}]`, blob)
}

func TestDecode_TableDriven(t *testing.T) {
	tests := []struct {
		name    string
		blob    string
		wantLen int
		wantPH  float64
		wantErr bool
	}{
		{name: "empty blob", blob: "", wantLen: 0},
		{name: "whitespace blob", blob: "  \n", wantLen: 0},
		{name: "null", blob: "null", wantLen: 0},
		{name: "empty array", blob: "[]", wantLen: 0},
		{
			name:    "legacy string ph",
			blob:    `[{"ph":"6.42","moisture":40,"temp":25,"result":"r","timestamp":"2024-01-01T00:00:00.000Z"}]`,
			wantLen: 1,
			wantPH:  6.42,
		},
		{
			name:    "numeric ph",
			blob:    `[{"ph":5.01,"moisture":40,"temp":25,"result":"r","timestamp":"t"}]`,
			wantLen: 1,
			wantPH:  5.01,
		},
		{name: "not json", blob: "{broken", wantErr: true},
		{name: "object instead of array", blob: `{"ph":6.5}`, wantErr: true},
		{name: "non numeric ph", blob: `[{"ph":"acid"}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Decode(tt.blob)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSerialization)
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantPH, records[0].Reading.PH)
			}
		})
	}
}
