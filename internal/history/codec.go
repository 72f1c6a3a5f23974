package history

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/thebtf/soilsense/pkg/models"
)

// recordWire is the persisted shape of a record: a flat object with the reading
// fields inlined next to the rendered report.
type recordWire struct {
	ID        string  `json:"id,omitempty"`
	PH        decimal `json:"ph"`
	Moisture  int     `json:"moisture"`
	Temp      int     `json:"temp"`
	Result    string  `json:"result"`
	Timestamp string  `json:"timestamp"`
	PlantType string  `json:"plantType,omitempty"`
}

// decimal decodes from either a JSON number or a numeric string.
// Older clients stored pH as a fixed-point string such as "6.42".
type decimal float64

func (d *decimal) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*d = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decode ph %q: %w", s, err)
	}
	*d = decimal(v)
	return nil
}

// Encode serializes records as a JSON array.
func Encode(records []models.AnalysisRecord) (string, error) {
	wire := make([]recordWire, len(records))
	for i, r := range records {
		wire[i] = recordWire{
			ID:        r.ID,
			PH:        decimal(r.Reading.PH),
			Moisture:  r.Reading.Moisture,
			Temp:      r.Reading.Temperature,
			Result:    r.ReportText,
			Timestamp: r.Timestamp,
			PlantType: r.PlantType,
		}
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return string(data), nil
}

// Decode parses a persisted history blob. An empty blob is an empty history.
func Decode(blob string) ([]models.AnalysisRecord, error) {
	trimmed := bytes.TrimSpace([]byte(blob))
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []models.AnalysisRecord{}, nil
	}

	var wire []recordWire
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	records := make([]models.AnalysisRecord, len(wire))
	for i, w := range wire {
		records[i] = models.AnalysisRecord{
			ID: w.ID,
			Reading: models.Reading{
				PH:          float64(w.PH),
				Moisture:    w.Moisture,
				Temperature: w.Temp,
			},
			ReportText: w.Result,
			Timestamp:  w.Timestamp,
			PlantType:  w.PlantType,
		}
	}
	return records, nil
}
