package dashboard

import (
	"github.com/thebtf/soilsense/pkg/models"
)

// Chart metrics.
const (
	MetricPH          = "ph"
	MetricMoisture    = "moisture"
	MetricTemperature = "temperature"
)

// ChartPoint is one rendered chart slice.
type ChartPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// Chart renders the configured slices for r. Slices with an unknown metric
// are skipped.
func (r *Registry) Chart(reading models.Reading) []ChartPoint {
	out := make([]ChartPoint, 0, len(r.chart))
	for _, s := range r.chart {
		var v float64
		switch s.Metric {
		case MetricPH:
			v = reading.PH
		case MetricMoisture:
			v = float64(reading.Moisture)
		case MetricTemperature:
			v = float64(reading.Temperature)
		default:
			continue
		}
		out = append(out, ChartPoint{Name: s.Name, Value: v, Color: s.Color})
	}
	return out
}
