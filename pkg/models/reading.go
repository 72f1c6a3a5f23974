// Package models contains domain models for soilsense.
package models

// Sampling domains for a soil reading.
const (
	MinPH          = 5.0
	MaxPH          = 7.5
	MinMoisture    = 0
	MaxMoisture    = 100
	MinTemperature = 15
	MaxTemperature = 35
)

// Reading is a single sampled soil measurement.
type Reading struct {
	PH          float64 `json:"ph"`
	Moisture    int     `json:"moisture"`
	Temperature int     `json:"temp"`
}

// DefaultReading is the reading shown before any analysis has run.
var DefaultReading = Reading{PH: 6.5, Moisture: 40, Temperature: 25}

// InDomain reports whether every field lies within its sampling domain.
func (r Reading) InDomain() bool {
	return r.PH >= MinPH && r.PH <= MaxPH &&
		r.Moisture >= MinMoisture && r.Moisture <= MaxMoisture &&
		r.Temperature >= MinTemperature && r.Temperature <= MaxTemperature
}
