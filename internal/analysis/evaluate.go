// Package analysis turns soil readings into human-readable reports.
package analysis

import (
	"strings"

	"github.com/thebtf/soilsense/pkg/models"
)

// ReportHeader starts every report.
const ReportHeader = "Soil Analysis Results:\n\n"

// Thresholds. Values equal to a threshold fall into the optimal/ideal branch.
const (
	PHAcidicBelow        = 6.0
	PHAlkalineAbove      = 7.5
	MoistureDryBelow     = 30
	MoistureWetAbove     = 60
	TemperatureLowBelow  = 15
	TemperatureHighAbove = 30
)

// Report clauses, one per rule branch.
const (
	PHAcidic    = "Soil is acidic. Consider adding lime."
	PHAlkaline  = "Soil is alkaline. Consider adding sulfur."
	PHOptimal   = "Soil pH is optimal for most plants."
	MoistureDry = "Soil is too dry. Consider watering."
	MoistureWet = "Soil is too wet. Consider improving drainage."
	MoistureOK  = "Soil moisture is within the ideal range."
	TempLow     = "Soil temperature is too low. Consider providing warmth."
	TempHigh    = "Soil temperature is too high. Consider providing shade."
	TempOK      = "Soil temperature is in the ideal range for most plants."
)

// Evaluate renders the report for a reading: pH, then moisture, then temperature.
func Evaluate(r models.Reading) string {
	var b strings.Builder
	b.WriteString(ReportHeader)
	for _, clause := range Clauses(r) {
		b.WriteString(clause)
		b.WriteByte('\n')
	}
	return b.String()
}

// Clauses returns the three rule outcomes for a reading in report order.
func Clauses(r models.Reading) []string {
	return []string{phClause(r.PH), moistureClause(r.Moisture), temperatureClause(r.Temperature)}
}

func phClause(ph float64) string {
	switch {
	case ph < PHAcidicBelow:
		return PHAcidic
	case ph > PHAlkalineAbove:
		return PHAlkaline
	default:
		return PHOptimal
	}
}

func moistureClause(moisture int) string {
	switch {
	case moisture < MoistureDryBelow:
		return MoistureDry
	case moisture > MoistureWetAbove:
		return MoistureWet
	default:
		return MoistureOK
	}
}

func temperatureClause(temp int) string {
	switch {
	case temp < TemperatureLowBelow:
		return TempLow
	case temp > TemperatureHighAbove:
		return TempHigh
	default:
		return TempOK
	}
}
