package models

import "time"

// TimestampLayout renders record timestamps as ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// AnalysisRecord is one completed analysis as persisted in the history log.
// Records are never mutated once created.
type AnalysisRecord struct {
	ID         string  `json:"id,omitempty"`
	Reading    Reading `json:"reading"`
	ReportText string  `json:"result"`
	Timestamp  string  `json:"timestamp"`
	PlantType  string  `json:"plantType,omitempty"`
}

// NewAnalysisRecord creates a record stamped with the given time.
func NewAnalysisRecord(id string, reading Reading, report, plantType string, at time.Time) AnalysisRecord {
	return AnalysisRecord{
		ID:         id,
		Reading:    reading,
		ReportText: report,
		Timestamp:  FormatTimestamp(at),
		PlantType:  plantType,
	}
}

// FormatTimestamp formats t the way history timestamps are stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Time parses the record timestamp. The zero time is returned for malformed values.
func (r AnalysisRecord) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
