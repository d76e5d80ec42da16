package models

// RosterEntry is the ephemeral projection of an employee's latest recorded
// sample plus its derived freshness status. An entry exists only for
// employees with at least one sample ever recorded; it is recomputed on
// every roster query and never stored.
type RosterEntry struct {
	EmployeeID    string   `json:"employee_id"`
	LastTS        int64    `json:"last_ts"`
	LastLatitude  float64  `json:"last_lat"`
	LastLongitude float64  `json:"last_lon"`
	LastAccuracy  *float64 `json:"last_accuracy,omitempty"`
	FreshStatus   string   `json:"fresh_status"`
}

// TrackPoint is one renderable point of a per-day track. Consumers connect
// consecutive points in returned order; no spatial smoothing is applied.
type TrackPoint struct {
	Timestamp int64    `json:"ts"`
	Latitude  float64  `json:"lat"`
	Longitude float64  `json:"lon"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	SpeedKmh  *float64 `json:"speed_kmh,omitempty"`
	Valid     bool     `json:"valid"`
}

// Track is one employee's ordered sequence of points within one calendar day.
type Track struct {
	EmployeeID string       `json:"employee_id"`
	Date       string       `json:"date"`
	Points     []TrackPoint `json:"points"`
}
