package models

// Sample is one recorded position report for a tracked employee.
//
// Timestamps are assigned by the server at ingestion time, under the store's
// write lock; client-supplied timestamps are never trusted. SpeedKmh and
// Valid are derived at append time and are informational only: queries are
// never filtered by them.
type Sample struct {
	ID         int64    `json:"-"`
	EmployeeID string   `json:"employee_id"`
	ShiftID    string   `json:"shift_id,omitempty"`
	Timestamp  int64    `json:"ts"`
	Latitude   float64  `json:"lat"`
	Longitude  float64  `json:"lon"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	Source     string   `json:"source"`
	SpeedKmh   *float64 `json:"speed_kmh,omitempty"`
	Valid      bool     `json:"valid"`
}
