package models

// Shift records when an employee's working day was opened and closed. Shift
// state never gates sample ingestion; it only tags samples recorded while
// the shift is active.
type Shift struct {
	ShiftID    string `json:"shift_id"`
	EmployeeID string `json:"employee_id"`
	StartTS    int64  `json:"start_ts"`
	EndTS      *int64 `json:"end_ts,omitempty"`
	Active     bool   `json:"active"`
}
