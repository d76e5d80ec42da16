package models

// PingRequest is the body of a position report submitted over HTTP. The
// reporting identity is resolved out of band (header binding), never from
// the body, and the timestamp is assigned server-side.
type PingRequest struct {
	Latitude  float64  `json:"lat"`
	Longitude float64  `json:"lon"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Source    string   `json:"source,omitempty"`
}

// PingAck acknowledges a stored sample with its server-assigned timestamp.
type PingAck struct {
	OK bool  `json:"ok"`
	TS int64 `json:"ts"`
}

// ReporterSample is the payload a reporter agent publishes over MQTT. The
// employee id doubles as the last topic segment; the payload copy is a
// fallback for brokers that rewrite topics.
type ReporterSample struct {
	EmployeeID string   `json:"employee_id"`
	Latitude   float64  `json:"lat"`
	Longitude  float64  `json:"lon"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status        string             `json:"status"`
	Version       string             `json:"version"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	Resources     map[string]float64 `json:"resources,omitempty"`
}

// ErrorResponse is the JSON error shape of the HTTP API.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
