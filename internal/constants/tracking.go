package constants

// Freshness statuses derived from the age of an employee's latest sample.
const (
	// FreshnessFresh indicates the position is recent enough to trust.
	FreshnessFresh = "fresh"
	// FreshnessStale indicates reporting has lapsed beyond the fresh window.
	FreshnessStale = "stale"
	// FreshnessOffline indicates the employee has stopped reporting entirely.
	FreshnessOffline = "offline"
)

// Sample sources
const (
	// SourceLive is a regular background position ping.
	SourceLive = "live"
	// SourceStart is the point recorded when a shift is opened.
	SourceStart = "start"
	// SourceWebApp is a ping submitted by the web application client.
	SourceWebApp = "webapp"
	// SourceMQTT is a sample delivered by a reporter agent over MQTT.
	SourceMQTT = "mqtt"
)

// Default tracking parameters. Every one of these is overridable through the
// configuration file; they are never applied invisibly.
const (
	// DefaultFreshWithinSec is the maximum sample age still classified fresh.
	DefaultFreshWithinSec = 300
	// DefaultOfflineAfterSec is the sample age beyond which an employee is
	// classified offline. Between the two bounds the status is stale.
	DefaultOfflineAfterSec = 1800
	// DefaultMaxAccuracyM is the worst reported GPS accuracy (meters) a
	// sample may carry before it is flagged as low quality.
	DefaultMaxAccuracyM = 200.0
	// DefaultMaxJumpSpeedKmh is the highest plausible movement speed between
	// consecutive samples; anything above is flagged as a teleport jump.
	DefaultMaxJumpSpeedKmh = 150.0
	// DefaultRetentionDays is how long sample history is kept before the
	// retention sweep purges it.
	DefaultRetentionDays = 30
)
