package store

import (
	"time"

	"github.com/benmeehan/fieldtrack/internal/models"
)

// Store is the durable, append-only record of position samples, partitioned
// by calendar day, plus the supplemental shift bookkeeping. It exclusively
// owns sample data; everything above it recomputes derived views per call.
//
// Append assigns the sample timestamp itself from the ingestion-time clock,
// so "most recently appended" and "latest" always coincide. Queries observe
// committed state only: a concurrently in-flight append may be missed, a
// partially written sample is never visible.
type Store interface {
	// Append records one validated sample and updates the employee's latest
	// pointer. The timestamp, day partition, shift tag, estimated speed and
	// quality flag are all assigned here, under the write lock.
	Append(employeeID string, lat, lon float64, accuracy *float64, source string) (models.Sample, error)

	// Latest returns the employee's most recently appended sample, if any.
	Latest(employeeID string) (models.Sample, bool)

	// RangeForDay returns the employee's samples within one day partition,
	// ordered by timestamp ascending with insertion order breaking ties.
	// The day is a YYYY-MM-DD key in the store's configured timezone.
	// Unknown employees and empty days yield an empty slice, not an error.
	RangeForDay(employeeID, day string) ([]models.Sample, error)

	// Identities returns every employee with at least one recorded sample.
	Identities() []string

	// OpenShift opens (or reopens) the employee's shift for the current day.
	OpenShift(employeeID string) (models.Shift, error)

	// CloseShift closes the employee's shift for the current day. The
	// boolean is false when no shift exists for today.
	CloseShift(employeeID string) (models.Shift, bool, error)

	// ActiveShift returns the employee's currently active shift, if any.
	ActiveShift(employeeID string) (models.Shift, bool, error)

	// PurgeOlderThan deletes samples and latest pointers older than the
	// cutoff (unix seconds) and reports how many samples were removed.
	// This is the administrative purge; nothing else ever deletes data.
	PurgeOlderThan(cutoff int64) (int64, error)

	Close() error
}

// DayOf derives the day partition key for an instant in the given zone.
// The zone is fixed at store construction and documented in configuration;
// every timestamp-to-day mapping in the engine goes through here.
func DayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// shiftIDFor builds the per-day shift identifier, e.g. "20261205-E1".
func shiftIDFor(t time.Time, loc *time.Location, employeeID string) string {
	return t.In(loc).Format("20060102") + "-" + employeeID
}
