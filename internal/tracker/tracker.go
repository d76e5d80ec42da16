// Package tracker is the engine core: it validates incoming position
// samples, hands them to the store, and derives the live roster and
// per-day track views that the transports serve.
package tracker

import (
	"math"
	"sort"
	"time"

	"github.com/benmeehan/fieldtrack/internal/constants"
	"github.com/benmeehan/fieldtrack/internal/freshness"
	"github.com/benmeehan/fieldtrack/internal/models"
	"github.com/benmeehan/fieldtrack/internal/store"
	"github.com/rs/zerolog"
)

// Tracker coordinates ingestion and the derived read views. It holds no
// sample state of its own; the store is the single source of truth and
// every view is recomputed per call.
type Tracker struct {
	store      store.Store
	thresholds freshness.Thresholds
	zone       *time.Location
	now        func() time.Time
	logger     zerolog.Logger
}

// New creates a Tracker. The zone must match the store's day zone so that
// "today" defaults resolve to the same partition the store writes to. A nil
// zone means UTC and a nil now falls back to time.Now.
func New(st store.Store, thresholds freshness.Thresholds, zone *time.Location, now func() time.Time, logger zerolog.Logger) *Tracker {
	if zone == nil {
		zone = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		store:      st,
		thresholds: thresholds,
		zone:       zone,
		now:        now,
		logger:     logger,
	}
}

// Ingest validates and records one position sample. A sample that passes
// validation is always stored; quality concerns (poor accuracy, implausible
// jumps) are flagged by the store, not rejected here.
func (t *Tracker) Ingest(employeeID string, lat, lon float64, accuracy *float64, source string) (models.Sample, error) {
	if employeeID == "" {
		return models.Sample{}, &ValidationError{Field: "employee_id", Reason: "must not be empty"}
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return models.Sample{}, &ValidationError{Field: "lat", Reason: "must be within [-90, 90]"}
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return models.Sample{}, &ValidationError{Field: "lon", Reason: "must be within [-180, 180]"}
	}
	if accuracy != nil && (math.IsNaN(*accuracy) || math.IsInf(*accuracy, 0) || *accuracy < 0) {
		return models.Sample{}, &ValidationError{Field: "accuracy", Reason: "must be a non-negative number"}
	}
	if source == "" {
		source = constants.SourceLive
	}

	sample, err := t.store.Append(employeeID, lat, lon, accuracy, source)
	if err != nil {
		t.logger.Error().Err(err).Str("employee_id", employeeID).Msg("Failed to record sample")
		return models.Sample{}, err
	}

	t.logger.Debug().
		Str("employee_id", employeeID).
		Int64("ts", sample.Timestamp).
		Str("source", sample.Source).
		Bool("valid", sample.Valid).
		Msg("Sample recorded")
	return sample, nil
}

// Roster returns one entry per known employee with their last position and
// freshness status, sorted by employee id. Employees never drop off the
// roster by inactivity alone; only retention purging removes them.
func (t *Tracker) Roster() []models.RosterEntry {
	now := t.now()
	ids := t.store.Identities()
	sort.Strings(ids)

	roster := make([]models.RosterEntry, 0, len(ids))
	for _, id := range ids {
		sample, ok := t.store.Latest(id)
		if !ok {
			continue
		}
		roster = append(roster, models.RosterEntry{
			EmployeeID:    id,
			LastTS:        sample.Timestamp,
			LastLatitude:  sample.Latitude,
			LastLongitude: sample.Longitude,
			LastAccuracy:  sample.Accuracy,
			FreshStatus:   freshness.Classify(now, sample.Timestamp, t.thresholds),
		})
	}
	return roster
}

// Track returns the employee's recorded points for one calendar day. The
// date defaults to today (in the store's day zone) when empty. Unknown
// employees and empty days produce an empty track.
func (t *Tracker) Track(employeeID, date string) (models.Track, error) {
	if employeeID == "" {
		return models.Track{}, &ValidationError{Field: "employee_id", Reason: "must not be empty"}
	}
	if date == "" {
		date = store.DayOf(t.now(), t.zone)
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return models.Track{}, &ValidationError{Field: "date", Reason: "must be formatted YYYY-MM-DD"}
	}

	samples, err := t.store.RangeForDay(employeeID, date)
	if err != nil {
		return models.Track{}, err
	}

	track := models.Track{
		EmployeeID: employeeID,
		Date:       date,
		Points:     make([]models.TrackPoint, 0, len(samples)),
	}
	for _, sample := range samples {
		track.Points = append(track.Points, models.TrackPoint{
			Timestamp: sample.Timestamp,
			Latitude:  sample.Latitude,
			Longitude: sample.Longitude,
			Accuracy:  sample.Accuracy,
			SpeedKmh:  sample.SpeedKmh,
			Valid:     sample.Valid,
		})
	}
	return track, nil
}

// OpenShift opens (or reopens) the employee's shift for today.
func (t *Tracker) OpenShift(employeeID string) (models.Shift, error) {
	if employeeID == "" {
		return models.Shift{}, &ValidationError{Field: "employee_id", Reason: "must not be empty"}
	}
	return t.store.OpenShift(employeeID)
}

// CloseShift closes the employee's shift for today.
func (t *Tracker) CloseShift(employeeID string) (models.Shift, bool, error) {
	if employeeID == "" {
		return models.Shift{}, false, &ValidationError{Field: "employee_id", Reason: "must not be empty"}
	}
	return t.store.CloseShift(employeeID)
}

// ActiveShift returns the employee's active shift, if any.
func (t *Tracker) ActiveShift(employeeID string) (models.Shift, bool, error) {
	if employeeID == "" {
		return models.Shift{}, false, &ValidationError{Field: "employee_id", Reason: "must not be empty"}
	}
	return t.store.ActiveShift(employeeID)
}
