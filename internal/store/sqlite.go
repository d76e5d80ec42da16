package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/fieldtrack/internal/models"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS samples (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  employee_id TEXT NOT NULL,
  shift_id TEXT NOT NULL DEFAULT '',
  day TEXT NOT NULL,
  ts INTEGER NOT NULL,
  lat REAL NOT NULL,
  lon REAL NOT NULL,
  accuracy REAL,
  source TEXT NOT NULL,
  speed_kmh REAL,
  valid INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_samples_emp_day_ts ON samples(employee_id, day, ts);
CREATE INDEX IF NOT EXISTS idx_samples_emp_valid_ts ON samples(employee_id, valid, ts DESC);
CREATE INDEX IF NOT EXISTS idx_samples_ts ON samples(ts);

CREATE TABLE IF NOT EXISTS shifts (
  shift_id TEXT PRIMARY KEY,
  employee_id TEXT NOT NULL,
  start_ts INTEGER NOT NULL,
  end_ts INTEGER,
  active INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS latest (
  employee_id TEXT PRIMARY KEY,
  ts INTEGER NOT NULL,
  lat REAL NOT NULL,
  lon REAL NOT NULL,
  accuracy REAL,
  source TEXT NOT NULL
);
`

// Options configures a SQLiteStore.
type Options struct {
	// Path is the SQLite database file.
	Path string
	// Timezone keys the day partitions; nil means UTC.
	Timezone *time.Location
	// MaxAccuracyM flags samples with worse reported accuracy as low quality.
	MaxAccuracyM float64
	// MaxJumpSpeedKmh flags samples implying implausible movement speed.
	MaxJumpSpeedKmh float64
	// Now supplies the ingestion clock; nil means time.Now.
	Now func() time.Time
}

// SQLiteStore is the SQLite-backed Store implementation. Appends are
// serialized by a single write mutex, which is also what makes the
// server-assigned timestamps monotone per append order. The latest sample
// per employee is mirrored in an in-memory concurrent map so roster reads
// never touch the database.
type SQLiteStore struct {
	db     *sql.DB
	opts   Options
	logger zerolog.Logger

	mu     sync.Mutex
	latest cmap.ConcurrentMap[string, models.Sample]

	insertStmt *sql.Stmt
}

// NewSQLiteStore opens (creating if needed) the database at opts.Path and
// warms the latest-sample cache from it.
func NewSQLiteStore(opts Options, logger zerolog.Logger) (*SQLiteStore, error) {
	if opts.Timezone == nil {
		opts.Timezone = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer anyway; one pooled connection sidesteps
	// SQLITE_BUSY without a busy-timeout dance.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	insertStmt, err := db.Prepare(`
		INSERT INTO samples (employee_id, shift_id, day, ts, lat, lon, accuracy, source, speed_kmh, valid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	s := &SQLiteStore{
		db:         db,
		opts:       opts,
		logger:     logger,
		latest:     cmap.New[models.Sample](),
		insertStmt: insertStmt,
	}

	if err := s.warmLatestCache(); err != nil {
		s.Close()
		return nil, err
	}

	logger.Info().
		Str("path", opts.Path).
		Str("timezone", opts.Timezone.String()).
		Int("identities", s.latest.Count()).
		Msg("Sample store opened")
	return s, nil
}

func (s *SQLiteStore) warmLatestCache() error {
	rows, err := s.db.Query(`SELECT employee_id, ts, lat, lon, accuracy, source FROM latest`)
	if err != nil {
		return fmt.Errorf("failed to load latest samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sample models.Sample
		var accuracy sql.NullFloat64
		if err := rows.Scan(&sample.EmployeeID, &sample.Timestamp, &sample.Latitude,
			&sample.Longitude, &accuracy, &sample.Source); err != nil {
			return fmt.Errorf("failed to scan latest sample: %w", err)
		}
		if accuracy.Valid {
			sample.Accuracy = &accuracy.Float64
		}
		sample.Valid = true
		s.latest.Set(sample.EmployeeID, sample)
	}
	return rows.Err()
}

// Append implements Store. The timestamp is taken from the store clock while
// the write mutex is held, so append order and timestamp order coincide.
func (s *SQLiteStore) Append(employeeID string, lat, lon float64, accuracy *float64, source string) (models.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	sample := models.Sample{
		EmployeeID: employeeID,
		Timestamp:  now.Unix(),
		Latitude:   lat,
		Longitude:  lon,
		Accuracy:   accuracy,
		Source:     source,
		Valid:      true,
	}
	day := DayOf(now, s.opts.Timezone)

	if shift, ok, err := s.activeShiftAt(employeeID, now); err != nil {
		return models.Sample{}, err
	} else if ok {
		sample.ShiftID = shift.ShiftID
	}

	// Quality flagging, kept from the original filters but demoted to
	// metadata: a flagged sample is stored, served and still becomes the
	// latest pointer.
	if accuracy != nil && *accuracy > s.opts.MaxAccuracyM {
		sample.Valid = false
	}
	prevTS, prevLat, prevLon, havePrev, err := s.lastValidPoint(employeeID)
	if err != nil {
		return models.Sample{}, err
	}
	if havePrev {
		if dt := sample.Timestamp - prevTS; dt > 0 {
			speed := speedKmh(prevLat, prevLon, lat, lon, dt)
			sample.SpeedKmh = &speed
			if speed > s.opts.MaxJumpSpeedKmh {
				sample.Valid = false
			}
		}
	}

	res, err := s.insertStmt.Exec(sample.EmployeeID, sample.ShiftID, day, sample.Timestamp,
		sample.Latitude, sample.Longitude, nullableFloat(sample.Accuracy), sample.Source,
		nullableFloat(sample.SpeedKmh), boolToInt(sample.Valid))
	if err != nil {
		return models.Sample{}, fmt.Errorf("failed to insert sample: %w", err)
	}
	if sample.ID, err = res.LastInsertId(); err != nil {
		return models.Sample{}, fmt.Errorf("failed to read sample id: %w", err)
	}

	// The ts guard only matters when a restored backup carries a newer
	// latest row than the live clock; in normal operation timestamps are
	// monotone per the mutex above.
	if _, err := s.db.Exec(`
		INSERT INTO latest(employee_id, ts, lat, lon, accuracy, source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
		  ts=excluded.ts,
		  lat=excluded.lat,
		  lon=excluded.lon,
		  accuracy=excluded.accuracy,
		  source=excluded.source
		WHERE excluded.ts >= latest.ts`,
		sample.EmployeeID, sample.Timestamp, sample.Latitude, sample.Longitude,
		nullableFloat(sample.Accuracy), sample.Source); err != nil {
		return models.Sample{}, fmt.Errorf("failed to update latest pointer: %w", err)
	}
	s.latest.Set(employeeID, sample)

	return sample, nil
}

// lastValidPoint returns the newest sample not flagged low quality, used as
// the reference for jump-speed estimation so one bad fix does not poison
// the next estimate.
func (s *SQLiteStore) lastValidPoint(employeeID string) (ts int64, lat, lon float64, ok bool, err error) {
	row := s.db.QueryRow(`
		SELECT ts, lat, lon FROM samples
		WHERE employee_id = ? AND valid = 1
		ORDER BY ts DESC, id DESC LIMIT 1`, employeeID)
	switch err = row.Scan(&ts, &lat, &lon); err {
	case nil:
		return ts, lat, lon, true, nil
	case sql.ErrNoRows:
		return 0, 0, 0, false, nil
	default:
		return 0, 0, 0, false, fmt.Errorf("failed to query last valid point: %w", err)
	}
}

// Latest implements Store; it is served from the in-memory cache.
func (s *SQLiteStore) Latest(employeeID string) (models.Sample, bool) {
	return s.latest.Get(employeeID)
}

// Identities implements Store.
func (s *SQLiteStore) Identities() []string {
	return s.latest.Keys()
}

// RangeForDay implements Store.
func (s *SQLiteStore) RangeForDay(employeeID, day string) ([]models.Sample, error) {
	rows, err := s.db.Query(`
		SELECT id, employee_id, shift_id, day, ts, lat, lon, accuracy, source, speed_kmh, valid
		FROM samples
		WHERE employee_id = ? AND day = ?
		ORDER BY ts ASC, id ASC`, employeeID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query day range: %w", err)
	}
	defer rows.Close()

	samples := make([]models.Sample, 0)
	for rows.Next() {
		var sample models.Sample
		var dayKey string
		var accuracy, speed sql.NullFloat64
		var valid int
		if err := rows.Scan(&sample.ID, &sample.EmployeeID, &sample.ShiftID, &dayKey,
			&sample.Timestamp, &sample.Latitude, &sample.Longitude, &accuracy,
			&sample.Source, &speed, &valid); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		if accuracy.Valid {
			sample.Accuracy = &accuracy.Float64
		}
		if speed.Valid {
			sample.SpeedKmh = &speed.Float64
		}
		sample.Valid = valid == 1
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// OpenShift implements Store. Reopening an existing shift for the day resets
// its start time, matching how field crews re-check-in after breaks.
func (s *SQLiteStore) OpenShift(employeeID string) (models.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	shift := models.Shift{
		ShiftID:    shiftIDFor(now, s.opts.Timezone, employeeID),
		EmployeeID: employeeID,
		StartTS:    now.Unix(),
		Active:     true,
	}
	if _, err := s.db.Exec(`
		INSERT OR REPLACE INTO shifts(shift_id, employee_id, start_ts, end_ts, active)
		VALUES (?, ?, ?, NULL, 1)`,
		shift.ShiftID, shift.EmployeeID, shift.StartTS); err != nil {
		return models.Shift{}, fmt.Errorf("failed to open shift: %w", err)
	}

	s.logger.Info().Str("shift_id", shift.ShiftID).Msg("Shift opened")
	return shift, nil
}

// CloseShift implements Store.
func (s *SQLiteStore) CloseShift(employeeID string) (models.Shift, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	shiftID := shiftIDFor(now, s.opts.Timezone, employeeID)
	endTS := now.Unix()

	res, err := s.db.Exec(`
		UPDATE shifts SET end_ts = ?, active = 0
		WHERE shift_id = ? AND employee_id = ?`, endTS, shiftID, employeeID)
	if err != nil {
		return models.Shift{}, false, fmt.Errorf("failed to close shift: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Shift{}, false, fmt.Errorf("failed to read close result: %w", err)
	}
	if affected == 0 {
		return models.Shift{}, false, nil
	}

	shift, ok, err := s.shiftByID(shiftID)
	if err != nil || !ok {
		return models.Shift{}, ok, err
	}
	s.logger.Info().Str("shift_id", shiftID).Msg("Shift closed")
	return shift, true, nil
}

// ActiveShift implements Store.
func (s *SQLiteStore) ActiveShift(employeeID string) (models.Shift, bool, error) {
	return s.activeShiftAt(employeeID, s.opts.Now())
}

func (s *SQLiteStore) activeShiftAt(employeeID string, now time.Time) (models.Shift, bool, error) {
	shift, ok, err := s.shiftByID(shiftIDFor(now, s.opts.Timezone, employeeID))
	if err != nil || !ok || !shift.Active {
		return models.Shift{}, false, err
	}
	return shift, true, nil
}

func (s *SQLiteStore) shiftByID(shiftID string) (models.Shift, bool, error) {
	var shift models.Shift
	var endTS sql.NullInt64
	var active int
	row := s.db.QueryRow(`
		SELECT shift_id, employee_id, start_ts, end_ts, active
		FROM shifts WHERE shift_id = ?`, shiftID)
	switch err := row.Scan(&shift.ShiftID, &shift.EmployeeID, &shift.StartTS, &endTS, &active); err {
	case nil:
		if endTS.Valid {
			shift.EndTS = &endTS.Int64
		}
		shift.Active = active == 1
		return shift, true, nil
	case sql.ErrNoRows:
		return models.Shift{}, false, nil
	default:
		return models.Shift{}, false, fmt.Errorf("failed to query shift: %w", err)
	}
}

// PurgeOlderThan implements Store.
func (s *SQLiteStore) PurgeOlderThan(cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM samples WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge samples: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge result: %w", err)
	}

	if _, err := s.db.Exec(`DELETE FROM latest WHERE ts < ?`, cutoff); err != nil {
		return purged, fmt.Errorf("failed to purge latest pointers: %w", err)
	}
	for _, item := range s.latest.Items() {
		if item.Timestamp < cutoff {
			s.latest.Remove(item.EmployeeID)
		}
	}

	return purged, nil
}

// Close releases the prepared statement and the database handle.
func (s *SQLiteStore) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	return s.db.Close()
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
