package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*SQLiteStore, *fakeClock) {
	t.Helper()
	return openTestStore(t, filepath.Join(t.TempDir(), "test.db"))
}

func openTestStore(t *testing.T, path string) (*SQLiteStore, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	s, err := NewSQLiteStore(Options{
		Path:            path,
		MaxAccuracyM:    200,
		MaxJumpSpeedKmh: 150,
		Now:             func() time.Time { return clock.now },
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func floatPtr(v float64) *float64 { return &v }

func TestAppend_AssignsTimestampAndBecomesLatest(t *testing.T) {
	s, clock := newTestStore(t)

	sample, err := s.Append("E1", 48.8566, 2.3522, floatPtr(10), "live")
	require.NoError(t, err)

	assert.Equal(t, clock.now.Unix(), sample.Timestamp)
	assert.Equal(t, "E1", sample.EmployeeID)
	assert.True(t, sample.Valid)
	assert.Nil(t, sample.SpeedKmh)

	latest, ok := s.Latest("E1")
	assert.True(t, ok)
	assert.Equal(t, sample.Timestamp, latest.Timestamp)
	assert.Equal(t, sample.Latitude, latest.Latitude)

	assert.Equal(t, []string{"E1"}, s.Identities())
}

func TestAppend_FlagsPoorAccuracy(t *testing.T) {
	s, _ := newTestStore(t)

	sample, err := s.Append("E1", 48.8566, 2.3522, floatPtr(500), "live")
	require.NoError(t, err)
	assert.False(t, sample.Valid)

	// A flagged sample still becomes the latest pointer.
	latest, ok := s.Latest("E1")
	assert.True(t, ok)
	assert.Equal(t, sample.Timestamp, latest.Timestamp)
}

func TestAppend_FlagsImplausibleJump(t *testing.T) {
	s, clock := newTestStore(t)

	_, err := s.Append("E1", 0, 0, nil, "live")
	require.NoError(t, err)

	// Roughly 111 km in 10 seconds is far past any plausible speed.
	clock.advance(10 * time.Second)
	jumped, err := s.Append("E1", 1, 0, nil, "live")
	require.NoError(t, err)
	assert.False(t, jumped.Valid)
	require.NotNil(t, jumped.SpeedKmh)
	assert.Greater(t, *jumped.SpeedKmh, 150.0)

	// The next sample is measured against the last valid point, not the
	// flagged jump, so a return to the origin stays valid.
	clock.advance(30 * time.Second)
	settled, err := s.Append("E1", 0.0001, 0, nil, "live")
	require.NoError(t, err)
	assert.True(t, settled.Valid)
}

func TestRangeForDay_OrderingAndPartition(t *testing.T) {
	s, clock := newTestStore(t)

	_, err := s.Append("E1", 1, 1, nil, "live")
	require.NoError(t, err)
	clock.advance(time.Minute)
	_, err = s.Append("E1", 2, 2, nil, "live")
	require.NoError(t, err)

	// Next calendar day.
	clock.advance(24 * time.Hour)
	_, err = s.Append("E1", 3, 3, nil, "live")
	require.NoError(t, err)

	day1, err := s.RangeForDay("E1", "2026-03-10")
	require.NoError(t, err)
	require.Len(t, day1, 2)
	assert.Equal(t, 1.0, day1[0].Latitude)
	assert.Equal(t, 2.0, day1[1].Latitude)
	assert.LessOrEqual(t, day1[0].Timestamp, day1[1].Timestamp)

	day2, err := s.RangeForDay("E1", "2026-03-11")
	require.NoError(t, err)
	require.Len(t, day2, 1)
	assert.Equal(t, 3.0, day2[0].Latitude)
}

func TestRangeForDay_UnknownEmployeeYieldsEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	samples, err := s.RangeForDay("nobody", "2026-03-10")
	assert.NoError(t, err)
	assert.Empty(t, samples)
}

func TestShiftLifecycle(t *testing.T) {
	s, clock := newTestStore(t)

	// No shift yet.
	_, found, err := s.ActiveShift("E1")
	require.NoError(t, err)
	assert.False(t, found)

	shift, err := s.OpenShift("E1")
	require.NoError(t, err)
	assert.Equal(t, "20260310-E1", shift.ShiftID)
	assert.True(t, shift.Active)

	// Samples recorded during the shift carry its id.
	sample, err := s.Append("E1", 1, 1, nil, "start")
	require.NoError(t, err)
	assert.Equal(t, "20260310-E1", sample.ShiftID)

	clock.advance(8 * time.Hour)
	closed, found, err := s.CloseShift("E1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, closed.Active)
	require.NotNil(t, closed.EndTS)
	assert.Equal(t, clock.now.Unix(), *closed.EndTS)

	// Samples after close are untagged.
	sample, err = s.Append("E1", 1, 1, nil, "live")
	require.NoError(t, err)
	assert.Empty(t, sample.ShiftID)
}

func TestCloseShift_WithoutOpenReportsNotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, found, err := s.CloseShift("E1")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestPurgeOlderThan(t *testing.T) {
	s, clock := newTestStore(t)

	_, err := s.Append("old", 1, 1, nil, "live")
	require.NoError(t, err)

	clock.advance(40 * 24 * time.Hour)
	_, err = s.Append("recent", 2, 2, nil, "live")
	require.NoError(t, err)

	cutoff := clock.now.Add(-30 * 24 * time.Hour).Unix()
	purged, err := s.PurgeOlderThan(cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, ok := s.Latest("old")
	assert.False(t, ok)
	assert.Equal(t, []string{"recent"}, s.Identities())

	samples, err := s.RangeForDay("old", "2026-03-10")
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestLatestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, _ := openTestStore(t, path)
	appended, err := s.Append("E1", 48.8566, 2.3522, floatPtr(12), "live")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, _ := openTestStore(t, path)
	latest, ok := reopened.Latest("E1")
	assert.True(t, ok)
	assert.Equal(t, appended.Timestamp, latest.Timestamp)
	assert.Equal(t, appended.Latitude, latest.Latitude)
	require.NotNil(t, latest.Accuracy)
	assert.Equal(t, 12.0, *latest.Accuracy)
}

func TestAppend_DayPartitionRespectsZone(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)}
	s, err := NewSQLiteStore(Options{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		Timezone:        time.FixedZone("EET", 2*3600),
		MaxAccuracyM:    200,
		MaxJumpSpeedKmh: 150,
		Now:             func() time.Time { return clock.now },
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.Append("E1", 1, 1, nil, "live")
	require.NoError(t, err)

	// 23:30 UTC is already past midnight two hours east.
	samples, err := s.RangeForDay("E1", "2026-03-11")
	require.NoError(t, err)
	assert.Len(t, samples, 1)
}
