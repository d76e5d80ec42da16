package tracker

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/benmeehan/fieldtrack/internal/constants"
	"github.com/benmeehan/fieldtrack/internal/freshness"
	"github.com/benmeehan/fieldtrack/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStore is a mock implementation of the store.Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Append(employeeID string, lat, lon float64, accuracy *float64, source string) (models.Sample, error) {
	args := m.Called(employeeID, lat, lon, accuracy, source)
	return args.Get(0).(models.Sample), args.Error(1)
}

func (m *MockStore) Latest(employeeID string) (models.Sample, bool) {
	args := m.Called(employeeID)
	return args.Get(0).(models.Sample), args.Bool(1)
}

func (m *MockStore) RangeForDay(employeeID, day string) ([]models.Sample, error) {
	args := m.Called(employeeID, day)
	return args.Get(0).([]models.Sample), args.Error(1)
}

func (m *MockStore) Identities() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockStore) OpenShift(employeeID string) (models.Shift, error) {
	args := m.Called(employeeID)
	return args.Get(0).(models.Shift), args.Error(1)
}

func (m *MockStore) CloseShift(employeeID string) (models.Shift, bool, error) {
	args := m.Called(employeeID)
	return args.Get(0).(models.Shift), args.Bool(1), args.Error(2)
}

func (m *MockStore) ActiveShift(employeeID string) (models.Shift, bool, error) {
	args := m.Called(employeeID)
	return args.Get(0).(models.Shift), args.Bool(1), args.Error(2)
}

func (m *MockStore) PurgeOlderThan(cutoff int64) (int64, error) {
	args := m.Called(cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestTracker(st *MockStore) *Tracker {
	return New(st, freshness.DefaultThresholds(), time.UTC, func() time.Time { return testNow }, zerolog.Nop())
}

func TestIngest_RejectsInvalidInput(t *testing.T) {
	st := new(MockStore)
	trk := newTestTracker(st)

	tests := []struct {
		name       string
		employeeID string
		lat, lon   float64
		accuracy   *float64
		field      string
	}{
		{"empty employee id", "", 1, 1, nil, "employee_id"},
		{"latitude too high", "E1", 91, 0, nil, "lat"},
		{"latitude NaN", "E1", math.NaN(), 0, nil, "lat"},
		{"longitude too low", "E1", 0, -181, nil, "lon"},
		{"longitude infinite", "E1", 0, math.Inf(1), nil, "lon"},
		{"negative accuracy", "E1", 0, 0, floatPtr(-1), "accuracy"},
		{"accuracy NaN", "E1", 0, 0, floatPtr(math.NaN()), "accuracy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := trk.Ingest(tt.employeeID, tt.lat, tt.lon, tt.accuracy, "live")
			require.Error(t, err)
			assert.True(t, IsValidation(err))

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	// Validation failures never reach the store.
	st.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIngest_DefaultsEmptySourceToLive(t *testing.T) {
	st := new(MockStore)
	st.On("Append", "E1", 1.0, 2.0, (*float64)(nil), constants.SourceLive).
		Return(models.Sample{EmployeeID: "E1", Timestamp: testNow.Unix()}, nil)

	trk := newTestTracker(st)
	sample, err := trk.Ingest("E1", 1, 2, nil, "")

	require.NoError(t, err)
	assert.Equal(t, testNow.Unix(), sample.Timestamp)
	st.AssertExpectations(t)
}

func TestIngest_PropagatesStoreError(t *testing.T) {
	st := new(MockStore)
	st.On("Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(models.Sample{}, errors.New("disk full"))

	trk := newTestTracker(st)
	_, err := trk.Ingest("E1", 1, 2, nil, "live")

	require.Error(t, err)
	assert.False(t, IsValidation(err))
}

func TestRoster_SortedAndClassified(t *testing.T) {
	st := new(MockStore)
	st.On("Identities").Return([]string{"b", "a"})
	st.On("Latest", "a").Return(models.Sample{
		EmployeeID: "a", Timestamp: testNow.Unix() - 60, Latitude: 1, Longitude: 2,
	}, true)
	st.On("Latest", "b").Return(models.Sample{
		EmployeeID: "b", Timestamp: testNow.Unix() - 3600, Latitude: 3, Longitude: 4,
	}, true)

	trk := newTestTracker(st)
	roster := trk.Roster()

	require.Len(t, roster, 2)
	assert.Equal(t, "a", roster[0].EmployeeID)
	assert.Equal(t, constants.FreshnessFresh, roster[0].FreshStatus)
	assert.Equal(t, "b", roster[1].EmployeeID)
	assert.Equal(t, constants.FreshnessOffline, roster[1].FreshStatus)
}

func TestRoster_EmptyStore(t *testing.T) {
	st := new(MockStore)
	st.On("Identities").Return([]string{})

	trk := newTestTracker(st)
	assert.Empty(t, trk.Roster())
}

func TestTrack_ValidatesDate(t *testing.T) {
	st := new(MockStore)
	trk := newTestTracker(st)

	_, err := trk.Track("E1", "10-03-2026")
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = trk.Track("", "2026-03-10")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestTrack_DefaultsDateToTodayInZone(t *testing.T) {
	st := new(MockStore)
	st.On("RangeForDay", "E1", "2026-03-11").Return([]models.Sample{}, nil)

	// 23:30 UTC is already past midnight two hours east.
	lateNow := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	trk := New(st, freshness.DefaultThresholds(), time.FixedZone("EET", 2*3600),
		func() time.Time { return lateNow }, zerolog.Nop())

	track, err := trk.Track("E1", "")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-11", track.Date)
	st.AssertExpectations(t)
}

func TestTrack_MapsSamplesToPoints(t *testing.T) {
	st := new(MockStore)
	st.On("RangeForDay", "E1", "2026-03-10").Return([]models.Sample{
		{Timestamp: 100, Latitude: 1, Longitude: 2, Valid: true},
		{Timestamp: 200, Latitude: 3, Longitude: 4, SpeedKmh: floatPtr(400), Valid: false},
	}, nil)

	trk := newTestTracker(st)
	track, err := trk.Track("E1", "2026-03-10")

	require.NoError(t, err)
	assert.Equal(t, "E1", track.EmployeeID)
	require.Len(t, track.Points, 2)
	assert.True(t, track.Points[0].Valid)
	// Flagged points stay in the track with their metadata.
	assert.False(t, track.Points[1].Valid)
	require.NotNil(t, track.Points[1].SpeedKmh)
	assert.Equal(t, 400.0, *track.Points[1].SpeedKmh)
}

func TestShiftOperations_RequireEmployeeID(t *testing.T) {
	st := new(MockStore)
	trk := newTestTracker(st)

	_, err := trk.OpenShift("")
	assert.True(t, IsValidation(err))

	_, _, err = trk.CloseShift("")
	assert.True(t, IsValidation(err))

	_, _, err = trk.ActiveShift("")
	assert.True(t, IsValidation(err))
}

func floatPtr(v float64) *float64 { return &v }
