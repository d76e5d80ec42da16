package services

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/benmeehan/fieldtrack/internal/models"
	"github.com/benmeehan/fieldtrack/pkg/identity"
	"github.com/benmeehan/fieldtrack/pkg/location"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubEmployeeInfo struct {
	id string
}

func (s *stubEmployeeInfo) LoadEmployeeInfo() error          { return nil }
func (s *stubEmployeeInfo) SaveEmployeeID(id string) error   { s.id = id; return nil }
func (s *stubEmployeeInfo) GetEmployeeID() string            { return s.id }
func (s *stubEmployeeInfo) GetIdentity() *identity.Identity  { return &identity.Identity{EmployeeID: s.id} }

type stubProvider struct {
	loc location.Location
	err error
}

func (s *stubProvider) GetLocation() (location.Location, error) {
	return s.loc, s.err
}

func TestReporterService_PublishesReport(t *testing.T) {
	client := new(MockMQTTClient)
	client.On("Publish", "fieldtrack/location/E1", byte(1), false, mock.Anything).Return(newOKToken())

	svc := NewReporterService("fieldtrack/location", time.Hour, 1,
		&stubEmployeeInfo{id: "E1"},
		client,
		&stubProvider{loc: location.Location{Latitude: 48.8566, Longitude: 2.3522, Accuracy: 20}},
		zerolog.Nop())

	svc.reportOnce()

	client.AssertExpectations(t)

	payload := client.Calls[0].Arguments.Get(3).([]byte)
	var report models.ReporterSample
	require.NoError(t, json.Unmarshal(payload, &report))
	assert.Equal(t, "E1", report.EmployeeID)
	assert.Equal(t, 48.8566, report.Latitude)
	require.NotNil(t, report.Accuracy)
	assert.Equal(t, 20.0, *report.Accuracy)
}

func TestReporterService_SkipsPublishWhenProviderFails(t *testing.T) {
	client := new(MockMQTTClient)

	svc := NewReporterService("fieldtrack/location", time.Hour, 1,
		&stubEmployeeInfo{id: "E1"},
		client,
		&stubProvider{err: errors.New("no fix")},
		zerolog.Nop())

	svc.reportOnce()

	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReporterService_StartStop(t *testing.T) {
	client := new(MockMQTTClient)
	client.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(newOKToken())

	svc := NewReporterService("fieldtrack/location", time.Hour, 1,
		&stubEmployeeInfo{id: "E1"},
		client,
		&stubProvider{loc: location.Location{Latitude: 1, Longitude: 2}},
		zerolog.Nop())

	require.NoError(t, svc.Start())

	err := svc.Start()
	require.Error(t, err)
	assert.Equal(t, "reporter service is already running", err.Error())

	require.NoError(t, svc.Stop())

	err = svc.Stop()
	require.Error(t, err)
	assert.Equal(t, "reporter service is not running", err.Error())
}
