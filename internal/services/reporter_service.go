package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/fieldtrack/internal/models"
	"github.com/benmeehan/fieldtrack/pkg/identity"
	"github.com/benmeehan/fieldtrack/pkg/location"
	"github.com/benmeehan/fieldtrack/pkg/mqtt"
	"github.com/rs/zerolog"
)

// ReporterService periodically reads the device position and publishes it
// to the tracking server over MQTT. Failures are logged and the loop keeps
// going; a field device with flaky GPS coverage must not crash-loop.
type ReporterService struct {
	TopicPrefix  string
	Interval     time.Duration
	QOS          int
	EmployeeInfo identity.EmployeeInfoInterface
	MqttClient   mqtt.MQTTClient
	Provider     location.Provider
	Logger       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReporterService initializes a new ReporterService.
func NewReporterService(topicPrefix string, interval time.Duration, qos int,
	employeeInfo identity.EmployeeInfoInterface, mqttClient mqtt.MQTTClient,
	provider location.Provider, logger zerolog.Logger) *ReporterService {

	return &ReporterService{
		TopicPrefix:  topicPrefix,
		Interval:     interval,
		QOS:          qos,
		EmployeeInfo: employeeInfo,
		MqttClient:   mqttClient,
		Provider:     provider,
		Logger:       logger,
	}
}

// Start launches the reporting loop in a separate goroutine.
func (r *ReporterService) Start() error {
	if r.ctx != nil {
		r.Logger.Warn().Msg("ReporterService is already running")
		return errors.New("reporter service is already running")
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runReportLoop()
	}()

	r.Logger.Info().Str("topic_prefix", r.TopicPrefix).Msg("ReporterService started successfully")
	return nil
}

// Stop gracefully stops the reporter service.
func (r *ReporterService) Stop() error {
	if r.ctx == nil {
		r.Logger.Warn().Msg("ReporterService is not running")
		return errors.New("reporter service is not running")
	}

	r.cancel()
	r.wg.Wait()

	r.ctx = nil
	r.cancel = nil

	r.Logger.Info().Msg("ReporterService stopped successfully")
	return nil
}

// runReportLoop publishes one report immediately and then on every tick.
func (r *ReporterService) runReportLoop() {
	r.reportOnce()

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.reportOnce()
		case <-r.ctx.Done():
			r.Logger.Info().Msg("ReporterService stopping gracefully")
			return
		}
	}
}

func (r *ReporterService) reportOnce() {
	loc, err := r.Provider.GetLocation()
	if err != nil {
		r.Logger.Warn().Err(err).Msg("Failed to read device location")
		return
	}

	employeeID := r.EmployeeInfo.GetEmployeeID()
	report := models.ReporterSample{
		EmployeeID: employeeID,
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
	}
	if loc.Accuracy > 0 {
		report.Accuracy = &loc.Accuracy
	}

	payload, err := json.Marshal(report)
	if err != nil {
		r.Logger.Error().Err(err).Msg("Failed to serialize location report")
		return
	}

	token := r.MqttClient.Publish(r.TopicPrefix+"/"+employeeID, byte(r.QOS), false, payload)
	token.Wait()

	if err := token.Error(); err != nil {
		r.Logger.Error().Err(err).Msg("Failed to publish location report")
	} else {
		r.Logger.Debug().Str("employee_id", employeeID).Msg("Location report published successfully")
	}
}
