package services

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/benmeehan/fieldtrack/internal/constants"
	"github.com/benmeehan/fieldtrack/internal/models"
	"github.com/benmeehan/fieldtrack/internal/tracker"
	"github.com/benmeehan/fieldtrack/pkg/mqtt"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTIngestService feeds position reports published by reporter agents
// into the tracker. Agents publish to <prefix>/<employee_id>; the identity
// is taken from the topic, with the payload copy as a fallback for brokers
// that rewrite topics. Bad reports are logged and dropped, never answered:
// there is no backchannel on this path.
type MQTTIngestService struct {
	SubTopic   string
	QOS        int
	Tracker    *tracker.Tracker
	MqttClient mqtt.MQTTClient
	Logger     zerolog.Logger

	running bool
}

// NewMQTTIngestService initializes a new MQTTIngestService.
func NewMQTTIngestService(subTopic string, qos int, trk *tracker.Tracker,
	mqttClient mqtt.MQTTClient, logger zerolog.Logger) *MQTTIngestService {

	return &MQTTIngestService{
		SubTopic:   subTopic,
		QOS:        qos,
		Tracker:    trk,
		MqttClient: mqttClient,
		Logger:     logger,
	}
}

// Start subscribes to the location report topic.
func (m *MQTTIngestService) Start() error {
	if m.running {
		m.Logger.Warn().Msg("MQTTIngestService is already running")
		return errors.New("mqtt ingest service is already running")
	}

	token := m.MqttClient.Subscribe(m.SubTopic, byte(m.QOS), m.onMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		m.Logger.Error().Err(err).Str("topic", m.SubTopic).Msg("Failed to subscribe to location reports")
		return err
	}

	m.running = true
	m.Logger.Info().Str("topic", m.SubTopic).Msg("MQTTIngestService started successfully")
	return nil
}

// Stop unsubscribes from the location report topic.
func (m *MQTTIngestService) Stop() error {
	if !m.running {
		m.Logger.Warn().Msg("MQTTIngestService is not running")
		return errors.New("mqtt ingest service is not running")
	}

	token := m.MqttClient.Unsubscribe(m.SubTopic)
	token.Wait()
	if err := token.Error(); err != nil {
		m.Logger.Error().Err(err).Msg("Failed to unsubscribe from location reports")
		return err
	}

	m.running = false
	m.Logger.Info().Msg("MQTTIngestService stopped successfully")
	return nil
}

func (m *MQTTIngestService) onMessage(client pahomqtt.Client, msg pahomqtt.Message) {
	m.HandleReport(msg.Topic(), msg.Payload())
}

// HandleReport processes one published location report.
func (m *MQTTIngestService) HandleReport(topic string, payload []byte) {
	var report models.ReporterSample
	if err := json.Unmarshal(payload, &report); err != nil {
		m.Logger.Warn().Err(err).Str("topic", topic).Msg("Dropping malformed location report")
		return
	}

	employeeID := topicEmployeeID(topic)
	if employeeID == "" {
		employeeID = report.EmployeeID
	}

	if _, err := m.Tracker.Ingest(employeeID, report.Latitude, report.Longitude, report.Accuracy, constants.SourceMQTT); err != nil {
		m.Logger.Warn().Err(err).Str("employee_id", employeeID).Msg("Dropping rejected location report")
	}
}

// topicEmployeeID extracts the employee id from the last topic segment.
func topicEmployeeID(topic string) string {
	if i := strings.LastIndex(topic, "/"); i >= 0 {
		return topic[i+1:]
	}
	return ""
}
