package utils

import (
	"fmt"
	"time"

	"github.com/benmeehan/fieldtrack/internal/constants"
	"github.com/benmeehan/fieldtrack/pkg/file"
	"github.com/go-playground/validator/v10"
)

// Config represents the structure of the server configuration file. All
// durations are plain integer seconds so the YAML stays editable by hand.
type Config struct {
	Server struct {
		HTTPAddr         string `yaml:"http_addr" validate:"required"` // Listen address for the HTTP API
		ReadTimeoutS     int    `yaml:"read_timeout_s"`                // HTTP read timeout (in seconds)
		WriteTimeoutS    int    `yaml:"write_timeout_s"`               // HTTP write timeout (in seconds)
		ShutdownTimeoutS int    `yaml:"shutdown_timeout_s"`            // Graceful shutdown timeout (in seconds)
	} `yaml:"server"`

	Tracking struct {
		DBPath          string  `yaml:"db_path" validate:"required"`         // Path to the SQLite database file
		Timezone        string  `yaml:"timezone"`                            // IANA zone for day partitioning, default UTC
		FreshWithinS    int     `yaml:"fresh_within_s" validate:"gte=0"`     // Age below which a position counts as fresh (in seconds)
		OfflineAfterS   int     `yaml:"offline_after_s" validate:"gte=0"`    // Age above which an employee counts as offline (in seconds)
		MaxAccuracyM    float64 `yaml:"max_accuracy_m" validate:"gte=0"`     // Accuracy bound before a sample is flagged (in meters)
		MaxJumpSpeedKmh float64 `yaml:"max_jump_speed_kmh" validate:"gte=0"` // Speed bound before a sample is flagged (in km/h)
	} `yaml:"tracking"`

	Retention struct {
		Enabled        bool `yaml:"enabled"`                        // Enable/disable the retention sweeper
		Days           int  `yaml:"days" validate:"gte=0"`          // Samples older than this many days are purged
		SweepIntervalS int  `yaml:"sweep_interval_s" validate:"gte=0"` // Interval between sweeps (in seconds)
	} `yaml:"retention"`

	Auth struct {
		LinkSecret string `yaml:"link_secret"` // Shared HMAC secret for device-link signatures, empty disables checking
	} `yaml:"auth"`

	MQTT struct {
		Enabled       bool   `yaml:"enabled"`        // Enable/disable the MQTT ingest path
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate, empty for plain TCP
		Topic         string `yaml:"topic"`          // Subscription filter for location reports
		QOS           int    `yaml:"qos" validate:"gte=0,lte=2"` // MQTT QoS level for location messages
	} `yaml:"mqtt"`
}

// ReporterConfig represents the structure of the reporter agent
// configuration file.
type ReporterConfig struct {
	MQTT struct {
		Broker        string `yaml:"broker" validate:"required"` // MQTT broker address
		ClientID      string `yaml:"client_id"`                  // MQTT client ID
		CACertificate string `yaml:"ca_certificate"`             // Path to the CA certificate, empty for plain TCP
		TopicPrefix   string `yaml:"topic_prefix"`               // Publish topic prefix, employee id is appended
		QOS           int    `yaml:"qos" validate:"gte=0,lte=2"` // MQTT QoS level for published reports
	} `yaml:"mqtt"`

	Identity struct {
		DeviceFile string `yaml:"device_file" validate:"required"` // Path to the employee identity file
		LinkSecret string `yaml:"link_secret"`                     // Shared HMAC secret for device-link signatures
	} `yaml:"identity"`

	Server struct {
		URL              string `yaml:"url"`                // Base URL of the tracking server, for the version handshake
		VersionConstraint string `yaml:"version_constraint"` // Semver range the server must satisfy, empty skips the check
	} `yaml:"server"`

	Reporter struct {
		IntervalS         int    `yaml:"interval_s" validate:"gte=0"` // Interval between position reports (in seconds)
		SensorBased       bool   `yaml:"sensor_based"`                // Use GPS sensor or geolocation API
		MapsAPIKey        string `yaml:"maps_api_key"`                // Google maps API Key
		GPSDeviceBaudRate int    `yaml:"gps_baud_rate"`               // The Baud rate for GPS sensor
		GPSDevicePort     string `yaml:"gps_device_port"`             // UNIX Port where the GPS sensor is mounted
	} `yaml:"reporter"`
}

// LoadConfig loads and validates the server YAML configuration from the
// specified file, filling in defaults for omitted values.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if config.Tracking.FreshWithinS >= config.Tracking.OfflineAfterS {
		return nil, fmt.Errorf("invalid configuration: fresh_within_s (%d) must be below offline_after_s (%d)",
			config.Tracking.FreshWithinS, config.Tracking.OfflineAfterS)
	}
	if config.MQTT.Enabled && config.MQTT.Broker == "" {
		return nil, fmt.Errorf("invalid configuration: mqtt.broker is required when mqtt is enabled")
	}
	if _, err := time.LoadLocation(config.Tracking.Timezone); err != nil {
		return nil, fmt.Errorf("invalid configuration: unknown timezone %q", config.Tracking.Timezone)
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Server.ReadTimeoutS == 0 {
		config.Server.ReadTimeoutS = 10
	}
	if config.Server.WriteTimeoutS == 0 {
		config.Server.WriteTimeoutS = 10
	}
	if config.Server.ShutdownTimeoutS == 0 {
		config.Server.ShutdownTimeoutS = 10
	}
	if config.Tracking.Timezone == "" {
		config.Tracking.Timezone = "UTC"
	}
	if config.Tracking.FreshWithinS == 0 {
		config.Tracking.FreshWithinS = constants.DefaultFreshWithinSec
	}
	if config.Tracking.OfflineAfterS == 0 {
		config.Tracking.OfflineAfterS = constants.DefaultOfflineAfterSec
	}
	if config.Tracking.MaxAccuracyM == 0 {
		config.Tracking.MaxAccuracyM = constants.DefaultMaxAccuracyM
	}
	if config.Tracking.MaxJumpSpeedKmh == 0 {
		config.Tracking.MaxJumpSpeedKmh = constants.DefaultMaxJumpSpeedKmh
	}
	if config.Retention.Days == 0 {
		config.Retention.Days = constants.DefaultRetentionDays
	}
	if config.Retention.SweepIntervalS == 0 {
		config.Retention.SweepIntervalS = 3600
	}
	if config.MQTT.Topic == "" {
		config.MQTT.Topic = "fieldtrack/location/+"
	}
}

// LoadReporterConfig loads and validates the reporter agent YAML
// configuration from the specified file.
func LoadReporterConfig(filename string, fileClient file.FileOperations) (*ReporterConfig, error) {
	var config ReporterConfig
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	if config.MQTT.TopicPrefix == "" {
		config.MQTT.TopicPrefix = "fieldtrack/location"
	}
	if config.Reporter.IntervalS == 0 {
		config.Reporter.IntervalS = 60
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if config.Reporter.SensorBased && config.Reporter.GPSDevicePort == "" {
		return nil, fmt.Errorf("invalid configuration: reporter.gps_device_port is required for sensor based reporting")
	}
	if !config.Reporter.SensorBased && config.Reporter.MapsAPIKey == "" {
		return nil, fmt.Errorf("invalid configuration: reporter.maps_api_key is required for api based reporting")
	}

	return &config, nil
}
