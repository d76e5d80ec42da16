package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/benmeehan/fieldtrack/internal/models"
	"github.com/benmeehan/fieldtrack/internal/service_registry"
	"github.com/benmeehan/fieldtrack/internal/services"
	"github.com/benmeehan/fieldtrack/internal/utils"
	"github.com/benmeehan/fieldtrack/pkg/file"
	"github.com/benmeehan/fieldtrack/pkg/identity"
	"github.com/benmeehan/fieldtrack/pkg/location"
	"github.com/benmeehan/fieldtrack/pkg/mqtt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "configs/reporter.yaml", "Path to the reporter configuration file")
	flag.Parse()

	// Set up structured logging with JSON output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadReporterConfig(*configPath, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize EmployeeInfo
	employeeInfo := identity.NewEmployeeInfo(config.Identity.DeviceFile, fileClient)
	if err := employeeInfo.LoadEmployeeInfo(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load employee identity")
	}
	if employeeInfo.GetEmployeeID() == "" {
		logger.Fatal().Str("file", config.Identity.DeviceFile).Msg("Identity file carries no employee id")
	}

	// Refuse to report against a server outside the supported version range
	if config.Server.URL != "" && config.Server.VersionConstraint != "" {
		if err := checkServerVersion(config.Server.URL, config.Server.VersionConstraint); err != nil {
			logger.Fatal().Err(err).Msg("Server version handshake failed")
		}
	}

	// Generate a unique MQTT Client ID by appending a UUID
	clientID := config.MQTT.ClientID + "-" + uuid.New().String()
	logger.Info().Str("client_id", clientID).Msg("Using MQTT Client ID")

	// Initialize the shared MQTT connection
	mqttClient := mqtt.NewMqttService(fileClient)
	if err := mqttClient.Initialize(config.MQTT.Broker, clientID, config.MQTT.CACertificate); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
	}

	var provider location.Provider
	if config.Reporter.SensorBased {
		provider = location.NewDeviceSensorProvider(config.Reporter.GPSDevicePort, config.Reporter.GPSDeviceBaudRate)
	} else {
		provider, err = location.NewGoogleGeolocationProvider(config.Reporter.MapsAPIKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create Google Geolocation provider")
		}
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(logger)
	serviceRegistry.RegisterService("reporter", services.NewReporterService(
		config.MQTT.TopicPrefix,
		time.Duration(config.Reporter.IntervalS)*time.Second,
		config.MQTT.QOS,
		employeeInfo,
		mqttClient,
		provider,
		logger,
	))

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop services cleanly")
	}
	mqttClient.Disconnect(250)
}

// checkServerVersion fetches the server health endpoint and verifies its
// reported version satisfies the configured semver constraint.
func checkServerVersion(serverURL, constraint string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(serverURL + "/api/health")
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server health check returned status %d", resp.StatusCode)
	}

	var health models.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}

	version, err := semver.NewVersion(health.Version)
	if err != nil {
		return fmt.Errorf("server reported unparseable version %q: %w", health.Version, err)
	}
	if !c.Check(version) {
		return fmt.Errorf("server version %s does not satisfy %q", health.Version, constraint)
	}
	return nil
}
