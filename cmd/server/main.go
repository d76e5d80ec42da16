package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benmeehan/fieldtrack/internal/freshness"
	"github.com/benmeehan/fieldtrack/internal/metrics_collectors"
	"github.com/benmeehan/fieldtrack/internal/service_registry"
	"github.com/benmeehan/fieldtrack/internal/services"
	"github.com/benmeehan/fieldtrack/internal/store"
	"github.com/benmeehan/fieldtrack/internal/tracker"
	"github.com/benmeehan/fieldtrack/internal/utils"
	"github.com/benmeehan/fieldtrack/pkg/file"
	"github.com/benmeehan/fieldtrack/pkg/mqtt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "configs/server.yaml", "Path to the server configuration file")
	flag.Parse()

	// Set up structured logging with JSON output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	timezone, err := time.LoadLocation(config.Tracking.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load timezone")
	}

	// Open the sample store
	sampleStore, err := store.NewSQLiteStore(store.Options{
		Path:            config.Tracking.DBPath,
		Timezone:        timezone,
		MaxAccuracyM:    config.Tracking.MaxAccuracyM,
		MaxJumpSpeedKmh: config.Tracking.MaxJumpSpeedKmh,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open sample store")
	}
	defer sampleStore.Close()

	thresholds := freshness.Thresholds{
		FreshWithin:  time.Duration(config.Tracking.FreshWithinS) * time.Second,
		OfflineAfter: time.Duration(config.Tracking.OfflineAfterS) * time.Second,
	}
	trk := tracker.New(sampleStore, thresholds, timezone, nil, logger)

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(logger)

	serviceRegistry.RegisterService("http_api", services.NewHTTPAPIService(
		config.Server.HTTPAddr,
		trk,
		metrics_collectors.DefaultRegistry(logger),
		config.Auth.LinkSecret,
		time.Duration(config.Server.ReadTimeoutS)*time.Second,
		time.Duration(config.Server.WriteTimeoutS)*time.Second,
		time.Duration(config.Server.ShutdownTimeoutS)*time.Second,
		logger,
	))

	if config.Retention.Enabled {
		serviceRegistry.RegisterService("retention", services.NewRetentionService(
			config.Retention.Days,
			time.Duration(config.Retention.SweepIntervalS)*time.Second,
			sampleStore,
			logger,
		))
	}

	var mqttClient *mqtt.MqttService
	if config.MQTT.Enabled {
		// Generate a unique MQTT Client ID by appending a UUID
		clientID := config.MQTT.ClientID + "-" + uuid.New().String()
		logger.Info().Str("client_id", clientID).Msg("Using MQTT Client ID")

		mqttClient = mqtt.NewMqttService(fileClient)
		if err := mqttClient.Initialize(config.MQTT.Broker, clientID, config.MQTT.CACertificate); err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
		}

		serviceRegistry.RegisterService("mqtt_ingest", services.NewMQTTIngestService(
			config.MQTT.Topic,
			config.MQTT.QOS,
			trk,
			mqttClient,
			logger,
		))
	}

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
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
}
