package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisefido-patients/internal/config"
	"wisefido-patients/internal/export"
	httpapi "wisefido-patients/internal/http"
	"wisefido-patients/internal/logger"
	"wisefido-patients/internal/mqtt"
	"wisefido-patients/internal/repository"
	"wisefido-patients/internal/service"
	"wisefido-patients/internal/store"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-patients")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slot, closeSlot, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open record slot", zap.Error(err))
	}
	defer closeSlot()

	repo := repository.NewSlotPatientsRepository(slot, log,
		repository.WithSlotKey(cfg.Store.SlotKey),
		repository.WithMaxAttempts(cfg.IDs.MaxAttempts),
	)

	loc, err := time.LoadLocation(cfg.Export.Timezone)
	if err != nil {
		log.Warn("Unknown export timezone, using Local", zap.String("timezone", cfg.Export.Timezone), zap.Error(err))
		loc = time.Local
	}
	exportOpts := export.DefaultOptions()
	exportOpts.SkipFailedRows = cfg.Export.SkipFailedRows
	exportOpts.DateLayout = cfg.Export.DateLayout
	exportOpts.Location = loc
	exporter := export.New(exportOpts, log)

	var notifier service.RegistrationNotifier
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT, log)
		if err != nil {
			// 通知是附加功能，broker 不可用时照常提供登记服务
			log.Warn("MQTT unavailable, registration events disabled", zap.Error(err))
		} else {
			defer mqttClient.Disconnect()
			notifier = service.NewMQTTNotifier(mqttClient, cfg.MQTT.Topic, byte(cfg.MQTT.QoS), cfg.HTTP.PublicBaseURL)
		}
	}

	svc := service.NewPatientService(repo, exporter, notifier, cfg.HTTP.PublicBaseURL, log)

	router := httpapi.NewRouter(log)
	router.RegisterPatientRoutes(httpapi.NewPatientHandler(svc, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)
	if err := srv.Run(ctx, 5*time.Second); err != nil {
		log.Error("HTTP server stopped with error", zap.Error(err))
	}
}
