package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"thermoguard/internal/api"
	"thermoguard/internal/bus"
	"thermoguard/internal/config"
	"thermoguard/internal/metrics"
	"thermoguard/internal/notify"
	"thermoguard/internal/sensor"
	"thermoguard/internal/storage"
	"thermoguard/internal/zone"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.FromEnv()
	ctx := context.Background()

	m := metrics.New(prometheus.DefaultRegisterer)

	sensors := sensor.NewRegistry(sensor.DefaultLimits(), logger)
	zones := zone.NewManager(zone.Config{
		AutoShutdown:        cfg.AutoShutdown,
		ShutdownDelay:       cfg.ShutdownDelay,
		Cooldown:            cfg.Cooldown,
		Hysteresis:          cfg.Hysteresis,
		MaxShutdownsPerHour: cfg.MaxShutdownsPerHour,
		StepTimeoutCap:      cfg.StepTimeoutCap,
		HistoryCap:          cfg.HistoryCap,
	}, zone.SimActuator{}, m, logger)

	plant, err := config.LoadPlant(cfg.PlantPath)
	if err != nil {
		logger.Error("failed to load plant config", slog.String("path", cfg.PlantPath), slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := plant.Apply(sensors, zones); err != nil {
		logger.Error("failed to apply plant config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("plant configured", slog.Int("zones", len(plant.Zones)), slog.Int("sensors", len(plant.Sensors)))

	if cfg.AlertLogging {
		zones.SubscribeAlerts(func(a notify.Alert) {
			logger.Warn("zone alert", slog.String("zone", a.ZoneID),
				slog.String("kind", a.Kind), slog.String("severity", a.Severity),
				slog.String("message", a.Message))
		})
	}

	var repo *storage.Repository
	if cfg.DatabaseURL != "" {
		store, err := storage.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to db", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer store.Close()
		if err := storage.Migrate(ctx, store); err != nil {
			logger.Error("failed to migrate db", slog.String("error", err.Error()))
			os.Exit(1)
		}
		repo = storage.NewRepository(store)
		for _, zd := range plant.Zones {
			ts, err := repo.LastShutdownAt(ctx, zd.ID)
			if err != nil {
				continue
			}
			if err := zones.RestoreLastShutdown(zd.ID, ts); err == nil {
				logger.Info("restored last shutdown", slog.String("zone", zd.ID),
					slog.Time("at", ts))
			}
		}
		zones.SubscribeShutdownEvents(func(e zone.Event) {
			recCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repo.RecordShutdownEvent(recCtx, e); err != nil {
				logger.Error("failed to persist shutdown event", slog.String("event", e.ID), slog.String("error", err.Error()))
			}
		})
		zones.SubscribeAlerts(func(a notify.Alert) {
			recCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repo.RecordAlert(recCtx, a); err != nil {
				logger.Error("failed to persist alert", slog.String("error", err.Error()))
			}
		})
	}

	if cfg.NATSURL != "" {
		b, err := bus.Connect(cfg.NATSURL)
		if err != nil {
			logger.Error("failed to connect to nats", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer b.Close()
		zones.SubscribeAlerts(func(a notify.Alert) {
			if err := b.PublishAlert(a); err != nil {
				logger.Error("failed to publish alert", slog.String("error", err.Error()))
			}
		})
		zones.SubscribeShutdownEvents(func(e zone.Event) {
			if err := b.PublishShutdownEvent(e); err != nil {
				logger.Error("failed to publish shutdown event", slog.String("error", err.Error()))
			}
		})
		if _, err := b.SubscribeReadings(func(msg bus.ReadingMessage) {
			_, err := sensors.SubmitReading(msg.SensorID, sensor.RawSample{
				Current:       msg.Current,
				Voltage:       msg.Voltage,
				Temperature:   msg.Temperature,
				Resistance:    msg.Resistance,
				SignalQuality: msg.SignalQuality,
				Timestamp:     msg.Timestamp,
			})
			if err != nil {
				m.IncReadingsRejected()
				logger.Warn("reading rejected", slog.String("sensor", msg.SensorID), slog.String("error", err.Error()))
				return
			}
			m.IncReadingsProcessed()
		}); err != nil {
			logger.Error("failed to subscribe readings", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if _, err := b.SubscribeZoneStatus(func(msg bus.ZoneStatusMessage) {
			if err := zones.UpdateStatus(msg.ZoneID, msg.Temperature, msg.Power); err != nil {
				logger.Warn("zone status rejected", slog.String("zone", msg.ZoneID), slog.String("error", err.Error()))
			}
		}); err != nil {
			logger.Error("failed to subscribe zone status", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("connected to nats", slog.String("url", cfg.NATSURL))
	}

	// Periodic status report; also refreshes the zone gauges.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			logger.Info("platform status", slog.String("stats", zones.Statistics().String()))
		}
	}()

	handler := &api.Handler{Sensors: sensors, Zones: zones, Metrics: m, Logger: logger}
	if repo != nil {
		handler.History = repo
	}
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.Handler())
	router.Mount("/", handler.Routes())

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http server listening", slog.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	logger.Info("shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(stopCtx)
	zones.Close()
}
