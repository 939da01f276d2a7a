package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/internal/core/services"
	httphandlers "streamgate/internal/handlers/http"
	"streamgate/internal/infrastructure/events"
	"streamgate/internal/infrastructure/monitoring"
	"streamgate/internal/infrastructure/recordings"
	"streamgate/internal/infrastructure/repositories"
	"streamgate/internal/infrastructure/streaming"
	"streamgate/pkg/config"
	"streamgate/pkg/logger"
	"streamgate/pkg/tracing"
)

func main() {
	configPath := os.Getenv("STREAMGATE_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	log.Infow("starting stream gateway",
		"address", cfg.Server.Address,
		"metadata_backend", cfg.Metadata.Backend,
	)

	ctx := context.Background()

	if cfg.Tracing.Enabled {
		tp, err := tracing.Init(tracing.Config{
			Enabled:     true,
			ServiceName: cfg.Tracing.ServiceName,
			JaegerURL:   cfg.Tracing.JaegerURL,
			Environment: cfg.Tracing.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			log.Fatalw("failed to initialize tracing", "error", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	factory, err := repositories.NewFactory(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer factory.Close()

	cameras, err := factory.CreateCameraRepository(ctx)
	if err != nil {
		log.Fatalw("failed to create camera repository", "error", err)
	}

	var metrics ports.MetricsRecorder = ports.NopMetrics{}
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.NewPrometheusCollector()
	}

	var publisher ports.EventPublisher = ports.NopEvents{}
	if cfg.Events.Enabled {
		natsPublisher, err := events.NewNATSPublisher(cfg.Events.NATSURL, log)
		if err != nil {
			log.Fatalw("failed to connect to nats", "error", err)
		}
		publisher = natsPublisher
	}
	defer publisher.Close()

	store, err := recordings.NewMinIOStore(cfg.Recordings)
	if err != nil {
		log.Fatalw("failed to create recording store", "error", err)
	}

	if err := os.MkdirAll(cfg.Playback.OutputDir, 0o755); err != nil {
		log.Fatalw("failed to create playback output dir",
			"dir", cfg.Playback.OutputDir, "error", err)
	}

	engine := streaming.NewFFmpegEngine(log)

	resolver := services.NewStreamResolver(cameras, log,
		func(cameraID domain.CameraID, _ domain.QualityTier) {
			metrics.TierCoerced(cameraID)
		})

	proxy := streaming.NewProxy(resolver, engine, publisher, metrics, log, streaming.ProxyConfig{
		ConnectTimeout:    cfg.Live.ConnectTimeout,
		ReconnectAttempts: cfg.Live.ReconnectAttempts,
		ReconnectDelay:    cfg.Live.ReconnectDelay,
		GracePeriod:       cfg.Live.GracePeriod,
		ViewerBuffer:      cfg.Live.ViewerBuffer,
	})

	broker := services.NewPlaybackBroker(store, engine, publisher, metrics, log, services.PlaybackConfig{
		MaxWindow:     cfg.Playback.MaxWindow,
		ArtifactTTL:   cfg.Playback.ArtifactTTL,
		Workers:       cfg.Playback.Workers,
		QueueSize:     cfg.Playback.QueueSize,
		OutputDir:     cfg.Playback.OutputDir,
		PublicBaseURL: cfg.Server.PublicBaseURL,
		SweepInterval: cfg.Playback.SweepInterval,
	})

	viewers := services.NewViewerService(cameras, broker, log, cfg.Playback.DeleteTimeout)

	health := monitoring.NewHealthChecker()
	health.AddPingCheck("recordings", store, 30*time.Second, 5*time.Second)
	health.AddCameraRepositoryCheck(cameras, 30*time.Second, 5*time.Second)

	router := httphandlers.NewRouter(httphandlers.RouterDeps{
		Cameras:      httphandlers.NewCameraHandler(cameras),
		Live:         httphandlers.NewLiveHandler(proxy, log),
		Sessions:     httphandlers.NewSessionHandler(viewers),
		Playback:     httphandlers.NewPlaybackHandler(broker),
		Health:       health,
		Config:       cfg,
		Logger:       log,
		LiveSessions: proxy.ActiveSessions,
	})

	srv := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout stays at the configured value; zero means no
		// deadline, which live streaming responses require.
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Infow("http server listening", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("http server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http server shutdown failed", "error", err)
	}
	proxy.Shutdown(shutdownCtx)
	broker.Shutdown(shutdownCtx)

	log.Info("stream gateway stopped")
}
