package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"camgate-go/internal/camera"
	"camgate-go/internal/config"
	"camgate-go/internal/constants"
	"camgate-go/internal/discovery"
	"camgate-go/internal/events"
	"camgate-go/internal/logging"
	"camgate-go/internal/monitor"
	"camgate-go/internal/monitoring"
	tracing "camgate-go/internal/monitoring/tracing"
	"camgate-go/internal/provider"
	"camgate-go/internal/runtime"
	srv "camgate-go/internal/server"
	"camgate-go/internal/streaming"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (YAML or JSON)")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	if *debug {
		_ = os.Setenv("CAMGATE_DEBUG", "1")
	}

	cm, err := config.NewConfigManager(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	defer cm.Close()
	cfg := cm.GetConfig()

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := logging.Setup(cfg.LoggingOptions()); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	traceShutdown, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		log.WithError(err).Warn("failed to initialize tracing")
	}
	defer func() {
		if err := traceShutdown(context.Background()); err != nil {
			log.WithError(err).Warn("failed to shutdown tracing")
		}
	}()

	log.WithFields(log.Fields{"version": constants.GetFullVersion(), "config": cm.Path()}).Info("starting camgate")

	eventHub := events.NewHub()
	cm.SetEventPublisher(eventHub)
	if cfg.Security.Debug {
		eventHub.Subscribe(events.TopicAll, func(_ context.Context, evt events.Event) {
			log.WithField("topic", evt.Topic).Tracef("event: %v", evt.Payload)
		})
	}

	stats := monitoring.NewStats()
	backend := openStorage(ctx, cfg.Storage, stats)
	if backend == nil {
		log.Fatal("no usable storage backend")
	}
	defer func() { _ = backend.Close() }()

	secrets, err := cfg.Credentials.OpenStore(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to open credential store")
	}
	if closer, ok := secrets.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	factory := provider.NewFactory(secrets, provider.OptionsFromConfig(cfg))
	cameras := camera.NewManager(backend, secrets, factory, camera.WithEvents(eventHub), camera.WithStats(stats))
	if err := cameras.LoadConfigs(ctx); err != nil {
		log.WithError(err).Warn("failed to load camera configurations")
	}

	tasks := runtime.NewTaskManager(ctx)
	mon := monitor.New(tasks)
	hub := discovery.NewHub(nil, discovery.Options{
		Domain:  cfg.Discovery.Domain,
		Timeout: cfg.DiscoveryTimeout(),
		Events:  eventHub,
	})
	frames := streaming.NewFrameHub(streaming.FrameHubOptions{CheckOrigin: originChecker(cfg.Server.CORSOrigins)})
	frames.Start()

	onFrame := frameFanout(frames, eventHub)
	if cfg.Monitor.AutoStart {
		mon.Start(cfg.MonitorInterval(), cameras, onFrame)
	}
	cm.OnChange(monitorReloader(mon, cameras, onFrame))

	engine := srv.BuildEngine(srv.Dependencies{
		Config:    cm.GetConfig,
		Storage:   backend,
		Cameras:   cameras,
		Monitor:   mon,
		Discovery: hub,
		Frames:    frames,
		Tasks:     tasks,
	})

	httpSrv := &http.Server{
		Addr:              listenAddr(cfg),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", httpSrv.Addr).Info("camera gateway listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if !mon.StopWait(constants.ServerShutdownTimeout) {
		log.Warn("monitor did not stop in time")
	}
	hub.Stop()
	frames.Stop()
	tasks.StopAll()
	if !tasks.WaitTimeout(constants.ServerShutdownTimeout) {
		log.WithField("tasks", tasks.GetStats()).Warn("background tasks did not stop in time")
	}
	log.Info("camera gateway stopped")
}
