package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/orrn/ticket-spool/internal/api"
	"github.com/orrn/ticket-spool/internal/api/handlers"
	"github.com/orrn/ticket-spool/internal/api/middleware"
	"github.com/orrn/ticket-spool/internal/config"
	"github.com/orrn/ticket-spool/internal/core"
	"github.com/orrn/ticket-spool/internal/db"
	"github.com/orrn/ticket-spool/internal/logger"
	"github.com/orrn/ticket-spool/internal/metrics"
	"github.com/orrn/ticket-spool/internal/webhook"
)

const purgeInterval = 24 * time.Hour

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	envPath := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	if err := run(*configPath, *envPath); err != nil {
		fmt.Fprintf(os.Stderr, "ticket-spool: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envPath string) error {
	if err := config.LoadDotEnv(envPath); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	store, err := db.Open(db.Config{Path: cfg.Database.Path})
	if err != nil {
		return err
	}
	defer store.Close()

	loc := cfg.Location()

	labelLayout := core.PatientLabelLayout()
	if cfg.Label.LayoutFile != "" {
		labelLayout, err = core.LoadLabelLayout(cfg.Label.LayoutFile)
		if err != nil {
			return err
		}
	}

	recorder := metrics.NewRecorder()

	renderer := core.NewRenderer(core.RendererOptions{
		Ticket: core.TicketLayout{
			FacilityName: cfg.Ticket.FacilityName,
			ServiceTitle: cfg.Ticket.ServiceTitle,
			WaitingText:  cfg.Ticket.WaitingText,
			LineWidth:    cfg.Ticket.LineWidth,
		},
		LabelFormat:   core.LabelFormat(cfg.Label.Format),
		LabelLayout:   labelLayout,
		MaxRasterDots: cfg.Label.MaxRasterDots,
		Location:      loc,
		Logger:        log.Named("renderer"),
	})

	dispatcher := core.NewDispatcher(core.DispatcherOptions{
		TempDir: cfg.Printers.TempDir,
		Transmitter: &core.RoutingTransmitter{
			Script: core.NewScriptTransmitter(cfg.Printers.HelperCommand, cfg.Printers.TransmitTimeout),
			TCP:    core.NewTCPTransmitter(cfg.Printers.ConnectionTimeout),
		},
		Observer: recorder,
		Logger:   log.Named("dispatcher"),
	})

	resolver := core.NewResolver(core.ResolverOptions{
		Targets: map[core.JobKind]core.TargetSet{
			core.JobKindTicket: targetSet(cfg.Printers.Ticket),
			core.JobKindAPM:    targetSet(cfg.Printers.APM),
			core.JobKindLabel:  targetSet(cfg.Printers.Label),
		},
		SerializeTargets: cfg.Printers.SerializeTargets,
		Observer:         recorder,
		Logger:           log.Named("resolver"),
	})

	orchOpts := core.OrchestratorOptions{
		Renderer:   renderer,
		Dispatcher: dispatcher,
		Resolver:   resolver,
		Recorder:   store,
		Observer:   recorder,
		Logger:     log.Named("orchestrator"),
	}

	if len(cfg.Webhooks.Targets) > 0 {
		sender := webhook.NewWebhookSender(webhookConfig(cfg.Webhooks), log)
		sender.Start()
		defer sender.Stop()
		orchOpts.Events = sender
	}

	orch := core.NewOrchestrator(orchOpts)

	auth := middleware.NewAuthMiddleware(cfg.Auth.TokenSecret, cfg.Auth.Issuer).
		WithKioskKey(cfg.Auth.KioskKeyHash, cfg.Auth.TokenTTL)

	gin.SetMode(gin.ReleaseMode)
	routerOpts := api.RouterOptions{
		Logger:   log.Named("http"),
		Auth:     auth,
		Print:    handlers.NewPrintHandler(orch, loc),
		Jobs:     handlers.NewJobHandler(store),
		Printers: handlers.NewPrinterHandler(orch, core.NewStatusProber(cfg.Printers.ConnectionTimeout)),
		Labels:   handlers.NewLabelHandler(renderer, loc),
		Health:   handlers.NewHealthHandler(store),
	}
	if cfg.Server.MetricsEnabled {
		routerOpts.Metrics = recorder.Handler()
	}
	engine := api.NewRouter(routerOpts)

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.Handler(engine, api.HandlerOptions{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RateLimit:      cfg.Server.RateLimit,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.RetentionDays > 0 {
		go purgeLoop(ctx, store, cfg.Database.RetentionDays, log.Named("retention"))
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("label_format", cfg.Label.Format),
			zap.Bool("auth", cfg.Auth.TokenSecret != ""),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}

func targetSet(t config.TargetConfig) core.TargetSet {
	return core.TargetSet{Shares: t.Shares, Network: t.Network}
}

func webhookConfig(c config.WebhooksConfig) webhook.WebhookConfig {
	endpoints := make([]webhook.Endpoint, 0, len(c.Targets))
	for _, t := range c.Targets {
		endpoints = append(endpoints, webhook.Endpoint{URL: t.URL, Secret: t.Secret, Events: t.Events})
	}
	return webhook.WebhookConfig{
		Endpoints:   endpoints,
		RetryCount:  c.RetryCount,
		RetryDelay:  c.RetryDelay,
		Timeout:     c.Timeout,
		WorkerCount: c.WorkerCount,
		QueueSize:   c.QueueSize,
	}
}

func purgeLoop(ctx context.Context, store *db.Store, days int, log *zap.Logger) {
	purge := func() {
		cutoff := time.Now().AddDate(0, 0, -days)
		n, err := store.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			log.Warn("failed to purge job history", zap.Error(err))
			return
		}
		if n > 0 {
			log.Info("purged job history", zap.Int64("jobs", n), zap.Time("cutoff", cutoff))
		}
	}

	purge()
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purge()
		}
	}
}
