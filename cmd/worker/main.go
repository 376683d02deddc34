package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-billing/internal/config"
	"github.com/noah-isme/backend-billing/internal/invoice"
	"github.com/noah-isme/backend-billing/internal/notify"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/render"
	"github.com/noah-isme/backend-billing/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "billing"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := store.NewPool(ctx, cfg.DatabaseURL, "billing-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	tmpl, err := render.NewHTMLTemplate(cfg.CurrencySymbol, cfg.CompanyLogoURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse invoice template")
	}
	renderer := render.NewChromeRenderer(tmpl, render.ChromeConfig{
		RemoteURL: cfg.ChromeRemoteURL,
		Timeout:   cfg.RenderTimeout,
		NoSandbox: cfg.RenderNoSandbox,
		Logger:    logger,
	})
	defer func() {
		if err := renderer.Close(); err != nil {
			logger.Error().Err(err).Msg("close renderer")
		}
	}()

	var sender notify.EmailSender = notify.NopSender{}
	if cfg.SMTPConfigured() {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
			FromName: envOrDefault("SMTP_FROM_NAME", "Billing"),
		})
	} else {
		logger.Warn().Msg("smtp not configured, invoice emails will be dropped")
	}

	invoices := invoice.NewService(
		invoice.PGRepository{Pool: pool},
		invoice.PGNumberer{Pool: pool},
	)
	handler := notify.TaskHandler{
		Invoices: invoices,
		Renderer: renderer,
		Sender:   sender,
		Currency: cfg.CurrencySymbol,
		Logger:   logger,
	}

	redisConn, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for queue")
	}
	srv := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: envInt("WORKER_CONCURRENCY", 5),
		Queues: map[string]int{
			notify.QueueDefault: 1,
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(notify.TaskTypeInvoiceEmail, handler.HandleInvoiceEmail)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info().Msg("shutting down worker")
		srv.Shutdown()
	}()

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}
