package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/apexremodeling/lead-service/internal/api/router"
	appconfig "github.com/apexremodeling/lead-service/internal/config"
	"github.com/apexremodeling/lead-service/internal/leads"
	"github.com/apexremodeling/lead-service/internal/notify"
	"github.com/apexremodeling/lead-service/internal/observability/metrics"
	"github.com/apexremodeling/lead-service/internal/ratelimit"
	"github.com/apexremodeling/lead-service/pkg/logging"
)

func main() {
	// .env is optional; environment variables win.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting lead-service API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"email_provider", cfg.EmailProvider,
	)

	ctx := context.Background()

	limiter := buildLimiter(ctx, cfg, logger)
	sender := buildSender(ctx, cfg, logger)
	notifier := notify.NewLeadNotifier(sender, cfg.LeadRecipient, logger)
	leadMetrics := metrics.NewLeadMetrics(nil)

	leadsHandler := leads.NewHandler(limiter, notifier, leadMetrics, logger, leads.HandlerOptions{
		RestrictToServiceArea: cfg.ZipAllowlist == "oc",
		MaxMessageLength:      cfg.MaxMessageLength,
		FallbackPhone:         cfg.FallbackPhone,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		LeadsHandler:       leadsHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildLimiter prefers the shared Redis counter when Redis is
// configured and reachable, falling back to the process-local map.
func buildLimiter(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) ratelimit.Limiter {
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not available, using in-memory rate limiter", "error", err)
		} else {
			logger.Info("rate limiting via redis", "addr", cfg.RedisAddr, "max", cfg.RateLimitMax, "window", cfg.RateLimitWindow)
			return ratelimit.NewRedisLimiter(client, cfg.RateLimitMax, cfg.RateLimitWindow)
		}
	}
	logger.Info("rate limiting in process memory", "max", cfg.RateLimitMax, "window", cfg.RateLimitWindow)
	return ratelimit.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
}

// buildSender picks the configured email provider, falling back to the
// stub so development never needs relay credentials.
func buildSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "smtp":
		sender := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
		}, logger)
		if sender == nil {
			logger.Warn("smtp credentials missing, using stub email sender")
			return notify.NewStubEmailSender(logger)
		}
		verifyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := sender.Verify(verifyCtx); err != nil {
			// Surface credential problems at startup instead of on the
			// first lead.
			logger.Error("smtp relay verification failed", "error", err, "host", cfg.SMTPHost)
		} else {
			logger.Info("smtp relay verified", "host", cfg.SMTPHost)
		}
		return sender
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			logger.Warn("sendgrid API key missing, using stub email sender")
			return notify.NewStubEmailSender(logger)
		}
		return sender
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.AWSRegion),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
			),
		)
		if err != nil {
			logger.Error("failed to load AWS config, using stub email sender", "error", err)
			return notify.NewStubEmailSender(logger)
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender == nil {
			return notify.NewStubEmailSender(logger)
		}
		return sender
	default:
		logger.Info("email dispatch disabled, using stub sender", "provider", cfg.EmailProvider)
		return notify.NewStubEmailSender(logger)
	}
}
