package main

import (
	"flag"
	"strings"

	"github.com/sela-fruits/sela-store/internal/app"
	"github.com/sela-fruits/sela-store/internal/config"
	"github.com/sela-fruits/sela-store/internal/logger"
	"github.com/sela-fruits/sela-store/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "run mode: all (default), api, worker")
	flag.Parse()

	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	for name, secret := range map[string]string{
		"user_jwt.secret":  cfg.UserJWT.SecretKey,
		"staff_jwt.secret": cfg.StaffJWT.SecretKey,
	} {
		if !isWeakSecret(secret) {
			continue
		}
		if cfg.Server.Mode == "release" {
			stdLog.Fatalf("%s is weak or still the default, set a strong random secret", name)
		}
		logger.Warnw("weak_jwt_secret", "key", name)
	}
	if strings.TrimSpace(cfg.Flutterwave.WebhookSecret) == "" {
		logger.Warnw("flutterwave_webhook_secret_missing", "effect", "webhooks will be rejected")
	}

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("database init failed: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("database migrate failed: %v", err)
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config: cfg,
		DB:     models.DB,
		Mode:   mode,
	}); err != nil {
		stdLog.Fatalf("service exited: %v", err)
	}
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	return strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key")
}
