package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"raffle/internal/auth"
	"raffle/internal/config"
	"raffle/internal/handlers"
	"raffle/internal/notify"
	"raffle/internal/services"
	"raffle/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

func main() {
	// 1. Load configuration and start logging
	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Fatalf("Failed to load .env: %v", err)
	}
	cfg := config.Load()
	var logFile io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			logger.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logFile = f
	}
	defer logger.Init("raffle", cfg.Verbose, false, logFile).Close()
	gin.SetMode(cfg.GinMode)

	// 2. Open the database and bring the schema up to date
	conn, err := store.Open(cfg)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	if err := store.Migrate(conn); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	st := store.New(conn)

	// 3. Initialize admin authentication and the bootstrap admin
	authenticator, err := auth.NewAuthenticator(st, cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	if err != nil {
		logger.Fatalf("Failed to initialize auth: %v", err)
	}
	if err := authenticator.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Fatalf("Failed to create admin %q: %v", cfg.AdminUsername, err)
	}

	// 4. Initialize the Raffle Service with winner notifications
	raffleService := services.NewRaffleService(st, newNotifier(cfg))

	// 5. Initialize the HTTP Handler and router
	httpHandler := handlers.NewHTTPHandler(raffleService, authenticator)
	r := handlers.NewRouter(httpHandler, cfg.CORSOrigins)

	// 6. Run the server until interrupted
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Server starting on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to run server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}

// newNotifier builds the SMS and email senders that have credentials configured.
func newNotifier(cfg config.Config) notify.Notifier {
	timeout := time.Duration(cfg.NotifyTimeoutSeconds) * time.Second

	var sms, email notify.Sender
	clearstream, err := notify.NewClearstreamClient(notify.ClearstreamConfig{
		APIKey:  cfg.ClearstreamAPIKey,
		BaseURL: cfg.ClearstreamBaseURL,
		Timeout: timeout,
	})
	if err != nil {
		logger.Warningf("SMS notifications disabled: %v", err)
	} else {
		sms = clearstream
	}

	sendgrid, err := notify.NewSendGridClient(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		BaseURL:   cfg.SendGridBaseURL,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
		Timeout:   timeout,
	})
	if err != nil {
		logger.Warningf("email notifications disabled: %v", err)
	} else {
		email = sendgrid
	}

	return notify.NewDispatcher(sms, email, cfg.RaffleName, cfg.ClaimInstructions)
}
