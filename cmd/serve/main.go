// Package classification Gatherly.
//
// Event listings with capacity controlled RSVPs
//
// Terms Of Service:
//
// there are no TOS at this moment, use at your own risk we take no responsibility
//
//    Version: 0.1.0
//    License: TODO
//    Contact: <info@gatherly.io> https://github.com/gatherly/gatherly
//
//    Consumes:
//      - application/json
//
//    Produces:
//      - application/json
//
//    SecurityDefinitions:
//      basicAuth:
//        type: basic
//      oauth2:
//        type: oauth2
//        tokenUrl: /tokens
//        refreshUrl: /refresh
//        flow: password
// swagger:meta
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gatherly/gatherly/internal/handler"
	"github.com/gatherly/gatherly/internal/log"
	"github.com/gatherly/gatherly/internal/middleware"
	"github.com/gatherly/gatherly/internal/server"
	"github.com/gatherly/gatherly/internal/tracing"
	"github.com/gatherly/gatherly/pkg/config"
	"github.com/gatherly/gatherly/pkg/event"
	"github.com/gatherly/gatherly/pkg/notification"
	"github.com/gatherly/gatherly/pkg/rsvp"
	"github.com/gatherly/gatherly/pkg/storage"
	"github.com/gatherly/gatherly/pkg/stream"
	"github.com/gatherly/gatherly/pkg/token"
	"github.com/gatherly/gatherly/pkg/user"
	"github.com/go-mail/mail"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(log.New(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Exiting", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	shutdownTracing, err := tracing.Setup("gatherly", cfg.Jaeger.CollectorUrl)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error("Failed to shutdown tracing", "error", err)
		}
	}()

	db, err := storage.NewDatabase(logger, cfg.Postgresql)
	if err != nil {
		return err
	}

	redisClient, err := storage.NewRedis(cfg.Redis.Host, cfg.Redis.Port)
	if err != nil {
		return err
	}

	tokenRepository := token.NewRepository(redisClient)
	tokenService := token.NewService(
		logger,
		tokenRepository,
		cfg.Authentication.Keys.PrivateKey,
		cfg.Authentication.AccessTokenExpirationSeconds,
		cfg.Authentication.RefreshTokenSecretKey,
		cfg.Authentication.RefreshTokenExpirationSeconds,
		cfg.Authentication.RefreshTokenRememberMeExpirationSeconds,
	)

	dialer := mail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)

	userRepository := user.NewRepository(db)
	userService := user.NewService(cfg.UIURL, userRepository, dialer)
	userHandler := user.NewHandler(cfg, userService, tokenService)

	authentication := middleware.NewAuthentication(cfg.Authentication.Keys.PublicKey, userService)

	eventRepository := event.NewRepository(db)
	eventService := event.NewService(eventRepository)
	eventHandler := event.NewHandler(eventService)

	notificationClient, err := notification.NewClient(logger, cfg.RabbitMq.GetUrl())
	if err != nil {
		return err
	}
	defer func() {
		if err := notificationClient.Close(); err != nil {
			logger.Error("Failed to close RabbitMQ client", "error", err)
		}
	}()

	emailConsumer := notification.NewEmailConsumer(notificationClient, dialer)
	if err := emailConsumer.Consume(); err != nil {
		return err
	}

	broker := stream.NewBroker()
	streamHandler := stream.NewHandler(broker)

	rsvpRepository := rsvp.NewRepository(db)
	rsvpService := rsvp.NewService(logger, rsvpRepository, notificationClient, broker)
	rsvpHandler := rsvp.NewHandler(rsvpService)

	if err := handler.RegisterValidation(); err != nil {
		return err
	}

	engine, router := server.GetEngine(logger, cfg.BasePath)
	user.Routes(router, authentication, userHandler)
	event.Routes(router, authentication, eventHandler)
	rsvp.Routes(router, authentication, rsvpHandler)
	stream.Routes(router, streamHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: engine.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("Listening", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
