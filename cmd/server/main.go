package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"branchPicker/internal/config"
	"branchPicker/internal/modules/picker/application/handler"
	"branchPicker/internal/modules/picker/application/usecase"
	"branchPicker/internal/modules/picker/domain"
	"branchPicker/internal/modules/picker/infrastructure"
	transport "branchPicker/internal/modules/picker/interface"
	"branchPicker/internal/platform/broker"
	"branchPicker/internal/shared/auth"
	"branchPicker/internal/shared/logging"
)

func main() {
	// .env is optional; local runs use it to override the environment.
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logFile, _, logger, err := logging.Setup(cfg.Logging.Directory, logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(logger)
	slog.Info("logging initialized", slog.String("directory", cfg.Logging.Directory), slog.String("level", cfg.Logging.Level), slog.String("format", cfg.Logging.Format))

	endpoints, err := infrastructure.LoadEndpointMap(cfg.Delivery.HostFamily, cfg.Delivery.EndpointsFile)
	if err != nil {
		slog.Error("endpoint map load failed", slog.String("file", cfg.Delivery.EndpointsFile), slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("delivery endpoints resolved", slog.String("family", endpoints.Family), slog.Any("regions", endpoints.Regions()), slog.Duration("timeout", cfg.Delivery.Timeout))
	if endpoints.Family == infrastructure.FamilyManagement {
		slog.Warn("delivery endpoints use the management api host family; delivery tokens may be rejected")
	}
	slog.Info("kafka config resolved", slog.Any("brokers", cfg.Kafka.Brokers), slog.String("group", cfg.Kafka.GroupID), slog.Any("topics", cfg.Kafka.Topics))

	var validator auth.TokenValidator = &auth.AnonymousValidator{}
	if cfg.AuthEnabled() {
		jwtValidator, err := auth.NewJWTValidator(cfg.Security.JWTSecret, cfg.Security.JWTPublicKey)
		if err != nil {
			slog.Error("jwt validator setup failed", slog.Any("error", err))
			os.Exit(1)
		}
		validator = jwtValidator
	} else {
		slog.Warn("auth disabled: JWT_SECRET and JWT_PUBLIC_KEY are empty, every caller gets an anonymous session")
	}

	hub := infrastructure.NewHub()
	registry := infrastructure.NewHandlerRegistry()

	// Use cases
	fetcher := infrastructure.NewDeliveryHTTPClient(endpoints, cfg.Delivery.Timeout, nil)
	loadUC := usecase.NewLoadEntriesUseCase(fetcher)
	selectUC := usecase.NewSelectEntryUseCase()
	broadcastUC := usecase.NewBroadcastUseCase(hub)

	for _, topic := range cfg.Kafka.Topics {
		registry.Register(handler.NewContentChangedHandler(topic, cfg.Kafka.Events, broadcastUC))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker.StartKafkaConsumers(ctx, registry, cfg.Kafka.Brokers, cfg.Kafka.GroupID)

	deps := transport.Dependencies{
		Loader:    loadUC,
		Selector:  selectUC,
		Validator: validator,
		Defaults: domain.Defaults{
			APIKey:        cfg.Delivery.APIKey,
			DeliveryToken: cfg.Delivery.DeliveryToken,
			Environment:   cfg.Delivery.Environment,
			Region:        cfg.Delivery.Region,
		},
		InitTimeout: cfg.Widget.InitTimeout,
		SendBuffer:  cfg.Widget.SendBuffer,
	}

	renderer, err := transport.NewTemplateRenderer()
	if err != nil {
		slog.Error("template parse failed", slog.Any("error", err))
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetOutput(log.Writer())
	e.Renderer = renderer

	e.GET("/healthz", transport.NewHealthHandler())
	e.POST("/api/v1/entries/render", transport.NewRenderHTTPHandler(deps))
	e.POST("/api/v1/entries/select", transport.NewSelectHTTPHandler(deps))
	e.GET("/widget", transport.NewWidgetPageHandler(deps, "/ws/widget"))
	e.GET("/ws/widget", transport.NewBridgeWebsocketHandler(hub, deps))

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil {
			slog.Error("http server stopped", slog.Any("error", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", slog.Any("error", err))
	}
}
