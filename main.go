package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"corplandlords/wireboard/internal/api"
	"corplandlords/wireboard/internal/cache"
	"corplandlords/wireboard/internal/config"
	"corplandlords/wireboard/internal/db"
	"corplandlords/wireboard/internal/email"
	"corplandlords/wireboard/internal/logging"
	"corplandlords/wireboard/internal/services"
	"corplandlords/wireboard/internal/tasks"
	"github.com/hibiken/asynq"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	switch cfg.RunMode {
	case "api", "bg", "all":
	default:
		fatal("invalid run mode", "mode", cfg.RunMode)
	}

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		fatal("failed to connect to database", "error", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			slog.Error("error disconnecting from MongoDB", "error", err)
		}
	}()

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.EnsureWireIndexes(indexCtx, mongoDb.Collection(cfg.CollectionName(config.WiresCollection)))
	cancelIndex()
	if err != nil {
		fatal("failed to ensure wire indexes", "error", err)
	}

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		fatal("failed to connect to Redis", "error", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			slog.Error("error disconnecting from Redis", "error", err)
		}
	}()

	// Email: Redis mock or SMTP, plus an optional file log.
	var primaryEmailSender email.Sender
	if cfg.MockServices {
		slog.Info("MOCK_SERVICES enabled: using Redis email sender")
		primaryEmailSender = email.NewRedisSender(redisClient, cfg)
	} else {
		primaryEmailSender = email.NewSMTPSender(cfg)
	}
	compositeSender := email.NewCompositeEmailSender(primaryEmailSender)
	if cfg.MailLogFile != "" {
		fileSender, err := email.NewFileEmailSender(cfg.MailLogFile)
		if err != nil {
			slog.Warn("file email logger disabled", "path", cfg.MailLogFile, "error", err)
		} else {
			compositeSender.AddSender(fileSender)
			slog.Info("file email logger enabled", "path", cfg.MailLogFile)
		}
	}

	wireCache := cache.NewRedisWireCache(redisClient, cfg.CollectionName(""), cfg.GetCacheTTL)
	wireService := services.NewWireService(mongoDb, cfg, wireCache)
	mailService := services.NewMailService(mongoDb, cfg)

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	wizardService := services.NewWizardService(wireService, tasks.NewSubmissionNotifier(taskClient), cfg)
	taskProcessor := tasks.NewTaskProcessor(cfg, compositeSender, wireService, mailService)

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// Service API always runs.
	mockMail := redisClient
	if !cfg.MockServices {
		mockMail = nil
	}
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(cfg, mockMail, wireService, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("service API listening", "port", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("service API ListenAndServe error", "error", err)
		}
	}()

	var mainApiSrv *http.Server
	var taskSrv *asynq.Server

	slog.Info("starting application", "mode", cfg.RunMode, "env", cfg.Env)

	if cfg.RunMode == "api" || cfg.RunMode == "all" {
		mainApiSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           api.SetupRouter(appCtx, cfg, wireService, wizardService),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return appCtx },
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("main API listening", "port", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fatal("main API ListenAndServe error", "error", err)
			}
		}()
	}

	if cfg.RunMode == "bg" || cfg.RunMode == "all" {
		srv, mux := tasks.SetupServer(redisClient, taskProcessor)
		taskSrv = srv
		if err := taskSrv.Start(mux); err != nil {
			fatal("background task server error", "error", err)
		}
		slog.Info("background task server started")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received signal, shutting down", "signal", sig.String())
	case <-shutdownChan:
		slog.Info("shutdown requested via service API")
	}

	// Ends open SSE streams and their subscriptions before the servers stop.
	cancelApp()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		slog.Error("service API shutdown error", "error", err)
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			slog.Error("main API shutdown error", "error", err)
		}
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}

	wg.Wait()
	slog.Info("server gracefully stopped")
}
