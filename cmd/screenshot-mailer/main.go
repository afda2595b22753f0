package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	applicationPort "github.com/dreschagin/screenshot-mailer/internal/application/port"
	"github.com/dreschagin/screenshot-mailer/internal/application/usecase"
	"github.com/dreschagin/screenshot-mailer/internal/automation"
	"github.com/dreschagin/screenshot-mailer/internal/infrastructure/browser"
	redisCache "github.com/dreschagin/screenshot-mailer/internal/infrastructure/cache/redis"
	"github.com/dreschagin/screenshot-mailer/internal/infrastructure/mail"
	natsInfra "github.com/dreschagin/screenshot-mailer/internal/infrastructure/messaging/nats"
	dynamodbRepo "github.com/dreschagin/screenshot-mailer/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/screenshot-mailer/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/screenshot-mailer/internal/infrastructure/storage/s3"
	httpInterface "github.com/dreschagin/screenshot-mailer/internal/interfaces/http"
	"github.com/dreschagin/screenshot-mailer/internal/interfaces/http/handler"
	"github.com/dreschagin/screenshot-mailer/pkg/config"
	"github.com/dreschagin/screenshot-mailer/pkg/logger"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info("Starting Screenshot Mailer")

	ctx := context.Background()

	// Record store: postgres by default, dynamodb as the alternate backend.
	var recordStore applicationPort.RecordStore
	switch cfg.Records.Backend {
	case "postgres":
		db, dbErr := sql.Open("postgres", cfg.Database.DSN())
		if dbErr != nil {
			log.Error("Failed to open database connection", dbErr)
			os.Exit(1)
		}
		defer db.Close()

		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

		if pingErr := db.Ping(); pingErr != nil {
			log.Error("Failed to ping database", pingErr)
			os.Exit(1)
		}

		repo := postgres.NewScreenshotAttemptRepository(db)
		if schemaErr := repo.EnsureSchema(ctx); schemaErr != nil {
			log.Error("Failed to ensure database schema", schemaErr)
			os.Exit(1)
		}
		recordStore = repo
		log.Info("Record store initialized", "backend", "postgres")

	case "dynamodb":
		repo, repoErr := dynamodbRepo.NewScreenshotAttemptRepository(ctx, dynamodbRepo.Config{
			TableName:       cfg.Records.DynamoTable,
			Region:          cfg.Records.DynamoRegion,
			Endpoint:        cfg.Records.DynamoEndpoint,
			AccessKeyID:     cfg.Records.AccessKeyID,
			SecretAccessKey: cfg.Records.SecretKey,
		})
		if repoErr != nil {
			log.Error("Failed to initialize dynamodb record store", repoErr)
			os.Exit(1)
		}
		recordStore = repo
		log.Info("Record store initialized", "backend", "dynamodb")
	}

	// Outbound mail, shared by the pipeline and the challenge relay.
	mailer := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	}, log)

	// Browser automation chain: relay -> resolver -> automaton -> capturer.
	challengeRelay := usecase.NewMailChallengeRelay(mailer, usecase.MailChallengeRelayConfig{
		ScreenshotDir: cfg.Automation.ScreenshotDir,
		Recipient:     cfg.Automation.LoginEmail,
	}, log)

	approvalResolver := automation.NewApprovalResolver(challengeRelay, automation.ResolverConfig{
		RootURL:             cfg.Automation.BaseURL,
		Password:            cfg.Automation.LoginPassword,
		TimeoutSeconds:      cfg.Automation.ApprovalTimeoutSeconds,
		PollIntervalSeconds: cfg.Automation.PollIntervalSeconds,
	}, log)

	loginAutomaton := automation.NewLoginAutomaton(
		automation.Credentials{
			Email:    cfg.Automation.LoginEmail,
			Password: cfg.Automation.LoginPassword,
		},
		automation.LoginConfig{
			BaseURL: cfg.Automation.BaseURL,
			Timeout: cfg.Automation.LoginTimeout,
		},
		approvalResolver,
		log,
	)

	capturer := automation.NewCapturer(
		browser.NewProvider(log),
		loginAutomaton,
		automation.CaptureConfig{
			BaseURL: cfg.Automation.BaseURL,
			Session: applicationPort.SessionOptions{
				Headless:     cfg.Automation.Headless,
				WindowWidth:  cfg.Automation.WindowWidth,
				WindowHeight: cfg.Automation.WindowHeight,
				UserAgent:    cfg.Automation.UserAgent,
				ChromeBin:    cfg.Automation.ChromeBin,
			},
		},
		log,
	)

	// Optional infrastructure: the pipeline degrades gracefully without it.
	var archiveStorage applicationPort.ArchiveStorage
	if cfg.Archive.Enabled {
		storageImpl, initErr := s3storage.NewArchiveStorage(ctx, s3storage.Config{
			Bucket:          cfg.Archive.Bucket,
			Region:          cfg.Archive.Region,
			Endpoint:        cfg.Archive.Endpoint,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			UsePathStyle:    cfg.Archive.UsePathStyle,
		})
		if initErr != nil {
			log.Error("Failed to initialize archive storage", initErr)
			os.Exit(1)
		}
		archiveStorage = storageImpl
		log.Info("Archive storage initialized", "bucket", cfg.Archive.Bucket)
	} else {
		log.Warn("S3 archiving is disabled")
	}

	var eventPublisher applicationPort.EventPublisher
	if cfg.NATS.Enabled {
		publisherImpl, initErr := natsInfra.NewPublisher(cfg.NATS.URL, log)
		if initErr != nil {
			log.Warn("Failed to connect to NATS, continuing without event publishing", "error", initErr.Error())
		} else {
			eventPublisher = publisherImpl
			defer eventPublisher.Close()
		}
	} else {
		log.Warn("NATS event publishing is disabled")
	}

	var listingCache applicationPort.Cache
	if cfg.Redis.Enabled {
		cacheImpl, initErr := redisCache.NewCache(redisCache.Config{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if initErr != nil {
			log.Warn("Failed to connect to Redis, continuing without listing cache", "error", initErr.Error())
		} else {
			listingCache = cacheImpl
			defer cacheImpl.Close()
		}
	} else {
		log.Warn("Redis listing cache is disabled")
	}

	// Use cases.
	captureUC := usecase.NewCaptureProfileScreenshotUseCase(
		capturer,
		mailer,
		recordStore,
		archiveStorage,
		eventPublisher,
		listingCache,
		usecase.CaptureProfileScreenshotConfig{
			ScreenshotDir: cfg.Automation.ScreenshotDir,
			ArchivePrefix: cfg.Archive.KeyPrefix,
		},
		log,
	)
	listUC := usecase.NewListScreenshotAttemptsUseCase(recordStore, listingCache, log)

	// HTTP layer.
	screenshotAPIHandler := handler.NewScreenshotAPIHandler(captureUC, listUC, log)
	router := httpInterface.NewRouter(screenshotAPIHandler, cfg.Security, log)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	log.Info("Server stopped gracefully")
}
