package main

import (
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"danji/server/config"
	"danji/server/internal/api"
	"danji/server/internal/crawler"
	"danji/server/internal/database"
	"danji/server/internal/export"
	"danji/server/internal/naverland"
	"danji/server/internal/notify"
	"danji/server/internal/processor"
	"danji/server/internal/queue"
	"danji/server/internal/regions"
	"danji/server/internal/scheduler"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logger.Infof("Using database at: %s", cfg.DBPath)
	db, err := database.NewDatabase(cfg.DBPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	client := naverland.NewClient(cfg, logger)
	resolver := regions.NewResolver(client, logger)
	crawl := crawler.New(resolver, client, cfg, logger)

	// Finished scopes land in CSV files and in the record store
	csvWriter, err := export.NewWriter(cfg.Export.Dir, cfg.Export.Encoding, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize CSV export")
	}
	crawl.AddSink(csvWriter)

	recordQueue := queue.NewRecordQueue(cfg.Batch.QueueSize, logger)
	crawl.AddSink(recordQueue)

	batchProcessor := processor.NewBatchProcessor(db.Writer(), recordQueue, cfg, logger)
	batchProcessor.Start()
	recordQueue.Start()
	defer func() {
		recordQueue.Close()
		batchProcessor.Stop()
	}()

	notifier := notify.NewService(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)

	refresh := scheduler.NewScheduler(crawl, notifier, logger, cfg.Crawl.RefreshScopes)
	if err := refresh.Start(cfg.Crawl.RefreshCron); err != nil {
		logger.WithError(err).Fatal("Failed to start refresh scheduler")
	}
	defer refresh.Stop()

	handler := api.NewHandler(db, crawl, notifier, logger)

	router := gin.Default()
	router.Use(cors.Default())
	api.SetupRoutes(router, handler)

	logger.Infof("Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
