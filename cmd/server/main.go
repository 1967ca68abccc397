package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/kottzoltan/aivio/cmd/bootstrap"
	"github.com/kottzoltan/aivio/pkg/config"
	"github.com/kottzoltan/aivio/pkg/crm"
	"github.com/kottzoltan/aivio/pkg/dialog"
	"github.com/kottzoltan/aivio/pkg/llm"
	"github.com/kottzoltan/aivio/pkg/logger"
	"github.com/kottzoltan/aivio/pkg/persona"
	"github.com/kottzoltan/aivio/pkg/server"
	"github.com/kottzoltan/aivio/pkg/session"
	"github.com/kottzoltan/aivio/pkg/stt"
	"github.com/kottzoltan/aivio/pkg/tts"
	"github.com/kottzoltan/aivio/pkg/utils"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

func main() {
	// 1. Parse Command Line Parameters
	mode := flag.String("mode", "", "running environment (development, test, production)")
	init := flag.Bool("init", false, "initialize database")
	initSQL := flag.String("init-sql", "", "path to database init .sql script (optional)")
	flag.Parse()

	// 2. Set Environment Variables
	if *mode != "" {
		os.Setenv("APP_ENV", *mode)
	}

	// 3. Load Global Configuration
	if err := config.Load(); err != nil {
		panic("config load failed: " + err.Error())
	}
	if err := config.GlobalConfig.Validate(); err != nil {
		panic("config invalid: " + err.Error())
	}

	// 4. Load Log Configuration
	if err := logger.Init(&config.GlobalConfig.Log, config.GlobalConfig.Server.Mode); err != nil {
		panic(err)
	}
	defer logger.Sync()

	// 5. Print Banner
	if err := bootstrap.PrintBannerFromFile("banner.txt"); err != nil {
		log.Fatalf("unload banner: %v", err)
	}

	// 6. Load Data Source
	db, err := bootstrap.SetupDatabase(os.Stdout, &bootstrap.Options{
		InitSQLPath: *initSQL, // Can be specified via --init-sql
		AutoMigrate: *init,    // Whether to migrate entities
		SeedNonProd: *init,    // Non-production default configuration
	})
	if err != nil {
		logger.Error("database setup failed", zap.Error(err))
		return
	}

	logger.Info("checked config -- addr: ", zap.String("addr", config.GlobalConfig.Server.Addr))
	logger.Info("checked config -- db-driver: ",
		zap.String("db-driver", config.GlobalConfig.Database.Driver),
		zap.String("dsn", config.GlobalConfig.Database.DSN))
	logger.Info("checked config -- mode: ", zap.String("mode", config.GlobalConfig.Server.Mode))

	// 7. Initialize Global Cache
	utils.InitGlobalCache(1024, 5*time.Minute)

	// 8. Build Registries
	fileStore := persona.NewFileStore(config.GlobalConfig.Storage.OverrideFile)
	var overrideStore persona.Store = fileStore
	if config.GlobalConfig.Storage.OverrideBackend == "db" {
		overrideStore = persona.NewDBStore(db, fileStore)
	}
	personas := persona.NewRegistry(overrideStore)
	sessions := session.NewRegistry()

	// 9. Build Collaborator Clients
	llmLogger := logrus.New()
	llmLogger.SetFormatter(&logrus.JSONFormatter{})
	generator := llm.NewClient(llm.DefaultConfig(), llmLogger)

	synthesizer, err := tts.NewFromConfig(&config.GlobalConfig.Services.TTS)
	if err != nil {
		logger.Error("tts setup failed", zap.Error(err))
		return
	}
	transcriber, err := stt.NewFromConfig(&config.GlobalConfig.Services.STT)
	if err != nil {
		logger.Error("stt setup failed", zap.Error(err))
		return
	}

	crmClient := crm.NewClient(&crm.Config{
		BaseURL: config.GlobalConfig.Services.CRM.BaseURL,
		APIKey:  config.GlobalConfig.Services.CRM.APIKey,
		Timeout: config.GlobalConfig.Services.CRM.Timeout,
	}, db)

	orchestrator := dialog.NewOrchestrator(personas, sessions, generator, crmClient, db,
		config.GlobalConfig.Session.HistoryWindow)

	// 10. Start Session Sweeper
	go func() {
		interval := config.GlobalConfig.Session.SweepInterval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if removed := sessions.Sweep(config.GlobalConfig.Session.MaxAge); removed > 0 {
				logger.Info("swept idle call sessions", zap.Int("removed", removed))
			}
		}
	}()

	// 11. Serve
	srv := server.NewServer(config.GlobalConfig, personas, sessions, orchestrator, synthesizer, transcriber)
	if err := srv.Run(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
