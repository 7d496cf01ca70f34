package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"WardMonitorAPI/internal/alerting"
	"WardMonitorAPI/internal/cache"
	"WardMonitorAPI/internal/config"
	"WardMonitorAPI/internal/database"
	"WardMonitorAPI/internal/directory"
	"WardMonitorAPI/internal/handler"
	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/mqtt"
	"WardMonitorAPI/internal/notify"
	"WardMonitorAPI/internal/report"
	"WardMonitorAPI/internal/repository"
	"WardMonitorAPI/internal/server"
	"WardMonitorAPI/internal/service"
	"WardMonitorAPI/internal/vitals"
	"WardMonitorAPI/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// 2. Logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		LogFilePath: cfg.Logging.FilePath,
		UseColors:   cfg.Logging.UseColors,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: %v", err)
	}

	cfg.Print()
	log.Info("Starting Ward Monitor API Server")

	// 3. Database
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Info("Database connected successfully")

	// 4. Redis snapshot cache. Optional: the pipeline serves from
	// Postgres when the cache is down.
	vitalsCache, err := cache.New(cfg.Redis, log.WithPrefix("cache"))
	if err != nil {
		log.Warn("Redis unavailable, running without snapshot cache: %v", err)
		vitalsCache = nil
	} else {
		defer vitalsCache.Close()
	}

	// 5. Repositories
	subjectRepo := repository.NewSubjectRepository(db.DB)
	readingRepo := repository.NewReadingRepository(db.DB)
	alertRepo := repository.NewAlertRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)

	// 6. Alert evaluation
	ranges, err := vitals.LoadRanges()
	if err != nil {
		log.Fatal("Invalid vital range configuration: %v", err)
	}
	evaluator := vitals.NewEvaluator(ranges, log.WithPrefix("vitals"))

	// 7. Real-time hub
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()

	hub := websocket.NewHub(log.WithPrefix("ws"))
	go hub.Run(hubCtx)

	// 8. Notification side: directory, mailer, cooldown, dispatcher
	var dir alerting.Directory
	if cfg.LDAP.Enabled {
		dir = directory.NewLDAPDirectory(cfg.LDAP, subjectRepo, log.WithPrefix("ldap"))
		log.Info("Using LDAP directory at %s", cfg.LDAP.URL)
	} else {
		dir = directory.NewRepoDirectory(subjectRepo, log.WithPrefix("directory"))
	}

	var mailer alerting.Mailer
	if cfg.Alerting.EmailEnabled {
		mailer = notify.NewSMTPMailer(cfg.SMTP, log.WithPrefix("smtp"))
	}

	limiter := alerting.NewRateLimiter(cfg.Alerting.EmailCooldown)
	store := alerting.NewSubjectAlertStore()
	dispatcher := alerting.NewDispatcher(hub, mailer, dir, limiter, cfg.Alerting, log.WithPrefix("dispatch"))

	// 9. Services
	readingService := service.NewReadingService(
		readingRepo, subjectRepo, alertRepo, vitalsCache, evaluator, store, dispatcher, log)
	alertService := service.NewAlertService(store, alertRepo, vitalsCache, hub, log)
	subjectService := service.NewSubjectService(subjectRepo, log)
	authService := service.NewAuthService(userRepo, cfg.Security, log)
	reportGenerator := report.NewGenerator(subjectRepo, readingRepo, alertRepo, log.WithPrefix("report"))

	// 10. MQTT ingest. HTTP-only deployments leave MQTT_BROKER unset.
	var mqttClient *mqtt.Client
	if cfg.MQTTEnabled() {
		mqttClient = mqtt.NewClient(&cfg.MQTT, log.WithPrefix("mqtt"))
		if err := mqttClient.Connect(); err != nil {
			log.Fatal("Failed to connect to MQTT broker: %v", err)
		}
		defer mqttClient.Disconnect()

		if err := mqttClient.Subscribe(cfg.MQTT.VitalsTopic, handleVitals(readingService, log)); err != nil {
			log.Fatal("Failed to subscribe to vitals topic: %v", err)
		}

		log.Info("MQTT subscription active on %s", cfg.MQTT.VitalsTopic)
	} else {
		log.Info("MQTT disabled, ingesting over HTTP only")
	}

	// 11. Handlers
	authHandler := handler.NewAuthHandler(authService, log)
	readingHandler := handler.NewReadingHandler(readingService, log)
	alertHandler := handler.NewAlertHandler(alertService, log)
	subjectHandler := handler.NewSubjectHandler(subjectService, log)
	reportHandler := handler.NewReportHandler(reportGenerator, log)
	wsHandler := handler.NewWSHandler(hub, log)
	healthHandler := handler.NewHealthHandler(db, vitalsCache, mqttClient, log)

	// 12. HTTP server
	srv := server.New(cfg, log)
	srv.RegisterHandlers(
		authHandler, readingHandler, alertHandler, subjectHandler,
		reportHandler, wsHandler, healthHandler)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("Server failed: %v", err)
		}
	}()

	log.Info("API server ready on http://%s:%d", cfg.Server.Host, cfg.Server.Port)

	// 13. Background maintenance
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go runAlertCleanup(cleanupCtx, alertService, log)

	// 14. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error: %v", err)
	}

	log.Info("Shutdown complete")
}

func handleVitals(readingService *service.ReadingService, log *logger.Logger) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := readingService.ProcessMessage(ctx, payload); err != nil {
			log.Error("Failed to process vitals message on %s: %v", topic, err)
			return err
		}
		return nil
	}
}

func runAlertCleanup(ctx context.Context, alertService *service.AlertService, log *logger.Logger) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			alertService.CleanUpTask(ctx)
		}
	}
}
