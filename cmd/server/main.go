package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invoice-manager-backend/internal/config"
	"invoice-manager-backend/internal/events"
	"invoice-manager-backend/internal/logger"
	"invoice-manager-backend/internal/repository"
	"invoice-manager-backend/internal/routes"
	"invoice-manager-backend/internal/seed"
	"invoice-manager-backend/internal/services/idgen"
	"invoice-manager-backend/internal/services/invoice"
	"invoice-manager-backend/internal/services/reconciliation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logger.Default().Fatalw("load config", "error", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.LogDevelopment})
	if err != nil {
		logger.Default().Fatalw("init logger", "error", err)
	}
	defer log.Sync()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalw("init database", "error", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaProducer(log, cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	defer publisher.Close()

	invoiceRepo := repository.NewInvoiceRepository(db)
	clientRepo := repository.NewClientRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	lineItemRepo := repository.NewLineItemRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	engine := reconciliation.NewEngine(clientRepo, addressRepo, lineItemRepo, invoiceRepo, log)
	invoiceService := invoice.NewService(
		invoiceRepo,
		clientRepo,
		addressRepo,
		lineItemRepo,
		auditRepo,
		engine,
		idgen.New(cfg.IDMaxAttempts),
		publisher,
		log,
	)

	if cfg.SeedFile != "" {
		ctx := logger.WithLogger(context.Background(), log)
		if _, err := seed.Load(ctx, invoiceService, cfg.SeedFile); err != nil {
			log.Fatalw("seed database", "file", cfg.SeedFile, "error", err)
		}
	}

	r := gin.New()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, invoiceService, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("http server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("http server shutdown", "error", err)
	}
	log.Infow("server stopped")
}
