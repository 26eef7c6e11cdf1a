package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/bianchibruno/comp0034-fyp/internal/config"
	"github.com/bianchibruno/comp0034-fyp/internal/dataset"
	"github.com/bianchibruno/comp0034-fyp/internal/es"
	"github.com/bianchibruno/comp0034-fyp/internal/handlers"
	"github.com/bianchibruno/comp0034-fyp/internal/hash"
	"github.com/bianchibruno/comp0034-fyp/internal/logging"
	"github.com/bianchibruno/comp0034-fyp/internal/middleware/auth"
	"github.com/bianchibruno/comp0034-fyp/internal/models"
	"github.com/bianchibruno/comp0034-fyp/internal/mykafka"
	"github.com/bianchibruno/comp0034-fyp/internal/service/search"
	"github.com/bianchibruno/comp0034-fyp/internal/token"
	httpserver "github.com/bianchibruno/comp0034-fyp/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	if n, err := dataset.LoadCSV(db, configuration.DATASET_PATH); err != nil {
		logger.Warn("dataset load skipped", "error", err)
	} else if n > 0 {
		logger.Info("dataset loaded", "rows", n)
	}

	if err := ensureAdmin(db, configuration.ADMIN_EMAIL, configuration.ADMIN_PASSWORD); err != nil {
		log.Fatalf("admin bootstrap error: %v", err)
	}

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			log.Fatalf("kafka init error: %v", err)
		}
	}

	var searchSvc *search.Service
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		searchSvc = search.NewService(esClient, "requests")
	}

	tokens := token.New([]byte(configuration.JWT_SECRET))
	guard := auth.NewGuard(db, tokens)

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), httpserver.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:    &handlers.AuthHandler{DB: db, Tokens: tokens, Producer: prod},
		RequestHandler: &handlers.RequestHandler{DB: db, Producer: prod, Search: searchSvc},
		Guard:          guard,
	})

	srv := &http.Server{
		Addr:         configuration.ADDRESS,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("server starting", "address", configuration.ADDRESS)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if prod != nil {
		if err := prod.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// ensureAdmin creates the administrator account named in the environment if
// it does not exist yet. Registration always assigns the "user" role, so
// this is the only way an administrator comes into being.
func ensureAdmin(db *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return err
	}
	return db.Create(&models.User{
		Email:        email,
		PasswordHash: pwHash,
		Role:         "administrator",
	}).Error
}
