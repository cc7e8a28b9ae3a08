package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vishaga/online_store/internal/checkout"
	"github.com/vishaga/online_store/internal/config"
	"github.com/vishaga/online_store/internal/es"
	"github.com/vishaga/online_store/internal/events"
	"github.com/vishaga/online_store/internal/gateway"
	"github.com/vishaga/online_store/internal/handlers"
	"github.com/vishaga/online_store/internal/logging"
	"github.com/vishaga/online_store/internal/middleware/auth"
	httpserver "github.com/vishaga/online_store/internal/transport/http"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmpty(cfg.RazorpayKeyID, "RAZORPAY_KEY_ID")
	config.MustNonEmpty(cfg.RazorpayKeySecret, "RAZORPAY_KEY_SECRET")

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	var producer *events.Producer
	if cfg.KafkaAddress != "" {
		producer = events.NewProducer(cfg.KafkaAddress)
	}

	searchHandler := &handlers.SearchHandler{}
	productHandler := &handlers.ProductHandler{DB: db, Producer: producer}
	if cfg.ESURL != "" {
		client, err := es.NewClient(cfg)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		searchHandler.ES = client
		productHandler.ES = client
	}

	rzp := gateway.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), logging.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:             db,
		AuthHandler:    &handlers.AuthHandler{DB: db, Producer: producer},
		CartHandler:    &handlers.CartHandler{DB: db, Producer: producer},
		ProductHandler: productHandler,
		CheckoutHandler: &handlers.CheckoutHandler{
			Svc:      &checkout.Service{DB: db, Gateway: rzp, CartSettlement: cfg.CartSettlement},
			Producer: producer,
		},
		OrderHandler:  &handlers.OrderHandler{DB: db},
		SearchHandler: searchHandler,
		TokenAuth:     &auth.TokenAuth{DB: db},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
