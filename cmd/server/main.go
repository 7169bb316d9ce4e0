package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/diewo77/cpq-app/internal/codes"
	"github.com/diewo77/cpq-app/internal/config"
	"github.com/diewo77/cpq-app/internal/db"
	"github.com/diewo77/cpq-app/internal/models"
	"github.com/diewo77/cpq-app/internal/services"
	"github.com/diewo77/cpq-app/view"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()
	if migrateOnlyFlag != nil && *migrateOnlyFlag {
		if _, err := db.ConnectAndMigrate(); err != nil {
			log.Fatalf("migrate-only failed: %v", err)
		}
		log.Println("migrations completed; exiting as requested")
		return
	}
	cfg := config.Load()
	if cfg.CodeMask != 0 {
		codes.SetMask(cfg.CodeMask)
	}
	if cfg.DefaultDomain != "" {
		models.SetDefaultDomain(cfg.DefaultDomain)
	}
	services.SetInvoiceDefaults(models.InvoiceType(cfg.DefaultInvoiceType), models.PaymentTerm(cfg.DefaultPaymentTerm))
	view.SetRollbarEnv(cfg.RollbarEnv)
	dbConn, err := db.ConnectAndMigrate()
	if err != nil {
		log.Fatalf("db connection failed: %v", err)
	}
	log.Printf("Starting server env=%s port=%s", cfg.Env, cfg.Port)

	appHandler := NewApp(dbConn)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: appHandler}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}
