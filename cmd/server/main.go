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

	"github.com/joho/godotenv"

	"facturacion/backend/internal/config"
	"facturacion/backend/internal/domain"
	"facturacion/backend/internal/httpapi"
	"facturacion/backend/internal/kv"
	"facturacion/backend/internal/metrics"
	"facturacion/backend/internal/service"
	"facturacion/backend/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	backend, closers, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("storage unavailable: %v", err)
	}

	store := storage.New(backend)
	m := metrics.New()

	issuer := domain.InvoiceParty{
		Name:    cfg.IssuerName,
		TaxID:   cfg.IssuerTaxID,
		Address: cfg.IssuerAddress,
	}
	svc := service.New(store, m, issuer)

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, svc.Users())
	if err := auth.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("seed admin account: %v", err)
	}

	api := httpapi.New(svc, auth, m, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("facturacion backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// openBackend selects the key-value backend from the environment. Postgres
// wins when DATABASE_URL is set, then Redis, then SQLite, then in-memory.
func openBackend(ctx context.Context, cfg config.Config) (kv.Store, []func() error, error) {
	closers := make([]func() error, 0, 1)

	switch {
	case cfg.DatabaseURL != "":
		pg, err := kv.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pg.Close)
		log.Println("storage: postgres")
		return pg, closers, nil
	case cfg.RedisAddr != "":
		rd, err := kv.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, rd.Close)
		log.Println("storage: redis")
		return rd, closers, nil
	case cfg.SQLitePath != "":
		db, err := kv.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, db.Close)
		log.Println("storage: sqlite")
		return db, closers, nil
	default:
		log.Println("storage: in-memory (data is lost on restart)")
		return kv.NewMemory(), closers, nil
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if cfg.AuthSecret == "" {
		log.Println("WARN: AUTH_SECRET not set, using a development default")
		return nil
	}
	if len(cfg.AuthSecret) < 32 {
		return errors.New("AUTH_SECRET must be at least 32 characters")
	}
	return nil
}
