package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Fredxxo/campo/internal/adapters/auth/token"
	pg "github.com/Fredxxo/campo/internal/adapters/docstore/postgres"
	"github.com/Fredxxo/campo/internal/platform/config"
	"github.com/Fredxxo/campo/internal/platform/logger"
	"github.com/Fredxxo/campo/internal/ports/auth"
	"github.com/Fredxxo/campo/internal/ports/docstore"
	"github.com/Fredxxo/campo/internal/router"
)

func main() {
	// .env es opcional; en producción las vars vienen del entorno.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
	})

	var store docstore.Store
	if cfg.DatabaseDSN != "" {
		db, err := pg.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Error("no se pudo conectar a postgres", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := pg.EnsureSchema(ctx, db); err != nil {
			cancel()
			log.Error("no se pudo preparar el esquema", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		cancel()

		pgStore := pg.NewStore(db, log, cfg.PollInterval)
		defer pgStore.Close()
		store = pgStore
		log.Info("document store: postgres", map[string]any{"poll": cfg.PollInterval.String()})
	} else {
		log.Warn("sin DATABASE_DSN: store en memoria, los datos no persisten", nil)
	}

	var verifier auth.AuthVerifier
	if cfg.AuthBaseURL != "" && cfg.AuthAPIKey != "" {
		v, err := token.NewVerifier(token.Config{
			BaseURL: cfg.AuthBaseURL,
			APIKey:  cfg.AuthAPIKey,
		})
		if err != nil {
			log.Error("verificador de sesiones inválido", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		verifier = v
	} else {
		log.Warn("sin verificador de sesiones: modo dev con headers de debug", nil)
	}

	r := router.NewRouter(router.Options{
		AuthVerifier: verifier,
		Store:        store,
		Logger:       log,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	log.Info("starting server", map[string]any{"addr": cfg.Addr})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
