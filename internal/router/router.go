package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Fredxxo/campo/internal/adapters/docstore/memory"
	"github.com/Fredxxo/campo/internal/domain/circles"
	"github.com/Fredxxo/campo/internal/domain/pivots"
	"github.com/Fredxxo/campo/internal/domain/reports"
	"github.com/Fredxxo/campo/internal/domain/taller"
	"github.com/Fredxxo/campo/internal/domain/usuarios"
	"github.com/Fredxxo/campo/internal/domain/ventas"
	"github.com/Fredxxo/campo/internal/middleware"
	"github.com/Fredxxo/campo/internal/platform/logger"
	"github.com/Fredxxo/campo/internal/ports/auth"
	"github.com/Fredxxo/campo/internal/ports/docstore"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev con headers de debug)

	// Store del documento remoto. Nil => in-memory (dev/tests).
	Store docstore.Store

	Logger logger.Logger
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	store := opts.Store
	if store == nil {
		store = memory.NewStore()
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewFromEnv()
	}

	// Services por módulo. Círculos primero: taller y pivots le cuelgan
	// la pausa y el riego.
	circlesSvc := circles.NewService(store, log)
	pivotsSvc := pivots.NewService(store, circlesSvc, log)
	tallerSvc := taller.NewService(store, circlesSvc, log)
	ventasSvc := ventas.NewService(store, log)
	usuariosSvc := usuarios.NewService(store, log)
	reportsSvc := reports.NewService(store, log)

	// Rutas por módulo
	circles.RegisterRoutes(r, circlesSvc)
	pivots.RegisterRoutes(r, pivotsSvc)
	taller.RegisterRoutes(r, tallerSvc)
	ventas.RegisterRoutes(r, ventasSvc)
	usuarios.RegisterRoutes(r, usuariosSvc)
	reports.RegisterRoutes(r, reportsSvc)

	return r
}
