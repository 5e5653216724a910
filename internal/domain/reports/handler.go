package reports

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Fredxxo/campo/internal/middleware"
	"github.com/Fredxxo/campo/internal/ports/auth"
)

// RegisterRoutes expone los reportes. Son lecturas derivadas: alcanza con
// estar autenticado, salvo ventas que mantiene su rol.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/reports", func(rr chi.Router) {
		rr.Get("/monthly", monthlyHandler(svc))
		rr.Get("/circles", circlesHandler(svc))
		rr.Get("/taller", tallerHandler(svc))
		rr.Get("/alerts", alertsHandler(svc))
		rr.Get("/recent", recentHandler(svc))
		rr.Get("/ventas", ventasHandler(svc))
	})
}

type monthlyResponse struct {
	Cortes     []MonthlyCorte      `json:"cortes"`
	Production []MonthlyProduction `json:"production"`
}

type tallerReportResponse struct {
	Monthly    []TallerMonth  `json:"monthly"`
	Categories []CategoryStat `json:"categories"`
}

func monthlyHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		st := svc.Snapshot()
		writeJSON(w, http.StatusOK, monthlyResponse{Cortes: st.Cortes, Production: st.Production})
	}
}

func circlesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, svc.Snapshot().Circles)
	}
}

func tallerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		st := svc.Snapshot()
		writeJSON(w, http.StatusOK, tallerReportResponse{Monthly: st.Taller, Categories: st.Categories})
	}
}

func alertsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, svc.Snapshot().Alerts)
	}
}

func recentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireUser(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, svc.Snapshot().Recent)
	}
}

func ventasHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !claims.Can(auth.RoleVentas) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, svc.Snapshot().Ventas)
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) bool {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
