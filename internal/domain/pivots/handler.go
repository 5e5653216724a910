package pivots

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Fredxxo/campo/internal/middleware"
	"github.com/Fredxxo/campo/internal/ports/auth"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/pivots", func(pr chi.Router) {
		pr.Get("/", listPivotsHandler(svc))
		pr.Post("/", createPivotHandler(svc))

		pr.Get("/{id}", getPivotHandler(svc))
		pr.Delete("/{id}", deletePivotHandler(svc))

		pr.Post("/{id}/start", startHandler(svc))
		pr.Post("/{id}/stop", stopHandler(svc))
	})
}

type createPivotRequest struct {
	Name string `json:"name"`
}

type startRequest struct {
	Circle string `json:"circle"`
}

type pivotResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	ActiveCircle *string    `json:"active_circle,omitempty"`
	SessionStart *time.Time `json:"session_start,omitempty"`
	LastCircle   string     `json:"last_circle,omitempty"`
}

type sessionResponse struct {
	Circle        string     `json:"circle"`
	EntryID       string     `json:"entry_id,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	DurationHours float64    `json:"duration_hours"`
}

func createPivotHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleRiego) {
			return
		}

		var req createPivotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.Create(r.Context(), req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPivotResponse(p))
	}
}

func listPivotsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleRiego) {
			return
		}

		list := svc.List()
		out := make([]pivotResponse, 0, len(list))
		for _, p := range list {
			out = append(out, toPivotResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getPivotHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleRiego) {
			return
		}

		p, err := svc.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPivotResponse(p))
	}
}

func deletePivotHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleRiego) {
			return
		}

		if err := svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// startHandler godoc
// @Summary Arrancar riego
// @Description Abre una sesión de riego del pivote sobre un círculo existente.
// @Tags pivots
// @Accept json
// @Produce json
// @Success 200 {object} pivotResponse
// @Failure 400 {string} string "círculo inexistente"
// @Failure 409 {string} string "pivot already irrigating"
// @Router /pivots/{id}/start [post]
func startHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleRiego) {
			return
		}

		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.Start(r.Context(), chi.URLParam(r, "id"), req.Circle)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPivotResponse(p))
	}
}

func stopHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleRiego) {
			return
		}

		id := chi.URLParam(r, "id")
		p, err := svc.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}

		entry, err := svc.Stop(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		resp := sessionResponse{DurationHours: entry.DurationHours}
		if p.ActiveCircle != nil {
			resp.Circle = *p.ActiveCircle
		}
		if entry.ID != "" {
			resp.EntryID = entry.ID
			resp.StartDate = &entry.StartDate
			resp.EndDate = entry.EndDate
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func toPivotResponse(p Pivot) pivotResponse {
	return pivotResponse{
		ID:           p.ID,
		Name:         p.Name,
		ActiveCircle: p.ActiveCircle,
		SessionStart: p.SessionStart,
		LastCircle:   p.LastCircle,
	}
}

func requireRole(w http.ResponseWriter, r *http.Request, role string) bool {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	if !claims.Can(role) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrSessionActive):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
