package taller

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
	r.Route("/taller", func(tr chi.Router) {
		tr.Get("/", listTicketsHandler(svc))
		tr.Post("/", createTicketHandler(svc))

		tr.Get("/{id}", getTicketHandler(svc))
		tr.Patch("/{id}/status", setStatusHandler(svc))
		tr.Delete("/{id}", deleteTicketHandler(svc))
	})
}

type createTicketRequest struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Sector      string `json:"sector"`
	Operator    string `json:"operator"`
	Date        string `json:"date"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

type ticketResponse struct {
	ID            string     `json:"id"`
	Description   string     `json:"description"`
	Category      string     `json:"category,omitempty"`
	Sector        string     `json:"sector,omitempty"`
	Operator      string     `json:"operator,omitempty"`
	UID           string     `json:"uid,omitempty"`
	Status        string     `json:"status"`
	Date          string     `json:"date"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	LinkedCircle  string     `json:"linked_circle,omitempty"`
	LinkedEntryID string     `json:"linked_entry_id,omitempty"`
}

type createTicketResponse struct {
	Ticket ticketResponse `json:"ticket"`
	Paused bool           `json:"paused"`
	// PauseError avisa que el círculo no se pudo frenar; el ticket existe igual.
	PauseError string `json:"pause_error,omitempty"`
}

// createTicketHandler godoc
// @Summary Crear ticket de taller
// @Description Crea el ticket y, si el sector coincide con un círculo activo,
// frena su actividad. El freno fallido se informa en pause_error.
// @Tags taller
// @Accept json
// @Produce json
// @Success 201 {object} createTicketResponse
// @Failure 400 {string} string "invalid json / datos inválidos"
// @Router /taller [post]
func createTicketHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireRole(w, r, auth.RoleTaller)
		if !ok {
			return
		}

		var req createTicketRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		res, err := svc.Create(r.Context(), CreateInput{
			Description: req.Description,
			Category:    req.Category,
			Sector:      req.Sector,
			Operator:    req.Operator,
			UID:         claims.UserID,
			Date:        req.Date,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		out := createTicketResponse{
			Ticket: toTicketResponse(res.Ticket),
			Paused: res.Paused,
		}
		if res.PauseErr != nil {
			out.PauseError = res.PauseErr.Error()
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func listTicketsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireRole(w, r, auth.RoleTaller); !ok {
			return
		}

		list := svc.List()
		out := make([]ticketResponse, 0, len(list))
		for _, t := range list {
			out = append(out, toTicketResponse(t))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getTicketHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireRole(w, r, auth.RoleTaller); !ok {
			return
		}

		t, err := svc.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTicketResponse(t))
	}
}

func setStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireRole(w, r, auth.RoleTaller); !ok {
			return
		}

		var req setStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		t, err := svc.SetStatus(r.Context(), chi.URLParam(r, "id"), Status(req.Status))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTicketResponse(t))
	}
}

func deleteTicketHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireRole(w, r, auth.RoleTaller); !ok {
			return
		}

		if err := svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toTicketResponse(t Ticket) ticketResponse {
	return ticketResponse{
		ID:            t.ID,
		Description:   t.Description,
		Category:      t.Category,
		Sector:        t.Sector,
		Operator:      t.Operator,
		UID:           t.UID,
		Status:        string(t.Status),
		Date:          t.Date,
		CreatedAt:     t.CreatedAt,
		StartedAt:     t.StartedAt,
		CompletedAt:   t.CompletedAt,
		LinkedCircle:  t.LinkedCircle,
		LinkedEntryID: t.LinkedEntryID,
	}
}

func requireRole(w http.ResponseWriter, r *http.Request, role string) (auth.Claims, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return auth.Claims{}, false
	}
	if !claims.Can(role) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return auth.Claims{}, false
	}
	return claims, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
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
