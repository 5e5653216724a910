package ventas

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Fredxxo/campo/internal/middleware"
	"github.com/Fredxxo/campo/internal/ports/auth"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/ventas", func(vr chi.Router) {
		vr.Get("/", listSalesHandler(svc))
		vr.Post("/", createSaleHandler(svc))
		vr.Delete("/{id}", deleteSaleHandler(svc))
	})
}

type createSaleRequest struct {
	Date      string  `json:"date"`
	Client    string  `json:"client"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Notes     string  `json:"notes"`
}

type saleResponse struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"`
	Client    string  `json:"client"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
	Notes     string  `json:"notes,omitempty"`
}

func createSaleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleVentas) {
			return
		}

		var req createSaleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		sale, err := svc.Create(r.Context(), CreateInput{
			Date:      req.Date,
			Client:    req.Client,
			Quantity:  req.Quantity,
			UnitPrice: req.UnitPrice,
			Notes:     req.Notes,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toSaleResponse(sale))
	}
}

func listSalesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleVentas) {
			return
		}

		list := svc.List()
		out := make([]saleResponse, 0, len(list))
		for _, sale := range list {
			out = append(out, toSaleResponse(sale))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteSaleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleVentas) {
			return
		}

		if err := svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toSaleResponse(s Sale) saleResponse {
	return saleResponse{
		ID:        s.ID,
		Date:      s.Date,
		Client:    s.Client,
		Quantity:  s.Quantity,
		UnitPrice: s.UnitPrice,
		Total:     s.Total,
		Notes:     s.Notes,
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
