package circles

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Fredxxo/campo/internal/domain/history"
	"github.com/Fredxxo/campo/internal/middleware"
	"github.com/Fredxxo/campo/internal/ports/auth"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/circles", func(cr chi.Router) {
		cr.Get("/", listCirclesHandler(svc))
		cr.Post("/", createCircleHandler(svc))

		cr.Get("/{name}", getCircleHandler(svc))
		cr.Patch("/{name}", updateCircleHandler(svc))
		cr.Delete("/{name}", deleteCircleHandler(svc))

		cr.Get("/{name}/state", stateHandler(svc))
		cr.Post("/{name}/activity", appendActivityHandler(svc))
		cr.Post("/{name}/alert", setAlertHandler(svc))
		cr.Delete("/{name}/history/{kind}/{entryID}", deleteEntryHandler(svc))
	})
}

type createCircleRequest struct {
	Name     string  `json:"name"`
	Hectares float64 `json:"hectares"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

type updateCircleRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	Hectares *float64 `json:"hectares"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
}

type activityRequest struct {
	Activity  string `json:"activity"`  // opcional: vacío = solo situación
	Situacion string `json:"situacion"` // opcional
	// Producción, solo para Enfardado.
	Quantity int     `json:"quantity"`
	Weight   float64 `json:"weight"`
	Quality  string  `json:"quality"`
}

type alertRequest struct {
	Alert string `json:"alert"`
}

type entryResponse struct {
	ID             string     `json:"id"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	Activity       string     `json:"activity,omitempty"`
	Situacion      string     `json:"situacion,omitempty"`
	Alert          string     `json:"alert,omitempty"`
	Quantity       int        `json:"quantity,omitempty"`
	Weight         float64    `json:"weight,omitempty"`
	Quality        string     `json:"quality,omitempty"`
	PauseReason    string     `json:"pause_reason,omitempty"`
	LinkedTicketID string     `json:"linked_ticket_id,omitempty"`
	PivotID        string     `json:"pivot_id,omitempty"`
	DurationHours  float64    `json:"duration_hours,omitempty"`
}

type circleResponse struct {
	Name          string          `json:"name"`
	Hectares      float64         `json:"hectares"`
	Lat           float64         `json:"lat"`
	Lng           float64         `json:"lng"`
	History       []entryResponse `json:"history"`
	StatusHistory []entryResponse `json:"status_history"`
	RiegoHistory  []entryResponse `json:"riego_history"`
}

type stateResponse struct {
	Activity  string `json:"activity"`
	Situacion string `json:"situacion"`
	Alert     string `json:"alert"`
}

// createCircleHandler godoc
// @Summary Crear círculo
// @Description Crea un lote nuevo con logs vacíos. Requiere rol `circulos` o admin.
// @Tags circles
// @Accept json
// @Produce json
// @Success 201 {object} circleResponse
// @Failure 400 {string} string "invalid json / datos inválidos"
// @Failure 409 {string} string "circle already exists"
// @Router /circles [post]
func createCircleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleCirculos) {
			return
		}

		var req createCircleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		c, err := svc.Create(r.Context(), CreateInput{
			Name:     req.Name,
			Hectares: req.Hectares,
			Lat:      req.Lat,
			Lng:      req.Lng,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toCircleResponse(c))
	}
}

func listCirclesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleCirculos) {
			return
		}

		list := svc.List()
		out := make([]circleResponse, 0, len(list))
		for _, c := range list {
			out = append(out, toCircleResponse(c))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getCircleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleCirculos) {
			return
		}

		c, err := svc.Get(chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCircleResponse(c))
	}
}

func updateCircleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleCirculos) {
			return
		}

		name := chi.URLParam(r, "name")

		var req updateCircleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if req.Hectares != nil {
			if err := svc.SetHectares(r.Context(), name, *req.Hectares); err != nil {
				writeError(w, err)
				return
			}
		}
		if req.Lat != nil || req.Lng != nil {
			c, err := svc.Get(name)
			if err != nil {
				writeError(w, err)
				return
			}
			lat, lng := c.Lat, c.Lng
			if req.Lat != nil {
				lat = *req.Lat
			}
			if req.Lng != nil {
				lng = *req.Lng
			}
			if err := svc.SetPosition(r.Context(), name, lat, lng); err != nil {
				writeError(w, err)
				return
			}
		}

		c, err := svc.Get(name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCircleResponse(c))
	}
}

func deleteCircleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleCirculos) {
			return
		}

		if err := svc.SoftDelete(r.Context(), chi.URLParam(r, "name")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func stateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleCirculos) {
			return
		}

		c, err := svc.Get(chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, err)
			return
		}
		st := c.CurrentState()
		writeJSON(w, http.StatusOK, stateResponse{
			Activity:  string(st.Activity),
			Situacion: string(st.Situacion),
			Alert:     string(st.Alert),
		})
	}
}

// appendActivityHandler godoc
// @Summary Registrar actividad
// @Description Agrega una transición de actividad (o solo un cambio de situación)
// al historial del círculo. Las transiciones rechazadas no mutan nada.
// @Tags circles
// @Accept json
// @Produce json
// @Success 201 {object} entryResponse
// @Failure 400 {string} string "transición no permitida / producción incompleta"
// @Router /circles/{name}/activity [post]
func appendActivityHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleCirculos) {
			return
		}

		var req activityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := ActivityInput{}
		if strings.TrimSpace(req.Activity) != "" {
			act := Activity(req.Activity)
			in.Activity = &act
			if act == ActivityEnfardado {
				in.Production = &Production{
					Quantity: req.Quantity,
					Weight:   req.Weight,
					Quality:  req.Quality,
				}
			}
		}
		if strings.TrimSpace(req.Situacion) != "" {
			sit := Situacion(req.Situacion)
			in.Situacion = &sit
		}

		entry, err := svc.AppendActivity(r.Context(), chi.URLParam(r, "name"), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toEntryResponse(entry))
	}
}

func setAlertHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleCirculos) {
			return
		}

		var req alertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if err := svc.SetAlert(r.Context(), chi.URLParam(r, "name"), Alert(req.Alert)); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteEntryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, auth.RoleCirculos) {
			return
		}

		err := svc.DeleteEntry(
			r.Context(),
			chi.URLParam(r, "name"),
			LogKind(chi.URLParam(r, "kind")),
			chi.URLParam(r, "entryID"),
		)
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toCircleResponse(c Circle) circleResponse {
	return circleResponse{
		Name:          c.Name,
		Hectares:      c.Hectares,
		Lat:           c.Lat,
		Lng:           c.Lng,
		History:       toEntryResponses(c.History),
		StatusHistory: toEntryResponses(c.StatusHistory),
		RiegoHistory:  toEntryResponses(c.RiegoHistory),
	}
}

func toEntryResponses(log []history.Entry) []entryResponse {
	out := make([]entryResponse, 0, len(log))
	for _, e := range log {
		out = append(out, toEntryResponse(e))
	}
	return out
}

func toEntryResponse(e history.Entry) entryResponse {
	return entryResponse{
		ID:             e.ID,
		StartDate:      e.StartDate,
		EndDate:        e.EndDate,
		Activity:       e.Activity,
		Situacion:      e.Situacion,
		Alert:          e.Alert,
		Quantity:       e.Quantity,
		Weight:         e.Weight,
		Quality:        e.Quality,
		PauseReason:    e.PauseReason,
		LinkedTicketID: e.LinkedTicketID,
		PivotID:        e.PivotID,
		DurationHours:  e.DurationHours,
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
	case errors.Is(err, ErrExists):
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
