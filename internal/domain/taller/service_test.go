package taller

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Fredxxo/campo/internal/adapters/docstore/memory"
	"github.com/Fredxxo/campo/internal/domain/circles"
	"github.com/Fredxxo/campo/internal/domain/history"
	"github.com/Fredxxo/campo/internal/platform/logger"
)

func newTestServices(t *testing.T) (*Service, *circles.Service) {
	t.Helper()
	store := memory.NewStore()
	log := logger.New(logger.Options{Level: logger.Error})

	circleSvc := circles.NewService(store, log)
	t.Cleanup(circleSvc.Close)

	svc := NewService(store, circleSvc, log)
	t.Cleanup(svc.Close)

	return svc, circleSvc
}

// arranca un círculo con actividad Corte en curso.
func setupActiveCircle(t *testing.T, circleSvc *circles.Service, name string) {
	t.Helper()
	ctx := context.Background()
	if _, err := circleSvc.Create(ctx, circles.CreateInput{Name: name, Hectares: 50}); err != nil {
		t.Fatalf("create circle: %v", err)
	}
	act := circles.ActivityCorte
	if _, err := circleSvc.AppendActivity(ctx, name, circles.ActivityInput{Activity: &act}); err != nil {
		t.Fatalf("append corte: %v", err)
	}
}

func openEntry(t *testing.T, circleSvc *circles.Service, name string) history.Entry {
	t.Helper()
	c, err := circleSvc.Get(name)
	if err != nil {
		t.Fatalf("get circle: %v", err)
	}
	e, ok := history.Current(c.History)
	if !ok {
		t.Fatalf("circle %s has empty history", name)
	}
	return e
}

func TestCreatePausesMatchingCircle(t *testing.T) {
	ctx := context.Background()
	svc, circleSvc := newTestServices(t)
	setupActiveCircle(t, circleSvc, "A")

	res, err := svc.Create(ctx, CreateInput{
		Description: "Rotura de cadena",
		Category:    "Mecánica",
		Sector:      "A",
		Operator:    "Juan",
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if !res.Paused || res.PauseErr != nil {
		t.Fatalf("expected clean pause, got %+v", res)
	}
	if res.Ticket.Status != StatusPendiente {
		t.Fatalf("expected Pendiente, got %q", res.Ticket.Status)
	}
	if res.Ticket.LinkedCircle != "A" || res.Ticket.LinkedEntryID == "" {
		t.Fatalf("expected backreference to pause entry, got %+v", res.Ticket)
	}

	e := openEntry(t, circleSvc, "A")
	if e.Situacion != string(circles.SituacionFrenado) {
		t.Fatalf("expected Frenado, got %q", e.Situacion)
	}
	if e.LinkedTicketID != res.Ticket.ID {
		t.Fatalf("expected linkedTicketId %q, got %q", res.Ticket.ID, e.LinkedTicketID)
	}
	if !strings.Contains(e.PauseReason, "Rotura de cadena") {
		t.Fatalf("expected pause reason from description, got %q", e.PauseReason)
	}
	if e.ID != res.Ticket.LinkedEntryID {
		t.Fatalf("backreference mismatch: entry %q vs ticket %q", e.ID, res.Ticket.LinkedEntryID)
	}
}

func TestCreateWithoutMatchingCircle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	res, err := svc.Create(ctx, CreateInput{Description: "Cambio de aceite", Sector: "Z"})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if res.Paused || res.PauseErr != nil {
		t.Fatalf("expected silent no-op pause, got %+v", res)
	}
	if res.Ticket.LinkedCircle != "" || res.Ticket.LinkedEntryID != "" {
		t.Fatalf("expected no backreference, got %+v", res.Ticket)
	}
}

func TestStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, circleSvc := newTestServices(t)
	setupActiveCircle(t, circleSvc, "A")

	res, err := svc.Create(ctx, CreateInput{Description: "Rotura de cadena", Sector: "A"})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	id := res.Ticket.ID

	t0 := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return t0 }

	got, err := svc.SetStatus(ctx, id, StatusEnReparacion)
	if err != nil {
		t.Fatalf("set en reparación: %v", err)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(t0) {
		t.Fatalf("expected StartedAt %v, got %v", t0, got.StartedAt)
	}

	// Un segundo pase por "En reparación" no re-estampa StartedAt.
	svc.now = func() time.Time { return t0.Add(time.Hour) }
	got, err = svc.SetStatus(ctx, id, StatusEnReparacion)
	if err != nil {
		t.Fatalf("set en reparación again: %v", err)
	}
	if !got.StartedAt.Equal(t0) {
		t.Fatalf("StartedAt re-stamped: %v", got.StartedAt)
	}

	got, err = svc.SetStatus(ctx, id, StatusCompletado)
	if err != nil {
		t.Fatalf("set completado: %v", err)
	}
	if got.CompletedAt == nil {
		t.Fatalf("expected CompletedAt set")
	}

	// El círculo vuelve a En Proceso con la referencia limpia.
	e := openEntry(t, circleSvc, "A")
	if e.Situacion != string(circles.SituacionEnProceso) {
		t.Fatalf("expected En Proceso after resume, got %q", e.Situacion)
	}
	if e.LinkedTicketID != "" || e.PauseReason != "" {
		t.Fatalf("expected cleared pause fields, got %+v", e)
	}
}

func TestResumeGuardAgainstForeignPause(t *testing.T) {
	ctx := context.Background()
	svc, circleSvc := newTestServices(t)
	setupActiveCircle(t, circleSvc, "A")

	r1, err := svc.Create(ctx, CreateInput{Description: "Primero", Sector: "A"})
	if err != nil {
		t.Fatalf("create t1: %v", err)
	}
	r2, err := svc.Create(ctx, CreateInput{Description: "Segundo", Sector: "A"})
	if err != nil {
		t.Fatalf("create t2: %v", err)
	}

	// La pausa abierta es del segundo ticket: completar el primero no reanuda.
	if _, err := svc.SetStatus(ctx, r1.Ticket.ID, StatusCompletado); err != nil {
		t.Fatalf("complete t1: %v", err)
	}
	e := openEntry(t, circleSvc, "A")
	if e.Situacion != string(circles.SituacionFrenado) || e.LinkedTicketID != r2.Ticket.ID {
		t.Fatalf("expected pause of t2 intact, got %+v", e)
	}

	if _, err := svc.SetStatus(ctx, r2.Ticket.ID, StatusCompletado); err != nil {
		t.Fatalf("complete t2: %v", err)
	}
	e = openEntry(t, circleSvc, "A")
	if e.Situacion != string(circles.SituacionEnProceso) {
		t.Fatalf("expected resumed circle, got %+v", e)
	}
}

func TestDeleteResumesAndRemoves(t *testing.T) {
	ctx := context.Background()
	svc, circleSvc := newTestServices(t)
	setupActiveCircle(t, circleSvc, "A")

	res, err := svc.Create(ctx, CreateInput{Description: "Rotura", Sector: "A"})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	if err := svc.Delete(ctx, res.Ticket.ID); err != nil {
		t.Fatalf("delete ticket: %v", err)
	}

	if _, err := svc.Get(res.Ticket.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	e := openEntry(t, circleSvc, "A")
	if e.Situacion != string(circles.SituacionEnProceso) {
		t.Fatalf("expected resumed circle after delete, got %+v", e)
	}
}

func TestSetStatusValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	res, err := svc.Create(ctx, CreateInput{Description: "Cambio de aceite"})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	if _, err := svc.SetStatus(ctx, res.Ticket.ID, Status("Inventado")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, "nope", StatusPendiente); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Description: "   "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty description, got %v", err)
	}
}
