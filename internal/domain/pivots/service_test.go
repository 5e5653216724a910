package pivots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Fredxxo/campo/internal/adapters/docstore/memory"
	"github.com/Fredxxo/campo/internal/domain/circles"
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

func TestStartStopMaterializesOnCircle(t *testing.T) {
	ctx := context.Background()
	svc, circleSvc := newTestServices(t)

	if _, err := circleSvc.Create(ctx, circles.CreateInput{Name: "A", Hectares: 50}); err != nil {
		t.Fatalf("create circle: %v", err)
	}
	p, err := svc.Create(ctx, "Pivote 1")
	if err != nil {
		t.Fatalf("create pivot: %v", err)
	}

	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return t0 }

	started, err := svc.Start(ctx, p.ID, "A")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !started.Active() || *started.ActiveCircle != "A" {
		t.Fatalf("expected active session on A, got %+v", started)
	}

	// 90 minutos de riego.
	svc.now = func() time.Time { return t0.Add(90 * time.Minute) }

	entry, err := svc.Stop(ctx, p.ID)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if entry.DurationHours != 1.5 {
		t.Fatalf("expected 1.5 hours, got %v", entry.DurationHours)
	}
	if entry.PivotID != p.ID || entry.EndDate == nil {
		t.Fatalf("expected closed entry linked to pivot, got %+v", entry)
	}

	// La sesión quedó en el círculo, el pivote libre.
	c, err := circleSvc.Get("A")
	if err != nil {
		t.Fatalf("get circle: %v", err)
	}
	if len(c.RiegoHistory) != 1 || c.RiegoHistory[0].ID != entry.ID {
		t.Fatalf("expected session in riegoHistory, got %+v", c.RiegoHistory)
	}

	idle, err := svc.Get(p.ID)
	if err != nil {
		t.Fatalf("get pivot: %v", err)
	}
	if idle.Active() {
		t.Fatalf("expected idle pivot, got %+v", idle)
	}
	if idle.LastCircle != "A" {
		t.Fatalf("expected lastCircle A, got %q", idle.LastCircle)
	}
}

func TestStartRejections(t *testing.T) {
	ctx := context.Background()
	svc, circleSvc := newTestServices(t)

	if _, err := circleSvc.Create(ctx, circles.CreateInput{Name: "A", Hectares: 50}); err != nil {
		t.Fatalf("create circle: %v", err)
	}
	p, err := svc.Create(ctx, "Pivote 1")
	if err != nil {
		t.Fatalf("create pivot: %v", err)
	}

	// Círculo inexistente.
	if _, err := svc.Start(ctx, p.ID, "Z"); !errors.Is(err, circles.ErrNotFound) {
		t.Fatalf("expected circles.ErrNotFound, got %v", err)
	}

	// Doble arranque.
	if _, err := svc.Start(ctx, p.ID, "A"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Start(ctx, p.ID, "A"); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}

	// Pivote inexistente.
	if _, err := svc.Start(ctx, "nope", "A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStopWithoutSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestServices(t)

	p, err := svc.Create(ctx, "Pivote 1")
	if err != nil {
		t.Fatalf("create pivot: %v", err)
	}

	if _, err := svc.Stop(ctx, p.ID); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestStopAfterCircleDeleted(t *testing.T) {
	ctx := context.Background()
	svc, circleSvc := newTestServices(t)

	if _, err := circleSvc.Create(ctx, circles.CreateInput{Name: "A", Hectares: 50}); err != nil {
		t.Fatalf("create circle: %v", err)
	}
	p, err := svc.Create(ctx, "Pivote 1")
	if err != nil {
		t.Fatalf("create pivot: %v", err)
	}
	if _, err := svc.Start(ctx, p.ID, "A"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// El círculo desaparece con la sesión en curso: la entrada se pierde
	// pero el pivote se libera igual.
	if err := circleSvc.SoftDelete(ctx, "A"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	entry, err := svc.Stop(ctx, p.ID)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if entry.ID != "" {
		t.Fatalf("expected no materialized entry, got %+v", entry)
	}

	idle, _ := svc.Get(p.ID)
	if idle.Active() {
		t.Fatalf("expected idle pivot, got %+v", idle)
	}
}

func TestDeleteRejectsActivePivot(t *testing.T) {
	ctx := context.Background()
	svc, circleSvc := newTestServices(t)

	if _, err := circleSvc.Create(ctx, circles.CreateInput{Name: "A", Hectares: 50}); err != nil {
		t.Fatalf("create circle: %v", err)
	}
	p, err := svc.Create(ctx, "Pivote 1")
	if err != nil {
		t.Fatalf("create pivot: %v", err)
	}
	if _, err := svc.Start(ctx, p.ID, "A"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := svc.Delete(ctx, p.ID); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}

	if _, err := svc.Stop(ctx, p.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
