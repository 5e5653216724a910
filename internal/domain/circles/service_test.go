package circles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Fredxxo/campo/internal/adapters/docstore/memory"
	"github.com/Fredxxo/campo/internal/domain/history"
	"github.com/Fredxxo/campo/internal/platform/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(memory.NewStore(), logger.New(logger.Options{Level: logger.Error}))
	t.Cleanup(svc.Close)
	return svc
}

func mustCreate(t *testing.T, svc *Service, name string) {
	t.Helper()
	if _, err := svc.Create(context.Background(), CreateInput{Name: name, Hectares: 50}); err != nil {
		t.Fatalf("create circle %s: %v", name, err)
	}
}

func TestHarvestCycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustCreate(t, svc, "A")

	// Empieza vacío: corte arranca el ciclo.
	if _, err := svc.AppendActivity(ctx, "A", ActivityInput{Activity: actPtr(ActivityCorte)}); err != nil {
		t.Fatalf("corte: %v", err)
	}
	st := mustState(t, svc, "A")
	if st.Activity != ActivityCorte || st.Situacion != SituacionIniciado {
		t.Fatalf("expected {Corte, Iniciado}, got %+v", st)
	}

	// Rastrillado después de corte.
	if _, err := svc.AppendActivity(ctx, "A", ActivityInput{Activity: actPtr(ActivityRastrillado)}); err != nil {
		t.Fatalf("rastrillado: %v", err)
	}
	if st := mustState(t, svc, "A"); st.Activity != ActivityRastrillado {
		t.Fatalf("expected Rastrillado, got %+v", st)
	}

	// Enfardado sin producción: rechazado, log intacto (2 entradas, no 3).
	_, err := svc.AppendActivity(ctx, "A", ActivityInput{Activity: actPtr(ActivityEnfardado)})
	if !errors.Is(err, ErrProductionIncomplete) {
		t.Fatalf("expected ErrProductionIncomplete, got %v", err)
	}
	c, _ := svc.Get("A")
	if len(c.History) != 2 {
		t.Fatalf("expected log unchanged with 2 entries, got %d", len(c.History))
	}

	// Enfardado con producción completa.
	entry, err := svc.AppendActivity(ctx, "A", ActivityInput{
		Activity:   actPtr(ActivityEnfardado),
		Production: &Production{Quantity: 120, Weight: 5400, Quality: "Primera"},
	})
	if err != nil {
		t.Fatalf("enfardado: %v", err)
	}
	if entry.Quantity != 120 || entry.Weight != 5400 || entry.Quality != "Primera" {
		t.Fatalf("expected production on entry, got %+v", entry)
	}
}

func TestRastrilladoRejectedOutOfOrder(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustCreate(t, svc, "A")

	_, err := svc.AppendActivity(ctx, "A", ActivityInput{Activity: actPtr(ActivityRastrillado)})
	if !errors.Is(err, ErrTransition) {
		t.Fatalf("expected ErrTransition on empty log, got %v", err)
	}

	c, _ := svc.Get("A")
	if len(c.History) != 0 {
		t.Fatalf("rejected transition mutated the log: %d entries", len(c.History))
	}
}

func TestSetAlert_AppendsToBothLogs(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustCreate(t, svc, "A")

	if err := svc.SetAlert(ctx, "A", AlertListo); err != nil {
		t.Fatalf("set alert: %v", err)
	}

	c, _ := svc.Get("A")
	if len(c.History) != 1 || len(c.StatusHistory) != 1 {
		t.Fatalf("expected 1 entry in each log, got history=%d status=%d", len(c.History), len(c.StatusHistory))
	}
	if c.History[0].Alert != string(AlertListo) {
		t.Fatalf("expected alert on activity log, got %q", c.History[0].Alert)
	}

	// Limpiar a Normal en medio del ciclo se rechaza.
	if _, err := svc.AppendActivity(ctx, "A", ActivityInput{Activity: actPtr(ActivityCorte)}); err != nil {
		t.Fatalf("corte: %v", err)
	}
	if err := svc.SetAlert(ctx, "A", AlertNone); !errors.Is(err, ErrAlertReset) {
		t.Fatalf("expected ErrAlertReset, got %v", err)
	}
}

func TestDeleteEntry_ActivityReseeds(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustCreate(t, svc, "A")

	if _, err := svc.AppendActivity(ctx, "A", ActivityInput{Activity: actPtr(ActivityCorte)}); err != nil {
		t.Fatalf("corte: %v", err)
	}
	c, _ := svc.Get("A")

	if err := svc.DeleteEntry(ctx, "A", LogActivity, c.History[0].ID); err != nil {
		t.Fatalf("delete entry: %v", err)
	}

	c, _ = svc.Get("A")
	if len(c.History) != 1 {
		t.Fatalf("expected re-seeded log of length 1, got %d", len(c.History))
	}
	if c.History[0].Situacion != string(SituacionIniciado) || c.History[0].Activity != "" {
		t.Fatalf("expected fresh default entry, got %+v", c.History[0])
	}
}

func TestPauseAndResumeForTicket(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustCreate(t, svc, "A")

	if _, err := svc.AppendActivity(ctx, "A", ActivityInput{
		Activity:  actPtr(ActivityCorte),
		Situacion: sitPtr(SituacionEnProceso),
	}); err != nil {
		t.Fatalf("corte: %v", err)
	}

	entryID, paused, err := svc.PauseForTicket(ctx, "A", "t-1", "Taller: rotura de cuchilla")
	if err != nil || !paused {
		t.Fatalf("expected pause, got paused=%v err=%v", paused, err)
	}
	if entryID == "" {
		t.Fatal("expected back-reference entry id")
	}

	c, _ := svc.Get("A")
	cur, _ := history.Current(c.History)
	if cur.Situacion != string(SituacionFrenado) || cur.LinkedTicketID != "t-1" {
		t.Fatalf("expected open Frenado entry linked to t-1, got %+v", cur)
	}
	// La entrada anterior quedó cerrada.
	if c.History[len(c.History)-2].EndDate == nil {
		t.Fatal("expected previous entry closed")
	}

	// Reanudar con otro ticket: guard no matchea, no-op.
	resumed, err := svc.ResumeForTicket(ctx, "A", "t-otro")
	if err != nil || resumed {
		t.Fatalf("expected no-op resume for foreign ticket, got resumed=%v err=%v", resumed, err)
	}

	// Reanudar con el ticket correcto.
	resumed, err = svc.ResumeForTicket(ctx, "A", "t-1")
	if err != nil || !resumed {
		t.Fatalf("expected resume, got resumed=%v err=%v", resumed, err)
	}
	c, _ = svc.Get("A")
	cur, _ = history.Current(c.History)
	if cur.Situacion != string(SituacionEnProceso) || cur.LinkedTicketID != "" {
		t.Fatalf("expected resumed En Proceso entry without ticket, got %+v", cur)
	}
}

func TestPauseForTicket_NoOpCases(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	// Círculo inexistente: no-op silencioso.
	if _, paused, err := svc.PauseForTicket(ctx, "nope", "t-1", "x"); err != nil || paused {
		t.Fatalf("expected silent no-op for missing circle, got paused=%v err=%v", paused, err)
	}

	// Situación Finalizado: nada que frenar.
	mustCreate(t, svc, "A")
	if _, err := svc.AppendActivity(ctx, "A", ActivityInput{
		Activity:  actPtr(ActivityCorte),
		Situacion: sitPtr(SituacionFinalizado),
	}); err != nil {
		t.Fatalf("corte: %v", err)
	}
	if _, paused, err := svc.PauseForTicket(ctx, "A", "t-1", "x"); err != nil || paused {
		t.Fatalf("expected no-op for Finalizado, got paused=%v err=%v", paused, err)
	}
}

func TestDoublePause_LastPauseWins(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustCreate(t, svc, "A")

	if _, err := svc.AppendActivity(ctx, "A", ActivityInput{
		Activity:  actPtr(ActivityCorte),
		Situacion: sitPtr(SituacionEnProceso),
	}); err != nil {
		t.Fatalf("corte: %v", err)
	}

	if _, paused, _ := svc.PauseForTicket(ctx, "A", "t-1", "primero"); !paused {
		t.Fatal("expected first pause")
	}
	// El segundo freno cierra el primero y abre el suyo: gana el más reciente.
	if _, paused, _ := svc.PauseForTicket(ctx, "A", "t-2", "segundo"); !paused {
		t.Fatal("expected second pause to supersede the first")
	}

	// t-1 ya no es el freno vigente: su resume es no-op.
	if resumed, _ := svc.ResumeForTicket(ctx, "A", "t-1"); resumed {
		t.Fatal("expected t-1 resume no-op after being superseded")
	}
	if resumed, _ := svc.ResumeForTicket(ctx, "A", "t-2"); !resumed {
		t.Fatal("expected t-2 resume")
	}

	c, _ := svc.Get("A")
	cur, _ := history.Current(c.History)
	if cur.Situacion != string(SituacionEnProceso) {
		t.Fatalf("expected circle resumed, got %+v", cur)
	}
}

func TestLogIrrigation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	mustCreate(t, svc, "A")

	start := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	stop := start.Add(2 * time.Hour)

	entry, err := svc.LogIrrigation(ctx, "A", "pivot-1", start, stop)
	if err != nil {
		t.Fatalf("log irrigation: %v", err)
	}
	if entry.DurationHours != 2.0 {
		t.Fatalf("expected 2.0 hours, got %v", entry.DurationHours)
	}
	if entry.EndDate == nil {
		t.Fatal("expected session entry closed")
	}

	c, _ := svc.Get("A")
	if len(c.RiegoHistory) != 1 || c.RiegoHistory[0].PivotID != "pivot-1" {
		t.Fatalf("expected 1 riego entry for pivot-1, got %+v", c.RiegoHistory)
	}

	// Reloj hacia atrás: duración nunca negativa.
	entry, err = svc.LogIrrigation(ctx, "A", "pivot-1", stop, start)
	if err != nil {
		t.Fatalf("log irrigation: %v", err)
	}
	if entry.DurationHours != 0 {
		t.Fatalf("expected clamped 0 hours, got %v", entry.DurationHours)
	}
}

func mustState(t *testing.T, svc *Service, name string) State {
	t.Helper()
	c, err := svc.Get(name)
	if err != nil {
		t.Fatalf("get %s: %v", name, err)
	}
	return c.CurrentState()
}

func actPtr(a Activity) *Activity   { return &a }
func sitPtr(s Situacion) *Situacion { return &s }
