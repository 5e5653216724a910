package reports

import (
	"testing"
	"time"

	"github.com/Fredxxo/campo/internal/domain/circles"
	"github.com/Fredxxo/campo/internal/domain/history"
	"github.com/Fredxxo/campo/internal/domain/taller"
	"github.com/Fredxxo/campo/internal/domain/ventas"
)

func entry(id string, start time.Time, activity, situacion, alert string) history.Entry {
	return history.Entry{
		ID:        id,
		StartDate: start,
		Activity:  activity,
		Situacion: situacion,
		Alert:     alert,
	}
}

func TestMonthlyCortesClassifiesByPreviousAlert(t *testing.T) {
	jan := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC)

	cs := []circles.Circle{
		{
			Name: "A",
			History: []history.Entry{
				// El estado previo al corte con alerta urgente.
				entry("1", jan, "", "Iniciado", "Cortar urgente"),
				entry("2", jan.Add(24*time.Hour), "Corte", "Iniciado", ""),
				// Cambio de situación dentro del mismo corte no cuenta de nuevo.
				entry("3", jan.Add(48*time.Hour), "Corte", "En Proceso", ""),
			},
		},
		{
			Name: "B",
			History: []history.Entry{
				// Corte sin entrada previa: alerta Normal.
				entry("4", feb, "Corte", "Iniciado", ""),
			},
		},
		{
			Name:    "Borrado",
			Deleted: true,
			History: []history.Entry{entry("5", feb, "Corte", "Iniciado", "")},
		},
	}

	got := MonthlyCortes(cs)
	if len(got) != 2 {
		t.Fatalf("expected 2 months, got %d: %+v", len(got), got)
	}
	// Más nuevo primero.
	if got[0].Month != "2025-02" || got[1].Month != "2025-01" {
		t.Fatalf("expected [2025-02 2025-01], got %+v", got)
	}
	if got[0].Total != 1 || got[0].ByAlert["Normal"] != 1 {
		t.Fatalf("expected one Normal cut in feb, got %+v", got[0])
	}
	if got[1].Total != 1 || got[1].ByAlert["Cortar urgente"] != 1 {
		t.Fatalf("expected one urgent cut in jan, got %+v", got[1])
	}
	if got[1].Events[0].Circle != "A" {
		t.Fatalf("expected event from A, got %+v", got[1].Events)
	}
}

func TestMonthlyEnfardadosSumsByQuality(t *testing.T) {
	mar := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	e1 := entry("1", mar, "Enfardado", "Iniciado", "")
	e1.Quantity, e1.Weight, e1.Quality = 100, 2500, "Buena"
	// Misma actividad, solo cambia situación: no es otra producción.
	e2 := entry("2", mar.Add(time.Hour), "Enfardado", "Finalizado", "")
	e2.Quantity, e2.Weight, e2.Quality = 100, 2500, "Buena"

	e3 := entry("3", mar.Add(48*time.Hour), "Enfardado", "Iniciado", "")
	e3.Quantity, e3.Weight, e3.Quality = 40, 900, "Regular"

	cs := []circles.Circle{
		{Name: "A", History: []history.Entry{e1, e2}},
		{Name: "B", History: []history.Entry{e3}},
	}

	got := MonthlyEnfardados(cs)
	if len(got) != 1 {
		t.Fatalf("expected 1 month, got %+v", got)
	}
	m := got[0]
	if m.Quantity != 140 || m.Weight != 3400 {
		t.Fatalf("expected 140/3400, got %d/%v", m.Quantity, m.Weight)
	}
	if b := m.ByQuality["Buena"]; b.Quantity != 100 || b.Weight != 2500 {
		t.Fatalf("unexpected Buena bucket: %+v", b)
	}
	if b := m.ByQuality["Regular"]; b.Quantity != 40 || b.Weight != 900 {
		t.Fatalf("unexpected Regular bucket: %+v", b)
	}
}

func TestCircleStats(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	enf := entry("3", base.Add(48*time.Hour), "Enfardado", "Iniciado", "")
	enf.Quantity, enf.Weight = 80, 1800

	cs := []circles.Circle{
		{
			Name:     "A",
			Hectares: 60,
			History: []history.Entry{
				entry("1", base, "Corte", "Iniciado", ""),
				entry("2", base.Add(24*time.Hour), "Rastrillado", "Iniciado", ""),
				enf,
			},
		},
	}

	got := CircleStats(cs)
	if len(got) != 1 {
		t.Fatalf("expected 1 stat, got %+v", got)
	}
	st := got[0]
	if st.Cuts != 1 || st.Quantity != 80 || st.Weight != 1800 || st.Entries != 3 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestAlertCounts(t *testing.T) {
	now := time.Now()
	cs := []circles.Circle{
		{Name: "A", History: []history.Entry{entry("1", now, "Corte", "Iniciado", "Pasado")}},
		{Name: "B", History: []history.Entry{entry("2", now, "", "Iniciado", "")}},
		{Name: "C"},
		{Name: "D", Deleted: true, History: []history.Entry{entry("3", now, "", "", "Pasado")}},
	}

	got := AlertCounts(cs)
	if got["Pasado"] != 1 || got["Normal"] != 2 {
		t.Fatalf("unexpected counts: %+v", got)
	}
}

func TestRecentActivityOrderAndLimit(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var cs []circles.Circle
	for i := 0; i < 3; i++ {
		c := circles.Circle{Name: string(rune('A' + i))}
		for j := 0; j < 10; j++ {
			c.History = append(c.History, entry(
				c.Name+"-"+time.Duration(j).String(),
				base.Add(time.Duration(i*10+j)*time.Hour),
				"Corte", "Iniciado", "",
			))
		}
		cs = append(cs, c)
	}

	got := RecentActivity(cs, 5)
	if len(got) != 5 {
		t.Fatalf("expected 5 events, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].StartDate.After(got[i-1].StartDate) {
			t.Fatalf("not sorted desc at %d: %+v", i, got)
		}
	}
	// El más nuevo es la última entrada del último círculo.
	if got[0].Circle != "C" {
		t.Fatalf("expected newest from C, got %+v", got[0])
	}
}

func TestTallerFolds(t *testing.T) {
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	ts := []taller.Ticket{
		{ID: "1", Description: "a", Category: "Mecánica", Status: taller.StatusCompletado, CreatedAt: jan},
		{ID: "2", Description: "b", Category: "Mecánica", Status: taller.StatusPendiente, CreatedAt: jan.Add(time.Hour)},
		{ID: "3", Description: "c", Status: taller.StatusPendiente, CreatedAt: jan.AddDate(0, 1, 0)},
	}

	monthly := TallerMonthly(ts)
	if len(monthly) != 2 || monthly[0].Month != "2025-02" {
		t.Fatalf("unexpected monthly: %+v", monthly)
	}
	if monthly[1].Total != 2 || monthly[1].Completed != 1 || monthly[1].Pending != 1 {
		t.Fatalf("unexpected jan: %+v", monthly[1])
	}
	if monthly[1].ByCategory["Mecánica"] != 2 {
		t.Fatalf("unexpected categories: %+v", monthly[1].ByCategory)
	}

	cats := TallerByCategory(ts, 1)
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %+v", cats)
	}
	mec := cats[0]
	if mec.Category != "Mecánica" || mec.Total != 2 || mec.Completed != 1 {
		t.Fatalf("unexpected Mecánica: %+v", mec)
	}
	if len(mec.Recent) != 1 || mec.Recent[0].ID != "2" {
		t.Fatalf("expected newest ticket only, got %+v", mec.Recent)
	}
}

func TestVentasMonthly(t *testing.T) {
	ss := []ventas.Sale{
		{ID: "1", Date: "2025-01-10", Quantity: 50, Total: 1000},
		{ID: "2", Date: "2025-01-20", Quantity: 30, Total: 600},
		{ID: "3", Date: "2025-03-01", Quantity: 10, Total: 200},
		{ID: "4", Date: "", Quantity: 99, Total: 9999}, // sin fecha: se ignora
	}

	got := VentasMonthly(ss)
	if len(got) != 2 || got[0].Month != "2025-03" {
		t.Fatalf("unexpected months: %+v", got)
	}
	jan := got[1]
	if jan.Count != 2 || jan.Quantity != 80 || jan.Total != 1600 {
		t.Fatalf("unexpected jan: %+v", jan)
	}
}
