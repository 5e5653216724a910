package reports

import (
	"sort"
	"time"

	"github.com/Fredxxo/campo/internal/domain/circles"
	"github.com/Fredxxo/campo/internal/domain/taller"
	"github.com/Fredxxo/campo/internal/domain/ventas"
)

// Los reportes son folds puros sobre los snapshots completos: ante cada
// notificación se recalcula todo. Con decenas de círculos la simplicidad
// vale más que un update incremental.

const alertNormal = "Normal"

type CorteEvent struct {
	Circle string    `json:"circle"`
	Date   time.Time `json:"date"`
	Alert  string    `json:"alert"`
}

type MonthlyCorte struct {
	Month   string         `json:"month"` // YYYY-MM
	Total   int            `json:"total"`
	ByAlert map[string]int `json:"by_alert"`
	Events  []CorteEvent   `json:"events"`
}

// MonthlyCortes cuenta los arranques de Corte por mes. Un corte se cuenta
// cuando la entrada es Corte y la anterior no lo era; la urgencia que lo
// disparó es la alerta de la entrada *anterior* (el estado que motivó el
// corte), no la del corte mismo.
func MonthlyCortes(cs []circles.Circle) []MonthlyCorte {
	byMonth := make(map[string]*MonthlyCorte)

	for _, c := range cs {
		if c.Deleted {
			continue
		}
		for i, e := range c.History {
			if e.Activity != string(circles.ActivityCorte) {
				continue
			}
			if i > 0 && c.History[i-1].Activity == string(circles.ActivityCorte) {
				continue
			}

			alert := alertNormal
			if i > 0 && c.History[i-1].Alert != "" {
				alert = c.History[i-1].Alert
			}

			month := e.StartDate.Format("2006-01")
			m := byMonth[month]
			if m == nil {
				m = &MonthlyCorte{Month: month, ByAlert: make(map[string]int)}
				byMonth[month] = m
			}
			m.Total++
			m.ByAlert[alert]++
			m.Events = append(m.Events, CorteEvent{Circle: c.Name, Date: e.StartDate, Alert: alert})
		}
	}

	return sortMonths(byMonth)
}

type ProductionEvent struct {
	Circle   string    `json:"circle"`
	Date     time.Time `json:"date"`
	Quantity int       `json:"quantity"`
	Weight   float64   `json:"weight"`
	Quality  string    `json:"quality"`
}

type QualityBucket struct {
	Quantity int     `json:"quantity"`
	Weight   float64 `json:"weight"`
}

type MonthlyProduction struct {
	Month     string                   `json:"month"`
	Quantity  int                      `json:"quantity"`
	Weight    float64                  `json:"weight"`
	ByQuality map[string]QualityBucket `json:"by_quality"`
	Events    []ProductionEvent        `json:"events"`
}

// MonthlyEnfardados suma la producción (fardos y kilos) por mes, abierta por
// calidad. Cuenta el arranque de cada Enfardado, igual que los cortes.
func MonthlyEnfardados(cs []circles.Circle) []MonthlyProduction {
	byMonth := make(map[string]*MonthlyProduction)

	for _, c := range cs {
		if c.Deleted {
			continue
		}
		for i, e := range c.History {
			if e.Activity != string(circles.ActivityEnfardado) {
				continue
			}
			if i > 0 && c.History[i-1].Activity == string(circles.ActivityEnfardado) {
				continue
			}

			month := e.StartDate.Format("2006-01")
			m := byMonth[month]
			if m == nil {
				m = &MonthlyProduction{Month: month, ByQuality: make(map[string]QualityBucket)}
				byMonth[month] = m
			}
			m.Quantity += e.Quantity
			m.Weight += e.Weight
			if e.Quality != "" {
				b := m.ByQuality[e.Quality]
				b.Quantity += e.Quantity
				b.Weight += e.Weight
				m.ByQuality[e.Quality] = b
			}
			m.Events = append(m.Events, ProductionEvent{
				Circle:   c.Name,
				Date:     e.StartDate,
				Quantity: e.Quantity,
				Weight:   e.Weight,
				Quality:  e.Quality,
			})
		}
	}

	return sortMonthsProduction(byMonth)
}

type CircleStat struct {
	Circle   string  `json:"circle"`
	Hectares float64 `json:"hectares"`
	Cuts     int     `json:"cuts"`
	Quantity int     `json:"quantity"`
	Weight   float64 `json:"weight"`
	Entries  int     `json:"entries"`
}

// CircleStats acumula cortes y producción por círculo, histórico completo.
func CircleStats(cs []circles.Circle) []CircleStat {
	out := make([]CircleStat, 0, len(cs))

	for _, c := range cs {
		if c.Deleted {
			continue
		}
		st := CircleStat{Circle: c.Name, Hectares: c.Hectares, Entries: len(c.History)}
		for i, e := range c.History {
			prev := ""
			if i > 0 {
				prev = c.History[i-1].Activity
			}
			switch e.Activity {
			case string(circles.ActivityCorte):
				if prev != string(circles.ActivityCorte) {
					st.Cuts++
				}
			case string(circles.ActivityEnfardado):
				if prev != string(circles.ActivityEnfardado) {
					st.Quantity += e.Quantity
					st.Weight += e.Weight
				}
			}
		}
		out = append(out, st)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Circle < out[j].Circle })
	return out
}

type TallerMonth struct {
	Month      string         `json:"month"`
	Total      int            `json:"total"`
	Completed  int            `json:"completed"`
	Pending    int            `json:"pending"`
	ByCategory map[string]int `json:"by_category"`
}

// TallerMonthly agrupa tickets por mes de creación.
func TallerMonthly(ts []taller.Ticket) []TallerMonth {
	byMonth := make(map[string]*TallerMonth)

	for _, t := range ts {
		month := t.CreatedAt.Format("2006-01")
		m := byMonth[month]
		if m == nil {
			m = &TallerMonth{Month: month, ByCategory: make(map[string]int)}
			byMonth[month] = m
		}
		m.Total++
		if t.Status == taller.StatusCompletado {
			m.Completed++
		} else {
			m.Pending++
		}
		if t.Category != "" {
			m.ByCategory[t.Category]++
		}
	}

	out := make([]TallerMonth, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

type TicketRef struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type CategoryStat struct {
	Category  string      `json:"category"`
	Total     int         `json:"total"`
	Completed int         `json:"completed"`
	Recent    []TicketRef `json:"recent"`
}

// TallerByCategory acumula por categoría con los últimos tickets de cada una.
func TallerByCategory(ts []taller.Ticket, recentPerCategory int) []CategoryStat {
	if recentPerCategory <= 0 {
		recentPerCategory = 5
	}

	// Más nuevos primero para que Recent quede en orden.
	sorted := make([]taller.Ticket, len(ts))
	copy(sorted, ts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })

	byCat := make(map[string]*CategoryStat)
	for _, t := range sorted {
		cat := t.Category
		if cat == "" {
			cat = "Sin categoría"
		}
		st := byCat[cat]
		if st == nil {
			st = &CategoryStat{Category: cat}
			byCat[cat] = st
		}
		st.Total++
		if t.Status == taller.StatusCompletado {
			st.Completed++
		}
		if len(st.Recent) < recentPerCategory {
			st.Recent = append(st.Recent, TicketRef{
				ID:          t.ID,
				Description: t.Description,
				Status:      string(t.Status),
				CreatedAt:   t.CreatedAt,
			})
		}
	}

	out := make([]CategoryStat, 0, len(byCat))
	for _, st := range byCat {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// AlertCounts cuenta las alertas vigentes sobre la última entrada de
// actividad de cada círculo no borrado.
func AlertCounts(cs []circles.Circle) map[string]int {
	out := make(map[string]int)
	for _, c := range cs {
		if c.Deleted {
			continue
		}
		alert := string(c.CurrentState().Alert)
		if alert == "" {
			alert = alertNormal
		}
		out[alert]++
	}
	return out
}

type ActivityEvent struct {
	Circle    string     `json:"circle"`
	EntryID   string     `json:"entry_id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Activity  string     `json:"activity,omitempty"`
	Situacion string     `json:"situacion,omitempty"`
	Alert     string     `json:"alert,omitempty"`
}

// RecentActivity aplana los logs de actividad de todos los círculos, de la
// entrada más nueva a la más vieja, recortado a limit.
func RecentActivity(cs []circles.Circle, limit int) []ActivityEvent {
	if limit <= 0 {
		limit = 20
	}

	out := make([]ActivityEvent, 0, limit)
	for _, c := range cs {
		if c.Deleted {
			continue
		}
		for _, e := range c.History {
			out = append(out, ActivityEvent{
				Circle:    c.Name,
				EntryID:   e.ID,
				StartDate: e.StartDate,
				EndDate:   e.EndDate,
				Activity:  e.Activity,
				Situacion: e.Situacion,
				Alert:     e.Alert,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].EntryID > out[j].EntryID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

type VentasMonth struct {
	Month    string  `json:"month"`
	Count    int     `json:"count"`
	Quantity int     `json:"quantity"`
	Total    float64 `json:"total"`
}

// VentasMonthly agrupa ventas por el mes de la fecha declarada.
func VentasMonthly(ss []ventas.Sale) []VentasMonth {
	byMonth := make(map[string]*VentasMonth)

	for _, s := range ss {
		if len(s.Date) < 7 {
			continue
		}
		month := s.Date[:7]
		m := byMonth[month]
		if m == nil {
			m = &VentasMonth{Month: month}
			byMonth[month] = m
		}
		m.Count++
		m.Quantity += s.Quantity
		m.Total += s.Total
	}

	out := make([]VentasMonth, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

func sortMonths(byMonth map[string]*MonthlyCorte) []MonthlyCorte {
	out := make([]MonthlyCorte, 0, len(byMonth))
	for _, m := range byMonth {
		sort.Slice(m.Events, func(i, j int) bool { return m.Events[i].Date.After(m.Events[j].Date) })
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

func sortMonthsProduction(byMonth map[string]*MonthlyProduction) []MonthlyProduction {
	out := make([]MonthlyProduction, 0, len(byMonth))
	for _, m := range byMonth {
		sort.Slice(m.Events, func(i, j int) bool { return m.Events[i].Date.After(m.Events[j].Date) })
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}
