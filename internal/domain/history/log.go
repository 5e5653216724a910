package history

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const situacionIniciado = "Iniciado"

// NewID genera un id ordenable por tiempo con desempate aleatorio.
func NewID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), strings.Split(uuid.NewString(), "-")[0])
}

// Append cierra la entrada abierta (si la hay) y agrega una nueva construida
// por carry-forward: los campos de ch pisan, el resto se arrastra de la última
// entrada. Con log vacío sintetiza la entrada inicial desde el payload default
// del kind. Devuelve el log nuevo; nunca muta entradas anteriores salvo el
// cierre de la abierta.
func Append(kind Kind, log []Entry, ch Changes, now time.Time) []Entry {
	out := make([]Entry, len(log), len(log)+1)
	copy(out, log)

	var base Entry
	if len(out) == 0 {
		base = seed(kind)
	} else {
		last := out[len(out)-1]
		if last.EndDate == nil {
			end := now
			last.EndDate = &end
			out[len(out)-1] = last
		}
		base = last
	}

	next := apply(base, ch)
	next.ID = NewID(now)
	next.StartDate = now
	next.EndDate = nil

	return append(out, next)
}

// Delete remueve la entrada por id. Los logs de actividad no pueden quedar
// vacíos: se re-siembran con una entrada default abierta. Una entrada cerrada
// nunca se reabre por el borrado de la abierta.
func Delete(kind Kind, log []Entry, id string, now time.Time) []Entry {
	out := make([]Entry, 0, len(log))
	for _, e := range log {
		if e.ID == id {
			continue
		}
		out = append(out, e)
	}

	if len(out) == 0 && kind == KindActivity {
		e := seed(kind)
		e.ID = NewID(now)
		e.StartDate = now
		out = append(out, e)
	}

	return out
}

// Current devuelve el último elemento del log (== estado actual). El log se
// mantiene en orden de inserción por construcción, así que esto es O(1).
func Current(log []Entry) (Entry, bool) {
	if len(log) == 0 {
		return Entry{}, false
	}
	return log[len(log)-1], true
}

// SortByStartDate reordena por startDate. Es un fallback defensivo para
// snapshots de origen no confiable; el invariante primario es que el log
// jamás se reordena.
func SortByStartDate(log []Entry) {
	sort.SliceStable(log, func(i, j int) bool {
		return log[i].StartDate.Before(log[j].StartDate)
	})
}

func seed(kind Kind) Entry {
	if kind == KindActivity {
		return Entry{Situacion: situacionIniciado}
	}
	return Entry{}
}

func apply(base Entry, ch Changes) Entry {
	e := base
	if ch.Activity != nil {
		e.Activity = *ch.Activity
	}
	if ch.Situacion != nil {
		e.Situacion = *ch.Situacion
	}
	if ch.Alert != nil {
		e.Alert = *ch.Alert
	}
	if ch.Quantity != nil {
		e.Quantity = *ch.Quantity
	}
	if ch.Weight != nil {
		e.Weight = *ch.Weight
	}
	if ch.Quality != nil {
		e.Quality = *ch.Quality
	}
	if ch.PauseReason != nil {
		e.PauseReason = *ch.PauseReason
	}
	if ch.LinkedTicketID != nil {
		e.LinkedTicketID = *ch.LinkedTicketID
	}
	if ch.PivotID != nil {
		e.PivotID = *ch.PivotID
	}
	if ch.DurationHours != nil {
		e.DurationHours = *ch.DurationHours
	}
	return e
}
