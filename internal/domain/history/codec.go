package history

import (
	"strconv"
	"time"
)

// DecodeEntries convierte el valor crudo de un campo del documento (slice de
// maps estilo JSON) en entradas tipadas. Es tolerante con los tipos que
// devuelve el store (números como float64, fechas como string RFC3339).
// Entradas sin id o sin startDate parseable se descartan.
func DecodeEntries(v any) []Entry {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([]Entry, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}

		start, ok := asTime(m["startDate"])
		if !ok {
			continue
		}

		e := Entry{
			ID:             asString(m["id"]),
			StartDate:      start,
			Activity:       asString(m["activity"]),
			Situacion:      asString(m["situacion"]),
			Alert:          asString(m["alert"]),
			Quantity:       asInt(m["quantity"]),
			Weight:         asFloat(m["weight"]),
			Quality:        asString(m["quality"]),
			PauseReason:    asString(m["pauseReason"]),
			LinkedTicketID: asString(m["linkedTicketId"]),
			PivotID:        asString(m["pivotId"]),
			DurationHours:  asFloat(m["durationHours"]),
		}
		if e.ID == "" {
			continue
		}
		if end, ok := asTime(m["endDate"]); ok {
			e.EndDate = &end
		}

		out = append(out, e)
	}

	return out
}

// EncodeEntries serializa el log al formato del documento. Los campos de
// payload en cero se omiten; id/startDate/endDate van siempre.
func EncodeEntries(log []Entry) []any {
	out := make([]any, 0, len(log))
	for _, e := range log {
		m := map[string]any{
			"id":        e.ID,
			"startDate": e.StartDate.UTC().Format(time.RFC3339Nano),
		}
		if e.EndDate != nil {
			m["endDate"] = e.EndDate.UTC().Format(time.RFC3339Nano)
		} else {
			m["endDate"] = nil
		}
		if e.Activity != "" {
			m["activity"] = e.Activity
		}
		if e.Situacion != "" {
			m["situacion"] = e.Situacion
		}
		if e.Alert != "" {
			m["alert"] = e.Alert
		}
		if e.Quantity != 0 {
			m["quantity"] = e.Quantity
		}
		if e.Weight != 0 {
			m["weight"] = e.Weight
		}
		if e.Quality != "" {
			m["quality"] = e.Quality
		}
		if e.PauseReason != "" {
			m["pauseReason"] = e.PauseReason
		}
		if e.LinkedTicketID != "" {
			m["linkedTicketId"] = e.LinkedTicketID
		}
		if e.PivotID != "" {
			m["pivotId"] = e.PivotID
		}
		if e.DurationHours != 0 {
			m["durationHours"] = e.DurationHours
		}
		out = append(out, m)
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}

func asInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if t == "" {
			return time.Time{}, false
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339, t)
		}
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}
