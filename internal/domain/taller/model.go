package taller

import (
	"time"

	"github.com/Fredxxo/campo/internal/ports/docstore"
)

// Status de un ticket de taller.
type Status string

const (
	StatusPendiente          Status = "Pendiente"
	StatusEnReparacion       Status = "En reparación"
	StatusEsperandoRepuestos Status = "Esperando repuestos"
	StatusCompletado         Status = "Completado"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusPendiente, StatusEnReparacion, StatusEsperandoRepuestos, StatusCompletado:
		return true
	default:
		return false
	}
}

// Ticket es una orden de reparación del taller. Si Sector coincide con un
// círculo, el alta del ticket intenta frenar su actividad; LinkedCircle y
// LinkedEntryID guardan la referencia débil a esa pausa.
type Ticket struct {
	ID          string
	Description string
	Category    string
	Sector      string
	Operator    string
	UID         string
	Status      Status
	Date        string // fecha declarada por el operario, YYYY-MM-DD

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	LinkedCircle  string
	LinkedEntryID string
}

const (
	fieldDescription = "description"
	fieldCategory    = "category"
	fieldSector      = "sector"
	fieldOperator    = "operator"
	fieldUID         = "uid"
	fieldStatus      = "status"
	fieldDate        = "date"
	fieldCreatedAt   = "createdAt"
	fieldStartedAt   = "startedAt"
	fieldCompletedAt = "completedAt"
	fieldLinkedCirc  = "linkedCircle"
	fieldLinkedEntry = "linkedEntryId"
)

func FromDocument(doc docstore.Document) Ticket {
	t := Ticket{ID: doc.ID}
	t.Description = asString(doc.Fields[fieldDescription])
	t.Category = asString(doc.Fields[fieldCategory])
	t.Sector = asString(doc.Fields[fieldSector])
	t.Operator = asString(doc.Fields[fieldOperator])
	t.UID = asString(doc.Fields[fieldUID])
	t.Status = Status(asString(doc.Fields[fieldStatus]))
	t.Date = asString(doc.Fields[fieldDate])
	if ts, ok := asTime(doc.Fields[fieldCreatedAt]); ok {
		t.CreatedAt = ts
	}
	if ts, ok := asTime(doc.Fields[fieldStartedAt]); ok {
		t.StartedAt = &ts
	}
	if ts, ok := asTime(doc.Fields[fieldCompletedAt]); ok {
		t.CompletedAt = &ts
	}
	t.LinkedCircle = asString(doc.Fields[fieldLinkedCirc])
	t.LinkedEntryID = asString(doc.Fields[fieldLinkedEntry])
	return t
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
