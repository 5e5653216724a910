package pivots

import (
	"time"

	"github.com/Fredxxo/campo/internal/ports/docstore"
)

// Pivot es un equipo de riego. La sesión activa vive acá solo como puntero
// (círculo + hora de arranque); el registro definitivo queda en el
// riegoHistory del círculo al frenar.
type Pivot struct {
	ID           string
	Name         string
	ActiveCircle *string
	SessionStart *time.Time
	LastCircle   string
}

// Active indica si el pivote tiene una sesión de riego en curso.
func (p Pivot) Active() bool {
	return p.ActiveCircle != nil && p.SessionStart != nil
}

const (
	fieldName         = "name"
	fieldActiveCircle = "activeCircleId"
	fieldSessionStart = "sessionStartTime"
	fieldLastCircle   = "lastCircleId"
)

func FromDocument(doc docstore.Document) Pivot {
	p := Pivot{ID: doc.ID}
	if v, ok := doc.Fields[fieldName].(string); ok {
		p.Name = v
	}
	if v, ok := doc.Fields[fieldActiveCircle].(string); ok && v != "" {
		p.ActiveCircle = &v
	}
	if v, ok := doc.Fields[fieldSessionStart].(string); ok && v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			p.SessionStart = &t
		}
	}
	if v, ok := doc.Fields[fieldLastCircle].(string); ok {
		p.LastCircle = v
	}
	return p
}
