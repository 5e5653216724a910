package circles

import (
	"github.com/Fredxxo/campo/internal/domain/history"
	"github.com/Fredxxo/campo/internal/ports/docstore"
)

const (
	fieldHectares      = "hectares"
	fieldDeleted       = "deleted"
	fieldLat           = "lat"
	fieldLng           = "lng"
	fieldHistory       = "history"
	fieldStatusHistory = "statusHistory"
	fieldRiegoHistory  = "riegoHistory"
)

// FromDocument decodifica un documento de la colección circles. Los logs se
// reordenan por startDate como fallback defensivo frente a snapshots de
// origen externo; el invariante primario sigue siendo append-only.
func FromDocument(doc docstore.Document) Circle {
	c := Circle{
		Name:          doc.ID,
		Hectares:      asFloat(doc.Fields[fieldHectares]),
		Lat:           asFloat(doc.Fields[fieldLat]),
		Lng:           asFloat(doc.Fields[fieldLng]),
		Deleted:       asBool(doc.Fields[fieldDeleted]),
		History:       history.DecodeEntries(doc.Fields[fieldHistory]),
		StatusHistory: history.DecodeEntries(doc.Fields[fieldStatusHistory]),
		RiegoHistory:  history.DecodeEntries(doc.Fields[fieldRiegoHistory]),
	}
	history.SortByStartDate(c.History)
	history.SortByStartDate(c.StatusHistory)
	history.SortByStartDate(c.RiegoHistory)
	return c
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	default:
		return 0
	}
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
