package circles

import "github.com/Fredxxo/campo/internal/domain/history"

// Circle representa un lote. El nombre es la clave del documento. El círculo
// es dueño exclusivo de sus tres logs; los tickets de taller solo guardan una
// back-reference (nombre + entry id) hacia el log de actividad.
type Circle struct {
	Name     string
	Hectares float64
	Lat      float64
	Lng      float64
	Deleted  bool

	History       []history.Entry // actividades + situación + snapshot de alerta
	StatusHistory []history.Entry // solo alertas
	RiegoHistory  []history.Entry // sesiones de riego cerradas
}

// State es la proyección pura del estado actual: el último elemento de cada
// log. No tiene efectos secundarios.
type State struct {
	Activity  Activity
	Situacion Situacion
	Alert     Alert
}

// CurrentState deriva el estado actual del círculo.
func (c Circle) CurrentState() State {
	cur, ok := history.Current(c.History)
	if !ok {
		return State{}
	}
	return State{
		Activity:  Activity(cur.Activity),
		Situacion: Situacion(cur.Situacion),
		Alert:     Alert(cur.Alert),
	}
}
