package history

import "time"

// Kind distingue los tres logs que viven en un círculo. El kind decide el
// payload inicial y si el log puede quedar vacío tras un borrado.
type Kind string

const (
	KindActivity Kind = "activity" // historia de actividades (corte/rastrillado/enfardado)
	KindStatus   Kind = "status"   // historia de alertas
	KindRiego    Kind = "riego"    // sesiones de riego materializadas
)

// Entry es la unidad atómica de los logs append-only. EndDate == nil marca la
// entrada abierta (= estado actual); dentro de un log hay a lo sumo una.
// Los campos de payload son opcionales y dependen del kind.
type Entry struct {
	ID        string
	StartDate time.Time
	EndDate   *time.Time

	Activity       string
	Situacion      string
	Alert          string
	Quantity       int
	Weight         float64
	Quality        string
	PauseReason    string
	LinkedTicketID string
	PivotID        string
	DurationHours  float64
}

// Open informa si la entrada sigue en efecto.
func (e Entry) Open() bool {
	return e.EndDate == nil
}

// Changes expresa un merge carry-forward: los campos no-nil pisan el valor de
// la entrada anterior, el resto se arrastra. Un puntero a valor cero limpia el
// campo (p.ej. LinkedTicketID al reanudar).
type Changes struct {
	Activity       *string
	Situacion      *string
	Alert          *string
	Quantity       *int
	Weight         *float64
	Quality        *string
	PauseReason    *string
	LinkedTicketID *string
	PivotID        *string
	DurationHours  *float64
}

// Ptr ayuda a armar Changes inline.
func Ptr[T any](v T) *T { return &v }
