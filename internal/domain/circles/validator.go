package circles

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransition es un rechazo de validación: se reporta al caller antes de
	// cualquier escritura y no deja efectos parciales.
	ErrTransition = errors.New("transition not allowed")

	// ErrProductionIncomplete marca un Enfardado sin los tres datos de
	// producción. El append es atómico: o están todos, o no pasa nada.
	ErrProductionIncomplete = errors.New("enfardado requires quantity, weight and quality")

	// ErrAlertReset marca un intento de volver la alerta a Normal antes de
	// cerrar el ciclo con Enfardado.
	ErrAlertReset = errors.New("alert can only be cleared after enfardado")
)

// Production son los datos que Enfardado exige antes de commitear el append.
type Production struct {
	Quantity int
	Weight   float64
	Quality  string
}

func (p Production) complete() bool {
	return p.Quantity > 0 && p.Weight > 0 && strings.TrimSpace(p.Quality) != ""
}

// ValidateTransition aplica la tabla de reglas de dominio sobre la actividad
// actual (pre-transición). No muta nada.
//
//	Corte:       siempre permitido (punto de entrada del ciclo)
//	Rastrillado: solo después de Corte
//	Enfardado:   solo después de Rastrillado, con producción completa
func ValidateTransition(current, next Activity, prod *Production) error {
	switch next {
	case ActivityCorte:
		return nil
	case ActivityRastrillado:
		if current != ActivityCorte {
			return fmt.Errorf("%w: no se puede rastrillar antes de cortar", ErrTransition)
		}
		return nil
	case ActivityEnfardado:
		if current != ActivityRastrillado {
			return fmt.Errorf("%w: no se puede enfardar antes de rastrillar", ErrTransition)
		}
		if prod == nil || !prod.complete() {
			return ErrProductionIncomplete
		}
		return nil
	default:
		return fmt.Errorf("%w: actividad desconocida %q", ErrTransition, next)
	}
}

// ValidateAlertChange permite cualquier alerta no vacía; limpiar a Normal
// exige que la última actividad del ciclo sea Enfardado.
func ValidateAlertChange(currentActivity Activity, next Alert) error {
	switch next {
	case AlertNone:
		if currentActivity != ActivityEnfardado {
			return ErrAlertReset
		}
		return nil
	case AlertListo, AlertUrgente, AlertPasado:
		return nil
	default:
		return fmt.Errorf("%w: alerta desconocida %q", ErrTransition, next)
	}
}
