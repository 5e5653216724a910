package circles

// Activity es la etapa del ciclo de cosecha.
type Activity string

const (
	ActivityNone        Activity = ""
	ActivityCorte       Activity = "Corte"
	ActivityRastrillado Activity = "Rastrillado"
	ActivityEnfardado   Activity = "Enfardado"
)

// Situacion marca el ciclo de vida de la entrada de actividad abierta.
type Situacion string

const (
	SituacionIniciado   Situacion = "Iniciado"
	SituacionEnProceso  Situacion = "En Proceso"
	SituacionFinalizado Situacion = "Finalizado"
	SituacionFrenado    Situacion = "Frenado"
)

// Alert es la señal de urgencia de corte, independiente de la actividad.
type Alert string

const (
	AlertNone    Alert = ""
	AlertListo   Alert = "Listo para cortar"
	AlertUrgente Alert = "Cortar urgente"
	AlertPasado  Alert = "Pasado"
)

// LogKind identifica cada log del círculo en la API.
type LogKind string

const (
	LogActivity LogKind = "activity"
	LogStatus   LogKind = "status"
	LogRiego    LogKind = "riego"
)
