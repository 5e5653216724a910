package circles

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Fredxxo/campo/internal/domain/history"
	"github.com/Fredxxo/campo/internal/platform/logger"
	"github.com/Fredxxo/campo/internal/ports/docstore"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("circle not found")
	ErrExists       = errors.New("circle already exists")
)

// Service mantiene un snapshot local de la colección circles (reconstruido
// entero en cada notificación del store) y escribe mutaciones como merge por
// documento.
//
// La secuencia leer-snapshot / computar / escribir no es atómica: dos clientes
// mutando el mismo círculo a la vez resuelven por last-write-wins a nivel del
// merge de documento. Limitación aceptada del dominio (un solo operador en la
// práctica), no se "arregla" con locks distribuidos.
type Service struct {
	store docstore.Store
	log   logger.Logger
	now   func() time.Time

	mu     sync.RWMutex
	byName map[string]Circle

	unsub func()
}

func NewService(store docstore.Store, log logger.Logger) *Service {
	s := &Service{
		store:  store,
		log:    log,
		now:    time.Now,
		byName: make(map[string]Circle),
	}
	s.unsub = store.Subscribe(docstore.CollectionCircles, s.onSnapshot)
	return s
}

func (s *Service) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}

// onSnapshot reemplaza el estado derivado completo; nunca lo parchea. Correr
// esto repetidamente con el mismo snapshot es seguro.
func (s *Service) onSnapshot(docs []docstore.Document) {
	next := make(map[string]Circle, len(docs))
	for _, doc := range docs {
		next[doc.ID] = FromDocument(doc)
	}

	s.mu.Lock()
	s.byName = next
	s.mu.Unlock()
}

type CreateInput struct {
	Name     string
	Hectares float64
	Lat      float64
	Lng      float64
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Circle, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Circle{}, ErrInvalidInput
	}
	if in.Hectares < 0 {
		return Circle{}, ErrInvalidInput
	}

	s.mu.RLock()
	_, exists := s.byName[name]
	s.mu.RUnlock()
	if exists {
		return Circle{}, ErrExists
	}

	fields := map[string]any{
		fieldHectares:      in.Hectares,
		fieldDeleted:       false,
		fieldLat:           in.Lat,
		fieldLng:           in.Lng,
		fieldHistory:       []any{},
		fieldStatusHistory: []any{},
		fieldRiegoHistory:  []any{},
	}
	if err := s.store.UpsertMerge(ctx, docstore.CollectionCircles, name, fields); err != nil {
		return Circle{}, fmt.Errorf("create circle: %w", err)
	}

	return Circle{Name: name, Hectares: in.Hectares, Lat: in.Lat, Lng: in.Lng}, nil
}

func (s *Service) Get(name string) (Circle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byName[strings.TrimSpace(name)]
	if !ok || c.Deleted {
		return Circle{}, ErrNotFound
	}
	return c, nil
}

// List devuelve los círculos no borrados, ordenados por nombre.
func (s *Service) List() []Circle {
	s.mu.RLock()
	out := make([]Circle, 0, len(s.byName))
	for _, c := range s.byName {
		if c.Deleted {
			continue
		}
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetHectares edita el escalar sin tocar los logs. Si la escritura remota
// falla no hay rollback: el snapshot viejo sigue vigente hasta la próxima
// notificación y el error se reporta al caller.
func (s *Service) SetHectares(ctx context.Context, name string, hectares float64) error {
	if hectares < 0 {
		return ErrInvalidInput
	}
	if _, err := s.Get(name); err != nil {
		return err
	}
	return s.store.UpsertMerge(ctx, docstore.CollectionCircles, name, map[string]any{
		fieldHectares: hectares,
	})
}

func (s *Service) SetPosition(ctx context.Context, name string, lat, lng float64) error {
	if _, err := s.Get(name); err != nil {
		return err
	}
	return s.store.UpsertMerge(ctx, docstore.CollectionCircles, name, map[string]any{
		fieldLat: lat,
		fieldLng: lng,
	})
}

// SoftDelete marca el círculo como borrado; los logs quedan en el documento.
func (s *Service) SoftDelete(ctx context.Context, name string) error {
	if _, err := s.Get(name); err != nil {
		return err
	}
	return s.store.UpsertMerge(ctx, docstore.CollectionCircles, name, map[string]any{
		fieldDeleted: true,
	})
}

// ActivityInput describe un append al log de actividad. Activity nil significa
// solo cambio de situación. Production se exige para Enfardado.
type ActivityInput struct {
	Activity   *Activity
	Situacion  *Situacion
	Production *Production
}

// AppendActivity valida la transición contra el estado actual y, si pasa,
// cierra la entrada abierta y agrega la nueva (merge carry-forward). Un
// rechazo no escribe nada: ni log, ni store.
func (s *Service) AppendActivity(ctx context.Context, name string, in ActivityInput) (history.Entry, error) {
	c, err := s.Get(name)
	if err != nil {
		return history.Entry{}, err
	}
	if in.Activity == nil && in.Situacion == nil {
		return history.Entry{}, ErrInvalidInput
	}

	ch := history.Changes{}
	if in.Activity != nil {
		cur := c.CurrentState().Activity
		if err := ValidateTransition(cur, *in.Activity, in.Production); err != nil {
			return history.Entry{}, err
		}
		ch.Activity = history.Ptr(string(*in.Activity))
		// Una actividad nueva abre un tramo de trabajo nuevo.
		if in.Situacion == nil {
			ch.Situacion = history.Ptr(string(SituacionIniciado))
		}
		if *in.Activity == ActivityEnfardado && in.Production != nil {
			ch.Quantity = history.Ptr(in.Production.Quantity)
			ch.Weight = history.Ptr(in.Production.Weight)
			ch.Quality = history.Ptr(in.Production.Quality)
		}
	}
	if in.Situacion != nil {
		ch.Situacion = history.Ptr(string(*in.Situacion))
	}

	now := s.now()
	newLog := history.Append(history.KindActivity, c.History, ch, now)

	err = s.store.UpsertMerge(ctx, docstore.CollectionCircles, name, map[string]any{
		fieldHistory: history.EncodeEntries(newLog),
	})
	if err != nil {
		return history.Entry{}, fmt.Errorf("append activity: %w", err)
	}

	entry, _ := history.Current(newLog)
	return entry, nil
}

// SetAlert cambia la alerta. El cambio se agrega al log de actividad (para que
// la entrada previa a un Corte refleje el estado que lo gatilló) y además como
// entrada pura en statusHistory. Limpiar a Normal solo se permite con el ciclo
// cerrado en Enfardado.
func (s *Service) SetAlert(ctx context.Context, name string, alert Alert) error {
	c, err := s.Get(name)
	if err != nil {
		return err
	}
	if err := ValidateAlertChange(c.CurrentState().Activity, alert); err != nil {
		return err
	}

	now := s.now()
	newHist := history.Append(history.KindActivity, c.History, history.Changes{
		Alert: history.Ptr(string(alert)),
	}, now)
	newStatus := history.Append(history.KindStatus, c.StatusHistory, history.Changes{
		Alert: history.Ptr(string(alert)),
	}, now)

	err = s.store.UpsertMerge(ctx, docstore.CollectionCircles, name, map[string]any{
		fieldHistory:       history.EncodeEntries(newHist),
		fieldStatusHistory: history.EncodeEntries(newStatus),
	})
	if err != nil {
		return fmt.Errorf("set alert: %w", err)
	}
	return nil
}

// DeleteEntry borra una entrada por id. El log de actividad nunca queda vacío
// (se re-siembra); status y riego pueden quedar vacíos.
func (s *Service) DeleteEntry(ctx context.Context, name string, kind LogKind, entryID string) error {
	c, err := s.Get(name)
	if err != nil {
		return err
	}
	if strings.TrimSpace(entryID) == "" {
		return ErrInvalidInput
	}

	now := s.now()
	fields := map[string]any{}
	switch kind {
	case LogActivity:
		fields[fieldHistory] = history.EncodeEntries(history.Delete(history.KindActivity, c.History, entryID, now))
	case LogStatus:
		fields[fieldStatusHistory] = history.EncodeEntries(history.Delete(history.KindStatus, c.StatusHistory, entryID, now))
	case LogRiego:
		fields[fieldRiegoHistory] = history.EncodeEntries(history.Delete(history.KindRiego, c.RiegoHistory, entryID, now))
	default:
		return ErrInvalidInput
	}

	return s.store.UpsertMerge(ctx, docstore.CollectionCircles, name, fields)
}

// --- Coordinador de efectos cruzados -----------------------------------
//
// Estas operaciones las invocan taller y pivots. Tocan dos documentos sin
// transacción (saga de dos pasos): el paso acá definido es no-op silencioso
// cuando el círculo no existe o el guard no matchea.

// PauseForTicket frena la actividad abierta del círculo si está en Iniciado o
// En Proceso. Devuelve el id de la entrada Frenado creada (back-reference para
// el ticket) y false si no había nada que frenar.
func (s *Service) PauseForTicket(ctx context.Context, name, ticketID, reason string) (string, bool, error) {
	c, err := s.Get(name)
	if err != nil {
		// Círculo ausente: no hay nada que frenar.
		return "", false, nil
	}

	cur, ok := history.Current(c.History)
	if !ok || cur.EndDate != nil {
		return "", false, nil
	}
	// Se frena trabajo activo. Un círculo ya frenado se puede volver a frenar:
	// el freno más reciente gana y el resume del ticket anterior queda en no-op
	// (no hay pila de pausas anidadas).
	sit := Situacion(cur.Situacion)
	if sit != SituacionIniciado && sit != SituacionEnProceso && sit != SituacionFrenado {
		return "", false, nil
	}

	now := s.now()
	newLog := history.Append(history.KindActivity, c.History, history.Changes{
		Situacion:      history.Ptr(string(SituacionFrenado)),
		PauseReason:    history.Ptr(reason),
		LinkedTicketID: history.Ptr(ticketID),
	}, now)

	err = s.store.UpsertMerge(ctx, docstore.CollectionCircles, name, map[string]any{
		fieldHistory: history.EncodeEntries(newLog),
	})
	if err != nil {
		return "", false, fmt.Errorf("pause circle %s: %w", name, err)
	}

	entry, _ := history.Current(newLog)
	s.log.Info("circle paused by ticket", map[string]any{
		"circle": name,
		"ticket": ticketID,
	})
	return entry.ID, true, nil
}

// ResumeForTicket reanuda el círculo solo si la entrada abierta es el Frenado
// creado por este mismo ticket. Un guard que no matchea (otro ticket frenó
// después, o no hay freno) es un no-op, no un error.
func (s *Service) ResumeForTicket(ctx context.Context, name, ticketID string) (bool, error) {
	c, err := s.Get(name)
	if err != nil {
		return false, nil
	}

	cur, ok := history.Current(c.History)
	if !ok || cur.EndDate != nil {
		return false, nil
	}
	if Situacion(cur.Situacion) != SituacionFrenado || cur.LinkedTicketID != ticketID {
		return false, nil
	}

	now := s.now()
	newLog := history.Append(history.KindActivity, c.History, history.Changes{
		Situacion:      history.Ptr(string(SituacionEnProceso)),
		PauseReason:    history.Ptr(""),
		LinkedTicketID: history.Ptr(""),
	}, now)

	err = s.store.UpsertMerge(ctx, docstore.CollectionCircles, name, map[string]any{
		fieldHistory: history.EncodeEntries(newLog),
	})
	if err != nil {
		return false, fmt.Errorf("resume circle %s: %w", name, err)
	}

	s.log.Info("circle resumed after ticket", map[string]any{
		"circle": name,
		"ticket": ticketID,
	})
	return true, nil
}

// LogIrrigation materializa una sesión de riego terminada como entrada cerrada
// en el log de riego del círculo destino (el reporte siempre es "horas por
// círculo"; el pivot no guarda historia).
func (s *Service) LogIrrigation(ctx context.Context, name, pivotID string, start, stop time.Time) (history.Entry, error) {
	c, err := s.Get(name)
	if err != nil {
		return history.Entry{}, err
	}

	hours := stop.Sub(start).Hours()
	if hours < 0 {
		hours = 0
	}

	end := stop
	entry := history.Entry{
		ID:            history.NewID(stop),
		StartDate:     start,
		EndDate:       &end,
		PivotID:       pivotID,
		DurationHours: hours,
	}

	newLog := make([]history.Entry, len(c.RiegoHistory), len(c.RiegoHistory)+1)
	copy(newLog, c.RiegoHistory)
	newLog = append(newLog, entry)

	err = s.store.UpsertMerge(ctx, docstore.CollectionCircles, name, map[string]any{
		fieldRiegoHistory: history.EncodeEntries(newLog),
	})
	if err != nil {
		return history.Entry{}, fmt.Errorf("log irrigation: %w", err)
	}
	return entry, nil
}
