package taller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Fredxxo/campo/internal/platform/logger"
	"github.com/Fredxxo/campo/internal/ports/docstore"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("ticket not found")
)

// Circles es lo que el taller necesita del dominio de círculos: frenar la
// actividad al abrir un ticket contra un sector y reanudarla al cerrarlo.
// Un sector sin círculo es un no-op silencioso del otro lado.
type Circles interface {
	PauseForTicket(ctx context.Context, name, ticketID, reason string) (entryID string, paused bool, err error)
	ResumeForTicket(ctx context.Context, name, ticketID string) (resumed bool, err error)
}

// Service mantiene el snapshot local de la colección taller y coordina la
// saga ticket↔círculo. Ticket y círculo son documentos distintos sin
// transacción que los cubra: cada paso es best-effort y el fallo parcial
// queda documentado, no escondido.
type Service struct {
	store   docstore.Store
	circles Circles
	log     logger.Logger
	now     func() time.Time

	mu   sync.RWMutex
	byID map[string]Ticket

	unsub func()
}

func NewService(store docstore.Store, circleSvc Circles, log logger.Logger) *Service {
	s := &Service{
		store:   store,
		circles: circleSvc,
		log:     log,
		now:     time.Now,
		byID:    make(map[string]Ticket),
	}
	s.unsub = store.Subscribe(docstore.CollectionTaller, s.onSnapshot)
	return s
}

func (s *Service) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}

func (s *Service) onSnapshot(docs []docstore.Document) {
	next := make(map[string]Ticket, len(docs))
	for _, doc := range docs {
		next[doc.ID] = FromDocument(doc)
	}

	s.mu.Lock()
	s.byID = next
	s.mu.Unlock()
}

type CreateInput struct {
	Description string
	Category    string
	Sector      string
	Operator    string
	UID         string
	Date        string
}

// CreateResult reporta el ticket creado y qué pasó con la pausa del círculo.
// PauseErr != nil significa que el ticket existe pero el freno falló: el
// caller decide si reintenta, nunca se pierde en silencio.
type CreateResult struct {
	Ticket   Ticket
	Paused   bool
	PauseErr error
}

// Create persiste el ticket y después intenta frenar el círculo cuyo nombre
// coincide con Sector. El alta del ticket nunca falla por la pausa.
func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	if strings.TrimSpace(in.Description) == "" {
		return CreateResult{}, ErrInvalidInput
	}

	now := s.now().UTC()
	t := Ticket{
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Sector:      strings.TrimSpace(in.Sector),
		Operator:    strings.TrimSpace(in.Operator),
		UID:         strings.TrimSpace(in.UID),
		Status:      StatusPendiente,
		Date:        strings.TrimSpace(in.Date),
		CreatedAt:   now,
	}
	if t.Date == "" {
		t.Date = now.Format("2006-01-02")
	}

	id, err := s.store.AddDocument(ctx, docstore.CollectionTaller, map[string]any{
		fieldDescription: t.Description,
		fieldCategory:    t.Category,
		fieldSector:      t.Sector,
		fieldOperator:    t.Operator,
		fieldUID:         t.UID,
		fieldStatus:      string(t.Status),
		fieldDate:        t.Date,
		fieldCreatedAt:   now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return CreateResult{}, fmt.Errorf("create ticket: %w", err)
	}
	t.ID = id

	res := CreateResult{Ticket: t}
	if t.Sector == "" {
		return res, nil
	}

	reason := "Taller: " + t.Description
	entryID, paused, err := s.circles.PauseForTicket(ctx, t.Sector, t.ID, reason)
	if err != nil {
		// El ticket ya existe; el freno fallido se reporta, no se esconde.
		s.log.Warn("ticket creado pero la pausa del círculo falló", map[string]any{
			"ticket": t.ID,
			"circle": t.Sector,
			"error":  err.Error(),
		})
		res.PauseErr = err
		return res, nil
	}
	if !paused {
		return res, nil
	}

	// Backreference débil hacia la pausa. Si esta escritura falla el resume
	// igual funciona (matchea por linkedTicketId en el círculo).
	err = s.store.UpsertMerge(ctx, docstore.CollectionTaller, t.ID, map[string]any{
		fieldLinkedCirc:  t.Sector,
		fieldLinkedEntry: entryID,
	})
	if err != nil {
		s.log.Warn("pausa aplicada pero no se pudo anotar la referencia en el ticket", map[string]any{
			"ticket": t.ID,
			"circle": t.Sector,
			"error":  err.Error(),
		})
		res.PauseErr = err
	}

	res.Paused = true
	res.Ticket.LinkedCircle = t.Sector
	res.Ticket.LinkedEntryID = entryID
	return res, nil
}

func (s *Service) Get(id string) (Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return Ticket{}, ErrNotFound
	}
	return t, nil
}

// List devuelve los tickets más nuevos primero.
func (s *Service) List() []Ticket {
	s.mu.RLock()
	out := make([]Ticket, 0, len(s.byID))
	for _, t := range s.byID {
		out = append(out, t)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SetStatus cambia el estado del ticket. El primer pase a "En reparación"
// estampa StartedAt; "Completado" estampa CompletedAt y dispara el resume
// guardado del círculo (no-op si el círculo está frenado por otro ticket).
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (Ticket, error) {
	if !ValidStatus(status) {
		return Ticket{}, ErrInvalidInput
	}

	t, err := s.Get(id)
	if err != nil {
		return Ticket{}, err
	}

	now := s.now().UTC()
	fields := map[string]any{fieldStatus: string(status)}

	if status == StatusEnReparacion && t.StartedAt == nil {
		fields[fieldStartedAt] = now.Format(time.RFC3339Nano)
		t.StartedAt = &now
	}

	if status == StatusCompletado {
		// Resume primero: si falla, el ticket queda sin completar y el
		// operario reintenta. Al revés dejaría el círculo frenado para
		// siempre con el ticket ya cerrado.
		if err := s.resume(ctx, t); err != nil {
			return Ticket{}, fmt.Errorf("complete ticket: %w", err)
		}
		if t.CompletedAt == nil {
			fields[fieldCompletedAt] = now.Format(time.RFC3339Nano)
			t.CompletedAt = &now
		}
	}

	if err := s.store.UpsertMerge(ctx, docstore.CollectionTaller, t.ID, fields); err != nil {
		return Ticket{}, fmt.Errorf("set ticket status: %w", err)
	}

	t.Status = status
	return t, nil
}

// Delete reanuda el círculo (guardado) y recién después borra el documento.
func (s *Service) Delete(ctx context.Context, id string) error {
	t, err := s.Get(id)
	if err != nil {
		return err
	}

	if err := s.resume(ctx, t); err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}

	if err := s.store.DeleteDocument(ctx, docstore.CollectionTaller, t.ID); err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	return nil
}

// resume intenta reanudar el círculo vinculado. El guard vive del lado de
// círculos: si la pausa abierta no es de este ticket, no pasa nada.
func (s *Service) resume(ctx context.Context, t Ticket) error {
	circle := t.LinkedCircle
	if circle == "" {
		circle = t.Sector
	}
	if circle == "" {
		return nil
	}

	resumed, err := s.circles.ResumeForTicket(ctx, circle, t.ID)
	if err != nil {
		return err
	}
	if resumed {
		s.log.Info("círculo reanudado por cierre de ticket", map[string]any{
			"ticket": t.ID,
			"circle": circle,
		})
	}
	return nil
}
