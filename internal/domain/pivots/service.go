package pivots

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Fredxxo/campo/internal/domain/circles"
	"github.com/Fredxxo/campo/internal/domain/history"
	"github.com/Fredxxo/campo/internal/platform/logger"
	"github.com/Fredxxo/campo/internal/ports/docstore"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("pivot not found")
	ErrSessionActive = errors.New("pivot already irrigating")
	ErrNoSession     = errors.New("pivot has no active session")
)

// Circles es lo que el módulo de riego necesita del dominio de círculos:
// verificar que el destino exista y materializar la sesión al frenar.
type Circles interface {
	Get(name string) (circles.Circle, error)
	LogIrrigation(ctx context.Context, name, pivotID string, start, stop time.Time) (history.Entry, error)
}

// Service mantiene el snapshot local de la colección pivots. La sesión se
// arranca y frena sobre el documento del pivote; el historial de riego
// pertenece al círculo, no al pivote.
type Service struct {
	store   docstore.Store
	circles Circles
	log     logger.Logger
	now     func() time.Time

	mu   sync.RWMutex
	byID map[string]Pivot

	unsub func()
}

func NewService(store docstore.Store, circleSvc Circles, log logger.Logger) *Service {
	s := &Service{
		store:   store,
		circles: circleSvc,
		log:     log,
		now:     time.Now,
		byID:    make(map[string]Pivot),
	}
	s.unsub = store.Subscribe(docstore.CollectionPivots, s.onSnapshot)
	return s
}

func (s *Service) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}

func (s *Service) onSnapshot(docs []docstore.Document) {
	next := make(map[string]Pivot, len(docs))
	for _, doc := range docs {
		next[doc.ID] = FromDocument(doc)
	}

	s.mu.Lock()
	s.byID = next
	s.mu.Unlock()
}

func (s *Service) Create(ctx context.Context, name string) (Pivot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Pivot{}, ErrInvalidInput
	}

	id, err := s.store.AddDocument(ctx, docstore.CollectionPivots, map[string]any{
		fieldName:         name,
		fieldActiveCircle: nil,
		fieldSessionStart: nil,
		fieldLastCircle:   "",
	})
	if err != nil {
		return Pivot{}, fmt.Errorf("create pivot: %w", err)
	}

	return Pivot{ID: id, Name: name}, nil
}

func (s *Service) Get(id string) (Pivot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return Pivot{}, ErrNotFound
	}
	return p, nil
}

// List devuelve los pivotes ordenados por nombre.
func (s *Service) List() []Pivot {
	s.mu.RLock()
	out := make([]Pivot, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Start abre una sesión de riego sobre circleName. Rechaza si el pivote ya
// está regando o el círculo no existe (o está borrado).
func (s *Service) Start(ctx context.Context, pivotID, circleName string) (Pivot, error) {
	p, err := s.Get(pivotID)
	if err != nil {
		return Pivot{}, err
	}
	if p.Active() {
		return Pivot{}, ErrSessionActive
	}

	circleName = strings.TrimSpace(circleName)
	if _, err := s.circles.Get(circleName); err != nil {
		return Pivot{}, fmt.Errorf("start irrigation: %w", err)
	}

	start := s.now().UTC()
	err = s.store.UpsertMerge(ctx, docstore.CollectionPivots, p.ID, map[string]any{
		fieldActiveCircle: circleName,
		fieldSessionStart: start.Format(time.RFC3339Nano),
	})
	if err != nil {
		return Pivot{}, fmt.Errorf("start irrigation: %w", err)
	}

	p.ActiveCircle = &circleName
	p.SessionStart = &start
	return p, nil
}

// Stop cierra la sesión: materializa la entrada de riego en el círculo y
// deja el pivote libre. Si el círculo fue borrado durante la sesión, la
// entrada se pierde pero el pivote se libera igual.
func (s *Service) Stop(ctx context.Context, pivotID string) (history.Entry, error) {
	p, err := s.Get(pivotID)
	if err != nil {
		return history.Entry{}, err
	}
	if !p.Active() {
		return history.Entry{}, ErrNoSession
	}

	circleName := *p.ActiveCircle
	stop := s.now().UTC()

	entry, err := s.circles.LogIrrigation(ctx, circleName, p.ID, *p.SessionStart, stop)
	if err != nil {
		if !errors.Is(err, circles.ErrNotFound) {
			return history.Entry{}, fmt.Errorf("stop irrigation: %w", err)
		}
		s.log.Warn("riego sin destino: el círculo ya no existe, se libera el pivote", map[string]any{
			"pivot":  p.ID,
			"circle": circleName,
		})
	}

	// lastCircleId queda como referencia para la UI ("último regado").
	err = s.store.UpsertMerge(ctx, docstore.CollectionPivots, p.ID, map[string]any{
		fieldActiveCircle: nil,
		fieldSessionStart: nil,
		fieldLastCircle:   circleName,
	})
	if err != nil {
		return history.Entry{}, fmt.Errorf("stop irrigation: %w", err)
	}

	return entry, nil
}

func (s *Service) Delete(ctx context.Context, pivotID string) error {
	p, err := s.Get(pivotID)
	if err != nil {
		return err
	}
	if p.Active() {
		return ErrSessionActive
	}

	if err := s.store.DeleteDocument(ctx, docstore.CollectionPivots, p.ID); err != nil {
		return fmt.Errorf("delete pivot: %w", err)
	}
	return nil
}
