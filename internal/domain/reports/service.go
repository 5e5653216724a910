package reports

import (
	"sync"

	"github.com/Fredxxo/campo/internal/domain/circles"
	"github.com/Fredxxo/campo/internal/domain/taller"
	"github.com/Fredxxo/campo/internal/domain/ventas"
	"github.com/Fredxxo/campo/internal/platform/logger"
	"github.com/Fredxxo/campo/internal/ports/docstore"
)

// State es el resultado completo de todos los folds. Se reemplaza entero en
// cada recomputación; nunca se parchea.
type State struct {
	Cortes     []MonthlyCorte
	Production []MonthlyProduction
	Circles    []CircleStat
	Taller     []TallerMonth
	Categories []CategoryStat
	Alerts     map[string]int
	Recent     []ActivityEvent
	Ventas     []VentasMonth
}

// Service escucha circles, taller y ventas y recalcula todos los reportes en
// cada snapshot. Derivado puro: no escribe nada en el store.
type Service struct {
	log logger.Logger

	mu      sync.RWMutex
	circles []circles.Circle
	tickets []taller.Ticket
	sales   []ventas.Sale
	state   State

	unsubs []func()
}

func NewService(store docstore.Store, log logger.Logger) *Service {
	s := &Service{log: log}
	s.unsubs = append(s.unsubs,
		store.Subscribe(docstore.CollectionCircles, s.onCircles),
		store.Subscribe(docstore.CollectionTaller, s.onTaller),
		store.Subscribe(docstore.CollectionVentas, s.onVentas),
	)
	return s
}

func (s *Service) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
}

func (s *Service) onCircles(docs []docstore.Document) {
	next := make([]circles.Circle, 0, len(docs))
	for _, doc := range docs {
		next = append(next, circles.FromDocument(doc))
	}

	s.mu.Lock()
	s.circles = next
	s.recomputeLocked()
	s.mu.Unlock()
}

func (s *Service) onTaller(docs []docstore.Document) {
	next := make([]taller.Ticket, 0, len(docs))
	for _, doc := range docs {
		next = append(next, taller.FromDocument(doc))
	}

	s.mu.Lock()
	s.tickets = next
	s.recomputeLocked()
	s.mu.Unlock()
}

func (s *Service) onVentas(docs []docstore.Document) {
	next := make([]ventas.Sale, 0, len(docs))
	for _, doc := range docs {
		next = append(next, ventas.FromDocument(doc))
	}

	s.mu.Lock()
	s.sales = next
	s.recomputeLocked()
	s.mu.Unlock()
}

// recomputeLocked rearma State completo desde los últimos snapshots.
// Requiere lock tomado.
func (s *Service) recomputeLocked() {
	s.state = State{
		Cortes:     MonthlyCortes(s.circles),
		Production: MonthlyEnfardados(s.circles),
		Circles:    CircleStats(s.circles),
		Taller:     TallerMonthly(s.tickets),
		Categories: TallerByCategory(s.tickets, 5),
		Alerts:     AlertCounts(s.circles),
		Recent:     RecentActivity(s.circles, 20),
		Ventas:     VentasMonthly(s.sales),
	}
}

func (s *Service) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
