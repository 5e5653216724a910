package ventas

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
	ErrNotFound     = errors.New("sale not found")
)

// Sale es una venta de fardos. Total se calcula al crear y queda fijo:
// cambiar el precio unitario después no reescribe ventas históricas.
type Sale struct {
	ID        string
	Date      string // YYYY-MM-DD
	Client    string
	Quantity  int
	UnitPrice float64
	Total     float64
	Notes     string
}

const (
	fieldDate      = "date"
	fieldClient    = "client"
	fieldQuantity  = "quantity"
	fieldUnitPrice = "unitPrice"
	fieldTotal     = "total"
	fieldNotes     = "notes"
)

func FromDocument(doc docstore.Document) Sale {
	s := Sale{ID: doc.ID}
	if v, ok := doc.Fields[fieldDate].(string); ok {
		s.Date = v
	}
	if v, ok := doc.Fields[fieldClient].(string); ok {
		s.Client = v
	}
	s.Quantity = asInt(doc.Fields[fieldQuantity])
	s.UnitPrice = asFloat(doc.Fields[fieldUnitPrice])
	s.Total = asFloat(doc.Fields[fieldTotal])
	if v, ok := doc.Fields[fieldNotes].(string); ok {
		s.Notes = v
	}
	return s
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

func asInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	default:
		return 0
	}
}

// Service mantiene el snapshot local de la colección ventas.
type Service struct {
	store docstore.Store
	log   logger.Logger
	now   func() time.Time

	mu   sync.RWMutex
	byID map[string]Sale

	unsub func()
}

func NewService(store docstore.Store, log logger.Logger) *Service {
	s := &Service{
		store: store,
		log:   log,
		now:   time.Now,
		byID:  make(map[string]Sale),
	}
	s.unsub = store.Subscribe(docstore.CollectionVentas, s.onSnapshot)
	return s
}

func (s *Service) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}

func (s *Service) onSnapshot(docs []docstore.Document) {
	next := make(map[string]Sale, len(docs))
	for _, doc := range docs {
		next[doc.ID] = FromDocument(doc)
	}

	s.mu.Lock()
	s.byID = next
	s.mu.Unlock()
}

type CreateInput struct {
	Date      string
	Client    string
	Quantity  int
	UnitPrice float64
	Notes     string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Sale, error) {
	client := strings.TrimSpace(in.Client)
	if client == "" || in.Quantity <= 0 || in.UnitPrice < 0 {
		return Sale{}, ErrInvalidInput
	}

	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = s.now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return Sale{}, ErrInvalidInput
	}

	sale := Sale{
		Date:      date,
		Client:    client,
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice,
		Total:     float64(in.Quantity) * in.UnitPrice,
		Notes:     strings.TrimSpace(in.Notes),
	}

	id, err := s.store.AddDocument(ctx, docstore.CollectionVentas, map[string]any{
		fieldDate:      sale.Date,
		fieldClient:    sale.Client,
		fieldQuantity:  sale.Quantity,
		fieldUnitPrice: sale.UnitPrice,
		fieldTotal:     sale.Total,
		fieldNotes:     sale.Notes,
	})
	if err != nil {
		return Sale{}, fmt.Errorf("create sale: %w", err)
	}

	sale.ID = id
	return sale, nil
}

func (s *Service) Get(id string) (Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return Sale{}, ErrNotFound
	}
	return sale, nil
}

// List devuelve las ventas más nuevas primero (por fecha declarada).
func (s *Service) List() []Sale {
	s.mu.RLock()
	out := make([]Sale, 0, len(s.byID))
	for _, sale := range s.byID {
		out = append(out, sale)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, docstore.CollectionVentas, strings.TrimSpace(id)); err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	return nil
}
