package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Fredxxo/campo/internal/ports/docstore"
)

// Store es un document store en memoria con notificación sincrónica.
// Se usa en tests y en modo dev (sin DB_DSN).
type Store struct {
	mu      sync.RWMutex
	data    map[string]map[string]map[string]any // collection -> id -> fields
	subs    map[string]map[int]docstore.SnapshotFunc
	nextSub int
}

func NewStore() *Store {
	return &Store{
		data: make(map[string]map[string]map[string]any),
		subs: make(map[string]map[int]docstore.SnapshotFunc),
	}
}

func (s *Store) Subscribe(collection string, fn docstore.SnapshotFunc) func() {
	s.mu.Lock()
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[int]docstore.SnapshotFunc)
	}
	id := s.nextSub
	s.nextSub++
	s.subs[collection][id] = fn
	snap := s.snapshotLocked(collection)
	s.mu.Unlock()

	// Snapshot inicial, como onSnapshot remoto.
	fn(snap)

	return func() {
		s.mu.Lock()
		delete(s.subs[collection], id)
		s.mu.Unlock()
	}
}

func (s *Store) UpsertMerge(ctx context.Context, collection, id string, fields map[string]any) error {
	if id == "" {
		return errors.New("document id required")
	}

	s.mu.Lock()
	if s.data[collection] == nil {
		s.data[collection] = make(map[string]map[string]any)
	}
	doc := s.data[collection][id]
	if doc == nil {
		doc = make(map[string]any)
		s.data[collection][id] = doc
	}
	// Merge shallow: campo por campo, los omitidos quedan.
	for k, v := range fields {
		doc[k] = cloneValue(v)
	}
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *Store) AddDocument(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.UpsertMerge(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) DeleteDocument(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	if s.data[collection] != nil {
		delete(s.data[collection], id)
	}
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *Store) notify(collection string) {
	s.mu.RLock()
	snap := s.snapshotLocked(collection)
	fns := make([]docstore.SnapshotFunc, 0, len(s.subs[collection]))
	for _, fn := range s.subs[collection] {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// snapshotLocked arma el set completo de la colección. Requiere lock tomado.
func (s *Store) snapshotLocked(collection string) []docstore.Document {
	docs := make([]docstore.Document, 0, len(s.data[collection]))
	for id, fields := range s.data[collection] {
		cp := make(map[string]any, len(fields))
		for k, v := range fields {
			cp[k] = cloneValue(v)
		}
		docs = append(docs, docstore.Document{ID: id, Fields: cp})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

// cloneValue copia recursivamente valores estilo JSON para que los
// subscribers no compartan memoria con el store.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		cp := make(map[string]any, len(t))
		for k, vv := range t {
			cp[k] = cloneValue(vv)
		}
		return cp
	case []any:
		cp := make([]any, len(t))
		for i, vv := range t {
			cp[i] = cloneValue(vv)
		}
		return cp
	default:
		return v
	}
}
