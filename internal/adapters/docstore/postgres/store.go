package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Fredxxo/campo/internal/platform/logger"
	"github.com/Fredxxo/campo/internal/ports/docstore"
)

// Open abre una conexión pool a Postgres usando pgx (database/sql).
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	// defaults razonables para MVP (ajustable luego)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Store guarda cada documento como una fila (collection, id, fields jsonb).
// Las escrituras locales disparan un snapshot a los subscribers; un ticker
// de polling levanta los cambios hechos por otros procesos.
type Store struct {
	db   *sql.DB
	log  logger.Logger
	poll time.Duration

	mu      sync.Mutex
	subs    map[string]map[int]docstore.SnapshotFunc
	nextSub int

	stop chan struct{}
	done chan struct{}
}

func NewStore(db *sql.DB, log logger.Logger, poll time.Duration) *Store {
	if poll <= 0 {
		poll = 5 * time.Second
	}
	s := &Store{
		db:   db,
		log:  log,
		poll: poll,
		subs: make(map[string]map[int]docstore.SnapshotFunc),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.pollLoop()
	return s
}

// Close frena el loop de polling. No cierra el *sql.DB (lo cierra quien lo abrió).
func (s *Store) Close() {
	close(s.stop)
	<-s.done
}

func (s *Store) Subscribe(collection string, fn docstore.SnapshotFunc) func() {
	s.mu.Lock()
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[int]docstore.SnapshotFunc)
	}
	id := s.nextSub
	s.nextSub++
	s.subs[collection][id] = fn
	s.mu.Unlock()

	// Snapshot inicial, como onSnapshot remoto. Si la lectura falla se
	// entrega vacío; el polling lo corrige en la próxima vuelta.
	snap, err := s.snapshot(context.Background(), collection)
	if err != nil {
		s.log.Warn("docstore: snapshot inicial falló", map[string]any{"collection": collection, "error": err.Error()})
		snap = []docstore.Document{}
	}
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
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	// Merge shallow en el servidor: el jsonb existente || el nuevo.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, id)
		DO UPDATE SET
			fields = documents.fields || excluded.fields,
			updated_at = now()
	`, collection, id, raw)
	if err != nil {
		return err
	}

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
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2
	`, collection, id)
	if err != nil {
		return err
	}

	s.notify(collection)
	return nil
}

// notify relee la colección y empuja el snapshot completo a los subscribers.
// Best effort: un error de lectura se loguea y queda para el polling.
func (s *Store) notify(collection string) {
	snap, err := s.snapshot(context.Background(), collection)
	if err != nil {
		s.log.Warn("docstore: snapshot falló", map[string]any{"collection": collection, "error": err.Error()})
		return
	}

	s.mu.Lock()
	fns := make([]docstore.SnapshotFunc, 0, len(s.subs[collection]))
	for _, fn := range s.subs[collection] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) snapshot(ctx context.Context, collection string) ([]docstore.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fields
		FROM documents
		WHERE collection = $1
		ORDER BY id ASC
	`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]docstore.Document, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		fields := make(map[string]any)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &fields); err != nil {
				// Documento corrupto: se salta, no se tira todo el snapshot.
				s.log.Warn("docstore: documento ilegible", map[string]any{"collection": collection, "id": id, "error": err.Error()})
				continue
			}
		}
		docs = append(docs, docstore.Document{ID: id, Fields: fields})
	}
	return docs, rows.Err()
}

// pollLoop empuja snapshots periódicos para detectar escrituras remotas.
func (s *Store) pollLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			collections := make([]string, 0, len(s.subs))
			for c, fns := range s.subs {
				if len(fns) > 0 {
					collections = append(collections, c)
				}
			}
			s.mu.Unlock()

			for _, c := range collections {
				s.notify(c)
			}
		}
	}
}
