package usuarios

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Fredxxo/campo/internal/platform/logger"
	"github.com/Fredxxo/campo/internal/ports/auth"
	"github.com/Fredxxo/campo/internal/ports/docstore"
)

var (
	ErrInvalidRole = errors.New("invalid role")
	ErrNotFound    = errors.New("user not found")
)

// User es un perfil de acceso al tablero. Role vacío significa cuenta
// registrada pero sin permisos asignados todavía.
type User struct {
	ID          string
	UID         string
	Email       string
	DisplayName string
	Role        string
}

const (
	fieldUID         = "uid"
	fieldEmail       = "email"
	fieldDisplayName = "displayName"
	fieldRole        = "role"
)

func FromDocument(doc docstore.Document) User {
	u := User{ID: doc.ID}
	if v, ok := doc.Fields[fieldUID].(string); ok {
		u.UID = v
	}
	if v, ok := doc.Fields[fieldEmail].(string); ok {
		u.Email = v
	}
	if v, ok := doc.Fields[fieldDisplayName].(string); ok {
		u.DisplayName = v
	}
	if v, ok := doc.Fields[fieldRole].(string); ok {
		u.Role = v
	}
	return u
}

// Service administra los perfiles de la colección usuarios.
type Service struct {
	store docstore.Store
	log   logger.Logger

	mu   sync.RWMutex
	byID map[string]User

	unsub func()
}

func NewService(store docstore.Store, log logger.Logger) *Service {
	s := &Service{
		store: store,
		log:   log,
		byID:  make(map[string]User),
	}
	s.unsub = store.Subscribe(docstore.CollectionUsuarios, s.onSnapshot)
	return s
}

func (s *Service) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}

func (s *Service) onSnapshot(docs []docstore.Document) {
	next := make(map[string]User, len(docs))
	for _, doc := range docs {
		next[doc.ID] = FromDocument(doc)
	}

	s.mu.Lock()
	s.byID = next
	s.mu.Unlock()
}

func (s *Service) Get(id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// List devuelve los usuarios ordenados por email.
func (s *Service) List() []User {
	s.mu.RLock()
	out := make([]User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, u)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Email != out[j].Email {
			return out[i].Email < out[j].Email
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SetRole asigna el rol del usuario. Vacío lo deja sin acceso.
func (s *Service) SetRole(ctx context.Context, id, role string) (User, error) {
	role = strings.TrimSpace(role)
	if role != "" && !auth.ValidRole(role) {
		return User{}, ErrInvalidRole
	}

	u, err := s.Get(id)
	if err != nil {
		return User{}, err
	}

	err = s.store.UpsertMerge(ctx, docstore.CollectionUsuarios, u.ID, map[string]any{
		fieldRole: role,
	})
	if err != nil {
		return User{}, fmt.Errorf("set role: %w", err)
	}

	u.Role = role
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	u, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, docstore.CollectionUsuarios, u.ID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
