// Package memory implementa los repositorios en memoria (driver "memory").
// Pensado para desarrollo local y tests; no persiste.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/hellobroker/internal/domain/repository"
	"github.com/google/uuid"
)

// Store guarda apps, allowlists y usuarios en mapas protegidos por un mutex.
type Store struct {
	mu        sync.RWMutex
	apps      map[uuid.UUID]repository.TenantApp
	redirects map[uuid.UUID]map[string]struct{}
	users     map[uuid.UUID][]*repository.User
	nextID    map[uuid.UUID]int64
}

func New() *Store {
	return &Store{
		apps:      map[uuid.UUID]repository.TenantApp{},
		redirects: map[uuid.UUID]map[string]struct{}{},
		users:     map[uuid.UUID][]*repository.User{},
		nextID:    map[uuid.UUID]int64{},
	}
}

func (s *Store) Apps() repository.AppRepository { return appRepo{s} }
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Ping siempre ok.
func (s *Store) Ping(context.Context) error { return nil }

type appRepo struct{ s *Store }

func (r appRepo) Create(_ context.Context, in repository.CreateAppInput) (*repository.TenantApp, error) {
	if in.Name == "" || in.PublicKeyPEM == "" || in.PrivateKeySealed == "" {
		return nil, repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.apps {
		if a.Name == in.Name || a.ID == in.ID {
			return nil, repository.ErrConflict
		}
	}
	app := repository.TenantApp{
		ID:               in.ID,
		Name:             in.Name,
		PublicKeyPEM:     in.PublicKeyPEM,
		PrivateKeySealed: in.PrivateKeySealed,
		CreatedAt:        time.Now().UTC(),
	}
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	r.s.apps[app.ID] = app
	return &app, nil
}

func (r appRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.TenantApp, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	app, ok := r.s.apps[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &app, nil
}

func (r appRepo) List(context.Context) ([]repository.TenantApp, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]repository.TenantApp, 0, len(r.s.apps))
	for _, a := range r.s.apps {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r appRepo) AddRedirectURI(_ context.Context, appID uuid.UUID, pattern string) error {
	if pattern == "" {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.apps[appID]; !ok {
		return repository.ErrNotFound
	}
	set := r.s.redirects[appID]
	if set == nil {
		set = map[string]struct{}{}
		r.s.redirects[appID] = set
	}
	if _, dup := set[pattern]; dup {
		return repository.ErrConflict
	}
	set[pattern] = struct{}{}
	return nil
}

func (r appRepo) ListRedirectURIs(_ context.Context, appID uuid.UUID) ([]repository.RedirectURI, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]repository.RedirectURI, 0, len(r.s.redirects[appID]))
	for p := range r.s.redirects[appID] {
		out = append(out, repository.RedirectURI{AppID: appID, Pattern: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pattern < out[j].Pattern })
	return out, nil
}

type userRepo struct{ s *Store }

func matches(u *repository.User, p repository.Provider, externalID string) bool {
	a := u.Account(p)
	return a.ID != nil && *a.ID == externalID
}

func (r userRepo) find(appID uuid.UUID, p repository.Provider, externalID string) *repository.User {
	for _, u := range r.s.users[appID] {
		if matches(u, p, externalID) {
			return u
		}
	}
	return nil
}

func (r userRepo) FindByAccount(_ context.Context, appID uuid.UUID, p repository.Provider, externalID string) (*repository.User, error) {
	if !p.Valid() || externalID == "" {
		return nil, repository.ErrInvalidInput
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u := r.find(appID, p, externalID); u != nil {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) CreateWithAccount(_ context.Context, appID uuid.UUID, p repository.Provider, acct repository.Account) (*repository.User, error) {
	if !p.Valid() || !acct.Linked() {
		return nil, repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u := r.find(appID, p, *acct.ID); u != nil {
		cp := *u
		return &cp, nil
	}
	r.s.nextID[appID]++
	u := &repository.User{AppID: appID, UserID: r.s.nextID[appID], CreatedAt: time.Now().UTC()}
	switch p {
	case repository.ProviderDiscord:
		u.Discord = acct
	case repository.ProviderSteam:
		u.Steam = acct
	}
	r.s.users[appID] = append(r.s.users[appID], u)
	cp := *u
	return &cp, nil
}

func (r userRepo) GetByID(_ context.Context, appID uuid.UUID, userID int64) (*repository.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users[appID] {
		if u.UserID == userID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}
