// Package session owns the console's authentication session.
//
// The Store is the only component that mutates the bearer credential: login,
// logout, start-up restore and the API client's 401 hook all go through it,
// and persisted storage is kept in step with the in-memory state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cimex/cimex-console/internal/apiclient"
	"github.com/cimex/cimex-console/internal/domain"
	"github.com/cimex/cimex-console/internal/store"
)

const unauthorizedStorageTimeout = 5 * time.Second

// ErrEmptyCredential is returned by Login when token or username is empty.
var ErrEmptyCredential = errors.New("token and username are required")

// Backend is the part of the API client the store depends on.
type Backend interface {
	Me(ctx context.Context) (*domain.Me, error)
	Credential() *apiclient.Credential
	SetUnauthorizedHandler(fn apiclient.UnauthorizedFunc)
}

// Redirector sends the operator to the login view.
type Redirector interface {
	RedirectToLogin() bool
}

// Listener is called after every session change with the new snapshot.
type Listener func(domain.Session)

// Store holds the authoritative session for the console process.
type Store struct {
	repo    store.Repository
	backend Backend
	cred    *apiclient.Credential
	nav     Redirector

	mu        sync.Mutex
	state     domain.AuthState
	username  string
	listeners []Listener
}

// New creates an Unauthenticated store and installs its 401 handler on backend.
func New(repo store.Repository, backend Backend, nav Redirector) *Store {
	s := &Store{
		repo:    repo,
		backend: backend,
		cred:    backend.Credential(),
		nav:     nav,
		state:   domain.StateUnauthenticated,
	}
	backend.SetUnauthorizedHandler(s.HandleUnauthorized)
	return s
}

// OnChange registers a listener for session changes.
func (s *Store) OnChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Session returns a snapshot of the current session.
func (s *Store) Session() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Authenticated reports whether the session is Authenticated.
func (s *Store) Authenticated() bool {
	return s.Session().IsAuthenticated()
}

// Login persists token and username, attaches the token and marks the session
// Authenticated. The token is trusted as-is; it comes from the login call.
func (s *Store) Login(ctx context.Context, token, username string) error {
	if token == "" || username == "" {
		return ErrEmptyCredential
	}

	s.mu.Lock()
	if err := s.repo.SetItem(ctx, domain.StorageKeyToken, token); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.repo.SetItem(ctx, domain.StorageKeyUsername, username); err != nil {
		if _, rmErr := s.repo.RemoveItems(ctx, domain.StorageKeyToken); rmErr != nil {
			slog.Error("Failed to roll back persisted token", "error", rmErr)
		}
		s.mu.Unlock()
		return fmt.Errorf("persist username: %w", err)
	}
	s.cred.Set(token)
	s.state = domain.StateAuthenticated
	s.username = username
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()

	slog.Info("Session authenticated", "username", username)
	notify(listeners, snap)
	return nil
}

// Logout clears persisted and attached credentials. It makes no network call.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	err := s.clearLocked(ctx)
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()

	slog.Info("Session logged out")
	notify(listeners, snap)
	return err
}

// CheckAuth validates the persisted token against the backend. It never
// returns an error: any failure ends Unauthenticated and reports false.
func (s *Store) CheckAuth(ctx context.Context) bool {
	token, ok, err := s.repo.GetItem(ctx, domain.StorageKeyToken)
	if err != nil {
		slog.Warn("Failed to read persisted token", "error", err)
		_ = s.Logout(ctx)
		return false
	}
	if !ok || token == "" {
		s.mu.Lock()
		s.cred.Clear()
		s.state = domain.StateUnauthenticated
		s.username = ""
		snap, listeners := s.snapshotLocked(), s.listenersLocked()
		s.mu.Unlock()
		notify(listeners, snap)
		return false
	}

	savedUsername, _, err := s.repo.GetItem(ctx, domain.StorageKeyUsername)
	if err != nil {
		slog.Warn("Failed to read persisted username", "error", err)
	}

	s.mu.Lock()
	// An authenticated session with the same token stays authenticated while
	// it is revalidated.
	if s.state != domain.StateAuthenticated || s.cred.Token() != token {
		s.cred.Set(token)
		s.state = domain.StateRestoring
	}
	s.mu.Unlock()

	me, err := s.backend.Me(ctx)
	if err != nil {
		slog.Info("Session validation failed", "outcome", apiclient.Classify(err).String(), "error", err)
		// A 401 has already been handled by HandleUnauthorized, which replaced the
		// credential, so this only clears storage for other failures.
		s.dropIfCurrent(ctx, token)
		return false
	}

	username := me.Username
	if username == "" {
		username = savedUsername
	}
	if username == "" {
		slog.Warn("Session validation returned no username")
		s.dropIfCurrent(ctx, token)
		return false
	}

	s.mu.Lock()
	if s.cred.Token() != token {
		// A login or logout happened while validating; it wins.
		s.mu.Unlock()
		return false
	}
	s.state = domain.StateAuthenticated
	s.username = username
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()

	slog.Info("Session restored", "username", username)
	notify(listeners, snap)
	return true
}

// Restore is the start-up bootstrap: it validates persisted credentials when
// both token and username are present and otherwise stays Unauthenticated.
func (s *Store) Restore(ctx context.Context) bool {
	token, hasToken, err := s.repo.GetItem(ctx, domain.StorageKeyToken)
	if err != nil {
		slog.Warn("Failed to read persisted token", "error", err)
		return false
	}
	username, hasUsername, err := s.repo.GetItem(ctx, domain.StorageKeyUsername)
	if err != nil {
		slog.Warn("Failed to read persisted username", "error", err)
		return false
	}
	if !hasToken || !hasUsername || token == "" || username == "" {
		slog.Info("No persisted session to restore")
		return false
	}
	return s.CheckAuth(ctx)
}

// HandleUnauthorized is the API client's 401 hook. sentToken is the token the
// rejected request carried; when it is no longer the active credential the
// session it belonged to has already ended and nothing happens.
func (s *Store) HandleUnauthorized(sentToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), unauthorizedStorageTimeout)
	defer cancel()

	if !s.dropIfCurrent(ctx, sentToken) {
		slog.Debug("Ignoring 401 for a credential that is no longer active")
		return
	}
	if s.nav != nil && s.nav.RedirectToLogin() {
		slog.Info("Redirected to login after 401")
	}
}

// Reconcile re-reads persisted storage and drops in-memory state it no longer
// backs.
func (s *Store) Reconcile(ctx context.Context) {
	token, ok, err := s.repo.GetItem(ctx, domain.StorageKeyToken)
	if err != nil {
		slog.Warn("Failed to read persisted token", "error", err)
		return
	}

	s.mu.Lock()
	if ok && token != "" && token == s.cred.Token() {
		s.mu.Unlock()
		return
	}
	if s.state == domain.StateUnauthenticated && !s.cred.Present() {
		s.mu.Unlock()
		return
	}
	s.cred.Clear()
	s.state = domain.StateUnauthenticated
	s.username = ""
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()

	slog.Info("Session dropped, persisted credential changed")
	notify(listeners, snap)
}

// dropIfCurrent logs out when token is still the attached credential and
// reports whether it did.
func (s *Store) dropIfCurrent(ctx context.Context, token string) bool {
	s.mu.Lock()
	if s.cred.Token() != token || (token == "" && s.state == domain.StateUnauthenticated) {
		s.mu.Unlock()
		return false
	}
	if err := s.clearLocked(ctx); err != nil {
		slog.Error("Failed to clear persisted credential", "error", err)
	}
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	return true
}

func (s *Store) clearLocked(ctx context.Context) error {
	s.cred.Clear()
	s.state = domain.StateUnauthenticated
	s.username = ""
	if _, err := s.repo.RemoveItems(ctx, domain.StorageKeyToken, domain.StorageKeyUsername); err != nil {
		return fmt.Errorf("clear persisted credential: %w", err)
	}
	return nil
}

func (s *Store) snapshotLocked() domain.Session {
	return domain.Session{
		Token:    s.cred.Token(),
		Username: s.username,
		State:    s.state,
	}
}

func (s *Store) listenersLocked() []Listener {
	return append([]Listener(nil), s.listeners...)
}

func notify(listeners []Listener, snap domain.Session) {
	for _, l := range listeners {
		l(snap)
	}
}
