package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimex/cimex-console/internal/apiclient"
	"github.com/cimex/cimex-console/internal/domain"
	"github.com/cimex/cimex-console/internal/navigation"
	"github.com/cimex/cimex-console/internal/store"
)

// countingRepo wraps a MemoryStore and counts credential removals that
// actually removed something.
type countingRepo struct {
	*store.MemoryStore
	mu      sync.Mutex
	clears  int
	removes int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{MemoryStore: store.NewMemory()}
}

func (r *countingRepo) RemoveItems(ctx context.Context, keys ...string) (int64, error) {
	n, err := r.MemoryStore.RemoveItems(ctx, keys...)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removes++
	if n > 0 {
		r.clears++
	}
	return n, err
}

func (r *countingRepo) clearCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}

type fakeBackend struct {
	cred    apiclient.Credential
	mu      sync.Mutex
	meCalls int
	me      *domain.Me
	meErr   error
	hook    apiclient.UnauthorizedFunc
}

func (f *fakeBackend) Me(context.Context) (*domain.Me, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	return f.me, f.meErr
}

func (f *fakeBackend) Credential() *apiclient.Credential { return &f.cred }

func (f *fakeBackend) SetUnauthorizedHandler(fn apiclient.UnauthorizedFunc) { f.hook = fn }

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meCalls
}

func persisted(t *testing.T, repo store.Repository, key string) (string, bool) {
	t.Helper()
	v, ok, err := repo.GetItem(context.Background(), key)
	require.NoError(t, err)
	return v, ok
}

func TestNewInstallsUnauthorizedHandler(t *testing.T) {
	backend := &fakeBackend{}
	New(store.NewMemory(), backend, nil)
	assert.NotNil(t, backend.hook)
}

func TestLoginThenLogoutLeavesNothingPersisted(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	backend := &fakeBackend{}
	s := New(repo, backend, navigation.New("/login"))

	require.NoError(t, s.Login(ctx, "abc", "admin"))
	assert.True(t, s.Authenticated())
	assert.Equal(t, "abc", backend.cred.Token())
	token, _ := persisted(t, repo, domain.StorageKeyToken)
	assert.Equal(t, "abc", token)
	assert.Equal(t, 0, backend.calls(), "login must not call the backend")

	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.Authenticated())
	assert.Equal(t, domain.StateUnauthenticated, s.Session().State)
	assert.False(t, backend.cred.Present())
	_, ok := persisted(t, repo, domain.StorageKeyToken)
	assert.False(t, ok)
	_, ok = persisted(t, repo, domain.StorageKeyUsername)
	assert.False(t, ok)
	assert.Equal(t, 0, backend.calls(), "logout must not call the backend")
}

func TestRepeatedLoginLogoutSequences(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	s := New(repo, &fakeBackend{}, nil)

	for _, user := range []string{"a", "b", "c"} {
		require.NoError(t, s.Login(ctx, "tok-"+user, user))
		require.NoError(t, s.Login(ctx, "tok2-"+user, user))
		require.NoError(t, s.Logout(ctx))
		require.NoError(t, s.Logout(ctx))
	}
	assert.False(t, s.Authenticated())
	_, ok := persisted(t, repo, domain.StorageKeyToken)
	assert.False(t, ok)
}

func TestLoginRejectsEmptyCredential(t *testing.T) {
	s := New(store.NewMemory(), &fakeBackend{}, nil)
	assert.ErrorIs(t, s.Login(context.Background(), "", "admin"), ErrEmptyCredential)
	assert.ErrorIs(t, s.Login(context.Background(), "abc", ""), ErrEmptyCredential)
	assert.False(t, s.Authenticated())
}

func TestCheckAuthWithoutTokenSkipsNetwork(t *testing.T) {
	backend := &fakeBackend{me: &domain.Me{Username: "admin"}}
	s := New(store.NewMemory(), backend, nil)

	assert.False(t, s.CheckAuth(context.Background()))
	assert.Equal(t, 0, backend.calls())
	assert.Equal(t, domain.StateUnauthenticated, s.Session().State)
}

func TestCheckAuthRejectedTokenClearsStorage(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	require.NoError(t, repo.SetItem(ctx, domain.StorageKeyToken, "stale"))
	require.NoError(t, repo.SetItem(ctx, domain.StorageKeyUsername, "admin"))

	backend := &fakeBackend{meErr: &apiclient.StatusError{Code: http.StatusUnauthorized}}
	s := New(repo, backend, nil)

	assert.False(t, s.CheckAuth(ctx))
	assert.Equal(t, 1, backend.calls())
	assert.False(t, s.Authenticated())
	assert.False(t, backend.cred.Present())
	_, ok := persisted(t, repo, domain.StorageKeyToken)
	assert.False(t, ok)
	_, ok = persisted(t, repo, domain.StorageKeyUsername)
	assert.False(t, ok)
}

func TestCheckAuthNetworkErrorFailsClosed(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	require.NoError(t, repo.SetItem(ctx, domain.StorageKeyToken, "abc"))

	s := New(repo, &fakeBackend{meErr: errors.New("connection refused")}, nil)

	assert.False(t, s.CheckAuth(ctx))
	assert.Equal(t, domain.StateUnauthenticated, s.Session().State)
	_, ok := persisted(t, repo, domain.StorageKeyToken)
	assert.False(t, ok)
}

func TestCheckAuthPrefersServerUsername(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	require.NoError(t, repo.SetItem(ctx, domain.StorageKeyToken, "abc"))
	require.NoError(t, repo.SetItem(ctx, domain.StorageKeyUsername, "local-name"))

	backend := &fakeBackend{me: &domain.Me{Username: "server-name"}}
	s := New(repo, backend, nil)

	require.True(t, s.CheckAuth(ctx))
	sess := s.Session()
	assert.Equal(t, "server-name", sess.Username)
	assert.Equal(t, domain.StateAuthenticated, sess.State)
	assert.Equal(t, "abc", backend.cred.Token())
}

func TestCheckAuthFallsBackToPersistedUsername(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	require.NoError(t, repo.SetItem(ctx, domain.StorageKeyToken, "abc"))
	require.NoError(t, repo.SetItem(ctx, domain.StorageKeyUsername, "local-name"))

	s := New(repo, &fakeBackend{me: &domain.Me{}}, nil)

	require.True(t, s.CheckAuth(ctx))
	assert.Equal(t, "local-name", s.Session().Username)
}

func TestRestoreRequiresTokenAndUsername(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	require.NoError(t, repo.SetItem(ctx, domain.StorageKeyToken, "abc"))

	backend := &fakeBackend{me: &domain.Me{Username: "admin"}}
	s := New(repo, backend, nil)

	assert.False(t, s.Restore(ctx))
	assert.Equal(t, 0, backend.calls())

	require.NoError(t, repo.SetItem(ctx, domain.StorageKeyUsername, "admin"))
	assert.True(t, s.Restore(ctx))
	assert.Equal(t, 1, backend.calls())
	assert.True(t, s.Authenticated())
}

func TestHandleUnauthorizedIgnoresStaleToken(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	nav := navigation.New("/dashboard")
	s := New(repo, &fakeBackend{}, nav)

	require.NoError(t, s.Login(ctx, "new", "admin"))
	s.HandleUnauthorized("old")

	assert.True(t, s.Authenticated())
	assert.Equal(t, 0, repo.clearCount())
	assert.Equal(t, "/dashboard", nav.Location())
}

func TestReconcileDropsSessionWhenStorageCleared(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	backend := &fakeBackend{}
	s := New(repo, backend, nil)
	require.NoError(t, s.Login(ctx, "abc", "admin"))

	var changes []domain.Session
	s.OnChange(func(sess domain.Session) { changes = append(changes, sess) })

	s.Reconcile(ctx)
	assert.True(t, s.Authenticated())
	assert.Empty(t, changes)

	_, err := repo.RemoveItems(ctx, domain.StorageKeyToken)
	require.NoError(t, err)
	s.Reconcile(ctx)

	assert.False(t, s.Authenticated())
	assert.False(t, backend.cred.Present())
	require.Len(t, changes, 1)
	assert.Equal(t, domain.StateUnauthenticated, changes[0].State)
}

// newBackendServer serves /auth/me for token "abc" and answers 401 everywhere
// once expire is closed.
func newBackendServer(t *testing.T, expire <-chan struct{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-expire:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Token expired"}`))
			return
		default:
		}
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/auth/me":
			_, _ = w.Write([]byte(`{"username":"admin"}`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestUnauthorizedResponseEndsSessionAndRedirects(t *testing.T) {
	ctx := context.Background()
	expire := make(chan struct{})
	srv := newBackendServer(t, expire)

	repo := newCountingRepo()
	client := apiclient.New(srv.URL, nil)
	nav := navigation.New("/nodes")
	events, cancel := nav.Subscribe()
	defer cancel()
	s := New(repo, client, nav)

	require.NoError(t, s.Login(ctx, "abc", "admin"))
	_, err := client.Nodes(ctx)
	require.NoError(t, err)

	close(expire)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Nodes(ctx)
			assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
		}()
	}
	wg.Wait()

	assert.False(t, s.Authenticated())
	assert.False(t, client.Credential().Present())
	assert.Equal(t, 1, repo.clearCount(), "storage must be cleared exactly once")
	assert.Equal(t, navigation.LoginPath, nav.Location())
	assert.Equal(t, navigation.LoginPath, <-events)
	assert.Empty(t, events, "only one redirect expected")
}

func TestUnauthorizedOnLoginViewDoesNotNavigate(t *testing.T) {
	ctx := context.Background()
	expire := make(chan struct{})
	close(expire)
	srv := newBackendServer(t, expire)

	client := apiclient.New(srv.URL, nil)
	nav := navigation.New(navigation.LoginPath)
	events, cancel := nav.Subscribe()
	defer cancel()
	s := New(store.NewMemory(), client, nav)

	require.NoError(t, s.Login(ctx, "abc", "admin"))
	_, err := client.Status(ctx)
	require.Error(t, err)

	assert.False(t, s.Authenticated())
	assert.Empty(t, events)
}

func TestCheckAuthRejectedByBackendClearsOnce(t *testing.T) {
	ctx := context.Background()
	expire := make(chan struct{})
	close(expire)
	srv := newBackendServer(t, expire)

	repo := newCountingRepo()
	require.NoError(t, repo.SetItem(ctx, domain.StorageKeyToken, "abc"))
	require.NoError(t, repo.SetItem(ctx, domain.StorageKeyUsername, "admin"))

	client := apiclient.New(srv.URL, nil)
	nav := navigation.New("/dashboard")
	s := New(repo, client, nav)

	assert.False(t, s.Restore(ctx))
	assert.Equal(t, 1, repo.clearCount())
	assert.Equal(t, navigation.LoginPath, nav.Location())
	assert.Equal(t, domain.StateUnauthenticated, s.Session().State)
}

func TestLoginScenarioAttachesBearerHeader(t *testing.T) {
	ctx := context.Background()
	srv := newBackendServer(t, make(chan struct{}))

	client := apiclient.New(srv.URL, nil)
	s := New(store.NewMemory(), client, navigation.New(navigation.LoginPath))

	require.NoError(t, s.Login(ctx, "abc", "admin"))
	assert.Equal(t, domain.StateAuthenticated, s.Session().State)

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin", me.Username)
}

// blockingBackend holds Me until release is closed.
type blockingBackend struct {
	*fakeBackend
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBackend) Me(ctx context.Context) (*domain.Me, error) {
	close(b.entered)
	<-b.release
	return b.fakeBackend.Me(ctx)
}

func TestCheckAuthKeepsAuthenticatedWhileRevalidating(t *testing.T) {
	ctx := context.Background()
	backend := &blockingBackend{
		fakeBackend: &fakeBackend{me: &domain.Me{Username: "admin"}},
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	s := New(store.NewMemory(), backend, nil)
	require.NoError(t, s.Login(ctx, "abc", "admin"))

	result := make(chan bool, 1)
	go func() { result <- s.CheckAuth(ctx) }()

	<-backend.entered
	assert.True(t, s.Authenticated(), "a valid session must stay authenticated during revalidation")
	assert.Equal(t, domain.StateAuthenticated, s.Session().State)

	close(backend.release)
	assert.True(t, <-result)
	assert.True(t, s.Authenticated())
}

// usernameFailRepo rejects writes of the username item.
type usernameFailRepo struct {
	*store.MemoryStore
}

func (r *usernameFailRepo) SetItem(ctx context.Context, key, value string) error {
	if key == domain.StorageKeyUsername {
		return errors.New("disk full")
	}
	return r.MemoryStore.SetItem(ctx, key, value)
}

func TestLoginRollsBackTokenWhenUsernameWriteFails(t *testing.T) {
	ctx := context.Background()
	repo := &usernameFailRepo{MemoryStore: store.NewMemory()}
	backend := &fakeBackend{}
	s := New(repo, backend, nil)

	require.Error(t, s.Login(ctx, "abc", "admin"))

	assert.False(t, s.Authenticated())
	assert.False(t, backend.cred.Present())
	_, ok := persisted(t, repo, domain.StorageKeyToken)
	assert.False(t, ok, "a half-written credential must not stay persisted")
}
