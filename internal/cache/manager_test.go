package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUpstream is a scriptable origin: every request runs the current
// handler, and the total call count is recorded.
type fakeUpstream struct {
	mu      sync.Mutex
	handler func(*http.Request) (*http.Response, error)
	calls   int
}

func (u *fakeUpstream) RoundTrip(req *http.Request) (*http.Response, error) {
	u.mu.Lock()
	u.calls++
	h := u.handler
	u.mu.Unlock()
	return h(req)
}

func (u *fakeUpstream) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

func (u *fakeUpstream) serve(body string) {
	u.mu.Lock()
	u.handler = func(req *http.Request) (*http.Response, error) {
		rec := httptest.NewRecorder()
		rec.WriteString(body)
		return rec.Result(), nil
	}
	u.mu.Unlock()
}

func (u *fakeUpstream) fail(err error) {
	u.mu.Lock()
	u.handler = func(*http.Request) (*http.Response, error) { return nil, err }
	u.mu.Unlock()
}

func newTestManager(t *testing.T, version string, upstream *fakeUpstream, opts ...ManagerOption) *Manager {
	t.Helper()
	m, err := NewManager(version, "http://localhost:5173", upstream, opts...)
	require.NoError(t, err)
	return m
}

func get(t *testing.T, m *Manager, target string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	res, err := m.RoundTrip(req)
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body.Close()
	return res, string(body)
}

func TestInstall_PrecachesShell(t *testing.T) {
	upstream := &fakeUpstream{}
	upstream.serve("shell-v1")
	m := newTestManager(t, "v1", upstream)

	require.NoError(t, m.Install(context.Background()))

	c := m.storage.Open("v1")
	for _, path := range DefaultShellPaths {
		e, ok := c.Match(path)
		require.True(t, ok, path)
		assert.Equal(t, "shell-v1", string(e.Body))
	}
}

func TestInstall_FailureSurfaces(t *testing.T) {
	upstream := &fakeUpstream{}
	upstream.fail(errors.New("origin unreachable"))
	m := newTestManager(t, "v1", upstream)

	assert.Error(t, m.Install(context.Background()))
}

func TestRoundTrip_PassthroughBeforeActivation(t *testing.T) {
	upstream := &fakeUpstream{}
	upstream.serve("fresh")
	m := newTestManager(t, "v1", upstream)

	_, body := get(t, m, "http://localhost:5173/index.html")
	assert.Equal(t, "fresh", body)
	assert.Equal(t, 0, m.storage.Open("v1").Len())
	assert.False(t, m.Active())
}

func TestRoundTrip_PassthroughNonGetAndCrossOrigin(t *testing.T) {
	upstream := &fakeUpstream{}
	upstream.serve("fresh")
	m := newTestManager(t, "v1", upstream)
	m.Activate()

	req := httptest.NewRequest(http.MethodPost, "http://localhost:5173/index.html", bytes.NewReader(nil))
	res, err := m.RoundTrip(req)
	require.NoError(t, err)
	res.Body.Close()

	req = httptest.NewRequest(http.MethodGet, "http://elsewhere.example/index.html", nil)
	res, err = m.RoundTrip(req)
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, 0, m.storage.Open("v1").Len())
}

func TestRoundTrip_OtherRoutesNeverCached(t *testing.T) {
	upstream := &fakeUpstream{}
	upstream.serve("api payload")
	m := newTestManager(t, "v1", upstream)
	m.Activate()

	_, body := get(t, m, "http://localhost:5173/api/orders")
	assert.Equal(t, "api payload", body)
	assert.Equal(t, 0, m.storage.Open("v1").Len())
}

func TestNetworkFirst_PrefersNetworkAndFillsCache(t *testing.T) {
	upstream := &fakeUpstream{}
	upstream.serve("shell-new")
	m := newTestManager(t, "v1", upstream)
	m.Activate()
	m.storage.Open("v1").Put("/index.html", Entry{Status: 200, Header: http.Header{}, Body: []byte("shell-old")})

	_, body := get(t, m, "http://localhost:5173/index.html")
	assert.Equal(t, "shell-new", body)

	// The cache fill happens off the request path.
	require.Eventually(t, func() bool {
		e, ok := m.storage.Open("v1").Match("/index.html")
		return ok && string(e.Body) == "shell-new"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNetworkFirst_FallsBackToCacheOffline(t *testing.T) {
	upstream := &fakeUpstream{}
	upstream.serve("shell-v1")
	m := newTestManager(t, "v1", upstream)
	require.NoError(t, m.Install(context.Background()))
	m.Activate()

	upstream.fail(errors.New("network down"))

	res, body := get(t, m, "http://localhost:5173/")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "shell-v1", body)
}

func TestNetworkFirst_NoCacheNoNetworkFails(t *testing.T) {
	upstream := &fakeUpstream{}
	netErr := errors.New("network down")
	upstream.fail(netErr)
	m := newTestManager(t, "v1", upstream)
	m.Activate()

	req := httptest.NewRequest(http.MethodGet, "http://localhost:5173/", nil)
	_, err := m.RoundTrip(req)
	assert.ErrorIs(t, err, netErr)
}

func TestStaleWhileRevalidate_MissFetchesSynchronously(t *testing.T) {
	upstream := &fakeUpstream{}
	upstream.serve("bundle-v1")
	m := newTestManager(t, "v1", upstream)
	m.Activate()

	_, body := get(t, m, "http://localhost:5173/assets/app.js")
	assert.Equal(t, "bundle-v1", body)

	e, ok := m.storage.Open("v1").Match("/assets/app.js")
	require.True(t, ok)
	assert.Equal(t, "bundle-v1", string(e.Body))
}

func TestStaleWhileRevalidate_ServesStaleThenRefreshes(t *testing.T) {
	upstream := &fakeUpstream{}
	upstream.serve("bundle-v1")
	m := newTestManager(t, "v1", upstream)
	m.Activate()

	get(t, m, "http://localhost:5173/assets/app.js")
	upstream.serve("bundle-v2")

	// The stale copy is served for this cycle.
	_, body := get(t, m, "http://localhost:5173/assets/app.js")
	assert.Equal(t, "bundle-v1", body)

	// The background refresh self-corrects the cache.
	require.Eventually(t, func() bool {
		e, ok := m.storage.Open("v1").Match("/assets/app.js")
		return ok && string(e.Body) == "bundle-v2"
	}, 2*time.Second, 10*time.Millisecond)

	_, body = get(t, m, "http://localhost:5173/assets/app.js")
	assert.Equal(t, "bundle-v2", body)
}

func TestStaleWhileRevalidate_HitServedWhenOffline(t *testing.T) {
	upstream := &fakeUpstream{}
	upstream.serve("bundle-v1")
	m := newTestManager(t, "v1", upstream)
	m.Activate()

	get(t, m, "http://localhost:5173/assets/app.js")
	upstream.fail(errors.New("network down"))

	// The failed revalidation never disturbs the cached copy.
	_, body := get(t, m, "http://localhost:5173/assets/app.js")
	assert.Equal(t, "bundle-v1", body)
}

func TestCacheKey_IncludesQuery(t *testing.T) {
	upstream := &fakeUpstream{}
	upstream.serve("hashed")
	m := newTestManager(t, "v1", upstream)
	m.Activate()

	get(t, m, "http://localhost:5173/assets/app.js?v=abc123")

	_, ok := m.storage.Open("v1").Match("/assets/app.js?v=abc123")
	assert.True(t, ok)
	_, ok = m.storage.Open("v1").Match("/assets/app.js")
	assert.False(t, ok)
}

func TestActivate_PurgesPredecessorCaches(t *testing.T) {
	storage := NewStorage()
	upstream := &fakeUpstream{}
	upstream.serve("shell")

	old := newTestManager(t, "relay-app-shell-v1", upstream, WithStorage(storage))
	require.NoError(t, old.Install(context.Background()))
	old.Activate()
	require.Contains(t, storage.Names(), "relay-app-shell-v1")

	next := newTestManager(t, "relay-app-shell-v2", upstream, WithStorage(storage))
	require.NoError(t, next.Install(context.Background()))
	next.SkipWaiting()

	assert.True(t, next.Active())
	assert.Equal(t, []string{"relay-app-shell-v2"}, storage.Names())
}
