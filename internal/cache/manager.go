// Package cache keeps a terminal serving reliably offline-first.
//
// Manager is an http.RoundTripper sitting between the terminal and its
// upstream origin, applying a per-route fetch policy:
//
//   - shell routes ("/" and "/index.html"): network-first, cache fallback
//   - static assets (under the asset prefix): stale-while-revalidate
//   - everything else: passed through untouched, never cached
//
// Each deploy that changes shell content or fetch policy bumps the cache
// version; activation deletes every cache under a different name. That
// version bump is the only invalidation mechanism - there is no TTL.
//
// Cache writes are best-effort: a failed put never fails the outer fetch,
// and a lookup miss falls through to the network, never errors.
package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultShellPaths are the application shell's two canonical entry
// points, pre-cached at install time.
var DefaultShellPaths = []string{"/", "/index.html"}

// DefaultAssetPrefix is the bundler's static-asset path prefix.
const DefaultAssetPrefix = "/assets/"

// Manager applies the versioned cache policy. It begins in a waiting
// state and passes everything through until Activate (or SkipWaiting)
// hands it control.
type Manager struct {
	version     string
	origin      *url.URL
	upstream    http.RoundTripper
	storage     *Storage
	shell       map[string]struct{}
	assetPrefix string
	activated   atomic.Bool
	log         *zap.SugaredLogger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithStorage shares a cache registry across manager versions. Without
// it each manager gets a private registry and Activate has nothing of a
// predecessor's to purge.
func WithStorage(s *Storage) ManagerOption {
	return func(m *Manager) {
		if s != nil {
			m.storage = s
		}
	}
}

// WithShellPaths overrides the shell entry points.
func WithShellPaths(paths []string) ManagerOption {
	return func(m *Manager) {
		m.shell = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			m.shell[p] = struct{}{}
		}
	}
}

// WithAssetPrefix overrides the static-asset path prefix.
func WithAssetPrefix(prefix string) ManagerOption {
	return func(m *Manager) {
		if prefix != "" {
			m.assetPrefix = prefix
		}
	}
}

// WithLogger sets the manager logger. Defaults to a no-op logger.
func WithLogger(log *zap.SugaredLogger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager creates a Manager for the given cache version and upstream
// origin. The upstream transport defaults to http.DefaultTransport.
func NewManager(version, origin string, upstream http.RoundTripper, opts ...ManagerOption) (*Manager, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("new cache manager: parse origin: %w", err)
	}
	if upstream == nil {
		upstream = http.DefaultTransport
	}
	m := &Manager{
		version:     version,
		origin:      u,
		upstream:    upstream,
		storage:     NewStorage(),
		assetPrefix: DefaultAssetPrefix,
		log:         zap.NewNop().Sugar(),
	}
	m.shell = make(map[string]struct{}, len(DefaultShellPaths))
	for _, p := range DefaultShellPaths {
		m.shell[p] = struct{}{}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Version returns the manager's cache version name.
func (m *Manager) Version() string {
	return m.version
}

// Active reports whether the manager has claimed request interception.
func (m *Manager) Active() bool {
	return m.activated.Load()
}

// Install pre-populates the current version cache with the shell entry
// points. Unlike ordinary cache fills, install failures are returned:
// a shell that cannot be fetched at all leaves nothing to fall back on.
func (m *Manager) Install(ctx context.Context) error {
	c := m.storage.Open(m.version)
	for path := range m.shell {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.origin.JoinPath(path).String(), nil)
		if err != nil {
			return fmt.Errorf("install: %w", err)
		}
		res, err := m.upstream.RoundTrip(req)
		if err != nil {
			return fmt.Errorf("install %s: %w", path, err)
		}
		entry, err := snapshotEntry(res)
		res.Body.Close()
		if err != nil {
			return fmt.Errorf("install %s: %w", path, err)
		}
		if err := c.Put(path, entry); err != nil {
			return fmt.Errorf("install %s: %w", path, err)
		}
	}
	return nil
}

// Activate deletes every cache whose name differs from the current
// version and claims interception immediately - in-flight contexts are
// not waited for.
func (m *Manager) Activate() {
	for _, name := range m.storage.Names() {
		if name != m.version {
			m.storage.Delete(name)
			m.log.Infow("purged stale cache", "name", name)
		}
	}
	m.activated.Store(true)
}

// SkipWaiting is the explicit external signal to force-activate a waiting
// update immediately, without waiting for the normal lifecycle.
func (m *Manager) SkipWaiting() {
	m.Activate()
}

// RoundTrip implements http.RoundTripper with the per-route policy.
// Until activation, and for anything that is not a same-origin GET, the
// request passes straight through.
func (m *Manager) RoundTrip(req *http.Request) (*http.Response, error) {
	if !m.activated.Load() || req.Method != http.MethodGet || !m.sameOrigin(req.URL) {
		return m.upstream.RoundTrip(req)
	}

	path := req.URL.Path
	if _, ok := m.shell[path]; ok {
		return m.networkFirst(req)
	}
	if strings.HasPrefix(path, m.assetPrefix) {
		return m.staleWhileRevalidate(req)
	}
	return m.upstream.RoundTrip(req)
}

// networkFirst tries the network so new builds are picked up, filling the
// cache in the background on success. On network failure the last cached
// copy is served; with no cached copy the request fails.
func (m *Manager) networkFirst(req *http.Request) (*http.Response, error) {
	res, err := m.upstream.RoundTrip(req)
	if err == nil {
		entry, out, snapErr := cloneResponse(res)
		if snapErr != nil {
			return nil, snapErr
		}
		key := cacheKey(req)
		go m.put(key, entry)
		return out, nil
	}

	if entry, ok := m.storage.Open(m.version).Match(cacheKey(req)); ok {
		m.log.Debugw("shell served from cache", "path", req.URL.Path)
		return entry.response(req), nil
	}
	return nil, err
}

// staleWhileRevalidate serves the cached copy immediately and refreshes
// it in the background; a stale asset may be served for one cycle after a
// deploy and self-corrects on the next write. On a cache miss the fetch
// is synchronous.
func (m *Manager) staleWhileRevalidate(req *http.Request) (*http.Response, error) {
	key := cacheKey(req)
	if entry, ok := m.storage.Open(m.version).Match(key); ok {
		revalidate := req.Clone(context.Background())
		go func() {
			res, err := m.upstream.RoundTrip(revalidate)
			if err != nil {
				m.log.Debugw("revalidation failed", "path", revalidate.URL.Path, "error", err)
				return
			}
			fresh, err := snapshotEntry(res)
			res.Body.Close()
			if err != nil {
				m.log.Debugw("revalidation failed", "path", revalidate.URL.Path, "error", err)
				return
			}
			m.put(key, fresh)
		}()
		return entry.response(req), nil
	}

	res, err := m.upstream.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	entry, out, snapErr := cloneResponse(res)
	if snapErr != nil {
		return nil, snapErr
	}
	m.put(key, entry)
	return out, nil
}

// put is the best-effort cache write: failures are logged at debug and
// swallowed.
func (m *Manager) put(key string, entry Entry) {
	if err := m.storage.Open(m.version).Put(key, entry); err != nil {
		m.log.Debugw("cache write dropped", "key", key, "error", err)
	}
}

func (m *Manager) sameOrigin(u *url.URL) bool {
	return u.Host == "" || u.Host == m.origin.Host
}

// cacheKey identifies a cached response by path and query, matching how
// the browser cache keys requests.
func cacheKey(req *http.Request) string {
	if req.URL.RawQuery != "" {
		return req.URL.Path + "?" + req.URL.RawQuery
	}
	return req.URL.Path
}

// snapshotEntry drains the response body into an immutable Entry. The
// response body is consumed; callers still holding the response must use
// cloneResponse instead.
func snapshotEntry(res *http.Response) (Entry, error) {
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Entry{}, fmt.Errorf("read response body: %w", err)
	}
	return Entry{
		Status: res.StatusCode,
		Header: res.Header.Clone(),
		Body:   body,
	}, nil
}

// cloneResponse snapshots the response into an Entry and returns a
// replacement response whose body is still readable by the caller.
func cloneResponse(res *http.Response) (Entry, *http.Response, error) {
	entry, err := snapshotEntry(res)
	res.Body.Close()
	if err != nil {
		return Entry{}, nil, err
	}
	out := res
	out.Body = io.NopCloser(bytes.NewReader(entry.Body))
	out.ContentLength = int64(len(entry.Body))
	return entry, out, nil
}

// response materializes the entry as an http.Response for the given
// request.
func (e Entry) response(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode:    e.Status,
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}
