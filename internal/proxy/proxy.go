// Package proxy implements the local server that impersonates a Maven
// repository in front of an OCI registry. Each request is parsed into a
// coordinate, resolved from the registry on demand, mapped back onto the file
// name the resolver asked for, and cached for the rest of the build.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mvnoci/mvnoci/internal/artifacts"
	"github.com/mvnoci/mvnoci/internal/coords"
	"github.com/mvnoci/mvnoci/internal/metrics"
	"github.com/mvnoci/mvnoci/pkg/config"
	"github.com/mvnoci/mvnoci/pkg/logger"
)

// DiagnosticHeader names the upstream registry consulted for a request that
// came back not-found, so build logs can tell which source was tried.
const DiagnosticHeader = "X-Mvnoci-Registry-URL"

// Puller is the resolver surface the proxy depends on.
type Puller interface {
	Pull(ctx context.Context, c *coords.Coordinate, dir string) bool
	Reference(c *coords.Coordinate) (string, error)
}

// Store is the optional persistent cache consulted before the registry and
// populated after successful pulls.
type Store interface {
	Get(c *coords.Coordinate) ([]byte, bool)
	PutBundle(c *coords.Coordinate, sourceDir string) error
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithStore attaches a persistent cache.
func WithStore(s Store) Option {
	return func(p *Proxy) { p.store = s }
}

// WithMetrics attaches metrics collection.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Proxy) { p.metrics = m }
}

// Proxy serves one configured repository on an ephemeral loopback port. The
// component that creates a Proxy owns it and is responsible for calling Stop
// when the build finishes; instances are never tracked globally.
type Proxy struct {
	repo    config.Repository
	puller  Puller
	store   Store
	metrics *metrics.Metrics
	id      string
	session *sessionCache

	mu       sync.Mutex
	started  bool
	listener net.Listener
	server   *http.Server
}

// New creates a proxy for the repository. Call Start before use.
func New(repo config.Repository, puller Puller, opts ...Option) *Proxy {
	p := &Proxy{
		repo:    repo,
		puller:  puller,
		metrics: metrics.Noop(),
		id:      uuid.NewString(),
		session: newSessionCache(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start binds a loopback listener on an ephemeral port and begins serving.
// Calling Start twice on the same instance is a programming error and fails.
func (p *Proxy) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("proxy for repository %q already started", p.repo.Name)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to bind proxy listener: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
	r.Get("/*", p.handle)
	r.Head("/*", p.handle)

	p.listener = ln
	p.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	p.started = true

	srv := p.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("proxy %s: server error: %v", p.repo.Name, err)
		}
	}()

	logger.Infof("repository %q available at %s (instance %s)", p.repo.Name, p.url(), p.id)
	return nil
}

// Stop closes the listener and discards the session cache. Idempotent: safe
// to call repeatedly or on an instance that never started.
func (p *Proxy) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.server != nil {
		if err := p.server.Close(); err != nil {
			logger.Debugf("proxy %s: close: %v", p.repo.Name, err)
		}
		p.server = nil
		p.listener = nil
	}
	p.session.clear()
}

// URL returns the base URL the Maven resolver should be pointed at.
func (p *Proxy) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url()
}

func (p *Proxy) url() string {
	if p.listener == nil {
		return ""
	}
	return "http://" + p.listener.Addr().String()
}

func (p *Proxy) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := p.serve(w, r)
	p.metrics.RecordRequest(p.repo.Name, r.Method, status, time.Since(start).Seconds())
	logger.Debugf("proxy %s: %s %s -> %d [%s]",
		p.repo.Name, r.Method, r.URL.Path, status, middleware.GetReqID(r.Context()))
}

func (p *Proxy) serve(w http.ResponseWriter, r *http.Request) int {
	c := coords.ParsePath(r.URL.Path)
	if c == nil {
		w.WriteHeader(http.StatusBadRequest)
		return http.StatusBadRequest
	}

	key := c.CacheKey()
	if data, ok := p.session.get(key); ok {
		p.metrics.RecordCacheHit("session")
		return p.respond(w, r, c, data)
	}
	p.metrics.RecordCacheMiss("session")

	if p.store != nil {
		if data, ok := p.store.Get(c); ok {
			p.metrics.RecordCacheHit("persistent")
			p.session.put(key, data)
			return p.respond(w, r, c, data)
		}
		p.metrics.RecordCacheMiss("persistent")
	}

	data, status := p.resolve(r.Context(), c)
	if status != http.StatusOK {
		p.writeStatus(w, c, status)
		return status
	}
	p.session.put(key, data)
	return p.respond(w, r, c, data)
}

// resolve pulls the coordinate's artifact into a scoped temporary directory
// and extracts the requested file. The directory is removed on every exit
// path.
func (p *Proxy) resolve(ctx context.Context, c *coords.Coordinate) ([]byte, int) {
	dir, err := os.MkdirTemp("", "mvnoci-pull-")
	if err != nil {
		logger.Errorf("proxy %s: failed to create pull directory: %v", p.repo.Name, err)
		return nil, http.StatusInternalServerError
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warnf("proxy %s: failed to remove pull directory %s: %v", p.repo.Name, dir, err)
		}
	}()

	pullStart := time.Now()
	ok := p.puller.Pull(ctx, c, dir)
	p.metrics.RecordPull(p.repo.Name, ok, time.Since(pullStart).Seconds())
	if !ok {
		return nil, http.StatusNotFound
	}

	path, err := artifacts.FindRequested(dir, c)
	if err != nil {
		// Includes the missing-POM case: an artifact published without its
		// metadata is reported not-found, never papered over.
		logger.Debugf("proxy %s: pulled %s but no file matched: %v", p.repo.Name, c.CacheKey(), err)
		return nil, http.StatusNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Errorf("proxy %s: failed to read pulled file: %v", p.repo.Name, err)
		return nil, http.StatusInternalServerError
	}

	if p.store != nil {
		if err := p.store.PutBundle(c, dir); err != nil {
			// Cache population failure never masks a successful resolution.
			logger.Warnf("proxy %s: failed to cache bundle for %s: %v", p.repo.Name, c.CacheKey(), err)
		}
	}
	return data, http.StatusOK
}

func (p *Proxy) respond(w http.ResponseWriter, r *http.Request, c *coords.Coordinate, data []byte) int {
	w.Header().Set("Content-Type", contentTypeFor(c.Extension))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
	return http.StatusOK
}

func (p *Proxy) writeStatus(w http.ResponseWriter, c *coords.Coordinate, status int) {
	if status == http.StatusNotFound {
		if ref, err := p.puller.Reference(c); err == nil {
			w.Header().Set(DiagnosticHeader, ref)
		}
	}
	w.WriteHeader(status)
}

func contentTypeFor(ext string) string {
	switch {
	case ext == "jar":
		return "application/java-archive"
	case ext == "pom", ext == "xml":
		return "application/xml"
	default:
		return "application/octet-stream"
	}
}
