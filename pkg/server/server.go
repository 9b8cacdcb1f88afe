// Package server exposes the panel over HTTP: form definitions, validation,
// submission, repeatable rows, preview drill-down and the tab and sidebar
// state the front-end asks for.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-crmpanel/pkg/apidoc"
	"github.com/goliatone/go-crmpanel/pkg/backend"
	"github.com/goliatone/go-crmpanel/pkg/catalog"
	"github.com/goliatone/go-crmpanel/pkg/config"
	"github.com/goliatone/go-crmpanel/pkg/form"
	"github.com/goliatone/go-crmpanel/pkg/formschema"
	"github.com/goliatone/go-crmpanel/pkg/formview"
	"github.com/goliatone/go-crmpanel/pkg/intl"
	"github.com/goliatone/go-crmpanel/pkg/metrics"
	"github.com/goliatone/go-crmpanel/pkg/navigation"
	"github.com/goliatone/go-crmpanel/pkg/preview"
	"github.com/goliatone/go-crmpanel/pkg/rows"
	"github.com/goliatone/go-crmpanel/pkg/session"
	"github.com/goliatone/go-crmpanel/pkg/ui"
	"github.com/goliatone/go-crmpanel/pkg/widgets"
)

// Backend is the subset of the backend client the handlers use.
type Backend interface {
	Record(ctx context.Context, endpoint, id string) (map[string]any, error)
	Submit(ctx context.Context, endpoint string, payload any, out any) error
	Fetch(ctx context.Context, link string) ([]byte, error)
}

// Option configures a Server.
type Option func(*Server)

// WithForms overrides the form definitions.
func WithForms(store *formschema.Store) Option {
	return func(s *Server) { s.forms = store }
}

// WithBackend overrides the backend client.
func WithBackend(b Backend) Option {
	return func(s *Server) { s.backend = b }
}

// WithCatalog overrides the catalog used by pickers.
func WithCatalog(src catalog.Source) Option {
	return func(s *Server) { s.catalog = src }
}

// WithSessionStore overrides the in-memory session store.
func WithSessionStore(store session.Store) Option {
	return func(s *Server) { s.sessions = store }
}

// WithPreview overrides the preview renderer.
func WithPreview(r *preview.Renderer) Option {
	return func(s *Server) { s.preview = r }
}

// WithFormView overrides the HTML form renderer used for htmx requests.
func WithFormView(r *formview.Renderer) Option {
	return func(s *Server) { s.formView = r }
}

// WithBundle overrides the message bundle.
func WithBundle(b *intl.Bundle) Option {
	return func(s *Server) { s.bundle = b }
}

// WithMetrics overrides the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger overrides the logger built from the configuration.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRowIDs overrides the generator used for cloned row suffixes.
func WithRowIDs(ids rows.IDGenerator) Option {
	return func(s *Server) { s.rowIDs = ids }
}

// WithTabSets overrides the tab strips served by /panel/tabs.
func WithTabSets(sets map[string][]ui.Tab) Option {
	return func(s *Server) { s.tabSets = sets }
}

// WithStatic serves files under /static/.
func WithStatic(files fs.FS) Option {
	return func(s *Server) { s.static = files }
}

// WithMiddleware appends router middleware after the built-in chain.
func WithMiddleware(mw ...mux.MiddlewareFunc) Option {
	return func(s *Server) { s.extra = append(s.extra, mw...) }
}

// Server wires the panel components behind a gorilla/mux router.
type Server struct {
	cfg       *config.Configuration
	forms     *formschema.Store
	engine    *form.Engine
	widgets   *widgets.Registry
	backend   Backend
	catalog   catalog.Source
	sessions  session.Store
	preview   *preview.Renderer
	formView  *formview.Renderer
	navigator *navigation.Navigator
	sidebar   *ui.Sidebar
	bundle    *intl.Bundle
	metrics   *metrics.Metrics
	logger    *logrus.Logger
	rowIDs    rows.IDGenerator
	tabSets   map[string][]ui.Tab
	extra     []mux.MiddlewareFunc
	static    fs.FS
	apiDoc    []byte
}

// New assembles a server. Components not supplied through options are built
// from cfg.
func New(cfg *config.Configuration, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: configuration required")
	}
	s := &Server{
		cfg:     cfg,
		widgets: widgets.NewRegistry(),
		rowIDs:  rows.NewClockIDs(nil),
		tabSets: DefaultTabSets(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if err := s.defaults(); err != nil {
		return nil, err
	}

	s.engine = form.NewEngine(nil,
		form.WithTranslator(s.bundle),
		form.WithLogger(s.logger),
	)
	s.sidebar = ui.NewSidebar(s.sessions)
	s.navigator = navigation.New(s.backend, s.preview, s.sessions,
		navigation.WithLogger(s.logger),
		navigation.WithObserver(s.metrics.PreviewLoad),
	)

	doc, err := apidoc.Build(s.forms.List())
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	if s.apiDoc, err = apidoc.JSON(doc); err != nil {
		return nil, fmt.Errorf("server: encode api description: %w", err)
	}
	return s, nil
}

func (s *Server) defaults() error {
	var err error
	if s.logger == nil {
		s.logger = s.cfg.Logger()
	}
	if s.forms == nil {
		if s.forms, err = formschema.Default(); err != nil {
			return fmt.Errorf("server: load forms: %w", err)
		}
	}
	if s.bundle == nil {
		if s.bundle, err = intl.New(); err != nil {
			return fmt.Errorf("server: load messages: %w", err)
		}
	}
	if s.backend == nil {
		opts := []backend.Option{
			backend.WithTimeout(s.cfg.Backend.Timeout),
			backend.WithLogger(s.logger),
		}
		if s.cfg.Backend.AuthHeader != "" {
			opts = append(opts, backend.WithHeader(s.cfg.Backend.AuthHeader, s.cfg.Backend.AuthToken))
		}
		if s.backend, err = backend.New(s.cfg.Backend.URL, opts...); err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}
	if s.catalog == nil {
		s.catalog = catalog.NewClient(s.cfg.CatalogURL(),
			catalog.WithTTL(s.cfg.Backend.CatalogTTL),
			catalog.WithTimeout(s.cfg.Backend.Timeout),
			catalog.WithLogger(s.logger),
		)
	}
	if s.sessions == nil {
		s.sessions = session.NewMemoryStore(session.WithMemoryTTL(s.cfg.Session.TTL))
	}
	if s.preview == nil {
		selection, err := preview.SelectTheme(s.cfg.Theme, s.cfg.ThemeVariant)
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		if s.preview, err = preview.New(preview.WithTheme(selection), preview.WithLogger(s.logger)); err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}
	if s.formView == nil {
		if s.formView, err = formview.New(formview.WithWidgets(s.widgets), formview.WithLogger(s.logger)); err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return nil
}

// Router registers every route behind the middleware chain.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	middlewares := append([]mux.MiddlewareFunc{
		s.withRequestLogger,
		s.withMetrics,
		s.withLocale,
		s.withSession,
	}, s.extra...)
	r.Use(middlewares...)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/openapi.json", s.openAPI).Methods(http.MethodGet)
	if s.cfg.Prometheus.Enabled {
		r.Handle(s.cfg.Prometheus.Path, s.metrics.Handler()).Methods(http.MethodGet)
	}
	if s.static != nil {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServerFS(s.static))).Methods(http.MethodGet)
	}

	panel := r.PathPrefix("/panel").Subrouter()
	panel.HandleFunc("/forms", s.listForms).Methods(http.MethodGet)
	panel.HandleFunc("/forms/{form}", s.getForm).Methods(http.MethodGet)
	panel.HandleFunc("/forms/{form}/validate", s.validateForm).Methods(http.MethodPost)
	panel.HandleFunc("/forms/{form}/submit", s.submitForm).Methods(http.MethodPost)
	panel.HandleFunc("/forms/{form}/records/{id}", s.getRecord).Methods(http.MethodGet)
	panel.HandleFunc("/forms/{form}/sections/{section}/rows", s.addRow).Methods(http.MethodPost)
	panel.HandleFunc("/forms/{form}/sections/{section}/rows/{row}", s.deleteRow).Methods(http.MethodDelete)
	panel.HandleFunc("/preview", s.openPreview).Methods(http.MethodGet)
	panel.HandleFunc("/preview/drill", s.drillPreview).Methods(http.MethodPost)
	panel.HandleFunc("/preview/back", s.backPreview).Methods(http.MethodPost)
	panel.HandleFunc("/sidebar", s.getSidebar).Methods(http.MethodGet)
	panel.HandleFunc("/sidebar/toggle", s.toggleSidebar).Methods(http.MethodPost)
	panel.HandleFunc("/sidebar/follow", s.followMenuItem).Methods(http.MethodPost)
	panel.HandleFunc("/tabs", s.getTabs).Methods(http.MethodGet)
	panel.HandleFunc("/catalog", s.lookupCatalog).Methods(http.MethodGet)

	notFound := http.Handler(http.HandlerFunc(s.notFound))
	notAllowed := http.Handler(http.HandlerFunc(s.methodNotAllowed))
	for i := len(middlewares) - 1; i >= 0; i-- {
		notFound = middlewares[i](notFound)
		notAllowed = middlewares[i](notAllowed)
	}
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = notAllowed
	return r
}

// Handler returns the gzip-wrapped router.
func (s *Server) Handler() http.Handler {
	return gziphandler.GzipHandler(s.Router())
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("server: listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return nil
	}
}

// Close releases the session store when it holds a connection.
func (s *Server) Close() error {
	if closer, ok := s.sessions.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.apiDoc)
}

func (s *Server) notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", "resource not found", nil)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
}
