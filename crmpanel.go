// Package crmpanel assembles the panel from its configuration: form
// definitions, the HTML renderers, the session store and the HTTP server.
package crmpanel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goliatone/go-crmpanel/pkg/config"
	"github.com/goliatone/go-crmpanel/pkg/formschema"
	"github.com/goliatone/go-crmpanel/pkg/formview"
	"github.com/goliatone/go-crmpanel/pkg/preview"
	"github.com/goliatone/go-crmpanel/pkg/render/template/pongo"
	"github.com/goliatone/go-crmpanel/pkg/server"
	"github.com/goliatone/go-crmpanel/pkg/session"
)

// LoadForms reads the definitions under cfg.FormsDir, or the bundled ones
// when the directory is not configured.
func LoadForms(cfg *config.Configuration) (*formschema.Store, error) {
	if cfg == nil || cfg.FormsDir == "" {
		return formschema.Default()
	}
	store, err := formschema.LoadFS(os.DirFS(cfg.FormsDir))
	if err != nil {
		return nil, fmt.Errorf("crmpanel: forms from %s: %w", cfg.FormsDir, err)
	}
	return store, nil
}

// NewPreview builds the preview renderer for the configured theme. Templates
// found under cfg.TemplatesDir take precedence over the embedded ones.
func NewPreview(cfg *config.Configuration) (*preview.Renderer, error) {
	selection, err := preview.SelectTheme(cfg.Theme, cfg.ThemeVariant)
	if err != nil {
		return nil, fmt.Errorf("crmpanel: %w", err)
	}
	opts := []preview.Option{
		preview.WithTheme(selection),
		preview.WithLogger(cfg.Logger()),
	}
	if cfg.TemplatesDir != "" {
		engine, err := templateEngine(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, preview.WithTemplateRenderer(engine))
	}
	return preview.New(opts...)
}

// NewFormView builds the HTML form renderer. Like the preview, it prefers
// templates under cfg.TemplatesDir.
func NewFormView(cfg *config.Configuration) (*formview.Renderer, error) {
	opts := []formview.Option{formview.WithLogger(cfg.Logger())}
	if cfg.TemplatesDir != "" {
		engine, err := templateEngine(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, formview.WithTemplateRenderer(engine))
	}
	return formview.New(opts...)
}

// templateEngine loads cfg.TemplatesDir first and falls back to every
// embedded bundle.
func templateEngine(cfg *config.Configuration) (*pongo.Engine, error) {
	engine, err := pongo.New(
		pongo.WithBaseDir(cfg.TemplatesDir),
		pongo.WithFS(preview.Templates()),
		pongo.WithFS(formview.Templates()),
	)
	if err != nil {
		return nil, fmt.Errorf("crmpanel: templates from %s: %w", cfg.TemplatesDir, err)
	}
	return engine, nil
}

// OpenSessions returns the session store selected by cfg.Session.Store.
func OpenSessions(ctx context.Context, cfg *config.Configuration) (session.Store, error) {
	if cfg.Session.Store != config.StoreRedis {
		return session.NewMemoryStore(session.WithMemoryTTL(cfg.Session.TTL)), nil
	}
	store, err := session.DialRedis(ctx, cfg.Session.RedisURL,
		session.WithPrefix(cfg.Session.RedisPrefix),
		session.WithTTL(cfg.Session.TTL),
	)
	if err != nil {
		return nil, fmt.Errorf("crmpanel: %w", err)
	}
	return store, nil
}

// New builds a server from cfg. Options are applied after the configured
// components, so callers can replace any of them.
func New(ctx context.Context, cfg *config.Configuration, opts ...server.Option) (*server.Server, error) {
	if cfg == nil {
		return nil, errors.New("crmpanel: configuration required")
	}
	forms, err := LoadForms(cfg)
	if err != nil {
		return nil, err
	}
	renderer, err := NewPreview(cfg)
	if err != nil {
		return nil, err
	}
	formView, err := NewFormView(cfg)
	if err != nil {
		return nil, err
	}
	sessions, err := OpenSessions(ctx, cfg)
	if err != nil {
		return nil, err
	}

	base := []server.Option{
		server.WithForms(forms),
		server.WithPreview(renderer),
		server.WithFormView(formView),
		server.WithSessionStore(sessions),
		server.WithStatic(StaticFS()),
	}
	srv, err := server.New(cfg, append(base, opts...)...)
	if err != nil {
		if closer, ok := sessions.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, err
	}
	return srv, nil
}

// Serve runs the panel until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Configuration, opts ...server.Option) error {
	srv, err := New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			cfg.Logger().WithError(err).Warn("crmpanel: close session store")
		}
	}()
	return srv.Start(ctx, cfg.SocketAddress)
}
