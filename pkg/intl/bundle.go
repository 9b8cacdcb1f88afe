// Package intl loads the panel's message catalogs and negotiates the
// request locale. Persian is the default; English is bundled for operators.
package intl

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

// DefaultLocale is used when negotiation finds nothing better.
var DefaultLocale = language.Persian

// Bundle wraps an i18n bundle together with the tags it can serve.
type Bundle struct {
	bundle    *i18n.Bundle
	supported []language.Tag
	matcher   language.Matcher
}

// Option configures a Bundle.
type Option func(*bundleConfig)

type bundleConfig struct {
	files []fs.FS
}

// WithMessageFS adds extra message files (toml or json) on top of the
// embedded catalogs.
func WithMessageFS(fsys fs.FS) Option {
	return func(cfg *bundleConfig) {
		if fsys != nil {
			cfg.files = append(cfg.files, fsys)
		}
	}
}

// New loads the embedded catalogs plus any extra message files.
func New(opts ...Option) (*Bundle, error) {
	cfg := &bundleConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	bundle := i18n.NewBundle(DefaultLocale)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	sources := append([]fs.FS{localeFS}, cfg.files...)
	for _, src := range sources {
		if err := loadMessages(bundle, src); err != nil {
			return nil, err
		}
	}

	supported := bundle.LanguageTags()
	return &Bundle{
		bundle:    bundle,
		supported: supported,
		matcher:   language.NewMatcher(supported),
	}, nil
}

func loadMessages(bundle *i18n.Bundle, fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch path.Ext(p) {
		case ".toml", ".json":
		default:
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("intl: read %s: %w", p, err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, path.Base(p)); err != nil {
			return fmt.Errorf("intl: parse %s: %w", p, err)
		}
		return nil
	})
}

// Supported lists the locales with at least one catalog.
func (b *Bundle) Supported() []string {
	out := make([]string, 0, len(b.supported))
	for _, tag := range b.supported {
		out = append(out, tag.String())
	}
	return out
}

// Negotiate picks the best supported locale for an Accept-Language header.
func (b *Bundle) Negotiate(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLocale.String()
	}
	_, idx, confidence := b.matcher.Match(tags...)
	if confidence == language.No {
		return DefaultLocale.String()
	}
	return b.supported[idx].String()
}

// Localizer returns an i18n localizer for locale.
func (b *Bundle) Localizer(locale string) *i18n.Localizer {
	return i18n.NewLocalizer(b.bundle, locale, DefaultLocale.String())
}

// Translate resolves key for locale. An optional map argument is passed as
// template data.
func (b *Bundle) Translate(locale, key string, args ...any) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("intl: empty message id")
	}
	cfg := &i18n.LocalizeConfig{MessageID: key}
	if len(args) > 0 {
		if data, ok := args[0].(map[string]any); ok {
			cfg.TemplateData = data
		}
	}
	return b.Localizer(locale).Localize(cfg)
}

// T is Translate with the key as fallback.
func (b *Bundle) T(locale, key string) string {
	msg, err := b.Translate(locale, key)
	if err != nil || msg == "" {
		return key
	}
	return msg
}

type localeKey struct{}

// WithLocale stores the negotiated locale on ctx.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

// LocaleFrom returns the locale stored on ctx, or the default.
func LocaleFrom(ctx context.Context) string {
	if locale, ok := ctx.Value(localeKey{}).(string); ok && locale != "" {
		return locale
	}
	return DefaultLocale.String()
}
