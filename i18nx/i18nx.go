// Package i18nx localizes user-facing messages of the settings service.
//
// Overview:
//   - Responsibility: Load message catalogs, pick a locale per request, format messages
//   - Key Types: Translator, Option
//   - Concurrency Model: A Translator is immutable after New and safe for concurrent use
//   - Error Semantics: New fails on malformed catalogs; Translate never fails and
//     falls back to the default locale, then to the key itself
//   - Performance Notes: Catalogs are built once; printers are created per call
//
// Catalogs are YAML files with a locale and a messages map. English and French
// are embedded; WithCatalogFS adds or overrides locales from another filesystem.
//
// Usage:
//
//	tr, _ := i18nx.New()
//	ctx = i18nx.WithLocale(ctx, tr.Negotiate(r.Header.Get("Accept-Language")))
//	msg := tr.Translate(ctx, "setting.value.boolean")
package i18nx

import (
	"context"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"

	"go.eggybyte.com/settings/core/errors"
)

//go:embed locales/*.yaml
var embeddedLocales embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Translator formats catalog messages for the locale carried by a context.
type Translator struct {
	builder   *catalog.Builder
	supported []language.Tag
	matcher   language.Matcher
	fallback  language.Tag
}

type options struct {
	fallback language.Tag
	extra    []fs.FS
}

// Option configures a Translator.
type Option func(*options)

// WithDefaultLocale sets the locale used when negotiation finds nothing better.
func WithDefaultLocale(tag language.Tag) Option {
	return func(o *options) { o.fallback = tag }
}

// WithCatalogFS loads additional "locales/*.yaml" catalogs from fsys.
// Later catalogs override earlier messages with the same key.
func WithCatalogFS(fsys fs.FS) Option {
	return func(o *options) { o.extra = append(o.extra, fsys) }
}

// New builds a Translator from the embedded catalogs plus any extra ones.
func New(opts ...Option) (*Translator, error) {
	o := options{fallback: language.English}
	for _, opt := range opts {
		opt(&o)
	}

	builder := catalog.NewBuilder(catalog.Fallback(o.fallback))
	seen := map[language.Tag]bool{}

	sources := append([]fs.FS{embeddedLocales}, o.extra...)
	for _, src := range sources {
		tags, err := loadCatalogs(builder, src)
		if err != nil {
			return nil, err
		}
		for _, tag := range tags {
			seen[tag] = true
		}
	}
	if !seen[o.fallback] {
		return nil, errors.Newf(errors.CodeInvalidArgument, "i18nx: default locale %s has no catalog", o.fallback)
	}

	// The fallback goes first so the matcher prefers it on ties.
	supported := []language.Tag{o.fallback}
	var rest []language.Tag
	for tag := range seen {
		if tag != o.fallback {
			rest = append(rest, tag)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].String() < rest[j].String() })
	supported = append(supported, rest...)

	return &Translator{
		builder:   builder,
		supported: supported,
		matcher:   language.NewMatcher(supported),
		fallback:  o.fallback,
	}, nil
}

func loadCatalogs(builder *catalog.Builder, fsys fs.FS) ([]language.Tag, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "i18nx.load", err)
	}
	sort.Strings(paths)

	var tags []language.Tag
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, errors.Wrapf(errors.CodeInternal, "i18nx.load", err, "read %s", p)
		}

		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, errors.Wrapf(errors.CodeInvalidArgument, "i18nx.load", err, "parse %s", p)
		}

		locale := strings.TrimSpace(file.Locale)
		if locale == "" {
			locale = strings.TrimSuffix(path.Base(p), path.Ext(p))
		}
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, errors.Wrapf(errors.CodeInvalidArgument, "i18nx.load", err, "%s: locale %q", p, locale)
		}

		for key, msg := range file.Messages {
			if strings.TrimSpace(key) == "" {
				return nil, errors.Newf(errors.CodeInvalidArgument, "i18nx: %s: blank message key", p)
			}
			if err := builder.SetString(tag, key, msg); err != nil {
				return nil, errors.Wrapf(errors.CodeInvalidArgument, "i18nx.load", err, "%s: key %q", p, key)
			}
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// Supported returns the locales with a catalog, default locale first.
func (t *Translator) Supported() []language.Tag {
	out := make([]language.Tag, len(t.supported))
	copy(out, t.supported)
	return out
}

// Default returns the fallback locale.
func (t *Translator) Default() language.Tag {
	return t.fallback
}

// Negotiate picks the supported locale closest to an Accept-Language value.
func (t *Translator) Negotiate(acceptLanguage string) language.Tag {
	acceptLanguage = strings.TrimSpace(acceptLanguage)
	if acceptLanguage == "" {
		return t.fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t.fallback
	}
	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return t.fallback
	}
	return t.supported[idx]
}

// Translate formats the message for key in the locale carried by ctx.
// Unknown keys are formatted as-is.
func (t *Translator) Translate(ctx context.Context, key string, args ...any) string {
	tag := t.fallback
	if loc, ok := LocaleFrom(ctx); ok {
		tag = loc
	}
	p := message.NewPrinter(tag, message.Catalog(t.builder))
	return p.Sprintf(key, args...)
}

type localeKey struct{}

// WithLocale stores the request locale in ctx.
func WithLocale(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, localeKey{}, tag)
}

// LocaleFrom returns the locale stored by WithLocale.
func LocaleFrom(ctx context.Context) (language.Tag, bool) {
	tag, ok := ctx.Value(localeKey{}).(language.Tag)
	return tag, ok
}
