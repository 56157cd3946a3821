// Package i18n loads the embedded message catalogs and resolves the
// language used for page titles, breadcrumbs and recovery notices.
//
// Catalogs are TOML files named active.<lang>.toml. Vietnamese is the
// default language; other languages fall back to it message by message.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sync"

	"github.com/BurntSushi/toml"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var locales embed.FS

// DefaultLanguage is used when nothing else matches.
var DefaultLanguage = language.Vietnamese

// Bundle holds the parsed catalogs.
type Bundle struct {
	bundle  *goi18n.Bundle
	matcher language.Matcher
	tags    []language.Tag
	logger  *slog.Logger

	mu         sync.Mutex
	localizers map[string]*Localizer
}

// NewBundle parses the embedded catalogs. defaultLang may be empty.
func NewBundle(defaultLang string) (*Bundle, error) {
	def := DefaultLanguage
	if defaultLang != "" {
		tag, err := language.Parse(defaultLang)
		if err != nil {
			return nil, fmt.Errorf("i18n: default language %q: %w", defaultLang, err)
		}
		def = tag
	}

	b := goi18n.NewBundle(def)
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(locales, "locales/*.toml")
	if err != nil {
		return nil, fmt.Errorf("i18n: list catalogs: %w", err)
	}
	for _, name := range files {
		data, err := locales.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", name, err)
		}
		if _, err := b.ParseMessageFileBytes(data, path.Base(name)); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", name, err)
		}
	}

	// The default language goes first so the matcher prefers it on ties.
	tags := []language.Tag{def}
	for _, tag := range b.LanguageTags() {
		if tag != def {
			tags = append(tags, tag)
		}
	}

	return &Bundle{
		bundle:     b,
		matcher:    language.NewMatcher(tags),
		tags:       tags,
		logger:     slog.Default().With("component", "i18n"),
		localizers: make(map[string]*Localizer),
	}, nil
}

// MustBundle is like NewBundle but panics on error.
func MustBundle(defaultLang string) *Bundle {
	b, err := NewBundle(defaultLang)
	if err != nil {
		panic(err)
	}
	return b
}

// Languages returns the supported languages, default first.
func (b *Bundle) Languages() []string {
	out := make([]string, len(b.tags))
	for i, tag := range b.tags {
		out[i] = tag.String()
	}
	return out
}

// Default returns the default language code.
func (b *Bundle) Default() string {
	return b.tags[0].String()
}

// Match picks the best supported language for an Accept-Language header
// value. Unparseable or empty input yields the default language.
func (b *Bundle) Match(acceptLanguage string) string {
	if acceptLanguage == "" {
		return b.Default()
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return b.Default()
	}
	_, idx, conf := b.matcher.Match(prefs...)
	if conf == language.No {
		return b.Default()
	}
	return b.tags[idx].String()
}

// Localizer returns the localizer for lang. Unknown languages resolve to
// the default.
func (b *Bundle) Localizer(lang string) *Localizer {
	lang = b.Match(lang)

	b.mu.Lock()
	defer b.mu.Unlock()
	if l, ok := b.localizers[lang]; ok {
		return l
	}
	l := &Localizer{
		lang:   lang,
		loc:    goi18n.NewLocalizer(b.bundle, lang),
		logger: b.logger,
	}
	b.localizers[lang] = l
	return l
}

// Localizer translates message IDs for one language.
type Localizer struct {
	lang   string
	loc    *goi18n.Localizer
	logger *slog.Logger
}

// Lang returns the language code.
func (l *Localizer) Lang() string {
	return l.lang
}

// T translates id. data fills template placeholders and may be nil.
// A missing message yields the id itself.
func (l *Localizer) T(id string, data map[string]any) string {
	if l == nil {
		return id
	}
	msg, err := l.loc.Localize(&goi18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		l.logger.Warn("missing translation", "lang", l.lang, "id", id, "error", err)
		return id
	}
	return msg
}
