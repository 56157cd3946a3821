package backoffice

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/vango-dev/backoffice/internal/store"
	"github.com/vango-dev/backoffice/pkg/i18n"
	"github.com/vango-dev/backoffice/pkg/router"
)

// Records is the storage used by the back office.
type Records interface {
	Get(ctx context.Context, kind string, id int64) (store.Record, error)
	List(ctx context.Context, kind string) ([]store.Record, error)
	Put(ctx context.Context, r *store.Record) error
	Counts(ctx context.Context) (map[string]store.Totals, error)
}

// App holds the route tables and views of the back office.
type App struct {
	records Records
	bundle  *i18n.Bundle
	tables  map[string]*router.Table
	notes   *notesRenderer
	views   *template.Template
	logger  *slog.Logger
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// New builds the application over records with one route table per
// language of bundle.
func New(records Records, bundle *i18n.Bundle, opts ...Option) (*App, error) {
	a := &App{
		records: records,
		bundle:  bundle,
		tables:  make(map[string]*router.Table),
		notes:   newNotesRenderer(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "backoffice")

	views, err := parseViews()
	if err != nil {
		return nil, err
	}
	a.views = views

	for _, lang := range bundle.Languages() {
		table, err := a.newTable(bundle.Localizer(lang))
		if err != nil {
			return nil, fmt.Errorf("backoffice: routes for %s: %w", lang, err)
		}
		a.tables[lang] = table
	}
	return a, nil
}

// Table returns the route table for lang, or the default language's table
// when lang has no catalog.
func (a *App) Table(lang string) *router.Table {
	if t, ok := a.tables[lang]; ok {
		return t
	}
	return a.tables[a.bundle.Default()]
}

// Bundle returns the localization bundle.
func (a *App) Bundle() *i18n.Bundle {
	return a.bundle
}
