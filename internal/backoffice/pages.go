package backoffice

import (
	"context"
	"html/template"
	"maps"
	"slices"
	"strconv"

	"github.com/vango-dev/backoffice/internal/store"
	"github.com/vango-dev/backoffice/pkg/apperr"
	"github.com/vango-dev/backoffice/pkg/cache"
	"github.com/vango-dev/backoffice/pkg/i18n"
	"github.com/vango-dev/backoffice/pkg/router"
)

// =============================================================================
// Page descriptors
// =============================================================================

// Section summarizes one record kind.
type Section struct {
	Kind   string
	Label  string
	Href   string
	Count  int
	Amount int64
}

// Field is one displayed record attribute.
type Field struct {
	Name  string
	Value string
}

// HomePage lists the kinds the principal may open.
type HomePage struct {
	Sections []Section
}

// ListPage lists the records of one kind.
type ListPage struct {
	Kind    string
	Label   string
	NewHref string
	Records []store.Record
}

// DetailPage shows one record.
type DetailPage struct {
	Kind     string
	Record   store.Record
	Fields   []Field
	Notes    template.HTML // sanitized
	EditHref string
	BackHref string

	// Attachable is set for kinds that keep receipts.
	Attachable bool
}

// FormPage is the create or edit form of a record.
type FormPage struct {
	Kind       string
	Record     store.Record
	Fields     []Field
	Editing    bool
	Action     string
	CancelHref string
}

// ReportsPage summarizes all kinds.
type ReportsPage struct {
	Sections []Section
	Revenue  int64
	Spending int64
	Balance  int64
}

// =============================================================================
// Cache keys
// =============================================================================

const countsKey = "counts"

func listKey(kind string) string {
	return "list:" + kind
}

func recordKey(kind string, id int64) string {
	return "record:" + kind + "/" + strconv.FormatInt(id, 10)
}

// =============================================================================
// Factories
// =============================================================================

func (a *App) counts(ctx context.Context) (map[string]store.Totals, error) {
	return cache.Load(ctx, cache.FromContext(ctx), countsKey, a.records.Counts)
}

// recordParams are the path params of detail and edit pages.
type recordParams struct {
	ID int64 `param:"id"`
}

func (a *App) record(ctx context.Context, res resource, p router.Params) (store.Record, error) {
	var args recordParams
	if err := p.Decode(&args); err != nil || args.ID <= 0 {
		return store.Record{}, apperr.NotFound(res.kind, p.Get("id"))
	}
	return cache.Load(ctx, cache.FromContext(ctx), recordKey(res.kind, args.ID), func(ctx context.Context) (store.Record, error) {
		return a.records.Get(ctx, res.kind, args.ID)
	})
}

func (a *App) sections(ctx context.Context, loc *i18n.Localizer) ([]Section, error) {
	counts, err := a.counts(ctx)
	if err != nil {
		return nil, err
	}
	var out []Section
	for _, res := range resources {
		if res.authorize(ctx) != nil {
			continue
		}
		t := counts[res.kind]
		out = append(out, Section{
			Kind:   res.kind,
			Label:  loc.T(res.key+"List", nil),
			Href:   res.base(),
			Count:  t.Count,
			Amount: t.Amount,
		})
	}
	return out, nil
}

func (a *App) homePage(loc *i18n.Localizer) router.PageFactory {
	return func(ctx context.Context, _ router.Params) (any, error) {
		sections, err := a.sections(ctx, loc)
		if err != nil {
			return nil, err
		}
		return HomePage{Sections: sections}, nil
	}
}

func (a *App) listPage(loc *i18n.Localizer, res resource) router.PageFactory {
	return func(ctx context.Context, _ router.Params) (any, error) {
		if err := res.authorize(ctx); err != nil {
			return nil, err
		}
		records, err := cache.Load(ctx, cache.FromContext(ctx), listKey(res.kind), func(ctx context.Context) ([]store.Record, error) {
			return a.records.List(ctx, res.kind)
		})
		if err != nil {
			return nil, err
		}
		return ListPage{
			Kind:    res.kind,
			Label:   loc.T(res.key+"List", nil),
			NewHref: res.base() + "/new",
			Records: records,
		}, nil
	}
}

func (a *App) detailPage(res resource) router.PageFactory {
	return func(ctx context.Context, p router.Params) (any, error) {
		if err := res.authorize(ctx); err != nil {
			return nil, err
		}
		r, err := a.record(ctx, res, p)
		if err != nil {
			return nil, err
		}
		notes, err := a.notes.Render(r.Notes)
		if err != nil {
			return nil, err
		}
		return DetailPage{
			Kind:       res.kind,
			Record:     r,
			Fields:     dataFields(r.Data),
			Notes:      notes,
			EditHref:   res.base() + "/" + p.Get("id") + "/edit",
			BackHref:   res.base(),
			Attachable: res.kind == "expenses" || res.kind == "supplies",
		}, nil
	}
}

func (a *App) formPage(res resource, editing bool) router.PageFactory {
	return func(ctx context.Context, p router.Params) (any, error) {
		if err := res.authorize(ctx); err != nil {
			return nil, err
		}
		page := FormPage{
			Kind:       res.kind,
			Record:     store.Record{Kind: res.kind},
			Action:     "/records/" + res.kind,
			CancelHref: res.base(),
		}
		if editing {
			r, err := a.record(ctx, res, p)
			if err != nil {
				return nil, err
			}
			page.Record = r
			page.Editing = true
			page.Action += "/" + p.Get("id")
			page.CancelHref += "/" + p.Get("id")
		}
		page.Fields = dataFields(page.Record.Data)
		return page, nil
	}
}

func (a *App) reportsPage(loc *i18n.Localizer) router.PageFactory {
	return func(ctx context.Context, _ router.Params) (any, error) {
		if err := reportsResource.authorize(ctx); err != nil {
			return nil, err
		}
		sections, err := a.sections(ctx, loc)
		if err != nil {
			return nil, err
		}
		page := ReportsPage{Sections: sections}
		for _, s := range sections {
			switch s.Kind {
			case "orders":
				page.Revenue += s.Amount
			case "expenses", "supplies":
				page.Spending += s.Amount
			}
		}
		page.Balance = page.Revenue - page.Spending
		return page, nil
	}
}

// reportsResource carries the role needed for reports.
var reportsResource = resource{kind: "reports", key: "Reports", admin: true}

// dataFields returns the record attributes sorted by name.
func dataFields(data map[string]string) []Field {
	keys := slices.Sorted(maps.Keys(data))
	out := make([]Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, Field{Name: k, Value: data[k]})
	}
	return out
}
