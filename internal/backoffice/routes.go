package backoffice

import (
	"context"

	"github.com/vango-dev/backoffice/pkg/auth"
	"github.com/vango-dev/backoffice/pkg/i18n"
	"github.com/vango-dev/backoffice/pkg/router"
)

// resource describes one record kind exposed by the back office.
type resource struct {
	kind  string // store kind and URL segment
	key   string // catalog key prefix
	admin bool   // pages need the admin role
}

// resources lists the record kinds in menu order.
var resources = []resource{
	{kind: "customers", key: "Customers"},
	{kind: "products", key: "Products"},
	{kind: "orders", key: "Orders"},
	{kind: "consultations", key: "Consultations"},
	{kind: "supplies", key: "Supplies"},
	{kind: "expenses", key: "Expenses", admin: true},
	{kind: "debts", key: "Debts", admin: true},
	{kind: "treatments", key: "Treatments"},
	{kind: "users", key: "Users", admin: true},
}

func lookupResource(kind string) (resource, bool) {
	for _, res := range resources {
		if res.kind == kind {
			return res, true
		}
	}
	return resource{}, false
}

func (r resource) base() string {
	return "/" + r.kind
}

// authorize checks the role needed to view the resource.
func (r resource) authorize(ctx context.Context) error {
	if !r.admin {
		return nil
	}
	return auth.RequireRole(ctx, auth.RoleAdmin)
}

// newTable declares the routes with titles and trails in loc's language.
//
//	/                      home
//	/<kind>                list
//	/<kind>/new            create form
//	/<kind>/:id:int        detail
//	/<kind>/:id:int/edit   edit form
//	/reports               reports
func (a *App) newTable(loc *i18n.Localizer) (*router.Table, error) {
	routes := []router.Route{{
		ID:      "home",
		Pattern: router.MustCompile("/"),
		Page:    a.homePage(loc),
		Meta:    router.Meta{Title: loc.T("AppName", nil)},
	}}

	for _, res := range resources {
		var (
			base   = res.base()
			list   = loc.T(res.key+"List", nil)
			create = loc.T(res.key+"New", nil)
			detail = loc.T(res.key+"Detail", nil)
			edit   = loc.T(res.key+"Edit", nil)
		)

		routes = append(routes,
			router.Route{
				ID:      res.kind + ".index",
				Pattern: router.MustCompile(base),
				Page:    a.listPage(loc, res),
				Meta: router.Meta{
					Title:      list,
					Breadcrumb: router.StaticTrail{{Text: list}},
				},
			},
			router.Route{
				ID:      res.kind + ".new",
				Pattern: router.MustCompile(base + "/new"),
				Page:    a.formPage(res, false),
				Meta: router.Meta{
					Title:      create,
					Breadcrumb: router.StaticTrail{{Text: list, Href: base}, {Text: create}},
				},
			},
			router.Route{
				ID:      res.kind + ".show",
				Pattern: router.MustCompile(base + "/:id:int"),
				Page:    a.detailPage(res),
				Meta: router.Meta{
					Title:      detail,
					Breadcrumb: router.StaticTrail{{Text: list, Href: base}, {Text: detail}},
				},
			},
			router.Route{
				ID:      res.kind + ".edit",
				Pattern: router.MustCompile(base + "/:id:int/edit"),
				Page:    a.formPage(res, true),
				Meta: router.Meta{
					Title: edit,
					Breadcrumb: router.TrailFunc(func(p router.Params) []router.Breadcrumb {
						return []router.Breadcrumb{
							{Text: list, Href: base},
							{Text: detail, Href: base + "/" + p.Get("id")},
							{Text: edit},
						}
					}),
				},
			},
		)
	}

	reports := loc.T("Reports", nil)
	routes = append(routes, router.Route{
		ID:      "reports",
		Pattern: router.MustCompile("/reports"),
		Page:    a.reportsPage(loc),
		Meta: router.Meta{
			Title:      reports,
			Breadcrumb: router.StaticTrail{{Text: reports}},
		},
	})

	return router.NewTable(routes...)
}
