package backoffice

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vango-dev/backoffice/pkg/auth"
	"github.com/vango-dev/backoffice/pkg/boundary"
	"github.com/vango-dev/backoffice/pkg/nav"
	"github.com/vango-dev/backoffice/pkg/router"
)

//go:embed views/*.html
var viewFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the client assets served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// parseViews parses the embedded templates. The functions are replaced per
// language at execution time.
func parseViews() (*template.Template, error) {
	t, err := template.New("views").Funcs(viewFuncs("", nil)).ParseFS(viewFS, "views/*.html")
	if err != nil {
		return nil, fmt.Errorf("backoffice: parse views: %w", err)
	}
	return t, nil
}

// viewFuncs returns the template functions for lang. translate may be nil
// while parsing.
func viewFuncs(lang string, translate func(id string, data map[string]any) string) template.FuncMap {
	return template.FuncMap{
		"t": func(id string, kv ...any) string {
			if translate == nil {
				return id
			}
			return translate(id, pairs(kv))
		},
		"money": func(v int64) string {
			return formatAmount(lang, v)
		},
		"date": func(t time.Time) string {
			return formatDate(lang, t)
		},
	}
}

// pairs turns alternating keys and values into template data.
func pairs(kv []any) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			out[k] = kv[i+1]
		}
	}
	return out
}

// formatAmount prints a VND amount with the language's digit grouping.
func formatAmount(lang string, v int64) string {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Vietnamese
	}
	return message.NewPrinter(tag).Sprintf("%d ₫", v)
}

func formatDate(lang string, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if strings.HasPrefix(lang, "en") {
		return t.Local().Format("Jan 2, 2006")
	}
	return t.Local().Format("02/01/2006")
}

// execute runs the named template with lang's functions.
func (a *App) execute(w io.Writer, lang, name string, data any) error {
	t, err := a.views.Clone()
	if err != nil {
		return err
	}
	loc := a.bundle.Localizer(lang)
	t.Funcs(viewFuncs(loc.Lang(), loc.T))
	if err := t.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("backoffice: render %s: %w", name, err)
	}
	return nil
}

// contentView names the template of a page descriptor.
func contentView(content any) (string, error) {
	switch content.(type) {
	case HomePage:
		return "home", nil
	case ListPage:
		return "list", nil
	case DetailPage:
		return "detail", nil
	case FormPage:
		return "form", nil
	case ReportsPage:
		return "reports", nil
	default:
		return "", fmt.Errorf("backoffice: no view for %T", content)
	}
}

// Content renders the page content of v, without the shell. It is what a
// live region replaces on each navigation.
func (a *App) Content(lang string, v nav.View) (template.HTML, error) {
	name, err := contentView(v.Content)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := a.execute(&buf, lang, name, v.Content); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

type menuItem struct {
	Label  string
	Href   string
	Active bool
}

type layoutData struct {
	Lang        string
	Title       string
	AppName     string
	Principal   auth.Principal
	Menu        []menuItem
	Breadcrumbs []router.Breadcrumb
	Content     template.HTML
}

// menu lists the pages the principal in ctx may open.
func (a *App) menu(ctx context.Context, lang, path string) []menuItem {
	loc := a.bundle.Localizer(lang)
	items := []menuItem{{Label: loc.T("Home", nil), Href: "/", Active: path == "/"}}
	for _, res := range resources {
		if res.authorize(ctx) != nil {
			continue
		}
		href := res.base()
		items = append(items, menuItem{
			Label:  loc.T(res.key+"List", nil),
			Href:   href,
			Active: path == href || strings.HasPrefix(path, href+"/"),
		})
	}
	if reportsResource.authorize(ctx) == nil {
		items = append(items, menuItem{Label: loc.T("Reports", nil), Href: "/reports", Active: path == "/reports"})
	}
	return items
}

func (a *App) layout(ctx context.Context, lang, path string) layoutData {
	p, _ := auth.FromContext(ctx)
	return layoutData{
		Lang:      a.bundle.Localizer(lang).Lang(),
		AppName:   a.bundle.Localizer(lang).T("AppName", nil),
		Principal: p,
		Menu:      a.menu(ctx, lang, path),
	}
}

// Page renders v inside the application shell.
func (a *App) Page(ctx context.Context, w io.Writer, lang string, v nav.View) error {
	content, err := a.Content(lang, v)
	if err != nil {
		return err
	}
	data := a.layout(ctx, lang, v.Path)
	data.Title = v.Title
	data.Breadcrumbs = v.Breadcrumbs
	data.Content = content
	return a.execute(w, lang, "layout", data)
}

// Notice renders an acknowledgement page for n whose button leads to next.
func (a *App) Notice(ctx context.Context, w io.Writer, lang string, n boundary.Notice, next string) error {
	var buf bytes.Buffer
	if err := a.execute(&buf, lang, "notice", struct {
		Notice boundary.Notice
		Next   string
	}{n, next}); err != nil {
		return err
	}
	data := a.layout(ctx, lang, "")
	data.Title = n.Title
	data.Content = template.HTML(buf.String())
	return a.execute(w, lang, "layout", data)
}

// Error renders the page shown when the application has to be reloaded.
// Its button reloads path.
func (a *App) Error(ctx context.Context, w io.Writer, lang, path string) error {
	var buf bytes.Buffer
	if err := a.execute(&buf, lang, "error", path); err != nil {
		return err
	}
	data := a.layout(ctx, lang, "")
	data.Title = a.bundle.Localizer(lang).T("ServerErrorTitle", nil)
	data.Content = template.HTML(buf.String())
	return a.execute(w, lang, "layout", data)
}
