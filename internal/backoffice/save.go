package backoffice

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/vango-dev/backoffice/internal/store"
	"github.com/vango-dev/backoffice/pkg/apperr"
	"github.com/vango-dev/backoffice/pkg/auth"
)

// dataPrefix marks form fields stored in Record.Data.
const dataPrefix = "data."

// Save creates (id == 0) or updates a record of kind from submitted form
// values. Only signed-in staff may write, and admin kinds need the admin
// role.
func (a *App) Save(ctx context.Context, kind string, id int64, form url.Values) (store.Record, error) {
	res, ok := lookupResource(kind)
	if !ok {
		return store.Record{}, apperr.NotFound("resource", kind)
	}
	if err := auth.RequireAny(ctx, auth.RoleAdmin, auth.RoleStaff); err != nil {
		return store.Record{}, err
	}
	if err := res.authorize(ctx); err != nil {
		return store.Record{}, err
	}

	r := store.Record{Kind: kind}
	if id != 0 {
		existing, err := a.records.Get(ctx, kind, id)
		if err != nil {
			return store.Record{}, err
		}
		r = existing
	}

	r.Title = strings.TrimSpace(form.Get("title"))
	r.Notes = form.Get("notes")
	amount, err := parseAmount(form.Get("amount"))
	if err != nil {
		return store.Record{}, apperr.Validation("invalid record", map[string]string{"amount": "not a number"})
	}
	r.Amount = amount

	for key, values := range form {
		name, ok := strings.CutPrefix(key, dataPrefix)
		if !ok || name == "" || len(values) == 0 {
			continue
		}
		if r.Data == nil {
			r.Data = make(map[string]string)
		}
		r.Data[name] = strings.TrimSpace(values[0])
	}

	if err := a.records.Put(ctx, &r); err != nil {
		return store.Record{}, err
	}

	p, _ := auth.FromContext(ctx)
	a.logger.Info("record saved", "kind", kind, "id", r.ID, "principal", p.Name)
	return r, nil
}

// Submit saves form values like Save and returns the page to show next.
func (a *App) Submit(ctx context.Context, kind string, id int64, form url.Values) (string, error) {
	r, err := a.Save(ctx, kind, id, form)
	if err != nil {
		return "", err
	}
	return "/" + r.Kind + "/" + strconv.FormatInt(r.ID, 10), nil
}

// parseAmount accepts grouped amounts such as "2.300.000" or "2,300,000".
// Empty input is zero.
func parseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.NewReplacer(".", "", ",", "", " ", "", "₫", "").Replace(s)
	return strconv.ParseInt(s, 10, 64)
}
