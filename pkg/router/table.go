package router

import (
	"errors"
	"fmt"
)

// Table validation errors.
var (
	ErrMissingID   = errors.New("router: route without id")
	ErrDuplicateID = errors.New("router: duplicate route id")
	ErrNoPattern   = errors.New("router: route without pattern")
	ErrNoPage      = errors.New("router: route without page factory")
)

// Table is an ordered, immutable set of routes. It is safe for concurrent
// use once built.
type Table struct {
	routes []Route
	byID   map[string]int
}

// NewTable validates routes and builds a table. Declaration order is kept:
// it decides which route wins when several patterns match a path.
func NewTable(routes ...Route) (*Table, error) {
	t := &Table{
		routes: make([]Route, 0, len(routes)),
		byID:   make(map[string]int, len(routes)),
	}

	for i, r := range routes {
		if r.ID == "" {
			return nil, fmt.Errorf("%w at index %d", ErrMissingID, i)
		}
		if _, dup := t.byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, r.ID)
		}
		if r.Pattern == nil {
			return nil, fmt.Errorf("%w: %q", ErrNoPattern, r.ID)
		}
		if r.Page == nil {
			return nil, fmt.Errorf("%w: %q", ErrNoPage, r.ID)
		}
		t.byID[r.ID] = len(t.routes)
		t.routes = append(t.routes, r)
	}

	return t, nil
}

// MustTable is like NewTable but panics on error.
func MustTable(routes ...Route) *Table {
	t, err := NewTable(routes...)
	if err != nil {
		panic(err)
	}
	return t
}

// Resolve finds the first route whose pattern matches the path component of
// location. It returns nil when no route matches.
func (t *Table) Resolve(location string) *MatchResult {
	path, _, _ := SplitLocation(location)
	if !validPath(path) {
		return nil
	}

	for _, r := range t.routes {
		m := r.Pattern.FindStringSubmatch(path)
		if m == nil {
			continue
		}

		params := make(Params)
		for i, name := range r.Pattern.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}
			params[name] = m[i]
		}
		return &MatchResult{Route: r, Params: params}
	}

	return nil
}

// Lookup returns the route registered under id.
func (t *Table) Lookup(id string) (Route, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Route{}, false
	}
	return t.routes[i], true
}

// Routes returns a copy of the routes in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Len returns the number of routes.
func (t *Table) Len() int {
	return len(t.routes)
}
