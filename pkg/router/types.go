package router

import (
	"context"
	"regexp"
)

// PageFactory builds the page descriptor for a resolved route. The returned
// value is opaque to the router and the navigation controller; it belongs to
// the presentation layer.
type PageFactory func(ctx context.Context, params Params) (any, error)

// Breadcrumb is one entry of the "you are here" trail. An empty Href renders
// as plain text.
type Breadcrumb struct {
	Text string `json:"text"`
	Href string `json:"href,omitempty"`
}

// Trail produces the breadcrumb items of a page for the matched params.
type Trail interface {
	Breadcrumbs(params Params) []Breadcrumb
}

// StaticTrail is a Trail that ignores params.
type StaticTrail []Breadcrumb

// Breadcrumbs implements Trail.
func (s StaticTrail) Breadcrumbs(Params) []Breadcrumb {
	if s == nil {
		return nil
	}
	out := make([]Breadcrumb, len(s))
	copy(out, s)
	return out
}

// TrailFunc adapts a function to Trail.
type TrailFunc func(params Params) []Breadcrumb

// Breadcrumbs implements Trail.
func (f TrailFunc) Breadcrumbs(params Params) []Breadcrumb {
	return f(params)
}

// Meta contains page metadata published alongside the page content.
type Meta struct {
	// Title is the document title.
	Title string

	// Breadcrumb is either a StaticTrail or a TrailFunc. Nil means no trail.
	Breadcrumb Trail
}

// Crumbs evaluates the breadcrumb trail for params.
func (m Meta) Crumbs(params Params) []Breadcrumb {
	if m.Breadcrumb == nil {
		return nil
	}
	return m.Breadcrumb.Breadcrumbs(params)
}

// Route declares one navigable page.
type Route struct {
	// ID is the unique route name (e.g., "customers.show").
	ID string

	// Pattern is an anchored expression. Named groups become params.
	Pattern *regexp.Regexp

	// Page builds the page content.
	Page PageFactory

	// Meta holds the title and breadcrumb trail.
	Meta Meta
}

// MatchResult is the outcome of a successful resolution.
type MatchResult struct {
	// Route is a copy of the matched route.
	Route Route

	// Params are the named captures of the pattern.
	Params Params
}
