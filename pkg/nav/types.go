package nav

import (
	"context"
	"fmt"
	"time"

	"github.com/vango-dev/backoffice/pkg/apperr"
	"github.com/vango-dev/backoffice/pkg/boundary"
	"github.com/vango-dev/backoffice/pkg/router"
)

// State is the lifecycle state of a region.
type State int32

const (
	StateIdle State = iota
	StateResolving
	StateRendering
	StateRedirecting
	StateFaulted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateRendering:
		return "rendering"
	case StateRedirecting:
		return "redirecting"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Outcome is how a navigation ended.
type Outcome int

const (
	// OutcomePending means the navigation has not finished yet.
	OutcomePending Outcome = iota

	// OutcomeRendered means a page was published.
	OutcomeRendered

	// OutcomeRedirected means no route matched and the user was sent home.
	OutcomeRedirected

	// OutcomeStale means a newer navigation superseded this one and its
	// result was dropped.
	OutcomeStale

	// OutcomeRecovered means the navigation failed and the recoverer
	// redirected.
	OutcomeRecovered

	// OutcomeReloaded means the navigation failed and the recoverer asked
	// for a full reload.
	OutcomeReloaded

	// OutcomeFailed means recovery itself failed.
	OutcomeFailed

	// OutcomeCanceled means the caller's context ended before the
	// navigation finished.
	OutcomeCanceled

	// OutcomeClosed means the region was closed.
	OutcomeClosed
)

// String returns the outcome name, used as a metric label.
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeRendered:
		return "rendered"
	case OutcomeRedirected:
		return "redirected"
	case OutcomeStale:
		return "stale"
	case OutcomeRecovered:
		return "recovered"
	case OutcomeReloaded:
		return "reloaded"
	case OutcomeFailed:
		return "failed"
	case OutcomeCanceled:
		return "canceled"
	case OutcomeClosed:
		return "closed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// View is what a region publishes after a successful navigation.
type View struct {
	Generation  uint64              `json:"generation"`
	Path        string              `json:"path"`
	RouteID     string              `json:"route"`
	Title       string              `json:"title"`
	Breadcrumbs []router.Breadcrumb `json:"breadcrumbs"`
	Params      router.Params       `json:"params,omitempty"`

	// Content is the page descriptor returned by the page factory.
	Content any `json:"-"`
}

// Navigation describes one navigation attempt. Middleware receives it
// before the navigation runs; RouteID, Params, Outcome, Decision and Err are
// filled in as it progresses.
type Navigation struct {
	Generation uint64
	Path       string
	StartedAt  time.Time

	RouteID string
	Params  router.Params

	Outcome  Outcome
	Decision *boundary.Decision
	View     *View

	// Err is the failure handed to the recoverer, if any.
	Err error
}

// NavigateOptions controls a history update.
type NavigateOptions struct {
	// Replace replaces the current history entry instead of pushing one.
	Replace bool
}

// Progress is the page-load progress indicator.
type Progress interface {
	Start()
	Finish()
}

// History is the browser history of the region.
type History interface {
	Navigate(path string, opts NavigateOptions)
	Reload()
}

// Publisher receives the view of every successful navigation. Publish is
// called while the controller holds its lock; it must not call back into
// the controller.
type Publisher interface {
	Publish(v View)
}

// Recoverer decides how to recover from a failed navigation. It may block,
// for example while waiting for the user to acknowledge a notice.
type Recoverer interface {
	Recover(ctx context.Context, err error) (boundary.Decision, error)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(View)

// Publish implements Publisher.
func (f PublisherFunc) Publish(v View) { f(v) }

// Middleware wraps every navigation. Implementations must call next
// exactly once and should return its error.
type Middleware interface {
	Handle(ctx context.Context, n *Navigation, next func(context.Context) error) error
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(ctx context.Context, n *Navigation, next func(context.Context) error) error

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(ctx context.Context, n *Navigation, next func(context.Context) error) error {
	return f(ctx, n, next)
}

// Deps are the collaborators of a Controller. Nil fields get no-op
// implementations; a nil Recoverer reloads on every failure.
type Deps struct {
	Progress  Progress
	History   History
	Publisher Publisher
	Recoverer Recoverer
}

type noopProgress struct{}

func (noopProgress) Start()  {}
func (noopProgress) Finish() {}

type noopHistory struct{}

func (noopHistory) Navigate(string, NavigateOptions) {}
func (noopHistory) Reload()                          {}

type noopPublisher struct{}

func (noopPublisher) Publish(View) {}

type reloadRecoverer struct{}

func (reloadRecoverer) Recover(_ context.Context, err error) (boundary.Decision, error) {
	return boundary.Decision{Kind: apperr.KindOf(err), Action: boundary.ActionReload}, nil
}
