package nav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/vango-dev/backoffice/pkg/apperr"
	"github.com/vango-dev/backoffice/pkg/boundary"
	"github.com/vango-dev/backoffice/pkg/cache"
	"github.com/vango-dev/backoffice/pkg/router"
)

// ErrNoHomeRoute is reported when the home path itself does not resolve.
// Redirecting would loop, so the navigation fails instead.
var ErrNoHomeRoute = errors.New("nav: home path does not match any route")

// Controller runs the page lifecycle of one navigation region.
// It is safe for concurrent use.
type Controller struct {
	table      *router.Table
	cache      *cache.ModelCache
	deps       Deps
	home       string
	minDelay   time.Duration
	logger     *slog.Logger
	middleware []Middleware

	// generation is only incremented with mu held; it is read without it.
	generation *atomic.Uint64

	mu     sync.Mutex
	state  State
	view   *View
	closed bool

	// life is canceled by Close so blocked navigations return.
	life context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// New creates a controller over table. The cache belongs to the region and
// is cleared by Close and by reload decisions; nil creates a fresh one.
func New(table *router.Table, c *cache.ModelCache, deps Deps, opts ...Option) *Controller {
	if c == nil {
		c = cache.New()
	}
	if deps.Progress == nil {
		deps.Progress = noopProgress{}
	}
	if deps.History == nil {
		deps.History = noopHistory{}
	}
	if deps.Publisher == nil {
		deps.Publisher = noopPublisher{}
	}
	if deps.Recoverer == nil {
		deps.Recoverer = reloadRecoverer{}
	}

	ctl := &Controller{
		table:      table,
		cache:      c,
		deps:       deps,
		home:       "/",
		logger:     slog.Default(),
		generation: atomic.NewUint64(0),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(ctl)
	}
	ctl.logger = ctl.logger.With("component", "nav")
	ctl.life, ctl.stop = context.WithCancel(context.Background())
	return ctl
}

// Navigate starts a navigation to location in the background and returns
// its generation. It returns 0 once the controller is closed.
func (c *Controller) Navigate(ctx context.Context, location string) uint64 {
	n, ok := c.begin(location)
	if !ok {
		return 0
	}
	go func() {
		defer c.wg.Done()
		c.run(ctx, n)
	}()
	return n.Generation
}

// Run performs a navigation to location and returns when it has finished,
// including any recovery.
func (c *Controller) Run(ctx context.Context, location string) *Navigation {
	n, ok := c.begin(location)
	if !ok {
		return &Navigation{Path: location, StartedAt: time.Now(), Outcome: OutcomeClosed}
	}
	defer c.wg.Done()
	c.run(ctx, n)
	return n
}

// Wait blocks until all started navigations have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close tears the region down. The model cache is cleared whatever the
// current state; in-flight navigations finish without publishing and later
// navigations are ignored. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	wasClosed := c.closed
	c.closed = true
	c.mu.Unlock()

	c.stop()
	cached := c.cache.Keys()
	c.cache.Clear()

	if !wasClosed {
		c.logger.Debug("region closed", "generation", c.generation.Load(), "discarded", cached)
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the generation of the latest navigation.
func (c *Controller) Generation() uint64 {
	return c.generation.Load()
}

// Current returns the last published view.
func (c *Controller) Current() (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return View{}, false
	}
	return *c.view, true
}

// Closed reports whether Close was called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Cache returns the region's model cache.
func (c *Controller) Cache() *cache.ModelCache {
	return c.cache
}

// begin registers a new navigation: it bumps the generation, enters
// Resolving and starts the progress indicator.
func (c *Controller) begin(location string) (*Navigation, bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false
	}
	gen := c.generation.Inc()
	c.state = StateResolving
	c.wg.Add(1)
	c.mu.Unlock()

	c.deps.Progress.Start()
	return &Navigation{Generation: gen, Path: location, StartedAt: time.Now()}, true
}

// apply runs fn with the lock held if gen is still the latest navigation
// and the region is open. It reports whether fn ran.
func (c *Controller) apply(gen uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.generation.Load() {
		return false
	}
	fn()
	return true
}

// dropped returns the outcome of a navigation whose result was discarded.
func (c *Controller) dropped() Outcome {
	if c.Closed() {
		return OutcomeClosed
	}
	return OutcomeStale
}

func (c *Controller) run(ctx context.Context, n *Navigation) {
	defer c.deps.Progress.Finish()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.life, cancel)
	defer stop()

	ctx = cache.NewContext(ctx, c.cache)

	handler := func(ctx context.Context) error {
		return c.navigate(ctx, n)
	}
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw, next := c.middleware[i], handler
		handler = func(ctx context.Context) error {
			return mw.Handle(ctx, n, next)
		}
	}

	if err := handler(ctx); err != nil {
		c.logger.Debug("navigation failed",
			"path", n.Path,
			"generation", n.Generation,
			"outcome", n.Outcome.String(),
			"error", err)
	}
}

// navigate is the innermost handler. The returned error is the failure
// handed to the recoverer, if any.
func (c *Controller) navigate(ctx context.Context, n *Navigation) error {
	gen := n.Generation

	match, err := c.resolve(ctx, n)
	if err != nil {
		return c.fault(ctx, n, err)
	}

	if match == nil {
		return c.redirectHome(n)
	}

	n.RouteID = match.Route.ID
	n.Params = match.Params

	if !c.apply(gen, func() { c.state = StateRendering }) {
		n.Outcome = c.dropped()
		return nil
	}

	content, crumbs, err := c.render(ctx, match)
	if err != nil {
		return c.fault(ctx, n, err)
	}

	path, _, _ := router.SplitLocation(n.Path)
	view := View{
		Generation:  gen,
		Path:        path,
		RouteID:     match.Route.ID,
		Title:       match.Route.Meta.Title,
		Breadcrumbs: crumbs,
		Params:      match.Params.Clone(),
		Content:     content,
	}
	if !c.apply(gen, func() {
		c.view = &view
		c.deps.Publisher.Publish(view)
	}) {
		n.Outcome = c.dropped()
		return nil
	}

	n.View = &view
	n.Outcome = OutcomeRendered
	return nil
}

func (c *Controller) redirectHome(n *Navigation) error {
	path, _, _ := router.SplitLocation(n.Path)
	if path == c.home {
		return c.fail(n, ErrNoHomeRoute)
	}

	if !c.apply(n.Generation, func() {
		c.state = StateRedirecting
		c.deps.History.Navigate(c.home, NavigateOptions{Replace: true})
	}) {
		n.Outcome = c.dropped()
		return nil
	}

	c.logger.Debug("no route matched, redirecting home", "path", n.Path, "home", c.home)
	n.Outcome = OutcomeRedirected
	return nil
}

// resolve matches the location and waits out the minimum delay.
func (c *Controller) resolve(ctx context.Context, n *Navigation) (match *router.MatchResult, err error) {
	defer recoverPanic(&err, "nav.resolve")

	match = c.table.Resolve(n.Path)

	if c.minDelay > 0 {
		if wait := c.minDelay - time.Since(n.StartedAt); wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return match, nil
}

// render invokes the page factory and evaluates the breadcrumb trail.
func (c *Controller) render(ctx context.Context, match *router.MatchResult) (content any, crumbs []router.Breadcrumb, err error) {
	defer recoverPanic(&err, "nav.render")

	content, err = match.Route.Page(ctx, match.Params)
	if err != nil {
		return nil, nil, err
	}
	crumbs = match.Route.Meta.Crumbs(match.Params)
	return content, crumbs, nil
}

// fault hands err to the recoverer and carries out its decision.
func (c *Controller) fault(ctx context.Context, n *Navigation, err error) error {
	gen := n.Generation
	n.Err = err

	if ctx.Err() != nil {
		if c.Closed() {
			n.Outcome = OutcomeClosed
		} else {
			n.Outcome = OutcomeCanceled
		}
		return err
	}

	if !c.apply(gen, func() { c.state = StateFaulted }) {
		n.Outcome = c.dropped()
		return err
	}

	c.logger.Warn("navigation faulted",
		"path", n.Path,
		"route", n.RouteID,
		"generation", gen,
		"kind", apperr.KindOf(err).String(),
		"error", err)

	decision, rerr := c.deps.Recoverer.Recover(ctx, err)
	n.Decision = &decision
	if rerr != nil {
		switch {
		case c.Closed():
			n.Outcome = OutcomeClosed
			return err
		case ctx.Err() != nil:
			n.Outcome = OutcomeCanceled
			return err
		case decision.Action != boundary.ActionRedirect:
			c.logger.Error("recovery failed", "path", n.Path, "error", rerr)
			n.Outcome = OutcomeFailed
			return err
		}
		// An unacknowledged notice still leaves the failed page.
		c.logger.Warn("notice not acknowledged, redirecting", "path", n.Path, "error", rerr)
	}

	switch decision.Action {
	case boundary.ActionReload:
		var discarded []string
		if !c.apply(gen, func() {
			discarded = c.cache.Keys()
			c.cache.Clear()
			c.deps.History.Reload()
		}) {
			n.Outcome = c.dropped()
			return err
		}
		c.logger.Debug("region reloading", "path", n.Path, "discarded", discarded)
		n.Outcome = OutcomeReloaded

	default:
		target := decision.Path
		if target == "" {
			target = c.home
		}
		if !c.apply(gen, func() {
			c.state = StateIdle
			c.deps.History.Navigate(target, NavigateOptions{Replace: true})
		}) {
			n.Outcome = c.dropped()
			return err
		}
		n.Outcome = OutcomeRecovered
	}

	return err
}

// fail records an error that bypasses recovery.
func (c *Controller) fail(n *Navigation, err error) error {
	n.Err = err
	if !c.apply(n.Generation, func() { c.state = StateFaulted }) {
		n.Outcome = c.dropped()
		return err
	}
	c.logger.Error("navigation failed", "path", n.Path, "error", err)
	n.Outcome = OutcomeFailed
	return err
}

// recoverPanic converts a panic into an error. Panics carrying an error keep
// its kind; anything else is unclassified.
func recoverPanic(errp *error, op string) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(error); ok {
		*errp = apperr.Wrap(op, e)
		return
	}
	*errp = &apperr.Error{
		Kind:    apperr.KindUnclassified,
		Op:      op,
		Message: fmt.Sprintf("panic: %v", r),
	}
}
