package nav

import (
	"log/slog"
	"time"
)

// Option configures a Controller.
type Option func(*Controller)

// WithHomePath sets the path unknown locations redirect to. Defaults to "/".
func WithHomePath(path string) Option {
	return func(c *Controller) {
		c.home = path
	}
}

// WithMinDelay sets the minimum time a navigation spends resolving, so the
// progress indicator does not flash on fast pages.
func WithMinDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.minDelay = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithMiddleware appends navigation middleware. The first middleware is
// the outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *Controller) {
		c.middleware = append(c.middleware, mw...)
	}
}
