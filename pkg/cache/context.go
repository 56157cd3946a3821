package cache

import "context"

type ctxKey struct{}

// NewContext returns a copy of ctx carrying c. The navigation controller
// uses it to hand its region's cache to page factories.
func NewContext(ctx context.Context, c *ModelCache) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the cache carried by ctx, or nil. Load accepts a nil
// cache, so callers need not check.
func FromContext(ctx context.Context) *ModelCache {
	c, _ := ctx.Value(ctxKey{}).(*ModelCache)
	return c
}
