// Package backoffice is the store back-office application: the route table
// with its titles and breadcrumb trails, the page factories that load
// records through the region's model cache, and the HTML views.
//
// Route tables are built once per catalog language and are immutable. Page
// factories enforce roles before touching the cache, so a forbidden page
// never populates the region cache.
//
//	app, err := backoffice.New(st, bundle)
//	table := app.Table("vi")
//	match := table.Resolve("/users/7")
package backoffice
