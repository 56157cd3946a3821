// Package router implements the back-office route table and path resolver.
//
// A Table is an ordered, immutable list of routes. Each route pairs an
// anchored regular expression with a page factory and page metadata:
//
//	table, err := router.NewTable(
//	    router.Route{
//	        ID:      "customers.show",
//	        Pattern: router.MustCompile("/customers/:id:int"),
//	        Page:    showCustomer,
//	        Meta: router.Meta{
//	            Title: "Customer",
//	            Breadcrumb: router.TrailFunc(func(p router.Params) []router.Breadcrumb {
//	                return []router.Breadcrumb{{Text: "Customers", Href: "/customers"}, {Text: "#" + p.Get("id")}}
//	            }),
//	        },
//	    },
//	)
//
//	match := table.Resolve("/customers/42?tab=orders")
//	// match.Route.ID == "customers.show", match.Params["id"] == "42"
//
// # Path Templates
//
// Compile turns a path template into a pattern:
//
//	/customers            → ^/customers/?$
//	/customers/:id        → [^/]+ segment named "id"
//	/customers/:id:int    → \d+ segment named "id"
//	/files/:key:uuid      → UUID segment named "key"
//	/docs/*path           → catch-all, must be the last segment
//
// A template that starts with "^" is compiled as a raw regular expression,
// so named groups such as (?<id>\d+) can be used directly.
//
// # Resolution
//
// Routes are tested in declaration order and the first match wins. Query
// strings and fragments are ignored. A nil MatchResult means no route
// matched; callers decide the fallback.
package router
