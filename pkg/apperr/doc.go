// Package apperr defines the domain error taxonomy shared by page factories,
// the records store and the error recovery boundary.
//
// Errors carry their Kind explicitly. Code that needs to react to a failure
// asks for the kind with KindOf rather than inspecting concrete types:
//
//	rec, err := store.Get(ctx, "customers", id)
//	if apperr.KindOf(err) == apperr.KindNotFound {
//	    // ...
//	}
//
// Anything that does not carry a Kind (driver failures, panics, plain
// errors.New values) classifies as KindUnclassified.
package apperr
