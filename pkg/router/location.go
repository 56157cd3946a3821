package router

import "strings"

// SplitLocation splits a browser location into path, query and fragment.
// The query and fragment are returned without their leading "?" and "#".
// An empty path becomes "/".
func SplitLocation(location string) (path, query, fragment string) {
	path, fragment, _ = strings.Cut(location, "#")
	path, query, _ = strings.Cut(path, "?")
	if path == "" {
		path = "/"
	}
	return path, query, fragment
}

// validPath rejects paths the resolver never matches.
func validPath(path string) bool {
	if !strings.HasPrefix(path, "/") {
		return false
	}
	return !strings.ContainsAny(path, "\\\x00")
}
