package router

import (
	"errors"
	"strings"
)

// Location errors.
var (
	ErrNotRelative          = errors.New("router: location is not a relative path")
	ErrBackslashInPath      = errors.New("router: path contains backslash")
	ErrNullByteInPath       = errors.New("router: path contains null byte")
	ErrInvalidPercentEscape = errors.New("router: invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("router: path escapes root via ..")
)

// CleanPath normalizes an escaped URL path:
//   - a trailing slash is removed (except for root "/")
//   - repeated slashes collapse (/orders//7 → /orders/7)
//   - "." segments are removed and ".." segments resolved
//
// Backslashes, NUL bytes, malformed percent escapes and ".." above the
// root are rejected.
func CleanPath(path string) (string, error) {
	if path == "" {
		return "/", nil
	}
	if strings.Contains(path, "\\") {
		return "", ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return "", ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return "", err
		}
	}

	segments := strings.Split(path, "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
		case "..":
			if len(out) == 0 {
				return "", ErrPathEscapesRoot
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}
	return "/" + strings.Join(out, "/"), nil
}

// CanonicalLocation validates a location sent by a client and cleans its
// path. The query and fragment are kept as they are. Absolute and
// scheme-relative URLs are rejected so a navigation never leaves the site.
func CanonicalLocation(location string) (string, error) {
	if !strings.HasPrefix(location, "/") || strings.HasPrefix(location, "//") {
		return "", ErrNotRelative
	}

	rest, fragment, hasFragment := strings.Cut(location, "#")
	path, query, hasQuery := strings.Cut(rest, "?")

	clean, err := CleanPath(path)
	if err != nil {
		return "", err
	}
	if hasQuery {
		clean += "?" + query
	}
	if hasFragment {
		clean += "#" + fragment
	}
	return clean, nil
}

// validatePercentEscapes checks that every % starts a %XX escape.
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
