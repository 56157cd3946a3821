package router

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Template compilation errors.
var (
	ErrEmptyTemplate       = errors.New("router: empty path template")
	ErrRelativeTemplate    = errors.New("router: path template must start with /")
	ErrUnknownParamType    = errors.New("router: unknown param type")
	ErrDuplicateParam      = errors.New("router: duplicate param name")
	ErrCatchAllNotLast     = errors.New("router: catch-all must be the last segment")
	ErrInvalidParamSegment = errors.New("router: invalid param segment")
)

// paramClasses maps a param type to the expression its segment must match.
var paramClasses = map[string]string{
	"string": `[^/]+`,
	"int":    `\d+`,
	"uuid":   `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`,
	"slug":   `[a-z0-9]+(?:-[a-z0-9]+)*`,
}

// paramName restricts param names to identifiers usable as group names.
var paramName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Compile builds an anchored pattern from a path template. The pattern
// accepts an optional trailing slash. Templates starting with "^" are
// compiled verbatim.
func Compile(template string) (*regexp.Regexp, error) {
	if template == "" {
		return nil, ErrEmptyTemplate
	}
	if strings.HasPrefix(template, "^") {
		return regexp.Compile(template)
	}
	if !strings.HasPrefix(template, "/") {
		return nil, fmt.Errorf("%w: %q", ErrRelativeTemplate, template)
	}

	segments := splitPath(template)
	if len(segments) == 0 {
		return regexp.Compile(`^/$`)
	}

	var b strings.Builder
	b.WriteString("^")
	seen := make(map[string]bool)

	for i, seg := range segments {
		b.WriteString("/")
		switch {
		case strings.HasPrefix(seg, "*"):
			if i != len(segments)-1 {
				return nil, fmt.Errorf("%w: %q", ErrCatchAllNotLast, template)
			}
			name := seg[1:]
			if err := checkParamName(name, seen); err != nil {
				return nil, err
			}
			fmt.Fprintf(&b, "(?P<%s>.+?)", name)

		case strings.HasPrefix(seg, ":"):
			name, typ := parseParamSegment(seg)
			if err := checkParamName(name, seen); err != nil {
				return nil, err
			}
			class, ok := paramClasses[typ]
			if !ok {
				return nil, fmt.Errorf("%w: %q in %q", ErrUnknownParamType, typ, template)
			}
			fmt.Fprintf(&b, "(?P<%s>%s)", name, class)

		default:
			b.WriteString(regexp.QuoteMeta(seg))
		}
	}
	b.WriteString("/?$")

	return regexp.Compile(b.String())
}

// MustCompile is like Compile but panics on error. It is meant for route
// tables declared at package level.
func MustCompile(template string) *regexp.Regexp {
	re, err := Compile(template)
	if err != nil {
		panic(err)
	}
	return re
}

func checkParamName(name string, seen map[string]bool) error {
	if !paramName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidParamSegment, name)
	}
	if seen[name] {
		return fmt.Errorf("%w: %q", ErrDuplicateParam, name)
	}
	seen[name] = true
	return nil
}

// splitPath splits a path into segments.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// parseParamSegment extracts name and type from a parameter segment.
// Input: ":id" or ":id:int" -> name="id", type="string" or "int"
func parseParamSegment(seg string) (name, paramType string) {
	seg = seg[1:]
	if idx := strings.Index(seg, ":"); idx != -1 {
		return seg[:idx], seg[idx+1:]
	}
	return seg, "string"
}
