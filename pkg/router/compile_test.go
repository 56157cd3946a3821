package router

import (
	"errors"
	"testing"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		template string
		path     string
		want     bool
		params   map[string]string
	}{
		{"/", "/", true, nil},
		{"/", "/customers", false, nil},
		{"/customers", "/customers", true, nil},
		{"/customers", "/customers/", true, nil},
		{"/customers", "/customers/1", false, nil},
		{"/customers/:id:int", "/customers/42", true, map[string]string{"id": "42"}},
		{"/customers/:id:int", "/customers/42/", true, map[string]string{"id": "42"}},
		{"/customers/:id:int", "/customers/abc", false, nil},
		{"/customers/:id:int", "/customers/4a", false, nil},
		{"/customers/:id", "/customers/abc", true, map[string]string{"id": "abc"}},
		{"/customers/:id:int/edit", "/customers/7/edit", true, map[string]string{"id": "7"}},
		{"/files/:key:uuid", "/files/123e4567-e89b-12d3-a456-426614174000", true,
			map[string]string{"key": "123e4567-e89b-12d3-a456-426614174000"}},
		{"/files/:key:uuid", "/files/not-a-uuid", false, nil},
		{"/docs/*path", "/docs/a/b/c", true, map[string]string{"path": "a/b/c"}},
		{"/docs/*path", "/docs/a/b/", true, map[string]string{"path": "a/b"}},
		{"/docs/*path", "/docs", false, nil},
		{"/price.list", "/priceXlist", false, nil},
		{`^/customers/(?<id>\d+)/?$`, "/customers/42", true, map[string]string{"id": "42"}},
	}

	for _, tt := range tests {
		t.Run(tt.template+" "+tt.path, func(t *testing.T) {
			re, err := Compile(tt.template)
			if err != nil {
				t.Fatalf("Compile(%q) error: %v", tt.template, err)
			}
			m := re.FindStringSubmatch(tt.path)
			if (m != nil) != tt.want {
				t.Fatalf("match(%q) = %v, want %v (pattern %s)", tt.path, m != nil, tt.want, re)
			}
			for name, want := range tt.params {
				idx := re.SubexpIndex(name)
				if idx < 0 {
					t.Fatalf("group %q missing in %s", name, re)
				}
				if got := m[idx]; got != want {
					t.Errorf("param %q = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		template string
		want     error
	}{
		{"", ErrEmptyTemplate},
		{"customers", ErrRelativeTemplate},
		{"/customers/:id:float", ErrUnknownParamType},
		{"/a/:id/b/:id", ErrDuplicateParam},
		{"/docs/*path/more", ErrCatchAllNotLast},
		{"/a/:1x", ErrInvalidParamSegment},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			_, err := Compile(tt.template)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Compile(%q) error = %v, want %v", tt.template, err, tt.want)
			}
		})
	}
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustCompile did not panic on invalid template")
		}
	}()
	MustCompile("/a/:id:nope")
}
