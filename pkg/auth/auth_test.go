package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vango-dev/backoffice/pkg/apperr"
)

func TestRequireRole(t *testing.T) {
	admin := WithPrincipal(context.Background(), Principal{Name: "bao", Roles: []string{RoleAdmin}})
	staff := WithPrincipal(context.Background(), Principal{Name: "hanh", Roles: []string{RoleStaff}})

	tests := []struct {
		name    string
		ctx     context.Context
		wantErr bool
	}{
		{"admin", admin, false},
		{"staff", staff, true},
		{"anonymous", context.Background(), true},
	}
	for _, tt := range tests {
		err := RequireRole(tt.ctx, RoleAdmin)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: RequireRole() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !apperr.Is(err, apperr.KindAuthorization) {
			t.Errorf("%s: error kind = %v, want authorization", tt.name, apperr.KindOf(err))
		}
	}

	if err := RequireAny(staff, RoleAdmin, RoleStaff); err != nil {
		t.Errorf("RequireAny(staff) error = %v", err)
	}
}

func TestRequire(t *testing.T) {
	if _, err := Require(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Require() error = %v, want ErrUnauthorized", err)
	}
}

func TestCookieRoundTrip(t *testing.T) {
	p := Principal{Name: "bao", Roles: []string{"admin", "staff"}}
	got, ok := ParseCookie(FormatCookie(p))
	if !ok || got.Name != "bao" || !got.HasRole("admin") || !got.HasRole("staff") {
		t.Errorf("ParseCookie(FormatCookie()) = %+v, %v", got, ok)
	}
	if _, ok := ParseCookie(":admin"); ok {
		t.Error("ParseCookie accepted an empty name")
	}
}

func TestMiddleware(t *testing.T) {
	var got Principal
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	})

	tests := []struct {
		name     string
		fallback Principal
		setup    func(r *http.Request)
		wantCode int
		wantName string
	}{
		{
			name:     "header",
			setup:    func(r *http.Request) { r.Header.Set(HeaderUser, "bao"); r.Header.Set(HeaderRoles, "admin") },
			wantCode: http.StatusOK,
			wantName: "bao",
		},
		{
			name:     "cookie",
			setup:    func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: "hanh:staff"}) },
			wantCode: http.StatusOK,
			wantName: "hanh",
		},
		{
			name:     "fallback",
			fallback: Principal{Name: "guest", Roles: []string{RoleStaff}},
			setup:    func(*http.Request) {},
			wantCode: http.StatusOK,
			wantName: "guest",
		},
		{
			name:     "rejected",
			setup:    func(*http.Request) {},
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = Principal{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			Middleware(tt.fallback, nil)(h).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got.Name != tt.wantName {
				t.Errorf("principal = %q, want %q", got.Name, tt.wantName)
			}
		})
	}
}
