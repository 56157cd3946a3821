package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vango-dev/backoffice/pkg/apperr"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{"", DialectSQLite, false},
		{"sqlite", DialectSQLite, false},
		{"postgres", DialectPostgres, false},
		{"pgx", DialectPostgres, false},
		{"mysql", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDialect(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDialect(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDialect(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBindPostgres(t *testing.T) {
	s := New(nil, DialectPostgres)
	got := s.bind("SELECT * FROM records WHERE kind = ? AND id = ?")
	want := "SELECT * FROM records WHERE kind = $1 AND id = $2"
	if got != want {
		t.Errorf("bind() = %q, want %q", got, want)
	}

	s = New(nil, DialectSQLite)
	if got := s.bind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite bind() = %q, want unchanged", got)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := Record{Kind: "customers", Title: "Nguyễn Thị Lan", Data: map[string]string{"phone": "0901"}}
	if err := s.Put(ctx, &r); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if r.ID != 1 {
		t.Fatalf("ID = %d, want 1", r.ID)
	}

	got, err := s.Get(ctx, "customers", 1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != r.Title || got.Data["phone"] != "0901" {
		t.Errorf("Get() = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	got.Title = "Nguyễn Lan"
	if err := s.Put(ctx, &got); err != nil {
		t.Fatalf("Put(update) error = %v", err)
	}
	again, _ := s.Get(ctx, "customers", 1)
	if again.Title != "Nguyễn Lan" {
		t.Errorf("Title after update = %q", again.Title)
	}
}

func TestIDsArePerKind(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, kind := range []string{"customers", "customers", "orders"} {
		r := Record{Kind: kind, Title: "x"}
		if err := s.Put(ctx, &r); err != nil {
			t.Fatalf("Put(%s) error = %v", kind, err)
		}
	}
	list, err := s.List(ctx, "orders")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != 1 {
		t.Errorf("orders = %+v, want one record with id 1", list)
	}
}

func TestMissingRecordsAreNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "orders", 99)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Get() error = %v, want not found", err)
	}
	if err := s.Delete(ctx, "orders", 99); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Delete() error = %v, want not found", err)
	}
	r := Record{Kind: "orders", ID: 99, Title: "ghost"}
	if err := s.Put(ctx, &r); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Put(update missing) error = %v, want not found", err)
	}
}

func TestConcurrentInsertsGetDistinctIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const n = 24
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := &Record{Kind: "orders", Title: fmt.Sprintf("Đơn hàng %d", i)}
			if err := s.Put(ctx, r); err != nil {
				t.Errorf("Put() error = %v", err)
				return
			}
			ids <- r.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("id %d assigned twice", id)
		}
		seen[id] = true
	}
	for id := int64(1); id <= n; id++ {
		if !seen[id] {
			t.Errorf("id %d never assigned", id)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	insert := `INSERT INTO records (` + columns + `) VALUES ('orders', 1, 'x', 0, '{}', '', 0, 0)`
	if _, err := s.db.ExecContext(ctx, insert); err != nil {
		t.Fatalf("first insert error = %v", err)
	}
	_, err := s.db.ExecContext(ctx, insert)
	if err == nil {
		t.Fatal("duplicate insert succeeded")
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"sqlite primary key", err, true},
		{"postgres unique", fmt.Errorf("put: %w", &pgconn.PgError{Code: "23505"}), true},
		{"postgres other", &pgconn.PgError{Code: "23502"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := isUniqueViolation(tt.err); got != tt.want {
			t.Errorf("%s: isUniqueViolation(%v) = %v, want %v", tt.name, tt.err, got, tt.want)
		}
	}
}

func TestPutValidation(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		name  string
		r     Record
		field string
	}{
		{"unknown kind", Record{Kind: "pets", Title: "x"}, "kind"},
		{"blank title", Record{Kind: "products", Title: "  "}, "title"},
		{"negative amount", Record{Kind: "expenses", Title: "x", Amount: -1}, "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Put(context.Background(), &tt.r)
			var ae *apperr.Error
			if !errors.As(err, &ae) || ae.Kind != apperr.KindValidation {
				t.Fatalf("Put() error = %v, want validation error", err)
			}
			if _, ok := ae.Fields[tt.field]; !ok {
				t.Errorf("Fields = %v, want %q", ae.Fields, tt.field)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := Record{Kind: "debts", Title: "Công nợ", Amount: 100}
	if err := s.Put(ctx, &r); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "debts", r.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "debts", r.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Get after Delete error = %v", err)
	}
}

func TestSeedAndCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if n != len(demo) {
		t.Fatalf("Seed() = %d, want %d", n, len(demo))
	}

	// A second seed is a no-op.
	if n, _ := s.Seed(ctx); n != 0 {
		t.Errorf("second Seed() = %d, want 0", n)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if len(counts) != len(Kinds) {
		t.Errorf("Counts() has %d kinds, want %d", len(counts), len(Kinds))
	}
	if got := counts["expenses"]; got.Count != 2 || got.Amount != 17300000 {
		t.Errorf("expenses totals = %+v", got)
	}
	if got := counts["users"]; got.Count != 2 {
		t.Errorf("users count = %d, want 2", got.Count)
	}
}

func TestClosedStore(t *testing.T) {
	s := openTestStore(t)
	s.Close()
	if _, err := s.Get(context.Background(), "customers", 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Get() after Close error = %v, want ErrClosed", err)
	}
}

func TestSingular(t *testing.T) {
	tests := map[string]string{
		"customers": "customer",
		"supplies":  "supply",
		"debts":     "debt",
		"users":     "user",
	}
	for in, want := range tests {
		if got := singular(in); got != want {
			t.Errorf("singular(%q) = %q, want %q", in, got, want)
		}
	}
}
