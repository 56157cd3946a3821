// Package store persists back-office records in a SQL database.
//
// Every resource kind shares one table keyed by (kind, id). Resource
// specific attributes live in a JSON column; the back office only needs to
// list, show and edit them.
//
// Schema:
//
//	CREATE TABLE records (
//	    kind       TEXT   NOT NULL,
//	    id         BIGINT NOT NULL,
//	    title      TEXT   NOT NULL,
//	    amount     BIGINT NOT NULL DEFAULT 0,
//	    data       TEXT   NOT NULL DEFAULT '{}',
//	    notes      TEXT   NOT NULL DEFAULT '',
//	    created_at BIGINT NOT NULL,
//	    updated_at BIGINT NOT NULL,
//	    PRIMARY KEY (kind, id)
//	);
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"go.uber.org/atomic"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/vango-dev/backoffice/pkg/apperr"
)

// Kinds lists the resource kinds in navigation order.
var Kinds = []string{
	"customers",
	"products",
	"orders",
	"consultations",
	"supplies",
	"expenses",
	"debts",
	"treatments",
	"users",
}

// ErrClosed is returned after Close.
var ErrClosed = errors.New("store: closed")

// maxInsertAttempts bounds retries when concurrent inserts pick the same id.
const maxInsertAttempts = 5

// Dialect selects the SQL flavor.
type Dialect int

const (
	// DialectSQLite uses ? placeholders.
	DialectSQLite Dialect = iota
	// DialectPostgres uses $n placeholders.
	DialectPostgres
)

// ParseDialect maps a configured driver name to a dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3", "":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return 0, fmt.Errorf("store: unknown driver %q", driver)
	}
}

// driverName returns the database/sql driver registered for the dialect.
func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// Record is one back-office entity.
type Record struct {
	Kind      string            `json:"kind"`
	ID        int64             `json:"id"`
	Title     string            `json:"title"`
	Amount    int64             `json:"amount"` // VND, zero when not applicable
	Data      map[string]string `json:"data,omitempty"`
	Notes     string            `json:"notes,omitempty"` // markdown
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Store is a SQL-backed record store. It is safe for concurrent use.
type Store struct {
	db      *sql.DB
	dialect Dialect
	table   string
	logger  *slog.Logger
	closed  *atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithTableName sets the table name. Default: "records".
func WithTableName(name string) Option {
	return func(s *Store) {
		s.table = name
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New wraps an open database.
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: dialect,
		table:   "records",
		logger:  slog.Default(),
		closed:  atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "store")
	return s
}

// Open connects to the database named by driver and dsn and creates the
// schema if needed.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	if dialect == DialectSQLite {
		// One writer at a time; WAL lets readers proceed meanwhile.
		db.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
			"PRAGMA busy_timeout=5000",
		}
		for _, pragma := range pragmas {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("store: %s: %w", pragma, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	s := New(db, dialect, opts...)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the records table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			kind       TEXT   NOT NULL,
			id         BIGINT NOT NULL,
			title      TEXT   NOT NULL,
			amount     BIGINT NOT NULL DEFAULT 0,
			data       TEXT   NOT NULL DEFAULT '{}',
			notes      TEXT   NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (kind, id)
		)
	`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// placeholder returns the n-th (1-based) placeholder for the dialect.
func (s *Store) placeholder(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// bind replaces each ? in query with the dialect's placeholders.
func (s *Store) bind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// KnownKind reports whether kind is a resource kind.
func KnownKind(kind string) bool {
	return slices.Contains(Kinds, kind)
}

const columns = "kind, id, title, amount, data, notes, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		r                Record
		data             string
		created, updated int64
	)
	if err := row.Scan(&r.Kind, &r.ID, &r.Title, &r.Amount, &data, &r.Notes, &created, &updated); err != nil {
		return Record{}, err
	}
	if data != "" && data != "{}" {
		if err := json.Unmarshal([]byte(data), &r.Data); err != nil {
			return Record{}, fmt.Errorf("store: decode data of %s/%d: %w", r.Kind, r.ID, err)
		}
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	r.UpdatedAt = time.UnixMilli(updated).UTC()
	return r, nil
}

// Get returns one record. A missing record is an apperr NotFound error.
func (s *Store) Get(ctx context.Context, kind string, id int64) (Record, error) {
	if s.closed.Load() {
		return Record{}, ErrClosed
	}

	query := s.bind(fmt.Sprintf(`SELECT %s FROM %s WHERE kind = ? AND id = ?`, columns, s.table))
	r, err := scanRecord(s.db.QueryRowContext(ctx, query, kind, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, apperr.NotFound(singular(kind), id)
	}
	if err != nil {
		return Record{}, apperr.Wrap("store.get", err)
	}
	return r, nil
}

// List returns all records of kind ordered by id.
func (s *Store) List(ctx context.Context, kind string) ([]Record, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	query := s.bind(fmt.Sprintf(`SELECT %s FROM %s WHERE kind = ? ORDER BY id`, columns, s.table))
	rows, err := s.db.QueryContext(ctx, query, kind)
	if err != nil {
		return nil, apperr.Wrap("store.list", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, apperr.Wrap("store.list", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap("store.list", err)
	}
	return out, nil
}

// Validate checks a record before it is written.
func Validate(r *Record) error {
	fields := make(map[string]string)
	if !KnownKind(r.Kind) {
		fields["kind"] = "unknown resource"
	}
	if strings.TrimSpace(r.Title) == "" {
		fields["title"] = "required"
	}
	if len(r.Title) > 200 {
		fields["title"] = "too long"
	}
	if r.Amount < 0 {
		fields["amount"] = "must not be negative"
	}
	if r.ID < 0 {
		fields["id"] = "must not be negative"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid record", fields)
	}
	return nil
}

// Put inserts r when r.ID is zero, assigning the next id of its kind, and
// updates it otherwise. Updating a missing record is a NotFound error.
func (s *Store) Put(ctx context.Context, r *Record) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := Validate(r); err != nil {
		return err
	}

	data := "{}"
	if len(r.Data) > 0 {
		b, err := json.Marshal(r.Data)
		if err != nil {
			return apperr.Wrap("store.put", err)
		}
		data = string(b)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)

	if r.ID != 0 {
		query := s.bind(fmt.Sprintf(`
			UPDATE %s SET title = ?, amount = ?, data = ?, notes = ?, updated_at = ?
			WHERE kind = ? AND id = ?
		`, s.table))
		res, err := s.db.ExecContext(ctx, query, r.Title, r.Amount, data, r.Notes, now.UnixMilli(), r.Kind, r.ID)
		if err != nil {
			return apperr.Wrap("store.put", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return apperr.NotFound(singular(r.Kind), r.ID)
		}
		r.UpdatedAt = now
		return nil
	}

	var id int64
	for attempt := 1; ; attempt++ {
		var err error
		id, err = s.insert(ctx, r, data, now)
		if err == nil {
			break
		}
		if !isUniqueViolation(err) {
			return apperr.Wrap("store.put", err)
		}
		if attempt == maxInsertAttempts {
			e := apperr.Operation("could not allocate an id for %s", singular(r.Kind))
			e.Err = err
			return e
		}
		s.logger.Debug("id taken by a concurrent insert, retrying", "kind", r.Kind, "attempt", attempt)
	}

	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// insert adds r under the next id of its kind in one statement and returns
// that id. Two concurrent inserts can still compute the same id; the loser
// fails with a unique violation.
func (s *Store) insert(ctx context.Context, r *Record, data string, now time.Time) (int64, error) {
	query := s.bind(fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s)
		SELECT CAST(? AS TEXT), COALESCE(MAX(id), 0) + 1, CAST(? AS TEXT), CAST(? AS BIGINT),
		       CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS BIGINT), CAST(? AS BIGINT)
		FROM %[1]s WHERE kind = ?
		RETURNING id
	`, s.table, columns))

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		r.Kind, r.Title, r.Amount, data, r.Notes, now.UnixMilli(), now.UnixMilli(), r.Kind,
	).Scan(&id)
	return id, err
}

// isUniqueViolation reports whether err is a primary key or unique
// constraint failure from either driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// Delete removes a record. Deleting a missing record is a NotFound error.
func (s *Store) Delete(ctx context.Context, kind string, id int64) error {
	if s.closed.Load() {
		return ErrClosed
	}

	query := s.bind(fmt.Sprintf(`DELETE FROM %s WHERE kind = ? AND id = ?`, s.table))
	res, err := s.db.ExecContext(ctx, query, kind, id)
	if err != nil {
		return apperr.Wrap("store.delete", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound(singular(kind), id)
	}
	return nil
}

// Totals summarizes one kind.
type Totals struct {
	Count  int   `json:"count"`
	Amount int64 `json:"amount"`
}

// Counts returns per-kind totals. Kinds without records are present with
// zero totals.
func (s *Store) Counts(ctx context.Context) (map[string]Totals, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	query := fmt.Sprintf(`SELECT kind, COUNT(*), CAST(COALESCE(SUM(amount), 0) AS BIGINT) FROM %s GROUP BY kind`, s.table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Wrap("store.counts", err)
	}
	defer rows.Close()

	out := make(map[string]Totals, len(Kinds))
	for _, kind := range Kinds {
		out[kind] = Totals{}
	}
	for rows.Next() {
		var (
			kind string
			t    Totals
		)
		if err := rows.Scan(&kind, &t.Count, &t.Amount); err != nil {
			return nil, apperr.Wrap("store.counts", err)
		}
		out[kind] = t
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap("store.counts", err)
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// singular names one record of kind in error messages.
func singular(kind string) string {
	switch {
	case strings.HasSuffix(kind, "ies"):
		return strings.TrimSuffix(kind, "ies") + "y"
	case strings.HasSuffix(kind, "s"):
		return strings.TrimSuffix(kind, "s")
	default:
		return kind
	}
}
