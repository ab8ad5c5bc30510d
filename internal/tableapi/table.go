// internal/tableapi/table.go
//
// Generic table gateway.
//
// Context
// -------
// Every persistence call in the service goes through a `Table[T]`: a named
// table plus a row type whose `db` tags list the columns.  The gateway
// offers the small query language the back office and the public forms
// need (equality filters, one case-insensitive substring filter, ordering,
// limit, count) and single-row insert, update, and delete by id.
//
// Notes
// -----
//   - Column names in filters, ordering, and patches are checked against the
//     row type's tags before any SQL is built.  Unknown names fail with
//     ErrUnknownColumn and never reach the database.
//   - Each call is one independent round trip.  No transactions, no retries.
//   - Update and Delete treat zero affected rows as ErrNotFound.  The DSN
//     must carry clientFoundRows=true so an unchanged row still counts.
//   - Driver failures come back as *CallError and are logged at error level
//     with the request logger.  A unique-key violation on Insert is not a
//     failure of the service and comes back as ErrDuplicate instead.
package tableapi

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/logger"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/metrics"
)

// IDColumn is the primary key column every table shares.
const IDColumn = "id"

var (
	// ErrNotFound means no row, or more than one row, matched an id.
	ErrNotFound = errors.New("tableapi: record not found")

	// ErrUnknownColumn means a filter, order, or patch named a column the row
	// type does not declare.
	ErrUnknownColumn = errors.New("tableapi: unknown column")

	// ErrEmptyPatch means Update received no values.
	ErrEmptyPatch = errors.New("tableapi: empty patch")

	// ErrDuplicate means Insert hit a unique key.
	ErrDuplicate = errors.New("tableapi: duplicate key")
)

// mysqlDupEntry is ER_DUP_ENTRY.
const mysqlDupEntry = 1062

// CallError wraps a failed round trip.
type CallError struct {
	Table string
	Op    string
	Err   error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("tableapi: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Eq is an equality filter.  A nil Value matches NULL.
type Eq struct {
	Column string
	Value  any
}

// TextMatch is a case-insensitive substring filter on one column.
type TextMatch struct {
	Column string
	Term   string
}

// Query describes a select.  Filters are ANDed.  Limit ≤ 0 means no limit.
type Query struct {
	Eq      []Eq
	Text    *TextMatch
	OrderBy string
	Desc    bool
	Limit   int
}

// Values is a column → value patch for Insert and Update.
type Values map[string]any

// Gateway is the contract controllers depend on.  *Table[T] implements it;
// tests use in-memory fakes.
type Gateway[T any] interface {
	List(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, q Query) (int, error)
	GetByID(ctx context.Context, id string) (T, error)
	Insert(ctx context.Context, v Values) (string, error)
	Update(ctx context.Context, id string, v Values) error
	Delete(ctx context.Context, id string) error
}

// Table is a gateway over one SQL table.
type Table[T any] struct {
	db      *sqlx.DB
	name    string
	columns []string
	known   map[string]bool
}

var _ Gateway[struct{}] = (*Table[struct{}])(nil)

// New binds row type T to table name.  The column list comes from T's
// top-level `db` tags, in field order.
func New[T any](db *sqlx.DB, name string) *Table[T] {
	cols := Columns[T]()
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c] = true
	}
	return &Table[T]{db: db, name: name, columns: cols, known: known}
}

// Columns lists the top-level `db` tags of T in field order.  Fields tagged
// `db:"-"` or without a tag are skipped.
func Columns[T any]() []string {
	var zero T
	rt := reflect.TypeOf(zero)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	var cols []string
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(f.Tag.Get("db"), ",")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, tag)
	}
	return cols
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

/*──────────────────────────────── reads ───────────────────────────────────*/

// List runs q and scans every row.
func (t *Table[T]) List(ctx context.Context, q Query) (out []T, err error) {
	defer t.observe(ctx, "list", time.Now(), &err)

	where, args, err := t.where(q)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s%s", strings.Join(t.columns, ", "), t.name, where)
	if q.OrderBy != "" {
		if !t.known[q.OrderBy] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.name, q.OrderBy)
		}
		sb.WriteString(" ORDER BY " + q.OrderBy)
		if q.Desc {
			sb.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	if err := t.db.SelectContext(ctx, &out, sb.String(), args...); err != nil {
		return nil, &CallError{Table: t.name, Op: "list", Err: err}
	}
	return out, nil
}

// Count returns the number of rows matching q's filters.  Ordering and limit
// are ignored.
func (t *Table[T]) Count(ctx context.Context, q Query) (n int, err error) {
	defer t.observe(ctx, "count", time.Now(), &err)

	where, args, err := t.where(q)
	if err != nil {
		return 0, err
	}
	query := "SELECT COUNT(*) FROM " + t.name + where
	if err := t.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, &CallError{Table: t.name, Op: "count", Err: err}
	}
	return n, nil
}

// GetByID returns the single row with id.  Zero or several matches give
// ErrNotFound.
func (t *Table[T]) GetByID(ctx context.Context, id string) (row T, err error) {
	defer t.observe(ctx, "get", time.Now(), &err)

	var rows []T
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 2",
		strings.Join(t.columns, ", "), t.name, IDColumn)
	if err := t.db.SelectContext(ctx, &rows, query, id); err != nil {
		return row, &CallError{Table: t.name, Op: "get", Err: err}
	}
	if len(rows) != 1 {
		return row, fmt.Errorf("%s %q: %w", t.name, id, ErrNotFound)
	}
	return rows[0], nil
}

/*──────────────────────────────── writes ──────────────────────────────────*/

// Insert writes one row and returns its id.  A missing id gets a new UUID.
func (t *Table[T]) Insert(ctx context.Context, v Values) (id string, err error) {
	defer t.observe(ctx, "insert", time.Now(), &err)

	row := make(Values, len(v)+1)
	for k, val := range v {
		row[k] = val
	}
	if s, _ := row[IDColumn].(string); s == "" {
		row[IDColumn] = uuid.NewString()
	}
	id, _ = row[IDColumn].(string)

	cols, args, err := t.sorted(row)
	if err != nil {
		return "", err
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(cols, ", "), marks)
	if _, err := t.db.ExecContext(ctx, query, args...); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDupEntry {
			return "", fmt.Errorf("insert %s: %w", t.name, ErrDuplicate)
		}
		return "", &CallError{Table: t.name, Op: "insert", Err: err}
	}
	return id, nil
}

// Update applies patch v to the row with id.
func (t *Table[T]) Update(ctx context.Context, id string, v Values) (err error) {
	defer t.observe(ctx, "update", time.Now(), &err)

	if len(v) == 0 {
		return ErrEmptyPatch
	}
	if _, ok := v[IDColumn]; ok {
		return fmt.Errorf("%w: %s.%s is immutable", ErrUnknownColumn, t.name, IDColumn)
	}
	cols, args, err := t.sorted(v)
	if err != nil {
		return err
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", t.name, strings.Join(sets, ", "), IDColumn)
	res, err := t.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return &CallError{Table: t.name, Op: "update", Err: err}
	}
	return t.affected(res, "update", id)
}

// Delete removes the row with id.
func (t *Table[T]) Delete(ctx context.Context, id string) (err error) {
	defer t.observe(ctx, "delete", time.Now(), &err)

	res, err := t.db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE "+IDColumn+" = ?", id)
	if err != nil {
		return &CallError{Table: t.name, Op: "delete", Err: err}
	}
	return t.affected(res, "delete", id)
}

/*──────────────────────────────── helpers ─────────────────────────────────*/

type rowsAffected interface{ RowsAffected() (int64, error) }

func (t *Table[T]) affected(res rowsAffected, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return &CallError{Table: t.name, Op: op, Err: err}
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", t.name, id, ErrNotFound)
	}
	return nil
}

// where renders the filter clause with a leading space, or "".
func (t *Table[T]) where(q Query) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	for _, f := range q.Eq {
		if !t.known[f.Column] {
			return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.name, f.Column)
		}
		if f.Value == nil {
			conds = append(conds, f.Column+" IS NULL")
			continue
		}
		conds = append(conds, f.Column+" = ?")
		args = append(args, f.Value)
	}
	if q.Text != nil {
		if !t.known[q.Text.Column] {
			return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.name, q.Text.Column)
		}
		conds = append(conds, "LOWER("+q.Text.Column+") LIKE LOWER(?)")
		args = append(args, ContainsPattern(q.Text.Term))
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// sorted returns v's columns in name order with their values.
func (t *Table[T]) sorted(v Values) ([]string, []any, error) {
	cols := make([]string, 0, len(v))
	for c := range v {
		if !t.known[c] {
			return nil, nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.name, c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = v[c]
	}
	return cols, args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns a search term into a LIKE pattern matching it as a
// literal substring.
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

func (t *Table[T]) observe(ctx context.Context, op string, start time.Time, errp *error) {
	metrics.GatewayLatency.WithLabelValues(t.name, op).Observe(time.Since(start).Seconds())

	outcome := "ok"
	var ce *CallError
	switch err := *errp; {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrDuplicate):
		outcome = "duplicate"
	case errors.As(err, &ce):
		outcome = "error"
		logger.FromContext(ctx).Errorw("table call failed", "table", ce.Table, "op", ce.Op, "err", ce.Err)
	default:
		outcome = "rejected"
	}
	metrics.GatewayCalls.WithLabelValues(t.name, op, outcome).Inc()
}
