// Package tabletest provides an in-memory tableapi.Gateway for controller
// tests.  Rows live in a slice; filters and ordering follow the SQL gateway
// closely enough for the back office and public form tests.
package tabletest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
)

// Memory is a goroutine-safe in-memory gateway.
type Memory[T any] struct {
	mu   sync.Mutex
	rows []T
	seq  int
	base time.Time

	// Fail, when set, is returned by every call.
	Fail error
	// FailOn returns an error for one operation ("list", "count", "get",
	// "insert", "update", "delete").
	FailOn map[string]error

	// Calls records operation names in call order.
	Calls []string
}

var _ tableapi.Gateway[struct{}] = (*Memory[struct{}])(nil)

// NewMemory returns an empty table.
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{base: time.Now().UTC().Truncate(time.Second)}
}

// Rows returns a copy of the stored rows.
func (m *Memory[T]) Rows() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]T(nil), m.rows...)
}

// CallCount reports how often op was called.
func (m *Memory[T]) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == op {
			n++
		}
	}
	return n
}

// Seed inserts rows through Insert, ignoring ids.
func (m *Memory[T]) Seed(rows ...tableapi.Values) []string {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		id, err := m.Insert(context.Background(), r)
		if err != nil {
			panic(err)
		}
		ids = append(ids, id)
	}
	m.mu.Lock()
	m.Calls = nil
	m.mu.Unlock()
	return ids
}

func (m *Memory[T]) begin(op string) error {
	m.Calls = append(m.Calls, op)
	if m.Fail != nil {
		return m.Fail
	}
	return m.FailOn[op]
}

// List filters, orders, and limits rows.
func (m *Memory[T]) List(ctx context.Context, q tableapi.Query) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("list"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := m.filter(q)
	if err != nil {
		return nil, err
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := column(out[i], q.OrderBy), column(out[j], q.OrderBy)
			if q.Desc {
				return less(b, a)
			}
			return less(a, b)
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Count returns the number of filtered rows.
func (m *Memory[T]) Count(ctx context.Context, q tableapi.Query) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("count"); err != nil {
		return 0, err
	}
	out, err := m.filter(q)
	return len(out), err
}

// GetByID returns the row with id.
func (m *Memory[T]) GetByID(_ context.Context, id string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	if err := m.begin("get"); err != nil {
		return zero, err
	}
	if i := m.index(id); i >= 0 {
		return m.rows[i], nil
	}
	return zero, fmt.Errorf("memory %q: %w", id, tableapi.ErrNotFound)
}

// Insert appends a row.  created_at defaults to a strictly increasing clock.
func (m *Memory[T]) Insert(_ context.Context, v tableapi.Values) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("insert"); err != nil {
		return "", err
	}
	var row T
	id, _ := v[tableapi.IDColumn].(string)
	if id == "" {
		id = uuid.NewString()
	}
	m.seq++
	if err := setColumn(&row, "created_at", m.base.Add(time.Duration(m.seq)*time.Second)); err != nil && !isUnknown(err) {
		return "", err
	}
	for c, val := range v {
		if err := setColumn(&row, c, val); err != nil {
			return "", err
		}
	}
	if err := setColumn(&row, tableapi.IDColumn, id); err != nil {
		return "", err
	}
	m.rows = append(m.rows, row)
	return id, nil
}

// Update patches the row with id.
func (m *Memory[T]) Update(_ context.Context, id string, v tableapi.Values) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("update"); err != nil {
		return err
	}
	if len(v) == 0 {
		return tableapi.ErrEmptyPatch
	}
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("memory %q: %w", id, tableapi.ErrNotFound)
	}
	row := m.rows[i]
	for c, val := range v {
		if err := setColumn(&row, c, val); err != nil {
			return err
		}
	}
	m.rows[i] = row
	return nil
}

// Delete removes the row with id.
func (m *Memory[T]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("delete"); err != nil {
		return err
	}
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("memory %q: %w", id, tableapi.ErrNotFound)
	}
	m.rows = append(m.rows[:i], m.rows[i+1:]...)
	return nil
}

/*──────────────────────────────── helpers ─────────────────────────────────*/

func (m *Memory[T]) index(id string) int {
	for i, r := range m.rows {
		if fmt.Sprint(column(r, tableapi.IDColumn)) == id {
			return i
		}
	}
	return -1
}

func (m *Memory[T]) filter(q tableapi.Query) ([]T, error) {
	var out []T
	for _, r := range m.rows {
		ok := true
		for _, f := range q.Eq {
			v, found := lookup(r, f.Column)
			if !found {
				return nil, fmt.Errorf("%w: %s", tableapi.ErrUnknownColumn, f.Column)
			}
			if f.Value == nil {
				ok = ok && v == nil
				continue
			}
			ok = ok && fmt.Sprint(v) == fmt.Sprint(normalize(f.Value))
		}
		if q.Text != nil {
			v, found := lookup(r, q.Text.Column)
			if !found {
				return nil, fmt.Errorf("%w: %s", tableapi.ErrUnknownColumn, q.Text.Column)
			}
			ok = ok && strings.Contains(strings.ToLower(fmt.Sprint(v)), strings.ToLower(q.Text.Term))
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func isUnknown(err error) bool { return errors.Is(err, tableapi.ErrUnknownColumn) }

func field(rv reflect.Value, col string) (reflect.Value, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		tag, _, _ := strings.Cut(rt.Field(i).Tag.Get("db"), ",")
		if tag == col {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func lookup(row any, col string) (any, bool) {
	f, ok := field(reflect.ValueOf(row), col)
	if !ok {
		return nil, false
	}
	return normalize(f.Interface()), true
}

func column(row any, col string) any {
	v, _ := lookup(row, col)
	return v
}

// normalize reduces a value to what a driver would send: Valuers are
// unwrapped and named string or bool types become plain ones.
func normalize(v any) any {
	if vr, ok := v.(driver.Valuer); ok {
		dv, err := vr.Value()
		if err != nil {
			return nil
		}
		v = dv
	}
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int64, reflect.Int32:
		return rv.Int()
	}
	return v
}

func less(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b != nil
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Before(y)
	case string:
		y, _ := b.(string)
		return x < y
	case int64:
		y, _ := b.(int64)
		return x < y
	case bool:
		y, _ := b.(bool)
		return !x && y
	}
	return false
}

func setColumn[T any](row *T, col string, val any) error {
	f, ok := field(reflect.ValueOf(row).Elem(), col)
	if !ok {
		return fmt.Errorf("%w: %s", tableapi.ErrUnknownColumn, col)
	}
	if sc, ok := f.Addr().Interface().(sql.Scanner); ok {
		return sc.Scan(normalize(val))
	}
	if val == nil {
		f.Set(reflect.Zero(f.Type()))
		return nil
	}
	rv := reflect.ValueOf(val)
	if !rv.Type().ConvertibleTo(f.Type()) {
		return fmt.Errorf("column %s: cannot store %T in %s", col, val, f.Type())
	}
	f.Set(rv.Convert(f.Type()))
	return nil
}
