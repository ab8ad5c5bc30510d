// internal/listview/spec.go
//
// Filter state → table query.
//
// Context
//   A back-office list (inscriptions, news, messages) is a table query plus
//   a few filter controls and one search box.  Spec declares which query
//   parameters map to which columns.  Query reads the controls from the
//   request's url.Values on every call and applies only the non-empty ones,
//   ANDed together.
//
//------------------------------------------------------------------------------

package listview

import (
	"net/url"
	"strings"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
)

// Filter maps one query parameter onto an equality filter.  Convert may
// reject a value (ok=false), in which case the filter is skipped.  A nil
// Convert passes the string through.
type Filter struct {
	Param   string
	Column  string
	Convert func(string) (any, bool)
}

// Spec describes one list.
type Spec struct {
	Name         string
	Filters      []Filter
	SearchParam  string
	SearchColumn string
	OrderBy      string
	Desc         bool
	Limit        int
}

// Query builds the table query for the current control values.  v is never
// modified.
func (s Spec) Query(v url.Values) tableapi.Query {
	q := tableapi.Query{OrderBy: s.OrderBy, Desc: s.Desc, Limit: s.Limit}
	for _, f := range s.Filters {
		raw := strings.TrimSpace(v.Get(f.Param))
		if raw == "" {
			continue
		}
		var val any = raw
		if f.Convert != nil {
			c, ok := f.Convert(raw)
			if !ok {
				continue
			}
			val = c
		}
		q.Eq = append(q.Eq, tableapi.Eq{Column: f.Column, Value: val})
	}
	if s.SearchParam != "" {
		if term := strings.TrimSpace(v.Get(s.SearchParam)); term != "" {
			q.Text = &tableapi.TextMatch{Column: s.SearchColumn, Term: term}
		}
	}
	return q
}

// Active reports whether any filter or the search box holds a value, which
// switches the empty-state wording.
func (s Spec) Active(v url.Values) bool {
	q := s.Query(v)
	return len(q.Eq) > 0 || q.Text != nil
}

// Bool converts "true"/"false" select values.
func Bool(s string) (any, bool) {
	switch s {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return nil, false
}

// OneOf accepts only the listed values.
func OneOf(allowed ...string) func(string) (any, bool) {
	return func(s string) (any, bool) {
		for _, a := range allowed {
			if a == s {
				return s, true
			}
		}
		return nil, false
	}
}
