//
//  internal/view/funcs.go
//
//  Template functions.  Request-info helpers take the *requestinfo.Info
//  stored on the Page and are nil-safe, so templates never poke through
//  nested structs or guard against a missing middleware.
//

package view

import (
	"bytes"
	"database/sql"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/requestinfo"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/slug"
)

// Display formats.
const (
	DateFormat     = "02/01/2006"
	DateTimeFormat = "02/01/2006 15:04"
)

// md renders news bodies.  Raw HTML in the source is omitted because the
// renderer runs without WithUnsafe.
var md = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Markdown converts src to safe HTML.  On failure the source is shown
// escaped.
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(src) + "</p>")
	}
	return template.HTML(buf.String())
}

func (e *Engine) funcMap() template.FuncMap {
	return template.FuncMap{
		"dict":     dict,
		"asset":    func(p string) string { return "/static/" + p },
		"markdown": Markdown,
		"date":     func(v any) string { return formatTime(v, DateFormat) },
		"datetime": func(v any) string { return formatTime(v, DateTimeFormat) },
		"truncate": truncate,
		"newsURL":  NewsURL,

		// option lists
		"levels":             func() []string { return school.Levels },
		"genders":            func() []string { return school.Genders },
		"newsCategories":     func() []string { return school.NewsCategories },
		"documentCategories": func() []string { return school.DocumentCategories },
		"statuses":           func() []school.Status { return school.Statuses },

		// request-info helpers
		"device": func(i *requestinfo.Info) string {
			if i == nil {
				return ""
			}
			return i.UA.Device
		},
		"isBot": func(i *requestinfo.Info) bool {
			return i != nil && i.UA.IsBot
		},
		"country": func(i *requestinfo.Info) string {
			if i == nil {
				return ""
			}
			return i.Geo.CountryISO
		},
	}
}

// NewsURL is the public address of a news item.
func NewsURL(n school.News) string {
	return slug.Path("noticias/"+n.ID, slug.Make(n.Title))
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}

// formatTime accepts time.Time, *time.Time, and sql.NullTime.  Zero and
// NULL values render as "".
func formatTime(v any, layout string) string {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x != nil {
			t = *x
		}
	case sql.NullTime:
		if x.Valid {
			t = x.Time
		}
	}
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

// truncate shortens s to n runes, adding an ellipsis when cut.
func truncate(n int, s string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

// Excerpt is a plain-text preview of a markdown body, at most n runes.
func Excerpt(src string, n int) string {
	plain := strings.Map(func(r rune) rune {
		switch r {
		case '#', '*', '_', '`', '>', '[', ']', '~':
			return -1
		}
		return r
	}, src)
	return truncate(n, strings.Join(strings.Fields(plain), " "))
}
