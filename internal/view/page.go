// internal/view/page.go
//
// Page is the view-model every template receives.  Handlers build one with
// Engine.Page, fill Data, and pass it to Render.

package view

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/auth"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/form"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/head"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/requestinfo"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/session"
)

// Page carries the per-request chrome plus the handler's Data.
type Page struct {
	Head   *head.Builder
	Site   string
	Path   string
	Flash  *session.Flash
	CSRF   template.HTML // hidden token input
	Stamp  string        // render-time value for public forms
	User   string        // signed-in admin display name
	Client *requestinfo.Info
	Year   int
	Data   any
}

// Page prepares the view-model for r.  It pops the pending flash, so call
// it once per response and before any body is written.
func (e *Engine) Page(w http.ResponseWriter, r *http.Request, title string, data any) *Page {
	now := time.Now()
	h := head.New(e.opts.Site)
	h.SetTitle(title)

	p := &Page{
		Head:   h,
		Site:   e.opts.Site,
		Path:   r.URL.Path,
		CSRF:   csrf.TemplateField(r),
		Stamp:  form.Stamp(now),
		Client: requestinfo.FromContext(r.Context()),
		Year:   now.Year(),
		Data:   data,
	}
	if strings.HasPrefix(r.URL.Path, "/admin") {
		h.Noindex()
	} else if e.opts.BaseURL != "" {
		h.Canonical(strings.TrimRight(e.opts.BaseURL, "/") + r.URL.Path)
	}
	if u, ok := auth.CurrentUser(r.Context()); ok {
		p.User = u.Name()
	}
	if e.opts.Sessions != nil {
		p.Flash = e.opts.Sessions.PopFlash(w, r)
	}
	return p
}

// FragmentPage prepares the view-model for a partial response.  The
// pending flash is left for the next full page.
func (e *Engine) FragmentPage(r *http.Request, data any) *Page {
	p := &Page{
		Site:   e.opts.Site,
		Path:   r.URL.Path,
		CSRF:   csrf.TemplateField(r),
		Client: requestinfo.FromContext(r.Context()),
		Data:   data,
	}
	if u, ok := auth.CurrentUser(r.Context()); ok {
		p.User = u.Name()
	}
	return p
}

// Active reports whether the nav entry for prefix should be highlighted.
func (p *Page) Active(prefix string) bool {
	if prefix == "/" || prefix == "/admin" {
		return p.Path == prefix
	}
	return strings.HasPrefix(p.Path, prefix)
}

// FormData is the Data of any page built around one form.  Errors maps the
// input name to its message; Banner is the inline error shown above the
// form; Done switches to the success panel.
type FormData[T any] struct {
	Form   T
	Errors map[string]string
	Banner string
	Done   bool
}

// ListData is the Data of a back-office list page and its rows fragment.
type ListData[T any] struct {
	Rows     []T
	Params   url.Values
	Filtered bool
	// Tab identifies one rendering of the list page, so live searches from
	// two open tabs do not cancel each other.
	Tab string
}

// ErrorData feeds the erro pages.
type ErrorData struct {
	Code    int
	Message string
}
