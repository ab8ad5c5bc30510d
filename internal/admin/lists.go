// internal/admin/lists.go
//
// Filterable lists: inscriptions, news, and messages.
//
// Context
//   The full page runs its query directly.  The live-search fragment goes
//   through a per-list Coalescer keyed by user and page tab, so a burst of keystrokes
//   costs one query and a slow, stale response is never sent after a newer
//   one.  Superseded callers get 204 and the browser keeps what it shows.
//
//------------------------------------------------------------------------------

package admin

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/auth"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/listview"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/logger"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/metrics"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/view"
)

// tabParam carries ListData.Tab on live-search requests.
const tabParam = "aba"

type lister[T any] struct {
	gw     tableapi.Gateway[T]
	spec   listview.Spec
	page   string
	errMsg string
	co     *listview.Coalescer[view.ListData[T]]
}

func newLister[T any](gw tableapi.Gateway[T], spec listview.Spec, page, errMsg string, delay time.Duration) *lister[T] {
	return &lister[T]{
		gw:     gw,
		spec:   spec,
		page:   page,
		errMsg: errMsg,
		co:     listview.NewCoalescer[view.ListData[T]](delay),
	}
}

// load runs the list query for the current control values.
func (l *lister[T]) load(ctx context.Context, v url.Values) (view.ListData[T], error) {
	data := view.ListData[T]{Params: v, Filtered: l.spec.Active(v)}
	rows, err := l.gw.List(ctx, l.spec.Query(v))
	if err != nil {
		return data, err
	}
	data.Rows = rows
	return data, nil
}

// full renders the list page.  A query error leaves the list empty and
// shows an error toast.
func (l *lister[T]) full(h *Handler, w http.ResponseWriter, r *http.Request, title string, wrap func(view.ListData[T]) any) {
	data, err := l.load(r.Context(), r.URL.Query())
	data.Tab = uuid.NewString()
	var payload any = data
	if wrap != nil {
		payload = wrap(data)
	}
	p := h.d.View.Page(w, r, title, payload)
	if err != nil {
		p.Flash = errorToast(l.errMsg + ".")
	}
	h.render(w, r, http.StatusOK, l.page, p)
}

// fragment serves the live-search rows.
func (l *lister[T]) fragment(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := r.URL.Query()
		u, _ := auth.CurrentUser(r.Context())
		key := u.ID + ":" + l.spec.Name + ":" + v.Get(tabParam)

		data, err := l.co.Do(r.Context(), key, func(ctx context.Context) (view.ListData[T], error) {
			return l.load(ctx, v)
		})
		switch {
		case errors.Is(err, listview.ErrSuperseded):
			metrics.SearchRuns.WithLabelValues(l.spec.Name, "superseded").Inc()
			w.WriteHeader(http.StatusNoContent)
			return
		case r.Context().Err() != nil:
			// Client went away; nobody is listening.
			return
		case err != nil:
			metrics.SearchRuns.WithLabelValues(l.spec.Name, "error").Inc()
			logger.FromContext(r.Context()).Warnw("live search failed", "list", l.spec.Name, "err", err)
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		metrics.SearchRuns.WithLabelValues(l.spec.Name, "ran").Inc()
		if err := h.d.View.RenderFragment(w, http.StatusOK, l.page, "rows", h.d.View.FragmentPage(r, data)); err != nil {
			logger.FromContext(r.Context()).Errorw("render failed", "page", l.page, "err", err)
		}
	}
}

/*──────────────────────────── list pages ──────────────────────────────────*/

type inscriptionsData struct {
	view.ListData[school.Inscription]
	Stats *Stats
}

func (h *Handler) inscriptionList(w http.ResponseWriter, r *http.Request) {
	var stats *Stats
	if s, err := h.LoadStats(r.Context()); err == nil {
		stats = &s
	}
	h.inscriptions.full(h, w, r, "Inscrições", func(d view.ListData[school.Inscription]) any {
		return inscriptionsData{ListData: d, Stats: stats}
	})
}

func (h *Handler) newsList(w http.ResponseWriter, r *http.Request) {
	h.news.full(h, w, r, "Notícias", nil)
}

func (h *Handler) messageList(w http.ResponseWriter, r *http.Request) {
	h.messages.full(h, w, r, "Mensagens", nil)
}
