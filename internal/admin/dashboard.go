package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/logger"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
)

// Dashboard sizes.
const (
	recentInscriptions = 5
	recentMessages     = 4
	badgeTimeout       = 5 * time.Second
)

// Stats are the dashboard counters.
type Stats struct {
	Total    int
	Approved int
	Pending  int
	Unread   int
}

// Badges is the JSON body of /admin/badges.
type Badges struct {
	Pending int `json:"pending"`
	Unread  int `json:"unread"`
}

type dashboardData struct {
	Stats    *Stats
	Recent   []school.Inscription
	Messages []school.ContactMessage
}

var (
	byStatus = func(s school.Status) tableapi.Query {
		return tableapi.Query{Eq: []tableapi.Eq{{Column: "status", Value: string(s)}}}
	}
	unread = tableapi.Query{Eq: []tableapi.Eq{{Column: "is_read", Value: false}}}
	newest = func(n int) tableapi.Query {
		return tableapi.Query{OrderBy: "created_at", Desc: true, Limit: n}
	}
)

// LoadStats counts inscriptions and unread messages concurrently.
func (h *Handler) LoadStats(ctx context.Context) (Stats, error) {
	var s Stats
	g, ctx := errgroup.WithContext(ctx)
	h.countInto(ctx, g, &s)
	return s, g.Wait()
}

// countInto schedules the four counters on g.  Each goroutine owns one
// field.
func (h *Handler) countInto(ctx context.Context, g *errgroup.Group, s *Stats) {
	count := func(dst *int, fn func() (int, error)) {
		g.Go(func() error {
			n, err := fn()
			*dst = n
			return err
		})
	}
	count(&s.Total, func() (int, error) { return h.d.Inscriptions.Count(ctx, tableapi.Query{}) })
	count(&s.Approved, func() (int, error) { return h.d.Inscriptions.Count(ctx, byStatus(school.StatusApproved)) })
	count(&s.Pending, func() (int, error) { return h.d.Inscriptions.Count(ctx, byStatus(school.StatusPending)) })
	count(&s.Unread, func() (int, error) { return h.d.Messages.Count(ctx, unread) })
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	var (
		stats Stats
		data  dashboardData
	)
	g, ctx := errgroup.WithContext(r.Context())
	h.countInto(ctx, g, &stats)
	g.Go(func() (err error) {
		data.Recent, err = h.d.Inscriptions.List(ctx, newest(recentInscriptions))
		return err
	})
	g.Go(func() (err error) {
		data.Messages, err = h.d.Messages.List(ctx, newest(recentMessages))
		return err
	})
	err := g.Wait()

	p := h.d.View.Page(w, r, "Painel", &data)
	if err != nil {
		logger.FromContext(r.Context()).Warnw("dashboard partially loaded", "err", err)
		p.Flash = errorToast("Erro ao carregar o painel.")
		data = dashboardData{}
	} else {
		data.Stats = &stats
	}
	h.render(w, r, http.StatusOK, "admin/dashboard", p)
}

// badgeCounts serves the sidebar counters.  Concurrent page loads share one
// pair of COUNT queries.
func (h *Handler) badgeCounts(w http.ResponseWriter, r *http.Request) {
	v, err, _ := h.badges.Do("badges", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), badgeTimeout)
		defer cancel()

		var b Badges
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			b.Pending, err = h.d.Inscriptions.Count(ctx, byStatus(school.StatusPending))
			return err
		})
		g.Go(func() (err error) {
			b.Unread, err = h.d.Messages.Count(ctx, unread)
			return err
		})
		return b, g.Wait()
	})
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(v.(Badges))
}
