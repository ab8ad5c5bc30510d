// internal/admin/admin.go
//
// Back-office HTTP surface mounted at /admin.
//
// Context
// -------
// Every page here is server-rendered.  What the browser front end used to do
// with modals and toasts maps onto plain requests: a modal becomes a detail
// page, a toast becomes a flash cookie read by the next page, and the
// debounced search box becomes a fragment endpoint behind
// listview.Coalescer.
//
// Workflow
// --------
//   1. /admin/login and its POST are public.  Everything else sits behind
//      auth.Provider.RequireSession.
//   2. Mutations (approve, reject, save, delete, toggle read) are POSTs that
//      end in a 303 redirect plus a flash.
//   3. Gateway errors are logged once by tableapi; handlers only map them to
//      a toast and an HTTP status.
//
// Notes
// -----
//   - Nothing here retries.  The user repeats the action.
package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/auth"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/form"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/listview"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/logger"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/session"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/view"
)

// Deps are the collaborators a Handler needs.
type Deps struct {
	Inscriptions tableapi.Gateway[school.Inscription]
	News         tableapi.Gateway[school.News]
	Messages     tableapi.Gateway[school.ContactMessage]

	Auth     *auth.Provider
	Sessions *session.Manager
	View     *view.Engine
	Forms    *form.Decoder

	ListLimit   int           // row cap for list pages; 0 = no cap
	SearchDelay time.Duration // live-search quiet interval
}

// Handler serves the back office.
type Handler struct {
	d Deps

	transitions *Transitions
	editor      *NewsEditor

	inscriptions *lister[school.Inscription]
	news         *lister[school.News]
	messages     *lister[school.ContactMessage]

	badges singleflight.Group
	now    func() time.Time
}

// New wires a Handler.
func New(d Deps) *Handler {
	return &Handler{
		d:           d,
		transitions: NewTransitions(d.Inscriptions),
		editor:      NewNewsEditor(d.News),
		inscriptions: newLister(d.Inscriptions, listview.Inscriptions.WithLimit(d.ListLimit),
			"admin/inscricoes", "Erro ao carregar inscrições", d.SearchDelay),
		news: newLister(d.News, listview.News.WithLimit(d.ListLimit),
			"admin/noticias", "Erro ao carregar notícias", d.SearchDelay),
		messages: newLister(d.Messages, listview.Messages.WithLimit(d.ListLimit),
			"admin/mensagens", "Erro ao carregar mensagens", d.SearchDelay),
		now: time.Now,
	}
}

// Routes returns the router to mount at /admin.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/login", h.loginForm)
	r.Post("/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(h.d.Auth.RequireSession)

		r.Post("/logout", h.d.Auth.SignOut)
		r.Get("/", h.dashboard)
		r.Get("/badges", h.badgeCounts)

		r.Get("/inscricoes", h.inscriptionList)
		r.Get("/inscricoes/linhas", h.inscriptions.fragment(h))
		r.Get("/inscricoes/exportar.csv", h.exportInscriptions)
		r.Get("/inscricoes/{id}", h.inscriptionDetail)
		r.Post("/inscricoes/{id}/aprovar", h.transition(school.StatusApproved))
		r.Post("/inscricoes/{id}/rejeitar", h.transition(school.StatusRejected))

		r.Get("/noticias", h.newsList)
		r.Get("/noticias/linhas", h.news.fragment(h))
		r.Get("/noticias/nova", h.newsNew)
		r.Get("/noticias/{id}/editar", h.newsEdit)
		r.Post("/noticias/guardar", h.newsSave)
		r.Post("/noticias/{id}/eliminar", h.newsDelete)

		r.Get("/mensagens", h.messageList)
		r.Get("/mensagens/linhas", h.messages.fragment(h))
		r.Get("/mensagens/{id}", h.messageDetail)
		r.Post("/mensagens/{id}/lida", h.messageToggleRead)
	})
	return r
}

/*──────────────────────────────── helpers ─────────────────────────────────*/

// render writes a full page and logs template failures.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, p *view.Page) {
	if err := h.d.View.Render(w, status, page, p); err != nil {
		logger.FromContext(r.Context()).Errorw("render failed", "page", page, "err", err)
	}
}

// redirect stores a toast and sends the browser to target.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, kind session.Kind, msg, target string) {
	h.d.Sessions.SetFlash(w, kind, msg)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// notFound reports whether err is the gateway's not-found sentinel.
func notFound(err error) bool { return errors.Is(err, tableapi.ErrNotFound) }

// errorToast builds an inline toast for pages rendered without a redirect.
func errorToast(msg string) *session.Flash {
	return &session.Flash{Kind: session.KindError, Message: msg}
}
