// internal/site/site.go
//
// Public web site: home, news, documents and the three visitor forms.
//
// Workflow
// --------
//   1. GET pages read published rows only (is_published / is_public).
//   2. POST forms go through form.Decoder.Decode, which also rejects
//      submissions filled too fast or rendered too long ago.
//   3. Invalid input re-renders the form with 422; a duplicate newsletter
//      address gives 409; a gateway failure gives 502.  Every outcome keeps
//      the visitor's values in the form.
package site

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/form"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/logger"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/view"
)

// Deps are the collaborators a Handler needs.
type Deps struct {
	News      tableapi.Gateway[school.News]
	Documents tableapi.Gateway[school.Document]
	Submitter *Submitter

	View      *view.Engine
	Forms     *form.Decoder
	NewsLimit int // items on the home page
}

// Handler serves the public pages.
type Handler struct {
	d Deps
}

// New wires a Handler.
func New(d Deps) *Handler {
	if d.NewsLimit <= 0 {
		d.NewsLimit = 6
	}
	return &Handler{d: d}
}

// Routes returns the public router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(h.NotFound)

	r.Get("/", h.home)
	r.Get("/noticias", h.newsList)
	r.Get("/noticias/{id}", h.newsItem)
	r.Get("/noticias/{id}/{slug}", h.newsItem)
	r.Get("/documentos", h.documents)

	r.Get("/admissoes", h.admissionForm)
	r.Post("/admissoes", h.admissionSubmit)
	r.Get("/contactos", h.contactForm)
	r.Post("/contactos", h.contactSubmit)
	r.Get("/newsletter", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
	r.Post("/newsletter", h.subscribe)
	return r
}

// NotFound renders the public 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.errorPage(w, r, http.StatusNotFound, "A página que procura não existe.")
}

func (h *Handler) errorPage(w http.ResponseWriter, r *http.Request, code int, msg string) {
	p := h.d.View.Page(w, r, "Erro", view.ErrorData{Code: code, Message: msg})
	p.Head.Noindex()
	h.render(w, r, code, "public/erro", p)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, p *view.Page) {
	if err := h.d.View.Render(w, status, page, p); err != nil {
		logger.FromContext(r.Context()).Errorw("render failed", "page", page, "err", err)
	}
}

func notFound(err error) bool { return errors.Is(err, tableapi.ErrNotFound) }
