package site

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/head"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/logger"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/view"
)

type newsData struct {
	News     []school.News
	Category string
}

type documentsData struct {
	Documents []school.Document
	Category  string
}

// PublishedNews lists published items, newest publication first.  An empty
// category means all.
func PublishedNews(category string, limit int) tableapi.Query {
	q := tableapi.Query{
		Eq:      []tableapi.Eq{{Column: "is_published", Value: true}},
		OrderBy: "data_publicacao",
		Desc:    true,
		Limit:   limit,
	}
	if category != "" {
		q.Eq = append(q.Eq, tableapi.Eq{Column: "categoria", Value: category})
	}
	return q
}

// PublicDocuments lists public documents, newest first.
func PublicDocuments(category string) tableapi.Query {
	q := tableapi.Query{
		Eq:      []tableapi.Eq{{Column: "is_public", Value: true}},
		OrderBy: "created_at",
		Desc:    true,
	}
	if category != "" {
		q.Eq = append(q.Eq, tableapi.Eq{Column: "categoria", Value: category})
	}
	return q
}

// category returns the ?categoria value when it is one of allowed.
func category(r *http.Request, allowed []string) string {
	c := r.URL.Query().Get("categoria")
	if slices.Contains(allowed, c) {
		return c
	}
	return ""
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	rows, err := h.d.News.List(r.Context(), PublishedNews("", h.d.NewsLimit))
	if err != nil {
		// The home page still renders; the news block shows its empty state.
		logger.FromContext(r.Context()).Warnw("home news unavailable", "err", err)
	}
	p := h.d.View.Page(w, r, "", newsData{News: rows})
	p.Head.Description("Colégio em Luanda: Iniciação, Primário, I e II Ciclo.  Inscrições, notícias e documentos.")
	h.render(w, r, http.StatusOK, "public/home", p)
}

func (h *Handler) newsList(w http.ResponseWriter, r *http.Request) {
	cat := category(r, school.NewsCategories)
	rows, err := h.d.News.List(r.Context(), PublishedNews(cat, 0))
	if err != nil {
		h.errorPage(w, r, http.StatusBadGateway, "Não foi possível carregar as notícias.  Tente novamente.")
		return
	}
	h.render(w, r, http.StatusOK, "public/noticias",
		h.d.View.Page(w, r, "Notícias", newsData{News: rows, Category: cat}))
}

// newsItem serves one published item.  Requests without the slug, or with a
// stale one, are redirected to the canonical path.
func (h *Handler) newsItem(w http.ResponseWriter, r *http.Request) {
	n, err := h.d.News.GetByID(r.Context(), chi.URLParam(r, "id"))
	switch {
	case notFound(err) || (err == nil && !n.Published):
		h.NotFound(w, r)
		return
	case err != nil:
		h.errorPage(w, r, http.StatusBadGateway, "Não foi possível carregar a notícia.  Tente novamente.")
		return
	}

	canonical := view.NewsURL(n)
	if r.URL.Path != canonical {
		http.Redirect(w, r, canonical, http.StatusMovedPermanently)
		return
	}

	p := h.d.View.Page(w, r, n.Title, n)
	desc := n.Summary.String
	if desc == "" {
		desc = view.Excerpt(n.Body, 160)
	}
	p.Head.Description(desc)
	a := head.Article{
		Headline:    n.Title,
		Description: desc,
		Image:       n.ImageURL.String,
		Published:   n.PublishedAt.Time,
		Modified:    n.UpdatedAt.Time,
	}
	if h.d.View.BaseURL() != "" {
		a.URL = h.d.View.BaseURL() + canonical
	}
	p.Head.Article(a)
	h.render(w, r, http.StatusOK, "public/noticia", p)
}

func (h *Handler) documents(w http.ResponseWriter, r *http.Request) {
	cat := category(r, school.DocumentCategories)
	rows, err := h.d.Documents.List(r.Context(), PublicDocuments(cat))
	if err != nil {
		h.errorPage(w, r, http.StatusBadGateway, "Não foi possível carregar os documentos.  Tente novamente.")
		return
	}
	h.render(w, r, http.StatusOK, "public/documentos",
		h.d.View.Page(w, r, "Documentos", documentsData{Documents: rows, Category: cat}))
}
