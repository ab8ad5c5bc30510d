package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/form"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/logger"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/session"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/view"
)

// NewsEditor opens and saves news items.
type NewsEditor struct {
	gw  tableapi.Gateway[school.News]
	now func() time.Time
}

// NewNewsEditor returns an editor over gw.
func NewNewsEditor(gw tableapi.Gateway[school.News]) *NewsEditor {
	return &NewsEditor{gw: gw, now: time.Now}
}

// Open returns a blank form for an empty id, else the stored item.
func (e *NewsEditor) Open(ctx context.Context, id string) (school.NewsForm, error) {
	if id == "" {
		return school.NewsForm{}, nil
	}
	n, err := e.gw.GetByID(ctx, id)
	if err != nil {
		return school.NewsForm{}, err
	}
	return school.NewsFormFrom(n), nil
}

// Save inserts f when it has no id and updates it otherwise; never both.
// data_publicacao is stamped only when the item becomes published, so an
// item that was already published keeps its original date.
func (e *NewsEditor) Save(ctx context.Context, f school.NewsForm) (id string, created bool, err error) {
	now := e.now().UTC()
	v := f.Values()
	v["updated_at"] = now

	if f.ID == "" {
		if f.Published {
			v["data_publicacao"] = now
		}
		id, err = e.gw.Insert(ctx, v)
		return id, true, err
	}

	cur, err := e.gw.GetByID(ctx, f.ID)
	if err != nil {
		return f.ID, false, err
	}
	if f.Published && !cur.Published {
		v["data_publicacao"] = now
	}
	return f.ID, false, e.gw.Update(ctx, f.ID, v)
}

/*──────────────────────────────── handlers ────────────────────────────────*/

type editorData = view.FormData[school.NewsForm]

func editorTitle(f school.NewsForm) string {
	if f.ID == "" {
		return "Nova notícia"
	}
	return "Editar notícia"
}

func (h *Handler) newsNew(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "admin/noticia_editar",
		h.d.View.Page(w, r, "Nova notícia", editorData{}))
}

func (h *Handler) newsEdit(w http.ResponseWriter, r *http.Request) {
	f, err := h.editor.Open(r.Context(), chi.URLParam(r, "id"))
	switch {
	case notFound(err):
		h.redirect(w, r, session.KindError, "Notícia não encontrada.", "/admin/noticias")
		return
	case err != nil:
		h.redirect(w, r, session.KindError, "Erro ao carregar notícia.", "/admin/noticias")
		return
	}
	h.render(w, r, http.StatusOK, "admin/noticia_editar",
		h.d.View.Page(w, r, editorTitle(f), editorData{Form: f}))
}

func (h *Handler) newsSave(w http.ResponseWriter, r *http.Request) {
	var f school.NewsForm
	_ = r.ParseForm()
	err := h.d.Forms.DecodeValues(r.PostForm, &f)
	if ve, ok := form.AsValidationError(err); ok {
		p := h.d.View.Page(w, r, editorTitle(f), editorData{
			Form:   f,
			Errors: ve.Map(),
			Banner: "Corrija os campos assinalados.",
		})
		p.Flash = errorToast("Erro ao guardar notícia.")
		h.render(w, r, http.StatusUnprocessableEntity, "admin/noticia_editar", p)
		return
	}

	id, created, err := h.editor.Save(r.Context(), f)
	switch {
	case err == nil:
		logger.FromContext(r.Context()).Infow("news saved", "id", id, "created", created, "published", f.Published)
		msg := "Notícia atualizada!"
		if created {
			msg = "Notícia criada!"
		}
		h.redirect(w, r, session.KindSuccess, msg, "/admin/noticias")
	case notFound(err):
		h.redirect(w, r, session.KindError, "Notícia não encontrada.", "/admin/noticias")
	default:
		p := h.d.View.Page(w, r, editorTitle(f), editorData{Form: f, Banner: "Não foi possível guardar.  Tente novamente."})
		p.Flash = errorToast("Erro ao guardar notícia.")
		h.render(w, r, http.StatusBadGateway, "admin/noticia_editar", p)
	}
}

func (h *Handler) newsDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.d.News.Delete(r.Context(), id)
	switch {
	case err == nil:
		logger.FromContext(r.Context()).Infow("news deleted", "id", id)
		h.redirect(w, r, session.KindSuccess, "Notícia eliminada.", "/admin/noticias")
	case notFound(err):
		h.redirect(w, r, session.KindError, "Notícia não encontrada.", "/admin/noticias")
	default:
		h.redirect(w, r, session.KindError, "Erro ao eliminar notícia.", "/admin/noticias")
	}
}
