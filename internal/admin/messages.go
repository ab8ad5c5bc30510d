package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/session"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
)

// messageDetail shows one message.  Viewing does not change the read flag;
// the secretary toggles it explicitly.
func (h *Handler) messageDetail(w http.ResponseWriter, r *http.Request) {
	m, err := h.d.Messages.GetByID(r.Context(), chi.URLParam(r, "id"))
	switch {
	case notFound(err):
		h.redirect(w, r, session.KindError, "Mensagem não encontrada.", "/admin/mensagens")
		return
	case err != nil:
		h.redirect(w, r, session.KindError, "Erro ao carregar mensagem.", "/admin/mensagens")
		return
	}
	h.render(w, r, http.StatusOK, "admin/mensagem", h.d.View.Page(w, r, "Mensagem de "+m.Name, m))
}

func (h *Handler) messageToggleRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := "/admin/mensagens"
	if r.PostFormValue("voltar") == "detalhe" {
		back = "/admin/mensagens/" + id
	}

	m, err := h.d.Messages.GetByID(r.Context(), id)
	if err == nil {
		err = h.d.Messages.Update(r.Context(), id, tableapi.Values{"is_read": !m.Read})
	}
	switch {
	case err == nil && m.Read:
		h.redirect(w, r, session.KindSuccess, "Mensagem marcada como não lida.", back)
	case err == nil:
		h.redirect(w, r, session.KindSuccess, "Mensagem marcada como lida.", back)
	case notFound(err):
		h.redirect(w, r, session.KindError, "Mensagem não encontrada.", "/admin/mensagens")
	default:
		h.redirect(w, r, session.KindError, "Erro ao atualizar mensagem.", back)
	}
}
