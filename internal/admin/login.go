// internal/admin/login.go
//
// Back-office login flow.
//
//------------------------------------------------------------------------------

package admin

import (
	"errors"
	"net/http"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/auth"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/form"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/logger"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/view"
)

const loginTitle = "Iniciar sessão"

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	if s, _ := h.d.Auth.Session(r); s != nil {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	p := h.d.View.Page(w, r, loginTitle, view.FormData[school.LoginForm]{})
	h.render(w, r, http.StatusOK, "admin/login", p)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in school.LoginForm
	data := view.FormData[school.LoginForm]{}

	_ = r.ParseForm() // a malformed body fails validation below
	err := h.d.Forms.DecodeValues(r.PostForm, &in)
	data.Form = school.LoginForm{Email: in.Email}
	if ve, ok := form.AsValidationError(err); ok {
		data.Errors = ve.Map()
		h.render(w, r, http.StatusUnprocessableEntity, "admin/login", h.d.View.Page(w, r, loginTitle, data))
		return
	}

	s, err := h.d.Auth.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		var ae *auth.AuthError
		status := http.StatusUnauthorized
		data.Banner = "Não foi possível iniciar sessão."
		if errors.As(err, &ae) {
			data.Banner = ae.Message
			if !errors.Is(err, auth.ErrInvalidCredentials) {
				status = http.StatusBadGateway
				logger.FromContext(r.Context()).Errorw("sign-in failed", "err", err)
			}
		}
		h.render(w, r, status, "admin/login", h.d.View.Page(w, r, loginTitle, data))
		return
	}

	h.d.Auth.Establish(w, s)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
