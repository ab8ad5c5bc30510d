package site

import (
	"context"
	"errors"
	"net/http"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/form"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/logger"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/metrics"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/requestinfo"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/view"
)

const (
	bannerInvalid    = "Verifique os campos assinalados."
	bannerFailed     = "Não foi possível enviar.  Tente novamente dentro de instantes."
	bannerSubscribed = "Este email já está subscrito."
)

// formPage describes one public form endpoint.
type formPage struct {
	name  string // metrics label
	page  string
	title string
}

var (
	admissionPage  = formPage{"admissao", "public/admissoes", "Admissões"}
	contactPage    = formPage{"contacto", "public/contactos", "Contactos"}
	newsletterPage = formPage{"newsletter", "public/newsletter", "Newsletter"}
)

// submit decodes the request into a fresh T, runs save and renders the
// outcome.  It is the single path every public POST takes.
func submit[T any](h *Handler, fp formPage, save func(context.Context, T) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context()).With(requestinfo.FromContext(r.Context()).LogFields()...)

		var f T
		data := view.FormData[T]{}
		status := http.StatusOK
		outcome := "ok"

		err := h.d.Forms.Decode(r, &f)
		if ve, ok := form.AsValidationError(err); ok {
			data.Errors = ve.Map()
			data.Banner = bannerInvalid
			if msg := ve.Message(""); msg != "" {
				data.Banner = msg
			}
			status, outcome = http.StatusUnprocessableEntity, "invalid"
			log.Infow("form rejected", "form", fp.name, "fields", len(data.Errors))
		} else {
			id, err := save(r.Context(), f)
			switch {
			case err == nil:
				data.Done = true
				log.Infow("form submitted", "form", fp.name, "id", id)
			case errors.Is(err, ErrAlreadySubscribed):
				data.Banner = bannerSubscribed
				status, outcome = http.StatusConflict, "duplicate"
				log.Infow("already subscribed", "form", fp.name)
			default:
				data.Banner = bannerFailed
				status, outcome = http.StatusBadGateway, "error"
				log.Errorw("form submission failed", "form", fp.name, "err", err)
			}
		}
		data.Form = f
		metrics.FormSubmissions.WithLabelValues(fp.name, outcome).Inc()

		h.render(w, r, status, fp.page, h.d.View.Page(w, r, fp.title, data))
	}
}

func (h *Handler) admissionForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, admissionPage.page,
		h.d.View.Page(w, r, admissionPage.title, view.FormData[school.AdmissionForm]{}))
}

func (h *Handler) contactForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, contactPage.page,
		h.d.View.Page(w, r, contactPage.title, view.FormData[school.ContactForm]{}))
}

func (h *Handler) admissionSubmit(w http.ResponseWriter, r *http.Request) {
	submit(h, admissionPage, h.d.Submitter.SubmitAdmission)(w, r)
}

func (h *Handler) contactSubmit(w http.ResponseWriter, r *http.Request) {
	submit(h, contactPage, h.d.Submitter.SubmitContact)(w, r)
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	submit(h, newsletterPage, func(ctx context.Context, f school.NewsletterForm) (string, error) {
		return h.d.Submitter.Subscribe(ctx, f.Email)
	})(w, r)
}
