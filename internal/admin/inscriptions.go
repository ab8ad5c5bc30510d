package admin

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/logger"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/session"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/view"
)

// ErrInvalidStatus is returned for any target other than approved or
// rejected.
var ErrInvalidStatus = errors.New("admin: invalid status")

// Transitions moves inscriptions between review states.
type Transitions struct {
	gw  tableapi.Gateway[school.Inscription]
	now func() time.Time
}

// NewTransitions returns a Transitions over gw.
func NewTransitions(gw tableapi.Gateway[school.Inscription]) *Transitions {
	return &Transitions{gw: gw, now: time.Now}
}

// Apply sets the status of id with one update.  Re-applying the current
// status succeeds.
func (t *Transitions) Apply(ctx context.Context, id string, to school.Status) error {
	if to != school.StatusApproved && to != school.StatusRejected {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	return t.gw.Update(ctx, id, tableapi.Values{
		"status":     string(to),
		"updated_at": t.now().UTC(),
	})
}

var transitionToast = map[school.Status]string{
	school.StatusApproved: "Inscrição aprovada com sucesso!",
	school.StatusRejected: "Inscrição rejeitada com sucesso!",
}

func (h *Handler) transition(to school.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := h.transitions.Apply(r.Context(), id, to)
		switch {
		case err == nil:
			logger.FromContext(r.Context()).Infow("inscription status changed", "id", id, "status", to)
			h.redirect(w, r, session.KindSuccess, transitionToast[to], "/admin/inscricoes")
		case notFound(err):
			h.redirect(w, r, session.KindError, "Inscrição não encontrada.", "/admin/inscricoes")
		default:
			h.redirect(w, r, session.KindError, "Erro ao atualizar estado.", "/admin/inscricoes")
		}
	}
}

func (h *Handler) inscriptionDetail(w http.ResponseWriter, r *http.Request) {
	ins, err := h.d.Inscriptions.GetByID(r.Context(), chi.URLParam(r, "id"))
	switch {
	case notFound(err):
		h.redirect(w, r, session.KindError, "Inscrição não encontrada.", "/admin/inscricoes")
		return
	case err != nil:
		h.redirect(w, r, session.KindError, "Erro ao carregar inscrição.", "/admin/inscricoes")
		return
	}
	h.render(w, r, http.StatusOK, "admin/inscricao", h.d.View.Page(w, r, ins.StudentName, ins))
}

/*──────────────────────────────── export ──────────────────────────────────*/

var csvHeader = []string{
	"Nome Aluno", "Data Nascimento", "Nível Ensino", "Encarregado",
	"Telefone", "Email", "Estado", "Data Inscrição",
}

// exportInscriptions streams every inscription, newest first.
func (h *Handler) exportInscriptions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.d.Inscriptions.List(r.Context(), tableapi.Query{OrderBy: "created_at", Desc: true})
	if err != nil {
		h.redirect(w, r, session.KindError, "Erro ao exportar inscrições.", "/admin/inscricoes")
		return
	}

	name := fmt.Sprintf("%s_%s.csv", school.TableInscriptions, h.now().Format(school.DateLayout))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)

	if err := WriteCSV(w, rows); err != nil {
		logger.FromContext(r.Context()).Warnw("csv export interrupted", "err", err)
	}
}

// formulaLead are the first characters spreadsheets treat as a formula.
const formulaLead = "=+-@\t\r"

// csvCell keeps visitor-typed text from being evaluated when the file is
// opened in a spreadsheet.
func csvCell(s string) string {
	if s != "" && strings.ContainsRune(formulaLead, rune(s[0])) {
		return "'" + s
	}
	return s
}

// WriteCSV writes the export header and one record per inscription.  Free
// text cells starting with a formula character get a leading quote.
func WriteCSV(w io.Writer, rows []school.Inscription) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, in := range rows {
		rec := []string{
			csvCell(in.StudentName),
			in.BirthDate.Format(school.DateLayout),
			in.Level,
			csvCell(in.GuardianName),
			csvCell(in.Phone),
			csvCell(in.Email.String),
			string(in.Status),
			in.CreatedAt.Format(view.DateFormat),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
