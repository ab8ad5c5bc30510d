package site

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/form"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/message"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/session"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi/tabletest"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/view"
)

type outbox struct {
	mu   sync.Mutex
	sent []message.Email
}

func (o *outbox) Enqueue(m message.Email) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, m)
	return nil
}

func (o *outbox) all() []message.Email {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]message.Email(nil), o.sent...)
}

type env struct {
	router http.Handler
	news   *tabletest.Memory[school.News]
	docs   *tabletest.Memory[school.Document]
	ins    *tabletest.Memory[school.Inscription]
	msgs   *tabletest.Memory[school.ContactMessage]
	subs   *tabletest.Memory[school.Subscriber]
	mail   *outbox
}

func newEnv(t *testing.T) *env {
	t.Helper()
	sm := session.New(session.Options{CookieName: "colegio_session", HashKey: []byte("0123456789abcdef0123456789abcdef")})
	eng, err := view.New(view.Options{Site: "Colégio Teste", BaseURL: "https://colegio.test", Sessions: sm})
	if err != nil {
		t.Fatal(err)
	}
	e := &env{
		news: tabletest.NewMemory[school.News](),
		docs: tabletest.NewMemory[school.Document](),
		ins:  tabletest.NewMemory[school.Inscription](),
		msgs: tabletest.NewMemory[school.ContactMessage](),
		subs: tabletest.NewMemory[school.Subscriber](),
		mail: &outbox{},
	}
	h := New(Deps{
		News:      e.news,
		Documents: e.docs,
		Submitter: NewSubmitter(SubmitterDeps{
			Inscriptions: e.ins,
			Contacts:     e.msgs,
			Subscribers:  e.subs,
			Notify:       e.mail,
			NotifyTo:     "secretaria@colegio-ef.ao",
		}),
		View:      eng,
		Forms:     form.NewDecoder(form.Options{MaxAge: time.Hour}),
		NewsLimit: 6,
	})
	e.router = h.Routes()
	return e
}

func (e *env) get(target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

// post submits body with a render stamp from a minute ago unless the body
// already carries one.
func (e *env) post(target string, body url.Values) *httptest.ResponseRecorder {
	if _, ok := body[form.StampField]; !ok {
		body.Set(form.StampField, form.Stamp(time.Now().Add(-time.Minute)))
	}
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

func (e *env) seedNews(title, category string, published bool, at time.Time) string {
	v := tableapi.Values{"titulo": title, "categoria": category, "corpo": "Texto com **destaque**.", "is_published": published}
	if published {
		v["data_publicacao"] = at
	}
	return e.news.Seed(v)[0]
}

/*──────────────────────────────── pages ───────────────────────────────────*/

func TestHomeShowsLatestPublished(t *testing.T) {
	e := newEnv(t)
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 1; i <= 7; i++ {
		e.seedNews(fmt.Sprintf("Item %02d", i), "Eventos", true, base.AddDate(0, 0, i))
	}
	e.seedNews("Rascunho", "Eventos", false, time.Time{})

	w := e.get("/")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	body := w.Body.String()
	for i := 2; i <= 7; i++ {
		if !strings.Contains(body, fmt.Sprintf("Item %02d", i)) {
			t.Errorf("Item %02d missing", i)
		}
	}
	if strings.Contains(body, "Item 01") || strings.Contains(body, "Rascunho") {
		t.Error("oldest or draft item shown")
	}
	if strings.Index(body, "Item 07") > strings.Index(body, "Item 02") {
		t.Error("not newest first")
	}
	if !strings.Contains(body, `name="newsletter"`) && !strings.Contains(body, `action="/newsletter"`) {
		t.Error("footer newsletter form missing")
	}
}

func TestHomeSurvivesGatewayFailure(t *testing.T) {
	e := newEnv(t)
	e.news.Fail = errors.New("boom")
	w := e.get("/")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Ainda não há notícias publicadas.") {
		t.Fatalf("code=%d", w.Code)
	}
}

func TestNewsListByCategory(t *testing.T) {
	e := newEnv(t)
	at := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	e.seedNews("Torneio de futebol", "Desporto", true, at)
	e.seedNews("Feira de ciências", "Eventos", true, at)

	body := e.get("/noticias?categoria=Desporto").Body.String()
	if !strings.Contains(body, "Torneio de futebol") || strings.Contains(body, "Feira de ciências") {
		t.Error("category filter not applied")
	}
	body = e.get("/noticias?categoria=Nada").Body.String()
	if !strings.Contains(body, "Torneio de futebol") || !strings.Contains(body, "Feira de ciências") {
		t.Error("unknown category should list everything")
	}

	e.news.Fail = errors.New("boom")
	if w := e.get("/noticias"); w.Code != http.StatusBadGateway {
		t.Fatalf("gateway failure code = %d", w.Code)
	}
}

func TestNewsItem(t *testing.T) {
	e := newEnv(t)
	id := e.seedNews("Festa de Natal", "Eventos", true, time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC))
	draft := e.seedNews("Rascunho", "Eventos", false, time.Time{})
	canonical := "/noticias/" + id + "/festa-de-natal"

	w := e.get("/noticias/" + id)
	if w.Code != http.StatusMovedPermanently || w.Header().Get("Location") != canonical {
		t.Fatalf("redirect: code=%d location=%q", w.Code, w.Header().Get("Location"))
	}
	if w := e.get("/noticias/" + id + "/titulo-antigo"); w.Code != http.StatusMovedPermanently {
		t.Fatalf("stale slug code = %d", w.Code)
	}

	w = e.get(canonical)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"<strong>destaque</strong>",
		`"@type":"NewsArticle"`,
		`"mainEntityOfPage":"https://colegio.test` + canonical + `"`,
		"20/12/2024",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q", want)
		}
	}

	for _, target := range []string{"/noticias/" + draft + "/rascunho", "/noticias/nao-existe/x"} {
		w := e.get(target)
		if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "A página que procura não existe.") {
			t.Errorf("%s: code=%d", target, w.Code)
		}
	}
}

func TestDocumentsArePublicOnly(t *testing.T) {
	e := newEnv(t)
	e.docs.Seed(
		tableapi.Values{"titulo": "Regulamento interno", "categoria": "Regulamentos", "ficheiro_url": "https://cdn.test/r.pdf", "is_public": true},
		tableapi.Values{"titulo": "Calendário 2025", "categoria": "Calendários", "ficheiro_url": "https://cdn.test/c.pdf", "is_public": true},
		tableapi.Values{"titulo": "Actas internas", "categoria": "Outros", "ficheiro_url": "https://cdn.test/a.pdf", "is_public": false},
	)

	body := e.get("/documentos").Body.String()
	if !strings.Contains(body, "Regulamento interno") || strings.Contains(body, "Actas internas") {
		t.Error("public filter not applied")
	}
	if strings.Index(body, "Calendário 2025") > strings.Index(body, "Regulamento interno") {
		t.Error("not newest first")
	}
	body = e.get("/documentos?categoria=Regulamentos").Body.String()
	if strings.Contains(body, "Calendário 2025") {
		t.Error("category filter not applied")
	}
}

func TestUnknownPathIs404(t *testing.T) {
	w := newEnv(t).get("/nao/existe")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "noindex") {
		t.Fatalf("code=%d", w.Code)
	}
}

/*──────────────────────────────── forms ───────────────────────────────────*/

func admission() url.Values {
	return url.Values{
		"nome_aluno":       {"Ana Silva"},
		"data_nascimento":  {"2015-06-01"},
		"nivel_ensino":     {"Primário"},
		"nome_encarregado": {"Maria Silva"},
		"telefone":         {"+244 923 456 789"},
		"email":            {"maria@example.ao"},
	}
}

func TestAdmissionSubmit(t *testing.T) {
	e := newEnv(t)

	w := e.post("/admissoes", admission())
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Inscrição enviada com sucesso!") {
		t.Fatalf("code=%d", w.Code)
	}
	rows := e.ins.Rows()
	if len(rows) != 1 || rows[0].Status != school.StatusPending || rows[0].StudentName != "Ana Silva" {
		t.Fatalf("rows = %+v", rows)
	}
	if !rows[0].BirthDate.Equal(time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("birth date = %v", rows[0].BirthDate)
	}
	sent := e.mail.all()
	if len(sent) != 1 || sent[0].Subject != "Nova inscrição: Ana Silva" || sent[0].ReplyTo != "maria@example.ao" {
		t.Fatalf("notifications = %+v", sent)
	}
}

func TestAdmissionInvalidKeepsValues(t *testing.T) {
	e := newEnv(t)
	v := admission()
	v.Set("telefone", "abc")
	v.Del("nome_encarregado")

	w := e.post("/admissoes", v)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Introduza um número de telefone válido.", "Campo obrigatório.", `value="Ana Silva"`} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q", want)
		}
	}
	if len(e.ins.Calls) != 0 || len(e.mail.all()) != 0 {
		t.Fatalf("calls=%v mail=%d", e.ins.Calls, len(e.mail.all()))
	}
}

func TestAdmissionTimingCheck(t *testing.T) {
	e := newEnv(t)
	v := admission()
	v.Set(form.StampField, form.Stamp(time.Now().Add(-3*time.Hour)))

	w := e.post("/admissoes", v)
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), "O formulário expirou") {
		t.Fatalf("code=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `value="Ana Silva"`) {
		t.Error("values dropped on expired form")
	}
	if len(e.ins.Calls) != 0 {
		t.Fatalf("calls = %v", e.ins.Calls)
	}
}

func TestAdmissionGatewayFailure(t *testing.T) {
	e := newEnv(t)
	e.ins.Fail = &tableapi.CallError{Table: school.TableInscriptions, Op: "insert", Err: context.DeadlineExceeded}

	w := e.post("/admissoes", admission())
	if w.Code != http.StatusBadGateway || !strings.Contains(w.Body.String(), "Não foi possível enviar.") {
		t.Fatalf("code=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `value="Ana Silva"`) {
		t.Error("values dropped")
	}
	if len(e.mail.all()) != 0 {
		t.Fatal("notified after failed insert")
	}
}

func TestContactRequiresConsent(t *testing.T) {
	e := newEnv(t)
	v := url.Values{
		"nome":     {"João Costa"},
		"email":    {"joao@example.ao"},
		"mensagem": {"Gostaria de visitar a escola."},
	}

	if w := e.post("/contactos", v); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("without consent code = %d", w.Code)
	}
	if len(e.msgs.Calls) != 0 {
		t.Fatal("inserted without consent")
	}

	v.Set("consentimento", "true")
	v.Del(form.StampField)
	w := e.post("/contactos", v)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Mensagem enviada!") {
		t.Fatalf("code=%d", w.Code)
	}
	rows := e.msgs.Rows()
	if len(rows) != 1 || rows[0].Read || rows[0].Body != "Gostaria de visitar a escola." {
		t.Fatalf("rows = %+v", rows)
	}
	sent := e.mail.all()
	if len(sent) != 1 || sent[0].Subject != "Contacto: Mensagem de João Costa" || !strings.Contains(sent[0].Text, "Gostaria de visitar") {
		t.Fatalf("notifications = %+v", sent)
	}
}

func TestSubscribe(t *testing.T) {
	e := newEnv(t)

	w := e.post("/newsletter", url.Values{"email": {"Pai@Example.AO"}})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Subscrição confirmada!") {
		t.Fatalf("code=%d", w.Code)
	}
	if rows := e.subs.Rows(); len(rows) != 1 || rows[0].Email != "pai@example.ao" || !rows[0].Active {
		t.Fatalf("rows = %+v", rows)
	}
	if !reflect.DeepEqual(e.subs.Calls, []string{"list", "insert"}) {
		t.Fatalf("calls = %v", e.subs.Calls)
	}

	e.subs.Calls = nil
	w = e.post("/newsletter", url.Values{"email": {"pai@example.ao"}})
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), "Este email já está subscrito") {
		t.Fatalf("duplicate code=%d", w.Code)
	}
	if !reflect.DeepEqual(e.subs.Calls, []string{"list"}) {
		t.Fatalf("duplicate calls = %v", e.subs.Calls)
	}

	if w := e.post("/newsletter", url.Values{"email": {"nao-e-email"}}); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid code = %d", w.Code)
	}
	if len(e.mail.all()) != 0 {
		t.Fatal("newsletter sends no notification")
	}
}

func TestSubscribeRaceOnUniqueKey(t *testing.T) {
	e := newEnv(t)
	// The lookup misses but the row landed meanwhile: the insert hits the
	// unique key.
	e.subs.FailOn = map[string]error{"insert": fmt.Errorf("insert %s: %w", school.TableSubscribers, tableapi.ErrDuplicate)}

	w := e.post("/newsletter", url.Values{"email": {"pai@example.ao"}})
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), "Este email já está subscrito.") {
		t.Fatalf("code=%d", w.Code)
	}
	if strings.Contains(w.Body.String(), "Não foi possível enviar.") {
		t.Error("duplicate shown as a failure")
	}
}

func TestSubscribeDirect(t *testing.T) {
	subs := tabletest.NewMemory[school.Subscriber]()
	s := NewSubmitter(SubmitterDeps{Subscribers: subs})
	ctx := context.Background()
	if _, err := s.Subscribe(ctx, "  Mae@Example.ao "); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Subscribe(ctx, "mae@example.ao"); !errors.Is(err, ErrAlreadySubscribed) {
		t.Fatalf("err = %v", err)
	}
	if n := subs.CallCount("insert"); n != 1 {
		t.Fatalf("inserts = %d", n)
	}
}
