// internal/site/submit.go
//
// Public form submission.
//
// Context
// -------
// The three public forms arrive here already decoded and validated by
// form.Decoder.  Submitter turns each one into exactly one insert, apart
// from the newsletter, which first looks the address up.
//
// Notes
// -----
//   - A notification is queued only after the insert succeeded.  Queue
//     failures are logged and never reach the visitor.
package site

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/message"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
)

// ErrAlreadySubscribed is returned by Subscribe for a known address.
var ErrAlreadySubscribed = errors.New("site: already subscribed")

// Notifier accepts outbound e-mails.  *message.Queue implements it.
type Notifier interface {
	Enqueue(message.Email) error
}

// Submitter writes public submissions through the table gateways.
type Submitter struct {
	inscriptions tableapi.Gateway[school.Inscription]
	contacts     tableapi.Gateway[school.ContactMessage]
	subscribers  tableapi.Gateway[school.Subscriber]

	notify Notifier // nil disables notifications
	to     string
	log    *zap.SugaredLogger
	now    func() time.Time
}

// SubmitterDeps groups NewSubmitter's arguments.
type SubmitterDeps struct {
	Inscriptions tableapi.Gateway[school.Inscription]
	Contacts     tableapi.Gateway[school.ContactMessage]
	Subscribers  tableapi.Gateway[school.Subscriber]
	Notify       Notifier
	NotifyTo     string
	Log          *zap.SugaredLogger
}

// NewSubmitter builds a Submitter.  Notifications need both Notify and
// NotifyTo.
func NewSubmitter(d SubmitterDeps) *Submitter {
	s := &Submitter{
		inscriptions: d.Inscriptions,
		contacts:     d.Contacts,
		subscribers:  d.Subscribers,
		to:           d.NotifyTo,
		log:          d.Log,
		now:          time.Now,
	}
	if d.Notify != nil && d.NotifyTo != "" {
		s.notify = d.Notify
	}
	if s.log == nil {
		s.log = zap.S()
	}
	return s
}

// SubmitAdmission stores f as a pending inscription.
func (s *Submitter) SubmitAdmission(ctx context.Context, f school.AdmissionForm) (string, error) {
	v := f.Values()
	v["status"] = string(school.StatusPending)
	id, err := s.inscriptions.Insert(ctx, v)
	if err != nil {
		return "", err
	}
	s.send(admissionEmail(s.to, f, s.now()))
	return id, nil
}

// SubmitContact stores f as an unread message.
func (s *Submitter) SubmitContact(ctx context.Context, f school.ContactForm) (string, error) {
	v := f.Values()
	v["is_read"] = false
	id, err := s.contacts.Insert(ctx, v)
	if err != nil {
		return "", err
	}
	s.send(contactEmail(s.to, f))
	return id, nil
}

// Subscribe adds email to the newsletter.  Addresses are stored lower-cased;
// a known address yields ErrAlreadySubscribed and nothing is written.  Two
// concurrent sign-ups can both pass the lookup; the loser hits the unique
// key and gets the same error.
func (s *Submitter) Subscribe(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hit, err := s.subscribers.List(ctx, tableapi.Query{
		Eq:    []tableapi.Eq{{Column: "email", Value: email}},
		Limit: 1,
	})
	if err != nil {
		return "", err
	}
	if len(hit) > 0 {
		return "", ErrAlreadySubscribed
	}
	id, err := s.subscribers.Insert(ctx, tableapi.Values{"email": email, "is_active": true})
	if errors.Is(err, tableapi.ErrDuplicate) {
		return "", ErrAlreadySubscribed
	}
	return id, err
}

func (s *Submitter) send(msg message.Email) {
	if s.notify == nil {
		return
	}
	if err := s.notify.Enqueue(msg); err != nil {
		s.log.Warnw("notification not queued", "subject", msg.Subject, "err", err)
	}
}

/*──────────────────────────────── e-mails ─────────────────────────────────*/

func admissionEmail(to string, f school.AdmissionForm, at time.Time) message.Email {
	var b strings.Builder
	fmt.Fprintf(&b, "Nova inscrição recebida em %s.\n\n", at.Format("02/01/2006 15:04"))
	line := func(label, val string) {
		if val != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, val)
		}
	}
	line("Aluno", f.StudentName)
	line("Data de nascimento", f.BirthDate)
	line("Nível de ensino", f.Level)
	line("Classe pretendida", f.DesiredClass)
	line("Encarregado", f.GuardianName)
	line("Telefone", f.Phone)
	line("Email", f.Email)
	b.WriteString("\nA inscrição está pendente no painel de administração.\n")

	return message.Email{
		To:      []string{to},
		ReplyTo: f.Email,
		Subject: "Nova inscrição: " + f.StudentName,
		Text:    b.String(),
	}
}

func contactEmail(to string, f school.ContactForm) message.Email {
	subject := f.Subject
	if subject == "" {
		subject = "Mensagem de " + f.Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "De: %s <%s>\n", f.Name, f.Email)
	if f.Phone != "" {
		fmt.Fprintf(&b, "Telefone: %s\n", f.Phone)
	}
	b.WriteString("\n")
	b.WriteString(f.Message)
	b.WriteString("\n")

	return message.Email{
		To:      []string{to},
		ReplyTo: f.Email,
		Subject: "Contacto: " + subject,
		Text:    b.String(),
	}
}
