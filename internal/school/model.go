// internal/school/model.go
//
// Domain rows.  Each struct mirrors one table; the `db` tags are the
// column whitelist the table gateway enforces.  Optional columns use the
// sql.Null* wrappers so a missing value round-trips as NULL.
package school

import (
	"database/sql"
	"strings"
	"time"
)

// Table names.  The inscription table keeps its enrolment-year suffix.
const (
	TableInscriptions = "inscricoes_2025"
	TableNews         = "noticias"
	TableContacts     = "contactos"
	TableSubscribers  = "newsletter_subscribers"
	TableDocuments    = "documentos_escolares"
	TableAdminUsers   = "admin_users"
)

// Status is an inscription's review state.
type Status string

const (
	StatusPending  Status = "pendente"
	StatusApproved Status = "aprovado"
	StatusRejected Status = "rejeitado"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected}

// Valid reports whether s is one of the three known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Label is the capitalised form shown in badges.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pendente"
	case StatusApproved:
		return "Aprovado"
	case StatusRejected:
		return "Rejeitado"
	}
	return string(s)
}

// Fixed option lists rendered in selects and enforced by the form schemas.
var (
	Levels             = []string{"Iniciação", "Primário", "I Ciclo", "II Ciclo"}
	NewsCategories     = []string{"Eventos", "Académico", "Desporto", "Comunicados"}
	DocumentCategories = []string{"Regulamentos", "Calendários", "Formulários", "Outros"}
	Genders            = []string{"Masculino", "Feminino"}
)

// Inscription is an admission application.
type Inscription struct {
	ID             string         `db:"id"`
	StudentName    string         `db:"nome_aluno"`
	BirthDate      time.Time      `db:"data_nascimento"`
	Gender         sql.NullString `db:"genero"`
	Level          string         `db:"nivel_ensino"`
	DesiredClass   sql.NullString `db:"classe_pretendida"`
	GuardianName   string         `db:"nome_encarregado"`
	Phone          string         `db:"telefone"`
	AltPhone       sql.NullString `db:"telefone_alternativo"`
	Email          sql.NullString `db:"email"`
	Address        sql.NullString `db:"morada"`
	PreviousSchool sql.NullString `db:"escola_anterior"`
	Notes          sql.NullString `db:"observacoes"`
	Status         Status         `db:"status"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      sql.NullTime   `db:"updated_at"`
}

// News is a news item.  Body holds markdown.
type News struct {
	ID          string         `db:"id"`
	Title       string         `db:"titulo"`
	Category    string         `db:"categoria"`
	Summary     sql.NullString `db:"resumo"`
	Body        string         `db:"corpo"`
	ImageURL    sql.NullString `db:"imagem_url"`
	Published   bool           `db:"is_published"`
	PublishedAt sql.NullTime   `db:"data_publicacao"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   sql.NullTime   `db:"updated_at"`
}

// ContactMessage is a message sent through the contact form.
type ContactMessage struct {
	ID        string         `db:"id"`
	Name      string         `db:"nome"`
	Email     string         `db:"email"`
	Phone     sql.NullString `db:"telefone"`
	Subject   sql.NullString `db:"assunto"`
	Body      string         `db:"mensagem"`
	Read      bool           `db:"is_read"`
	CreatedAt time.Time      `db:"created_at"`
}

// Subscriber is a newsletter address.
type Subscriber struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Active    bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

// Document is a downloadable school document.  Read-only here.
type Document struct {
	ID          string         `db:"id"`
	Title       string         `db:"titulo"`
	Description sql.NullString `db:"descricao"`
	Category    string         `db:"categoria"`
	FileURL     string         `db:"ficheiro_url"`
	Public      bool           `db:"is_public"`
	CreatedAt   time.Time      `db:"created_at"`
}

// AdminUser is a back-office account.
type AdminUser struct {
	ID           string       `db:"id"`
	Email        string       `db:"email"`
	PasswordHash string       `db:"password_hash"`
	CreatedAt    time.Time    `db:"created_at"`
	LastSignInAt sql.NullTime `db:"last_sign_in_at"`
}

// DisplayName is the local part of the e-mail, used as a greeting.
func (u AdminUser) DisplayName() string {
	return DisplayName(u.Email)
}

// DisplayName returns the part of email before "@".
func DisplayName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

// NullString maps "" to NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
