// internal/school/forms.go
//
// Boundary schemas for every POSTed form.  Field names follow the table
// columns so a re-rendered form keeps the posted names.  `form` tags drive
// go-playground/form decoding; `validate` tags are checked once by
// internal/form before any gateway call.
package school

import (
	"time"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
)

// DateLayout is the HTML date input format.
const DateLayout = "2006-01-02"

// AdmissionForm is the public admission application.
type AdmissionForm struct {
	StudentName    string `form:"nome_aluno"           validate:"required,max=200"`
	BirthDate      string `form:"data_nascimento"      validate:"required,datetime=2006-01-02,pastdate"`
	Gender         string `form:"genero"               validate:"omitempty,oneof=Masculino Feminino"`
	Level          string `form:"nivel_ensino"         validate:"required,level"`
	DesiredClass   string `form:"classe_pretendida"    validate:"omitempty,max=40"`
	GuardianName   string `form:"nome_encarregado"     validate:"required,max=200"`
	Phone          string `form:"telefone"             validate:"required,phone"`
	AltPhone       string `form:"telefone_alternativo" validate:"omitempty,phone"`
	Email          string `form:"email"                validate:"omitempty,email,max=254"`
	Address        string `form:"morada"               validate:"omitempty,max=300"`
	PreviousSchool string `form:"escola_anterior"      validate:"omitempty,max=200"`
	Notes          string `form:"observacoes"          validate:"omitempty,max=2000"`
}

// Values converts a validated form into an inscription row.  Status is left
// to the caller.
func (f AdmissionForm) Values() tableapi.Values {
	birth, _ := time.Parse(DateLayout, f.BirthDate)
	return tableapi.Values{
		"nome_aluno":           f.StudentName,
		"data_nascimento":      birth,
		"genero":               NullString(f.Gender),
		"nivel_ensino":         f.Level,
		"classe_pretendida":    NullString(f.DesiredClass),
		"nome_encarregado":     f.GuardianName,
		"telefone":             f.Phone,
		"telefone_alternativo": NullString(f.AltPhone),
		"email":                NullString(f.Email),
		"morada":               NullString(f.Address),
		"escola_anterior":      NullString(f.PreviousSchool),
		"observacoes":          NullString(f.Notes),
	}
}

// ContactForm is the public contact form.  Consent must be ticked.
type ContactForm struct {
	Name    string `form:"nome"          validate:"required,max=200"`
	Email   string `form:"email"         validate:"required,email,max=254"`
	Phone   string `form:"telefone"      validate:"omitempty,phone"`
	Subject string `form:"assunto"       validate:"omitempty,max=200"`
	Message string `form:"mensagem"      validate:"required,max=5000"`
	Consent bool   `form:"consentimento" validate:"required"`
}

// Values converts a validated form into a contact row.
func (f ContactForm) Values() tableapi.Values {
	return tableapi.Values{
		"nome":     f.Name,
		"email":    f.Email,
		"telefone": NullString(f.Phone),
		"assunto":  NullString(f.Subject),
		"mensagem": f.Message,
	}
}

// NewsletterForm is the footer subscription form.
type NewsletterForm struct {
	Email string `form:"email" validate:"required,email,max=254"`
}

// NewsForm is the back-office news editor.  An empty ID means a new item.
type NewsForm struct {
	ID        string `form:"id"           validate:"omitempty,uuid"`
	Title     string `form:"titulo"       validate:"required,max=250"`
	Category  string `form:"categoria"    validate:"required,newscategory"`
	Summary   string `form:"resumo"       validate:"omitempty,max=500"`
	Body      string `form:"corpo"        validate:"required"`
	ImageURL  string `form:"imagem_url"   validate:"omitempty,url,max=500"`
	Published bool   `form:"is_published"`
}

// NewsFormFrom fills the editor from a stored row.
func NewsFormFrom(n News) NewsForm {
	return NewsForm{
		ID:        n.ID,
		Title:     n.Title,
		Category:  n.Category,
		Summary:   n.Summary.String,
		Body:      n.Body,
		ImageURL:  n.ImageURL.String,
		Published: n.Published,
	}
}

// Values converts the editable columns into a patch.  Timestamps are the
// editor's concern.
func (f NewsForm) Values() tableapi.Values {
	return tableapi.Values{
		"titulo":       f.Title,
		"categoria":    f.Category,
		"resumo":       NullString(f.Summary),
		"corpo":        f.Body,
		"imagem_url":   NullString(f.ImageURL),
		"is_published": f.Published,
	}
}

// LoginForm is the back-office sign-in form.
type LoginForm struct {
	Email    string `form:"email"    validate:"required,email"`
	Password string `form:"password" validate:"required"`
}
