package form

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
)

func admissionValues() url.Values {
	return url.Values{
		"nome_aluno":       {"  Ana Silva "},
		"data_nascimento":  {"2015-04-02"},
		"nivel_ensino":     {"Primário"},
		"nome_encarregado": {"Maria Silva"},
		"telefone":         {"912345678"},
	}
}

func TestDecodeValuesAdmission(t *testing.T) {
	d := NewDecoder(Options{})
	var f school.AdmissionForm
	if err := d.DecodeValues(admissionValues(), &f); err != nil {
		t.Fatalf("DecodeValues: %v", err)
	}
	if f.StudentName != "Ana Silva" {
		t.Errorf("name not trimmed: %q", f.StudentName)
	}
}

func TestDecodeValuesFieldErrors(t *testing.T) {
	d := NewDecoder(Options{})
	v := admissionValues()
	v.Set("nome_aluno", "")
	v.Set("nivel_ensino", "Universidade")
	v.Set("email", "not-an-email")
	v.Set("telefone", "12")

	var f school.AdmissionForm
	err := d.DecodeValues(v, &f)
	ve, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	for _, name := range []string{"nome_aluno", "nivel_ensino", "email", "telefone"} {
		if ve.Message(name) == "" {
			t.Errorf("no marker for %s in %+v", name, ve.Fields)
		}
	}
	if ve.Message("nome_encarregado") != "" {
		t.Error("valid field marked")
	}
}

func TestContactConsentRequired(t *testing.T) {
	d := NewDecoder(Options{})
	v := url.Values{
		"nome":     {"João"},
		"email":    {"joao@example.ao"},
		"mensagem": {"Olá"},
	}

	var f school.ContactForm
	ve, ok := AsValidationError(d.DecodeValues(v, &f))
	if !ok || ve.Message("consentimento") != consentMessage {
		t.Fatalf("consent not enforced: %+v", ve)
	}

	v.Set("consentimento", "on")
	if err := d.DecodeValues(v, &f); err != nil {
		t.Fatalf("with consent: %v", err)
	}
}

func TestDecodeChecksTiming(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	d := NewDecoder(Options{MinFill: 2 * time.Second, MaxAge: time.Hour})
	d.now = func() time.Time { return now }

	post := func(stamp string) error {
		v := url.Values{"email": {"a@b.ao"}, StampField: {stamp}}
		r := httptest.NewRequest(http.MethodPost, "/newsletter", strings.NewReader(v.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		var f school.NewsletterForm
		return d.Decode(r, &f)
	}

	tests := []struct {
		name  string
		stamp string
		ok    bool
	}{
		{"missing", "", false},
		{"too fast", Stamp(now.Add(-time.Second)), false},
		{"expired", Stamp(now.Add(-2 * time.Hour)), false},
		{"fine", Stamp(now.Add(-30 * time.Second)), true},
	}
	for _, tc := range tests {
		err := post(tc.stamp)
		if (err == nil) != tc.ok {
			t.Errorf("%s: err = %v", tc.name, err)
		}
		if err != nil && !IsValidationError(err) {
			t.Errorf("%s: want ValidationError, got %T", tc.name, err)
		}
	}
}

func TestValidationErrorMap(t *testing.T) {
	ve := ValidationError{Fields: []ErrorField{{"email", "a"}, {"email", "b"}, {"", "c"}}}
	m := ve.Map()
	if m["email"] != "a" || m[""] != "c" {
		t.Fatalf("Map = %v", m)
	}
}
