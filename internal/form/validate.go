// internal/form/validate.go
//
// Forms subsystem: validation rules, error shape, and timing check.
//
// Context
//   Every schema in internal/school carries `validate` tags.  This file
//   builds the shared *validator.Validate, registers the project's custom
//   rules (phone, level, newscategory, pastdate), and converts validator
//   output into []ErrorField with Portuguese messages so templates can mark
//   the exact inputs that failed.
//
// Workflow
//   •  Field names come from the `form` tag, so an ErrorField.Name matches
//      the HTML input name.
//   •  A failed submission becomes a ValidationError.  Handlers treat it as
//      a user error (HTTP 422), never a 500.
//   •  checkTiming rejects posts that arrive faster than the minimum fill
//      time or after the form has expired.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
)

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

// ErrorField describes a single validation failure.  Name is empty for
// form-level problems (expired form, posted too fast).
type ErrorField struct {
	Name    string
	Message string
}

// ValidationError wraps []ErrorField and satisfies the error interface.
type ValidationError struct{ Fields []ErrorField }

func (ve ValidationError) Error() string { return "form validation failed" }

// Message returns the first message for field name, or "".
func (ve ValidationError) Message(name string) string {
	for _, f := range ve.Fields {
		if f.Name == name {
			return f.Message
		}
	}
	return ""
}

// Map returns field name → message for templates.  Form-level messages sit
// under the "" key.
func (ve ValidationError) Map() map[string]string {
	out := make(map[string]string, len(ve.Fields))
	for _, f := range ve.Fields {
		if _, dup := out[f.Name]; !dup {
			out[f.Name] = f.Message
		}
	}
	return out
}

// IsValidationError reports whether err came from a failed Decode.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// AsValidationError extracts the ValidationError from err.
func AsValidationError(err error) (ValidationError, bool) {
	var ve ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// -----------------------------------------------------------------------------
// Rules
// -----------------------------------------------------------------------------

var phoneRE = regexp.MustCompile(`^\+?[0-9 ]{9,20}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	must("phone", func(fl validator.FieldLevel) bool {
		return phoneRE.MatchString(fl.Field().String())
	})
	must("level", func(fl validator.FieldLevel) bool {
		return slices.Contains(school.Levels, fl.Field().String())
	})
	must("newscategory", func(fl validator.FieldLevel) bool {
		return slices.Contains(school.NewsCategories, fl.Field().String())
	})
	must("pastdate", func(fl validator.FieldLevel) bool {
		d, err := time.Parse(school.DateLayout, fl.Field().String())
		return err == nil && d.Before(time.Now())
	})
	return v
}

// messages maps a failed tag to the text shown under the input.
var messages = map[string]string{
	"required":     "Campo obrigatório.",
	"email":        "Introduza um email válido.",
	"max":          "Texto demasiado longo.",
	"oneof":        "Opção inválida.",
	"level":        "Escolha um nível de ensino.",
	"newscategory": "Escolha uma categoria.",
	"datetime":     "Data inválida.",
	"pastdate":     "A data tem de estar no passado.",
	"phone":        "Introduza um número de telefone válido.",
	"url":          "Endereço inválido.",
	"uuid":         "Identificador inválido.",
}

// consentMessage replaces "required" on checkboxes.
const consentMessage = "Tem de aceitar para continuar."

func toFields(err error) []ErrorField {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ErrorField{{Message: "Dados inválidos."}}
	}
	out := make([]ErrorField, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = "Valor inválido."
		}
		if fe.Tag() == "required" && fe.Kind() == reflect.Bool {
			msg = consentMessage
		}
		out = append(out, ErrorField{Name: fe.Field(), Message: msg})
	}
	return out
}

// -----------------------------------------------------------------------------
// Timing
// -----------------------------------------------------------------------------

// StampField is the hidden input that carries the render time.
const StampField = "render_ts"

// Stamp returns the value for the hidden render-time input.
func Stamp(now time.Time) string {
	return strconv.FormatInt(now.UnixMicro(), 10)
}

// checkTiming ensures the form was not submitted suspiciously fast or too
// late.  Returns "" on success, a user-visible message otherwise.
func checkTiming(tsRaw string, now time.Time, minFill, maxAge time.Duration) string {
	if tsRaw == "" {
		return "O formulário expirou.  Recarregue a página."
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return "O formulário expirou.  Recarregue a página."
	}
	delta := now.Sub(time.UnixMicro(ts))
	switch {
	case delta < minFill:
		return "Formulário enviado demasiado depressa.  Tente novamente."
	case maxAge > 0 && delta > maxAge:
		return "O formulário expirou.  Recarregue a página e envie de novo."
	default:
		return ""
	}
}
