// internal/form/decode.go
//
// Forms subsystem: one-call decode and validate.
//
// Context
//   Handlers want one call that parses the POST body, fills a typed schema,
//   validates it, and either returns nil or a ValidationError.  Decoder
//   provides that so handler code stays terse.  Nothing reaches a gateway
//   until Decode returns nil.
//
//------------------------------------------------------------------------------

package form

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
)

// Options tunes the anti-bot timing check.  A zero MinFill disables the
// lower bound; a zero MaxAge disables expiry.
type Options struct {
	MinFill time.Duration
	MaxAge  time.Duration
}

// Decoder turns url.Values into validated schema structs.  Safe for
// concurrent use.
type Decoder struct {
	dec  *form.Decoder
	val  *validator.Validate
	opts Options
	now  func() time.Time
}

// NewDecoder builds a Decoder.  String values are trimmed on decode.
func NewDecoder(opts Options) *Decoder {
	dec := form.NewDecoder()
	dec.RegisterCustomTypeFunc(func(vals []string) (any, error) {
		return strings.TrimSpace(vals[0]), nil
	}, "")

	return &Decoder{dec: dec, val: newValidator(), opts: opts, now: time.Now}
}

// Decode parses r's POST body into dst and validates it, including the
// render-time stamp.
func (d *Decoder) Decode(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return ValidationError{Fields: []ErrorField{{Message: "Pedido inválido."}}}
	}
	if msg := checkTiming(r.PostForm.Get(StampField), d.now(), d.opts.MinFill, d.opts.MaxAge); msg != "" {
		// Keep what was typed so the re-rendered form is not blank.
		_ = d.dec.Decode(dst, r.PostForm)
		return ValidationError{Fields: []ErrorField{{Message: msg}}}
	}
	return d.DecodeValues(r.PostForm, dst)
}

// DecodeValues fills dst from v and validates it.  No timing check; used by
// the sign-in form and tests.
func (d *Decoder) DecodeValues(v url.Values, dst any) error {
	if err := d.dec.Decode(dst, v); err != nil {
		return ValidationError{Fields: []ErrorField{{Message: "Dados inválidos."}}}
	}
	if err := d.val.Struct(dst); err != nil {
		return ValidationError{Fields: toFields(err)}
	}
	return nil
}
