// internal/slug/slug.go
//
// Slug helpers for public news URLs.
//
// • Make(title) ─ converts arbitrary text into a URL-safe slug restricted to
//   ASCII a-z, 0-9 and “-”.
// • Path(parent, slug) ─ joins parent path + slug with a single “/” and
//   guarantees exactly one leading slash.
//
// Rules (Make)
// ------------
// 1. Decompose (NFD) and drop combining marks, so “Inscrições” → “inscricoes”.
// 2. Lower-case everything.
// 3. Convert any run of non-[a-z0-9] characters to one “-”.
// 4. Trim leading / trailing “-”.
// 5. If the result is empty, return "noticia".
//
// Notes
// -----
// • Slugs are max 100 bytes; the cut never leaves a trailing dash.
// • The slug is cosmetic.  News pages resolve by id, so an edited title never
//   breaks an old link.

package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxLen   = 100
	fallback = "noticia"
)

// fold strips diacritics.  A transform.Chain is stateful, so Make builds a
// fresh one per call.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Make converts title → lower-kebab ASCII.
func Make(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastWasDash := false
	for _, r := range strings.ToLower(fold(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		default:
			if !lastWasDash {
				b.WriteRune('-')
				lastWasDash = true
			}
		}
	}

	s := strings.Trim(b.String(), "-")
	if s == "" {
		return fallback
	}
	if len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	return s
}

// Path joins parent + slug ensuring exactly one leading slash and no
// duplicate separators.
func Path(parent, slug string) string {
	parent = strings.Trim(parent, "/")
	slug = strings.Trim(slug, "/")

	switch {
	case parent == "" && slug == "":
		return "/"
	case parent == "":
		return "/" + slug
	case slug == "":
		return "/" + parent
	default:
		return "/" + parent + "/" + slug
	}
}
