// internal/head/builder.go
//
// The Builder collects everything that should appear inside a page's
// <head> element.  It is scoped to one render.  Handlers push the title,
// description, canonical URL, and structured data; the layout decides where
// each piece is emitted.
//
// Features
// --------
//   - SetTitle     – single <title> (last call wins), suffixed with the site.
//   - Description  – <meta name="description"> plus its og: twin.
//   - Canonical    – <link rel="canonical">.
//   - Article      – NewsArticle JSON-LD for public news pages.
//   - Noindex      – keeps back-office pages out of search engines.
package head

import (
	"encoding/json"
	"html/template"
	"strings"
	"time"
)

// Builder is used by one goroutine per request.
type Builder struct {
	site  string
	title string

	metas  []string
	links  []string
	jsonLD []string
	seen   map[string]struct{}
}

// New returns a Builder for a page of site.
func New(site string) *Builder {
	return &Builder{site: site, seen: make(map[string]struct{})}
}

// ------------------------------------------------------------------
// Single-value helpers
// ------------------------------------------------------------------

// SetTitle overrides the page title.
func (b *Builder) SetTitle(t string) { b.title = t }

// Title returns a fully formed <title> tag.  An empty page title shows the
// site name alone.
func (b *Builder) Title() template.HTML {
	t := b.site
	if b.title != "" && b.site != "" {
		t = b.title + " | " + b.site
	} else if b.title != "" {
		t = b.title
	}
	return template.HTML("<title>" + template.HTMLEscapeString(t) + "</title>")
}

// PlainTitle is the page title without markup.
func (b *Builder) PlainTitle() string { return b.title }

// ------------------------------------------------------------------
// Tag helpers with deduplication
// ------------------------------------------------------------------

// Description sets the meta and Open Graph descriptions.
func (b *Builder) Description(d string) {
	if d == "" {
		return
	}
	esc := template.HTMLEscapeString(d)
	b.add("meta:description", &b.metas, `<meta name="description" content="`+esc+`">`)
	b.add("meta:og:description", &b.metas, `<meta property="og:description" content="`+esc+`">`)
}

// Canonical sets the canonical URL.
func (b *Builder) Canonical(u string) {
	if u == "" {
		return
	}
	b.add("link:canonical", &b.links, `<link rel="canonical" href="`+template.HTMLEscapeString(u)+`">`)
}

// Noindex asks crawlers to skip the page.
func (b *Builder) Noindex() {
	b.add("meta:robots", &b.metas, `<meta name="robots" content="noindex, nofollow">`)
}

// Article describes a news item for structured data.
type Article struct {
	Headline    string
	Description string
	Image       string
	URL         string
	Published   time.Time
	Modified    time.Time
}

// Article adds NewsArticle JSON-LD.
func (b *Builder) Article(a Article) {
	doc := map[string]any{
		"@context": "https://schema.org",
		"@type":    "NewsArticle",
		"headline": a.Headline,
		"publisher": map[string]any{
			"@type": "EducationalOrganization",
			"name":  b.site,
		},
	}
	if a.Description != "" {
		doc["description"] = a.Description
	}
	if a.Image != "" {
		doc["image"] = []string{a.Image}
	}
	if a.URL != "" {
		doc["mainEntityOfPage"] = a.URL
	}
	if !a.Published.IsZero() {
		doc["datePublished"] = a.Published.Format(time.RFC3339)
	}
	if !a.Modified.IsZero() {
		doc["dateModified"] = a.Modified.Format(time.RFC3339)
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return
	}
	b.add("jsonld:article", &b.jsonLD, string(js))
}

func (b *Builder) add(key string, tgt *[]string, tag string) {
	if _, dup := b.seen[key]; dup {
		return
	}
	b.seen[key] = struct{}{}
	*tgt = append(*tgt, tag)
}

// ------------------------------------------------------------------
// Rendering helpers called from layouts
// ------------------------------------------------------------------

func (b *Builder) Metas() template.HTML { return concat(b.metas) }
func (b *Builder) Links() template.HTML { return concat(b.links) }

// JSON returns all JSON-LD blocks wrapped in <script> tags.  json.Marshal
// escapes <, >, and & so a headline cannot close the script element.
func (b *Builder) JSON() template.HTML {
	if len(b.jsonLD) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, js := range b.jsonLD {
		sb.WriteString(`<script type="application/ld+json">`)
		sb.WriteString(js)
		sb.WriteString(`</script>`)
	}
	return template.HTML(sb.String())
}

// concat joins pre-escaped tags without a separator.
func concat(sl []string) template.HTML {
	return template.HTML(strings.Join(sl, ""))
}
