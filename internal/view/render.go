// internal/view/render.go
//
// Central view engine: template lookup, override chain, func-map injection,
// and an LRU of parsed *template.Template* sets.
//
// Public helpers
// --------------
//   - Render         – buffer a full page, then write status + HTML.
//   - RenderFragment – execute one {{ define }} block (live-search rows).
//   - Static         – serve /static/ from the same override chain.
//
// Lookup precedence (first hit wins):
//   1. <theme_dir>/<file>               (operator override, optional)
//   2. embedded templates/<file>       (compiled into the binary)
//
// A page name such as "admin/inscricoes" selects the set
// layouts/admin.html + partials/*.html + pages/admin/inscricoes.html.  The
// layout file defines "layout"; each page defines "content" plus any
// fragments it exposes.
//
// Notes
// -----
// • A page is executed into a buffer first, so a template error yields a
//   clean 500 instead of half a page.
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/cache"
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/session"
)

//go:embed templates static
var embedded embed.FS

// Parsed template sets; one entry per page name.
const cacheSize = 64

// Options configures an Engine.
type Options struct {
	Site     string           // site name for titles and the footer
	BaseURL  string           // canonical origin, e.g. https://colegio-ef.ao
	ThemeDir string           // optional override directory
	Reload   bool             // re-parse on every render (development)
	Sessions *session.Manager // flash source; nil disables flashes
}

// Engine renders pages.  Safe for concurrent use.
type Engine struct {
	opts  Options
	files fs.FS
	sets  *cache.LRU[*template.Template]
	funcs template.FuncMap
}

// New builds an Engine and parses every page once so a broken template
// fails at startup.
func New(opts Options) (*Engine, error) {
	e := &Engine{
		opts:  opts,
		files: overlay{upper: themeFS(opts.ThemeDir), lower: embedded},
		sets:  cache.New[*template.Template](cacheSize),
	}
	e.funcs = e.funcMap()

	pages, err := collectHTML(embedded, "templates/pages")
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		name := strings.TrimSuffix(strings.TrimPrefix(p, "templates/pages/"), ".html")
		if _, err := e.load(name); err != nil {
			return nil, err
		}
	}
	return e, nil
}

//
// public helpers
//

// Render executes page inside its layout and writes it with status.
func (e *Engine) Render(w http.ResponseWriter, status int, page string, p *Page) error {
	return e.execute(w, status, page, "layout", p)
}

// RenderFragment executes one named block of page.  Used by the live-search
// endpoints, which return table rows only.
func (e *Engine) RenderFragment(w http.ResponseWriter, status int, page, block string, p *Page) error {
	return e.execute(w, status, page, block, p)
}

// BaseURL is the configured public origin without a trailing slash.
func (e *Engine) BaseURL() string { return strings.TrimRight(e.opts.BaseURL, "/") }

// Static serves embedded CSS and images, honouring theme overrides.
func (e *Engine) Static() http.Handler {
	sub, _ := fs.Sub(e.files, "static")
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func (e *Engine) execute(w http.ResponseWriter, status int, page, block string, p *Page) error {
	t, err := e.load(page)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, p); err != nil {
		zap.S().Errorw("template execute failed", "page", page, "block", block, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

//
// internal: load
//

// load returns the parsed set for page, from cache unless Reload is set.
func (e *Engine) load(page string) (*template.Template, error) {
	if !e.opts.Reload {
		if t, ok := e.sets.Get(page); ok {
			return t, nil
		}
	}

	layout, _, ok := strings.Cut(page, "/")
	if !ok {
		return nil, fmt.Errorf("view: page %q has no layout prefix", page)
	}
	partials, err := collectHTML(embedded, "templates/partials")
	if err != nil {
		return nil, err
	}
	files := append([]string{"templates/layouts/" + layout + ".html"}, partials...)
	files = append(files, "templates/pages/"+page+".html")

	t := template.New(page).Funcs(e.funcs)
	for _, f := range files {
		src, err := fs.ReadFile(e.files, f)
		if err != nil {
			return nil, fmt.Errorf("view: %s: %w", f, err)
		}
		if _, err := t.New(f).Parse(string(src)); err != nil {
			return nil, fmt.Errorf("view: parse %s: %w", f, err)
		}
	}

	if !e.opts.Reload {
		e.sets.Add(page, t)
	}
	return t, nil
}

//
// override chain
//

// overlay reads from upper first and falls back to lower.  Only files are
// overridden; directory listings always come from the embedded tree.
type overlay struct {
	upper fs.FS
	lower fs.FS
}

func (o overlay) Open(name string) (fs.File, error) {
	if o.upper != nil {
		if f, err := o.upper.Open(name); err == nil {
			if st, err := f.Stat(); err == nil && !st.IsDir() {
				return f, nil
			}
			f.Close()
		}
	}
	return o.lower.Open(name)
}

// themeFS maps the theme dir so that "templates/x" and "static/x" resolve
// inside it.  A missing directory disables overrides.
func themeFS(dir string) fs.FS {
	if dir == "" {
		return nil
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		zap.S().Warnw("theme dir ignored", "dir", dir)
		return nil
	}
	return os.DirFS(dir)
}

// collectHTML walks root recursively and returns every *.html path in
// slash form, sorted by the walk order.
func collectHTML(fsys fs.FS, root string) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(path.Ext(d.Name()), ".html") {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}
