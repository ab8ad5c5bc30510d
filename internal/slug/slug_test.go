package slug

import (
	"strings"
	"testing"
)

func TestMake(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Inscrições abertas para 2025!", "inscricoes-abertas-para-2025"},
		{"  Dia do Estudante — Luanda ", "dia-do-estudante-luanda"},
		{"Ação & Participação", "acao-participacao"},
		{"???", "noticia"},
		{"", "noticia"},
	}
	for _, c := range cases {
		if got := Make(c.in); got != c.want {
			t.Errorf("Make(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMakeTruncates(t *testing.T) {
	got := Make(strings.Repeat("ab ", 60))
	if len(got) > 100 || strings.HasSuffix(got, "-") {
		t.Fatalf("len=%d slug=%q", len(got), got)
	}
}

func TestPath(t *testing.T) {
	cases := []struct{ parent, slug, want string }{
		{"", "", "/"},
		{"/noticias/", "", "/noticias"},
		{"", "/festa/", "/festa"},
		{"noticias/42", "festa", "/noticias/42/festa"},
	}
	for _, c := range cases {
		if got := Path(c.parent, c.slug); got != c.want {
			t.Errorf("Path(%q,%q) = %q, want %q", c.parent, c.slug, got, c.want)
		}
	}
}
