package listview

import (
	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
)

// Back-office lists.  Limit 0 means the handler's configured cap applies.
var (
	Inscriptions = Spec{
		Name: "inscricoes",
		Filters: []Filter{
			{Param: "nivel", Column: "nivel_ensino", Convert: OneOf(school.Levels...)},
			{Param: "status", Column: "status", Convert: OneOf(
				string(school.StatusPending), string(school.StatusApproved), string(school.StatusRejected))},
		},
		SearchParam:  "q",
		SearchColumn: "nome_aluno",
		OrderBy:      "created_at",
		Desc:         true,
	}

	News = Spec{
		Name: "noticias",
		Filters: []Filter{
			{Param: "categoria", Column: "categoria", Convert: OneOf(school.NewsCategories...)},
			{Param: "publicado", Column: "is_published", Convert: Bool},
		},
		SearchParam:  "q",
		SearchColumn: "titulo",
		OrderBy:      "created_at",
		Desc:         true,
	}

	Messages = Spec{
		Name: "mensagens",
		Filters: []Filter{
			{Param: "lida", Column: "is_read", Convert: Bool},
		},
		SearchParam:  "q",
		SearchColumn: "nome",
		OrderBy:      "created_at",
		Desc:         true,
	}
)

// WithLimit returns a copy of s capped at n rows.
func (s Spec) WithLimit(n int) Spec {
	s.Limit = n
	return s
}
