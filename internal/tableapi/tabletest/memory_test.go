package tabletest

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
)

type state string

type item struct {
	ID        string       `db:"id"`
	Name      string       `db:"name"`
	State     state        `db:"state"`
	Done      bool         `db:"done"`
	At        sql.NullTime `db:"at"`
	CreatedAt time.Time    `db:"created_at"`
}

func TestMemoryQueryAndPatch(t *testing.T) {
	m := NewMemory[item]()
	ids := m.Seed(
		tableapi.Values{"name": "Ana Silva", "state": "pendente"},
		tableapi.Values{"name": "Bruno", "state": "aprovado", "done": true},
		tableapi.Values{"name": "Ana Paula", "state": "pendente"},
	)
	ctx := context.Background()

	got, err := m.List(ctx, tableapi.Query{
		Eq:      []tableapi.Eq{{Column: "state", Value: state("pendente")}},
		Text:    &tableapi.TextMatch{Column: "name", Term: "ana"},
		OrderBy: "created_at",
		Desc:    true,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Ana Paula" {
		t.Fatalf("List = %+v", got)
	}

	now := time.Now()
	if err := m.Update(ctx, ids[0], tableapi.Values{"state": "aprovado", "at": now}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	row, _ := m.GetByID(ctx, ids[0])
	if row.State != "aprovado" || !row.At.Valid {
		t.Fatalf("row = %+v", row)
	}

	n, _ := m.Count(ctx, tableapi.Query{Eq: []tableapi.Eq{{Column: "done", Value: true}}})
	if n != 1 {
		t.Fatalf("Count(done) = %d", n)
	}
	if m.CallCount("update") != 1 {
		t.Fatalf("Calls = %v", m.Calls)
	}
}

func TestMemoryErrors(t *testing.T) {
	m := NewMemory[item]()
	ctx := context.Background()

	if _, err := m.GetByID(ctx, "nope"); !errors.Is(err, tableapi.ErrNotFound) {
		t.Errorf("GetByID err = %v", err)
	}
	if _, err := m.Insert(ctx, tableapi.Values{"bogus": 1}); !errors.Is(err, tableapi.ErrUnknownColumn) {
		t.Errorf("Insert err = %v", err)
	}

	boom := errors.New("down")
	m.FailOn = map[string]error{"list": boom}
	if _, err := m.List(ctx, tableapi.Query{}); !errors.Is(err, boom) {
		t.Errorf("List err = %v", err)
	}
}
