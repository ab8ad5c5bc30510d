package listview

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/tableapi"
)

func TestQueryAppliesOnlyNonEmptyFilters(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
		eq     []tableapi.Eq
		text   string
	}{
		{"none", url.Values{}, nil, ""},
		{"blank values", url.Values{"nivel": {""}, "status": {"  "}, "q": {""}}, nil, ""},
		{"level only", url.Values{"nivel": {"Primário"}},
			[]tableapi.Eq{{Column: "nivel_ensino", Value: "Primário"}}, ""},
		{"status and search", url.Values{"status": {"pendente"}, "q": {" ana "}},
			[]tableapi.Eq{{Column: "status", Value: "pendente"}}, "ana"},
		{"all", url.Values{"nivel": {"I Ciclo"}, "status": {"aprovado"}, "q": {"x"}},
			[]tableapi.Eq{{Column: "nivel_ensino", Value: "I Ciclo"}, {Column: "status", Value: "aprovado"}}, "x"},
		{"unknown status ignored", url.Values{"status": {"arquivado"}}, nil, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.params.Encode()
			q := Inscriptions.Query(tc.params)

			if tc.params.Encode() != before {
				t.Fatal("Query mutated its input")
			}
			if len(q.Eq) != len(tc.eq) {
				t.Fatalf("Eq = %+v, want %+v", q.Eq, tc.eq)
			}
			for i := range tc.eq {
				if q.Eq[i] != tc.eq[i] {
					t.Fatalf("Eq[%d] = %+v, want %+v", i, q.Eq[i], tc.eq[i])
				}
			}
			switch {
			case tc.text == "" && q.Text != nil:
				t.Fatalf("unexpected text filter %+v", q.Text)
			case tc.text != "" && (q.Text == nil || q.Text.Term != tc.text || q.Text.Column != "nome_aluno"):
				t.Fatalf("Text = %+v", q.Text)
			}
			if q.OrderBy != "created_at" || !q.Desc {
				t.Fatalf("order = %s desc=%v", q.OrderBy, q.Desc)
			}
		})
	}
}

func TestNewsPublishedFilterConvertsBool(t *testing.T) {
	q := News.Query(url.Values{"publicado": {"false"}})
	if len(q.Eq) != 1 || q.Eq[0].Value != false || q.Eq[0].Column != "is_published" {
		t.Fatalf("Eq = %+v", q.Eq)
	}
	if News.Active(url.Values{"publicado": {"talvez"}}) {
		t.Fatal("invalid bool should be skipped")
	}
}

func TestCoalescerBurstRunsOnce(t *testing.T) {
	const delay = 150 * time.Millisecond
	c := NewCoalescer[string](delay)

	var (
		runs    atomic.Int32
		firedAt atomic.Int64
		wg      sync.WaitGroup
		results = make([]error, 5)
		last    time.Time
	)
	for i := 0; i < 5; i++ {
		if i == 4 {
			last = time.Now()
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = c.Do(context.Background(), "u1:inscricoes", func(context.Context) (string, error) {
				runs.Add(1)
				firedAt.Store(time.Now().UnixNano())
				return "ok", nil
			})
		}(i)
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}
	for i := 0; i < 4; i++ {
		if !errors.Is(results[i], ErrSuperseded) {
			t.Errorf("call %d: err = %v, want ErrSuperseded", i, results[i])
		}
	}
	if results[4] != nil {
		t.Errorf("last call: %v", results[4])
	}
	if waited := time.Unix(0, firedAt.Load()).Sub(last); waited < delay {
		t.Errorf("fired %v after last call, want ≥ %v", waited, delay)
	}
}

func TestCoalescerDiscardsStaleInFlightResult(t *testing.T) {
	c := NewCoalescer[int](20 * time.Millisecond)
	started := make(chan struct{})
	release := make(chan struct{})

	var (
		firstErr   error
		firstCtxOK atomic.Bool
		wg         sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = c.Do(context.Background(), "k", func(ctx context.Context) (int, error) {
			close(started)
			<-release
			firstCtxOK.Store(ctx.Err() == nil)
			return 1, nil // ignores cancellation, like a slow driver
		})
	}()

	<-started
	done := make(chan struct{})
	var second int
	var secondErr error
	go func() {
		second, secondErr = c.Do(context.Background(), "k", func(context.Context) (int, error) { return 2, nil })
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	close(release)
	wg.Wait()
	<-done

	if !errors.Is(firstErr, ErrSuperseded) {
		t.Fatalf("stale result delivered: err = %v", firstErr)
	}
	if firstCtxOK.Load() {
		t.Fatal("in-flight context was not cancelled")
	}
	if secondErr != nil || second != 2 {
		t.Fatalf("second = %d, %v", second, secondErr)
	}
}

func TestCoalescerKeysAreIndependent(t *testing.T) {
	c := NewCoalescer[int](10 * time.Millisecond)
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, key := range []string{"u1:noticias", "u2:noticias"} {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			_, errs[i] = c.Do(context.Background(), key, func(context.Context) (int, error) { return i, nil })
		}(i, key)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Errorf("key %d: %v", i, err)
		}
	}
}

func TestCoalescerCallerCancel(t *testing.T) {
	c := NewCoalescer[int](time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Do(ctx, "k", func(context.Context) (int, error) { return 0, nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
