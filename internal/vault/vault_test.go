package vault

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingKV struct {
	data  map[string]any
	calls int
}

func (k *countingKV) Get(_ context.Context, mount, path string) (map[string]any, error) {
	k.calls++
	if mount != "secret" || path != "colegio" {
		return nil, errors.New("no such secret")
	}
	return k.data, nil
}

func TestGetKVCaches(t *testing.T) {
	kv := &countingKV{data: map[string]any{"db_password": "pw"}}
	c := NewWithKV(kv, nil)

	for i := 0; i < 3; i++ {
		got, err := c.GetKV(context.Background(), "secret/colegio", "db_password", time.Minute)
		if err != nil {
			t.Fatalf("GetKV: %v", err)
		}
		if got != "pw" {
			t.Fatalf("got %q", got)
		}
	}
	if kv.calls != 1 {
		t.Errorf("backend calls = %d, want 1", kv.calls)
	}
}

func TestGetKVErrors(t *testing.T) {
	kv := &countingKV{data: map[string]any{"n": 42}}
	c := NewWithKV(kv, nil)
	ctx := context.Background()

	if _, err := c.GetKV(ctx, "", "k", 0); !errors.Is(err, ErrEmptyRef) {
		t.Errorf("empty path: err = %v", err)
	}
	if _, err := c.GetKV(ctx, "secret/colegio", "missing", 0); err == nil {
		t.Error("missing key: expected error")
	}
	if _, err := c.GetKV(ctx, "secret/colegio", "n", 0); err == nil {
		t.Error("non-string value: expected error")
	}
	if _, err := c.GetKV(ctx, "other/path", "k", 0); err == nil {
		t.Error("unknown secret: expected error")
	}
}

func TestSplitMount(t *testing.T) {
	m, r := splitMount("secret/colegio/db")
	if m != "secret" || r != "colegio/db" {
		t.Fatalf("splitMount = %q, %q", m, r)
	}
}
