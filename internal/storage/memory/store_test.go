package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"invoicer/internal/storage"
)

func TestStore_PutGetVersions(t *testing.T) {
	ctx := context.Background()
	s := New()

	b, err := s.Get(ctx, "invoices")
	if err != nil || b.Version != 0 || len(b.Data) != 0 {
		t.Fatalf("missing key: %+v, %v", b, err)
	}

	v, err := s.Put(ctx, "invoices", []byte(`[]`), 0)
	if err != nil || v != 1 {
		t.Fatalf("first put: v=%d err=%v", v, err)
	}

	if _, err := s.Put(ctx, "invoices", []byte(`[1]`), 0); !errors.Is(err, storage.ErrVersionConflict) {
		t.Fatalf("stale put: err=%v, want ErrVersionConflict", err)
	}

	v, err = s.Put(ctx, "invoices", []byte(`[2]`), 1)
	if err != nil || v != 2 {
		t.Fatalf("second put: v=%d err=%v", v, err)
	}

	b, _ = s.Get(ctx, "invoices")
	if string(b.Data) != `[2]` || b.Version != 2 {
		t.Errorf("got %s@%d", b.Data, b.Version)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Put(ctx, "k", []byte("abc"), 0)

	b, _ := s.Get(ctx, "k")
	b.Data[0] = 'z'

	b2, _ := s.Get(ctx, "k")
	if string(b2.Data) != "abc" {
		t.Errorf("stored data mutated: %s", b2.Data)
	}
}

func TestNewFromDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"invoices.json": `[{"id":"1"}]`,
		"clients.json":  `[]`,
		"broken.json":   `{not json`,
		"notes.txt":     `ignored`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s, err := NewFromDir(dir, nil)
	if err != nil {
		t.Fatalf("NewFromDir: %v", err)
	}

	keys := s.Keys()
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "clients" || keys[1] != "invoices" {
		t.Errorf("keys = %v", keys)
	}

	b, _ := s.Get(context.Background(), "invoices")
	if b.Version != 1 || string(b.Data) != `[{"id":"1"}]` {
		t.Errorf("invoices = %s@%d", b.Data, b.Version)
	}
}
