package vm

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/glyphlang/glyph/internal/ast"
	"github.com/glyphlang/glyph/internal/config"
	"github.com/glyphlang/glyph/internal/object"
)

func TestStorePersistQueryRoundTrip(t *testing.T) {
	store, err := OpenStore("")
	if err != nil {
		t.Fatalf("open store: %s", err)
	}
	defer store.Close()

	values := []object.Value{
		object.NumberVal(1.5),
		object.StringVal("two"),
		object.ArrayVal([]object.Value{object.BoolVal(true), object.NullVal()}),
		object.MapVal(map[string]object.Value{"k": object.NumberVal(3)}),
	}
	for _, v := range values {
		if err := store.Persist(v); err != nil {
			t.Fatalf("persist %s: %s", v.Inspect(), err)
		}
	}

	got, err := store.Query()
	if err != nil {
		t.Fatalf("query: %s", err)
	}
	if len(got) != len(values) {
		t.Fatalf("query returned %d values, want %d", len(got), len(values))
	}
	for i, want := range values {
		if !got[i].Equals(want) {
			t.Errorf("value %d = %s, want %s", i, got[i].Inspect(), want.Inspect())
		}
	}
}

func TestStoreFileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glyph.db")

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("open store: %s", err)
	}
	if err := store.Persist(object.StringVal("kept")); err != nil {
		t.Fatalf("persist: %s", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %s", err)
	}

	reopened, err := OpenStore(path)
	if err != nil {
		t.Fatalf("reopen store: %s", err)
	}
	defer reopened.Close()
	got, err := reopened.Query()
	if err != nil {
		t.Fatalf("query: %s", err)
	}
	if len(got) != 1 || got[0].Str != "kept" {
		t.Errorf("reopened store returned %v", got)
	}
}

func TestExecutePersistAndQuery(t *testing.T) {
	machine := New(config.DefaultOptions())
	machine.SetOutput(&bytes.Buffer{})
	defer machine.Close()

	prog := compile(t,
		&ast.Op{Kind: ast.OpPersist, Args: []ast.Node{num(1)}},
		&ast.Op{Kind: ast.OpPersist, Args: []ast.Node{str("two")}},
		&ast.Op{Kind: ast.OpQuery},
	)
	result, err := machine.Execute(prog)
	if err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	if result.Type != object.TypeArray || len(result.Elems) != 2 {
		t.Fatalf("query result = %s, want a two-element array", result.Inspect())
	}
	testNumber(t, result.Elems[0], 1)
	testString(t, result.Elems[1], "two")
}
