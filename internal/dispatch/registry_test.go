package dispatch

import "testing"

func TestRegistryLookupMissing(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Lookup("nope"); ok {
		t.Fatalf("expected miss on empty registry")
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("add", func(args []any) (any, error) {
		return args[0].(int) + args[1].(int), nil
	})
	fn, ok := r.Lookup("add")
	if !ok {
		t.Fatalf("expected hit after Register")
	}
	v, err := fn([]any{2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5 {
		t.Fatalf("got %v, want 5", v)
	}
}

func TestRegistryRegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Register("id", func(args []any) (any, error) { return 1, nil })
	r.Register("id", func(args []any) (any, error) { return 2, nil })
	fn, _ := r.Lookup("id")
	v, _ := fn(nil)
	if v != 2 {
		t.Fatalf("got %v, want 2 after overwrite", v)
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register("x", func(args []any) (any, error) { return nil, nil })
	r.Unregister("x")
	if _, ok := r.Lookup("x"); ok {
		t.Fatalf("expected miss after Unregister")
	}
	r.Unregister("x") // idempotent
}
