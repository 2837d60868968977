package stable

import (
	"errors"
	"slices"
	"testing"

	"github.com/goliatone/go-stable/pkg/activity"
)

type row struct {
	ID    string
	Items []int
}

func TestFactoryKeyedIsolation(t *testing.T) {
	produced := map[string]Record{
		"a": {"items": map[string]any{"n": 1}},
		"b": {"items": map[string]any{"n": 1}},
	}
	factory, err := NewFactory(func(key string) Record { return produced[key] }, Config{Compare: Shallow})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}

	viewA, err := factory.Resolve("a")
	if err != nil {
		t.Fatalf("resolve a: %v", err)
	}
	viewB, _ := factory.Resolve("b")
	if viewA == viewB {
		t.Fatalf("expected distinct views per key")
	}
	heldB := viewB.Get("items")

	produced["a"] = Record{"items": map[string]any{"n": 2}}
	produced["b"] = Record{"items": map[string]any{"n": 1}}
	again, _ := factory.Resolve("a")
	if again != viewA {
		t.Fatalf("expected the same view for a repeated key")
	}
	if again.Get("items").(map[string]any)["n"] != 2 {
		t.Fatalf("expected view a to observe its new record")
	}
	if !sameRef(viewB.Get("items"), heldB) {
		t.Fatalf("expected view b to keep its cached reference")
	}
	if factory.Len() != 2 {
		t.Fatalf("expected two views, got %d", factory.Len())
	}
}

func TestFactorySelectorAndMerge(t *testing.T) {
	factory, err := NewFactoryBy(
		func(r row) Record { return Record{"items": r.Items} },
		func(r row) string { return r.ID },
		Config{Compare: Deep},
		WithMerge(),
	)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	first := []int{1, 2}
	view, _ := factory.Resolve(row{ID: "r1", Items: first})
	view.Get("items")
	if err := view.Merge(Record{"extra": true}, Config{}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	again, _ := factory.Resolve(row{ID: "r1", Items: []int{1, 2}})
	if again != view {
		t.Fatalf("expected selector to map rows with the same ID to one view")
	}
	if !sameRef(again.Get("items"), first) {
		t.Fatalf("expected deep-equal items to keep the cached slice")
	}
	if again.Live("extra") != true {
		t.Fatalf("expected merge to keep keys missing from the produced record")
	}
	if _, ok := factory.Peek("r1"); !ok {
		t.Fatalf("expected Peek to find r1")
	}
}

func TestFactoryRejectsUnhashableKeys(t *testing.T) {
	factory, err := NewFactory(func(any) Record { return Record{} }, Config{})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if _, err := factory.Resolve([]int{1}); !errors.Is(err, ErrUnhashableKey) {
		t.Fatalf("expected ErrUnhashableKey, got %v", err)
	}
	if _, err := factory.Resolve(struct{ V any }{V: map[string]int{}}); !errors.Is(err, ErrUnhashableKey) {
		t.Fatalf("expected ErrUnhashableKey for nested map, got %v", err)
	}
	if _, err := factory.Resolve(nil); err != nil {
		t.Fatalf("expected nil key to be accepted, got %v", err)
	}
	if factory.Len() != 1 {
		t.Fatalf("expected only the nil key to be registered, got %d", factory.Len())
	}
}

func TestFactoryCapacityEvictsLeastRecent(t *testing.T) {
	var evicted []any
	capture := &activity.CaptureHook{}
	factory, err := NewFactory(
		func(n int) Record { return Record{"n": n} },
		Config{},
		WithCapacity(2),
		WithEvictHook(func(key any, _ *View) { evicted = append(evicted, key) }),
		WithViewOptions(WithActivityHooks(capture)),
	)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}

	one, _ := factory.Resolve(1)
	factory.Resolve(2)
	factory.Resolve(1)
	factory.Resolve(3)

	if len(evicted) != 1 || evicted[0] != 2 {
		t.Fatalf("expected key 2 to be evicted, got %v", evicted)
	}
	keys := factory.Keys()
	slices.Sort(keys)
	if !slices.Equal(keys, []int{1, 3}) {
		t.Fatalf("unexpected keys %v", keys)
	}
	if again, _ := factory.Resolve(1); again != one {
		t.Fatalf("expected key 1 to keep its view")
	}

	verbs := capture.Verbs()
	if !slices.Contains(verbs, activity.VerbViewEvicted) {
		t.Fatalf("expected an evicted activity event, got %v", verbs)
	}
}

func TestFactoryManualEviction(t *testing.T) {
	var evicted int
	factory, err := NewFactory(
		func(s string) Record { return Record{"s": s} },
		Config{},
		WithEvictHook(func(any, *View) { evicted++ }),
	)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	first, _ := factory.Resolve("x")
	factory.Resolve("y")

	if !factory.Evict("x") || factory.Evict("x") {
		t.Fatalf("expected Evict to report removal once")
	}
	if fresh, _ := factory.Resolve("x"); fresh == first {
		t.Fatalf("expected a fresh view after eviction")
	}
	factory.Purge()
	if factory.Len() != 0 || evicted != 3 {
		t.Fatalf("expected purge to evict everything, len=%d evicted=%d", factory.Len(), evicted)
	}
}

func TestFactoryConstructorValidation(t *testing.T) {
	if _, err := NewFactory[string](nil, Config{}); err == nil {
		t.Fatalf("expected error for nil producer")
	}
	if _, err := NewFactoryBy[string, row](func(row) Record { return nil }, nil, Config{}); err == nil {
		t.Fatalf("expected error for nil selector")
	}
	if _, err := NewFactory(func(string) Record { return nil }, Config{}, WithCapacity(-1)); err != nil {
		t.Fatalf("expected negative capacity to mean unbounded, got %v", err)
	}
}

func TestFactoryResolveErrorKeepsView(t *testing.T) {
	factory, err := NewFactory(func(string) Record { return Record{"a": 1} }, Config{Compare: Expr("")})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if _, err := factory.Resolve("k"); err == nil {
		t.Fatalf("expected policy error from Resolve")
	}
	if _, ok := factory.Peek("k"); !ok {
		t.Fatalf("expected the view to stay registered")
	}
}
