package layering

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestComposeFromFixture(t *testing.T) {
	fx := loadLayeringFixture(t, "layering_compose.json")

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			got := Compose(tc.Layers...)
			if !reflect.DeepEqual(tc.Expect, got) {
				t.Errorf("composed record mismatch:\nwant: %#v\n got: %#v", tc.Expect, got)
			}
		})
	}
}

func TestComposeZeroInput(t *testing.T) {
	got := Compose[map[string]any]()
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty record, got %#v", got)
	}
}

func TestUnionKeepsBaseAndReferences(t *testing.T) {
	nested := map[string]any{"deep": true}
	base := map[string]any{"a": 1, "nested": nested}
	partial := map[string]any{"a": 2, "b": 3}

	got := Union(base, partial)
	if got["a"] != 2 || got["b"] != 3 {
		t.Fatalf("expected partial values to win, got %#v", got)
	}
	kept, ok := got["nested"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested value carried over, got %#v", got["nested"])
	}
	kept["deep"] = false
	if nested["deep"] != false {
		t.Fatalf("expected nested value to be carried by reference")
	}
	if base["a"] != 1 {
		t.Fatalf("expected base to be untouched, got %#v", base)
	}
}

func TestCloneDetachesTopLevel(t *testing.T) {
	src := map[string]any{"a": 1}
	clone := Clone(src)
	clone["a"] = 2
	clone["b"] = 3
	if src["a"] != 1 || len(src) != 1 {
		t.Fatalf("expected source untouched, got %#v", src)
	}
	if Clone[map[string]any](nil) == nil {
		t.Fatalf("expected nil record to clone to an empty map")
	}
}

func TestSameKeysAndSortedKeys(t *testing.T) {
	a := map[string]any{"x": 1, "y": 2}
	b := map[string]any{"y": "other", "x": nil}
	if !SameKeys(a, b) {
		t.Fatalf("expected equal key sets")
	}
	b["z"] = 0
	if SameKeys(a, b) {
		t.Fatalf("expected key sets to differ")
	}
	if got := SortedKeys(b); !reflect.DeepEqual(got, []string{"x", "y", "z"}) {
		t.Fatalf("unexpected sorted keys %v", got)
	}
}

type layeringFixture struct {
	Description string                `json:"description"`
	Cases       []layeringFixtureCase `json:"cases"`
}

type layeringFixtureCase struct {
	Name   string           `json:"name"`
	Layers []map[string]any `json:"layers"`
	Expect map[string]any   `json:"expect"`
}

func loadLayeringFixture(t *testing.T, name string) layeringFixture {
	t.Helper()
	path := filepath.Join("testdata", name)
	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read layering fixture %q: %v", name, err)
	}
	var fx layeringFixture
	if err := json.Unmarshal(payload, &fx); err != nil {
		t.Fatalf("failed to unmarshal layering fixture %q: %v", name, err)
	}
	return fx
}
