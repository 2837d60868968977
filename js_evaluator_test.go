//go:build js_eval

package stable

import "testing"

func TestJSRule(t *testing.T) {
	v := New()
	cfg := Config{Props: Rules{"items": JS(`prev.length === next.length && deep(prev[0], next[0])`)}}
	first := []any{map[string]any{"id": 1}}
	mustUpdate(t, v, Record{"items": first}, cfg)
	v.Get("items")
	mustUpdate(t, v, Record{"items": []any{map[string]any{"id": 1}}}, cfg)
	if !sameRef(v.Get("items"), first) {
		t.Fatalf("expected js rule to keep the cached slice")
	}
	fresh := []any{map[string]any{"id": 2}}
	mustUpdate(t, v, Record{"items": fresh}, cfg)
	if !sameRef(v.Get("items"), fresh) {
		t.Fatalf("expected js rule to accept the changed slice")
	}
}
