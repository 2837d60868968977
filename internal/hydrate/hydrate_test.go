package hydrate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDecoderFromFixtures(t *testing.T) {
	fx := loadFixture(t, "hydrate_records.json")

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			decoder := NewDecoder(buildOptions(tc)...)

			payload := []byte(tc.Raw)
			if tc.Raw == "" {
				payload = tc.Payload
			}
			result, err := decoder.Decode(Source{Name: tc.Name}, payload)

			if tc.ExpectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.ExpectErr)
				}
				if !strings.Contains(err.Error(), tc.ExpectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.ExpectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.Expect, result) {
				t.Fatalf("decoded record mismatch:\nwant: %#v\n got: %#v", tc.Expect, result)
			}
		})
	}
}

func TestDecoderUseNumber(t *testing.T) {
	record, err := NewDecoder(WithUseNumber()).Decode(Source{}, []byte(`{"count": 3}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := record["count"].(json.Number); !ok {
		t.Fatalf("expected json.Number, got %T", record["count"])
	}
}

func TestDecoderRejectsEmptyAndNull(t *testing.T) {
	decoder := NewDecoder()
	if _, err := decoder.Decode(Source{Name: "empty"}, nil); err == nil {
		t.Fatalf("expected error for empty payload")
	}
	if _, err := decoder.Decode(Source{Name: "null"}, []byte("null")); err == nil || !strings.Contains(err.Error(), "not an object") {
		t.Fatalf("expected not-an-object error, got %v", err)
	}
}

type buttonProps struct {
	Label    string
	OnClick  func() `stable:"onClick"`
	Internal string `stable:"-"`
	Hint     string `stable:"hint,omitempty"`
	hidden   bool
}

func TestFromStruct(t *testing.T) {
	click := func() {}
	record, err := FromStruct(&buttonProps{Label: "Save", OnClick: click, Internal: "x", hidden: true})
	if err != nil {
		t.Fatalf("from struct: %v", err)
	}
	if record["Label"] != "Save" {
		t.Fatalf("expected Label carried, got %#v", record)
	}
	fn, ok := record["onClick"].(func())
	if !ok || reflect.ValueOf(fn).Pointer() != reflect.ValueOf(click).Pointer() {
		t.Fatalf("expected onClick to carry the same func, got %#v", record["onClick"])
	}
	for _, absent := range []string{"Internal", "hint", "hidden", "OnClick"} {
		if _, ok := record[absent]; ok {
			t.Fatalf("expected %q to be skipped, got %#v", absent, record)
		}
	}

	if _, err := FromStruct(42); err == nil {
		t.Fatalf("expected error for non-struct")
	}
	var nilProps *buttonProps
	if _, err := FromStruct(nilProps); err == nil {
		t.Fatalf("expected error for nil pointer")
	}
}

func buildOptions(tc fixtureCase) []DecoderOption {
	var options []DecoderOption
	for _, hookName := range tc.PreHooks {
		switch hookName {
		case "split_range":
			options = append(options, WithPreHook(splitRangePreHook))
		}
	}
	if len(tc.Required) > 0 {
		options = append(options, WithRequiredKeys(tc.Required...))
	}
	return options
}

func splitRangePreHook(_ Source, record map[string]any) (map[string]any, error) {
	value, ok := record["range"].(string)
	if !ok || value == "" {
		return record, nil
	}
	start, end, found := strings.Cut(value, "-")
	if !found {
		return nil, fmt.Errorf("invalid range %q", value)
	}
	record["range"] = map[string]any{
		"start": strings.TrimSpace(start),
		"end":   strings.TrimSpace(end),
	}
	return record, nil
}

type fixture struct {
	Description string        `json:"description"`
	Cases       []fixtureCase `json:"cases"`
}

type fixtureCase struct {
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	Raw       string          `json:"raw"`
	PreHooks  []string        `json:"pre_hooks"`
	Required  []string        `json:"required"`
	Expect    map[string]any  `json:"expect"`
	ExpectErr string          `json:"expect_err"`
}

func loadFixture(t *testing.T, name string) fixture {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read hydrate fixture %q: %v", name, err)
	}
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal hydrate fixture %q: %v", name, err)
	}
	return fx
}
