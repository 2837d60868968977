// Package hydrate turns external payloads into generation records.
package hydrate

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// Source names where a payload came from. It only appears in errors and is
// handed to hooks.
type Source struct {
	Name string
}

func (s Source) String() string {
	if s.Name == "" {
		return "<payload>"
	}
	return s.Name
}

// PreHook rewrites a decoded record before it is returned. Returning nil
// keeps the input.
type PreHook func(Source, map[string]any) (map[string]any, error)

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// Decoder decodes JSON objects into records.
type Decoder struct {
	hooks     []PreHook
	useNumber bool
	required  []string
}

// WithPreHook appends hook to the hooks run after decoding.
func WithPreHook(hook PreHook) DecoderOption {
	return func(d *Decoder) {
		if hook != nil {
			d.hooks = append(d.hooks, hook)
		}
	}
}

// WithUseNumber decodes numbers as json.Number instead of float64.
func WithUseNumber() DecoderOption {
	return func(d *Decoder) {
		d.useNumber = true
	}
}

// WithRequiredKeys fails decoding when any of keys is absent after hooks ran.
func WithRequiredKeys(keys ...string) DecoderOption {
	return func(d *Decoder) {
		d.required = append(d.required, keys...)
	}
}

// NewDecoder builds a Decoder.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

func (d *Decoder) api() jsoniter.API {
	return jsoniter.Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
		UseNumber:              d.useNumber,
	}.Froze()
}

// Decode parses payload, which must hold a JSON object, and runs the hooks.
func (d *Decoder) Decode(src Source, payload []byte) (map[string]any, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("hydrate: %s: payload is empty", src)
	}
	var record map[string]any
	if err := d.api().Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("hydrate: %s: decode: %w", src, err)
	}
	if record == nil {
		return nil, fmt.Errorf("hydrate: %s: payload is not an object", src)
	}
	for _, hook := range d.hooks {
		next, err := hook(src, record)
		if err != nil {
			return nil, fmt.Errorf("hydrate: %s: pre-hook failed: %w", src, err)
		}
		if next != nil {
			record = next
		}
	}
	for _, key := range d.required {
		if _, ok := record[key]; !ok {
			return nil, fmt.Errorf("hydrate: %s: missing key %q", src, key)
		}
	}
	return record, nil
}
