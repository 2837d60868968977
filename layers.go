package stable

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/goliatone/go-stable/layering"
)

// Layer is one named source of record values, such as defaults, inherited
// props or call-site overrides. Higher priorities win.
type Layer struct {
	Name     string
	Label    string
	Priority int
	Record   Record
}

// LayerOption configures a Layer.
type LayerOption func(*Layer)

// WithLayerLabel sets a display label used in traces.
func WithLayerLabel(label string) LayerOption {
	return func(layer *Layer) {
		layer.Label = label
	}
}

// NewLayer builds a layer holding a copy of record.
func NewLayer(name string, priority int, record Record, opts ...LayerOption) Layer {
	layer := Layer{
		Name:     name,
		Priority: priority,
		Record:   layering.Clone(record),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&layer)
		}
	}
	return layer
}

var (
	// ErrLayerNameRequired reports a layer without a name.
	ErrLayerNameRequired = errors.New("stable: layer name must be provided")
	// ErrDuplicateLayerName reports two layers sharing a name.
	ErrDuplicateLayerName = errors.New("stable: layer names must be unique")
	// ErrLayerPriority reports two layers sharing a priority.
	ErrLayerPriority = errors.New("stable: layer priorities must be distinct")
)

// Stack is an ordered set of layers, strongest first.
type Stack struct {
	layers []Layer
}

// NewStack validates layers and orders them by descending priority.
func NewStack(layers ...Layer) (*Stack, error) {
	seen := make(map[string]struct{}, len(layers))
	ordered := make([]Layer, len(layers))
	for i, layer := range layers {
		if layer.Name == "" {
			return nil, ErrLayerNameRequired
		}
		if _, ok := seen[layer.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLayerName, layer.Name)
		}
		seen[layer.Name] = struct{}{}
		layer.Record = layering.Clone(layer.Record)
		ordered[i] = layer
	}
	slices.SortStableFunc(ordered, func(a, b Layer) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Priority == ordered[i].Priority {
			return nil, fmt.Errorf("%w: %s and %s share %d", ErrLayerPriority, ordered[i-1].Name, ordered[i].Name, ordered[i].Priority)
		}
	}
	return &Stack{layers: ordered}, nil
}

// Len returns the number of layers.
func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// Layers returns the layers strongest first. Records are copied.
func (s *Stack) Layers() []Layer {
	if s == nil {
		return nil
	}
	out := make([]Layer, len(s.layers))
	for i, layer := range s.layers {
		layer.Record = layering.Clone(layer.Record)
		out[i] = layer
	}
	return out
}

// Compose flattens the stack into one record. Values are carried by
// reference so nested objects keep their identity.
func (s *Stack) Compose() Record {
	if s == nil {
		return Record{}
	}
	records := make([]Record, len(s.layers))
	for i, layer := range s.layers {
		records[i] = layer.Record
	}
	return layering.Compose(records...)
}

// Trace reports, for key, what every layer holds and which one wins.
func (s *Stack) Trace(key string) Trace {
	trace := Trace{Key: key}
	if s == nil {
		return trace
	}
	won := false
	for _, layer := range s.layers {
		value, found := layer.Record[key]
		entry := Provenance{
			Layer:    layer.Name,
			Label:    layer.Label,
			Priority: layer.Priority,
			Found:    found,
			Winner:   found && !won,
		}
		if found {
			entry.Value = traceValue(value)
			won = true
		}
		trace.Layers = append(trace.Layers, entry)
	}
	return trace
}

// UpdateStack installs the composed stack as the next generation.
func (v *View) UpdateStack(stack *Stack, cfg Config) error {
	return v.install(stack.Compose(), cfg)
}

// MergeStack merges the composed stack over the current backing record.
func (v *View) MergeStack(stack *Stack, cfg Config) error {
	return v.install(layering.Union(v.record, stack.Compose()), cfg)
}

// Priorities for the usual prop layering. Higher numbers win.
const (
	PriorityDefaults  = 100
	PriorityTheme     = 200
	PriorityProps     = 300
	PriorityOverrides = 400
)

// PropsStack builds the defaults, theme, props, overrides stack. Nil records
// are treated as empty layers.
func PropsStack(defaults, theme, props, overrides Record) (*Stack, error) {
	return NewStack(
		NewLayer("defaults", PriorityDefaults, defaults, WithLayerLabel("Defaults")),
		NewLayer("theme", PriorityTheme, theme, WithLayerLabel("Theme")),
		NewLayer("props", PriorityProps, props, WithLayerLabel("Props")),
		NewLayer("overrides", PriorityOverrides, overrides, WithLayerLabel("Overrides")),
	)
}
