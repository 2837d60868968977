package stable

import (
	"github.com/goliatone/go-stable/compare"
	jsoniter "github.com/json-iterator/go"
)

var traceJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Trace lists what each layer of a Stack holds for one key, strongest first.
type Trace struct {
	Key    string       `json:"key"`
	Layers []Provenance `json:"layers"`
}

// Provenance is one layer's contribution to a Trace.
type Provenance struct {
	Layer    string `json:"layer"`
	Label    string `json:"label,omitempty"`
	Priority int    `json:"priority"`
	Value    any    `json:"value,omitempty"`
	Found    bool   `json:"found"`
	Winner   bool   `json:"winner,omitempty"`
}

// Winner returns the provenance of the effective value.
func (t Trace) Winner() (Provenance, bool) {
	for _, entry := range t.Layers {
		if entry.Winner {
			return entry, true
		}
	}
	return Provenance{}, false
}

// ToJSON encodes the trace.
func (t Trace) ToJSON() ([]byte, error) {
	return traceJSON.Marshal(t)
}

// TraceFromJSON decodes a payload produced by ToJSON. Numbers decode as
// float64.
func TraceFromJSON(payload []byte) (Trace, error) {
	var trace Trace
	if err := traceJSON.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return trace, nil
}

// traceValue replaces functions with a placeholder so traces always encode.
func traceValue(value any) any {
	if _, ok := value.(*Handle); ok || compare.IsCallable(value) {
		return "<func>"
	}
	return value
}
