package stable

import "github.com/goliatone/go-stable/internal/hydrate"

// RecordFromJSON decodes a JSON object into a Record. Numbers decode as
// float64.
func RecordFromJSON(payload []byte) (Record, error) {
	record, err := hydrate.NewDecoder().Decode(hydrate.Source{Name: "record"}, payload)
	if err != nil {
		return nil, err
	}
	return Record(record), nil
}

// RecordOf flattens the exported fields of a struct into a Record. Fields
// tagged `stable:"name"` are renamed and `stable:"-"` fields skipped.
func RecordOf(value any) (Record, error) {
	record, err := hydrate.FromStruct(value)
	if err != nil {
		return nil, err
	}
	return Record(record), nil
}

// UpdateJSON is Update with a record decoded from payload.
func (v *View) UpdateJSON(payload []byte, cfg Config) error {
	record, err := hydrate.NewDecoder().Decode(hydrate.Source{Name: v.id}, payload)
	if err != nil {
		return err
	}
	return v.install(record, cfg)
}
