package hydrate

import (
	"fmt"
	"reflect"
	"strings"
)

// TagName is the struct tag read by FromStruct.
const TagName = "stable"

// FromStruct flattens the exported fields of a struct, or pointer to one,
// into a record. Values are carried as-is, so funcs and nested objects keep
// their identity. A tag of "-" skips the field; "name" renames it; the
// "omitempty" flag drops zero values.
func FromStruct(value any) (map[string]any, error) {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("hydrate: nil %s", rv.Type())
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("hydrate: %T is not a struct", value)
	}
	rt := rv.Type()
	record := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitEmpty, skip := parseTag(field)
		if skip {
			continue
		}
		fv := rv.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}
		record[name] = fv.Interface()
	}
	return record, nil
}

func parseTag(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag, ok := field.Tag.Lookup(TagName)
	if !ok {
		return field.Name, false, false
	}
	if tag == "-" {
		return "", false, true
	}
	name, flags, _ := strings.Cut(tag, ",")
	if name == "" {
		name = field.Name
	}
	for _, flag := range strings.Split(flags, ",") {
		if flag == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}
