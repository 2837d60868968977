package compare

import (
	"math"
	"reflect"
	"regexp"
	"time"
)

// Kind tags how a value participates in the type-aware fast paths.
type Kind int

const (
	// Plain values carry no special comparison semantics.
	Plain Kind = iota
	// DateLike values compare by instant.
	DateLike
	// PatternLike values compare by their source pattern.
	PatternLike
)

func (k Kind) String() string {
	switch k {
	case DateLike:
		return "date"
	case PatternLike:
		return "pattern"
	default:
		return "plain"
	}
}

// Dated lets a custom type opt into date-like comparison.
type Dated interface {
	Timestamp() time.Time
}

// Patterned lets a custom type opt into pattern-like comparison.
type Patterned interface {
	Pattern() string
}

// Class is the closed variant produced by Classify.
type Class struct {
	Kind      Kind
	Timestamp time.Time
	Source    string
}

// Classify decides once which comparison variant v belongs to.
func Classify(v any) Class {
	switch typed := v.(type) {
	case nil:
		return Class{}
	case time.Time:
		return Class{Kind: DateLike, Timestamp: typed}
	case *time.Time:
		if typed == nil {
			return Class{}
		}
		return Class{Kind: DateLike, Timestamp: *typed}
	case *regexp.Regexp:
		if typed == nil {
			return Class{}
		}
		return Class{Kind: PatternLike, Source: typed.String()}
	case Dated:
		return Class{Kind: DateLike, Timestamp: typed.Timestamp()}
	case Patterned:
		return Class{Kind: PatternLike, Source: typed.Pattern()}
	}
	return Class{}
}

// Falsy reports whether v is nil, false, a numeric zero, NaN or an empty
// string. Structs and arrays are objects and never falsy.
func Falsy(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return !rv.Bool()
	case reflect.String:
		return rv.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f == 0 || math.IsNaN(f)
	case reflect.Complex64, reflect.Complex128:
		return rv.Complex() == 0
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// IsObject reports whether v is a composite value (map, slice, array, struct
// or a non-nil pointer).
func IsObject(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return !rv.IsNil()
	case reflect.Array, reflect.Struct:
		return true
	case reflect.Pointer:
		return !rv.IsNil()
	}
	return false
}

// IsCallable reports whether v holds a non-nil func value.
func IsCallable(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Func && !rv.IsNil()
}
