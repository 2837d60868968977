package compare

import "reflect"

// Func judges whether two values of the same key are equal.
type Func func(a, b any) bool

// Identity reports reference or primitive equality. Comparable values use ==,
// maps and slices compare by backing storage, funcs are never identical.
func Identity(a, b any) (equal bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		// interface-typed struct fields can still hold uncomparable values
		defer func() {
			if recover() != nil {
				equal = false
			}
		}()
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map:
		return va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Slice:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		return va.UnsafePointer() == vb.UnsafePointer() && va.Len() == vb.Len()
	case reflect.Func:
		return va.IsNil() && vb.IsNil()
	}
	return false
}

// Default applies the fast paths shared by every mode: identity, the falsy
// rule, dates by instant and patterns by source. Other object pairs are handed
// to nested when given, otherwise they are unequal.
func Default(a, b any, nested Func) bool {
	if Identity(a, b) {
		return true
	}
	if Falsy(a) != Falsy(b) {
		return false
	}
	if !IsObject(a) || !IsObject(b) {
		return false
	}
	ca, cb := Classify(a), Classify(b)
	if ca.Kind == DateLike && cb.Kind == DateLike {
		return ca.Timestamp.Equal(cb.Timestamp)
	}
	if ca.Kind == PatternLike && cb.Kind == PatternLike {
		return ca.Source == cb.Source
	}
	if nested != nil {
		return nested(a, b)
	}
	return false
}

// Equal is Default without nested delegation.
func Equal(a, b any) bool {
	return Default(a, b, nil)
}

// Shallow compares sequences element-wise and records key-wise using value,
// which defaults to Equal.
func Shallow(a, b any, value Func) bool {
	if value == nil {
		value = Equal
	}
	return Default(a, b, func(x, y any) bool {
		return shallowObjects(x, y, value)
	})
}

// Deep is Shallow with itself as the value comparator. Cyclic values recurse
// without bound.
func Deep(a, b any) bool {
	return Shallow(a, b, Deep)
}

// ShallowFunc returns Shallow bound to the Equal value comparator.
func ShallowFunc() Func {
	return func(a, b any) bool {
		return Shallow(a, b, nil)
	}
}

func shallowObjects(a, b any, value Func) bool {
	va, vb := indirect(reflect.ValueOf(a)), indirect(reflect.ValueOf(b))
	if !va.IsValid() || !vb.IsValid() {
		return false
	}
	seqA, seqB := isSequence(va), isSequence(vb)
	if seqA || seqB {
		if !seqA || !seqB {
			return false
		}
		if va.Len() != vb.Len() {
			return false
		}
		for i := 0; i < va.Len(); i++ {
			if !value(interfaceOf(va.Index(i)), interfaceOf(vb.Index(i))) {
				return false
			}
		}
		return true
	}

	fa, okA := recordEntries(va)
	fb, okB := recordEntries(vb)
	if !okA || !okB {
		return false
	}
	if len(fa) == 0 && len(fb) == 0 && va.Kind() == reflect.Struct && vb.Kind() == reflect.Struct {
		return Identity(interfaceOf(va), interfaceOf(vb))
	}
	for key, left := range fa {
		if !value(left, fb[key]) {
			return false
		}
	}
	for key, right := range fb {
		if _, seen := fa[key]; seen {
			continue
		}
		if !value(nil, right) {
			return false
		}
	}
	return true
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isSequence(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

// recordEntries flattens a map or struct into its key/value pairs. Struct
// records only expose exported fields.
func recordEntries(v reflect.Value) (map[any]any, bool) {
	switch v.Kind() {
	case reflect.Map:
		out := make(map[any]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().Interface()] = interfaceOf(iter.Value())
		}
		return out, true
	case reflect.Struct:
		t := v.Type()
		out := make(map[any]any, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			out[field.Name] = interfaceOf(v.Field(i))
		}
		return out, true
	}
	return nil, false
}

func interfaceOf(v reflect.Value) any {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		return v.Elem().Interface()
	}
	return v.Interface()
}
