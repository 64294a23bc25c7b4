package gateway

import (
	"reflect"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// normalizeTimes walks v and rewrites every time.Time it reaches (including
// nested structs, pointers and slices) to UTC truncated to precision. Backends
// store timestamps at different precisions; normalizing both ways keeps range
// and cursor comparisons exact.
func normalizeTimes(v any, precision time.Duration) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return
	}
	walkTimes(rv.Elem(), precision)
}

func walkTimes(v reflect.Value, precision time.Duration) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			walkTimes(v.Elem(), precision)
		}
	case reflect.Struct:
		if v.Type() == timeType {
			if v.CanSet() {
				t := v.Interface().(time.Time)
				v.Set(reflect.ValueOf(normalizeTime(t, precision)))
			}
			return
		}
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				walkTimes(v.Field(i), precision)
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			walkTimes(v.Index(i), precision)
		}
	}
}

func normalizeTime(t time.Time, precision time.Duration) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC().Truncate(precision)
}

// normalizeFields applies the same rewrite to the values of a partial update.
func normalizeFields(fields map[string]any, precision time.Duration) {
	for k, val := range fields {
		switch t := val.(type) {
		case time.Time:
			fields[k] = normalizeTime(t, precision)
		case *time.Time:
			if t != nil {
				n := normalizeTime(*t, precision)
				fields[k] = &n
			}
		default:
			rv := reflect.ValueOf(val)
			if rv.Kind() == reflect.Pointer && !rv.IsNil() {
				walkTimes(rv.Elem(), precision)
			} else if rv.Kind() == reflect.Slice {
				walkTimes(rv, precision)
			}
		}
	}
}
