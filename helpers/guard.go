package helpers

import "reflect"

// StrPanic returns s unchanged, or panics with panicMessage when s is empty.
// Used by constructors that cannot run without a listen address or service name.
func StrPanic(s string, panicMessage string) string {
	if s == "" {
		panic(panicMessage)
	}
	return s
}

// NilPanic returns v unchanged, or panics with panicMessage when v is nil.
// Typed nils (pointer, slice, map, chan, func, interface) count as nil.
//
// Constructors in service, handlers and adapters call it for every required
// collaborator, so a wiring mistake in cmd/netsel fails at startup rather than
// on the first request.
func NilPanic[T any](v T, panicMessage string) T {
	if isNil(v) {
		panic(panicMessage)
	}
	return v
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
