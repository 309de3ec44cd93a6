package rxset

import "reflect"

// deepEqual implements the structural equality gate cells use to suppress
// no-op writes. T is an arbitrary type here, not necessarily comparable
// with ==, so the only generic option is reflect.DeepEqual, the same
// primitive testify's ObjectsAreEqual relies on for the same purpose.
func deepEqual[T any](a, b T) bool {
	return reflect.DeepEqual(a, b)
}
