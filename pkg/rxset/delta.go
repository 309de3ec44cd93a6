package rxset

// Delta is a collection change: a pair of disjoint sides describing what was
// added and what was removed. Applying a Delta conceptually removes the
// Decrement side first, then adds the Increment side; an element must never
// appear on both sides of the same Delta.
type Delta[T comparable] struct {
	Increment Set[T]
	Decrement Set[T]
}

// IsZero reports whether the delta carries no change at all.
func (d Delta[T]) IsZero() bool {
	return d.Increment.Len() == 0 && d.Decrement.Len() == 0
}

// Overwrite is a single replacement set. When applied against a known prior
// state `old`, it is equivalent to Delta{Increment: new-old, Decrement:
// old-new}.
type Overwrite[T comparable] struct {
	Values Set[T]
}

// ToDelta computes the Delta that takes `old` to o.Values.
func (o Overwrite[T]) ToDelta(old Set[T]) Delta[T] {
	return Delta[T]{
		Increment: o.Values.Diff(old),
		Decrement: old.Diff(o.Values),
	}
}

// CollectionChange is the tagged union accepted by Collection.ApplyChanges:
// either an incremental Delta or a full Overwrite, never both.
type CollectionChange[T comparable] struct {
	delta     *Delta[T]
	overwrite *Overwrite[T]
}

// DeltaChange wraps an incremental change for ApplyChanges.
func DeltaChange[T comparable](increment, decrement Set[T]) CollectionChange[T] {
	return CollectionChange[T]{delta: &Delta[T]{Increment: increment, Decrement: decrement}}
}

// OverwriteChange wraps a full replacement for ApplyChanges.
func OverwriteChange[T comparable](values Set[T]) CollectionChange[T] {
	return CollectionChange[T]{overwrite: &Overwrite[T]{Values: values}}
}

// CellValue wraps a cell value so that "no value" (nil) is distinguishable
// from "the zero value of T".
type CellValue[T any] struct {
	Value T
}

// CellDelta is a cell change: Decrement holds the previous value container,
// Increment the next one. Both absent means no change.
type CellDelta[T any] struct {
	Increment *CellValue[T]
	Decrement *CellValue[T]
}

// IsZero reports whether the delta carries no change at all.
func (d CellDelta[T]) IsZero() bool {
	return d.Increment == nil && d.Decrement == nil
}

// CellOverwrite is a full replacement of a cell's value.
type CellOverwrite[T any] struct {
	Value T
}

// CellChange is the tagged union accepted by Cell.ApplyChanges.
type CellChange[T any] struct {
	delta     *CellDelta[T]
	overwrite *CellOverwrite[T]
}

// CellDeltaChange wraps an incremental cell change for ApplyChanges.
func CellDeltaChange[T any](increment, decrement *CellValue[T]) CellChange[T] {
	return CellChange[T]{delta: &CellDelta[T]{Increment: increment, Decrement: decrement}}
}

// CellOverwriteChange wraps a full replacement for ApplyChanges.
func CellOverwriteChange[T any](value T) CellChange[T] {
	return CellChange[T]{overwrite: &CellOverwrite[T]{Value: value}}
}
