package rxset

// cellBuffer stages the pending write a projection engine dependency has
// observed on a Cell source since its last commit. Unlike collectionBuffer
// there is no additive algebra to coalesce: a cell only ever has "no
// pending write" or "the latest pending value," so restaging simply
// replaces the previous pending value.
type cellBuffer[T any] struct {
	cell *Cell[T]

	changeSub *Subscription

	pendingValue   *T
	committedValue *T
}

func newCellBuffer[T any](cell *Cell[T]) *cellBuffer[T] {
	return &cellBuffer[T]{cell: cell}
}

// attach subscribes to the cell's change signal and seeds the buffer with
// its current value as a pending write, so the initial snapshot flows
// through the same resolver path as any later write.
func (b *cellBuffer[T]) attach(notify func()) {
	v := b.cell.Value()
	b.pendingValue = &v
	b.changeSub = b.cell.OnChange().Subscribe(func(CellDelta[T]) {
		v := b.cell.Value()
		if b.committedValue != nil && deepEqual(v, *b.committedValue) {
			b.pendingValue = nil
			return
		}
		b.pendingValue = &v
		notify()
	})
}

func (b *cellBuffer[T]) detach() {
	b.changeSub.Cancel()
	b.changeSub = nil
}

// hasBuffered reports whether a write is staged.
func (b *cellBuffer[T]) hasBuffered() bool { return b.pendingValue != nil }

// commit returns the staged write as a CellDelta against the last
// committed value, then clears the stage. It panics if nothing is pending:
// callers must always check hasBuffered first, mirroring the canonical
// contract that a buffer is never committed empty.
func (b *cellBuffer[T]) commit() CellDelta[T] {
	if b.pendingValue == nil {
		panic(ErrCommitWithoutPending)
	}
	d := CellDelta[T]{Increment: &CellValue[T]{Value: *b.pendingValue}}
	if b.committedValue != nil {
		d.Decrement = &CellValue[T]{Value: *b.committedValue}
	}
	b.committedValue = b.pendingValue
	b.pendingValue = nil
	return d
}

// committedState returns the dependency's last-committed value, or nil if
// nothing has been committed yet.
func (b *cellBuffer[T]) committedState() *CellValue[T] {
	if b.committedValue == nil {
		return nil
	}
	return &CellValue[T]{Value: *b.committedValue}
}
