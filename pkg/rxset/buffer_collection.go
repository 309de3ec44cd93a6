package rxset

// collectionBuffer stages the incremental changes a projection engine
// dependency has observed on a Collection source since its last commit:
// additions and removals coalesce against each other before ever reaching
// the resolver.
//
// committedState is derived, not stored: the dependency's source already
// applies every mutation to its own live values immediately, so the
// buffer's job is only to remember which of those mutations the engine
// hasn't committed yet. The committed snapshot is always
// (source.Values() − pendingAdded) ∪ pendingRemoved.
type collectionBuffer[T comparable] struct {
	node CollectionNode[T]

	changeSub *Subscription

	pendingAdded   Set[T]
	pendingRemoved Set[T]
}

func newCollectionBuffer[T comparable](node CollectionNode[T]) *collectionBuffer[T] {
	return &collectionBuffer[T]{node: node}
}

// attach subscribes to the dependency's change signal and seeds the buffer
// with the source's entire current content as a pending increment, so the
// next commit carries the initial snapshot through the same resolver path
// as any later delta. notify is called whenever a new change is
// buffered, waking the engine's sync worker.
func (b *collectionBuffer[T]) attach(notify func()) {
	b.pendingAdded = b.node.Result().Values()
	b.pendingRemoved = Set[T]{}
	b.changeSub = b.node.Result().OnChange().Subscribe(func(d Delta[T]) {
		b.pendingAdded = b.pendingAdded.Union(d.Increment).Diff(d.Decrement)
		b.pendingRemoved = b.pendingRemoved.Union(d.Decrement).Diff(d.Increment)
		notify()
	})
}

func (b *collectionBuffer[T]) detach() {
	b.changeSub.Cancel()
	b.changeSub = nil
}

// hasBuffered reports whether there is a non-empty staged delta.
func (b *collectionBuffer[T]) hasBuffered() bool {
	return b.pendingAdded.Len() > 0 || b.pendingRemoved.Len() > 0
}

// commit returns the staged delta and clears it. The source's own values
// are left untouched — commit only tells the buffer that the engine has
// now seen this delta, which changes what committedState reports.
func (b *collectionBuffer[T]) commit() Delta[T] {
	d := Delta[T]{}
	if b.pendingAdded.Len() > 0 {
		d.Increment = b.pendingAdded
	}
	if b.pendingRemoved.Len() > 0 {
		d.Decrement = b.pendingRemoved
	}
	b.pendingAdded = Set[T]{}
	b.pendingRemoved = Set[T]{}
	return d
}

// committedState reconstructs the dependency's state as of the last
// commit: the source's current values with any not-yet-committed pending
// changes undone.
func (b *collectionBuffer[T]) committedState() Set[T] {
	return b.node.Result().Values().Diff(b.pendingAdded).Union(b.pendingRemoved)
}
