package rxset

import (
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// CollectionConfig configures a new Collection.
type CollectionConfig[T comparable] struct {
	Values Set[T]
	Label  string
	Logger logr.Logger
}

// Collection owns a set of unique T values plus two transaction buffers
// (pending additions, pending removals). Additions and removals staged in
// the same transaction are mutually exclusive: adding cancels a pending
// removal of the same element and vice versa.
type Collection[T comparable] struct {
	label string
	log   logr.Logger

	values   Set[T]
	readonly bool

	reactivityEnabled  bool
	onReactivityChange *SignalController[bool]

	txOpen         bool
	pendingAdded   Set[T]
	pendingRemoved Set[T]

	onChange *SignalController[Delta[T]]
}

// NewCollection creates a mutable Collection seeded with cfg.Values.
func NewCollection[T comparable](cfg CollectionConfig[T]) *Collection[T] {
	return newCollection(cfg, false)
}

// newReadonlyCollection creates the result collection backing a Combination.
// Only code within this package may call it: combinators mutate it through
// the unexported apply*/clear*/overwrite* helpers below, bypassing the
// public, readonly-checked entry points entirely.
func newReadonlyCollection[T comparable](cfg CollectionConfig[T]) *Collection[T] {
	return newCollection(cfg, true)
}

func newCollection[T comparable](cfg CollectionConfig[T], readonly bool) *Collection[T] {
	label := cfg.Label
	if label == "" {
		label = uuid.NewString()
	}
	logger := cfg.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}

	return &Collection[T]{
		label:              label,
		log:                logger.WithName("collection").WithValues("label", label),
		values:             cfg.Values.Clone(),
		readonly:           readonly,
		reactivityEnabled:  true,
		onReactivityChange: NewSignalController[bool](),
		onChange:           NewSignalController[Delta[T]](),
	}
}

// Label returns the collection's debug label.
func (c *Collection[T]) Label() string { return c.label }

// OnChange returns the observer view of the collection's delta signal.
func (c *Collection[T]) OnChange() Subscriber[Delta[T]] { return c.onChange.Signal() }

// Values returns a frozen snapshot of the current contents.
func (c *Collection[T]) Values() Set[T] { return c.values.Clone() }

// Has reports set membership.
func (c *Collection[T]) Has(v T) bool { return c.values.Has(v) }

// Len returns the number of elements.
func (c *Collection[T]) Len() int { return c.values.Len() }

// IsReadonly reports whether this collection rejects public mutation, i.e.
// whether it is the result of a Combination.
func (c *Collection[T]) IsReadonly() bool { return c.readonly }

func (c *Collection[T]) checkMutable(op string) error {
	if c.readonly {
		return opErr("Collection", c.label, op, ErrReadonlyAccess)
	}
	if !c.reactivityEnabled {
		return opErr("Collection", c.label, op, ErrReactivityDisabled)
	}
	return nil
}

// Add inserts v, emitting immediately unless a transaction is open.
func (c *Collection[T]) Add(v T) error {
	if err := c.checkMutable("Add"); err != nil {
		return err
	}
	return c.mutate(func() { c.stageDelta(Delta[T]{Increment: NewSet(v)}) })
}

// Delete removes v, emitting immediately unless a transaction is open.
// Deleting an absent element emits nothing.
func (c *Collection[T]) Delete(v T) error {
	if err := c.checkMutable("Delete"); err != nil {
		return err
	}
	return c.mutate(func() { c.stageDelta(Delta[T]{Decrement: NewSet(v)}) })
}

// Clear empties the collection.
func (c *Collection[T]) Clear() error {
	if err := c.checkMutable("Clear"); err != nil {
		return err
	}
	return c.mutate(c.stageClear)
}

// BatchAdd inserts every value in values as a single delta.
func (c *Collection[T]) BatchAdd(values ...T) error {
	if err := c.checkMutable("BatchAdd"); err != nil {
		return err
	}
	return c.mutate(func() { c.stageDelta(Delta[T]{Increment: NewSet(values...)}) })
}

// BatchDelete removes every value in values as a single delta.
func (c *Collection[T]) BatchDelete(values ...T) error {
	if err := c.checkMutable("BatchDelete"); err != nil {
		return err
	}
	return c.mutate(func() { c.stageDelta(Delta[T]{Decrement: NewSet(values...)}) })
}

// Overwrite replaces the contents with values as a single delta.
func (c *Collection[T]) Overwrite(values ...T) error {
	if err := c.checkMutable("Overwrite"); err != nil {
		return err
	}
	target := NewSet(values...)
	return c.mutate(func() { c.stageOverwrite(target) })
}

// ApplyChanges applies a CollectionChange (either an incremental Delta or a
// full Overwrite). Incremental inputs are staged and closed as a single
// transaction, so at most one delta is emitted.
func (c *Collection[T]) ApplyChanges(change CollectionChange[T]) error {
	if err := c.checkMutable("ApplyChanges"); err != nil {
		return err
	}
	return c.mutate(func() {
		switch {
		case change.overwrite != nil:
			c.stageOverwrite(change.overwrite.Values)
		case change.delta != nil:
			c.stageDelta(*change.delta)
		}
	})
}

// OpenTransaction stages subsequent mutations instead of emitting them
// immediately. Re-entrant open is a no-op.
func (c *Collection[T]) OpenTransaction() error {
	if err := c.checkMutable("OpenTransaction"); err != nil {
		return err
	}
	if c.txOpen {
		return nil
	}
	c.txOpen = true
	c.pendingAdded = Set[T]{}
	c.pendingRemoved = Set[T]{}
	return nil
}

// CloseTransaction commits the staged mutations, emitting at most one
// delta. Closing when no transaction is open is a no-op.
func (c *Collection[T]) CloseTransaction() error {
	if err := c.checkMutable("CloseTransaction"); err != nil {
		return err
	}
	if !c.txOpen {
		return nil
	}
	return c.closeAndEmit()
}

// CancelTransaction discards any staged mutations without emitting.
func (c *Collection[T]) CancelTransaction() error {
	if err := c.checkMutable("CancelTransaction"); err != nil {
		return err
	}
	c.cancel()
	return nil
}

// mutate stages a change and, unless a transaction is already open, closes
// it immediately so exactly one delta is emitted for the call.
func (c *Collection[T]) mutate(stage func()) error {
	stage()
	if c.txOpen {
		return nil
	}
	return c.closeAndEmit()
}

func (c *Collection[T]) stageDelta(d Delta[T]) {
	c.pendingAdded = c.pendingAdded.Union(d.Increment).Diff(d.Decrement)
	c.pendingRemoved = c.pendingRemoved.Union(d.Decrement).Diff(d.Increment)
}

func (c *Collection[T]) stageClear() {
	c.pendingRemoved = c.values.Clone()
	c.pendingAdded = Set[T]{}
}

func (c *Collection[T]) stageOverwrite(newValues Set[T]) {
	c.pendingAdded = newValues.Clone()
	c.pendingRemoved = c.values.Diff(newValues)
}

func (c *Collection[T]) cancel() {
	c.txOpen = false
	c.pendingAdded = nil
	c.pendingRemoved = nil
}

// closeAndEmit computes the net delta against the committed state, applies
// it in place and emits it iff non-empty.
func (c *Collection[T]) closeAndEmit() error {
	incr := c.pendingAdded.Diff(c.values)
	decr := c.pendingRemoved.Intersect(c.values)

	c.txOpen = false
	c.pendingAdded = nil
	c.pendingRemoved = nil

	for v := range decr {
		delete(c.values, v)
	}
	for v := range incr {
		if c.values == nil {
			c.values = Set[T]{}
		}
		c.values[v] = struct{}{}
	}

	if incr.Len() == 0 && decr.Len() == 0 {
		return nil
	}

	d := Delta[T]{}
	if incr.Len() > 0 {
		d.Increment = incr
	}
	if decr.Len() > 0 {
		d.Decrement = decr
	}
	c.onChange.Activate(d)
	return nil
}

// The methods below are the privileged, non-public path used by Combination
// and its subtypes to drive a result collection's state. They bypass
// checkMutable entirely: the combinator is the sole trusted writer of its
// own result.

func (c *Collection[T]) applyInternal(d Delta[T]) {
	c.stageDelta(d)
	_ = c.closeAndEmit()
}

func (c *Collection[T]) overwriteInternal(values Set[T]) {
	c.stageOverwrite(values)
	_ = c.closeAndEmit()
}

func (c *Collection[T]) clearInternal() {
	if c.values.Len() == 0 {
		return
	}
	c.stageClear()
	_ = c.closeAndEmit()
}

func (c *Collection[T]) cancelInternal() {
	c.cancel()
}

// DisableReactivity turns off this collection's public mutation API. It is
// meant to be called by a derived consumer that has taken ownership of the
// collection's lifecycle (typically Combination, for its own result). It
// cancels any open transaction and clears storage without emitting a
// content delta, then fires the reactivity switch signal once iff this call
// is an effective transition.
func (c *Collection[T]) DisableReactivity() {
	if !c.reactivityEnabled {
		return
	}
	c.reactivityEnabled = false
	c.cancel()
	c.values = Set[T]{}
	c.onReactivityChange.Activate(false)
}

// EnableReactivity restores the public mutation API.
func (c *Collection[T]) EnableReactivity() {
	if c.reactivityEnabled {
		return
	}
	c.reactivityEnabled = true
	c.onReactivityChange.Activate(true)
}

// OnReactivityChange returns the observer view of the reactivity switch.
func (c *Collection[T]) OnReactivityChange() Subscriber[bool] { return c.onReactivityChange.Signal() }
