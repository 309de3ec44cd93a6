package rxset

import (
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// CellConfig configures a new Cell.
type CellConfig[T any] struct {
	Value  T
	Label  string
	Logger logr.Logger
}

// Cell owns a single value of type T and a transaction buffer. The
// observable value changes only through SetValue, ApplyChanges or a
// transaction close; structural equality (deepEqual) suppresses no-ops so
// that setting a value equal to the current one never emits. While a
// transaction is open the public value is unchanged: only the buffer is
// updated. Cells are always leaves: no combinator in this
// package produces a derived Cell, so Cell carries no readonly concept.
type Cell[T any] struct {
	label string
	log   logr.Logger

	value             T
	reactivityEnabled bool

	txOpen  bool
	pending *T

	onChange *SignalController[CellDelta[T]]
}

// NewCell creates a Cell seeded with cfg.Value.
func NewCell[T any](cfg CellConfig[T]) *Cell[T] {
	label := cfg.Label
	if label == "" {
		label = uuid.NewString()
	}
	logger := cfg.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}

	return &Cell[T]{
		label:             label,
		log:               logger.WithName("cell").WithValues("label", label),
		value:             cfg.Value,
		reactivityEnabled: true,
		onChange:          NewSignalController[CellDelta[T]](),
	}
}

// Label returns the cell's debug label.
func (c *Cell[T]) Label() string { return c.label }

// OnChange returns the observer view of the cell's delta signal.
func (c *Cell[T]) OnChange() Subscriber[CellDelta[T]] { return c.onChange.Signal() }

// Value returns the current committed value. While a transaction is open
// this does not reflect the staged write.
func (c *Cell[T]) Value() T { return c.value }

func (c *Cell[T]) checkMutable(op string) error {
	if !c.reactivityEnabled {
		return opErr("Cell", c.label, op, ErrReactivityDisabled)
	}
	return nil
}

// SetValue writes next. A write structurally equal to the current value is
// a no-op: no commit, no emission. Inside an open transaction the write is
// staged instead of committed.
func (c *Cell[T]) SetValue(next T) error {
	if err := c.checkMutable("SetValue"); err != nil {
		return err
	}
	if c.txOpen {
		v := next
		c.pending = &v
		return nil
	}
	return c.commit(next)
}

func (c *Cell[T]) commit(next T) error {
	if deepEqual(c.value, next) {
		return nil
	}
	old := c.value
	c.value = next
	c.onChange.Activate(CellDelta[T]{
		Decrement: &CellValue[T]{Value: old},
		Increment: &CellValue[T]{Value: next},
	})
	return nil
}

// ApplyChanges routes an overwrite to a direct commit, or an incremental
// delta's Increment side to the same commit path.
func (c *Cell[T]) ApplyChanges(change CellChange[T]) error {
	if err := c.checkMutable("ApplyChanges"); err != nil {
		return err
	}
	switch {
	case change.overwrite != nil:
		return c.SetValue(change.overwrite.Value)
	case change.delta != nil && change.delta.Increment != nil:
		return c.SetValue(change.delta.Increment.Value)
	default:
		return nil
	}
}

// OpenTransaction stages subsequent writes instead of committing them
// immediately. Re-entrant open is a no-op.
func (c *Cell[T]) OpenTransaction() error {
	if err := c.checkMutable("OpenTransaction"); err != nil {
		return err
	}
	if c.txOpen {
		return nil
	}
	c.txOpen = true
	c.pending = nil
	return nil
}

// CloseTransaction assigns the last staged value, applying the equality
// gate and emitting at most one delta. Closing with nothing staged, or
// without an open transaction, is a no-op.
func (c *Cell[T]) CloseTransaction() error {
	if err := c.checkMutable("CloseTransaction"); err != nil {
		return err
	}
	if !c.txOpen {
		return nil
	}
	c.txOpen = false
	pending := c.pending
	c.pending = nil
	if pending == nil {
		return nil
	}
	return c.commit(*pending)
}

// CancelTransaction discards the staged value without emitting.
func (c *Cell[T]) CancelTransaction() error {
	if err := c.checkMutable("CancelTransaction"); err != nil {
		return err
	}
	c.txOpen = false
	c.pending = nil
	return nil
}

// DisableReactivity turns off SetValue/ApplyChanges/transaction mutation,
// cancelling any open transaction. Restoring with EnableReactivity always
// brings the flag back to true.
func (c *Cell[T]) DisableReactivity() {
	c.reactivityEnabled = false
	c.txOpen = false
	c.pending = nil
}

// EnableReactivity restores mutation.
func (c *Cell[T]) EnableReactivity() {
	c.reactivityEnabled = true
}
