package rxset

import (
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// CollectionNode is anything that can be wired as a source into a variadic
// combinator or a projection engine's collection dependency: a plain leaf
// Collection, or another Combination. Enabled/OnEnabledChange let the
// consumer implement the "included only when reactive" rule without caring
// whether the source is a leaf (always enabled) or a
// Combination (enabled only while its own cascade holds).
type CollectionNode[T comparable] interface {
	// Result is the collection whose content and OnChange signal this
	// node exposes.
	Result() *Collection[T]
	// IsCombination reports whether this node is itself a derived
	// Combination, i.e. whether it has lifecycle state worth tracking.
	IsCombination() bool
	// Enabled reports the node's own enabled state. Always true for a
	// leaf.
	Enabled() bool
	// OnEnabledChange subscribes to enabled/disabled transitions. A leaf
	// never transitions and returns a subscription that never fires.
	OnEnabledChange(Handler[bool]) *Subscription
}

type leafCollectionNode[T comparable] struct {
	c *Collection[T]
}

// AsNode wraps a plain leaf Collection so it can be passed as a source to a
// variadic combinator or projection engine.
func AsNode[T comparable](c *Collection[T]) CollectionNode[T] { return leafCollectionNode[T]{c} }

func (n leafCollectionNode[T]) Result() *Collection[T] { return n.c }
func (n leafCollectionNode[T]) IsCombination() bool    { return false }
func (n leafCollectionNode[T]) Enabled() bool           { return true }
func (n leafCollectionNode[T]) OnEnabledChange(Handler[bool]) *Subscription {
	return &Subscription{} // never fires: cancel is a no-op, nothing was ever registered
}

// baseConfig carries the fields common to every Combination constructor.
type baseConfig[T comparable] struct {
	Label   string
	Logger  logr.Logger
	Enabled bool
	Kind    string // "union", "intersection", "difference", "projection" — used in log names only
}

// Combination is the base of every derived (readonly) collection in this
// package: Union, Intersection, Difference and ProjectionEngine all embed
// *Combination[T]. It owns the result collection, the enabled/disabled
// state machine and the cascade signal.
//
// Subclasses do not override methods (Go has no virtual dispatch); instead
// they supply two closures at construction time — parentsEnabled, queried
// whenever the cascade needs to be recomputed, and onActivate/onDeactivate,
// the subclass-specific mount/unmount logic — following the template-method
// idiom via function fields rather than an interface, since Combination is
// meant to be embedded, not satisfied.
type Combination[T comparable] struct {
	label string
	log   logr.Logger

	localEnabled     bool
	effectiveEnabled bool

	parentsEnabled func() bool
	onActivate     func()
	onDeactivate   func()

	switchSignal *SignalController[bool]
	result       *Collection[T]
}

func newCombination[T comparable](cfg baseConfig[T], parentsEnabled func() bool, onActivate, onDeactivate func()) *Combination[T] {
	label := cfg.Label
	if label == "" {
		label = uuid.NewString()
	}
	logger := cfg.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}

	b := &Combination[T]{
		label:          label,
		log:            logger.WithName(cfg.Kind).WithValues("label", label),
		localEnabled:   cfg.Enabled,
		parentsEnabled: parentsEnabled,
		onActivate:     onActivate,
		onDeactivate:   onDeactivate,
		switchSignal:   NewSignalController[bool](),
		result:         newReadonlyCollection[T](CollectionConfig[T]{Label: label + "/result", Logger: logger}),
	}

	b.recompute()
	return b
}

// Label returns the combination's debug label.
func (b *Combination[T]) Label() string { return b.label }

// Result returns the readonly collection holding this combination's
// current contents.
func (b *Combination[T]) Result() *Collection[T] { return b.result }

// IsCombination always reports true: every Combination satisfies
// CollectionNode.
func (b *Combination[T]) IsCombination() bool { return true }

// Enabled reports the effective enabled state: the local flag AND every
// parent combination's own enabled state, realized by the subclass's
// parentsEnabled hook.
func (b *Combination[T]) Enabled() bool { return b.effectiveEnabled }

// OnEnabledChange subscribes to the cascade switch signal.
func (b *Combination[T]) OnEnabledChange(h Handler[bool]) *Subscription {
	return b.switchSignal.Signal().Subscribe(h)
}

// OnChange returns the observer view of the result's delta signal —
// convenience so callers don't have to reach through Result().
func (b *Combination[T]) OnChange() Subscriber[Delta[T]] { return b.result.OnChange() }

// Values returns a frozen snapshot of the current result contents.
func (b *Combination[T]) Values() Set[T] { return b.result.Values() }

// Enable sets the local flag and recomputes the effective state. Redundant
// transitions are no-ops.
func (b *Combination[T]) Enable() {
	if b.localEnabled {
		return
	}
	b.localEnabled = true
	b.recompute()
}

// Disable sets the local flag and recomputes the effective state.
func (b *Combination[T]) Disable() {
	if !b.localEnabled {
		return
	}
	b.localEnabled = false
	b.recompute()
}

// notifyParentsChanged is called by a subclass whenever a parent's enabled
// state may have flipped, forcing a cascade recomputation.
func (b *Combination[T]) notifyParentsChanged() { b.recompute() }

func (b *Combination[T]) recompute() {
	next := b.localEnabled && b.parentsEnabled()
	if next == b.effectiveEnabled {
		return
	}

	if next {
		b.effectiveEnabled = true
		b.result.EnableReactivity()
		b.log.V(4).Info("activating")
		if b.onActivate != nil {
			b.onActivate()
		}
		b.switchSignal.Activate(true)
		return
	}

	b.effectiveEnabled = false
	b.log.V(4).Info("deactivating")
	b.switchSignal.Activate(false)
	b.result.cancelInternal()
	b.result.clearInternal()
	if b.onDeactivate != nil {
		b.onDeactivate()
	}
	b.result.DisableReactivity()
}
