package rxset

import (
	"github.com/go-logr/logr"
	"k8s.io/client-go/util/workqueue"
)

// Context is the snapshot of every dependency's last-committed state,
// handed to a resolver alongside the one dependency's freshly committed
// delta. Values are Set[T] for a collection dependency (T
// erased to any at this layer) or *CellValue[T] for a cell dependency (nil
// meaning "not committed yet").
type Context map[string]any

// dependency is the type-erased view of a single projection engine
// dependency that the engine's sync loop needs: commit its buffer, hand
// the committed delta to its resolver given the full context, and track
// whether its upstream is itself a combination for cascade purposes.
type dependency[R comparable] interface {
	name() string
	// reset clears any state a stateful resolver closure accumulated
	// across a prior activation, so re-enabling after a disable starts
	// from the same zero state a freshly constructed engine would. It is
	// called right before attach on every activate.
	reset()
	attach(notify func())
	detach()
	hasBuffered() bool
	// commit moves the currently buffered change into committed state and
	// stashes it so a subsequent resolve can consume it. Callers must call
	// commit before taking a context snapshot: committedState must reflect
	// the post-commit value.
	commit()
	// resolve calls the dependency's resolver with ctx against the delta
	// stashed by the preceding commit call.
	resolve(ctx Context) (Delta[R], error)
	committedState() any
	isParentCombination() bool
	parentEnabled() bool
	onParentEnabledChange(func(bool)) *Subscription
}

// CollectionResolver computes the engine's output delta given the full
// dependency context and the freshly committed delta of one collection
// dependency.
type CollectionResolver[T comparable, R comparable] func(ctx Context, delta Delta[T]) (Delta[R], error)

// CellResolver computes the engine's output delta given the full
// dependency context and the freshly committed delta of one cell
// dependency.
type CellResolver[T any, R comparable] func(ctx Context, delta CellDelta[T]) (Delta[R], error)

type collectionDependency[T comparable, R comparable] struct {
	label    string
	node     CollectionNode[T]
	buf      *collectionBuffer[T]
	resolver CollectionResolver[T, R]
	resetFn  func()
	stashed  Delta[T]
}

// CollectionDep registers a collection-typed dependency on a projection
// engine's output type R. reset is an optional callback that clears any
// state the resolver closure accumulates (an occurrence map, a running
// mirror set); omit it for a stateless resolver.
func CollectionDep[T comparable, R comparable](name string, node CollectionNode[T], resolver CollectionResolver[T, R], reset ...func()) DependencySpec[R] {
	var resetFn func()
	if len(reset) > 0 {
		resetFn = reset[0]
	}
	return DependencySpec[R]{build: func() dependency[R] {
		return &collectionDependency[T, R]{label: name, node: node, buf: newCollectionBuffer(node), resolver: resolver, resetFn: resetFn}
	}}
}

func (d *collectionDependency[T, R]) name() string {
	return d.label
}
func (d *collectionDependency[T, R]) reset() {
	if d.resetFn != nil {
		d.resetFn()
	}
}
func (d *collectionDependency[T, R]) attach(notify func())      { d.buf.attach(notify) }
func (d *collectionDependency[T, R]) detach()                   { d.buf.detach() }
func (d *collectionDependency[T, R]) hasBuffered() bool         { return d.buf.hasBuffered() }
func (d *collectionDependency[T, R]) committedState() any       { return d.buf.committedState() }
func (d *collectionDependency[T, R]) isParentCombination() bool { return d.node.IsCombination() }
func (d *collectionDependency[T, R]) parentEnabled() bool       { return d.node.Enabled() }

func (d *collectionDependency[T, R]) onParentEnabledChange(h func(bool)) *Subscription {
	return d.node.OnEnabledChange(h)
}

func (d *collectionDependency[T, R]) commit() { d.stashed = d.buf.commit() }

func (d *collectionDependency[T, R]) resolve(ctx Context) (Delta[R], error) {
	return d.resolver(ctx, d.stashed)
}

type cellDependency[T any, R comparable] struct {
	label    string
	cell     *Cell[T]
	buf      *cellBuffer[T]
	resolver CellResolver[T, R]
	resetFn  func()
	stashed  CellDelta[T]
}

// CellDep registers a cell-typed dependency on a projection engine's output
// type R. Cells are always leaves, so a cell dependency never gates the
// engine's cascade. reset is an optional callback, as in CollectionDep.
func CellDep[T any, R comparable](name string, cell *Cell[T], resolver CellResolver[T, R], reset ...func()) DependencySpec[R] {
	var resetFn func()
	if len(reset) > 0 {
		resetFn = reset[0]
	}
	return DependencySpec[R]{build: func() dependency[R] {
		return &cellDependency[T, R]{label: name, cell: cell, buf: newCellBuffer(cell), resolver: resolver, resetFn: resetFn}
	}}
}

func (d *cellDependency[T, R]) name() string { return d.label }
func (d *cellDependency[T, R]) reset() {
	if d.resetFn != nil {
		d.resetFn()
	}
}
func (d *cellDependency[T, R]) attach(notify func())       { d.buf.attach(notify) }
func (d *cellDependency[T, R]) detach()                    { d.buf.detach() }
func (d *cellDependency[T, R]) hasBuffered() bool          { return d.buf.hasBuffered() }
func (d *cellDependency[T, R]) committedState() any        { return d.buf.committedState() }
func (d *cellDependency[T, R]) isParentCombination() bool  { return false }
func (d *cellDependency[T, R]) parentEnabled() bool        { return true }

func (d *cellDependency[T, R]) onParentEnabledChange(func(bool)) *Subscription {
	return &Subscription{}
}

func (d *cellDependency[T, R]) commit() { d.stashed = d.buf.commit() }

func (d *cellDependency[T, R]) resolve(ctx Context) (Delta[R], error) {
	return d.resolver(ctx, d.stashed)
}

// DependencySpec is the type-erased handle CollectionDep/CellDep hand back
// for ProjectionEngine construction: it captures T behind a closure while
// exposing only the engine's own output type R.
type DependencySpec[R comparable] struct {
	build func() dependency[R]
}

// ProjectionEngineConfig configures a new ProjectionEngine.
type ProjectionEngineConfig[R comparable] struct {
	Dependencies []DependencySpec[R]
	Label        string
	Logger       logr.Logger
	Enabled      *bool
}

// ProjectionEngine is a generalized async resolver-dispatch combinator:
// each registered dependency carries its own buffer and resolver; the sync
// worker repeatedly commits one buffered dependency at a time, snapshots
// the full context, calls its resolver and applies the result, until no
// dependency has anything buffered.
type ProjectionEngine[R comparable] struct {
	*Combination[R]

	deps       []dependency[R]
	parentSubs []*Subscription

	queue   workqueue.TypedRateLimitingInterface[int]
	syncing bool
}

// NewProjectionEngine builds the engine and wires every dependency's
// attach/detach into the combination's activate/deactivate lifecycle.
func NewProjectionEngine[R comparable](cfg ProjectionEngineConfig[R]) (*ProjectionEngine[R], error) {
	if len(cfg.Dependencies) == 0 {
		return nil, opErr("ProjectionEngine", cfg.Label, "New", ErrNoDependencies)
	}

	e := &ProjectionEngine[R]{
		queue: workqueue.NewTypedRateLimitingQueue[int](workqueue.DefaultTypedControllerRateLimiter[int]()),
	}
	for _, spec := range cfg.Dependencies {
		e.deps = append(e.deps, spec.build())
	}

	// Parent-combination cascade subscriptions are wired once, for the
	// engine's whole lifetime, not per activate/deactivate cycle: the
	// closures below only call e.notifyParentsChanged once e.Combination
	// exists below, never synchronously from Subscribe itself, so it is
	// safe to register them before newCombination runs its initial
	// recompute. Re-subscribing on every activate and cancelling on every
	// deactivate would leave the engine deaf to its own parent's signal
	// right when that parent re-enables, since the cancel happens as part
	// of the very deactivate the parent's disable triggered.
	for _, d := range e.deps {
		if d.isParentCombination() {
			e.parentSubs = append(e.parentSubs, d.onParentEnabledChange(func(bool) { e.notifyParentsChanged() }))
		}
	}

	// Built disabled and enabled afterwards: activate's sync pass reaches the
	// result through e.Combination, which is only set once newCombination
	// returns.
	e.Combination = newCombination(
		baseConfig[R]{Label: cfg.Label, Logger: cfg.Logger, Enabled: false, Kind: "projection"},
		e.parentsEnabled,
		e.activate,
		e.deactivate,
	)
	if resolveEnabled(cfg.Enabled) {
		e.Enable()
	}
	return e, nil
}

// parentsEnabled cascades strictly: every dependency that is itself a
// combination must be enabled, unlike Union/Intersection/Difference, which
// only exclude a disabled source from their occurrence count (see
// DESIGN.md for why the two combinator families disagree here).
func (e *ProjectionEngine[R]) parentsEnabled() bool {
	for _, d := range e.deps {
		if d.isParentCombination() && !d.parentEnabled() {
			return false
		}
	}
	return true
}

// activate re-initializes every dependency as if the engine were freshly
// constructed: reset clears any resolver-closure state left over from a
// prior activation before attach re-seeds the buffer with the dependency's
// full current contents, so the replayed increment is counted from zero.
func (e *ProjectionEngine[R]) activate() {
	for _, d := range e.deps {
		d.reset()
		d.attach(e.notify)
	}
	e.notify()
}

// deactivate detaches every dependency's buffer. It deliberately leaves
// parentSubs alone: those subscriptions are wired once for the engine's
// lifetime in NewProjectionEngine, not per activate/deactivate cycle.
func (e *ProjectionEngine[R]) deactivate() {
	for _, d := range e.deps {
		d.detach()
	}
}

// wake schedules a sync pass. Re-entrant calls while a pass is already
// running are coalesced by the underlying queue.
func (e *ProjectionEngine[R]) wake() {
	e.queue.Add(0)
}

// notify is the callback every dependency buffer is attached with: it
// schedules a pass and immediately runs the drain loop, relying on
// drain's own syncing guard to coalesce re-entrant calls (e.g. a resolver's
// applyInternal triggering a downstream dependency's own notify
// synchronously). Without the drain() call here, a buffered change would
// sit on the queue forever — nothing else ever drains it.
func (e *ProjectionEngine[R]) notify() {
	e.wake()
	e.drain()
}

// drain runs the sync worker until no dependency has a buffered change
// left. The engine is
// single-threaded-cooperative, so the workqueue here is not a
// producer/consumer channel to a background worker: it is the re-entrancy
// latch. wake() calls that arrive while a drain is already in progress
// just add to the (deduplicated) queue; the in-flight drain's scan loop is
// what actually picks up the new work, so drain never needs to block
// waiting for a future Add.
func (e *ProjectionEngine[R]) drain() {
	if e.syncing {
		return
	}
	e.syncing = true
	defer func() { e.syncing = false }()

	for e.queue.Len() > 0 {
		item, shutdown := e.queue.Get()
		if shutdown {
			return
		}
		e.queue.Done(item)
		e.queue.Forget(item)

		for e.syncPass() {
		}
	}
}

// syncPass commits the first dependency with a buffered change, in
// declaration order, and applies its resolver's output. It returns true if
// it did any work, so the caller knows to rescan for more.
func (e *ProjectionEngine[R]) syncPass() bool {
	for _, d := range e.deps {
		if !d.hasBuffered() {
			continue
		}

		d.commit()
		ctx := e.snapshotContext()
		var panicked any
		resolved, err := func() (Delta[R], error) {
			defer func() { panicked = recover() }()
			return d.resolve(ctx)
		}()
		if err != nil || panicked != nil {
			e.Combination.log.Error(opErr("ProjectionEngine", e.Label(), "resolve", ErrResolverFailure),
				"resolver failed, disabling", "dependency", d.name(), "cause", err, "panic", panicked)
			e.Disable()
			return false
		}
		if resolved.Increment.Len() > 0 || resolved.Decrement.Len() > 0 {
			e.Combination.Result().applyInternal(resolved)
		}
		return true
	}
	return false
}

func (e *ProjectionEngine[R]) snapshotContext() Context {
	ctx := make(Context, len(e.deps))
	for _, d := range e.deps {
		ctx[d.name()] = d.committedState()
	}
	return ctx
}

