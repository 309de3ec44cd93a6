package rxset

import "github.com/go-logr/logr"

// incOcc increments the occurrence count of v and returns the new count.
func incOcc[T comparable](occ map[T]uint32, v T) uint32 {
	occ[v]++
	return occ[v]
}

// decOcc decrements the occurrence count of v and returns the new count.
// Decrementing past zero is a contract violation, not a value the caller
// can observe and recover from: the occurrence map is internal
// bookkeeping that must always stay in sync with mounted sources.
func decOcc[T comparable](occ map[T]uint32, v T) uint32 {
	c, ok := occ[v]
	if !ok || c == 0 {
		panic("rxset: occurrence count underflow")
	}
	c--
	if c == 0 {
		delete(occ, v)
	} else {
		occ[v] = c
	}
	return c
}

// VariadicConfig configures Union and Intersection. Enabled defaults to
// true when left nil.
type VariadicConfig[T comparable] struct {
	Subsets []CollectionNode[T]
	Label   string
	Logger  logr.Logger
	Enabled *bool
}

// checkDuplicateSources enforces that no source appears twice in subsets.
// Registering the same source twice is a hard error: the
// occurrence map has no way to tell "mounted once" from "mounted twice by
// the same caller" apart from rejecting the second registration outright.
func checkDuplicateSources[T comparable](subsets []CollectionNode[T]) error {
	for i := 0; i < len(subsets); i++ {
		for j := i + 1; j < len(subsets); j++ {
			if subsets[i] == subsets[j] {
				return ErrDuplicateSource
			}
		}
	}
	return nil
}

// mountedSource tracks the bookkeeping a variadic combinator keeps per
// registered source: its onChange subscription (live only while mounted)
// and its onEnabledChange subscription (live while the combinator itself
// is active).
type mountedSource[T comparable] struct {
	node        CollectionNode[T]
	changeSub   *Subscription
	enabledSub  *Subscription
	mounted     bool
}

// Union is the variadic union combinator: a value belongs to the result
// iff it belongs to at least one included source.
type Union[T comparable] struct {
	*Combination[T]
	sources []*mountedSource[T]
	occ     map[T]uint32
}

// NewUnion creates a union over cfg.Subsets.
func NewUnion[T comparable](cfg VariadicConfig[T]) (*Union[T], error) {
	if err := checkDuplicateSources(cfg.Subsets); err != nil {
		return nil, err
	}

	u := &Union[T]{occ: map[T]uint32{}}
	for _, s := range cfg.Subsets {
		u.sources = append(u.sources, &mountedSource[T]{node: s})
	}

	// Built disabled and enabled afterwards: activate reaches the result
	// through u.Combination, which is only set once newCombination returns.
	u.Combination = newCombination(
		baseConfig[T]{Label: cfg.Label, Logger: cfg.Logger, Enabled: false, Kind: "union"},
		alwaysEnabled,
		u.activate,
		u.deactivate,
	)
	if resolveEnabled(cfg.Enabled) {
		u.Enable()
	}
	return u, nil
}

func (u *Union[T]) activate() {
	for i := range u.sources {
		u.attachEnabledWatch(i)
		if u.sources[i].node.Enabled() {
			u.mount(i)
		}
	}
}

func (u *Union[T]) deactivate() {
	for i := range u.sources {
		if u.sources[i].mounted {
			u.unmount(i)
		}
		u.sources[i].enabledSub.Cancel()
		u.sources[i].enabledSub = nil
	}
}

func (u *Union[T]) attachEnabledWatch(i int) {
	s := u.sources[i]
	s.enabledSub = s.node.OnEnabledChange(func(enabled bool) {
		if enabled && !s.mounted {
			u.mount(i)
		} else if !enabled && s.mounted {
			u.unmount(i)
		}
	})
}

func (u *Union[T]) mount(i int) {
	s := u.sources[i]
	s.mounted = true
	s.changeSub = s.node.Result().OnChange().Subscribe(func(d Delta[T]) { u.onSourceDelta(i, d) })

	incr := Set[T]{}
	for v := range s.node.Result().Values() {
		if incOcc(u.occ, v) == 1 {
			incr.addElem(v)
		}
	}
	if incr.Len() > 0 {
		u.Result().applyInternal(Delta[T]{Increment: incr})
	}
}

func (u *Union[T]) unmount(i int) {
	s := u.sources[i]
	decr := Set[T]{}
	for v := range s.node.Result().Values() {
		if decOcc(u.occ, v) == 0 {
			decr.addElem(v)
		}
	}
	s.changeSub.Cancel()
	s.changeSub = nil
	s.mounted = false
	if decr.Len() > 0 {
		u.Result().applyInternal(Delta[T]{Decrement: decr})
	}
}

func (u *Union[T]) onSourceDelta(i int, d Delta[T]) {
	incr, decr := Set[T]{}, Set[T]{}
	for v := range d.Increment {
		if incOcc(u.occ, v) == 1 {
			incr.addElem(v)
		}
	}
	for v := range d.Decrement {
		if decOcc(u.occ, v) == 0 {
			decr.addElem(v)
		}
	}
	if incr.Len() > 0 || decr.Len() > 0 {
		u.Result().applyInternal(Delta[T]{Increment: incr, Decrement: decr})
	}
}

// Intersection is the variadic intersection combinator: a value belongs to
// the result iff it belongs to every currently included source.
type Intersection[T comparable] struct {
	*Combination[T]
	sources       []*mountedSource[T]
	occ           map[T]uint32
	includedCount int
}

// NewIntersection creates an intersection over cfg.Subsets.
func NewIntersection[T comparable](cfg VariadicConfig[T]) (*Intersection[T], error) {
	if err := checkDuplicateSources(cfg.Subsets); err != nil {
		return nil, err
	}

	x := &Intersection[T]{occ: map[T]uint32{}}
	for _, s := range cfg.Subsets {
		x.sources = append(x.sources, &mountedSource[T]{node: s})
	}

	// Built disabled and enabled afterwards, as in NewUnion.
	x.Combination = newCombination(
		baseConfig[T]{Label: cfg.Label, Logger: cfg.Logger, Enabled: false, Kind: "intersection"},
		alwaysEnabled,
		x.activate,
		x.deactivate,
	)
	if resolveEnabled(cfg.Enabled) {
		x.Enable()
	}
	return x, nil
}

func (x *Intersection[T]) activate() {
	for i := range x.sources {
		x.attachEnabledWatch(i)
		if x.sources[i].node.Enabled() {
			x.mount(i)
		}
	}
}

func (x *Intersection[T]) deactivate() {
	for i := range x.sources {
		if x.sources[i].mounted {
			x.unmount(i)
		}
		x.sources[i].enabledSub.Cancel()
		x.sources[i].enabledSub = nil
	}
}

func (x *Intersection[T]) attachEnabledWatch(i int) {
	s := x.sources[i]
	s.enabledSub = s.node.OnEnabledChange(func(enabled bool) {
		if enabled && !s.mounted {
			x.mount(i)
		} else if !enabled && s.mounted {
			x.unmount(i)
		}
	})
}

// mount incorporates a newly-included source. An element absent from the
// new source can no longer be in the intersection of all included sources
// and is removed; an element whose occurrence count now reaches the new
// included count newly qualifies and is added — this is also how the first
// mounted source seeds the result with its full contents.
func (x *Intersection[T]) mount(i int) {
	s := x.sources[i]
	s.mounted = true
	s.changeSub = s.node.Result().OnChange().Subscribe(func(d Delta[T]) { x.onSourceDelta(i, d) })

	newValues := s.node.Result().Values()
	x.includedCount++

	toAdd := Set[T]{}
	for v := range newValues {
		if int(incOcc(x.occ, v)) == x.includedCount {
			toAdd.addElem(v)
		}
	}

	toRemove := x.Result().Values().Diff(newValues)

	delta := Delta[T]{}
	if toAdd.Len() > 0 {
		delta.Increment = toAdd
	}
	if toRemove.Len() > 0 {
		delta.Decrement = toRemove
	}
	if delta.Increment.Len() > 0 || delta.Decrement.Len() > 0 {
		x.Result().applyInternal(delta)
	}
}

// unmount retires a source. Elements that were excluded from the result
// only because they were missing from this source may now qualify: every
// value whose occurrence count equals the new included count becomes part
// of the intersection.
func (x *Intersection[T]) unmount(i int) {
	s := x.sources[i]
	oldValues := s.node.Result().Values()
	for v := range oldValues {
		decOcc(x.occ, v)
	}
	x.includedCount--
	s.changeSub.Cancel()
	s.changeSub = nil
	s.mounted = false

	if x.includedCount <= 0 {
		return
	}
	toAdd := Set[T]{}
	for v, c := range x.occ {
		if int(c) == x.includedCount && !x.Result().Has(v) {
			toAdd.addElem(v)
		}
	}
	if toAdd.Len() > 0 {
		x.Result().applyInternal(Delta[T]{Increment: toAdd})
	}
}

func (x *Intersection[T]) onSourceDelta(i int, d Delta[T]) {
	incr, decr := Set[T]{}, Set[T]{}
	for v := range d.Increment {
		if int(incOcc(x.occ, v)) == x.includedCount {
			incr.addElem(v)
		}
	}
	for v := range d.Decrement {
		if decOcc(x.occ, v) < uint32(x.includedCount) && x.Result().Has(v) {
			decr.addElem(v)
		}
	}
	if incr.Len() > 0 || decr.Len() > 0 {
		x.Result().applyInternal(Delta[T]{Increment: incr, Decrement: decr})
	}
}

// DifferenceConfig configures Difference: a distinguished superset and a
// variadic list of excluded sources. Enabled defaults to true when left
// nil.
type DifferenceConfig[T comparable] struct {
	Superset CollectionNode[T]
	Excluded []CollectionNode[T]
	Label    string
	Logger   logr.Logger
	Enabled  *bool
}

// Difference is the variadic difference combinator: a value belongs to the
// result iff it belongs to the superset and to none of the currently
// included excluded sources.
type Difference[T comparable] struct {
	*Combination[T]
	superset    *mountedSource[T]
	sources     []*mountedSource[T]
	occ         map[T]uint32
}

// NewDifference creates a difference of cfg.Superset minus cfg.Excluded. A
// superset also listed among the excluded sources is a warning, not a hard
// error: the combinator proceeds, which degenerates the result to empty for
// every value covered by that source.
func NewDifference[T comparable](cfg DifferenceConfig[T]) (*Difference[T], error) {
	if err := checkDuplicateSources(cfg.Excluded); err != nil {
		return nil, err
	}

	d := &Difference[T]{
		superset: &mountedSource[T]{node: cfg.Superset},
		occ:      map[T]uint32{},
	}
	for _, s := range cfg.Excluded {
		d.sources = append(d.sources, &mountedSource[T]{node: s})
		if s == cfg.Superset {
			logger := cfg.Logger
			if logger.GetSink() == nil {
				logger = logr.Discard()
			}
			logger.WithName("difference").Info("superset also registered as an excluded source", "label", cfg.Label)
		}
	}

	// Built disabled and enabled afterwards, as in NewUnion.
	d.Combination = newCombination(
		baseConfig[T]{Label: cfg.Label, Logger: cfg.Logger, Enabled: false, Kind: "difference"},
		alwaysEnabled,
		d.activate,
		d.deactivate,
	)
	if resolveEnabled(cfg.Enabled) {
		d.Enable()
	}
	return d, nil
}

func (d *Difference[T]) activate() {
	d.mountSuperset()
	for i := range d.sources {
		d.attachEnabledWatch(i)
		if d.sources[i].node.Enabled() {
			d.mount(i)
		}
	}
}

func (d *Difference[T]) deactivate() {
	for i := range d.sources {
		if d.sources[i].mounted {
			d.unmount(i)
		}
		d.sources[i].enabledSub.Cancel()
		d.sources[i].enabledSub = nil
	}
	d.unmountSuperset()
}

func (d *Difference[T]) attachEnabledWatch(i int) {
	s := d.sources[i]
	s.enabledSub = s.node.OnEnabledChange(func(enabled bool) {
		if enabled && !s.mounted {
			d.mount(i)
		} else if !enabled && s.mounted {
			d.unmount(i)
		}
	})
}

func (d *Difference[T]) mountSuperset() {
	d.superset.mounted = true
	d.superset.changeSub = d.superset.node.Result().OnChange().Subscribe(d.onSupersetDelta)

	incr := Set[T]{}
	for v := range d.superset.node.Result().Values() {
		if d.occ[v] == 0 {
			incr.addElem(v)
		}
	}
	if incr.Len() > 0 {
		d.Result().applyInternal(Delta[T]{Increment: incr})
	}
}

func (d *Difference[T]) unmountSuperset() {
	decr := d.Result().Values()
	d.superset.changeSub.Cancel()
	d.superset.changeSub = nil
	d.superset.mounted = false
	if decr.Len() > 0 {
		d.Result().applyInternal(Delta[T]{Decrement: decr})
	}
}

func (d *Difference[T]) onSupersetDelta(delta Delta[T]) {
	incr, decr := Set[T]{}, Set[T]{}
	for v := range delta.Increment {
		if d.occ[v] == 0 {
			incr.addElem(v)
		}
	}
	for v := range delta.Decrement {
		decr.addElem(v)
	}
	if incr.Len() > 0 || decr.Len() > 0 {
		d.Result().applyInternal(Delta[T]{Increment: incr, Decrement: decr})
	}
}

func (d *Difference[T]) mount(i int) {
	s := d.sources[i]
	s.mounted = true
	s.changeSub = s.node.Result().OnChange().Subscribe(func(delta Delta[T]) { d.onExcludedDelta(i, delta) })

	values := s.node.Result().Values()
	decr := Set[T]{}
	for v := range values {
		if incOcc(d.occ, v) == 1 && d.Result().Has(v) {
			decr.addElem(v)
		}
	}
	if decr.Len() > 0 {
		d.Result().applyInternal(Delta[T]{Decrement: decr})
	}
}

func (d *Difference[T]) unmount(i int) {
	s := d.sources[i]
	values := s.node.Result().Values()
	incr := Set[T]{}
	for v := range values {
		if decOcc(d.occ, v) == 0 && d.superset.node.Result().Has(v) {
			incr.addElem(v)
		}
	}
	s.changeSub.Cancel()
	s.changeSub = nil
	s.mounted = false
	if incr.Len() > 0 {
		d.Result().applyInternal(Delta[T]{Increment: incr})
	}
}

func (d *Difference[T]) onExcludedDelta(i int, delta Delta[T]) {
	incr, decr := Set[T]{}, Set[T]{}
	for v := range delta.Increment {
		if incOcc(d.occ, v) == 1 && d.Result().Has(v) {
			decr.addElem(v)
		}
	}
	for v := range delta.Decrement {
		if decOcc(d.occ, v) == 0 && d.superset.node.Result().Has(v) {
			incr.addElem(v)
		}
	}
	if incr.Len() > 0 || decr.Len() > 0 {
		d.Result().applyInternal(Delta[T]{Increment: incr, Decrement: decr})
	}
}

// alwaysEnabled is the parentsEnabled hook for variadic combinators: a
// disabled source never disables the combinator itself, it is merely
// excluded from the occurrence count.
func alwaysEnabled() bool { return true }

// resolveEnabled applies the "enabled by default" rule shared by every
// combinator factory: nil means true, otherwise take the pointee.
func resolveEnabled(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}
