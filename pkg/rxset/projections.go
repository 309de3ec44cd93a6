package rxset

import "github.com/go-logr/logr"

// This file supplies the concrete projection factories built on top of
// ProjectionEngine: selecting a subset (or its complement) of a superset
// collection by a key held in a cell or a collection of keys, and mapping
// every element of a collection through a function. Each subset and
// complement factory keeps its own local mirror of the engine's current
// output (`current`), and MappedSet its own occurrence map, rather than
// reaching back into the engine's own result, since a resolver closure is
// captured before the engine it belongs to exists.

// SubsetViaCell projects the elements of superset whose key (via keyOf)
// equals selector's current value.
func SubsetViaCell[T comparable, K comparable](label string, superset CollectionNode[T], keyOf func(T) K, selector *Cell[K], logger logr.Logger, enabled *bool) (*ProjectionEngine[T], error) {
	current := Set[T]{}

	supersetResolver := func(ctx Context, delta Delta[T]) (Delta[T], error) {
		keyVal, _ := ctx["selector"].(*CellValue[K])
		incr, decr := Set[T]{}, Set[T]{}
		if keyVal != nil {
			for v := range delta.Increment {
				if keyOf(v) == keyVal.Value {
					incr.addElem(v)
					current.addElem(v)
				}
			}
		}
		for v := range delta.Decrement {
			if current.Has(v) {
				decr.addElem(v)
				delete(current, v)
			}
		}
		return Delta[T]{Increment: incr, Decrement: decr}, nil
	}

	selectorResolver := func(ctx Context, delta CellDelta[K]) (Delta[T], error) {
		supersetVals, _ := ctx["superset"].(Set[T])
		target := Set[T]{}
		if delta.Increment != nil {
			for v := range supersetVals {
				if keyOf(v) == delta.Increment.Value {
					target.addElem(v)
				}
			}
		}
		incr, decr := target.Diff(current), current.Diff(target)
		current = target
		return Delta[T]{Increment: incr, Decrement: decr}, nil
	}

	resetCurrent := func() { current = Set[T]{} }

	return NewProjectionEngine(ProjectionEngineConfig[T]{
		Label:   label,
		Logger:  logger,
		Enabled: enabled,
		Dependencies: []DependencySpec[T]{
			CollectionDep[T, T]("superset", superset, supersetResolver, resetCurrent),
			CellDep[K, T]("selector", selector, selectorResolver, resetCurrent),
		},
	})
}

// SubsetViaCollection projects the elements of superset whose key (via
// keyOf) belongs to the current contents of selector.
func SubsetViaCollection[T comparable, K comparable](label string, superset CollectionNode[T], keyOf func(T) K, selector CollectionNode[K], logger logr.Logger, enabled *bool) (*ProjectionEngine[T], error) {
	current := Set[T]{}
	selectedKeys := Set[K]{}

	supersetResolver := func(ctx Context, delta Delta[T]) (Delta[T], error) {
		incr, decr := Set[T]{}, Set[T]{}
		for v := range delta.Increment {
			if selectedKeys.Has(keyOf(v)) {
				incr.addElem(v)
				current.addElem(v)
			}
		}
		for v := range delta.Decrement {
			if current.Has(v) {
				decr.addElem(v)
				delete(current, v)
			}
		}
		return Delta[T]{Increment: incr, Decrement: decr}, nil
	}

	selectorResolver := func(ctx Context, delta Delta[K]) (Delta[T], error) {
		selectedKeys = selectedKeys.Union(delta.Increment).Diff(delta.Decrement)
		supersetVals, _ := ctx["superset"].(Set[T])
		target := Set[T]{}
		for v := range supersetVals {
			if selectedKeys.Has(keyOf(v)) {
				target.addElem(v)
			}
		}
		incr, decr := target.Diff(current), current.Diff(target)
		current = target
		return Delta[T]{Increment: incr, Decrement: decr}, nil
	}

	reset := func() {
		current = Set[T]{}
		selectedKeys = Set[K]{}
	}

	return NewProjectionEngine(ProjectionEngineConfig[T]{
		Label:   label,
		Logger:  logger,
		Enabled: enabled,
		Dependencies: []DependencySpec[T]{
			CollectionDep[T, T]("superset", superset, supersetResolver, reset),
			CollectionDep[K, T]("selector", selector, selectorResolver, reset),
		},
	})
}

// ComplementViaCell projects the elements of superset whose key does NOT
// equal excluded's current value.
func ComplementViaCell[T comparable, K comparable](label string, superset CollectionNode[T], keyOf func(T) K, excluded *Cell[K], logger logr.Logger, enabled *bool) (*ProjectionEngine[T], error) {
	current := Set[T]{}

	supersetResolver := func(ctx Context, delta Delta[T]) (Delta[T], error) {
		keyVal, _ := ctx["excluded"].(*CellValue[K])
		incr, decr := Set[T]{}, Set[T]{}
		for v := range delta.Increment {
			if keyVal == nil || keyOf(v) != keyVal.Value {
				incr.addElem(v)
				current.addElem(v)
			}
		}
		for v := range delta.Decrement {
			if current.Has(v) {
				decr.addElem(v)
				delete(current, v)
			}
		}
		return Delta[T]{Increment: incr, Decrement: decr}, nil
	}

	excludedResolver := func(ctx Context, delta CellDelta[K]) (Delta[T], error) {
		supersetVals, _ := ctx["superset"].(Set[T])
		target := Set[T]{}
		for v := range supersetVals {
			if delta.Increment == nil || keyOf(v) != delta.Increment.Value {
				target.addElem(v)
			}
		}
		incr, decr := target.Diff(current), current.Diff(target)
		current = target
		return Delta[T]{Increment: incr, Decrement: decr}, nil
	}

	resetCurrent := func() { current = Set[T]{} }

	return NewProjectionEngine(ProjectionEngineConfig[T]{
		Label:   label,
		Logger:  logger,
		Enabled: enabled,
		Dependencies: []DependencySpec[T]{
			CollectionDep[T, T]("superset", superset, supersetResolver, resetCurrent),
			CellDep[K, T]("excluded", excluded, excludedResolver, resetCurrent),
		},
	})
}

// ComplementViaCollection projects the elements of superset whose key does
// NOT belong to the current contents of excluded.
func ComplementViaCollection[T comparable, K comparable](label string, superset CollectionNode[T], keyOf func(T) K, excluded CollectionNode[K], logger logr.Logger, enabled *bool) (*ProjectionEngine[T], error) {
	current := Set[T]{}
	excludedKeys := Set[K]{}

	supersetResolver := func(ctx Context, delta Delta[T]) (Delta[T], error) {
		incr, decr := Set[T]{}, Set[T]{}
		for v := range delta.Increment {
			if !excludedKeys.Has(keyOf(v)) {
				incr.addElem(v)
				current.addElem(v)
			}
		}
		for v := range delta.Decrement {
			if current.Has(v) {
				decr.addElem(v)
				delete(current, v)
			}
		}
		return Delta[T]{Increment: incr, Decrement: decr}, nil
	}

	excludedResolver := func(ctx Context, delta Delta[K]) (Delta[T], error) {
		excludedKeys = excludedKeys.Union(delta.Increment).Diff(delta.Decrement)
		supersetVals, _ := ctx["superset"].(Set[T])
		target := Set[T]{}
		for v := range supersetVals {
			if !excludedKeys.Has(keyOf(v)) {
				target.addElem(v)
			}
		}
		incr, decr := target.Diff(current), current.Diff(target)
		current = target
		return Delta[T]{Increment: incr, Decrement: decr}, nil
	}

	reset := func() {
		current = Set[T]{}
		excludedKeys = Set[K]{}
	}

	return NewProjectionEngine(ProjectionEngineConfig[T]{
		Label:   label,
		Logger:  logger,
		Enabled: enabled,
		Dependencies: []DependencySpec[T]{
			CollectionDep[T, T]("superset", superset, supersetResolver, reset),
			CollectionDep[K, T]("excluded", excluded, excludedResolver, reset),
		},
	})
}

// MappedSet projects every element of source through mapFn, keeping an
// output value present for as long as at least one source element maps to
// it (occurrence counted the same way Union counts source membership).
func MappedSet[T comparable, R comparable](label string, source CollectionNode[T], mapFn func(T) R, logger logr.Logger, enabled *bool) (*ProjectionEngine[R], error) {
	occ := map[R]uint32{}

	resolver := func(ctx Context, delta Delta[T]) (Delta[R], error) {
		incr, decr := Set[R]{}, Set[R]{}
		for v := range delta.Increment {
			if incOcc(occ, mapFn(v)) == 1 {
				incr.addElem(mapFn(v))
			}
		}
		for v := range delta.Decrement {
			if decOcc(occ, mapFn(v)) == 0 {
				decr.addElem(mapFn(v))
			}
		}
		return Delta[R]{Increment: incr, Decrement: decr}, nil
	}

	resetOcc := func() { occ = map[R]uint32{} }

	return NewProjectionEngine(ProjectionEngineConfig[R]{
		Label:   label,
		Logger:  logger,
		Enabled: enabled,
		Dependencies: []DependencySpec[R]{
			CollectionDep[T, R]("source", source, resolver, resetOcc),
		},
	})
}
