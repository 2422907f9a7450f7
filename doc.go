// Package dynamicread computes sparse read shapes and fetch plans for
// entity graphs.
//
// # Pipeline
//
// A request names an entity plus optional include and omit paths
// ("fields" and "omit", nested with a double underscore). The engine turns
// that into two artifacts:
//
//   - a projection tree: which scalar fields and relation subtrees survive
//     into the response, with the identifier always retained
//   - a fetch plan: which relation chains a data layer can satisfy with
//     joins (all to-one hops) and which need separate batched fetches
//     (chains crossing a to-many hop)
//
// Both are pure functions of the schema and the canonical selection, so
// they are computed once per distinct request shape and memoized.
//
// # Packages
//
//   - schema: entity and relation declarations with a
//     register/resolve/finalize lifecycle
//   - selection: parsing and canonicalization of include/omit paths
//   - projection: pruned tree computation
//   - planner: join/batch fetch planning over projection trees
//   - plancache: memoization keyed by entity and canonical selection
//   - errors: error classification shared by all packages
//   - metric: Prometheus registry and exposition server
//   - pkg/cache: generic bounded caches backing the plan cache
//
// # Usage
//
//	graph := schema.NewGraph()
//	// register entities...
//	if err := graph.Finalize(); err != nil {
//		return err
//	}
//
//	cache, err := plancache.New(plancache.Config{}, plancache.Deps{Graph: graph})
//	if err != nil {
//		return err
//	}
//
//	spec, err := selection.Parse([]string{"id", "type__name"}, nil)
//	if err != nil {
//		return err
//	}
//	entry, err := cache.GetOrCompute("Event", spec)
package dynamicread
