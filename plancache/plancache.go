// Package plancache memoizes projection trees and fetch plans per entity
// and selection. Computation is deduplicated so concurrent requests for the
// same key share one result, and cached entries are returned by pointer as
// shared read-only values.
package plancache

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/GirishKotra/dynamic-read/errors"
	"github.com/GirishKotra/dynamic-read/metric"
	"github.com/GirishKotra/dynamic-read/pkg/cache"
	"github.com/GirishKotra/dynamic-read/planner"
	"github.com/GirishKotra/dynamic-read/projection"
	"github.com/GirishKotra/dynamic-read/schema"
	"github.com/GirishKotra/dynamic-read/selection"
)

// Entry holds the artifacts computed for one entity and selection.
type Entry struct {
	Tree *projection.Tree `json:"tree"`
	Plan *planner.Plan    `json:"plan"`
}

// Config contains plan cache configuration.
type Config struct {
	// Cache configures the backing store.
	Cache cache.Config `json:"cache"`

	// Strict makes unknown selection fields fail instead of being ignored.
	Strict bool `json:"strict"`

	// RefSuffix is the identifier alias suffix recognized in selections.
	RefSuffix string `json:"ref_suffix"`
}

// SetDefaults fills in zero-valued fields with defaults.
func (c *Config) SetDefaults() {
	c.Cache.SetDefaults()
	if c.RefSuffix == "" {
		c.RefSuffix = "_id"
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	return c.Cache.Validate()
}

// Deps contains the dependencies for creating a PlanCache.
type Deps struct {
	// Graph is the schema graph plans are computed against. Required, and
	// must be finalized before the cache serves lookups.
	Graph *schema.Graph

	// Logger for diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Registry enables Prometheus metrics when non-nil.
	Registry *metric.MetricsRegistry
}

// PlanCache computes and memoizes fetch plans keyed by entity and
// canonical selection.
type PlanCache struct {
	graph     *schema.Graph
	projector *projection.Projector
	planner   *planner.Planner
	store     cache.Cache[*Entry]
	logger    *slog.Logger

	group singleflight

	computeDuration prometheus.Histogram
}

// New creates a PlanCache from configuration and dependencies.
func New(cfg Config, deps Deps) (*PlanCache, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Graph == nil {
		return nil, errors.WrapFatal(
			fmt.Errorf("schema graph cannot be nil"),
			"PlanCache", "New", "dependency validation")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var storeOpts []cache.Option[*Entry]
	if deps.Registry != nil {
		storeOpts = append(storeOpts, cache.WithMetrics[*Entry](deps.Registry, "plancache"))
	}
	store, err := cache.New[*Entry](cfg.Cache, storeOpts...)
	if err != nil {
		return nil, err
	}

	projectorOpts := []projection.Option{
		projection.WithRefSuffix(cfg.RefSuffix),
		projection.WithLogger(logger),
	}
	if cfg.Strict {
		projectorOpts = append(projectorOpts, projection.WithStrict())
	}

	pc := &PlanCache{
		graph:     deps.Graph,
		projector: projection.NewProjector(deps.Graph, projectorOpts...),
		planner:   planner.NewPlanner(deps.Graph),
		store:     store,
		logger:    logger,
	}

	if deps.Registry != nil {
		pc.computeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dynread",
			Subsystem: "plancache",
			Name:      "compute_duration_seconds",
			Help:      "Time spent computing a projection tree and fetch plan",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		})
		if err := deps.Registry.RegisterHistogram("plancache", "compute_duration", pc.computeDuration); err != nil {
			return nil, err
		}
	}

	return pc, nil
}

// cacheKey combines entity and canonical selection into the store key.
func cacheKey(entityName string, spec selection.Spec) string {
	return entityName + "?" + spec.Key()
}

// GetOrCompute returns the cached entry for the entity and selection,
// computing and storing it on first use. Concurrent callers with the same
// key share a single computation. The graph must be finalized.
func (pc *PlanCache) GetOrCompute(entityName string, spec selection.Spec) (*Entry, error) {
	if !pc.graph.Finalized() {
		return nil, errors.WrapFatal(
			fmt.Errorf("graph for %s: %w", entityName, errors.ErrGraphNotFinalized),
			"PlanCache", "GetOrCompute", "graph state check")
	}

	key := cacheKey(entityName, spec)
	if entry, ok := pc.store.Get(key); ok {
		return entry, nil
	}

	return pc.group.do(key, func() (*Entry, error) {
		// A racing caller may have stored the entry between the miss above
		// and acquiring the flight slot.
		if entry, ok := pc.store.Get(key); ok {
			return entry, nil
		}

		start := time.Now()
		entry, err := pc.compute(entityName, spec)
		if err != nil {
			return nil, err
		}
		if pc.computeDuration != nil {
			pc.computeDuration.Observe(time.Since(start).Seconds())
		}

		if _, err := pc.store.Set(key, entry); err != nil {
			// The entry is still usable; only memoization failed.
			pc.logger.Warn("Failed to store plan cache entry",
				"key", key,
				"error", err)
		}
		return entry, nil
	})
}

func (pc *PlanCache) compute(entityName string, spec selection.Spec) (*Entry, error) {
	tree, err := pc.projector.Project(entityName, spec)
	if err != nil {
		return nil, err
	}
	plan, err := pc.planner.Plan(tree)
	if err != nil {
		return nil, err
	}

	pc.logger.Debug("Computed fetch plan",
		"entity", entityName,
		"selection", spec.Key(),
		"joinPaths", len(plan.JoinPaths),
		"batchPaths", len(plan.BatchPaths))

	return &Entry{Tree: tree, Plan: plan}, nil
}

// PopulateDefaults precomputes the full-selection entry for every entity
// in the graph. Called once at startup, after Finalize, so the first
// request for the common case never pays the computation.
func (pc *PlanCache) PopulateDefaults() error {
	if !pc.graph.Finalized() {
		return errors.WrapFatal(
			fmt.Errorf("populate defaults: %w", errors.ErrGraphNotFinalized),
			"PlanCache", "PopulateDefaults", "graph state check")
	}

	for _, name := range pc.graph.Entities() {
		if _, err := pc.GetOrCompute(name, selection.Spec{}); err != nil {
			return err
		}
	}

	pc.logger.Info("Populated default fetch plans",
		"entities", pc.graph.Len())
	return nil
}

// Invalidate drops every cached entry.
func (pc *PlanCache) Invalidate() error {
	return pc.store.Clear()
}

// Size returns the number of cached entries.
func (pc *PlanCache) Size() int {
	return pc.store.Size()
}

// Stats returns statistics for the backing store.
func (pc *PlanCache) Stats() *cache.Statistics {
	return pc.store.Stats()
}
