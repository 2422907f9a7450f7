package schema

import (
	"fmt"
	"sort"

	"github.com/GirishKotra/dynamic-read/errors"
)

// Graph is the process-wide registry of entity schemas. It follows a
// two-phase lifecycle: Register every entity during startup, then Finalize
// exactly once before serving traffic. After Finalize the graph is
// read-only and safe for concurrent lock-free reads; Register and Finalize
// themselves are not safe to call concurrently with reads.
type Graph struct {
	entities map[string]*Entity
	frozen   bool
}

// NewGraph creates an empty schema graph.
func NewGraph() *Graph {
	return &Graph{
		entities: make(map[string]*Entity),
	}
}

// Register adds an entity schema to the graph.
func (g *Graph) Register(entity *Entity) error {
	if entity == nil {
		return errors.WrapFatal(
			fmt.Errorf("entity cannot be nil"),
			"Graph", "Register", "entity validation")
	}
	if g.frozen {
		return errors.WrapFatal(
			fmt.Errorf("cannot register %s: %w", entity.Name(), errors.ErrGraphFrozen),
			"Graph", "Register", "lifecycle check")
	}
	if _, exists := g.entities[entity.Name()]; exists {
		return errors.WrapFatal(
			fmt.Errorf("%s: %w", entity.Name(), errors.ErrDuplicateEntity),
			"Graph", "Register", "entity registration")
	}

	g.entities[entity.Name()] = entity
	return nil
}

// Resolve looks up an entity schema by name.
func (g *Graph) Resolve(name string) (*Entity, error) {
	entity, exists := g.entities[name]
	if !exists {
		return nil, errors.WrapFatal(
			fmt.Errorf("%s: %w", name, errors.ErrUnknownEntity),
			"Graph", "Resolve", "entity lookup")
	}
	return entity, nil
}

// Finalize freezes the graph and verifies that every relation target is
// registered. Relation targets are resolved lazily by name, so declaration
// order among mutually referencing entities does not matter; Finalize is
// the point where dangling references become visible.
func (g *Graph) Finalize() error {
	if g.frozen {
		return errors.WrapFatal(
			fmt.Errorf("finalize called twice: %w", errors.ErrGraphFrozen),
			"Graph", "Finalize", "lifecycle check")
	}

	for _, name := range g.names() {
		entity := g.entities[name]
		for _, field := range entity.Fields() {
			if !field.IsRelation() {
				continue
			}
			if _, exists := g.entities[field.Relation]; !exists {
				return errors.WrapFatal(
					fmt.Errorf("%s.%s -> %s: %w",
						entity.Name(), field.Name, field.Relation, errors.ErrDanglingRelation),
					"Graph", "Finalize", "relation target check")
			}
		}
	}

	g.frozen = true
	return nil
}

// Finalized reports whether the graph has been frozen.
func (g *Graph) Finalized() bool {
	return g.frozen
}

// Entities returns the names of all registered entities, sorted.
func (g *Graph) Entities() []string {
	return g.names()
}

// Len returns the number of registered entities.
func (g *Graph) Len() int {
	return len(g.entities)
}

func (g *Graph) names() []string {
	names := make([]string, 0, len(g.entities))
	for name := range g.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
