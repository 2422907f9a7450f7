// Package planner turns a projection tree into a minimal data-fetch plan:
// which relation paths can be satisfied by joins on the base query and
// which need separate batched fetches.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/GirishKotra/dynamic-read/errors"
	"github.com/GirishKotra/dynamic-read/projection"
	"github.com/GirishKotra/dynamic-read/schema"
	"github.com/GirishKotra/dynamic-read/selection"
)

// Plan is the fetch plan for one projection tree. JoinPaths are relation
// chains where every hop is cardinality ONE, satisfiable by a single joined
// query. BatchPaths contain at least one MANY hop and require a separate
// fetch keyed by parent identifiers. The sets are disjoint, sorted, and
// prefix-elided: a path implied by a longer path in the same set is
// dropped. Together they supply every relation in the tree with no
// per-row queries.
type Plan struct {
	JoinPaths  []string `json:"join_paths"`
	BatchPaths []string `json:"batch_paths"`
}

// Planner computes fetch plans against a schema graph.
type Planner struct {
	graph *schema.Graph
}

// NewPlanner creates a planner over the given schema graph.
func NewPlanner(graph *schema.Graph) *Planner {
	return &Planner{graph: graph}
}

// Plan walks the projection tree depth-first and classifies every relation
// edge by cardinality.
func (p *Planner) Plan(tree *projection.Tree) (*Plan, error) {
	if tree == nil {
		return nil, errors.WrapFatal(
			fmt.Errorf("projection tree cannot be nil"),
			"Planner", "Plan", "input validation")
	}

	join, batch, err := p.walk(tree, "")
	if err != nil {
		return nil, err
	}

	return &Plan{
		JoinPaths:  elide(join),
		BatchPaths: elide(batch),
	}, nil
}

// walk returns the join and batch paths contributed by the subtree rooted
// at tree, with every path prefixed by the accessor chain leading here.
func (p *Planner) walk(tree *projection.Tree, prefix string) (join, batch []string, err error) {
	if len(tree.Relations) == 0 {
		return nil, nil, nil
	}

	entity, err := p.graph.Resolve(tree.Entity)
	if err != nil {
		return nil, nil, err
	}

	for name, child := range tree.Relations {
		field, ok := entity.Field(name)
		if !ok || !field.IsRelation() {
			// A tree naming a relation the schema does not declare means
			// the tree and graph are out of sync, which is never request
			// input.
			return nil, nil, errors.WrapFatal(
				fmt.Errorf("%s.%s is not a declared relation", tree.Entity, name),
				"Planner", "Plan", "tree consistency check")
		}
		many := field.Cardinality == schema.Many

		subJoin, subBatch, err := p.walk(child, prefix+name+selection.Separator)
		if err != nil {
			return nil, nil, err
		}

		// ONE chains stay join-eligible; the first MANY hop demotes the
		// whole chain beneath it to a batch fetch.
		if len(subJoin) > 0 {
			if many {
				batch = append(batch, subJoin...)
			} else {
				join = append(join, subJoin...)
			}
		} else if !many {
			join = append(join, prefix+name)
		}

		if len(subBatch) > 0 {
			batch = append(batch, subBatch...)
		} else if many {
			batch = append(batch, prefix+name)
		}
	}

	return join, batch, nil
}

// elide sorts the paths and removes every path that is a strict prefix (at
// a segment boundary) of another path in the same set.
func elide(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}

	sort.Strings(paths)
	out := paths[:0]
	for i, path := range paths {
		implied := false
		for _, other := range paths[i+1:] {
			if strings.HasPrefix(other, path+selection.Separator) {
				implied = true
				break
			}
		}
		if !implied {
			out = append(out, path)
		}
	}
	return out
}
