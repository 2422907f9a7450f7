// Package projection computes pruned field trees. Given an entity schema
// and a selection, the Projector decides which scalar fields and which
// relation subtrees survive into the response shape.
package projection

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/GirishKotra/dynamic-read/errors"
	"github.com/GirishKotra/dynamic-read/schema"
	"github.com/GirishKotra/dynamic-read/selection"
)

// Tree is the pruned output shape for one entity. Fields holds retained
// scalar field names in declaration order; Relations maps retained relation
// field names to their child trees. Trees are immutable once computed and
// are shared read-only across callers.
type Tree struct {
	Entity    string           `json:"entity"`
	Fields    []string         `json:"fields"`
	Relations map[string]*Tree `json:"relations,omitempty"`
}

// HasField reports whether a scalar field was retained.
func (t *Tree) HasField(name string) bool {
	for _, f := range t.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Relation returns the child tree for a retained relation, or nil.
func (t *Tree) Relation(name string) *Tree {
	return t.Relations[name]
}

// Projector computes projection trees against a finalized schema graph.
type Projector struct {
	graph     *schema.Graph
	strict    bool
	refSuffix string
	logger    *slog.Logger
}

// Option configures a Projector.
type Option func(*Projector)

// WithStrict makes references to unknown fields in selection paths fail
// with ErrUnknownField instead of being silently ignored. Intended for
// tooling and debugging, not for serving traffic.
func WithStrict() Option {
	return func(p *Projector) {
		p.strict = true
	}
}

// WithRefSuffix sets the suffix used for identifier aliasing: an include
// segment "owner_id" whose base "owner" is a relation selects the relation
// reduced to its identifier field. An empty suffix disables aliasing.
func WithRefSuffix(suffix string) Option {
	return func(p *Projector) {
		p.refSuffix = suffix
	}
}

// WithLogger sets the logger used for diagnostics on ignored paths.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Projector) {
		p.logger = logger
	}
}

// NewProjector creates a projector over the given schema graph.
func NewProjector(graph *schema.Graph, opts ...Option) *Projector {
	p := &Projector{
		graph:     graph,
		refSuffix: "_id",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Project computes the pruned tree for an entity under a selection.
// Include acts as a positive filter first; omit subtracts second, at any
// depth. The entity's identifier field is always retained.
func (p *Projector) Project(entityName string, spec selection.Spec) (*Tree, error) {
	entity, err := p.graph.Resolve(entityName)
	if err != nil {
		return nil, err
	}

	include := splitPaths(spec.Include())
	omit := splitPaths(spec.Omit())
	ancestors := map[string]bool{}

	return p.project(entity, include, omit, ancestors)
}

// splitPaths breaks canonical dotted paths into segment slices.
func splitPaths(paths []string) [][]string {
	if len(paths) == 0 {
		return nil
	}
	out := make([][]string, len(paths))
	for i, path := range paths {
		out[i] = strings.Split(path, selection.Separator)
	}
	return out
}

// scopedSelection is the include/omit state at one depth of the recursion.
type scopedSelection struct {
	includeAll   bool
	includeHeads map[string]bool
	omitBare     map[string]bool
	childInclude map[string][][]string
	childOmit    map[string][][]string
}

func (p *Projector) project(
	entity *schema.Entity,
	include, omit [][]string,
	ancestors map[string]bool,
) (*Tree, error) {
	scope, err := p.scopeSelection(entity, include, omit)
	if err != nil {
		return nil, err
	}

	tree := &Tree{Entity: entity.Name()}

	// An explicit include can revisit an entity already on the path; the
	// flag must then outlive the inner frame.
	if !ancestors[entity.Name()] {
		ancestors[entity.Name()] = true
		defer delete(ancestors, entity.Name())
	}

	for _, field := range entity.Fields() {
		name := field.Name
		isID := name == entity.IDField()

		retained := scope.includeAll || scope.includeHeads[name]
		if scope.omitBare[name] {
			retained = false
		}
		// Records must stay addressable: the identifier survives both
		// include filtering and omission.
		if isID {
			retained = true
		}
		if !retained {
			continue
		}

		if !field.IsRelation() {
			tree.Fields = append(tree.Fields, name)
			continue
		}

		child, err := p.projectRelation(field, scope, ancestors)
		if err != nil {
			return nil, err
		}
		if tree.Relations == nil {
			tree.Relations = make(map[string]*Tree)
		}
		tree.Relations[name] = child
	}

	return tree, nil
}

func (p *Projector) projectRelation(
	field schema.Field,
	scope *scopedSelection,
	ancestors map[string]bool,
) (*Tree, error) {
	target, err := p.graph.Resolve(field.Relation)
	if err != nil {
		return nil, err
	}

	childInclude := scope.childInclude[field.Name]
	childOmit := scope.childOmit[field.Name]

	// A cyclic schema under full expansion would recurse forever. When the
	// target is already being expanded above us and no explicit include
	// scopes into it, emit an identifier-only reference node instead.
	if len(childInclude) == 0 && ancestors[target.Name()] {
		return &Tree{
			Entity: target.Name(),
			Fields: []string{target.IDField()},
		}, nil
	}

	return p.project(target, childInclude, childOmit, ancestors)
}

// scopeSelection classifies the include/omit paths visible at this depth:
// bare segments, deeper paths handed to children, identifier aliases, and
// unknown names (ignored or fatal under strict mode).
func (p *Projector) scopeSelection(
	entity *schema.Entity,
	include, omit [][]string,
) (*scopedSelection, error) {
	scope := &scopedSelection{
		includeAll:   len(include) == 0,
		includeHeads: make(map[string]bool),
		omitBare:     make(map[string]bool),
		childInclude: make(map[string][][]string),
		childOmit:    make(map[string][][]string),
	}

	for _, path := range include {
		head := path[0]
		field, ok := entity.Field(head)
		if !ok {
			if base, idField, aliased := p.refAlias(entity, head); aliased && len(path) == 1 {
				scope.includeHeads[base] = true
				scope.childInclude[base] = append(scope.childInclude[base], []string{idField})
				continue
			}
			if err := p.unknownField(entity, head); err != nil {
				return nil, err
			}
			continue
		}

		scope.includeHeads[head] = true
		if len(path) == 1 {
			continue
		}
		if !field.IsRelation() {
			// A deeper path into a scalar keeps the scalar; the tail is
			// meaningless and treated like an unknown name.
			if err := p.unknownField(entity, strings.Join(path, selection.Separator)); err != nil {
				return nil, err
			}
			continue
		}
		scope.childInclude[head] = append(scope.childInclude[head], path[1:])
	}

	for _, path := range omit {
		head := path[0]
		field, ok := entity.Field(head)
		if !ok {
			if err := p.unknownField(entity, head); err != nil {
				return nil, err
			}
			continue
		}

		if len(path) == 1 {
			scope.omitBare[head] = true
			continue
		}
		if !field.IsRelation() {
			if err := p.unknownField(entity, strings.Join(path, selection.Separator)); err != nil {
				return nil, err
			}
			continue
		}
		scope.childOmit[head] = append(scope.childOmit[head], path[1:])
	}

	return scope, nil
}

// refAlias resolves an identifier alias like "owner_id" to its base
// relation field and the target's identifier field name. A declared field
// always takes precedence over aliasing, enforced by the caller.
func (p *Projector) refAlias(entity *schema.Entity, name string) (base, idField string, ok bool) {
	if p.refSuffix == "" {
		return "", "", false
	}
	base, found := strings.CutSuffix(name, p.refSuffix)
	if !found || base == "" {
		return "", "", false
	}
	field, exists := entity.Field(base)
	if !exists || !field.IsRelation() {
		return "", "", false
	}
	target, err := p.graph.Resolve(field.Relation)
	if err != nil {
		return "", "", false
	}
	return base, target.IDField(), true
}

// unknownField reports an unrecognized selection name: fatal in strict
// mode, logged and ignored otherwise.
func (p *Projector) unknownField(entity *schema.Entity, name string) error {
	if p.strict {
		return errors.WrapInvalid(
			fmt.Errorf("%s.%s: %w", entity.Name(), name, errors.ErrUnknownField),
			"Projector", "Project", "strict field lookup")
	}
	p.logger.Debug("Ignoring unknown selection field",
		"entity", entity.Name(),
		"field", name)
	return nil
}
