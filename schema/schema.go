// Package schema describes entity types and their relations for the
// dynamic-read engine. A Graph holds every registered Entity and resolves
// relation targets by name at traversal time, so mutually referencing
// entities work without eager expansion.
package schema

import (
	"fmt"

	"github.com/GirishKotra/dynamic-read/errors"
)

// Cardinality describes how many related records a relation field can hold.
type Cardinality int

const (
	// One means at most one related record per owner. ONE chains can be
	// satisfied by a single joined query.
	One Cardinality = iota + 1
	// Many means a collection of related records. MANY hops require a
	// separate batched fetch to avoid row duplication.
	Many
)

// String returns the string representation of Cardinality
func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return "unknown"
	}
}

// Field describes a single field on an entity: either a scalar or a
// relation to another entity. Relation targets are held by name only and
// resolved through the Graph.
type Field struct {
	Name        string
	Relation    string // target entity name; empty for scalars
	Cardinality Cardinality
	Reverse     bool // relation traversed against its declared direction
}

// IsRelation reports whether the field points at another entity.
func (f Field) IsRelation() bool {
	return f.Relation != ""
}

// Scalar builds a scalar field descriptor.
func Scalar(name string) Field {
	return Field{Name: name}
}

// ToOne builds a cardinality-ONE relation field descriptor.
func ToOne(name, target string) Field {
	return Field{Name: name, Relation: target, Cardinality: One}
}

// ToMany builds a cardinality-MANY relation field descriptor.
func ToMany(name, target string) Field {
	return Field{Name: name, Relation: target, Cardinality: Many}
}

// Entity is the immutable schema of one logical entity type: its name, its
// primary identifier field, and its declared fields in order.
type Entity struct {
	name    string
	idField string
	fields  []Field
	index   map[string]int
}

// NewEntity validates and constructs an entity schema. The identifier field
// must be one of the declared scalar fields; when idField is empty it
// defaults to "id".
func NewEntity(name, idField string, fields ...Field) (*Entity, error) {
	if name == "" {
		return nil, errors.WrapFatal(
			fmt.Errorf("entity name cannot be empty"),
			"Entity", "NewEntity", "name validation")
	}
	if idField == "" {
		idField = "id"
	}

	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, errors.WrapFatal(
				fmt.Errorf("entity %s declares a field with no name", name),
				"Entity", "NewEntity", "field validation")
		}
		if _, exists := index[f.Name]; exists {
			return nil, errors.WrapFatal(
				fmt.Errorf("entity %s declares field %s twice", name, f.Name),
				"Entity", "NewEntity", "field validation")
		}
		if f.IsRelation() && f.Cardinality != One && f.Cardinality != Many {
			return nil, errors.WrapFatal(
				fmt.Errorf("relation %s.%s has no cardinality", name, f.Name),
				"Entity", "NewEntity", "field validation")
		}
		if !f.IsRelation() && f.Reverse {
			return nil, errors.WrapFatal(
				fmt.Errorf("scalar %s.%s cannot be a reverse accessor", name, f.Name),
				"Entity", "NewEntity", "field validation")
		}
		index[f.Name] = i
	}

	idx, ok := index[idField]
	if !ok {
		return nil, errors.WrapFatal(
			fmt.Errorf("entity %s does not declare identifier field %s", name, idField),
			"Entity", "NewEntity", "identifier validation")
	}
	if fields[idx].IsRelation() {
		return nil, errors.WrapFatal(
			fmt.Errorf("identifier field %s.%s must be a scalar", name, idField),
			"Entity", "NewEntity", "identifier validation")
	}

	return &Entity{
		name:    name,
		idField: idField,
		fields:  fields,
		index:   index,
	}, nil
}

// MustEntity is NewEntity that panics on error. Intended for static schema
// declarations where a bad schema is a programming error.
func MustEntity(name, idField string, fields ...Field) *Entity {
	e, err := NewEntity(name, idField, fields...)
	if err != nil {
		panic(err)
	}
	return e
}

// Name returns the entity identifier.
func (e *Entity) Name() string {
	return e.name
}

// IDField returns the name of the primary identifier field.
func (e *Entity) IDField() string {
	return e.idField
}

// Fields returns the declared fields in declaration order. The returned
// slice must not be modified.
func (e *Entity) Fields() []Field {
	return e.fields
}

// Field looks up a declared field by name.
func (e *Entity) Field(name string) (Field, bool) {
	idx, ok := e.index[name]
	if !ok {
		return Field{}, false
	}
	return e.fields[idx], true
}
