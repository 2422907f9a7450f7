package schema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/GirishKotra/dynamic-read/errors"
)

// Definition is the JSON-loadable description of a schema graph. It exists
// for tooling and for applications that declare their entities in
// configuration rather than in code.
type Definition struct {
	Entities []EntityDef `json:"entities"`
}

// EntityDef describes one entity in a Definition.
type EntityDef struct {
	Name    string     `json:"name"`
	IDField string     `json:"id_field,omitempty"`
	Fields  []FieldDef `json:"fields"`
}

// FieldDef describes one field in an EntityDef.
type FieldDef struct {
	Name        string `json:"name"`
	Relation    string `json:"relation,omitempty"`
	Cardinality string `json:"cardinality,omitempty"`
	Reverse     bool   `json:"reverse,omitempty"`
}

// LoadDefinition reads and parses a schema definition from a JSON file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "Definition", "LoadDefinition", "schema file read")
	}
	return ParseDefinition(data)
}

// ParseDefinition parses a schema definition from JSON bytes.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, errors.WrapFatal(err, "Definition", "ParseDefinition", "schema JSON decode")
	}
	if len(def.Entities) == 0 {
		return nil, errors.WrapFatal(
			fmt.Errorf("definition declares no entities"),
			"Definition", "ParseDefinition", "schema validation")
	}
	return &def, nil
}

// Build constructs and finalizes a Graph from the definition.
func (d *Definition) Build() (*Graph, error) {
	graph := NewGraph()

	for _, entityDef := range d.Entities {
		fields := make([]Field, 0, len(entityDef.Fields))
		for _, fieldDef := range entityDef.Fields {
			field, err := fieldDef.toField(entityDef.Name)
			if err != nil {
				return nil, err
			}
			fields = append(fields, field)
		}

		entity, err := NewEntity(entityDef.Name, entityDef.IDField, fields...)
		if err != nil {
			return nil, err
		}
		if err := graph.Register(entity); err != nil {
			return nil, err
		}
	}

	if err := graph.Finalize(); err != nil {
		return nil, err
	}
	return graph, nil
}

func (fd FieldDef) toField(entityName string) (Field, error) {
	if fd.Relation == "" {
		if fd.Cardinality != "" {
			return Field{}, errors.WrapFatal(
				fmt.Errorf("scalar %s.%s declares cardinality %q", entityName, fd.Name, fd.Cardinality),
				"Definition", "Build", "field conversion")
		}
		return Scalar(fd.Name), nil
	}

	var cardinality Cardinality
	switch fd.Cardinality {
	case "one":
		cardinality = One
	case "many":
		cardinality = Many
	default:
		return Field{}, errors.WrapFatal(
			fmt.Errorf("relation %s.%s has cardinality %q, want one or many",
				entityName, fd.Name, fd.Cardinality),
			"Definition", "Build", "field conversion")
	}

	return Field{
		Name:        fd.Name,
		Relation:    fd.Relation,
		Cardinality: cardinality,
		Reverse:     fd.Reverse,
	}, nil
}
