package projection

import (
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/GirishKotra/dynamic-read/errors"
	"github.com/GirishKotra/dynamic-read/schema"
	"github.com/GirishKotra/dynamic-read/selection"
)

// newEventGraph builds the event-tracking fixture schema:
// Event -> EventType/EventCause/User, with EventType and EventCause each
// pointing back at User through createdBy.
func newEventGraph(t *testing.T) *schema.Graph {
	t.Helper()

	graph := schema.NewGraph()
	require.NoError(t, graph.Register(schema.MustEntity("User", "id",
		schema.Scalar("id"),
		schema.Scalar("username"),
	)))
	require.NoError(t, graph.Register(schema.MustEntity("EventType", "id",
		schema.Scalar("id"),
		schema.Scalar("name"),
		schema.ToOne("createdBy", "User"),
	)))
	require.NoError(t, graph.Register(schema.MustEntity("EventCause", "id",
		schema.Scalar("id"),
		schema.Scalar("name"),
		schema.ToOne("createdBy", "User"),
	)))
	require.NoError(t, graph.Register(schema.MustEntity("Event", "id",
		schema.Scalar("id"),
		schema.ToOne("type", "EventType"),
		schema.ToMany("causes", "EventCause"),
		schema.ToOne("owner", "User"),
	)))
	require.NoError(t, graph.Finalize())
	return graph
}

func mustSpec(t *testing.T, include, omit []string) selection.Spec {
	t.Helper()
	spec, err := selection.Parse(include, omit)
	require.NoError(t, err)
	return spec
}

func userTree() *Tree {
	return &Tree{Entity: "User", Fields: []string{"id", "username"}}
}

func TestProject_FullSelection(t *testing.T) {
	projector := NewProjector(newEventGraph(t))

	tree, err := projector.Project("Event", selection.Spec{})
	require.NoError(t, err)

	expected := &Tree{
		Entity: "Event",
		Fields: []string{"id"},
		Relations: map[string]*Tree{
			"type": {
				Entity: "EventType",
				Fields: []string{"id", "name"},
				Relations: map[string]*Tree{
					"createdBy": userTree(),
				},
			},
			"causes": {
				Entity: "EventCause",
				Fields: []string{"id", "name"},
				Relations: map[string]*Tree{
					"createdBy": userTree(),
				},
			},
			"owner": userTree(),
		},
	}

	if diff := cmp.Diff(expected, tree); diff != "" {
		t.Errorf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestProject_IncludeFilter(t *testing.T) {
	projector := NewProjector(newEventGraph(t))

	tree, err := projector.Project("Event", mustSpec(t, []string{"id", "type__name"}, nil))
	require.NoError(t, err)

	expected := &Tree{
		Entity: "Event",
		Fields: []string{"id"},
		Relations: map[string]*Tree{
			"type": {
				// Identifier retained despite not being included
				Entity: "EventType",
				Fields: []string{"id", "name"},
			},
		},
	}

	if diff := cmp.Diff(expected, tree); diff != "" {
		t.Errorf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestProject_OmitFilter(t *testing.T) {
	projector := NewProjector(newEventGraph(t))

	tree, err := projector.Project("Event",
		mustSpec(t, nil, []string{"type", "causes__createdBy"}))
	require.NoError(t, err)

	expected := &Tree{
		Entity: "Event",
		Fields: []string{"id"},
		Relations: map[string]*Tree{
			"causes": {
				Entity: "EventCause",
				Fields: []string{"id", "name"},
			},
			"owner": userTree(),
		},
	}

	if diff := cmp.Diff(expected, tree); diff != "" {
		t.Errorf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestProject_OmitReachesThroughInclude(t *testing.T) {
	projector := NewProjector(newEventGraph(t))

	// fields=id,type with omit=type__createdBy: include keeps type, omit
	// prunes inside it.
	tree, err := projector.Project("Event",
		mustSpec(t, []string{"id", "type"}, []string{"type__createdBy"}))
	require.NoError(t, err)

	expected := &Tree{
		Entity: "Event",
		Fields: []string{"id"},
		Relations: map[string]*Tree{
			"type": {
				Entity: "EventType",
				Fields: []string{"id", "name"},
			},
		},
	}

	if diff := cmp.Diff(expected, tree); diff != "" {
		t.Errorf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestProject_OmitWinsOverInclude(t *testing.T) {
	projector := NewProjector(newEventGraph(t))

	// The same leaf named by both include and omit is excluded.
	tree, err := projector.Project("Event",
		mustSpec(t, []string{"id", "owner"}, []string{"owner"}))
	require.NoError(t, err)

	expected := &Tree{
		Entity: "Event",
		Fields: []string{"id"},
	}

	if diff := cmp.Diff(expected, tree); diff != "" {
		t.Errorf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestProject_OmitOutsideIncludeIsNoop(t *testing.T) {
	projector := NewProjector(newEventGraph(t))

	// owner is already excluded by the include filter; omitting it too
	// changes nothing and is not an error.
	tree, err := projector.Project("Event",
		mustSpec(t, []string{"id"}, []string{"owner"}))
	require.NoError(t, err)

	expected := &Tree{Entity: "Event", Fields: []string{"id"}}
	if diff := cmp.Diff(expected, tree); diff != "" {
		t.Errorf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestProject_IdentifierInvariance(t *testing.T) {
	projector := NewProjector(newEventGraph(t))

	// The identifier cannot be omitted, at any depth.
	tree, err := projector.Project("Event",
		mustSpec(t, nil, []string{"id", "type__id"}))
	require.NoError(t, err)

	assert.True(t, tree.HasField("id"))
	require.NotNil(t, tree.Relation("type"))
	assert.True(t, tree.Relation("type").HasField("id"))
}

func TestProject_IncludeBareRelationExpandsChild(t *testing.T) {
	projector := NewProjector(newEventGraph(t))

	tree, err := projector.Project("Event", mustSpec(t, []string{"causes"}, nil))
	require.NoError(t, err)

	expected := &Tree{
		Entity: "Event",
		Fields: []string{"id"},
		Relations: map[string]*Tree{
			"causes": {
				Entity: "EventCause",
				Fields: []string{"id", "name"},
				Relations: map[string]*Tree{
					"createdBy": userTree(),
				},
			},
		},
	}

	if diff := cmp.Diff(expected, tree); diff != "" {
		t.Errorf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestProject_UnknownFieldsIgnoredByDefault(t *testing.T) {
	projector := NewProjector(newEventGraph(t), WithLogger(slog.Default()))

	tree, err := projector.Project("Event",
		mustSpec(t, []string{"id", "bogus", "type__nope"}, []string{"alsobogus"}))
	require.NoError(t, err)

	expected := &Tree{
		Entity: "Event",
		Fields: []string{"id"},
		Relations: map[string]*Tree{
			"type": {
				Entity: "EventType",
				Fields: []string{"id"},
			},
		},
	}

	if diff := cmp.Diff(expected, tree); diff != "" {
		t.Errorf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestProject_StrictMode(t *testing.T) {
	projector := NewProjector(newEventGraph(t), WithStrict())

	_, err := projector.Project("Event", mustSpec(t, []string{"bogus"}, nil))
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrUnknownField))
	assert.True(t, pkgerrors.IsInvalid(err))

	_, err = projector.Project("Event", mustSpec(t, nil, []string{"type__nope"}))
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrUnknownField))

	// Deeper path into a scalar is an unknown path under strict mode
	_, err = projector.Project("Event", mustSpec(t, []string{"id__sub"}, nil))
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrUnknownField))
}

func TestProject_IdentifierAlias(t *testing.T) {
	projector := NewProjector(newEventGraph(t))

	tree, err := projector.Project("Event", mustSpec(t, []string{"owner_id"}, nil))
	require.NoError(t, err)

	expected := &Tree{
		Entity: "Event",
		Fields: []string{"id"},
		Relations: map[string]*Tree{
			"owner": {
				Entity: "User",
				Fields: []string{"id"},
			},
		},
	}

	if diff := cmp.Diff(expected, tree); diff != "" {
		t.Errorf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestProject_IdentifierAliasDisabled(t *testing.T) {
	projector := NewProjector(newEventGraph(t), WithRefSuffix(""))

	tree, err := projector.Project("Event", mustSpec(t, []string{"owner_id"}, nil))
	require.NoError(t, err)

	// owner_id is just an unknown field without aliasing
	expected := &Tree{Entity: "Event", Fields: []string{"id"}}
	if diff := cmp.Diff(expected, tree); diff != "" {
		t.Errorf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestProject_DeclaredFieldShadowsAlias(t *testing.T) {
	graph := schema.NewGraph()
	require.NoError(t, graph.Register(schema.MustEntity("User", "id",
		schema.Scalar("id"),
	)))
	require.NoError(t, graph.Register(schema.MustEntity("Ticket", "id",
		schema.Scalar("id"),
		schema.Scalar("owner_id"),
		schema.ToOne("owner", "User"),
	)))
	require.NoError(t, graph.Finalize())

	projector := NewProjector(graph)
	tree, err := projector.Project("Ticket", mustSpec(t, []string{"owner_id"}, nil))
	require.NoError(t, err)

	// The declared scalar wins; no relation is pulled in.
	expected := &Tree{Entity: "Ticket", Fields: []string{"id", "owner_id"}}
	if diff := cmp.Diff(expected, tree); diff != "" {
		t.Errorf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestProject_CyclicSchema(t *testing.T) {
	graph := schema.NewGraph()
	require.NoError(t, graph.Register(schema.MustEntity("Employee", "id",
		schema.Scalar("id"),
		schema.Scalar("name"),
		schema.ToOne("manager", "Employee"),
		schema.ToOne("department", "Department"),
	)))
	require.NoError(t, graph.Register(schema.MustEntity("Department", "id",
		schema.Scalar("id"),
		schema.Scalar("name"),
		schema.ToMany("members", "Employee"),
	)))
	require.NoError(t, graph.Finalize())

	projector := NewProjector(graph)

	// Full expansion terminates: once an entity repeats on the ancestor
	// path it collapses to an identifier-only reference.
	tree, err := projector.Project("Employee", selection.Spec{})
	require.NoError(t, err)

	manager := tree.Relation("manager")
	require.NotNil(t, manager)
	assert.Equal(t, []string{"id"}, manager.Fields)
	assert.Empty(t, manager.Relations)

	dept := tree.Relation("department")
	require.NotNil(t, dept)
	members := dept.Relation("members")
	require.NotNil(t, members)
	assert.Equal(t, []string{"id"}, members.Fields)

	// An explicit include drives expansion past the cycle guard.
	tree, err = projector.Project("Employee",
		mustSpec(t, []string{"id", "manager__name"}, nil))
	require.NoError(t, err)
	manager = tree.Relation("manager")
	require.NotNil(t, manager)
	assert.Equal(t, []string{"id", "name"}, manager.Fields)
}

func TestProject_UnknownEntity(t *testing.T) {
	projector := NewProjector(newEventGraph(t))

	_, err := projector.Project("Missing", selection.Spec{})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrUnknownEntity))
	assert.True(t, pkgerrors.IsFatal(err))
}

func TestProject_Idempotent(t *testing.T) {
	projector := NewProjector(newEventGraph(t))
	spec := mustSpec(t, []string{"id", "type__name"}, []string{"causes"})

	first, err := projector.Project("Event", spec)
	require.NoError(t, err)
	second, err := projector.Project("Event", spec)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("projection not idempotent (-first +second):\n%s", diff)
	}
}
