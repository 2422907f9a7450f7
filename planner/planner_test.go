package planner

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/GirishKotra/dynamic-read/errors"
	"github.com/GirishKotra/dynamic-read/projection"
	"github.com/GirishKotra/dynamic-read/schema"
	"github.com/GirishKotra/dynamic-read/selection"
)

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

// projectEvent runs the projector so plans are computed from the same trees
// the rest of the pipeline produces.
func projectEvent(t *testing.T, graph *schema.Graph, include, omit []string) *projection.Tree {
	t.Helper()
	spec, err := selection.Parse(include, omit)
	require.NoError(t, err)
	tree, err := projection.NewProjector(graph).Project("Event", spec)
	require.NoError(t, err)
	return tree
}

func TestPlan_FullTree(t *testing.T) {
	graph := newEventGraph(t)
	tree := projectEvent(t, graph, nil, nil)

	plan, err := NewPlanner(graph).Plan(tree)
	require.NoError(t, err)

	expected := &Plan{
		JoinPaths:  []string{"owner", "type__createdBy"},
		BatchPaths: []string{"causes__createdBy"},
	}
	if diff := cmp.Diff(expected, plan); diff != "" {
		t.Errorf("unexpected plan (-want +got):\n%s", diff)
	}
}

func TestPlan_PrunedTree(t *testing.T) {
	graph := newEventGraph(t)
	tree := projectEvent(t, graph, nil, []string{"type__createdBy", "causes"})

	plan, err := NewPlanner(graph).Plan(tree)
	require.NoError(t, err)

	expected := &Plan{
		JoinPaths:  []string{"owner", "type"},
		BatchPaths: nil,
	}
	if diff := cmp.Diff(expected, plan); diff != "" {
		t.Errorf("unexpected plan (-want +got):\n%s", diff)
	}
}

func TestPlan_NoRelations(t *testing.T) {
	graph := newEventGraph(t)
	tree := projectEvent(t, graph, []string{"id"}, nil)

	plan, err := NewPlanner(graph).Plan(tree)
	require.NoError(t, err)

	assert.Empty(t, plan.JoinPaths)
	assert.Empty(t, plan.BatchPaths)
}

func TestPlan_PrefixElision(t *testing.T) {
	graph := newEventGraph(t)
	// type and type__createdBy both survive projection; the shorter path is
	// implied by the longer one.
	tree := projectEvent(t, graph, []string{"type", "type__createdBy__username"}, nil)

	plan, err := NewPlanner(graph).Plan(tree)
	require.NoError(t, err)

	assert.Equal(t, []string{"type__createdBy"}, plan.JoinPaths)
	assert.Empty(t, plan.BatchPaths)
}

func TestPlan_ManyHopNeverJoins(t *testing.T) {
	graph := schema.NewGraph()
	require.NoError(t, graph.Register(schema.MustEntity("Country", "id",
		schema.Scalar("id"),
		schema.Scalar("name"),
	)))
	require.NoError(t, graph.Register(schema.MustEntity("Author", "id",
		schema.Scalar("id"),
		schema.ToOne("country", "Country"),
	)))
	require.NoError(t, graph.Register(schema.MustEntity("Book", "id",
		schema.Scalar("id"),
		schema.ToMany("authors", "Author"),
	)))
	require.NoError(t, graph.Register(schema.MustEntity("Shelf", "id",
		schema.Scalar("id"),
		schema.ToOne("featured", "Book"),
	)))
	require.NoError(t, graph.Finalize())

	spec, err := selection.Parse(nil, nil)
	require.NoError(t, err)
	tree, err := projection.NewProjector(graph).Project("Shelf", spec)
	require.NoError(t, err)

	plan, err := NewPlanner(graph).Plan(tree)
	require.NoError(t, err)

	// featured is a ONE hop, but everything below the MANY hop authors is
	// batched, including the ONE chain that continues past it.
	expected := &Plan{
		JoinPaths:  []string{"featured"},
		BatchPaths: []string{"featured__authors__country"},
	}
	if diff := cmp.Diff(expected, plan); diff != "" {
		t.Errorf("unexpected plan (-want +got):\n%s", diff)
	}
}

func TestPlan_DisjointSets(t *testing.T) {
	graph := newEventGraph(t)
	tree := projectEvent(t, graph, nil, nil)

	plan, err := NewPlanner(graph).Plan(tree)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, path := range plan.JoinPaths {
		seen[path] = true
	}
	for _, path := range plan.BatchPaths {
		assert.False(t, seen[path], "path %q appears in both sets", path)
	}
}

func TestPlan_NilTree(t *testing.T) {
	graph := newEventGraph(t)

	_, err := NewPlanner(graph).Plan(nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsFatal(err))
}

func TestPlan_TreeGraphMismatch(t *testing.T) {
	graph := newEventGraph(t)

	tree := &projection.Tree{
		Entity: "Event",
		Fields: []string{"id"},
		Relations: map[string]*projection.Tree{
			"ghost": {Entity: "User", Fields: []string{"id"}},
		},
	}

	_, err := NewPlanner(graph).Plan(tree)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsFatal(err))
}

func TestPlan_UnknownEntityInTree(t *testing.T) {
	graph := newEventGraph(t)

	tree := &projection.Tree{
		Entity: "Missing",
		Fields: []string{"id"},
		Relations: map[string]*projection.Tree{
			"x": {Entity: "User", Fields: []string{"id"}},
		},
	}

	_, err := NewPlanner(graph).Plan(tree)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrUnknownEntity))
}

func TestElide(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{
			name:  "empty",
			paths: nil,
			want:  nil,
		},
		{
			name:  "no overlap",
			paths: []string{"b", "a"},
			want:  []string{"a", "b"},
		},
		{
			name:  "direct prefix",
			paths: []string{"a", "a__b"},
			want:  []string{"a__b"},
		},
		{
			name:  "chain of prefixes",
			paths: []string{"a", "a__b", "a__b__c"},
			want:  []string{"a__b__c"},
		},
		{
			name:  "segment boundary only",
			paths: []string{"cause", "causes__x"},
			want:  []string{"cause", "causes__x"},
		},
		{
			name:  "lookalike between prefix pair",
			paths: []string{"causes", "causesExtra", "causes__x"},
			want:  []string{"causesExtra", "causes__x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := elide(append([]string(nil), tt.paths...))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("elide(%v) mismatch (-want +got):\n%s", tt.paths, diff)
			}
		})
	}
}
