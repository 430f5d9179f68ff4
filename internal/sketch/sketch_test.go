package sketch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/ids"
	"github.com/roach88/sketchbook/internal/records"
)

func TestScenario_RenameToSameNameIsNoChange(t *testing.T) {
	s := scenarioSketch(t)
	before := s.Data()

	c := mustPerform(t, s, event.New("a", "model", "variable", "a", "set_name"))

	assert.Equal(t, event.NoChange{}, c)
	assert.Equal(t, before, s.Data())
}

func TestScenario_RenameIsReversible(t *testing.T) {
	s := scenarioSketch(t)

	c := mustPerform(t, s, event.New("x", "model", "variable", "a", "set_name"))

	rev, ok := c.(event.Reversible)
	require.True(t, ok, "got %T", c)
	assert.True(t, rev.Reverse.Equal(event.New("a", "model", "variable", "a", "set_name")))
	v, _ := s.Model().Variable(ids.MustParse[ids.Var]("a"))
	assert.Equal(t, "x", v.Name)

	mustPerform(t, s, rev.Reverse)
	v, _ = s.Model().Variable(ids.MustParse[ids.Var]("a"))
	assert.Equal(t, "a", v.Name)
}

func TestScenario_RemoveWithSoftDependentsRestarts(t *testing.T) {
	s := scenarioSketch(t)
	before := s.Data()
	remove := event.At("model", "variable", "a", "remove")

	c := mustPerform(t, s, remove)

	restart, ok := c.(event.Restart)
	require.True(t, ok, "got %T", c)
	assert.Equal(t, before, s.Data(), "a restart must not touch the sketch")
	require.Len(t, restart.Events, 3)
	assert.Equal(t, []event.Event{
		positionEvent(t, "default", "a", 0, 0),
		event.At("model", "regulation", "a", "b", "remove"),
		remove,
	}, restart.Events)

	for _, ev := range restart.Events {
		c := mustPerform(t, s, ev)
		assert.Equal(t, event.KindReversible, c.Kind(), "step %s", ev)
	}
	assert.False(t, s.Model().HasVariable(ids.MustParse[ids.Var]("a")))
	assert.Empty(t, s.Model().Regulations())
}

func TestCascade_MatchesAtomicRemoval(t *testing.T) {
	s := scenarioSketch(t)
	expected := s.Data()
	expected.Model.Variables = expected.Model.Variables[1:]
	expected.Model.Regulations = expected.Model.Regulations[:0]
	for i := range expected.Model.Layouts {
		expected.Model.Layouts[i].Nodes = expected.Model.Layouts[i].Nodes[1:]
	}

	c := mustPerform(t, s, event.At("model", "variable", "a", "remove"))
	for _, ev := range c.(event.Restart).Events {
		mustPerform(t, s, ev)
	}

	assert.Equal(t, expected, s.Data())
}

func TestCascade_OrderWithIncomingOutgoingAndSelfLoop(t *testing.T) {
	s := scenarioSketch(t)
	for _, r := range [][2]string{{"b", "b"}, {"b", "c"}, {"c", "b"}} {
		mustPerform(t, s, event.New(encode(t, records.RegulationData{
			Regulator: r[0], Target: r[1], Sign: "unknown", Essential: "unknown",
		}), "model", "regulation", "add"))
	}
	mustPerform(t, s, positionEvent(t, "default", "b", 1, 1))
	remove := event.At("model", "variable", "b", "remove")

	c := mustPerform(t, s, remove)

	restart, ok := c.(event.Restart)
	require.True(t, ok, "got %T", c)
	assert.Equal(t, []event.Event{
		positionEvent(t, "default", "b", 0, 0),
		positionEvent(t, "l1", "b", 0, 0),
		event.At("model", "regulation", "a", "b", "remove"),
		event.At("model", "regulation", "b", "b", "remove"),
		event.At("model", "regulation", "c", "b", "remove"),
		event.At("model", "regulation", "b", "c", "remove"),
		remove,
	}, restart.Events)

	for _, ev := range restart.Events {
		mustPerform(t, s, ev)
	}
	assert.False(t, s.Model().HasVariable(ids.MustParse[ids.Var]("b")))
	assert.Empty(t, s.Model().Regulations())
}

func TestCascade_HardDependentBlocksRemoval(t *testing.T) {
	s := scenarioSketch(t)
	mustPerform(t, s, event.New("a && b", "model", "variable", "c", "set_update_fn"))
	before := s.Data()

	_, err := s.Perform(event.At("model", "variable", "a", "remove"))

	assert.ErrorIs(t, err, event.ErrInvariantViolation)
	assert.Contains(t, err.Error(), "`c`")
	assert.Equal(t, before, s.Data())
}

func TestRemoveVariable_OwnUpdateFunctionIsNotADependent(t *testing.T) {
	s := scenarioSketch(t)
	mustPerform(t, s, event.New("c", "model", "variable", "c", "set_update_fn"))
	before := s.Data()

	c := mustPerform(t, s, event.At("model", "variable", "c", "remove"))

	rev, ok := c.(event.Reversible)
	require.True(t, ok, "got %T", c)
	mustPerform(t, s, rev.Reverse)
	assert.Equal(t, before, s.Data())
}

func TestRemoveVariable_DirectWhenNoDependents(t *testing.T) {
	s := scenarioSketch(t)

	c := mustPerform(t, s, event.At("model", "variable", "c", "remove"))

	rev, ok := c.(event.Reversible)
	require.True(t, ok, "got %T", c)
	assert.Equal(t, []string{"model", "variable", "remove"}, rev.Change.Path())
	payload, _ := rev.Change.Payload()
	assert.JSONEq(t, `{"id":"c","name":"c","update_fn":""}`, payload)
	assert.True(t, rev.Reverse.Equal(event.New(payload, "model", "variable", "add")))
}

func TestFromData_RoundTrip(t *testing.T) {
	s := scenarioSketch(t)
	mustPerform(t, s, event.New("f(a, b) || c", "model", "variable", "c", "set_update_fn"))
	data := s.Data()

	loaded, err := FromData(data)

	require.NoError(t, err)
	assert.Equal(t, data, loaded.Data())
}

func TestFromData_RejectsBrokenReferences(t *testing.T) {
	data := New().Data()
	data.Model.Regulations = append(data.Model.Regulations, records.RegulationData{
		Regulator: "a", Target: "b", Sign: "activation", Essential: "true",
	})

	_, err := FromData(data)

	assert.ErrorIs(t, err, event.ErrUnknownID)
}

func TestFromData_RejectsInvalidRecords(t *testing.T) {
	data := New().Data()
	data.Model.Variables = append(data.Model.Variables, records.VariableData{ID: "9bad"})

	_, err := FromData(data)

	assert.ErrorIs(t, err, event.ErrMalformedPayload)
}

func TestClone_IsIndependent(t *testing.T) {
	s := scenarioSketch(t)
	before := s.Data()
	clone := s.Clone()

	for _, ev := range []event.Event{
		event.At("model", "variable", "c", "remove"),
		positionEvent(t, "l1", "b", 9, 9),
		event.At("observations", "d1", "pop_obs"),
		event.New("renamed", "properties", "static", "s1", "set_name"),
	} {
		mustPerform(t, clone, ev)
	}

	assert.Equal(t, before, s.Data())
	assert.NotEqual(t, before, clone.Data())
}

func TestNew_HasDefaultLayout(t *testing.T) {
	data := New().Data()

	require.Len(t, data.Model.Layouts, 1)
	assert.Equal(t, "default", data.Model.Layouts[0].ID)
	assert.Equal(t, DefaultLayoutName, data.Model.Layouts[0].Name)
}
