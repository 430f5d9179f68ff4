package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAt_CopiesPath(t *testing.T) {
	segs := []string{"model", "variable", "a", "remove"}
	e := At(segs...)
	segs[2] = "mutated"

	assert.Equal(t, "a", e.Segment(2))
	assert.False(t, e.HasPayload())

	p := e.Path()
	p[0] = "mutated"
	assert.Equal(t, "model", e.Segment(0))
}

func TestWithPayload_ReturnsFreshEvent(t *testing.T) {
	forward := New("x", "model", "variable", "a", "set_name")
	reverse := forward.WithPayload("a")

	fp, _ := forward.Payload()
	rp, ok := reverse.Payload()
	assert.Equal(t, "x", fp)
	assert.Equal(t, "a", rp)
	assert.True(t, ok)
	assert.Equal(t, forward.Path(), reverse.Path())
	assert.False(t, forward.Equal(reverse))

	bare := reverse.WithoutPayload()
	assert.False(t, bare.HasPayload())
	assert.Equal(t, "", bare.Segment(99))
}

func TestEvent_EmptyPayloadIsPresent(t *testing.T) {
	e := New("", "a")
	p, ok := e.Payload()
	assert.True(t, ok)
	assert.Equal(t, "", p)
	assert.False(t, e.Equal(At("a")))
}

func TestEvent_JSONRoundTrip(t *testing.T) {
	cases := []Event{
		At("observations", "d1", "pop_obs"),
		New(`{"id":"a"}`, "model", "variable", "add"),
		New("", "model", "layout", "l", "set_name"),
	}
	for _, e := range cases {
		data, err := json.Marshal(e)
		require.NoError(t, err)

		var back Event
		require.NoError(t, json.Unmarshal(data, &back))
		assert.True(t, e.Equal(back), "round trip of %s via %s", e, data)
	}

	data, err := json.Marshal(At("a"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":["a"]}`, string(data))
}

func TestEvent_String(t *testing.T) {
	assert.Equal(t, "model/variable/a/remove", At("model", "variable", "a", "remove").String())
	assert.Equal(t, "model/variable/a/set_name b", New("b", "model", "variable", "a", "set_name").String())
}

func TestConsumed_Kinds(t *testing.T) {
	change := Change(`{"id":"a"}`, "model", "variable", "remove")
	outcomes := map[Kind]Consumed{
		KindNoChange:     NoChange{},
		KindReversible:   Reversible{Change: change, Reverse: At("x")},
		KindIrreversible: Irreversible{Change: change, Reset: true},
		KindRestart:      Restart{Events: []Event{At("x")}},
	}
	for kind, c := range outcomes {
		assert.Equal(t, kind, c.Kind())
	}

	sc, ok := ChangeOf(outcomes[KindReversible])
	assert.True(t, ok)
	assert.Equal(t, []string{"model", "variable", "remove"}, sc.Path())

	_, ok = ChangeOf(NoChange{})
	assert.False(t, ok)
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("apply: %w", UnknownID("variable", "zz"))

	assert.True(t, errors.Is(err, ErrUnknownID))
	assert.False(t, errors.Is(err, ErrUnknownPath))
	assert.Equal(t, ErrCodeUnknownID, CodeOf(err))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestError_Message(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := MalformedPayload("model/variable", cause)
	annotated := WithPath(err, []string{"model", "variable", "add"})

	assert.Contains(t, annotated.Error(), "MALFORMED_PAYLOAD")
	assert.Contains(t, annotated.Error(), "path=model/variable/add")
	assert.ErrorIs(t, annotated, cause)
	assert.Empty(t, err.Path, "WithPath must not mutate the original error")

	again := WithPath(annotated, []string{"other"})
	assert.Contains(t, again.Error(), "path=model/variable/add")
}

func TestPayloadPresence(t *testing.T) {
	assert.Contains(t, PayloadPresence("x", true).Error(), "expects a payload")
	assert.Contains(t, PayloadPresence("x", false).Error(), "expects no payload")
	assert.ErrorIs(t, InvariantViolation("nope %d", 1), ErrInvariantViolation)
}
