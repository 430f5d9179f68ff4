package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	cp := contractCheckpoint("s1", 4, "a")

	data, err := Encode(cp)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, cp, got)
}

func TestEncode_RequiresSessionID(t *testing.T) {
	_, err := Encode(contractCheckpoint("", 1))
	assert.Error(t, err)
}

func TestDecode_RejectsInvalidSketch(t *testing.T) {
	cp := contractCheckpoint("s1", 1, "a")
	cp.Data.Model.Variables[0].ID = "1bad"
	data, err := Encode(cp)
	require.NoError(t, err)

	_, err = Decode(data)
	assert.Error(t, err)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
}
