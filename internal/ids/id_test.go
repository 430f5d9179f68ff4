package ids

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	valid := []string{"a", "_a", "A1", "var_2", "_"}
	for _, s := range valid {
		id, err := Parse[Var](s)
		require.NoError(t, err, s)
		assert.Equal(t, s, id.String())
		assert.False(t, id.IsZero())
	}

	invalid := []string{"", "1a", "a-b", "a b", "é"}
	for _, s := range invalid {
		_, err := Parse[Var](s)
		require.Error(t, err, s)
		assert.True(t, errors.Is(err, ErrInvalid))
		assert.Contains(t, err.Error(), "variable")
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse[Dataset]("1") })
}

func TestID_CategoryName(t *testing.T) {
	assert.Equal(t, "layout", MustParse[Layout]("l").CategoryName())
	assert.Equal(t, "static property", MustParse[StatProperty]("p").CategoryName())
}

func TestID_JSON(t *testing.T) {
	type holder struct {
		Var VarID `json:"var"`
	}
	data, err := json.Marshal(holder{Var: MustParse[Var]("abc")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"var":"abc"}`, string(data))

	var h holder
	require.NoError(t, json.Unmarshal(data, &h))
	assert.Equal(t, "abc", h.Var.String())

	err = json.Unmarshal([]byte(`{"var":"9x"}`), &h)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestID_MapKeys(t *testing.T) {
	m := map[VarID]int{
		MustParse[Var]("b"): 2,
		MustParse[Var]("a"): 1,
	}
	keys := make([]VarID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, Compare[Var])
	assert.Equal(t, "a", keys[0].String())
	assert.Equal(t, 1, m[MustParse[Var]("a")])
}
