package ids

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usedVars(names ...string) map[VarID]struct{} {
	m := make(map[VarID]struct{}, len(names))
	for _, n := range names {
		m[MustParse[Var](n)] = struct{}{}
	}
	return m
}

func TestGenerate_VarIDs(t *testing.T) {
	used := usedVars("a", "b", "c")
	taken := TakenIn(used)

	tests := []struct {
		name  string
		ideal string
		want  string
	}{
		{"valid as is", "d", "d"},
		{"invalid characters stripped", "-d ??)&    ", "d"},
		{"already used gets index", "a", "a_0"},
		{"leading digit gets prefix", "4ab??", "v_4ab"},
		{"diacritics removed", "élan", "elan"},
		{"empty after sanitizing", "???", "v"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.ideal, taken)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestGenerate_LayoutIDs(t *testing.T) {
	used := map[LayoutID]struct{}{
		MustParse[Layout]("default"): {},
		MustParse[Layout]("l_0"):     {},
	}
	taken := TakenIn(used)

	assert.Equal(t, "l_1", Generate("l_1", taken).String())
	assert.Equal(t, "l_1", Generate("%%%%l_    1)", taken).String())

	used[MustParse[Layout]("l")] = struct{}{}

	// search for an unused index starts at 0 and increments until l_1 is free
	assert.Equal(t, "l_1", Generate("l", taken).String())
}

func TestGenerate_RepeatedWithoutCommitReturnsSameID(t *testing.T) {
	used := usedVars("x")
	taken := TakenIn(used)

	first := Generate("x", taken)
	second := Generate("x", taken)
	assert.Equal(t, first, second)

	used[first] = struct{}{}
	third := Generate("x", taken)
	assert.NotEqual(t, first, third)
	assert.Equal(t, "x_1", third.String())
}

func TestGenerate_NeverReturnsTakenID(t *testing.T) {
	candidates := []string{"a", "a_0", "4", "", "__", "x y", "Ωmega", "a-b", "v_4"}
	used := usedVars("a", "a_0", "a_1", "v_4", "v", "__", "xy", "mega", "ab")
	taken := TakenIn(used)

	for _, c := range candidates {
		id := Generate(c, taken)
		assert.False(t, taken(id), "candidate %q produced taken id %q", c, id)
		assert.True(t, IsValid(id.String()), "candidate %q produced invalid id %q", c, id)
	}
}

func TestGenerate_StableOnEmptySet(t *testing.T) {
	none := func(VarID) bool { return false }
	for _, s := range []string{"abc", "a_b", "x1", "-q-", "9lives", "ñandú"} {
		sanitized := Sanitize(s, Var{}.Prefix())
		require.True(t, IsValid(sanitized), "sanitize(%q)", s)
		assert.Equal(t, sanitized, Generate(s, none).String(), "generate(%q)", s)
	}
}

func TestGenerate_ManySequentialCommits(t *testing.T) {
	used := map[ObservationID]struct{}{}
	taken := TakenIn(used)

	for i := 0; i < 25; i++ {
		id := Generate("obs", taken)
		_, dup := used[id]
		require.False(t, dup)
		used[id] = struct{}{}
		if i == 0 {
			assert.Equal(t, "obs", id.String())
		} else {
			assert.Equal(t, fmt.Sprintf("obs_%d", i-1), id.String())
		}
	}
}

func TestSanitize_Prefixes(t *testing.T) {
	assert.Equal(t, "d_1", Sanitize("1", Dataset{}.Prefix()))
	assert.Equal(t, "dp_2x", Sanitize("2 x", DynProperty{}.Prefix()))
	assert.Equal(t, "sp", Sanitize("", StatProperty{}.Prefix()))
	assert.Equal(t, "_hidden", Sanitize("_hidden", Var{}.Prefix()))
}
