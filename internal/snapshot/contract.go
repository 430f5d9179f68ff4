package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sketchbook/internal/records"
)

// RunStoreContract checks the behavior every Store adapter must share.
// The store must be empty when passed in.
func RunStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("save and load", func(t *testing.T) {
		cp := contractCheckpoint("contract-a", 3, "a", "b")
		require.NoError(t, store.Save(ctx, cp))

		loaded, err := store.Load(ctx, "contract-a")
		require.NoError(t, err)
		assert.Equal(t, cp, loaded)
	})

	t.Run("save replaces", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, contractCheckpoint("contract-a", 7, "a")))

		loaded, err := store.Load(ctx, "contract-a")
		require.NoError(t, err)
		assert.Equal(t, int64(7), loaded.Seq)
		assert.Len(t, loaded.Data.Model.Variables, 1)
	})

	t.Run("load missing", func(t *testing.T) {
		_, err := store.Load(ctx, "contract-missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list sorted", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, contractCheckpoint("contract-c", 1)))
		require.NoError(t, store.Save(ctx, contractCheckpoint("contract-b", 1)))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"contract-a", "contract-b", "contract-c"}, ids)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "contract-b"))
		require.NoError(t, store.Delete(ctx, "contract-b"), "deleting twice is not an error")

		_, err := store.Load(ctx, "contract-b")
		assert.ErrorIs(t, err, ErrNotFound)

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"contract-a", "contract-c"}, ids)
	})

	t.Run("loaded data is independent", func(t *testing.T) {
		first, err := store.Load(ctx, "contract-a")
		require.NoError(t, err)
		first.Data.Model.Variables[0].Name = "mutated"

		second, err := store.Load(ctx, "contract-a")
		require.NoError(t, err)
		assert.Equal(t, "a", second.Data.Model.Variables[0].Name)
	})
}

func contractCheckpoint(sessionID string, seq int64, varIDs ...string) Checkpoint {
	data := records.SketchData{
		Model: records.ModelData{
			Variables:   []records.VariableData{},
			Regulations: []records.RegulationData{},
			Layouts:     []records.LayoutData{{ID: "default", Name: "Default layout"}},
			Functions:   []records.FunctionData{},
		},
		Datasets:       []records.DatasetData{},
		DynProperties:  []records.PropertyData{},
		StatProperties: []records.PropertyData{},
	}
	for _, id := range varIDs {
		data.Model.Variables = append(data.Model.Variables, records.VariableData{ID: id, Name: id})
	}
	return Checkpoint{SessionID: sessionID, Seq: seq, Digest: "digest-" + sessionID, Data: data}
}
