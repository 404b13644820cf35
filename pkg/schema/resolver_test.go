package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterdash/reporting-engine/pkg/apperrors"
)

func columnSet(names ...string) ColumnSet {
	set := make(ColumnSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func TestResolveColumn(t *testing.T) {
	t.Run("first candidate wins", func(t *testing.T) {
		got, err := ResolveColumn(FieldSegment, columnSet("Segment", "segment"), "t", true)
		require.NoError(t, err)
		assert.Equal(t, "Segment", got)
	})

	t.Run("falls back to snake_case", func(t *testing.T) {
		got, err := ResolveColumn(FieldSegment, columnSet("segment", "name"), "t", true)
		require.NoError(t, err)
		assert.Equal(t, "segment", got)
	})

	t.Run("required miss is a schema error naming field and table", func(t *testing.T) {
		_, err := ResolveColumn(FieldCashBalance, columnSet("segment", "name"), "user_cluster", true)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrSchemaIncompatible)
		assert.Contains(t, err.Error(), "Cash Balance")
		assert.Contains(t, err.Error(), "user_cluster")
	})

	t.Run("optional miss resolves to absence", func(t *testing.T) {
		got, err := ResolveColumn(FieldCashBalance, columnSet("segment"), "t", false)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unknown field uses its own name as candidate", func(t *testing.T) {
		got, err := ResolveColumn(Field("custom_col"), columnSet("custom_col"), "t", true)
		require.NoError(t, err)
		assert.Equal(t, "custom_col", got)
	})
}
