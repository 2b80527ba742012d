package giveaway

import (
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickerPick(t *testing.T) {
	pool := []snowflake.ID{1, 2, 3, 4, 5, 6, 7, 8}

	tests := []struct {
		name  string
		pool  []snowflake.ID
		count int
		want  int
	}{
		{name: "fewer than pool", pool: pool, count: 3, want: 3},
		{name: "exactly pool size", pool: pool, count: 8, want: 8},
		{name: "more than pool", pool: pool, count: 20, want: 8},
		{name: "zero", pool: pool, count: 0, want: 0},
		{name: "empty pool", pool: nil, count: 3, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			picker := NewSeededPicker(1)
			got := picker.Pick(tt.pool, tt.count)
			require.Len(t, got, tt.want)

			seen := make(map[snowflake.ID]bool, len(got))
			poolSet := make(map[snowflake.ID]bool, len(tt.pool))
			for _, id := range tt.pool {
				poolSet[id] = true
			}
			for _, id := range got {
				assert.False(t, seen[id], "winner %d selected twice", id)
				assert.True(t, poolSet[id], "winner %d not in pool", id)
				seen[id] = true
			}
		})
	}
}

func TestPickerDoesNotMutatePool(t *testing.T) {
	pool := []snowflake.ID{1, 2, 3, 4, 5}
	original := append([]snowflake.ID(nil), pool...)

	NewSeededPicker(7).Pick(pool, 3)
	assert.Equal(t, original, pool)
}

func TestPickerDeterministicWithSeed(t *testing.T) {
	pool := []snowflake.ID{10, 20, 30, 40, 50, 60}

	first := NewSeededPicker(99).Pick(pool, 3)
	second := NewSeededPicker(99).Pick(pool, 3)
	assert.Equal(t, first, second)
}

func TestExclude(t *testing.T) {
	tests := []struct {
		name    string
		pool    []snowflake.ID
		exclude []snowflake.ID
		want    []snowflake.ID
	}{
		{
			name:    "removes excluded",
			pool:    []snowflake.ID{1, 2, 3, 4},
			exclude: []snowflake.ID{2, 4},
			want:    []snowflake.ID{1, 3},
		},
		{
			name: "nothing excluded",
			pool: []snowflake.ID{1, 2},
			want: []snowflake.ID{1, 2},
		},
		{
			name:    "everything excluded",
			pool:    []snowflake.ID{1, 2},
			exclude: []snowflake.ID{1, 2, 3},
		},
		{
			name:    "empty pool",
			exclude: []snowflake.ID{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Exclude(tt.pool, tt.exclude)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
