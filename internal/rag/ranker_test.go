package rag

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Embedding
		expected float64
	}{
		{"identical", Embedding{1, 0}, Embedding{1, 0}, 1},
		{"orthogonal", Embedding{1, 0}, Embedding{0, 1}, 0},
		{"opposite", Embedding{1, 0}, Embedding{-1, 0}, -1},
		{"scale invariant", Embedding{2, 0}, Embedding{5, 0}, 1},
		{"zero vector", Embedding{0, 0}, Embedding{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}

	t.Run("dimension mismatch", func(t *testing.T) {
		assert.True(t, math.IsNaN(CosineSimilarity(Embedding{1, 0}, Embedding{1, 0, 0})))
	})
}

func TestRank(t *testing.T) {
	query := Embedding{1, 0}
	candidates := []Candidate{
		{ID: "far", Vector: Embedding{0, 1}},
		{ID: "near", Vector: Embedding{1, 0.1}},
		{ID: "exact", Vector: Embedding{1, 0}},
	}

	t.Run("orders by score", func(t *testing.T) {
		ranked := Rank(query, candidates, 3)
		require.Len(t, ranked, 3)
		assert.Equal(t, "exact", ranked[0].ID)
		assert.Equal(t, "near", ranked[1].ID)
		assert.Equal(t, "far", ranked[2].ID)
		assert.GreaterOrEqual(t, ranked[0].Score, ranked[1].Score)
		assert.GreaterOrEqual(t, ranked[1].Score, ranked[2].Score)
	})

	t.Run("truncates to top k", func(t *testing.T) {
		ranked := Rank(query, candidates, 1)
		require.Len(t, ranked, 1)
		assert.Equal(t, "exact", ranked[0].ID)
	})

	t.Run("top k larger than candidates", func(t *testing.T) {
		assert.Len(t, Rank(query, candidates, 10), 3)
	})

	t.Run("non-positive top k", func(t *testing.T) {
		assert.Empty(t, Rank(query, candidates, 0))
		assert.Empty(t, Rank(query, candidates, -1))
	})

	t.Run("no candidates", func(t *testing.T) {
		ranked := Rank(query, nil, 5)
		assert.NotNil(t, ranked)
		assert.Empty(t, ranked)
	})

	t.Run("ties keep candidate order", func(t *testing.T) {
		tied := []Candidate{
			{ID: "first", Vector: Embedding{1, 0}},
			{ID: "second", Vector: Embedding{1, 0}},
			{ID: "third", Vector: Embedding{1, 0}},
		}
		ranked := Rank(query, tied, 3)
		assert.Equal(t, "first", ranked[0].ID)
		assert.Equal(t, "second", ranked[1].ID)
		assert.Equal(t, "third", ranked[2].ID)
	})

	t.Run("malformed vectors sort last", func(t *testing.T) {
		mixed := []Candidate{
			{ID: "broken", Vector: Embedding{1, 0, 0}},
			{ID: "far", Vector: Embedding{-1, 0}},
		}
		ranked := Rank(query, mixed, 2)
		assert.Equal(t, "far", ranked[0].ID)
		assert.Equal(t, "broken", ranked[1].ID)
		assert.True(t, math.IsNaN(ranked[1].Score))
	})

	t.Run("idempotent", func(t *testing.T) {
		assert.Equal(t, Rank(query, candidates, 3), Rank(query, candidates, 3))
	})
}
