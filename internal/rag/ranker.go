package rag

import (
	"math"
	"sort"
)

// epsilon keeps cosine similarity finite when either vector is all zeros.
const epsilon = 1e-10

// Candidate is a vector eligible for ranking.
type Candidate struct {
	ID     string
	Vector Embedding
}

// Scored is a ranked candidate id.
type Scored struct {
	ID    string
	Score float64
}

// CosineSimilarity returns dot(a,b) / (|a|*|b| + epsilon).
// Vectors of different length are not comparable and score NaN.
func CosineSimilarity(a, b Embedding) float64 {
	if len(a) != len(b) {
		return math.NaN()
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + epsilon)
}

// Rank scores every candidate against query and returns the best topK,
// highest first. Ties keep candidate order; NaN scores sort last.
func Rank(query Embedding, candidates []Candidate, topK int) []Scored {
	if topK <= 0 || len(candidates) == 0 {
		return []Scored{}
	}

	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{ID: c.ID, Score: CosineSimilarity(query, c.Vector)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i].Score, scored[j].Score
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a > b
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored
}
