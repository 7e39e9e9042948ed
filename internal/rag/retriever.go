package rag

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/upb/mindscreen/internal/risk"
	"go.uber.org/zap"
)

// DefaultResourceLimit is the ResourcesByRiskLevel limit when none is given.
const DefaultResourceLimit = 5

var levelCategories = map[risk.Level][]Category{
	risk.LevelLow:      {CategoryLifestyle, CategoryCoping},
	risk.LevelMedium:   {CategoryCoping, CategoryTherapy},
	risk.LevelHigh:     {CategoryTherapy, CategoryCrisis},
	risk.LevelCritical: {CategoryCrisis},
}

var fallbackCategories = []Category{CategoryCoping, CategoryTherapy}

// CategoriesForLevel returns the categories searched for a risk level.
func CategoriesForLevel(level risk.Level) ([]Category, bool) {
	cats, ok := levelCategories[level]
	if !ok {
		return nil, false
	}
	return append([]Category(nil), cats...), true
}

// Retriever ranks knowledge base documents against free-text queries.
type Retriever struct {
	index        *Index
	embedder     Embedder
	cache        *QueryCache
	embedTimeout time.Duration
	logger       *zap.Logger
}

// NewRetriever creates a Retriever over index. cache may be nil.
// A zero embedTimeout leaves the caller's deadline as the only bound.
func NewRetriever(index *Index, embedder Embedder, cache *QueryCache, embedTimeout time.Duration, logger *zap.Logger) *Retriever {
	return &Retriever{
		index:        index,
		embedder:     embedder,
		cache:        cache,
		embedTimeout: embedTimeout,
		logger:       logger,
	}
}

// Index returns the embedding index the retriever reads from.
func (r *Retriever) Index() *Index {
	return r.index
}

// Cache returns the query embedding cache, which may be nil.
func (r *Retriever) Cache() *QueryCache {
	return r.cache
}

// Retrieve returns up to topK documents ranked by cosine similarity to query.
// A non-nil level restricts candidates to the level's categories.
func (r *Retriever) Retrieve(ctx context.Context, query string, level *risk.Level, topK int) ([]RankedResource, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	var categories []Category
	if level != nil {
		cats, ok := levelCategories[*level]
		if !ok {
			return nil, ErrUnknownRiskLevel
		}
		categories = cats
	}

	if topK <= 0 {
		return []RankedResource{}, nil
	}

	snap, err := r.index.load(ctx)
	if err != nil {
		return nil, err
	}

	queryVec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates := snap.candidates(categories)
	ranked := Rank(queryVec, candidates, topK)

	results := make([]RankedResource, 0, len(ranked))
	incomparable := 0
	for j, s := range ranked {
		// NaN sorts last, so everything from the first one on is NaN
		if math.IsNaN(s.Score) {
			incomparable = len(ranked) - j
			break
		}
		doc, ok := snap.store.Get(s.ID)
		if !ok {
			continue
		}
		results = append(results, RankedResource{Document: doc, RelevanceScore: s.Score})
	}
	if incomparable > 0 {
		r.logger.Warn("dropped results with undefined similarity",
			zap.Int("dropped", incomparable),
			zap.Int("query_dimensions", len(queryVec)))
		if len(results) == 0 {
			return nil, &EmbeddingError{Op: "score query", Err: errIncomparable}
		}
	}

	r.logger.Debug("retrieved resources",
		zap.Int("query_length", len(query)),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(results)))

	return results, nil
}

// embedQuery embeds query exactly as given; the cache is keyed on the same text.
func (r *Retriever) embedQuery(ctx context.Context, query string) (Embedding, error) {
	if v := r.cache.Get(query); v != nil {
		return v, nil
	}

	embedCtx := ctx
	if r.embedTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, r.embedTimeout)
		defer cancel()
	}

	v, err := r.embedder.Embed(embedCtx, query)
	if err != nil {
		r.logger.Warn("query embedding failed", zap.Error(err))
		return nil, &EmbeddingError{Op: "embed query", Err: err}
	}
	if len(v) == 0 {
		return nil, &EmbeddingError{Op: "embed query", Err: errEmptyVector}
	}
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, &EmbeddingError{Op: "embed query", Err: errNonFinite}
		}
	}

	r.cache.Set(query, v)
	return v, nil
}

// candidates lists embedded documents in category-mapping order, or in store
// order when categories is empty.
func (s *snapshot) candidates(categories []Category) []Candidate {
	var docs []Document
	if len(categories) == 0 {
		docs = s.store.All()
	} else {
		for _, c := range categories {
			docs = append(docs, s.store.ByCategory(c)...)
		}
	}

	out := make([]Candidate, 0, len(docs))
	for _, doc := range docs {
		if v, ok := s.vectors[doc.ID]; ok {
			out = append(out, Candidate{ID: doc.ID, Vector: v})
		}
	}
	return out
}

// ResourcesByRiskLevel returns up to limit documents from the level's
// categories, in mapping order, without embedding anything. An unknown
// level falls back to coping and therapy. limit <= 0 uses DefaultResourceLimit.
func (r *Retriever) ResourcesByRiskLevel(level risk.Level, limit int) []Document {
	store := r.index.Store()
	if store == nil {
		return []Document{}
	}
	return ResourcesByRiskLevel(store, level, limit)
}

// ResourcesByRiskLevel is the store-level form of Retriever.ResourcesByRiskLevel.
func ResourcesByRiskLevel(store *Store, level risk.Level, limit int) []Document {
	if limit <= 0 {
		limit = DefaultResourceLimit
	}
	cats, ok := levelCategories[level]
	if !ok {
		cats = fallbackCategories
	}

	out := make([]Document, 0, limit)
	for _, c := range cats {
		for _, doc := range store.ByCategory(c) {
			if len(out) == limit {
				return out
			}
			out = append(out, doc)
		}
	}
	return out
}
