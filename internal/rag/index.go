package rag

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultRebuildTimeout bounds a rebuild triggered from the retrieval path.
	DefaultRebuildTimeout = 2 * time.Minute
	// DefaultRebuildRetryInterval spaces lazy rebuilds of an index that has never built.
	DefaultRebuildRetryInterval = 30 * time.Second
)

// snapshot is an immutable store plus the vectors of its embedded documents.
type snapshot struct {
	store   *Store
	vectors map[string]Embedding
	skipped []string
	builtAt time.Time
}

// IndexStats describes the published snapshot.
type IndexStats struct {
	Documents int       `json:"documents"`
	Embedded  int       `json:"embedded"`
	Skipped   []string  `json:"skipped,omitempty"`
	Stale     bool      `json:"stale"`
	BuiltAt   time.Time `json:"built_at"`
}

// Index caches document embeddings. Each build is published once as an
// immutable snapshot; readers never lock.
type Index struct {
	embedder Embedder
	logger   *zap.Logger

	current atomic.Pointer[snapshot]
	stale   atomic.Bool

	// guarded by buildMu
	buildMu        sync.Mutex
	pending        *Store
	rebuildTimeout time.Duration
	retry          *rate.Limiter
}

// NewIndex creates an empty Index. Call Rebuild before retrieving.
func NewIndex(embedder Embedder, logger *zap.Logger) *Index {
	return &Index{
		embedder:       embedder,
		logger:         logger,
		rebuildTimeout: DefaultRebuildTimeout,
		retry:          rate.NewLimiter(rate.Every(DefaultRebuildRetryInterval), 1),
	}
}

// WithRebuildPolicy sets how rebuilds started by retrieval are bounded.
// timeout <= 0 leaves only the caller's deadline; retryInterval <= 0 retries
// an unbuilt index on every retrieval.
func (i *Index) WithRebuildPolicy(timeout, retryInterval time.Duration) *Index {
	i.buildMu.Lock()
	defer i.buildMu.Unlock()

	i.rebuildTimeout = timeout
	if retryInterval <= 0 {
		i.retry = rate.NewLimiter(rate.Inf, 1)
	} else {
		i.retry = rate.NewLimiter(rate.Every(retryInterval), 1)
	}
	return i
}

// BuildIndex creates an Index and eagerly embeds store.
func BuildIndex(ctx context.Context, store *Store, embedder Embedder, logger *zap.Logger) (*Index, error) {
	idx := NewIndex(embedder, logger)
	if err := idx.Rebuild(ctx, store); err != nil {
		return nil, err
	}
	return idx, nil
}

// Rebuild embeds every document of store and publishes the result.
// Documents whose embedding fails are skipped. If every document fails the
// previous snapshot stays published and an *EmbeddingError is returned; an
// index that has never built keeps store and retries it lazily on retrieval.
func (i *Index) Rebuild(ctx context.Context, store *Store) error {
	i.buildMu.Lock()
	defer i.buildMu.Unlock()
	return i.rebuildLocked(ctx, store)
}

func (i *Index) rebuildLocked(ctx context.Context, store *Store) error {
	snap, err := i.build(ctx, store)
	if err != nil {
		i.pending = store
		return err
	}
	i.pending = nil
	i.current.Store(snap)
	i.stale.Store(false)

	i.logger.Info("knowledge index built",
		zap.Int("documents", store.Len()),
		zap.Int("embedded", len(snap.vectors)),
		zap.Int("skipped", len(snap.skipped)))
	return nil
}

// Invalidate marks the snapshot stale; the next retrieval re-embeds it.
func (i *Index) Invalidate() {
	i.stale.Store(true)
}

// Store returns the store of the published snapshot, or nil before the first build.
func (i *Index) Store() *Store {
	if snap := i.current.Load(); snap != nil {
		return snap.store
	}
	return nil
}

// Stats reports on the published snapshot.
func (i *Index) Stats() IndexStats {
	snap := i.current.Load()
	if snap == nil {
		return IndexStats{Stale: i.stale.Load()}
	}
	return IndexStats{
		Documents: snap.store.Len(),
		Embedded:  len(snap.vectors),
		Skipped:   append([]string(nil), snap.skipped...),
		Stale:     i.stale.Load(),
		BuiltAt:   snap.builtAt,
	}
}

// Ready reports whether at least one document is searchable.
func (i *Index) Ready() bool {
	snap := i.current.Load()
	return snap != nil && len(snap.vectors) > 0
}

// load returns the current snapshot. An invalidated snapshot is rebuilt first,
// and an index whose first build failed retries it at most once per retry
// interval.
func (i *Index) load(ctx context.Context) (*snapshot, error) {
	if i.stale.Load() || i.current.Load() == nil {
		if err := i.refresh(ctx); err != nil {
			return nil, err
		}
	}

	snap := i.current.Load()
	if snap == nil {
		return nil, ErrIndexNotBuilt
	}
	return snap, nil
}

func (i *Index) refresh(ctx context.Context) error {
	i.buildMu.Lock()
	defer i.buildMu.Unlock()

	snap := i.current.Load()
	if snap != nil {
		if !i.stale.Load() {
			return nil
		}
		if err := i.rebuildBounded(ctx, snap.store); err != nil {
			return fmt.Errorf("rebuild invalidated index: %w", err)
		}
		return nil
	}

	if i.pending == nil {
		return nil
	}
	// An explicit Invalidate skips the retry interval once.
	forced := i.stale.Swap(false)
	if !forced && !i.retry.Allow() {
		return nil
	}
	if err := i.rebuildBounded(ctx, i.pending); err != nil {
		i.logger.Warn("knowledge index still not built", zap.Error(err))
	}
	return nil
}

// rebuildBounded must be called with buildMu held
func (i *Index) rebuildBounded(ctx context.Context, store *Store) error {
	if i.rebuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.rebuildTimeout)
		defer cancel()
	}
	return i.rebuildLocked(ctx, store)
}

func (i *Index) build(ctx context.Context, store *Store) (*snapshot, error) {
	docs := store.All()
	snap := &snapshot{
		store:   store,
		vectors: make(map[string]Embedding, len(docs)),
		builtAt: time.Now(),
	}
	if len(docs) == 0 {
		return snap, nil
	}

	texts := make([]string, len(docs))
	for j, doc := range docs {
		texts[j] = doc.EmbeddingText()
	}

	var providerErr error
	vectors, err := i.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) != len(docs) {
		err = fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, &EmbeddingError{Op: "embed knowledge base", Err: ctx.Err()}
		}
		i.logger.Warn("batch embedding failed, embedding documents one by one", zap.Error(err))
		providerErr = err
		vectors = make([]Embedding, len(docs))
		for j, doc := range docs {
			v, err := i.embedder.Embed(ctx, texts[j])
			if err != nil {
				i.logger.Warn("skipping document with failed embedding",
					zap.String("document_id", doc.ID),
					zap.Error(err))
				providerErr = err
				continue
			}
			vectors[j] = v
		}
	}

	for j, doc := range docs {
		if len(vectors[j]) == 0 {
			snap.skipped = append(snap.skipped, doc.ID)
			continue
		}
		snap.vectors[doc.ID] = vectors[j]
	}

	if len(snap.vectors) == 0 {
		cause := providerErr
		if cause == nil {
			cause = errEmptyVector
		}
		return nil, &EmbeddingError{Op: "embed knowledge base", Err: cause}
	}
	return snap, nil
}
