package rag

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const sampleKnowledge = `
[[documents]]
id = "coping_001"
title = "Mindfulness Meditation"
content = "Techniques for practicing mindfulness"
category = "coping"

[[documents]]
id = "crisis_001"
title = "Lifeline"
content = "Call 988"
category = "crisis"
`

func writeKnowledge(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseDocuments(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		store, err := ParseDocuments([]byte(sampleKnowledge))
		require.NoError(t, err)
		assert.Equal(t, 2, store.Len())

		doc, ok := store.Get("crisis_001")
		require.True(t, ok)
		assert.Equal(t, CategoryCrisis, doc.Category)
		assert.Equal(t, "Call 988", doc.Content)
	})

	tests := []struct {
		name string
		data string
	}{
		{"malformed toml", "[[documents]\nid="},
		{"no documents", "title = \"x\""},
		{"unknown category", "[[documents]]\nid = \"a\"\ncategory = \"astrology\""},
		{"duplicate ids", "[[documents]]\nid = \"a\"\ncategory = \"coping\"\n[[documents]]\nid = \"a\"\ncategory = \"crisis\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocuments([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadDocumentsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.toml")
	writeKnowledge(t, path, sampleKnowledge)

	store, err := LoadDocumentsFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	_, err = LoadDocumentsFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestReloader_Reload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "knowledge.toml")
	writeKnowledge(t, path, sampleKnowledge)

	idx, err := BuildIndex(ctx, DefaultStore(), newFakeEmbedder(), zap.NewNop())
	require.NoError(t, err)

	var calls atomic.Int32
	r := NewReloader(path, idx, zap.NewNop())
	r.OnReload = func(stats IndexStats, err error) { calls.Add(1) }

	require.NoError(t, r.Reload(ctx))
	assert.Equal(t, 2, idx.Stats().Documents)

	writeKnowledge(t, path, "not toml [[")
	assert.Error(t, r.Reload(ctx))
	assert.Equal(t, 2, idx.Stats().Documents, "failed reload keeps previous snapshot")
	assert.Equal(t, int32(2), calls.Load())
}

func TestReloader_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "knowledge.toml")
	writeKnowledge(t, path, sampleKnowledge)

	idx, err := BuildIndex(ctx, DefaultStore(), newFakeEmbedder(), zap.NewNop())
	require.NoError(t, err)

	r := NewReloader(path, idx, zaptest.NewLogger(t))
	r.debounce = 20 * time.Millisecond
	require.NoError(t, r.Watch(ctx))
	defer r.Close()

	assert.Error(t, r.Watch(ctx), "second watch is rejected")

	writeKnowledge(t, path, sampleKnowledge+`
[[documents]]
id = "therapy_001"
title = "CBT"
content = "Cognitive behavioral therapy"
category = "therapy"
`)

	assert.Eventually(t, func() bool {
		return idx.Stats().Documents == 3
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}
