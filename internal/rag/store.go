package rag

import (
	"fmt"
	"strings"
)

// Store is an immutable collection of documents indexed by id and category.
// It is safe for concurrent readers.
type Store struct {
	docs       []Document
	byID       map[string]int
	byCategory map[Category][]int
}

// NewStore validates docs and freezes them into a Store.
// Ids must be non-empty and unique across the whole store.
func NewStore(docs []Document) (*Store, error) {
	s := &Store{
		docs:       make([]Document, 0, len(docs)),
		byID:       make(map[string]int, len(docs)),
		byCategory: make(map[Category][]int),
	}

	for i, doc := range docs {
		if strings.TrimSpace(doc.ID) == "" {
			return nil, fmt.Errorf("document %d: id is required", i)
		}
		if !doc.Category.Valid() {
			return nil, fmt.Errorf("document %s: unknown category %q", doc.ID, doc.Category)
		}
		if _, exists := s.byID[doc.ID]; exists {
			return nil, fmt.Errorf("document %s: duplicate id", doc.ID)
		}

		idx := len(s.docs)
		s.docs = append(s.docs, doc)
		s.byID[doc.ID] = idx
		s.byCategory[doc.Category] = append(s.byCategory[doc.Category], idx)
	}

	return s, nil
}

// All returns every document in insertion order.
func (s *Store) All() []Document {
	return append([]Document(nil), s.docs...)
}

// ByCategory returns a category's documents in insertion order.
func (s *Store) ByCategory(c Category) []Document {
	idxs := s.byCategory[c]
	out := make([]Document, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, s.docs[i])
	}
	return out
}

// Get looks up a document by id.
func (s *Store) Get(id string) (Document, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Document{}, false
	}
	return s.docs[i], true
}

// Len returns the number of documents.
func (s *Store) Len() int {
	return len(s.docs)
}
