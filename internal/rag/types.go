package rag

import (
	"context"
	"fmt"
	"strings"
)

// Category groups documents for risk-scoped lookups.
type Category string

const (
	CategoryCrisis     Category = "crisis"
	CategoryTherapy    Category = "therapy"
	CategoryLifestyle  Category = "lifestyle"
	CategoryCoping     Category = "coping"
	CategoryDepression Category = "depression"
	CategoryAnxiety    Category = "anxiety"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryCrisis, CategoryTherapy, CategoryLifestyle,
		CategoryCoping, CategoryDepression, CategoryAnxiety:
		return true
	}
	return false
}

// ParseCategory parses a case-insensitive category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Document is a retrievable knowledge base entry.
type Document struct {
	ID       string   `json:"id" toml:"id"`
	Title    string   `json:"title" toml:"title"`
	Content  string   `json:"content" toml:"content"`
	Category Category `json:"category" toml:"category"`
}

// EmbeddingText is the text sent to the embedder for this document.
func (d Document) EmbeddingText() string {
	return d.Title + " " + d.Content
}

// Embedding is a fixed-length vector produced by one embedder configuration.
type Embedding []float64

// RankedResource is a document with its relevance to a query.
type RankedResource struct {
	Document       Document `json:"document"`
	RelevanceScore float64  `json:"relevance_score"`
}

// Embedder maps text to vectors.
type Embedder interface {
	// Embed encodes a single text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// EmbedBatch encodes texts in order; the result has one vector per text.
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)
}
