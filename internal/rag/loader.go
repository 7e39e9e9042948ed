package rag

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// knowledgeFile is the on-disk layout of a knowledge base:
//
//	[[documents]]
//	id = "coping_001"
//	title = "Mindfulness Meditation"
//	content = "..."
//	category = "coping"
type knowledgeFile struct {
	Documents []Document `toml:"documents"`
}

// ParseDocuments decodes a TOML knowledge base and validates it into a Store.
func ParseDocuments(data []byte) (*Store, error) {
	var f knowledgeFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}
	if len(f.Documents) == 0 {
		return nil, fmt.Errorf("knowledge base has no documents")
	}
	return NewStore(f.Documents)
}

// LoadDocumentsFile reads and parses a TOML knowledge base file.
func LoadDocumentsFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	store, err := ParseDocuments(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return store, nil
}
