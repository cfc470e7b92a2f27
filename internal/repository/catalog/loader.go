package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	domdoc "github.com/kailas-cloud/vecquiz/internal/domain/document"
)

// fileDTO mirrors the catalog YAML file:
//
//	documents:
//	  - id: 1
//	    content: "Artificial Intelligence"
//	    embedding: [0.8, 0.2, 0.1]
type fileDTO struct {
	Documents []documentDTO `yaml:"documents"`
}

type documentDTO struct {
	ID        int       `yaml:"id"`
	Content   string    `yaml:"content"`
	Embedding []float64 `yaml:"embedding"`
}

// Load returns the built-in seed when path is empty, otherwise parses and
// validates the catalog at path: Parquet for *.parquet, YAML for anything else.
func Load(path string) (*domdoc.Catalog, error) {
	if path == "" {
		return domdoc.SeedCatalog(), nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return ParseParquet(data)
	}
	return Parse(data)
}

// Parse validates a YAML catalog document.
func Parse(data []byte) (*domdoc.Catalog, error) {
	var f fileDTO
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse: %w", domain.ErrInvalidCatalog, err)
	}

	return build(f.Documents)
}

func build(entries []documentDTO) (*domdoc.Catalog, error) {
	docs := make([]domdoc.Document, 0, len(entries))
	for i, d := range entries {
		doc, err := domdoc.New(d.ID, d.Content, d.Embedding)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", domain.ErrInvalidCatalog, i, err)
		}
		docs = append(docs, doc)
	}

	c, err := domdoc.NewCatalog(docs)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	return c, nil
}
