package catalog

import (
	"bytes"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	domdoc "github.com/kailas-cloud/vecquiz/internal/domain/document"
)

// parquetRow is one catalog row in a Parquet file. Large catalogs with
// provider embeddings are usually exported this way from a notebook.
type parquetRow struct {
	ID        int64     `parquet:"id"`
	Content   string    `parquet:"content"`
	Embedding []float64 `parquet:"embedding,list"`
}

// ParseParquet validates a Parquet catalog.
func ParseParquet(data []byte) (*domdoc.Catalog, error) {
	rows, err := parquet.Read[parquetRow](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse parquet: %w", domain.ErrInvalidCatalog, err)
	}

	entries := make([]documentDTO, len(rows))
	for i, r := range rows {
		entries[i] = documentDTO{ID: int(r.ID), Content: r.Content, Embedding: r.Embedding}
	}
	return build(entries)
}

// WriteParquet exports c in the layout ParseParquet reads.
func WriteParquet(w io.Writer, c *domdoc.Catalog) error {
	docs := c.Documents()
	rows := make([]parquetRow, len(docs))
	for i, d := range docs {
		rows[i] = parquetRow{ID: int64(d.ID()), Content: d.Content(), Embedding: d.Embedding()}
	}
	if err := parquet.Write(w, rows); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	return nil
}
