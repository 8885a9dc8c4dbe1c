package idbkit

import (
	"github.com/idbkit/idbkit/internal/dictionary"
)

// SchemaReport is the result of schema(): either an SDI-derived table
// schema with generated DDL, or — when no SDI root is found — the
// best-effort inferred index-structure summary. Exactly one of
// Table/Fallback is set; Inferred reports which.
type SchemaReport struct {
	File      string
	Inferred  bool
	Table     *dictionary.TableSchema  `json:",omitempty"`
	Fallback  *dictionary.InferredSchema `json:",omitempty"`
}

// Schema locates the tablespace's SDI-embedded table schema and renders
// its canonical CREATE TABLE DDL; if no SDI root exists, falls back to
// scanning INDEX pages and reports an inferred structure instead.
func Schema(path string, opts ...Option) (SchemaReport, error) {
	c := newConfig(opts)
	h, err := openTablespace(path, c)
	if err != nil {
		return SchemaReport{}, err
	}
	defer h.Close()

	pages, err := dictionary.FindSDIPages(h)
	if err == nil && len(pages) > 0 {
		records, err := dictionary.ExtractAll(h, pages)
		if err == nil {
			for _, rec := range records {
				if dictionary.TypeName(rec.Type) != "Table" {
					continue
				}
				schema, err := dictionary.ExtractSchemaFromSDI(rec.Data)
				if err == nil {
					return SchemaReport{File: path, Table: &schema}, nil
				}
			}
		}
	}

	inferred, err := dictionary.InferSchemaFromPages(h)
	if err != nil {
		return SchemaReport{}, err
	}
	return SchemaReport{File: path, Inferred: true, Fallback: &inferred}, nil
}
