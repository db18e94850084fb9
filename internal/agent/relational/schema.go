package relational

import (
	"fmt"
	"strings"
	"time"

	"github.com/redbco/askdata/pkg/models"
)

type columnSchema struct {
	Name         string
	Type         string
	IsPrimaryKey bool
}

type foreignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

type tableSchema struct {
	Name        string
	Columns     []columnSchema
	ForeignKeys []foreignKey
}

// formatSchemaContext renders extracted tables into the prompt text shape:
// one block per table with columns, primary-key markers and FK references.
func formatSchemaContext(tables []tableSchema) string {
	if len(tables) == 0 {
		return "No tables found"
	}

	var parts []string
	for _, table := range tables {
		var b strings.Builder
		fmt.Fprintf(&b, "Table: %s\nColumns:\n", table.Name)
		for _, col := range table.Columns {
			fmt.Fprintf(&b, "  - %s (%s)", col.Name, col.Type)
			if col.IsPrimaryKey {
				b.WriteString(" [PRIMARY KEY]")
			}
			b.WriteByte('\n')
		}
		for _, fk := range table.ForeignKeys {
			fmt.Fprintf(&b, "  FK: %s -> %s.%s\n", fk.Column, fk.RefTable, fk.RefColumn)
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}

	return strings.Join(parts, "\n\n")
}

// normalizeValue maps driver-level values onto JSON-serializable scalars.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	default:
		return val
	}
}

// resultFrom assembles the normalized execution result from column order
// and row maps.
func resultFrom(columns []string, rows []map[string]interface{}) *models.ExecutionResult {
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	return &models.ExecutionResult{
		Rows:     rows,
		Columns:  columns,
		RowCount: len(rows),
	}
}
