// Package models holds the shared data model of the askdata service: the
// datasource record resolved by the registry, the normalized execution
// result every agent must produce, and the outcome envelope returned to
// callers.
package models

import "github.com/redbco/askdata/pkg/dbcapabilities"

// ConnectionDetails carries the kind-specific connection parameters of a
// datasource. Only the fields relevant to the datasource kind are set.
type ConnectionDetails struct {
	// Relational (postgres, mysql)
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Database string `json:"database,omitempty"`

	// Document (mongodb); URI takes precedence over host/port when set
	URI        string `json:"uri,omitempty"`
	Collection string `json:"collection,omitempty"`

	// Tabular (csv, excel)
	FilePath string `json:"file_path,omitempty"`
	FileName string `json:"file_name,omitempty"`
}

// Datasource identifies a backend a user can query. Records are created by
// the connection-setup flow and are read-only for the query pipeline.
type Datasource struct {
	ID      string            `json:"id"`
	OwnerID string            `json:"owner_id"`
	Kind    string            `json:"kind"`
	Name    string            `json:"name,omitempty"`
	Details ConnectionDetails `json:"details"`
}

// Paradigm resolves the datasource kind to its query paradigm.
func (d *Datasource) Paradigm() (dbcapabilities.DataParadigm, bool) {
	return dbcapabilities.ParadigmOf(d.Kind)
}

// ExecutionResult is the sole output contract of query execution. Every
// backend-specific result shape (SQL rows, BSON documents, frame slices)
// is mapped into this form before it leaves the agent boundary. Cell
// values are JSON-serializable scalars only.
type ExecutionResult struct {
	Rows     []map[string]interface{} `json:"rows"`
	Columns  []string                 `json:"columns"`
	RowCount int                      `json:"row_count"`
}

// QueryOutcome is the envelope returned for every query request.
// Success==true implies Result is set and Error is empty; Success==false
// implies the reverse. The generated query text is always surfaced on
// validation and execution failures so callers can see what would have run.
type QueryOutcome struct {
	Success        bool             `json:"success"`
	Query          string           `json:"query"`
	GeneratedQuery string           `json:"generated_query"`
	DatasourceKind string           `json:"datasource_kind"`
	Result         *ExecutionResult `json:"result,omitempty"`
	Error          string           `json:"error,omitempty"`
	LLMUsed        string           `json:"llm_used"`
}

// ColumnInfo describes one column of a relational table or tabular file.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`

	// Tabular-only statistics; nil for relational columns.
	NonNullCount *int     `json:"non_null_count,omitempty"`
	UniqueCount  *int     `json:"unique_count,omitempty"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	Mean         *float64 `json:"mean,omitempty"`
}

// TableInfo describes one relational table.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// CollectionInfo describes one document collection.
type CollectionInfo struct {
	Name          string   `json:"name"`
	Fields        []string `json:"fields"`
	DocumentCount int64    `json:"document_count"`
}

// SchemaInfo is the light-weight structure summary returned by the schema
// endpoint. Exactly one of Tables, Collections or Columns is populated,
// matching the datasource paradigm.
type SchemaInfo struct {
	Kind        string           `json:"kind"`
	Tables      []TableInfo      `json:"tables,omitempty"`
	Collections []CollectionInfo `json:"collections,omitempty"`
	FileName    string           `json:"file_name,omitempty"`
	RowCount    int              `json:"row_count,omitempty"`
	Columns     []ColumnInfo     `json:"columns,omitempty"`
}
