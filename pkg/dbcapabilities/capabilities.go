// Package dbcapabilities is the registry of datasource kinds askdata can
// query. Every datasource declares a kind string; this package normalizes
// vendor aliases to a canonical identifier and maps each identifier to the
// paradigm that selects the query agent.
package dbcapabilities

import "strings"

// DatasourceID is the canonical identifier for a datasource technology.
type DatasourceID string

const (
	// Relational SQL
	PostgreSQL DatasourceID = "postgres"
	MySQL      DatasourceID = "mysql"

	// Document
	MongoDB DatasourceID = "mongodb"

	// Tabular files
	CSV   DatasourceID = "csv"
	Excel DatasourceID = "excel"
)

// DataParadigm enumerates the query paradigms askdata supports. The agent
// router dispatches on the paradigm, not the vendor.
type DataParadigm string

const (
	ParadigmRelational DataParadigm = "relational"
	ParadigmDocument   DataParadigm = "document"
	ParadigmTabular    DataParadigm = "tabular"
)

// Capability describes a supported datasource technology.
type Capability struct {
	// Human-friendly vendor or product name, e.g., "PostgreSQL".
	Name string `json:"name"`

	// Canonical ID used across the codebase, e.g., "postgres".
	ID DatasourceID `json:"id"`

	// Query paradigm used to select the agent.
	Paradigm DataParadigm `json:"paradigm"`

	// Default network port for server-based datasources (0 for files).
	DefaultPort int `json:"defaultPort,omitempty"`

	// Common aliases (drivers, env labels, legacy names) that map to this
	// datasource.
	Aliases []string `json:"aliases,omitempty"`
}

// All is a registry of capabilities keyed by the canonical datasource ID.
var All = map[DatasourceID]Capability{
	PostgreSQL: {
		Name:        "PostgreSQL",
		ID:          PostgreSQL,
		Paradigm:    ParadigmRelational,
		DefaultPort: 5432,
		Aliases:     []string{"postgresql", "psql", "pgsql"},
	},
	MySQL: {
		Name:        "MySQL",
		ID:          MySQL,
		Paradigm:    ParadigmRelational,
		DefaultPort: 3306,
		Aliases:     []string{"sql", "mariadb"},
	},
	MongoDB: {
		Name:        "MongoDB",
		ID:          MongoDB,
		Paradigm:    ParadigmDocument,
		DefaultPort: 27017,
		Aliases:     []string{"mongo"},
	},
	CSV: {
		Name:     "CSV file",
		ID:       CSV,
		Paradigm: ParadigmTabular,
		Aliases:  []string{"pandas", "tabular", "file"},
	},
	Excel: {
		Name:     "Excel file",
		ID:       Excel,
		Paradigm: ParadigmTabular,
		Aliases:  []string{"xlsx", "xls", "spreadsheet"},
	},
}

// aliasIndex maps every lowercase alias and canonical ID to its canonical ID.
var aliasIndex = buildAliasIndex()

func buildAliasIndex() map[string]DatasourceID {
	idx := make(map[string]DatasourceID)
	for id, cap := range All {
		idx[string(id)] = id
		for _, alias := range cap.Aliases {
			idx[strings.ToLower(alias)] = id
		}
	}
	return idx
}

// Normalize resolves a kind string (canonical or alias, any case) to its
// canonical datasource ID.
func Normalize(kind string) (DatasourceID, bool) {
	id, ok := aliasIndex[strings.ToLower(strings.TrimSpace(kind))]
	return id, ok
}

// ParadigmOf returns the query paradigm for a kind string. Unknown kinds
// return false.
func ParadigmOf(kind string) (DataParadigm, bool) {
	id, ok := Normalize(kind)
	if !ok {
		return "", false
	}
	return All[id].Paradigm, true
}

// IsSupported reports whether the kind string maps to a supported datasource.
func IsSupported(kind string) bool {
	_, ok := Normalize(kind)
	return ok
}
