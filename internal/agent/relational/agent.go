// Package relational implements the query agent for SQL datasources.
// PostgreSQL connects through pgx pools, MySQL through database/sql with
// the go-sql-driver. Both engines share the same validation policy, schema
// text format and result normalization.
package relational

import (
	"context"
	"fmt"
	"time"

	"github.com/redbco/askdata/pkg/dbcapabilities"
	"github.com/redbco/askdata/pkg/logger"
	"github.com/redbco/askdata/pkg/models"
)

// schemaTableLimit caps how many tables feed the prompt context.
const schemaTableLimit = 10

// Agent is the relational query agent. Stateless; a connection is opened at
// the start of each schema or execute call and closed on every exit path.
type Agent struct {
	logger        *logger.Logger
	queryTimeout  time.Duration
	schemaTimeout time.Duration
}

// New creates a relational agent.
func New(log *logger.Logger) *Agent {
	return &Agent{
		logger:        log,
		queryTimeout:  30 * time.Second,
		schemaTimeout: 10 * time.Second,
	}
}

// Paradigm implements agent.QueryAgent.
func (a *Agent) Paradigm() dbcapabilities.DataParadigm {
	return dbcapabilities.ParadigmRelational
}

// engineOf resolves the datasource kind to the SQL engine family.
func engineOf(ds *models.Datasource) (dbcapabilities.DatasourceID, error) {
	id, ok := dbcapabilities.Normalize(ds.Kind)
	if !ok {
		return "", fmt.Errorf("unsupported relational datasource kind: %s", ds.Kind)
	}
	switch id {
	case dbcapabilities.PostgreSQL, dbcapabilities.MySQL:
		return id, nil
	default:
		return "", fmt.Errorf("unsupported relational datasource kind: %s", ds.Kind)
	}
}

// SchemaContext returns a bounded textual schema summary: tables, columns,
// primary keys and foreign keys for the first tables of the database. An
// unreachable backend degrades to a placeholder string.
func (a *Agent) SchemaContext(ctx context.Context, ds *models.Datasource) string {
	ctx, cancel := context.WithTimeout(ctx, a.schemaTimeout)
	defer cancel()

	tables, err := a.introspect(ctx, ds, schemaTableLimit)
	if err != nil {
		if a.logger != nil {
			a.logger.Error("error extracting SQL schema: %v", err)
		}
		return "Error extracting schema"
	}

	return formatSchemaContext(tables)
}

// Execute runs the validated statement as the sole statement of the call,
// under the query timeout, with the hard result-row cap.
func (a *Agent) Execute(ctx context.Context, query string, ds *models.Datasource) (*models.ExecutionResult, error) {
	engine, err := engineOf(ds)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()

	switch engine {
	case dbcapabilities.PostgreSQL:
		return a.executePostgres(ctx, query, ds)
	default:
		return a.executeMySQL(ctx, query, ds)
	}
}

// SchemaInfo lists tables with their columns for the schema endpoint.
func (a *Agent) SchemaInfo(ctx context.Context, ds *models.Datasource) (*models.SchemaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, a.schemaTimeout)
	defer cancel()

	tables, err := a.introspect(ctx, ds, 0)
	if err != nil {
		return nil, fmt.Errorf("error getting tables info: %v", err)
	}

	info := &models.SchemaInfo{Kind: string(dbcapabilities.ParadigmRelational)}
	for _, t := range tables {
		ti := models.TableInfo{Name: t.Name}
		for _, c := range t.Columns {
			ti.Columns = append(ti.Columns, models.ColumnInfo{Name: c.Name, Type: c.Type})
		}
		info.Tables = append(info.Tables, ti)
	}
	return info, nil
}

// introspect dispatches schema extraction by engine. limit==0 means all
// tables.
func (a *Agent) introspect(ctx context.Context, ds *models.Datasource, limit int) ([]tableSchema, error) {
	engine, err := engineOf(ds)
	if err != nil {
		return nil, err
	}

	switch engine {
	case dbcapabilities.PostgreSQL:
		return a.introspectPostgres(ctx, ds, limit)
	default:
		return a.introspectMySQL(ctx, ds, limit)
	}
}
