package relational

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redbco/askdata/internal/agent"
	"github.com/redbco/askdata/pkg/dbcapabilities"
	"github.com/redbco/askdata/pkg/models"
)

// connectPostgres opens a pool for the duration of one call.
func connectPostgres(ctx context.Context, ds *models.Datasource) (*pgxpool.Pool, error) {
	details := ds.Details
	port := details.Port
	if port == 0 {
		port = dbcapabilities.All[dbcapabilities.PostgreSQL].DefaultPort
	}

	var connString strings.Builder
	fmt.Fprintf(&connString, "postgres://%s:%s@%s:%d/%s?sslmode=disable",
		details.Username,
		details.Password,
		details.Host,
		port,
		details.Database)

	pool, err := pgxpool.New(ctx, connString.String())
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %v", err)
	}

	return pool, nil
}

// executePostgres runs the statement verbatim and maps rows into the
// normalized shape, capped at agent.MaxResultRows.
func (a *Agent) executePostgres(ctx context.Context, query string, ds *models.Datasource) (*models.ExecutionResult, error) {
	pool, err := connectPostgres(ctx, ds)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %v", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var result []map[string]interface{}
	for rows.Next() {
		if len(result) >= agent.MaxResultRows {
			break
		}

		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %v", err)
		}

		entry := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			entry[col] = normalizeValue(values[i])
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %v", err)
	}

	return resultFrom(columns, result), nil
}

// introspectPostgres extracts tables, columns, primary keys and foreign
// keys from the public schema. limit==0 extracts all tables.
func (a *Agent) introspectPostgres(ctx context.Context, ds *models.Datasource, limit int) ([]tableSchema, error) {
	pool, err := connectPostgres(ctx, ds)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("error listing tables: %v", err)
	}
	var tableNames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning table name: %v", err)
		}
		tableNames = append(tableNames, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error listing tables: %v", err)
	}

	if limit > 0 && len(tableNames) > limit {
		tableNames = tableNames[:limit]
	}

	var tables []tableSchema
	for _, name := range tableNames {
		table, err := introspectPostgresTable(ctx, pool, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *table)
	}

	return tables, nil
}

func introspectPostgresTable(ctx context.Context, pool *pgxpool.Pool, tableName string) (*tableSchema, error) {
	table := &tableSchema{Name: tableName}

	pkCols := make(map[string]bool)
	pkRows, err := pool.Query(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = 'public'
			AND tc.table_name = $1
			AND tc.constraint_type = 'PRIMARY KEY'`, tableName)
	if err != nil {
		return nil, fmt.Errorf("error fetching primary key for %s: %v", tableName, err)
	}
	for pkRows.Next() {
		var col string
		if err := pkRows.Scan(&col); err != nil {
			pkRows.Close()
			return nil, fmt.Errorf("error scanning primary key: %v", err)
		}
		pkCols[col] = true
	}
	pkRows.Close()
	if err := pkRows.Err(); err != nil {
		return nil, fmt.Errorf("error fetching primary key for %s: %v", tableName, err)
	}

	colRows, err := pool.Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, tableName)
	if err != nil {
		return nil, fmt.Errorf("error fetching columns for %s: %v", tableName, err)
	}
	for colRows.Next() {
		var col columnSchema
		if err := colRows.Scan(&col.Name, &col.Type); err != nil {
			colRows.Close()
			return nil, fmt.Errorf("error scanning column: %v", err)
		}
		col.IsPrimaryKey = pkCols[col.Name]
		table.Columns = append(table.Columns, col)
	}
	colRows.Close()
	if err := colRows.Err(); err != nil {
		return nil, fmt.Errorf("error fetching columns for %s: %v", tableName, err)
	}

	fkRows, err := pool.Query(ctx, `
		SELECT kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.table_schema = 'public'
			AND tc.table_name = $1
			AND tc.constraint_type = 'FOREIGN KEY'`, tableName)
	if err != nil {
		return nil, fmt.Errorf("error fetching foreign keys for %s: %v", tableName, err)
	}
	for fkRows.Next() {
		var fk foreignKey
		if err := fkRows.Scan(&fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			fkRows.Close()
			return nil, fmt.Errorf("error scanning foreign key: %v", err)
		}
		table.ForeignKeys = append(table.ForeignKeys, fk)
	}
	fkRows.Close()
	if err := fkRows.Err(); err != nil {
		return nil, fmt.Errorf("error fetching foreign keys for %s: %v", tableName, err)
	}

	return table, nil
}
