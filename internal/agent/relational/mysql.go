package relational

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/redbco/askdata/internal/agent"
	"github.com/redbco/askdata/pkg/dbcapabilities"
	"github.com/redbco/askdata/pkg/models"
)

// connectMySQL opens a database/sql handle for the duration of one call.
func connectMySQL(ctx context.Context, ds *models.Datasource) (*sql.DB, error) {
	details := ds.Details
	port := details.Port
	if port == 0 {
		port = dbcapabilities.All[dbcapabilities.MySQL].DefaultPort
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false",
		details.Username, details.Password, details.Host, port, details.Database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %v", err)
	}

	return db, nil
}

// executeMySQL runs the statement verbatim and maps rows into the
// normalized shape, capped at agent.MaxResultRows.
func (a *Agent) executeMySQL(ctx context.Context, query string, ds *models.Datasource) (*models.ExecutionResult, error) {
	db, err := connectMySQL(ctx, ds)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %v", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("error reading columns: %v", err)
	}

	var result []map[string]interface{}
	for rows.Next() {
		if len(result) >= agent.MaxResultRows {
			break
		}

		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
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

// introspectMySQL extracts tables, columns, primary keys and foreign keys
// from the connected database. limit==0 extracts all tables.
func (a *Agent) introspectMySQL(ctx context.Context, ds *models.Datasource, limit int) ([]tableSchema, error) {
	db, err := connectMySQL(ctx, ds)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
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
		table, err := introspectMySQLTable(ctx, db, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *table)
	}

	return tables, nil
}

func introspectMySQLTable(ctx context.Context, db *sql.DB, tableName string) (*tableSchema, error) {
	table := &tableSchema{Name: tableName}

	colRows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type, column_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, tableName)
	if err != nil {
		return nil, fmt.Errorf("error fetching columns for %s: %v", tableName, err)
	}
	for colRows.Next() {
		var col columnSchema
		var columnKey string
		if err := colRows.Scan(&col.Name, &col.Type, &columnKey); err != nil {
			colRows.Close()
			return nil, fmt.Errorf("error scanning column: %v", err)
		}
		col.IsPrimaryKey = columnKey == "PRI"
		table.Columns = append(table.Columns, col)
	}
	colRows.Close()
	if err := colRows.Err(); err != nil {
		return nil, fmt.Errorf("error fetching columns for %s: %v", tableName, err)
	}

	fkRows, err := db.QueryContext(ctx, `
		SELECT column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE()
			AND table_name = ?
			AND referenced_table_name IS NOT NULL`, tableName)
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
