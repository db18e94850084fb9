package tabular

import (
	"context"
	"fmt"
	"strings"

	"github.com/redbco/askdata/pkg/dbcapabilities"
	"github.com/redbco/askdata/pkg/logger"
	"github.com/redbco/askdata/pkg/models"
)

// schemaSampleColumns caps how many columns contribute sample values to
// the prompt context.
const schemaSampleColumns = 10

// Agent is the tabular query agent. The file is loaded fresh on every
// call; nothing is cached between requests.
type Agent struct {
	logger *logger.Logger
}

// New creates a tabular agent.
func New(log *logger.Logger) *Agent {
	return &Agent{logger: log}
}

// Paradigm implements agent.QueryAgent.
func (a *Agent) Paradigm() dbcapabilities.DataParadigm {
	return dbcapabilities.ParadigmTabular
}

// SchemaContext loads the file and renders column names, inferred types,
// counts and sample values. An unreadable file degrades to a placeholder.
func (a *Agent) SchemaContext(ctx context.Context, ds *models.Datasource) string {
	frame, err := loadFrame(ds)
	if err != nil {
		if a.logger != nil {
			a.logger.Error("error extracting tabular schema: %v", err)
		}
		return "Error extracting schema"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DataFrame Info:\n- Total rows: %d\n- Total columns: %d\n\nColumns:\n",
		len(frame.Rows), len(frame.Columns))

	for _, col := range frame.Columns {
		values, _ := frame.column(col)
		stats := statsFor(values)
		fmt.Fprintf(&b, "  - %s (type: %s, non-null: %d, unique: %d)\n",
			col, stats.dtype, stats.nonNullCount, stats.uniqueCount)
	}

	b.WriteString("\nSample values:\n")
	cols := frame.Columns
	if len(cols) > schemaSampleColumns {
		cols = cols[:schemaSampleColumns]
	}
	for _, col := range cols {
		values, _ := frame.column(col)
		fmt.Fprintf(&b, "  %s: %v\n", col, sampleValues(values, 3))
	}

	return strings.TrimRight(b.String(), "\n")
}

// Execute parses the snippet into the closed grammar and interprets it
// against the loaded frame.
func (a *Agent) Execute(ctx context.Context, query string, ds *models.Datasource) (*models.ExecutionResult, error) {
	frame, err := loadFrame(ds)
	if err != nil {
		return nil, err
	}

	expr, err := parseExpression(stripAssignment(query))
	if err != nil {
		return nil, fmt.Errorf("unsupported expression: %v", err)
	}

	result, err := evaluate(expr, frame)
	if err != nil {
		return nil, fmt.Errorf("error evaluating expression: %v", err)
	}

	return normalizeResult(result)
}

// SchemaInfo returns column metadata with basic statistics for numeric
// columns.
func (a *Agent) SchemaInfo(ctx context.Context, ds *models.Datasource) (*models.SchemaInfo, error) {
	frame, err := loadFrame(ds)
	if err != nil {
		return nil, fmt.Errorf("error getting file info: %v", err)
	}

	info := &models.SchemaInfo{
		Kind:     string(dbcapabilities.ParadigmTabular),
		FileName: ds.Details.FileName,
		RowCount: len(frame.Rows),
	}

	for _, col := range frame.Columns {
		values, _ := frame.column(col)
		stats := statsFor(values)

		colInfo := models.ColumnInfo{Name: col, Type: stats.dtype}
		nonNull := stats.nonNullCount
		unique := stats.uniqueCount
		colInfo.NonNullCount = &nonNull
		colInfo.UniqueCount = &unique
		if stats.numeric {
			minV, maxV, meanV := stats.min, stats.max, stats.mean
			colInfo.Min = &minV
			colInfo.Max = &maxV
			colInfo.Mean = &meanV
		}
		info.Columns = append(info.Columns, colInfo)
	}

	return info, nil
}
