package llm

import (
	"fmt"
	"strings"

	"github.com/redbco/askdata/pkg/dbcapabilities"
)

// PromptFor builds the single-shot prompt sent to the primary tier. Each
// paradigm states its read-only rules and the exact output shape expected.
func PromptFor(req Request) string {
	switch req.Paradigm {
	case dbcapabilities.ParadigmDocument:
		return fmt.Sprintf(`Given the following MongoDB collection schema:
%s

Convert the following natural language query to a valid MongoDB query:
"%s"

Rules:
1. ONLY generate read operations (find or aggregate)
2. Return the query as a JSON object
3. For find: {"operation": "find", "filter": {}, "projection": {}, "sort": {}, "limit": null}
4. For aggregate: {"operation": "aggregate", "pipeline": []}
5. Do not include any explanation

MongoDB Query:`, req.SchemaContext, req.Question)
	case dbcapabilities.ParadigmTabular:
		return fmt.Sprintf(`Given a DataFrame 'df' with the following columns:
%s

Convert the following natural language query to a single expression over 'df':
"%s"

Rules:
1. ONLY generate read operations (no inplace modifications)
2. Assume the DataFrame is named 'df'
3. Use only filtering (df[df["col"] > x]), column selection, sort_values,
   head, groupby with sum/mean/min/max/count, unique and value_counts
4. Return only the expression, no explanations

Pandas Code:`, req.SchemaContext, req.Question)
	default:
		return fmt.Sprintf(`Given the following database schema:
%s

Convert the following natural language query to a valid SQL SELECT query:
"%s"

Rules:
1. ONLY generate SELECT queries
2. Do not include any explanation, just the raw SQL
3. Ensure the query is syntactically correct
4. Use appropriate JOINs if needed
5. Handle NULL values appropriately

SQL Query:`, req.SchemaContext, req.Question)
	}
}

// SystemPromptFor builds the system instruction for the fallback chat tier.
func SystemPromptFor(paradigm dbcapabilities.DataParadigm) string {
	switch paradigm {
	case dbcapabilities.ParadigmDocument:
		return `You are an expert MongoDB query generator. Given a natural language question and collection schema,
generate ONLY a valid MongoDB find/aggregate query in JSON format.
IMPORTANT: Only generate READ-ONLY queries (find, aggregate). Never generate insert, update, delete, drop, or any modifying operations.
Return ONLY the MongoDB query as a JSON object, nothing else.`
	case dbcapabilities.ParadigmTabular:
		return `You are an expert Pandas code generator. Given a natural language question and DataFrame columns,
generate ONLY a single read-only expression over the DataFrame named 'df', using filtering,
column selection, sort_values, head, groupby with sum/mean/min/max/count, unique or value_counts.
IMPORTANT: Never generate operations that modify the original DataFrame or touch files.
Return ONLY the expression, nothing else.`
	default:
		return `You are an expert SQL query generator. Given a natural language question and database schema,
generate ONLY a valid SELECT SQL query. Do not include any explanations, just the raw SQL query.
IMPORTANT: Only generate READ-ONLY queries (SELECT). Never generate INSERT, UPDATE, DELETE, DROP, ALTER, CREATE, or any other modifying queries.
Return ONLY the SQL query, nothing else.`
	}
}

// UserMessageFor embeds the schema context and the question into the user
// message of the fallback chat request.
func UserMessageFor(req Request) string {
	return fmt.Sprintf(`Schema/Columns:
%s

Natural Language Query: %s

Generate the %s query:`, req.SchemaContext, req.Question, strings.ToUpper(string(req.Paradigm)))
}

// labelPrefixes are leading labels models sometimes echo back.
var labelPrefixes = []string{"SQL:", "Query:", "MongoDB Query:", "Pandas Code:"}

// CleanOutput strips markdown code fencing and label prefixes from model
// output before it is handed to validation.
func CleanOutput(out string) string {
	out = strings.TrimSpace(out)

	if strings.HasPrefix(out, "```") {
		if idx := strings.IndexByte(out, '\n'); idx >= 0 {
			out = out[idx+1:]
		} else {
			out = strings.TrimPrefix(out, "```")
		}
	}
	out = strings.TrimSuffix(strings.TrimSpace(out), "```")
	out = strings.TrimSpace(out)

	for _, prefix := range labelPrefixes {
		if len(out) >= len(prefix) && strings.EqualFold(out[:len(prefix)], prefix) {
			out = strings.TrimSpace(out[len(prefix):])
			break
		}
	}

	return out
}
