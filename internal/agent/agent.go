// Package agent defines the query-agent contract shared by the relational,
// document and tabular backends, and the fixed pipeline every request runs
// through: generate, validate, execute.
package agent

import (
	"context"
	"fmt"

	"github.com/redbco/askdata/internal/llm"
	"github.com/redbco/askdata/pkg/dbcapabilities"
	"github.com/redbco/askdata/pkg/models"
)

// MaxResultRows is the hard cap applied to execution results regardless of
// what the generated query asked for. Read-only validation is not the only
// safety barrier.
const MaxResultRows = 1000

// QueryAgent is implemented once per backend paradigm. Agents are stateless;
// connections are acquired per call and released on every exit path.
type QueryAgent interface {
	// Paradigm names the backend kind this agent serves.
	Paradigm() dbcapabilities.DataParadigm

	// SchemaContext introspects the backend and returns a bounded textual
	// summary for prompt grounding. It never fails: an unreachable backend
	// yields an explanatory placeholder, degrading generation quality
	// instead of aborting the pipeline.
	SchemaContext(ctx context.Context, ds *models.Datasource) string

	// ValidateReadOnly is a pure syntactic check of the generated query.
	// Ambiguous input is rejected, not passed through.
	ValidateReadOnly(query string) (bool, string)

	// Execute runs a validated query with backend-enforced limits and maps
	// the backend result into the normalized ExecutionResult.
	Execute(ctx context.Context, query string, ds *models.Datasource) (*models.ExecutionResult, error)

	// SchemaInfo is the light introspection behind the schema endpoint:
	// table/column, collection/field or column/stat listings.
	SchemaInfo(ctx context.Context, ds *models.Datasource) (*models.SchemaInfo, error)
}

// Generator produces a query for a request and names the tier that
// answered, or llm.TierNone.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (string, string)
}

// Run is the pipeline shared by all agents. Generation, validation and
// execution are strictly ordered; there is no retry within one call (tier
// retry lives inside the generator). Every failure resolves to a complete
// outcome, never a partial one.
func Run(ctx context.Context, a QueryAgent, gen Generator, question string, ds *models.Datasource) models.QueryOutcome {
	outcome := models.QueryOutcome{
		Query:          question,
		DatasourceKind: ds.Kind,
	}

	schemaContext := a.SchemaContext(ctx, ds)

	query, tier := gen.Generate(ctx, llm.Request{
		Paradigm:      a.Paradigm(),
		Question:      question,
		SchemaContext: schemaContext,
	})
	outcome.LLMUsed = tier

	if query == "" {
		outcome.Error = "failed to generate query from natural language"
		return outcome
	}
	outcome.GeneratedQuery = query

	if ok, reason := a.ValidateReadOnly(query); !ok {
		outcome.Error = fmt.Sprintf("query validation failed: %s", reason)
		return outcome
	}

	result, err := a.Execute(ctx, query, ds)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Success = true
	outcome.Result = result
	return outcome
}
