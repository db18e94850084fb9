package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/askdata/internal/llm"
	"github.com/redbco/askdata/pkg/dbcapabilities"
	"github.com/redbco/askdata/pkg/models"
)

type fakeAgent struct {
	schemaContext string
	validateOK    bool
	validateMsg   string
	result        *models.ExecutionResult
	execErr       error
	executed      bool
}

func (f *fakeAgent) Paradigm() dbcapabilities.DataParadigm { return dbcapabilities.ParadigmRelational }

func (f *fakeAgent) SchemaContext(ctx context.Context, ds *models.Datasource) string {
	return f.schemaContext
}

func (f *fakeAgent) ValidateReadOnly(query string) (bool, string) {
	return f.validateOK, f.validateMsg
}

func (f *fakeAgent) Execute(ctx context.Context, query string, ds *models.Datasource) (*models.ExecutionResult, error) {
	f.executed = true
	return f.result, f.execErr
}

func (f *fakeAgent) SchemaInfo(ctx context.Context, ds *models.Datasource) (*models.SchemaInfo, error) {
	return nil, nil
}

type fakeGenerator struct {
	query string
	tier  string
}

func (f *fakeGenerator) Generate(ctx context.Context, req llm.Request) (string, string) {
	return f.query, f.tier
}

func testDatasource() *models.Datasource {
	return &models.Datasource{ID: "ds-1", OwnerID: "user-1", Kind: "postgres"}
}

func TestRun(t *testing.T) {
	t.Run("successful pipeline", func(t *testing.T) {
		result := &models.ExecutionResult{
			Rows:     []map[string]interface{}{{"count": 3}},
			Columns:  []string{"count"},
			RowCount: 1,
		}
		a := &fakeAgent{validateOK: true, result: result}
		gen := &fakeGenerator{query: "SELECT count(*) FROM users", tier: "ollama"}

		outcome := Run(context.Background(), a, gen, "how many users", testDatasource())

		assert.True(t, outcome.Success)
		assert.Equal(t, "how many users", outcome.Query)
		assert.Equal(t, "SELECT count(*) FROM users", outcome.GeneratedQuery)
		assert.Equal(t, "postgres", outcome.DatasourceKind)
		assert.Equal(t, "ollama", outcome.LLMUsed)
		assert.Empty(t, outcome.Error)
		require.NotNil(t, outcome.Result)
		assert.Equal(t, 1, outcome.Result.RowCount)
	})

	t.Run("generation failure short-circuits", func(t *testing.T) {
		a := &fakeAgent{validateOK: true}
		gen := &fakeGenerator{query: "", tier: llm.TierNone}

		outcome := Run(context.Background(), a, gen, "how many users", testDatasource())

		assert.False(t, outcome.Success)
		assert.Equal(t, "failed to generate query from natural language", outcome.Error)
		assert.Empty(t, outcome.GeneratedQuery)
		assert.Equal(t, llm.TierNone, outcome.LLMUsed)
		assert.False(t, a.executed)
		assert.Nil(t, outcome.Result)
	})

	t.Run("validation failure carries the rejected query", func(t *testing.T) {
		a := &fakeAgent{validateOK: false, validateMsg: "forbidden keyword detected: DROP"}
		gen := &fakeGenerator{query: "DROP TABLE users", tier: "groq"}

		outcome := Run(context.Background(), a, gen, "remove users", testDatasource())

		assert.False(t, outcome.Success)
		assert.Equal(t, "DROP TABLE users", outcome.GeneratedQuery)
		assert.Contains(t, outcome.Error, "query validation failed")
		assert.Contains(t, outcome.Error, "DROP")
		assert.False(t, a.executed, "execution must never run after a validation failure")
	})

	t.Run("execution failure carries the query and error", func(t *testing.T) {
		a := &fakeAgent{validateOK: true, execErr: fmt.Errorf("error connecting to database: connection refused")}
		gen := &fakeGenerator{query: "SELECT 1", tier: "ollama"}

		outcome := Run(context.Background(), a, gen, "anything", testDatasource())

		assert.False(t, outcome.Success)
		assert.Equal(t, "SELECT 1", outcome.GeneratedQuery)
		assert.Contains(t, outcome.Error, "connection refused")
		assert.Nil(t, outcome.Result)
	})
}
