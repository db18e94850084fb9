package tabular

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/askdata/pkg/models"
)

func writeTestCSV(t *testing.T) *models.Datasource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.csv")
	content := "name,city,age,active\nada,Oslo,36,true\nbo,Oslo,28,false\ncy,Bergen,44,true\ndag,Bergen,,true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return &models.Datasource{
		ID:      "ds-1",
		OwnerID: "user-1",
		Kind:    "csv",
		Details: models.ConnectionDetails{FilePath: path, FileName: "people.csv"},
	}
}

func TestLoadFrame(t *testing.T) {
	t.Run("csv loads with inferred types", func(t *testing.T) {
		frame, err := loadFrame(writeTestCSV(t))
		require.NoError(t, err)

		assert.Equal(t, []string{"name", "city", "age", "active"}, frame.Columns)
		require.Len(t, frame.Rows, 4)
		assert.Equal(t, int64(36), frame.Rows[0][2])
		assert.Equal(t, true, frame.Rows[0][3])
		assert.Nil(t, frame.Rows[3][2])
	})

	t.Run("unsupported extension errors", func(t *testing.T) {
		_, err := loadFrame(&models.Datasource{
			Details: models.ConnectionDetails{FilePath: "data.parquet", FileName: "data.parquet"},
		})
		assert.ErrorContains(t, err, "unsupported file format")
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := loadFrame(&models.Datasource{
			Details: models.ConnectionDetails{FilePath: "/nonexistent/f.csv", FileName: "f.csv"},
		})
		assert.Error(t, err)
	})
}

func TestParseCell(t *testing.T) {
	assert.Equal(t, int64(42), parseCell("42"))
	assert.Equal(t, float64(3.5), parseCell("3.5"))
	assert.Equal(t, true, parseCell("True"))
	assert.Equal(t, "Oslo", parseCell("Oslo"))
	assert.Nil(t, parseCell("  "))
}

func TestDtypeOf(t *testing.T) {
	assert.Equal(t, "int64", dtypeOf([]interface{}{int64(1), nil, int64(2)}))
	assert.Equal(t, "float64", dtypeOf([]interface{}{int64(1), float64(2.5)}))
	assert.Equal(t, "bool", dtypeOf([]interface{}{true, false}))
	assert.Equal(t, "object", dtypeOf([]interface{}{"a", int64(1)}))
}

func TestAgentExecute(t *testing.T) {
	a := New(nil)
	ds := writeTestCSV(t)

	t.Run("filter and project end to end", func(t *testing.T) {
		result, err := a.Execute(context.Background(), `df[df["city"] == "Oslo"][["name", "age"]]`, ds)
		require.NoError(t, err)

		assert.Equal(t, 2, result.RowCount)
		assert.Equal(t, []string{"name", "age"}, result.Columns)
		assert.Equal(t, "ada", result.Rows[0]["name"])
	})

	t.Run("aggregate end to end", func(t *testing.T) {
		result, err := a.Execute(context.Background(), `df["age"].mean()`, ds)
		require.NoError(t, err)

		assert.Equal(t, 1, result.RowCount)
		assert.Equal(t, float64(36), result.Rows[0]["result"])
	})

	t.Run("allowed assignment form executes", func(t *testing.T) {
		result, err := a.Execute(context.Background(), `df = df.head(1)`, ds)
		require.NoError(t, err)
		assert.Equal(t, 1, result.RowCount)
	})

	t.Run("snippet outside the grammar errors", func(t *testing.T) {
		_, err := a.Execute(context.Background(), `df.eval("age + 1")`, ds)
		assert.ErrorContains(t, err, "unsupported expression")
	})
}

func TestAgentSchema(t *testing.T) {
	a := New(nil)
	ds := writeTestCSV(t)

	t.Run("schema context lists columns and samples", func(t *testing.T) {
		ctx := a.SchemaContext(context.Background(), ds)
		assert.Contains(t, ctx, "Total rows: 4")
		assert.Contains(t, ctx, "age (type: int64")
		assert.Contains(t, ctx, "Sample values:")
	})

	t.Run("unreadable file degrades to placeholder", func(t *testing.T) {
		bad := &models.Datasource{Details: models.ConnectionDetails{FilePath: "/nope.csv", FileName: "nope.csv"}}
		assert.Equal(t, "Error extracting schema", a.SchemaContext(context.Background(), bad))
	})

	t.Run("schema info carries numeric stats", func(t *testing.T) {
		info, err := a.SchemaInfo(context.Background(), ds)
		require.NoError(t, err)

		assert.Equal(t, "people.csv", info.FileName)
		assert.Equal(t, 4, info.RowCount)
		require.Len(t, info.Columns, 4)

		age := info.Columns[2]
		assert.Equal(t, "age", age.Name)
		assert.Equal(t, "int64", age.Type)
		require.NotNil(t, age.NonNullCount)
		assert.Equal(t, 3, *age.NonNullCount)
		require.NotNil(t, age.Mean)
		assert.Equal(t, float64(36), *age.Mean)
	})
}
