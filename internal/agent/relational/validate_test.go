package relational

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateReadOnly(t *testing.T) {
	a := New(nil)

	t.Run("plain select passes", func(t *testing.T) {
		ok, reason := a.ValidateReadOnly("SELECT id, name FROM users WHERE age > 30")
		assert.True(t, ok)
		assert.Empty(t, reason)
	})

	t.Run("cte passes", func(t *testing.T) {
		ok, _ := a.ValidateReadOnly("WITH recent AS (SELECT * FROM orders) SELECT * FROM recent")
		assert.True(t, ok)
	})

	t.Run("trailing semicolon passes", func(t *testing.T) {
		ok, _ := a.ValidateReadOnly("SELECT * FROM users;")
		assert.True(t, ok)
	})

	t.Run("non-select prefix is rejected", func(t *testing.T) {
		ok, reason := a.ValidateReadOnly("SHOW TABLES")
		assert.False(t, ok)
		assert.Contains(t, reason, "must start with SELECT or WITH")
	})

	t.Run("forbidden keywords are rejected anywhere", func(t *testing.T) {
		queries := map[string]string{
			"SELECT * FROM users; DROP TABLE users;":                        "DROP",
			"select * from t where id in (select id from t2); delete from t": "DELETE",
			"SELECT * FROM (SELECT * FROM t) x; TRUNCATE t":                 "TRUNCATE",
		}
		for query, keyword := range queries {
			ok, reason := a.ValidateReadOnly(query)
			assert.False(t, ok, query)
			assert.Contains(t, reason, keyword)
		}
	})

	t.Run("keyword matching is whole-word", func(t *testing.T) {
		// Column names containing a keyword as a substring are fine.
		ok, _ := a.ValidateReadOnly("SELECT created_at, updates FROM events")
		assert.True(t, ok)
	})

	t.Run("statement stacking is rejected", func(t *testing.T) {
		ok, reason := a.ValidateReadOnly("SELECT 1; SELECT 2")
		assert.False(t, ok)
		assert.Contains(t, reason, "multiple statements")
	})

	t.Run("verdict is deterministic", func(t *testing.T) {
		query := "SELECT * FROM users; DROP TABLE users;"
		ok1, reason1 := a.ValidateReadOnly(query)
		ok2, reason2 := a.ValidateReadOnly(query)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, reason1, reason2)
	})
}
