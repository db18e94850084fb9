package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateReadOnly(t *testing.T) {
	a := New(nil)

	t.Run("find operation passes", func(t *testing.T) {
		ok, reason := a.ValidateReadOnly(`{"operation": "find", "filter": {"age": {"$gt": 30}}}`)
		assert.True(t, ok)
		assert.Empty(t, reason)
	})

	t.Run("aggregate operation passes", func(t *testing.T) {
		ok, _ := a.ValidateReadOnly(`{"operation": "aggregate", "pipeline": [{"$match": {}}]}`)
		assert.True(t, ok)
	})

	t.Run("count and distinct pass", func(t *testing.T) {
		ok, _ := a.ValidateReadOnly(`{"operation": "count", "filter": {}}`)
		assert.True(t, ok)
		ok, _ = a.ValidateReadOnly(`{"operation": "distinct", "field": "city"}`)
		assert.True(t, ok)
	})

	t.Run("mutating operation as json key is rejected", func(t *testing.T) {
		ok, reason := a.ValidateReadOnly(`{"insert": "users", "documents": []}`)
		assert.False(t, ok)
		assert.Contains(t, reason, "forbidden operation")
	})

	t.Run("json operation outside allow-list is rejected", func(t *testing.T) {
		queries := []string{
			`{"operation": "insertOne", "document": {}}`,
			`{"operation": "mapReduce"}`,
		}
		for _, query := range queries {
			ok, reason := a.ValidateReadOnly(query)
			assert.False(t, ok, query)
			assert.Contains(t, reason, "only find, aggregate, count, and distinct")
		}
	})

	t.Run("method-style call is rejected", func(t *testing.T) {
		ok, reason := a.ValidateReadOnly(`db.users.deleteMany({})`)
		assert.False(t, ok)
		assert.Contains(t, reason, "forbidden")
	})

	t.Run("drop is rejected regardless of case", func(t *testing.T) {
		ok, _ := a.ValidateReadOnly(`{"operation": "DROPDATABASE"}`)
		assert.False(t, ok)
	})

	t.Run("non-json text passes the textual check", func(t *testing.T) {
		// The executor attempts structural extraction later.
		ok, _ := a.ValidateReadOnly(`here is the query: {"operation": "find", "filter": {}}`)
		assert.True(t, ok)
	})
}
