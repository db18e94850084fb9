package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateReadOnly(t *testing.T) {
	a := New(nil)

	t.Run("filter expression passes", func(t *testing.T) {
		ok, reason := a.ValidateReadOnly(`df[df["age"] > 30]`)
		assert.True(t, ok)
		assert.Empty(t, reason)
	})

	t.Run("chained query passes", func(t *testing.T) {
		ok, _ := a.ValidateReadOnly(`df[df["city"] == "Oslo"].sort_values("age", ascending=False).head(10)`)
		assert.True(t, ok)
	})

	t.Run("groupby aggregate passes", func(t *testing.T) {
		ok, _ := a.ValidateReadOnly(`df.groupby("city")["salary"].mean()`)
		assert.True(t, ok)
	})

	t.Run("persistence call is rejected", func(t *testing.T) {
		ok, reason := a.ValidateReadOnly(`df.to_csv('x.csv')`)
		assert.False(t, ok)
		assert.Contains(t, reason, "forbidden pattern")
	})

	t.Run("file open is rejected", func(t *testing.T) {
		ok, _ := a.ValidateReadOnly(`open("/etc/passwd").read()`)
		assert.False(t, ok)
	})

	t.Run("import is rejected", func(t *testing.T) {
		ok, _ := a.ValidateReadOnly(`import os`)
		assert.False(t, ok)
	})

	t.Run("dunder access is rejected", func(t *testing.T) {
		ok, _ := a.ValidateReadOnly(`df.__class__`)
		assert.False(t, ok)
	})

	t.Run("inplace mutation is rejected", func(t *testing.T) {
		ok, _ := a.ValidateReadOnly(`df.sort_values("age", inplace=True)`)
		assert.False(t, ok)
	})

	t.Run("direct reassignment is rejected", func(t *testing.T) {
		ok, reason := a.ValidateReadOnly(`df = 42`)
		assert.False(t, ok)
		assert.Contains(t, reason, "reassignment")
	})

	t.Run("derived reassignment passes", func(t *testing.T) {
		ok, _ := a.ValidateReadOnly(`df = df.head(5)`)
		assert.True(t, ok)
	})

	t.Run("expression outside the grammar is rejected", func(t *testing.T) {
		ok, reason := a.ValidateReadOnly(`df.apply(lambda x: x)`)
		assert.False(t, ok)
		assert.Contains(t, reason, "unsupported expression")
	})

	t.Run("verdict is deterministic", func(t *testing.T) {
		ok1, reason1 := a.ValidateReadOnly(`df.to_csv('x.csv')`)
		ok2, reason2 := a.ValidateReadOnly(`df.to_csv('x.csv')`)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, reason1, reason2)
	})
}
