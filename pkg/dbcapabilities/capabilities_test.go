package dbcapabilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]DatasourceID{
		"postgres":   PostgreSQL,
		"PostgreSQL": PostgreSQL,
		"psql":       PostgreSQL,
		"  pgsql  ":  PostgreSQL,
		"mariadb":    MySQL,
		"mongo":      MongoDB,
		"MongoDB":    MongoDB,
		"pandas":     CSV,
		"xlsx":       Excel,
	}
	for kind, want := range cases {
		id, ok := Normalize(kind)
		require.True(t, ok, kind)
		assert.Equal(t, want, id, kind)
	}

	_, ok := Normalize("cassandra")
	assert.False(t, ok)
}

func TestParadigmOf(t *testing.T) {
	cases := map[string]DataParadigm{
		"postgres": ParadigmRelational,
		"mysql":    ParadigmRelational,
		"mongodb":  ParadigmDocument,
		"csv":      ParadigmTabular,
		"excel":    ParadigmTabular,
	}
	for kind, want := range cases {
		paradigm, ok := ParadigmOf(kind)
		require.True(t, ok, kind)
		assert.Equal(t, want, paradigm, kind)
	}

	_, ok := ParadigmOf("neo4j")
	assert.False(t, ok)
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("postgres"))
	assert.True(t, IsSupported("spreadsheet"))
	assert.False(t, IsSupported("redis"))
	assert.False(t, IsSupported(""))
}
