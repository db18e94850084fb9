package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/redbco/askdata/pkg/dbcapabilities"
)

type stubStrategy struct {
	name   string
	output string
	ok     bool
	calls  int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Generate(ctx context.Context, req Request) (string, bool) {
	s.calls++
	return s.output, s.ok
}

func TestGeneratorFallback(t *testing.T) {
	req := Request{Paradigm: dbcapabilities.ParadigmRelational, Question: "how many users"}

	t.Run("first tier answering wins", func(t *testing.T) {
		primary := &stubStrategy{name: "ollama", output: "SELECT count(*) FROM users", ok: true}
		fallback := &stubStrategy{name: "groq", output: "SELECT 1", ok: true}

		query, tier := NewGenerator(nil, primary, fallback).Generate(context.Background(), req)

		assert.Equal(t, "SELECT count(*) FROM users", query)
		assert.Equal(t, "ollama", tier)
		assert.Zero(t, fallback.calls)
	})

	t.Run("fallback answers when primary is down", func(t *testing.T) {
		primary := &stubStrategy{name: "ollama", ok: false}
		fallback := &stubStrategy{name: "groq", output: "SELECT 1", ok: true}

		query, tier := NewGenerator(nil, primary, fallback).Generate(context.Background(), req)

		assert.Equal(t, "SELECT 1", query)
		assert.Equal(t, "groq", tier)
		assert.Equal(t, 1, primary.calls)
	})

	t.Run("empty content counts as no answer", func(t *testing.T) {
		primary := &stubStrategy{name: "ollama", output: "   ", ok: true}
		fallback := &stubStrategy{name: "groq", output: "SELECT 1", ok: true}

		query, tier := NewGenerator(nil, primary, fallback).Generate(context.Background(), req)

		assert.Equal(t, "SELECT 1", query)
		assert.Equal(t, "groq", tier)
	})

	t.Run("both tiers empty reports none", func(t *testing.T) {
		primary := &stubStrategy{name: "ollama", ok: false}
		fallback := &stubStrategy{name: "groq", ok: false}

		query, tier := NewGenerator(nil, primary, fallback).Generate(context.Background(), req)

		assert.Empty(t, query)
		assert.Equal(t, TierNone, tier)
	})

	t.Run("output is cleaned before return", func(t *testing.T) {
		primary := &stubStrategy{name: "ollama", output: "```sql\nSELECT 1\n```", ok: true}

		query, _ := NewGenerator(nil, primary).Generate(context.Background(), req)

		assert.Equal(t, "SELECT 1", query)
	})
}
