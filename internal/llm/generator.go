// Package llm turns natural-language questions into backend queries. Two
// tiers are configured: a locally hosted Ollama server as primary and the
// Groq chat-completion API as fallback. A tier that cannot answer reports
// "no result" instead of an error; a model outage is an expected condition.
package llm

import (
	"context"

	"github.com/redbco/askdata/pkg/dbcapabilities"
	"github.com/redbco/askdata/pkg/logger"
)

// TierNone is reported when no tier produced a usable query.
const TierNone = "none"

// Request carries everything a tier needs to generate one query.
type Request struct {
	Paradigm      dbcapabilities.DataParadigm
	Question      string
	SchemaContext string
}

// Strategy is a single generation tier. Generate returns ok=false when the
// tier is unavailable or produced no content; it never returns an error.
type Strategy interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, bool)
}

// Generator tries an ordered list of strategies and returns the first
// non-empty answer, cleaned of markdown fencing and label prefixes.
type Generator struct {
	strategies []Strategy
	logger     *logger.Logger
}

// NewGenerator builds a generator over the given tiers, tried in order.
func NewGenerator(log *logger.Logger, strategies ...Strategy) *Generator {
	return &Generator{strategies: strategies, logger: log}
}

// Generate produces a query for the request. The second return value names
// the tier that answered, or TierNone when every tier came up empty.
func (g *Generator) Generate(ctx context.Context, req Request) (string, string) {
	for i, s := range g.strategies {
		if i > 0 && g.logger != nil {
			g.logger.Info("falling back to %s for %s query generation", s.Name(), req.Paradigm)
		}
		if out, ok := s.Generate(ctx, req); ok {
			cleaned := CleanOutput(out)
			if cleaned != "" {
				return cleaned, s.Name()
			}
		}
	}
	return "", TierNone
}
