// Package router dispatches query requests to the agent matching the
// datasource kind. It owns no business logic beyond routing, ownership
// enforcement and response assembly, and it is the last line of defense
// against a fault below it reaching the caller.
package router

import (
	"context"
	"errors"

	"github.com/redbco/askdata/internal/agent"
	"github.com/redbco/askdata/internal/llm"
	"github.com/redbco/askdata/pkg/dbcapabilities"
	"github.com/redbco/askdata/pkg/logger"
	"github.com/redbco/askdata/pkg/models"
)

// Sentinel errors for the schema endpoint. Messages stay generic so a
// caller cannot probe for the existence of other users' datasources.
var (
	ErrNotFound     = errors.New("datasource not found")
	ErrAccessDenied = errors.New("access denied")
)

// Router holds the fixed mapping from query paradigm to agent. It is
// constructed once at startup and passed to request handlers; there is no
// process-wide agent registry.
type Router struct {
	registry  Registry
	generator agent.Generator
	agents    map[dbcapabilities.DataParadigm]agent.QueryAgent
	logger    *logger.Logger
}

// New builds a router over the given agents.
func New(log *logger.Logger, registry Registry, generator agent.Generator, agents ...agent.QueryAgent) *Router {
	mapping := make(map[dbcapabilities.DataParadigm]agent.QueryAgent, len(agents))
	for _, a := range agents {
		mapping[a.Paradigm()] = a
	}
	return &Router{
		registry:  registry,
		generator: generator,
		agents:    mapping,
		logger:    log,
	}
}

// Route resolves the datasource, enforces ownership and dispatches to the
// matching agent's pipeline. Every failure resolves to a complete outcome;
// a panic below this layer becomes an internal-error outcome.
func (r *Router) Route(ctx context.Context, question, datasourceID, requesterID string) (outcome models.QueryOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.logger != nil {
				r.logger.Error("panic while handling query for datasource %s: %v", datasourceID, rec)
			}
			outcome = models.QueryOutcome{
				Query:   question,
				Error:   "internal error",
				LLMUsed: llm.TierNone,
			}
		}
	}()

	ds, ok := r.registry.Resolve(datasourceID)
	if !ok {
		return models.QueryOutcome{
			Query:   question,
			Error:   ErrNotFound.Error(),
			LLMUsed: llm.TierNone,
		}
	}
	if ds.OwnerID != requesterID {
		return models.QueryOutcome{
			Query:   question,
			Error:   ErrAccessDenied.Error(),
			LLMUsed: llm.TierNone,
		}
	}

	queryAgent, ok := r.agentFor(ds.Kind)
	if !ok {
		return models.QueryOutcome{
			Query:          question,
			DatasourceKind: ds.Kind,
			Error:          "unsupported datasource kind: " + ds.Kind,
			LLMUsed:        llm.TierNone,
		}
	}

	return agent.Run(ctx, queryAgent, r.generator, question, ds)
}

// SchemaInfo enforces the same ownership checks as Route and dispatches to
// the matching agent's light introspection.
func (r *Router) SchemaInfo(ctx context.Context, datasourceID, requesterID string) (*models.SchemaInfo, error) {
	ds, ok := r.registry.Resolve(datasourceID)
	if !ok {
		return nil, ErrNotFound
	}
	if ds.OwnerID != requesterID {
		return nil, ErrAccessDenied
	}

	queryAgent, ok := r.agentFor(ds.Kind)
	if !ok {
		return nil, errors.New("unsupported datasource kind: " + ds.Kind)
	}

	return queryAgent.SchemaInfo(ctx, ds)
}

// agentFor normalizes the kind string (aliases included) and looks up the
// paradigm's agent.
func (r *Router) agentFor(kind string) (agent.QueryAgent, bool) {
	paradigm, ok := dbcapabilities.ParadigmOf(kind)
	if !ok {
		return nil, false
	}
	a, ok := r.agents[paradigm]
	return a, ok
}
