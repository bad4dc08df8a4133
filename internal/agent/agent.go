package agent

import (
	"context"

	"github.com/optiserve/geocoord/internal/geo"
)

// DomainAgent is the interface every analyzer implements. The coordinator
// treats an agent as an opaque capability: it calls Analyze once per unit of
// work and never inspects agent internals.
//
// Contract: an agent that can still produce some recommendations must return
// a partial result with StatusWarning and a non-empty Warnings list rather
// than failing; it returns StatusError (or a non-nil error) only when it has
// no usable output at all. Agents must not mutate the UnitOfWork and must
// observe ctx cancellation.
type DomainAgent interface {
	// Name returns the agent's unique name (e.g. "visibility").
	Name() string

	// Domain returns the category this agent is authoritative for.
	Domain() geo.Category

	// Analyze inspects one page against the business context and returns
	// scored recommendations.
	Analyze(ctx context.Context, unit geo.UnitOfWork, bctx geo.BusinessContext) (geo.AgentResult, error)
}

// Role identifies a built-in analyzer type.
type Role string

const (
	RoleVisibility    Role = "visibility"
	RoleAccuracy      Role = "accuracy"
	RoleActionability Role = "actionability"
)
