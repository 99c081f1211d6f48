package authz

import "github.com/spec-kit/jiro-tracker/internal/domain"

// Action names a capability the gate can grant or deny.
type Action string

const (
	ActionTicketCreate     Action = "ticket.create"
	ActionTicketEdit       Action = "ticket.edit"
	ActionTicketDelete     Action = "ticket.delete"
	ActionTicketTransition Action = "ticket.transition"
	ActionTicketAssign     Action = "ticket.assign"
	ActionCommentAdd       Action = "comment.add"
	ActionProjectManage    Action = "project.manage"
)

// Resource identifies what an action targets.
type Resource struct {
	Kind string
	ID   string
}

// TicketResource builds a resource for a ticket id.
func TicketResource(id string) Resource {
	return Resource{Kind: "ticket", ID: id}
}

// ProjectResource builds a resource for a project id.
func ProjectResource(id string) Resource {
	return Resource{Kind: "project", ID: id}
}

// Gate decides whether an actor may perform an action on a resource.
// Implementations must be synchronous and side-effect free. Callers treat a
// nil gate as deny-everything; no code path may special-case its absence into
// an allow.
type Gate interface {
	CanPerform(actor domain.Actor, action Action, resource Resource) bool
}

// Allowed is the nil-safe entry point services use. Missing gate means deny.
func Allowed(gate Gate, actor domain.Actor, action Action, resource Resource) bool {
	if gate == nil {
		return false
	}
	return gate.CanPerform(actor, action, resource)
}

// RoleGate grants capabilities from the actor's role alone. Admins can do
// everything, agents everything on tickets, requesters can open tickets and
// comment. Unknown roles are denied.
type RoleGate struct{}

// NewRoleGate builds the default gate.
func NewRoleGate() *RoleGate {
	return &RoleGate{}
}

// CanPerform implements Gate.
func (g *RoleGate) CanPerform(actor domain.Actor, action Action, resource Resource) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleAgent:
		return action != ActionProjectManage
	case domain.RoleRequester:
		return action == ActionTicketCreate || action == ActionCommentAdd || action == ActionTicketEdit
	}
	return false
}
