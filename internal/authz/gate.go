package authz

import (
	"context"
	"errors"
	"strings"

	"github.com/teamflow-app/teamflow/internal/models"
	apperrors "github.com/teamflow-app/teamflow/pkg/errors"
)

// Gate is the single decision procedure run before every entity-scoped
// operation. Identity is proven upstream (401 territory); the gate only
// decides 400 (missing id) and 403 (insufficient role/assignment).
type Gate struct {
	resolver *Resolver
}

// NewGate constructs a Gate over the supplied resolver.
func NewGate(resolver *Resolver) (*Gate, error) {
	if resolver == nil {
		return nil, errors.New("authz: resolver is required")
	}
	return &Gate{resolver: resolver}, nil
}

// Resolver exposes the underlying resolver for callers that need raw lookups.
func (g *Gate) Resolver() *Resolver {
	return g.resolver
}

// Authorize evaluates the requirement for the given entity and user. A nil
// return means the operation may proceed.
func (g *Gate) Authorize(ctx context.Context, req Requirement, entityID, userID string) error {
	if strings.TrimSpace(entityID) == "" {
		return apperrors.NewBadRequest("entity id missing")
	}
	if strings.TrimSpace(userID) == "" {
		return apperrors.ErrUnauthorized
	}

	switch req.Mode {
	case ModeRole:
		role, ok, err := g.resolver.Role(ctx, req.Entity, entityID, userID)
		if err != nil {
			return apperrors.ErrInternalServer.WithInternal(err)
		}
		if !ok {
			return apperrors.ErrForbidden
		}
		if !RoleSatisfies(role, req.AllowedRoles) {
			return apperrors.ErrForbidden
		}
		return nil
	case ModeAssignment:
		assigned, err := g.resolver.Assigned(ctx, req.Entity, entityID, userID)
		if err != nil {
			return apperrors.ErrInternalServer.WithInternal(err)
		}
		if !assigned {
			return apperrors.ErrForbidden
		}
		return nil
	default:
		return apperrors.ErrInternalServer.WithInternal(errors.New("authz: unknown permission mode"))
	}
}

// RoleSatisfies reports whether the held role passes a gate configured with
// the allowed set. A Project Manager also satisfies any gate that admits Team
// Members: managers are a superset capability within the same scope. The rule
// is not transitive across entity types.
func RoleSatisfies(held Role, allowed []Role) bool {
	for _, candidate := range allowed {
		if held == candidate {
			return true
		}
		if candidate == models.RoleTeamMember && held == models.RoleProjectManager {
			return true
		}
	}
	return false
}
