// Package tenancy carries the caller's organization and identity through a
// request context.
package tenancy

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

type ctxKey string

const (
	orgKey       ctxKey = "scheduler.org_id"
	principalKey ctxKey = "scheduler.principal"
)

// WithOrgID stores the org id in context.
func WithOrgID(ctx context.Context, orgID uuid.UUID) context.Context {
	return context.WithValue(ctx, orgKey, orgID)
}

// OrgIDFromContext extracts the org id if present.
func OrgIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	orgID, ok := ctx.Value(orgKey).(uuid.UUID)
	return orgID, ok && orgID != uuid.Nil
}

// WithPrincipal stores the authenticated caller and its organization.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	return WithOrgID(ctx, p.OrganizationID)
}

// PrincipalFromContext extracts the caller if present.
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(model.Principal)
	return p, ok
}
