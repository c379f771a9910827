package tenancy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

func TestOrgIDRoundTrip(t *testing.T) {
	_, ok := OrgIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = OrgIDFromContext(WithOrgID(context.Background(), uuid.Nil))
	assert.False(t, ok)

	org := uuid.New()
	got, ok := OrgIDFromContext(WithOrgID(context.Background(), org))
	require.True(t, ok)
	assert.Equal(t, org, got)
}

func TestWithPrincipalSetsOrg(t *testing.T) {
	staff := uuid.New()
	p := model.Principal{UserID: uuid.New(), OrganizationID: uuid.New(), Role: model.RoleProvider, StaffID: &staff}
	ctx := WithPrincipal(context.Background(), p)

	got, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, p, got)

	org, ok := OrgIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, p.OrganizationID, org)
}
