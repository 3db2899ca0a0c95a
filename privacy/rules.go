package privacy

import (
	"context"
	"fmt"
	"slices"

	"github.com/syssam/sqlorm"
	"github.com/syssam/sqlorm/dialect/sql"
)

// Viewer represents the authenticated user making a request.
type Viewer interface {
	// GetID returns the viewer's unique identifier.
	GetID() string
	// GetRoles returns the viewer's roles.
	GetRoles() []string
	// GetTenantID returns the viewer's tenant, or an empty string.
	GetTenantID() string
}

type viewerCtxKey struct{}

// WithViewer returns a new context with the viewer attached.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext retrieves the viewer from the context, or nil.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic implementation of the Viewer interface.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

// GetID returns the user ID.
func (v *SimpleViewer) GetID() string { return v.UserID }

// GetRoles returns the user's roles.
func (v *SimpleViewer) GetRoles() []string { return v.Roles }

// GetTenantID returns the tenant ID.
func (v *SimpleViewer) GetTenantID() string { return v.TenantID }

// DenyIfNoViewer returns a rule denying access when no viewer is present
// in the context. It is typically the first rule of a policy.
func DenyIfNoViewer() QueryWriteRule {
	return ContextQueryWriteRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("privacy: viewer required")
		}
		return Skip
	})
}

// HasRole returns a rule allowing access if the viewer has the role.
func HasRole(role string) QueryWriteRule {
	return HasAnyRole(role)
}

// HasAnyRole returns a rule allowing access if the viewer has any of the
// roles.
func HasAnyRole(roles ...string) QueryWriteRule {
	return ContextQueryWriteRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		for _, role := range roles {
			if slices.Contains(viewer.GetRoles(), role) {
				return Allow
			}
		}
		return Skip
	})
}

// IsOwner returns a write rule allowing the record if the value of field
// is the viewer's ID.
//
//	privacy.WritePolicy{
//	    privacy.DenyIfNoViewer(),
//	    privacy.IsOwner("owner_id"),
//	    privacy.AlwaysDenyRule(),
//	}
func IsOwner(field string) WriteRule {
	return WriteRuleFunc(func(ctx context.Context, rec sqlorm.Record) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil || !rec.Has(field) {
			return Skip
		}
		if fmt.Sprint(rec.Get(field)) == viewer.GetID() {
			return Allow
		}
		return Skip
	})
}

// TenantRule returns a write rule denying records whose tenant, read from
// field, differs from the viewer's tenant.
func TenantRule(field string) WriteRule {
	return WriteRuleFunc(func(ctx context.Context, rec sqlorm.Record) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil || viewer.GetTenantID() == "" || !rec.Has(field) {
			return Skip
		}
		if fmt.Sprint(rec.Get(field)) == viewer.GetTenantID() {
			return Allow
		}
		return Denyf("privacy: tenant mismatch")
	})
}

// OwnerFilter returns a query rule restricting the query to the rows whose
// field is the viewer's ID. Queries without viewer are denied.
func OwnerFilter(field string) QueryRule {
	return QueryRuleFunc(func(ctx context.Context, q *sqlorm.Query) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Denyf("privacy: viewer required for owner-filtered query")
		}
		q.Where(sql.EQ(field, viewer.GetID()))
		return Skip
	})
}

// TenantFilter returns a query rule restricting the query to the rows of
// the viewer's tenant. Queries without viewer or tenant are denied.
func TenantFilter(field string) QueryRule {
	return QueryRuleFunc(func(ctx context.Context, q *sqlorm.Query) error {
		viewer := ViewerFromContext(ctx)
		switch {
		case viewer == nil:
			return Denyf("privacy: viewer required for tenant-filtered query")
		case viewer.GetTenantID() == "":
			return Denyf("privacy: tenant required")
		}
		q.Where(sql.EQ(field, viewer.GetTenantID()))
		return Skip
	})
}

// FilterSoftDeleted returns a query rule excluding the rows whose field is
// set.
func FilterSoftDeleted(field string) QueryRule {
	return QueryRuleFunc(func(_ context.Context, q *sqlorm.Query) error {
		q.Where(sql.IsNull(field))
		return Skip
	})
}
