// Package privacy provides authorization rules evaluated before records are
// written and before queries run.
//
// A Policy holds a WritePolicy, evaluated on the records passed to
// Schema.Save, and a QueryPolicy, evaluated on queries. Rules return one of
// three decisions:
//
//   - Allow: grants access and stops the evaluation
//   - Deny: rejects the operation and stops the evaluation
//   - Skip: continues with the next rule
//
// A policy whose rules all skip allows the operation. End a policy with
// AlwaysDenyRule to deny by default.
//
// # Write policies
//
// The write policy is installed as the validator of a schema. Denied
// records are reported as validation failures, so Save returns false
// without error and the related records are not written:
//
//	policy := privacy.Policy{
//	    Write: privacy.WritePolicy{
//	        privacy.DenyIfNoViewer(),
//	        privacy.HasRole("admin"),
//	        privacy.IsOwner("owner_id"),
//	        privacy.AlwaysDenyRule(),
//	    },
//	}
//	post := sqlorm.NewSchema("post", sqlorm.WithValidator(policy.Validator()))
//	ok, err := post.Save(ctx, rec, sqlorm.WithValidation())
//
// # Query policies
//
// Query rules receive the query and may restrict it with conditions:
//
//	policy := privacy.Policy{
//	    Query: privacy.QueryPolicy{
//	        privacy.TenantFilter("tenant_id"),
//	        privacy.FilterSoftDeleted("deleted_at"),
//	    },
//	}
//	q, err := policy.Restrict(ctx, post)
//
// # Viewer
//
// Rules read the current user from the context:
//
//	ctx = privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "1", Roles: []string{"admin"}})
//
// DecisionContext attaches a decision to a context, bypassing the rules of
// the policies evaluated with it. It is meant for internal operations such
// as migrations and background jobs:
//
//	ctx = privacy.DecisionContext(ctx, privacy.Allow)
package privacy
