package privacy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/sqlorm"
	"github.com/syssam/sqlorm/privacy"
	"github.com/syssam/sqlorm/schema/field"
)

// newPosts registers a post schema on an in-memory database.
func newPosts(t *testing.T, opts ...sqlorm.SchemaOption) *sqlorm.Schema {
	t.Helper()
	ctx := context.Background()
	db, err := sqlorm.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	post := sqlorm.NewSchema("post", append([]sqlorm.SchemaOption{
		sqlorm.Fields(
			field.Serial("id"),
			field.String("owner_id"),
			field.String("tenant_id"),
			field.String("title"),
			field.Datetime("deleted_at").Nullable(),
		),
	}, opts...)...)
	db.Register(post)
	require.NoError(t, post.CreateTable(ctx))
	return post
}

func TestDecisionErrors(t *testing.T) {
	tests := []struct {
		name     string
		decision error
		want     error
		message  string
	}{
		{"Allowf", privacy.Allowf("admin %s", "bob"), privacy.Allow, "admin bob: sqlorm/privacy: allow rule"},
		{"Denyf", privacy.Denyf("blocked"), privacy.Deny, "blocked: sqlorm/privacy: deny rule"},
		{"Skipf", privacy.Skipf("n/a"), privacy.Skip, "n/a: sqlorm/privacy: skip rule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.decision, tt.want)
			assert.Equal(t, tt.message, tt.decision.Error())
		})
	}
}

func TestOp(t *testing.T) {
	post := sqlorm.NewSchema("post")
	assert.Equal(t, privacy.OpCreate, privacy.OpOf(sqlorm.NewEntity(post, nil, false)))
	assert.Equal(t, privacy.OpUpdate, privacy.OpOf(sqlorm.NewEntity(post, map[string]any{"id": 1}, true)))
	assert.True(t, privacy.OpCreate.Is(privacy.OpCreate|privacy.OpUpdate))
	assert.False(t, privacy.OpUpdate.Is(privacy.OpCreate))
	assert.Equal(t, "create", privacy.OpCreate.String())
	assert.Equal(t, "update", privacy.OpUpdate.String())
}

func TestWritePolicy(t *testing.T) {
	ctx := context.Background()
	post := sqlorm.NewSchema("post")
	created := sqlorm.NewEntity(post, map[string]any{"title": "a"}, false)
	updated := sqlorm.NewEntity(post, map[string]any{"id": 1, "title": "a"}, true)

	tests := []struct {
		name   string
		policy privacy.WritePolicy
		rec    sqlorm.Record
		want   error
	}{
		{"Empty", nil, created, nil},
		{"AllSkip", privacy.WritePolicy{privacy.WriteRuleFunc(func(context.Context, sqlorm.Record) error { return privacy.Skip })}, created, nil},
		{"Allow", privacy.WritePolicy{privacy.AlwaysAllowRule(), privacy.AlwaysDenyRule()}, created, privacy.Allow},
		{"Deny", privacy.WritePolicy{privacy.AlwaysDenyRule(), privacy.AlwaysAllowRule()}, created, privacy.Deny},
		{"DenyCreate", privacy.WritePolicy{privacy.DenyOperationRule(privacy.OpCreate)}, created, privacy.Deny},
		{"DenyCreateOnUpdate", privacy.WritePolicy{privacy.DenyOperationRule(privacy.OpCreate)}, updated, nil},
		{"AllowUpdate", privacy.WritePolicy{privacy.AllowOperationRule(privacy.OpUpdate), privacy.AlwaysDenyRule()}, updated, privacy.Allow},
		{"OnSource", privacy.WritePolicy{privacy.OnSource(privacy.AlwaysDenyRule(), "comment")}, created, nil},
		{"OnSourceMatch", privacy.WritePolicy{privacy.OnSource(privacy.AlwaysDenyRule(), "comment", "post")}, created, privacy.Deny},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.EvalWrite(ctx, tt.rec)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPolicies(t *testing.T) {
	ctx := context.Background()
	rec := sqlorm.NewEntity(sqlorm.NewSchema("post"), nil, false)
	deny := privacy.Policy{Write: privacy.WritePolicy{privacy.AlwaysDenyRule()}}
	allow := privacy.Policy{Write: privacy.WritePolicy{privacy.AlwaysAllowRule()}}
	skip := privacy.Policy{}

	assert.NoError(t, privacy.Policies{skip, allow, deny}.EvalWrite(ctx, rec))
	assert.ErrorIs(t, privacy.Policies{skip, deny, allow}.EvalWrite(ctx, rec), privacy.Deny)
	assert.NoError(t, privacy.Policies{skip}.EvalWrite(ctx, rec))

	t.Run("Policy", func(t *testing.T) {
		assert.NoError(t, allow.EvalWrite(ctx, rec), "allow decisions are reported as nil")
		assert.ErrorIs(t, deny.EvalWrite(ctx, rec), privacy.Deny)
	})

	t.Run("DecisionContext", func(t *testing.T) {
		assert.NoError(t, deny.EvalWrite(privacy.DecisionContext(ctx, privacy.Allow), rec))
		assert.NoError(t, privacy.Policies{deny}.EvalWrite(privacy.DecisionContext(ctx, privacy.Allow), rec))
		assert.ErrorIs(t, allow.EvalWrite(privacy.DecisionContext(ctx, privacy.Deny), rec), privacy.Deny)
		assert.Equal(t, ctx, privacy.DecisionContext(ctx, privacy.Skip))
		assert.Equal(t, ctx, privacy.DecisionContext(ctx, nil))

		_, ok := privacy.DecisionFromContext(ctx)
		assert.False(t, ok)
		decision, ok := privacy.DecisionFromContext(privacy.DecisionContext(ctx, privacy.Allow))
		assert.True(t, ok)
		assert.NoError(t, decision)
	})
}

func TestValidator(t *testing.T) {
	ctx := context.Background()
	policy := privacy.Policy{
		Write: privacy.WritePolicy{
			privacy.DenyIfNoViewer(),
			privacy.HasRole("admin"),
			privacy.IsOwner("owner_id"),
			privacy.AlwaysDenyRule(),
		},
	}
	post := newPosts(t, sqlorm.WithValidator(policy.Validator()))
	count := func() int64 {
		q, err := post.Query()
		require.NoError(t, err)
		n, err := q.Count(ctx)
		require.NoError(t, err)
		return n
	}

	t.Run("NoViewer", func(t *testing.T) {
		rec := post.Create(map[string]any{"owner_id": "1", "title": "draft"})
		ok, err := post.Save(ctx, rec, sqlorm.WithValidation())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, rec.Exists())
		assert.Equal(t, int64(0), count())
	})

	t.Run("Owner", func(t *testing.T) {
		vctx := privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "1"})
		rec := post.Create(map[string]any{"owner_id": "1", "title": "mine"})
		ok, err := post.Save(vctx, rec, sqlorm.WithValidation())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, rec.Exists())

		other := post.Create(map[string]any{"owner_id": "2", "title": "theirs"})
		ok, err = post.Save(vctx, other, sqlorm.WithValidation())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(1), count())
	})

	t.Run("Admin", func(t *testing.T) {
		vctx := privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "3", Roles: []string{"admin"}})
		ok, err := post.Save(vctx, post.Create(map[string]any{"owner_id": "2", "title": "moderated"}), sqlorm.WithValidation())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(2), count())
	})

	t.Run("Error", func(t *testing.T) {
		errRule := errors.New("policy store unavailable")
		failing := privacy.Policy{Write: privacy.WritePolicy{
			privacy.WriteRuleFunc(func(context.Context, sqlorm.Record) error { return errRule }),
		}}
		err := failing.Validator()(ctx, post.Create(nil))
		assert.ErrorIs(t, err, errRule)
		assert.False(t, sqlorm.IsValidationError(err))

		err = policy.Validator()(ctx, post.Create(nil))
		var verr *sqlorm.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "post", verr.Name)
		assert.ErrorIs(t, err, privacy.Deny)
	})
}
