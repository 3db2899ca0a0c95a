package privacy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlorm"
	"github.com/syssam/sqlorm/dialect/sql"
	"github.com/syssam/sqlorm/privacy"
)

func TestViewer(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, privacy.ViewerFromContext(ctx))

	v := &privacy.SimpleViewer{UserID: "1", Roles: []string{"editor"}, TenantID: "acme"}
	ctx = privacy.WithViewer(ctx, v)
	got := privacy.ViewerFromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "1", got.GetID())
	assert.Equal(t, []string{"editor"}, got.GetRoles())
	assert.Equal(t, "acme", got.GetTenantID())
}

func TestViewerRules(t *testing.T) {
	post := sqlorm.NewSchema("post")
	rec := sqlorm.NewEntity(post, map[string]any{"owner_id": int64(7), "tenant_id": "acme"}, false)
	anonymous := context.Background()
	editor := privacy.WithViewer(anonymous, &privacy.SimpleViewer{UserID: "7", Roles: []string{"editor"}, TenantID: "acme"})
	stranger := privacy.WithViewer(anonymous, &privacy.SimpleViewer{UserID: "8", TenantID: "other"})

	tests := []struct {
		name string
		rule privacy.WriteRule
		ctx  context.Context
		want error
	}{
		{"DenyIfNoViewer/Anonymous", privacy.DenyIfNoViewer(), anonymous, privacy.Deny},
		{"DenyIfNoViewer/Viewer", privacy.DenyIfNoViewer(), editor, privacy.Skip},
		{"HasRole/Match", privacy.HasRole("editor"), editor, privacy.Allow},
		{"HasRole/Missing", privacy.HasRole("admin"), editor, privacy.Skip},
		{"HasRole/Anonymous", privacy.HasRole("editor"), anonymous, privacy.Skip},
		{"HasAnyRole", privacy.HasAnyRole("admin", "editor"), editor, privacy.Allow},
		{"IsOwner/Match", privacy.IsOwner("owner_id"), editor, privacy.Allow},
		{"IsOwner/Other", privacy.IsOwner("owner_id"), stranger, privacy.Skip},
		{"IsOwner/UnsetField", privacy.IsOwner("author_id"), editor, privacy.Skip},
		{"TenantRule/Match", privacy.TenantRule("tenant_id"), editor, privacy.Allow},
		{"TenantRule/Mismatch", privacy.TenantRule("tenant_id"), stranger, privacy.Deny},
		{"TenantRule/Anonymous", privacy.TenantRule("tenant_id"), anonymous, privacy.Skip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.rule.EvalWrite(tt.ctx, rec), tt.want)
		})
	}
}

func TestQueryRules(t *testing.T) {
	ctx := context.Background()
	post := newPosts(t)
	for _, data := range []map[string]any{
		{"owner_id": "1", "tenant_id": "acme", "title": "a"},
		{"owner_id": "2", "tenant_id": "acme", "title": "b"},
		{"owner_id": "1", "tenant_id": "other", "title": "c"},
	} {
		ok, err := post.Save(ctx, post.Create(data))
		require.NoError(t, err)
		require.True(t, ok)
	}

	titles := func(t *testing.T, q *sqlorm.Query) []string {
		t.Helper()
		rows, err := q.Order("title").Rows(ctx)
		require.NoError(t, err)
		var out []string
		for _, row := range rows {
			out = append(out, row["title"].(string))
		}
		return out
	}

	t.Run("Tenant", func(t *testing.T) {
		policy := privacy.Policy{Query: privacy.QueryPolicy{privacy.TenantFilter("tenant_id")}}
		vctx := privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "1", TenantID: "acme"})
		q, err := policy.Restrict(vctx, post)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, titles(t, q))

		_, err = policy.Restrict(ctx, post)
		assert.ErrorIs(t, err, privacy.Deny)
		_, err = policy.Restrict(privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "1"}), post)
		assert.ErrorIs(t, err, privacy.Deny)
	})

	t.Run("Owner", func(t *testing.T) {
		policy := privacy.Policy{Query: privacy.QueryPolicy{
			privacy.HasRole("admin"),
			privacy.OwnerFilter("owner_id"),
		}}
		q, err := policy.Restrict(privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "1"}), post)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, titles(t, q))

		q, err = policy.Restrict(privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "1", Roles: []string{"admin"}}), post)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, titles(t, q), "admins are not filtered")
	})

	t.Run("SoftDeleted", func(t *testing.T) {
		q, err := post.Query()
		require.NoError(t, err)
		deleted := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		require.NoError(t, post.Update(ctx, map[string]any{"deleted_at": deleted}, sql.NEQ("title", "a")))
		t.Cleanup(func() {
			require.NoError(t, post.Update(ctx, map[string]any{"deleted_at": nil}, nil))
		})
		policy := privacy.Policy{Query: privacy.QueryPolicy{privacy.FilterSoftDeleted("deleted_at")}}
		require.NoError(t, policy.EvalQuery(ctx, q))
		assert.Equal(t, []string{"a"}, titles(t, q))
	})
}
