package schema_test

import (
	"testing"

	"github.com/syssam/sqlorm/schema"
	"github.com/syssam/sqlorm/schema/edge"
	"github.com/syssam/sqlorm/schema/field"
	"github.com/syssam/sqlorm/schema/index"

	"github.com/stretchr/testify/assert"
)

func TestBuildersImplementInterfaces(t *testing.T) {
	var (
		f schema.Field = field.String("name")
		e schema.Edge  = edge.HasMany("images", "image")
		i schema.Index = index.Fields("name")
	)
	assert.Equal(t, "name", f.Descriptor().Name)
	assert.Equal(t, "images", e.Descriptor().Name)
	assert.Equal(t, []string{"name"}, i.Descriptor().Fields)
}
