package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	for in, want := range map[string]string{
		"sqlite":   SQLite,
		"sqlite3":  SQLite,
		"postgres": Postgres,
		"pgx":      Postgres,
		"mysql":    MySQL,
		"MySQL":    MySQL,
		"oracle":   "oracle",
	} {
		assert.Equal(t, want, Name(in), in)
	}
}

func TestFeatures(t *testing.T) {
	fs := DefaultFeatures(SQLite)
	assert.True(t, fs.Has(Savepoints))
	assert.False(t, fs.Has(Defaults))

	merged := fs.Merge(map[Feature]bool{Savepoints: false, Defaults: true})
	assert.False(t, merged.Has(Savepoints))
	assert.True(t, merged.Has(Defaults))
	assert.True(t, fs.Has(Savepoints), "merge must not mutate the receiver")

	assert.True(t, DefaultFeatures(Postgres).Has(Arrays))
	assert.False(t, DefaultFeatures("oracle").Has(Savepoints))
}
