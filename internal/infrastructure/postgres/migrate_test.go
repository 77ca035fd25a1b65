package postgres

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgx5URL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/x?sslmode=disable", pgx5URL("postgres://u:p@db:5432/x?sslmode=disable"))
	assert.Equal(t, "pgx5://u@db/x", pgx5URL("postgresql://u@db/x"))
	assert.Equal(t, "pgx5://db/x", pgx5URL("pgx5://db/x"))
}

func TestMigracionesEmbebidas(t *testing.T) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	assert.Contains(t, names, "migrations/000001_fiscal_core.up.sql")
	assert.Contains(t, names, "migrations/000001_fiscal_core.down.sql")
}

func TestMigrate_DireccionInvalida(t *testing.T) {
	err := Migrate("postgres://u:p@127.0.0.1:1/x?sslmode=disable", "sideways")
	assert.Error(t, err)
}
