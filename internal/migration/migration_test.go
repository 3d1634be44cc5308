package migration

import (
	"io/fs"
	"testing"

	"github.com/smallbiznis/tallybridge/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAutoMigratesNonPostgres(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)

	require.NoError(t, Run(conn))
	for _, table := range []string{"ledgers", "invoices", "sync_logs"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	require.NoError(t, Run(conn))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups, err := fs.Glob(sub, "*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(sub, "*.down.sql")
	require.NoError(t, err)

	assert.Len(t, ups, 3)
	assert.Equal(t, len(ups), len(downs))
}

func TestRunRequiresHandle(t *testing.T) {
	assert.Error(t, Run(nil))
	assert.Error(t, RunMigrations(nil))
}
