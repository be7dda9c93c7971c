package migration

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_OrdersAndChecksums(t *testing.T) {
	src := fstest.MapFS{
		"V10__indexes.sql":  {Data: []byte("CREATE INDEX a ON b (c);")},
		"V2__tasks.sql":     {Data: []byte("  CREATE TABLE tasks (id uuid);\n")},
		"README.md":         {Data: []byte("ignored")},
		"V3__draft.sql.bak": {Data: []byte("ignored")},
		"nested/V4__x.sql":  {Data: []byte("ignored")},
	}

	migs, err := loadMigrations(src)
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Equal(t, int64(2), migs[0].Version)
	assert.Equal(t, "tasks", migs[0].Name)
	assert.Equal(t, "CREATE TABLE tasks (id uuid);", migs[0].SQL)
	assert.Equal(t, int64(10), migs[1].Version)
	assert.Len(t, migs[0].Checksum, 64)
	assert.NotEqual(t, migs[0].Checksum, migs[1].Checksum)
}

func TestLoadMigrations_Rejects(t *testing.T) {
	_, err := loadMigrations(fstest.MapFS{"V1__empty.sql": {Data: []byte(" \n")}})
	assert.ErrorContains(t, err, "empty migration file")

	_, err = loadMigrations(fstest.MapFS{
		"V1__a.sql":  {Data: []byte("SELECT 1;")},
		"V01__b.sql": {Data: []byte("SELECT 2;")},
	})
	assert.ErrorContains(t, err, "duplicate migration version: 1")
}

func TestEmbeddedMigrations(t *testing.T) {
	migs, err := loadMigrations(Runner{}.source())
	require.NoError(t, err)
	require.NotEmpty(t, migs)
	assert.Equal(t, int64(1), migs[0].Version)
	assert.Contains(t, migs[0].SQL, "reservations")
}
