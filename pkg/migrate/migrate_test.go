package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"migrations/001_create_casts.up.sql":   {Data: []byte("CREATE TABLE casts (id TEXT PRIMARY KEY);")},
		"migrations/001_create_casts.down.sql": {Data: []byte("DROP TABLE casts;")},
		"migrations/002_add_vessel.up.sql":     {Data: []byte("ALTER TABLE casts ADD COLUMN vessel TEXT;")},
		"migrations/002_add_vessel.down.sql":   {Data: []byte("ALTER TABLE casts DROP COLUMN vessel;")},
		"migrations/README.md":                 {Data: []byte("ignored")},
	}
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFSProviderMigrations(t *testing.T) {
	migrations, err := NewFSProvider(testFS(), "").Migrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	byVersion := map[int]Migration{}
	for _, m := range migrations {
		byVersion[m.Version] = m
	}
	assert.Equal(t, "create casts", byVersion[1].Name)
	assert.Contains(t, byVersion[2].Up, "ADD COLUMN vessel")
	assert.Contains(t, byVersion[2].Down, "DROP COLUMN vessel")
}

func TestMigratorUpAndDown(t *testing.T) {
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(testFS(), ""), nil)

	pending, err := m.Pending()
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, m.Up())
	v, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = db.Exec("INSERT INTO casts (id, vessel) VALUES ('a', 'BDC-01')")
	require.NoError(t, err)

	// Up is idempotent.
	require.NoError(t, m.Up())

	require.NoError(t, m.Down(0))
	v, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	_, err = db.Exec("SELECT id FROM casts")
	assert.Error(t, err)
}

func TestMigratorDownRejectsNewerTarget(t *testing.T) {
	m := NewMigrator(openDB(t), NewFSProvider(testFS(), ""), nil)
	require.NoError(t, m.To(1))
	assert.Error(t, m.Down(1))
}
