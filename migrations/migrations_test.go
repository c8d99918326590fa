package migrations_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/pestwatch/migrations"
	"github.com/JaimeStill/pestwatch/pkg/database"
)

func sqliteConfig(t *testing.T) *database.Config {
	t.Helper()
	cfg := &database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "pestwatch.db"),
	}
	require.NoError(t, cfg.Finalize(nil))
	return cfg
}

func TestUpCreatesRecordsTable(t *testing.T) {
	cfg := sqliteConfig(t)

	require.NoError(t, migrations.Up(cfg))

	db, err := database.Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	var name string
	err = db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'records'",
	).Scan(&name)
	require.NoError(t, err)
	require.Equal(t, "records", name)
}

func TestUpIsIdempotent(t *testing.T) {
	cfg := sqliteConfig(t)

	require.NoError(t, migrations.Up(cfg))
	require.NoError(t, migrations.Up(cfg))
}

func TestUpLeavesSharedPoolOpen(t *testing.T) {
	cfg := sqliteConfig(t)

	pool, err := database.Open(cfg)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, migrations.Up(cfg))
	require.NoError(t, pool.Ping())

	var count int
	require.NoError(t, pool.QueryRow("SELECT COUNT(*) FROM records").Scan(&count))
	require.Zero(t, count)
}

func TestStatusConstraint(t *testing.T) {
	cfg := sqliteConfig(t)
	require.NoError(t, migrations.Up(cfg))

	db, err := database.Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	_, err = insert(db, "invalid")
	require.Error(t, err)

	_, err = insert(db, "pending")
	require.NoError(t, err)
}

func TestNewUnsupportedDriver(t *testing.T) {
	_, err := migrations.New(&database.Config{Driver: "mysql"})
	require.Error(t, err)
}

func insert(db *sql.DB, status string) (sql.Result, error) {
	return db.Exec(`
		INSERT INTO records (
			id, original_filename, stored_filename, artifact_location,
			predicted_label, confidence, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)`,
		"id-"+status, "leaf.jpg", status+".jpg", "pending/"+status+".jpg",
		"snail", 0.9, status,
	)
}
