package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkhodaee16/ecb-bot/internal/repository/sqlstore"
)

const accountsYAML = `
accounts:
  - login: "1001"
    password: pw
    server: Demo-Server
    name: main
    volume_multiplier: 1
    is_active: true
  - login: "1002"
    password: pw2
    server: Demo-Server
    is_active: true
    restricted_symbols: [xauusd]
  - login: "1003"
    password: pw3
    server: Demo-Server
    volume_multiplier: 0
    is_active: true
`

func TestImportAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(accountsYAML), 0o600))

	accounts, err := readAccounts(path)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, 1.0, accounts[1].Multiplier)
	assert.Equal(t, 0.0, accounts[2].Multiplier)

	db, err := sqlx.Connect(sqlstore.DriverSQLite, ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, sqlstore.Migrate(ctx, db))
	store := sqlstore.New(db)

	require.NoError(t, importAccounts(ctx, store, accounts))

	// re-import updates in place
	accounts[0].Multiplier = 0.5
	require.NoError(t, importAccounts(ctx, store, accounts))

	got, err := store.Accounts().List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 0.5, got[0].Multiplier)
	assert.Equal(t, []string{"XAUUSD"}, got[1].Restricted)
	assert.Equal(t, 0.0, got[2].Multiplier)
}

func TestReadAccounts_Invalid(t *testing.T) {
	dir := t.TempDir()

	dup := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte("accounts:\n  - {login: a, server: s}\n  - {login: a, server: s}\n"), 0o600))
	_, err := readAccounts(dup)
	assert.Error(t, err)

	noServer := filepath.Join(dir, "noserver.yaml")
	require.NoError(t, os.WriteFile(noServer, []byte("accounts:\n  - {login: a}\n"), 0o600))
	_, err = readAccounts(noServer)
	assert.Error(t, err)

	negative := filepath.Join(dir, "negative.yaml")
	require.NoError(t, os.WriteFile(negative, []byte("accounts:\n  - {login: a, server: s, volume_multiplier: -1}\n"), 0o600))
	_, err = readAccounts(negative)
	assert.Error(t, err)

	_, err = readAccounts(filepath.Join(dir, "none.yaml"))
	assert.Error(t, err)
}
