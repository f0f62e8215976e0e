package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/calcstore/internal/config"
	"github.com/R3E-Network/calcstore/internal/platform/database"
	"github.com/R3E-Network/calcstore/internal/platform/migrations"
)

func TestInMemorySQLiteOutlivesConnMaxLifetime(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{URL: "sqlite://", ConnMaxLifetime: 1})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, migrations.Apply(ctx, db.DB.DB, db.Dialect))
	_, err = db.ExecContext(ctx, `INSERT INTO items (name, price) VALUES (?, ?)`, "pen", 3)
	require.NoError(t, err)

	time.Sleep(1500 * time.Millisecond)

	var names []string
	require.NoError(t, db.SelectContext(ctx, &names, `SELECT name FROM items ORDER BY id`))
	assert.Equal(t, []string{"pen"}, names)
}
