package repositories

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"skillswap-service/internal/db"
	"skillswap-service/internal/models"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := db.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func createUser(t *testing.T, repo *UserRepo, name string) models.User {
	t.Helper()
	user, err := repo.CreateUser(context.Background(), models.User{Name: name, Email: name + "@example.com"})
	require.NoError(t, err)
	return user
}
