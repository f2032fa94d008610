package infra

import (
	"context"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsPerDialect(t *testing.T) {
	for _, dialect := range []string{"postgres", "mysql"} {
		entries, err := migrations.ReadDir("migrations/" + dialect)
		require.NoError(t, err, dialect)
		require.NotEmpty(t, entries, dialect)

		raw, err := migrations.ReadFile("migrations/" + dialect + "/" + entries[0].Name())
		require.NoError(t, err)
		body := string(raw)
		assert.True(t, strings.Contains(body, "-- +goose Up") && strings.Contains(body, "-- +goose Down"), dialect)
		assert.Contains(t, body, "users_email_key", "email must be unique for %s", dialect)
	}
}

func TestMigrateUnknownDialect(t *testing.T) {
	err := Migrate(context.Background(), nil, "oracle")
	require.ErrorContains(t, err, "no migrations")
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, client)

	mr := miniredis.RunT(t)
	client, err = NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	_, err = NewRedisClient(context.Background(), "://bad")
	require.Error(t, err)
}

func TestStoreConstructorsRejectBadInput(t *testing.T) {
	_, err := NewPostgresPool(context.Background(), "", PoolOptions{})
	require.Error(t, err)

	_, err = NewMySQLDB(context.Background(), "", PoolOptions{})
	require.Error(t, err)

	_, err = NewMySQLDB(context.Background(), "no-at-sign-or-slash", PoolOptions{})
	require.ErrorContains(t, err, "parse mysql dsn")
}
