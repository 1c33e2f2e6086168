//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"service-dispatch/internal/repository"
)

func TestNewPool_Success(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := repository.NewPool(ctx, tcDSN)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, pool.Ping(ctx))
}

func TestNewPool_InvalidDSN(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := repository.NewPool(ctx, "not-a-valid-dsn")
	require.Error(t, err)
	require.Nil(t, pool)
}

func TestMigrate_Idempotent(t *testing.T) {
	require.NoError(t, repository.Migrate(context.Background(), tcPool))
}
