package database

import (
	"context"
	"net"
	"testing"

	"wisefido-patients/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostgresDB_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg := config.Default().Database
	cfg.Host = "127.0.0.1"
	cfg.Port = port

	db, err := NewPostgresDB(context.Background(), &cfg)
	assert.Nil(t, db)
	assert.ErrorContains(t, err, "failed to ping database")
}

func TestDSN(t *testing.T) {
	cfg := config.Default().Database
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=wisefido_patients sslmode=disable",
		cfg.DSN())
}
