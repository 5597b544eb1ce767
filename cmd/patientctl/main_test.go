package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"wisefido-patients/internal/client"
	"wisefido-patients/internal/export"
	httpapi "wisefido-patients/internal/http"
	"wisefido-patients/internal/repository"
	"wisefido-patients/internal/service"
	"wisefido-patients/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServer(t *testing.T) string {
	t.Helper()
	logger := zap.NewNop()
	repo := repository.NewSlotPatientsRepository(store.NewMemorySlot(), logger)

	srv := httptest.NewUnstartedServer(nil)
	baseURL := "http://" + srv.Listener.Addr().String()
	svc := service.NewPatientService(repo, export.New(export.DefaultOptions(), logger), nil, baseURL, logger)
	router := httpapi.NewRouter(logger)
	router.RegisterPatientRoutes(httpapi.NewPatientHandler(svc, logger))
	srv.Config.Handler = router
	srv.Start()
	t.Cleanup(srv.Close)
	return baseURL
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRun_RegisterGetLookup(t *testing.T) {
	server := newServer(t)

	out, err := runCmd(t, "--server", server, "register", "--name", "Ann", "--age", "30", "--blood-type", "O+")
	require.NoError(t, err)

	var p client.Patient
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "Ann", p.Name)
	assert.Equal(t, "O+", p.BloodType)

	out, err = runCmd(t, "--server", server, "get", p.Identifier)
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Ann"`)

	out, err = runCmd(t, "--server", server, "lookup", p.Link)
	require.NoError(t, err)
	assert.Contains(t, out, p.Identifier)

	out, err = runCmd(t, "--server", server, "list")
	require.NoError(t, err)
	assert.Contains(t, out, p.Identifier)
	assert.Contains(t, out, "Ann")
}

func TestRun_RegisterInvalidAge(t *testing.T) {
	server := newServer(t)

	_, err := runCmd(t, "--server", server, "register", "--name", "Ann", "--age", "0")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "age", apiErr.Field)
}

func TestRun_Downloads(t *testing.T) {
	server := newServer(t)
	dir := t.TempDir()

	out, err := runCmd(t, "--server", server, "register", "--name", "Ann", "--age", "30")
	require.NoError(t, err)
	var p client.Patient
	require.NoError(t, json.Unmarshal([]byte(out), &p))

	book := filepath.Join(dir, export.Filename)
	_, err = runCmd(t, "--server", server, "export", "--out", book)
	require.NoError(t, err)
	info, err := os.Stat(book)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	png := filepath.Join(dir, "code.png")
	_, err = runCmd(t, "--server", server, "barcode", p.Identifier, "--out", png, "--text=false")
	require.NoError(t, err)
	data, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])

	out, err = runCmd(t, "--server", server, "text", p.Identifier, "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Name: Ann")
}

func TestRun_Usage(t *testing.T) {
	_, err := runCmd(t)
	assert.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, "frobnicate")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, "get")
	assert.ErrorIs(t, err, errUsage)
}

func TestRun_Search(t *testing.T) {
	server := newServer(t)
	dir := t.TempDir()

	for _, name := range []string{"Ann Lee", "Bob Stone"} {
		_, err := runCmd(t, "--server", server, "register", "--name", name, "--age", "30")
		require.NoError(t, err)
	}

	out, err := runCmd(t, "--server", server, "list", "--search", "STONE")
	require.NoError(t, err)
	assert.Contains(t, out, "Bob Stone")
	assert.NotContains(t, out, "Ann Lee")

	book := filepath.Join(dir, "filtered.xlsx")
	_, err = runCmd(t, "--server", server, "export", "--search", "ann", "--out", book)
	require.NoError(t, err)
	_, err = os.Stat(book)
	require.NoError(t, err)

	missing := filepath.Join(dir, "none.xlsx")
	_, err = runCmd(t, "--server", server, "export", "-s", "nobody", "--out", missing)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.NotFound())
	_, err = os.Stat(missing)
	assert.True(t, os.IsNotExist(err))
}
