package client

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"wisefido-patients/internal/export"
	httpapi "wisefido-patients/internal/http"
	"wisefido-patients/internal/repository"
	"wisefido-patients/internal/service"
	"wisefido-patients/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
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
	return srv
}

func ann() RegisterRequest {
	return RegisterRequest{Name: "Ann", Age: 30, Gender: "female", BloodType: "O+", Contact: "555", Address: "1 Rd"}
}

func TestClient_RegisterGetList(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL, 5*time.Second, zap.NewNop())
	ctx := context.Background()

	p, err := c.Register(ctx, ann())
	require.NoError(t, err)
	assert.Regexp(t, `^P\d{6}$`, p.Identifier)
	assert.Equal(t, srv.URL+"/patient/"+p.Identifier, p.Link)
	assert.Equal(t, srv.URL+"/ps/"+p.Identifier, p.ShortLink)

	got, err := c.Get(ctx, p.Identifier)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	assert.True(t, p.RegisteredAt.Equal(got.RegisteredAt))

	bob := ann()
	bob.Name = "Bob"
	_, err = c.Register(ctx, bob)
	require.NoError(t, err)

	all, err := c.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ann", all[0].Name)
	assert.Equal(t, "Bob", all[1].Name)
}

func TestClient_ValidationError(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL, 5*time.Second, zap.NewNop())

	req := ann()
	req.Age = 0
	_, err := c.Register(context.Background(), req)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "age", apiErr.Field)
}

func TestClient_NotFound(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL, 5*time.Second, zap.NewNop())

	_, err := c.Get(context.Background(), "P000000")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.NotFound())

	_, err = c.Barcode(context.Background(), "P000000", true)
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.NotFound())
}

func TestClient_LookupByScanURL(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL, 5*time.Second, zap.NewNop())
	ctx := context.Background()

	p, err := c.Register(ctx, ann())
	require.NoError(t, err)

	got, err := c.Lookup(ctx, p.ShortLink)
	require.NoError(t, err)
	assert.Equal(t, p.Identifier, got.Identifier)
}

func TestClient_Downloads(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL, 5*time.Second, zap.NewNop())
	ctx := context.Background()

	p, err := c.Register(ctx, ann())
	require.NoError(t, err)

	img, err := c.Barcode(ctx, p.Identifier, false)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(img))
	require.NoError(t, err)

	text, err := c.ExportText(ctx, p.Identifier)
	require.NoError(t, err)
	assert.Contains(t, string(text), "Patient ID: "+p.Identifier)

	book, err := c.ExportWorkbook(ctx, "")
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(book))
	require.NoError(t, err)
	defer f.Close()
	name, err := f.GetCellValue(export.DetailSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Ann", name)
}

func TestClient_RetriesOnlyGet(t *testing.T) {
	var gets, posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
		} else {
			posts.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":-1,"type":"error","message":"internal error","result":null}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, zap.NewNop())
	c.httpClient.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)

	_, err := c.List(context.Background(), "")
	require.Error(t, err)
	_, err = c.Register(context.Background(), ann())
	require.Error(t, err)

	assert.Greater(t, gets.Load(), int32(1))
	assert.Equal(t, int32(1), posts.Load())
}

func TestClient_Search(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL, 5*time.Second, zap.NewNop())
	ctx := context.Background()

	for _, name := range []string{"Ann Lee", "Bob Stone", "Joanna"} {
		req := ann()
		req.Name = name
		_, err := c.Register(ctx, req)
		require.NoError(t, err)
	}

	found, err := c.List(ctx, "ann")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Ann Lee", found[0].Name)
	assert.Equal(t, "Joanna", found[1].Name)

	book, err := c.ExportWorkbook(ctx, "stone")
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(book))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.DetailSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Bob Stone", rows[1][1])

	_, err = c.ExportWorkbook(ctx, "nobody")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.NotFound())
	assert.Equal(t, "no patients to export", apiErr.Message)
}
