package inspect

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"testing/fstest"

	"github.com/platinummonkey/extpoint/pkg/extension"
	"github.com/platinummonkey/extpoint/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Store interface {
	Put(key, value string)
}

type memoryStore struct{}

func (memoryStore) Put(key, value string) {}

type diskStore struct{}

func (diskStore) Put(key, value string) {}

const storeDescriptor = "memory=inspect.Memory(volatile)\ndisk=inspect.Disk\nbroken=inspect.Missing\n"

func init() {
	extension.MustDeclarePoint[Store](extension.WithID("inspect/test.Store"), extension.WithDefault("memory"))
	extension.MustRegisterClass("inspect.Memory", extension.Constructor(func() memoryStore { return memoryStore{} }))
	extension.MustRegisterClass("inspect.Disk", extension.Constructor(func() diskStore { return diskStore{} }))
}

func newTestServer(t *testing.T, descriptor string) (*httptest.Server, *extension.Manager) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	fsys := fstest.MapFS{
		"extensions/inspect/test.Store": {Data: []byte(descriptor)},
	}
	registry := prometheus.NewRegistry()
	m := extension.NewManager(
		extension.WithLogger(logger),
		extension.WithSources(extension.NewFSSource().Add("test", fsys)),
		extension.WithMetrics(observability.NewMetrics(registry)),
	)

	srv := httptest.NewServer(NewHandlers(m, registry).Handler(logger))
	t.Cleanup(srv.Close)
	return srv, m
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestListPoints(t *testing.T) {
	srv, m := newTestServer(t, storeDescriptor)

	var body struct {
		Points []PointSummary `json:"points"`
		Count  int            `json:"count"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/points", &body))
	assert.Equal(t, len(body.Points), body.Count)

	byID := make(map[string]PointSummary)
	for _, p := range body.Points {
		byID[p.ID] = p
	}
	require.Contains(t, byID, "inspect/test.Store")
	assert.Equal(t, "memory", byID["inspect/test.Store"].DefaultName)
	assert.False(t, byID["inspect/test.Store"].Loaded)
	assert.Empty(t, m.Loaded())

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/points?load=true", &body))
	for _, p := range body.Points {
		if p.ID == "inspect/test.Store" {
			assert.True(t, p.Loaded)
		}
	}

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/points?load=perhaps", nil))
}

func TestGetPoint(t *testing.T) {
	srv, _ := newTestServer(t, storeDescriptor)

	var view RegistryView
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/points/inspect/test.Store", &view))
	assert.Equal(t, []string{"disk", "memory"}, view.Names)
	assert.Empty(t, view.Wrappers)
	assert.False(t, view.Adaptive)
	assert.Equal(t, "prototype", view.Policy)
	assert.Equal(t, map[string]string{"volatile": ""}, view.Attributes["memory"])
	require.Len(t, view.Diagnostics, 1)
	assert.Equal(t, 3, view.Diagnostics[0].Line)
	assert.Contains(t, view.Diagnostics[0].Error, "extension class not found")
	assert.Empty(t, view.Error)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/points/nope", nil))
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, storeDescriptor)
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/points/inspect/test.Store", nil))

	var body map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", &body))
	assert.Equal(t, "healthy", body["status"])

	conflicted, m := newTestServer(t, "*a=inspect.Memory\n*b=inspect.Disk\n")
	err := m.Preload(context.Background(), 1, reflect.TypeFor[Store]())
	require.Error(t, err)

	body = nil
	require.Equal(t, http.StatusServiceUnavailable, getJSON(t, conflicted.URL+"/healthz", &body))
	assert.Equal(t, "unhealthy", body["status"])
	assert.Contains(t, body["failing"], "inspect/test.Store")
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, storeDescriptor)
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/points/inspect/test.Store", nil))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `extpoint_descriptor_loads_total{point="inspect/test.Store",status="success"} 1`)
}
