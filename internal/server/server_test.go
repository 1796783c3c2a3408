package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackscan/pkg/codelocation"
	"github.com/matzehuels/stackscan/pkg/dag"
	"github.com/matzehuels/stackscan/pkg/detect"
	graphio "github.com/matzehuels/stackscan/pkg/io"
	"github.com/matzehuels/stackscan/pkg/store"
	"github.com/matzehuels/stackscan/pkg/upload"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	s := New(st, WithWorkers(2))
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		s.Close()
	})
	return srv, st
}

func postRecord(t *testing.T, url string, rec store.Record) *http.Response {
	t.Helper()
	body, err := json.Marshal(rec)
	require.NoError(t, err)
	resp, err := http.Post(url+"/api/v1/codelocations", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func waitStatus(t *testing.T, st store.Store, id string) store.Record {
	t.Helper()
	var rec store.Record
	require.Eventually(t, func() bool {
		var err error
		rec, err = st.Get(context.Background(), id)
		return err == nil && rec.Status.Terminal()
	}, 2*time.Second, 5*time.Millisecond)
	return rec
}

func sampleGraph(t *testing.T) graphio.Graph {
	t.Helper()
	g := dag.New(nil)
	a := dag.Dependency("crates", "serde", "1.0.0")
	b := dag.Dependency("crates", "serde_derive", "1.0.0")
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddNode(b))
	require.NoError(t, g.AddRoot(a.ID))
	require.NoError(t, g.Link(a.ID, b.ID))
	return graphio.Encode(g)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateCompletes(t *testing.T) {
	srv, st := newTestServer(t)

	resp := postRecord(t, srv.URL, store.Record{Name: "demo/1.0 cargo-lock", ProjectName: "demo", Graph: sampleGraph(t)})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created store.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, store.StatusPending, created.Status)

	rec := waitStatus(t, st, created.ID)
	assert.Equal(t, store.StatusComplete, rec.Status)
	assert.Empty(t, rec.Error)

	get, err := http.Get(srv.URL + "/api/v1/codelocations/" + created.ID)
	require.NoError(t, err)
	defer get.Body.Close()
	var fetched store.Record
	require.NoError(t, json.NewDecoder(get.Body).Decode(&fetched))
	assert.Equal(t, store.StatusComplete, fetched.Status)
	assert.Len(t, fetched.Graph.Nodes, 3)
}

func TestCreateFailsOnBrokenGraph(t *testing.T) {
	srv, st := newTestServer(t)

	g := sampleGraph(t)
	g.Edges = append(g.Edges, graphio.Edge{From: g.Nodes[0].ID, To: "crates:missing@0.1.0"})
	resp := postRecord(t, srv.URL, store.Record{Name: "demo/1.0 cargo-lock", Graph: g})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created store.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	rec := waitStatus(t, st, created.ID)
	assert.Equal(t, store.StatusFailed, rec.Status)
	assert.Contains(t, rec.Error, "unknown target node")
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		rec  store.Record
	}{
		{"empty name", store.Record{}},
		{"bad id", store.Record{ID: "not-a-uuid", Name: "demo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postRecord(t, srv.URL, tt.rec)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	resp, err := http.Post(srv.URL+"/api/v1/codelocations", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetUnknown(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/v1/codelocations/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestList(t *testing.T) {
	srv, st := newTestServer(t)
	for _, project := range []string{"a", "b", "a"} {
		resp := postRecord(t, srv.URL, store.Record{Name: project + "/default cargo-lock", ProjectName: project, Graph: sampleGraph(t)})
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}
	require.Eventually(t, func() bool {
		recs, _ := st.List(context.Background(), store.ListOptions{Status: store.StatusComplete})
		return len(recs) == 3
	}, 2*time.Second, 5*time.Millisecond)

	resp, err := http.Get(srv.URL + "/api/v1/codelocations?project=a&limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body struct {
		CodeLocations []store.Record `json:"codelocations"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.CodeLocations, 2)

	bad, err := http.Get(srv.URL + "/api/v1/codelocations?limit=-1")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestUploaderRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	u, err := upload.NewHTTPUploader(srv.URL, upload.WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)

	g := dag.New(nil)
	n := dag.Dependency("pub", "http", "1.2.0")
	require.NoError(t, g.AddNode(n))
	require.NoError(t, g.AddRoot(n.ID))
	loc := codelocation.CodeLocation{
		SourcePath: "app",
		Creator:    "pubspec-lock",
		Project:    detect.NameVersion{Name: "app", Version: "2.0.0"},
		Graph:      g,
	}

	acc := codelocation.NewAccumulator()
	require.NoError(t, u.Upload(context.Background(), []codelocation.CodeLocation{loc}, acc))

	res := codelocation.Calculator{Timeout: 2 * time.Second}.Calculate(context.Background(), acc)
	require.True(t, res.Complete(), "failures: %v", res.Failures)
	assert.Equal(t, []string{loc.Name()}, res.Names)
}
