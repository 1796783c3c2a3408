package upload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackscan/pkg/codelocation"
	"github.com/matzehuels/stackscan/pkg/dag"
	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/errors"
	"github.com/matzehuels/stackscan/pkg/store"
)

func location(t *testing.T, dir, creator string) codelocation.CodeLocation {
	t.Helper()
	g := dag.New(nil)
	n := dag.Dependency("npmjs", "left-pad", "1.3.0")
	require.NoError(t, g.AddNode(n))
	require.NoError(t, g.AddRoot(n.ID))
	return codelocation.CodeLocation{
		SourcePath: dir,
		Creator:    creator,
		Project:    detect.NameVersion{Name: "demo", Version: "1.0.0"},
		Graph:      g,
	}
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "demo_1.0.0_web_yarn-lock", Slug("demo/1.0.0 web yarn-lock"))
	assert.Equal(t, "a_b", Slug("/a b/"))
}

func TestNewFileUploaderValidation(t *testing.T) {
	_, err := NewFileUploader("", nil)
	assert.True(t, errors.IsConfig(err))

	_, err = NewFileUploader(t.TempDir(), []string{"pdf"})
	assert.True(t, errors.IsConfig(err))
}

func TestFileUploader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	u, err := NewFileUploader(dir, []string{FormatJSON, FormatDOT, FormatJSON}, WithRunID("run-1"))
	require.NoError(t, err)

	locs := []codelocation.CodeLocation{location(t, ".", "yarn-lock"), location(t, "web", "yarn-lock")}
	acc := codelocation.NewAccumulator()
	require.NoError(t, u.Upload(context.Background(), locs, acc))

	assert.Equal(t, []string{locs[0].Name(), locs[1].Name()}, acc.NonWaitable())
	assert.Empty(t, acc.Waitables())

	data, err := os.ReadFile(filepath.Join(dir, Slug(locs[1].Name())+".json"))
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "demo/1.0.0 web yarn-lock", doc.Name)
	assert.Equal(t, "run-1", doc.RunID)
	assert.Equal(t, "web", doc.SourcePath)
	assert.Len(t, doc.Graph.Nodes, 2)

	dot, err := os.ReadFile(filepath.Join(dir, Slug(locs[0].Name())+".dot"))
	require.NoError(t, err)
	assert.Contains(t, string(dot), "left-pad@1.3.0")

	res := codelocation.Calculator{}.Calculate(context.Background(), acc)
	assert.True(t, res.Complete())
	assert.Len(t, res.Names, 2)
}

func TestFileUploaderSlugCollision(t *testing.T) {
	dir := t.TempDir()
	u, err := NewFileUploader(dir, nil)
	require.NoError(t, err)

	first := location(t, "svc/api", "yarn-lock")
	second := location(t, "svc_api", "yarn-lock")
	require.NotEqual(t, first.Name(), second.Name())
	require.Equal(t, Slug(first.Name()), Slug(second.Name()))

	acc := codelocation.NewAccumulator()
	err = u.Upload(context.Background(), []codelocation.CodeLocation{first, second}, acc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	assert.Contains(t, err.Error(), second.Name())

	assert.Equal(t, []string{first.Name()}, acc.NonWaitable())

	data, err := os.ReadFile(filepath.Join(dir, Slug(first.Name())+".json"))
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, first.Name(), doc.Name)
	assert.Equal(t, "svc/api", doc.SourcePath)
}

// collector is a minimal in-test stand-in for the collector API. Records
// become COMPLETE after a few polls, or FAILED when their creator is
// "broken".
type collector struct {
	mu      sync.Mutex
	records map[string]store.Record
	polls   map[string]int
	flaky   int // number of POSTs answered with 503 first
}

func newCollector() *collector {
	return &collector{records: map[string]store.Record{}, polls: map[string]int{}}
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == CollectorPath:
		if c.flaky > 0 {
			c.flaky--
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		var rec store.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec.Status = store.StatusPending
		c.records[rec.ID] = rec
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(rec)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, CollectorPath+"/"):
		id := strings.TrimPrefix(r.URL.Path, CollectorPath+"/")
		rec, ok := c.records[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		c.polls[id]++
		if c.polls[id] >= 2 {
			rec.Status = store.StatusComplete
			if rec.Creator == "broken" {
				rec.Status = store.StatusFailed
				rec.Error = "edge a->b: unknown target node"
			}
		}
		_ = json.NewEncoder(w).Encode(rec)
	default:
		http.NotFound(w, r)
	}
}

func TestHTTPUploader(t *testing.T) {
	c := newCollector()
	c.flaky = 1
	srv := httptest.NewServer(c)
	defer srv.Close()

	u, err := NewHTTPUploader(srv.URL+"/",
		WithPollInterval(10*time.Millisecond),
		WithRetryDelay(time.Millisecond),
		WithHTTPRunID("run-7"))
	require.NoError(t, err)

	locs := []codelocation.CodeLocation{location(t, ".", "yarn-lock"), location(t, "bad", "broken")}
	acc := codelocation.NewAccumulator()
	require.NoError(t, u.Upload(context.Background(), locs, acc))
	require.Len(t, acc.Waitables(), 2)

	for _, rec := range c.records {
		assert.Equal(t, "run-7", rec.RunID)
		assert.Len(t, rec.Graph.Edges, 1)
	}

	res := codelocation.Calculator{Timeout: 5 * time.Second}.Calculate(context.Background(), acc)
	assert.Equal(t, []string{locs[0].Name()}, res.Names)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, []string{locs[1].Name()}, res.Failures[0].Names)
	assert.True(t, errors.Is(res.Failures[0].Err, errors.ErrCodeCodeLocationFailed))
}

func TestHTTPUploaderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad graph", http.StatusBadRequest)
	}))
	defer srv.Close()

	u, err := NewHTTPUploader(srv.URL, WithRetryDelay(time.Millisecond))
	require.NoError(t, err)

	acc := codelocation.NewAccumulator()
	err = u.Upload(context.Background(), []codelocation.CodeLocation{location(t, ".", "yarn-lock")}, acc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	assert.Equal(t, 0, acc.Len())
}

func TestHTTPUploaderInvalidURL(t *testing.T) {
	_, err := NewHTTPUploader("ftp://example.com")
	assert.Error(t, err)
}

func TestWaitStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(store.Record{ID: "x", Status: store.StatusPending})
	}))
	defer srv.Close()

	u, err := NewHTTPUploader(srv.URL, WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	h := &pending{uploader: u, id: "x", name: "demo"}
	assert.ErrorIs(t, h.Wait(ctx), context.DeadlineExceeded)
}

func TestMulti(t *testing.T) {
	a, err := NewFileUploader(t.TempDir(), nil)
	require.NoError(t, err)
	b, err := NewFileUploader(t.TempDir(), nil)
	require.NoError(t, err)

	acc := codelocation.NewAccumulator()
	require.NoError(t, Multi{a, b}.Upload(context.Background(), []codelocation.CodeLocation{location(t, ".", "cargo-lock")}, acc))
	assert.Equal(t, 1, acc.Len())
}
