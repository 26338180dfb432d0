package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/linkgraph/internal/builder"
	"github.com/starford/linkgraph/internal/checksum"
	"github.com/starford/linkgraph/internal/graph"
	"github.com/starford/linkgraph/internal/graphservice"
	"github.com/starford/linkgraph/internal/models"
)

func testEnv(t *testing.T, built bool) (*graphservice.Service, http.Handler) {
	t.Helper()
	svc := graphservice.New()
	if built {
		items := []models.ContentItem{
			{ID: "a", Slug: "a", Title: "A", Kind: models.KindPost, Tags: []string{"go"}, References: []string{"Ghost", "snippet:s"}},
			{ID: "snippet-s", Slug: "s", Title: "S", Kind: models.KindSnippet, Tags: []string{}, References: []string{}, DisplayDate: "2024"},
		}
		g := graph.Assemble(items, graph.Policy{})
		data, err := graph.Encode(g)
		if err != nil {
			t.Fatal(err)
		}
		svc.Update(&builder.Result{BuildID: "b1", Graph: g, Items: items, Data: data, Checksum: checksum.Sum(data), Posts: 1, Snippets: 1})
	}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	})
	return svc, NewRouter(svc, RouterOptions{Metrics: metrics, AllowOrigin: "*"})
}

func do(t *testing.T, h http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGraphArtifact(t *testing.T) {
	svc, router := testEnv(t, true)
	data, sum, _ := svc.Artifact()

	for _, path := range []string{"/graph-data.json", "/api/graph"} {
		w := do(t, router, http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, w.Code)
		}
		if w.Body.String() != string(data) {
			t.Errorf("%s body differs from artifact", path)
		}
		if got, want := w.Header().Get("ETag"), `"`+sum+`"`; got != want {
			t.Errorf("got = %q, want %q", got, want)
		}
		if got := w.Header().Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q", got)
		}
	}
}

func TestGraphNotModified(t *testing.T) {
	svc, router := testEnv(t, true)
	_, sum, _ := svc.Artifact()

	w := do(t, router, http.MethodGet, "/api/graph", map[string]string{"If-None-Match": `"` + sum + `"`})
	if w.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("304 with body %q", w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/api/graph", map[string]string{"If-None-Match": `"stale"`})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestNotBuiltYet(t *testing.T) {
	_, router := testEnv(t, false)

	for _, path := range []string{"/graph-data.json", "/api/stats", "/api/nodes/a", "/health/ready"} {
		if w := do(t, router, http.MethodGet, path, nil); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, w.Code)
		}
	}
	if w := do(t, router, http.MethodGet, "/health/live", nil); w.Code != http.StatusOK {
		t.Errorf("live status = %d, want 200", w.Code)
	}
}

func TestStats(t *testing.T) {
	_, router := testEnv(t, true)
	w := do(t, router, http.MethodGet, "/api/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp StatsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.BuildID != "b1" || resp.Posts != 1 || resp.Stats.Placeholders != 1 || resp.Stats.Tags != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestNodeAndBacklinks(t *testing.T) {
	_, router := testEnv(t, true)

	w := do(t, router, http.MethodGet, "/api/nodes/snippet-s", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var node NodeResponse
	if err := json.NewDecoder(w.Body).Decode(&node); err != nil {
		t.Fatal(err)
	}
	if node.ID != "snippet-s" || !node.IsSnippet || node.IncomingLinks != 1 {
		t.Errorf("node = %+v", node)
	}

	w = do(t, router, http.MethodGet, "/api/nodes/ghost/backlinks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var bl BacklinksResponse
	if err := json.NewDecoder(w.Body).Decode(&bl); err != nil {
		t.Fatal(err)
	}
	if len(bl.Backlinks) != 1 || bl.Backlinks[0] != "a" {
		t.Errorf("backlinks = %v", bl.Backlinks)
	}

	w = do(t, router, http.MethodGet, "/api/nodes/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error":"not found"`) {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestItem(t *testing.T) {
	_, router := testEnv(t, true)
	w := do(t, router, http.MethodGet, "/api/items/snippet-s", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var item map[string]any
	if err := json.NewDecoder(w.Body).Decode(&item); err != nil {
		t.Fatal(err)
	}
	if item["kind"] != "snippet" || item["displayDate"] != "2024" {
		t.Errorf("item = %v", item)
	}
}

func TestUnresolved(t *testing.T) {
	_, router := testEnv(t, true)
	w := do(t, router, http.MethodGet, "/api/unresolved", nil)
	var resp UnresolvedResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Nodes) != 1 || resp.Nodes[0].ID != "ghost" {
		t.Errorf("unresolved = %+v", resp.Nodes)
	}
}

func TestMetricsAndCORS(t *testing.T) {
	_, router := testEnv(t, true)
	w := do(t, router, http.MethodGet, "/metrics", nil)
	if w.Body.String() != "metrics" {
		t.Errorf("metrics body = %q", w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}
	w = do(t, router, http.MethodOptions, "/api/graph", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
}

func TestMatchesETag(t *testing.T) {
	cases := map[string]bool{
		`"abc"`:      true,
		`W/"abc"`:    true,
		`"x", "abc"`: true,
		`*`:          true,
		`"abd"`:      false,
		``:           false,
	}
	for header, want := range cases {
		if got := matchesETag(header, `"abc"`); got != want {
			t.Errorf("matchesETag(%q) = %v, want %v", header, got, want)
		}
	}
}
