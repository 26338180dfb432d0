package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/starford/linkgraph/internal/checksum"
	"github.com/starford/linkgraph/internal/graph"
	"github.com/starford/linkgraph/internal/storage"
	"github.com/starford/linkgraph/internal/testutil"
)

func defaultSettings() Settings {
	return Settings{
		PostsDir:        "content/posts",
		SnippetsDir:     "content/snippets",
		Output:          "public/graph-data.json",
		HiddenConfig:    "scripts/hidden_snippets.json",
		QualityMetadata: "content/snippets/_metadata.json",
	}
}

func newBuilder(t *testing.T) (string, *storage.FS, *Builder) {
	t.Helper()
	root, store := testutil.TestSite(t)
	return root, store, New(store, defaultSettings(), testutil.DiscardLogger(), nil)
}

func readArtifact(t *testing.T, root string) *graph.Graph {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, "public", "graph-data.json"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	g, err := graph.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestBuildScenario(t *testing.T) {
	root, _, b := newBuilder(t)
	testutil.WritePost(t, root, "my-post", "---\ntitle: My Post\ntags:\n  - Foo\n  - personal\n---\nSee [[Other Post]].\n")

	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := readArtifact(t, root)

	if _, ok := g.Node("tag-personal"); ok {
		t.Error("excluded tag emitted")
	}
	tag, ok := g.Node("tag-foo")
	if !ok || tag.IncomingLinks != 1 {
		t.Errorf("tag-foo = %+v, %v", tag, ok)
	}
	ph, ok := g.Node("other-post")
	if !ok || ph.Exists {
		t.Errorf("other-post = %+v, %v", ph, ok)
	}
	out := g.Outgoing("my-post")
	if len(out) != 2 {
		t.Fatalf("outgoing = %+v, want 2 links", out)
	}
	if res.Posts != 1 || res.Snippets != 0 {
		t.Errorf("posts/snippets = %d/%d, want 1/0", res.Posts, res.Snippets)
	}
	if res.Checksum != checksum.Sum(res.Data) {
		t.Error("checksum does not match artifact bytes")
	}
	if res.BuildID == "" {
		t.Error("empty build id")
	}
}

func TestBuildHiddenAndQuality(t *testing.T) {
	root, _, b := newBuilder(t)
	testutil.WritePost(t, root, "p", "Links [a](/snippets/secret/) and [b](/snippets/weak/).\n")
	testutil.WriteSnippet(t, root, "secret", "---\ntitle: Secret\n---\nbody\n")
	testutil.WriteSnippet(t, root, "weak", "---\ntitle: Weak One\n---\nbody\n")
	testutil.WriteFile(t, root, "scripts/hidden_snippets.json", `{"hidden": ["secret"]}`)
	testutil.WriteFile(t, root, "content/snippets/_metadata.json", `{"weak one": {"passes": false, "reason": "thin"}}`)

	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := readArtifact(t, root)

	if _, ok := g.Node("snippet-secret"); ok {
		t.Error("hidden snippet in graph")
	}
	if strings.Contains(string(res.Data), "secret") {
		t.Errorf("artifact mentions hidden slug: %s", res.Data)
	}
	weak, ok := g.Node("snippet-weak")
	if !ok || weak.Accessible || !weak.Exists || weak.IncomingLinks != 1 {
		t.Errorf("snippet-weak = %+v, %v", weak, ok)
	}
	if res.Snippets != 1 {
		t.Errorf("snippets = %d, want 1", res.Snippets)
	}
	if len(res.Items) != 3 {
		t.Errorf("items = %d, want 3", len(res.Items))
	}
}

func TestBuildMalformedSidecars(t *testing.T) {
	root, _, b := newBuilder(t)
	testutil.WriteSnippet(t, root, "s", "body")
	testutil.WriteFile(t, root, "scripts/hidden_snippets.json", `{"hidden": [`)
	testutil.WriteFile(t, root, "content/snippets/_metadata.json", `nope`)

	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	n, ok := readArtifact(t, root).Node("snippet-s")
	if !ok || !n.Accessible {
		t.Errorf("snippet-s = %+v, %v", n, ok)
	}
}

func TestBuildEmptySite(t *testing.T) {
	root, _, b := newBuilder(t)
	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, want := string(res.Data), `{"nodes":[],"links":[]}`; got != want {
		t.Errorf("got = %q, want %q", got, want)
	}
	if _, err := os.Stat(filepath.Join(root, "public", "graph-data.json")); err != nil {
		t.Errorf("artifact not written: %v", err)
	}
}

func TestBuildIdempotent(t *testing.T) {
	root, _, b := newBuilder(t)
	testutil.WritePost(t, root, "a", "---\ntitle: A\ntags:\n  - go\n---\n[[B]] [[Ghost]]\n")
	testutil.WritePost(t, root, "b", "---\ntitle: B\n---\n[[A]]\n")
	testutil.WriteSnippet(t, root, "s", "---\ntags:\n  - go\n---\n")

	first, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.Checksum != second.Checksum {
		t.Error("repeated builds differ")
	}
	if first.BuildID == second.BuildID {
		t.Error("build ids repeated")
	}
}

func TestBuildConcurrentCallsSequenced(t *testing.T) {
	root, _, b := newBuilder(t)
	testutil.WritePost(t, root, "a", "---\ntitle: A\n---\n")

	const n = 4
	seqs := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := b.Build(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			seqs <- res.Seq
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[uint64]bool)
	for s := range seqs {
		if s < 1 || s > n || seen[s] {
			t.Errorf("unexpected seq %d (seen %v)", s, seen)
		}
		seen[s] = true
	}
	if len(seen) != n {
		t.Errorf("got %d distinct seqs, want %d", len(seen), n)
	}
}

func TestBuildWriteFailureKeepsPrevious(t *testing.T) {
	root, _, b := newBuilder(t)
	testutil.WriteFile(t, root, "public/graph-data.json/keep", "x")

	if _, err := b.Build(context.Background()); err == nil {
		t.Fatal("expected write error")
	}
	if _, err := os.Stat(filepath.Join(root, "public", "graph-data.json", "keep")); err != nil {
		t.Errorf("existing output disturbed: %v", err)
	}
}

func TestBuildCanceled(t *testing.T) {
	root, _, b := newBuilder(t)
	testutil.WriteFile(t, root, "public/graph-data.json", "previous")
	testutil.WritePost(t, root, "a", "A")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Build(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	data, _ := os.ReadFile(filepath.Join(root, "public", "graph-data.json"))
	if string(data) != "previous" {
		t.Errorf("artifact = %q, want previous", data)
	}
}

func TestBuildPrefersMDX(t *testing.T) {
	root, _, b := newBuilder(t)
	testutil.WriteFile(t, root, "content/posts/p/index.md", "---\ntitle: From MD\n---\n")
	testutil.WriteFile(t, root, "content/posts/p/index.mdx", "---\ntitle: From MDX\n---\n")
	testutil.WriteFile(t, root, "content/posts/_draft/index.md", "---\ntitle: Draft\n---\n")

	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 1 || res.Items[0].Title != "From MDX" {
		t.Errorf("items = %+v", res.Items)
	}
	if res.Items[0].Path != "content/posts/p/index.mdx" {
		t.Errorf("path = %q", res.Items[0].Path)
	}
}

func TestBuildCustomExcludedTags(t *testing.T) {
	root, store := testutil.TestSite(t)
	s := defaultSettings()
	s.ExcludedTags = []string{"draft"}
	b := New(store, s, testutil.DiscardLogger(), nil)
	testutil.WritePost(t, root, "a", "---\ntags:\n  - draft\n  - personal\n---\n")

	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Graph.Node("tag-draft"); ok {
		t.Error("custom excluded tag emitted")
	}
	if _, ok := res.Graph.Node("tag-personal"); !ok {
		t.Error("personal should survive a custom exclusion list")
	}
}

func TestBuildErrorCarriesID(t *testing.T) {
	root, _, b := newBuilder(t)
	testutil.WriteFile(t, root, "public/graph-data.json/keep", "x")

	_, err := b.Build(context.Background())
	var be *Error
	if !errors.As(err, &be) {
		t.Fatalf("err = %T, want *Error", err)
	}
	if be.BuildID == "" {
		t.Error("empty build id on failure")
	}
}
