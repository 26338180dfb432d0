package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/linkgraph/internal/builder"
	"github.com/starford/linkgraph/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu      sync.Mutex
	results []*builder.Result
	errs    []error
}

func (r *recorder) callback(res *builder.Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.errs = append(r.errs, err)
		return
	}
	r.results = append(r.results, res)
}

func (r *recorder) last() *builder.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) == 0 {
		return nil
	}
	return r.results[len(r.results)-1]
}

func watcherTestEnv(t *testing.T) (string, *builder.Builder, Config) {
	t.Helper()
	root, store := testutil.TestSite(t)
	settings := builder.Settings{
		PostsDir:     "content/posts",
		SnippetsDir:  "content/snippets",
		Output:       "public/graph-data.json",
		HiddenConfig: "scripts/hidden_snippets.json",
	}
	_ = os.MkdirAll(filepath.Join(root, "content", "posts"), 0o755)
	_ = os.MkdirAll(filepath.Join(root, "scripts"), 0o755)
	cfg := Config{
		Dirs:     []string{filepath.Join(root, "content", "posts"), filepath.Join(root, "content", "snippets")},
		Files:    []string{filepath.Join(root, "scripts", "hidden_snippets.json")},
		Ignore:   []string{filepath.Join(root, "public", "graph-data.json")},
		Debounce: 50 * time.Millisecond,
	}
	return root, builder.New(store, settings, testutil.DiscardLogger(), nil), cfg
}

func TestWatcher_NewPostRebuilds(t *testing.T) {
	root, b, cfg := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	go Watch(ctx, b, cfg, testutil.DiscardLogger(), rec.callback)
	time.Sleep(100 * time.Millisecond)

	testutil.WritePost(t, root, "fresh", "---\ntitle: Fresh\n---\n")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		res := rec.last()
		if res == nil {
			return false
		}
		_, ok := res.Graph.Node("fresh")
		return ok
	}, "new post not picked up by watcher")
}

func TestWatcher_MissingDirAppears(t *testing.T) {
	root, b, cfg := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	go Watch(ctx, b, cfg, testutil.DiscardLogger(), rec.callback)
	time.Sleep(100 * time.Millisecond)

	_ = os.MkdirAll(filepath.Join(root, "content", "snippets", "late"), 0o755)
	time.Sleep(200 * time.Millisecond)
	testutil.WriteSnippet(t, root, "late", "---\ntitle: Late\n---\n")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		res := rec.last()
		if res == nil {
			return false
		}
		_, ok := res.Graph.Node("snippet-late")
		return ok
	}, "snippet in newly created collection not picked up")
}

func TestWatcher_HiddenConfigRebuilds(t *testing.T) {
	root, b, cfg := watcherTestEnv(t)
	testutil.WriteSnippet(t, root, "s", "---\ntitle: S\n---\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	go Watch(ctx, b, cfg, testutil.DiscardLogger(), rec.callback)
	time.Sleep(100 * time.Millisecond)

	testutil.WriteFile(t, root, "scripts/hidden_snippets.json", `{"hidden": ["s"]}`)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		res := rec.last()
		if res == nil {
			return false
		}
		_, ok := res.Graph.Node("snippet-s")
		return !ok
	}, "hidden config change did not rebuild")
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	_, b, cfg := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, b, cfg, testutil.DiscardLogger(), nil) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestConfig_Relevant(t *testing.T) {
	root := filepath.FromSlash("/site")
	c := Config{
		Dirs:   []string{filepath.Join(root, "content", "posts")},
		Files:  []string{filepath.Join(root, "scripts", "hidden_snippets.json")},
		Ignore: []string{filepath.Join(root, "content", "posts", "graph.json")},
	}.cleaned()

	cases := map[string]bool{
		"content/posts/a/index.md":           true,
		"content/posts":                      true,
		"content":                            true,
		"content/other/x.md":                 false,
		"content/posts-old/x.md":             false,
		"scripts/hidden_snippets.json":       true,
		"scripts/other.json":                 false,
		"content/posts/graph.json":           false,
		"content/posts/a/.linkgraph-tmp-123": false,
	}
	for rel, want := range cases {
		if got := c.relevant(filepath.Join(root, filepath.FromSlash(rel))); got != want {
			t.Errorf("relevant(%q) = %v, want %v", rel, got, want)
		}
	}
}
