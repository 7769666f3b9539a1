package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const watchDebounce = 50 * time.Millisecond

func startWatch(t *testing.T, root string) *Watcher {
	t.Helper()
	layout, err := ResolveLayout([]string{root}, "Season")
	if err != nil {
		t.Fatalf("ResolveLayout() error = %v", err)
	}
	w, err := Watch(context.Background(), layout, watchDebounce)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func expectChange(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
}

func expectQuiet(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case <-w.Changes():
		t.Fatal("unexpected change reported")
	case <-time.After(4 * watchDebounce):
	}
}

func TestWatchCoalescesVideoChanges(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "Season 1/e01.mkv")
	w := startWatch(t, root)

	for _, name := range []string{"e02.mkv", "e03.mkv", "e04.mkv"} {
		makeTree(t, root, filepath.Join("Season 1", name))
	}
	expectChange(t, w)
	expectQuiet(t, w)
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "Season 1/e01.mkv")
	w := startWatch(t, root)

	makeTree(t, root, "Season 1/e01.srt", "notes.txt")
	expectQuiet(t, w)
}

func TestWatchFollowsNewSeasons(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "Season 1/e01.mkv")
	w := startWatch(t, root)

	if err := os.Mkdir(filepath.Join(root, "Season 2"), 0755); err != nil {
		t.Fatal(err)
	}
	expectChange(t, w)

	makeTree(t, root, "Season 2/e01.mkv")
	expectChange(t, w)
}

func TestWatchClose(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "Season 1/e01.mkv")
	layout, err := ResolveLayout([]string{root}, "Season")
	if err != nil {
		t.Fatal(err)
	}
	w, err := Watch(context.Background(), layout, watchDebounce)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		w.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not return")
	}
}
