package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func startWatcher(t *testing.T, w *Watcher) <-chan []string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	batches := make(chan []string, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx, func(_ context.Context, files []string) { batches <- files }); err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-w.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher not ready")
	}
	return batches
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func next(t *testing.T, batches <-chan []string) []string {
	t.Helper()
	select {
	case files := <-batches:
		return files
	case <-time.After(3 * time.Second):
		t.Fatal("no change batch received")
		return nil
	}
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	batches := startWatcher(t, New(root, nil, WithDebounce(100*time.Millisecond)))

	write(t, filepath.Join(root, "a.py"), "x = 1\n")
	write(t, filepath.Join(root, "b.py"), "y = 2\n")
	write(t, filepath.Join(root, "a.py"), "x = 3\n")

	got := next(t, batches)
	if want := []string{"a.py", "b.py"}; !slices.Equal(got, want) {
		t.Errorf("batch = %v, want %v", got, want)
	}
}

func TestWatcher_SkipsExcludedAndFiltersExtensions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".venv"), 0o755); err != nil {
		t.Fatal(err)
	}
	w := New(root, []string{".venv"}, WithDebounce(50*time.Millisecond), WithExtensions(".py"))
	batches := startWatcher(t, w)

	write(t, filepath.Join(root, ".venv", "site.py"), "")
	write(t, filepath.Join(root, "notes.txt"), "")
	write(t, filepath.Join(root, "app.py"), "")

	got := next(t, batches)
	if want := []string{"app.py"}; !slices.Equal(got, want) {
		t.Errorf("batch = %v, want %v", got, want)
	}
}

func TestWatcher_NewDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	batches := startWatcher(t, New(root, nil, WithDebounce(50*time.Millisecond)))

	if err := os.MkdirAll(filepath.Join(root, "pkg"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher time to register the new directory.
	time.Sleep(100 * time.Millisecond)
	write(t, filepath.Join(root, "pkg", "mod.py"), "")

	got := next(t, batches)
	if !slices.Contains(got, "pkg/mod.py") {
		t.Errorf("batch = %v, want pkg/mod.py", got)
	}
}
