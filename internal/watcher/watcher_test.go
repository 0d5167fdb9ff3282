package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestOpString(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpCreate, "CREATE"},
		{OpWrite, "WRITE"},
		{OpCreate | OpWrite, "CREATE|WRITE"},
		{OpRemove | OpRename, "REMOVE|RENAME"},
		{0, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestConvertOp(t *testing.T) {
	if got := convertOp(fsnotify.Chmod); got != 0 {
		t.Errorf("convertOp(Chmod) = %v, want 0", got)
	}
	if got := convertOp(fsnotify.Write | fsnotify.Chmod); got != OpWrite {
		t.Errorf("convertOp(Write|Chmod) = %v, want WRITE", got)
	}
	if got := convertOp(fsnotify.Create | fsnotify.Rename); got != OpCreate|OpRename {
		t.Errorf("convertOp(Create|Rename) = %v, want CREATE|RENAME", got)
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	out := make(chan Event, 4)
	d := newDebouncer(time.Hour, out, DefaultConfig().Logger)
	defer d.stop()

	now := time.Now()
	d.add(Event{Path: "/a", Op: OpCreate, Timestamp: now})
	d.add(Event{Path: "/a", Op: OpWrite, Timestamp: now.Add(time.Millisecond)})
	d.add(Event{Path: "/b", Op: OpRemove, Timestamp: now})

	if got := d.pendingCount(); got != 2 {
		t.Fatalf("pendingCount() = %d, want 2", got)
	}

	d.flush()
	if got := len(out); got != 2 {
		t.Fatalf("delivered %d events, want 2", got)
	}

	byPath := map[string]Event{}
	for range 2 {
		e := <-out
		byPath[e.Path] = e
	}
	if got := byPath["/a"].Op; got != OpCreate|OpWrite {
		t.Errorf("/a op = %v, want CREATE|WRITE", got)
	}
	if got := byPath["/a"].Timestamp; !got.Equal(now.Add(time.Millisecond)) {
		t.Errorf("/a timestamp = %v, want the latest", got)
	}
	if got := byPath["/b"].Op; got != OpRemove {
		t.Errorf("/b op = %v, want REMOVE", got)
	}
}

func TestDebouncerDropsWhenFull(t *testing.T) {
	out := make(chan Event, 1)
	d := newDebouncer(time.Hour, out, DefaultConfig().Logger)
	defer d.stop()

	d.add(Event{Path: "/a", Op: OpWrite})
	d.add(Event{Path: "/b", Op: OpWrite})
	d.flush()

	if got := len(out); got != 1 {
		t.Errorf("delivered %d events, want 1", got)
	}
	if got := d.pendingCount(); got != 0 {
		t.Errorf("pendingCount() = %d, want 0", got)
	}
}

func TestDebouncerStop(t *testing.T) {
	out := make(chan Event, 1)
	d := newDebouncer(time.Hour, out, DefaultConfig().Logger)

	d.add(Event{Path: "/a", Op: OpWrite})
	d.stop()
	d.stop()
	d.add(Event{Path: "/b", Op: OpWrite})
	d.flush()

	if got := len(out); got != 0 {
		t.Errorf("delivered %d events after stop, want 0", got)
	}
}

func TestDebouncerDelivers(t *testing.T) {
	out := make(chan Event, 1)
	d := newDebouncer(10*time.Millisecond, out, DefaultConfig().Logger)
	defer d.stop()

	d.add(Event{Path: "/a", Op: OpWrite})
	select {
	case e := <-out:
		if e.Path != "/a" {
			t.Errorf("event path = %q, want /a", e.Path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debounced event not delivered")
	}
}

func newTestWatcher(t *testing.T) *FileWatcher {
	t.Helper()
	w, err := New(WithDebounceDelay(20 * time.Millisecond))
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWatchUnwatch(t *testing.T) {
	w := newTestWatcher(t)
	path := filepath.Join(t.TempDir(), "prefs.toml")

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch error = %v", err)
	}
	if !w.IsWatching(path) {
		t.Error("should be watching path")
	}
	if err := w.Watch(path); err != ErrAlreadyWatching {
		t.Errorf("Watch again error = %v, want ErrAlreadyWatching", err)
	}

	if err := w.Unwatch(path); err != nil {
		t.Fatalf("Unwatch error = %v", err)
	}
	if w.IsWatching(path) {
		t.Error("should not be watching path after Unwatch")
	}
	if err := w.Unwatch(path); err != ErrNotWatching {
		t.Errorf("Unwatch again error = %v, want ErrNotWatching", err)
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	w := newTestWatcher(t)
	err := w.Watch(filepath.Join(t.TempDir(), "missing", "prefs.toml"))
	if err != ErrPathNotExist {
		t.Errorf("Watch error = %v, want ErrPathNotExist", err)
	}
}

func TestWatchAfterClose(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close error = %v", err)
	}
	if err := w.Watch(t.TempDir()); err != ErrWatcherClosed {
		t.Errorf("Watch error = %v, want ErrWatcherClosed", err)
	}
	if _, ok := <-w.Events(); ok {
		t.Error("Events channel should be closed")
	}
}

func waitEvent(t *testing.T, w *FileWatcher) Event {
	t.Helper()
	select {
	case e := <-w.Events():
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestWatchReportsWrites(t *testing.T) {
	w := newTestWatcher(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.toml")
	other := filepath.Join(dir, "other.toml")

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch error = %v", err)
	}

	if err := os.WriteFile(other, []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("a = 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := waitEvent(t, w)
	absPath, _ := filepath.Abs(path)
	if e.Path != absPath {
		t.Errorf("event path = %q, want %q", e.Path, absPath)
	}
	if !e.Op.Has(OpCreate) && !e.Op.Has(OpWrite) {
		t.Errorf("event op = %v, want CREATE or WRITE", e.Op)
	}
}

func TestWatchSurvivesAtomicReplace(t *testing.T) {
	w := newTestWatcher(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.toml")
	if err := os.WriteFile(path, []byte("a = 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch error = %v", err)
	}

	for i, content := range []string{"a = 2", "a = 3"} {
		tmp := filepath.Join(dir, ".prefs.toml.tmp")
		if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Rename(tmp, path); err != nil {
			t.Fatal(err)
		}
		if e := waitEvent(t, w); !e.Op.Has(OpCreate) && !e.Op.Has(OpWrite) && !e.Op.Has(OpRename) {
			t.Errorf("replace %d: event op = %v", i, e.Op)
		}
	}
}
