package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestRelevantFiltersByNameAndOp(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "vector.index")
	meta := filepath.Join(dir, "metadata.json")
	w := NewIndexWatcher(index, meta, 0, nil)

	cases := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: index, Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: meta, Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: meta, Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: filepath.Join(dir, "vector.index.tmp"), Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: filepath.Join(dir, "monitor_report.json"), Op: fsnotify.Write}, false},
	}
	for _, tc := range cases {
		if got := w.relevant(tc.event); got != tc.want {
			t.Fatalf("relevant(%v) = %v, want %v", tc.event, got, tc.want)
		}
	}
	if len(w.dirs) != 1 {
		t.Fatalf("expected one watched dir, got %v", w.dirs)
	}
}

func TestRunReloadsOnceAfterBurst(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "vector.index")
	meta := filepath.Join(dir, "metadata.json")

	var reloads atomic.Int32
	w := NewIndexWatcher(index, meta, 100*time.Millisecond, func(context.Context) error {
		reloads.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	for _, p := range []string{index, meta, index} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	deadline := time.Now().Add(3 * time.Second)
	for reloads.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(300 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := reloads.Load(); got != 1 {
		t.Fatalf("expected one reload, got %d", got)
	}
}

func TestRunCreatesMissingIndexDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh", "index")
	index := filepath.Join(dir, "vector.index")
	meta := filepath.Join(dir, "metadata.json")

	var reloads atomic.Int32
	w := NewIndexWatcher(index, meta, 50*time.Millisecond, func(context.Context) error {
		reloads.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		select {
		case err := <-done:
			t.Fatalf("Run() returned early: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			t.Fatalf("index dir was not created")
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(index, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	for reloads.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reloads.Load() == 0 {
		t.Fatalf("expected a reload after the first write")
	}
}
