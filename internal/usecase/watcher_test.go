package usecase

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb")
	ctx := context.Background()

	writer := newTestEngine(t)
	addDoc(t, writer, "a.txt", "alpha bravo charlie")
	if err := writer.Save(path); err != nil {
		t.Fatal(err)
	}

	reader := newTestEngine(t)
	if err := reader.Load(ctx, path); err != nil {
		t.Fatal(err)
	}

	watcher, err := NewWatcher(reader, path, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	addDoc(t, writer, "b.txt", "golf hotel india")
	if err := writer.Save(path); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if reader.Statistics().TotalChunks == 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("watcher did not reload: reader has %d chunks, want 2", reader.Statistics().TotalChunks)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	engine := newTestEngine(t)
	watcher, err := NewWatcher(engine, filepath.Join(t.TempDir(), "kb"), 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	watcher.Stop()
	watcher.Stop()
}
