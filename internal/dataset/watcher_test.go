package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "videos.csv")
	if err := os.WriteFile(path, []byte("Title,Views,Favorites\nA,10,1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Dataset, 1)
	w, err := NewWatcher(path, true, func(ds *Dataset) {
		select {
		case reloaded <- ds:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to arm before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("Title,Views,Favorites\nA,10,1\nB,20,2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case ds := <-reloaded:
		if len(ds.Rows) != 2 {
			t.Errorf("reloaded rows = %d, want 2", len(ds.Rows))
		}
		if !ds.HasColumn(EngagementColumn) {
			t.Error("reloaded dataset should be enriched")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "videos.csv")
	if err := os.WriteFile(path, []byte("A,B\n1,2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Dataset, 1)
	w, err := NewWatcher(path, false, func(ds *Dataset) { reloaded <- ds })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.csv"), []byte("X\n1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
		t.Error("sibling file write should not trigger a reload")
	case <-time.After(600 * time.Millisecond):
	}

	cancel()
	<-done
}
