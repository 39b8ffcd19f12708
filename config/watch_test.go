package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatchDebounces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "mode = \"toggle\"\n")

	var calls atomic.Int32
	fired := make(chan struct{}, 10)
	w, err := Watch(path, 100*time.Millisecond, func() {
		calls.Add(1)
		fired <- struct{}{}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	for range 3 {
		writeFile(t, path, "mode = \"hold\"\n")
	}
	writeFile(t, filepath.Join(dir, "other.txt"), "ignored")

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after writes")
	}
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("onChange called %d times, want 1", n)
	}
}

func TestWatchRenameIntoPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	fired := make(chan struct{}, 10)
	w, err := Watch(path, 50*time.Millisecond, func() { fired <- struct{}{} })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := NewStore(path).Write(Defaults()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after rename")
	}
}

func TestWatchClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	w, err := Watch(path, time.Hour, func() { t.Error("onChange after Close") })
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, "x")
	time.Sleep(50 * time.Millisecond)
	if err := w.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	_ = os.Remove(path)
}
