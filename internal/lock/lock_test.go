package lock

import (
	"os"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	if err := l.Acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := os.Stat(l.Path()); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Fatalf("lock file should be removed after release, stat err=%v", err)
	}
}

func TestSecondHolderIsRejected(t *testing.T) {
	dir := t.TempDir()
	first := New(dir)
	second := New(dir)

	if err := first.Acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer func() { _ = first.Release() }()

	if err := second.Acquire(); err == nil {
		_ = second.Release()
		t.Fatal("second acquire should fail while the first holds the lock")
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := second.Acquire(); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if err := second.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
}

func TestDifferentDirectoriesDoNotCollide(t *testing.T) {
	a := New(t.TempDir())
	b := New(t.TempDir())
	if a.Path() == b.Path() {
		t.Fatal("distinct working directories must map to distinct lock files")
	}
	if err := a.Acquire(); err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer func() { _ = a.Release() }()
	if err := b.Acquire(); err != nil {
		t.Fatalf("acquire b: %v", err)
	}
	if err := b.Release(); err != nil {
		t.Fatalf("release b: %v", err)
	}
}

func TestReleaseWithoutAcquireIsSafe(t *testing.T) {
	l := New(t.TempDir())
	if err := l.Release(); err != nil {
		t.Fatalf("release without acquire: %v", err)
	}
}
