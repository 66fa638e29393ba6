package util

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireRunLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "library.db")

	release, err := AcquireRunLock(dbPath)
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	// Second acquisition while held must fail with ErrLocked
	if _, err := AcquireRunLock(dbPath); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked on double acquire, got %v", err)
	}

	release()
	if _, err := os.Stat(dbPath + ".lock"); !os.IsNotExist(err) {
		t.Error("lock file survived release")
	}

	// Reacquire after release
	release, err = AcquireRunLock(dbPath)
	if err != nil {
		t.Fatalf("failed to reacquire lock: %v", err)
	}
	release()
}

func TestAcquireRunLockStealsStaleLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "library.db")
	lockPath := dbPath + ".lock"

	// A lock left behind by a pid that cannot exist anymore
	if err := os.WriteFile(lockPath, []byte("999999999\n"), 0644); err != nil {
		t.Fatalf("failed to plant stale lock: %v", err)
	}

	release, err := AcquireRunLock(dbPath)
	if err != nil {
		t.Fatalf("expected stale lock takeover, got %v", err)
	}
	release()
}

func TestAcquireRunLockKeepsUnreadableLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "library.db")
	lockPath := dbPath + ".lock"

	// No pid recorded: assume the holder is alive rather than steal
	if err := os.WriteFile(lockPath, []byte("not-a-pid\n"), 0644); err != nil {
		t.Fatalf("failed to plant lock: %v", err)
	}

	if _, err := AcquireRunLock(dbPath); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked on unreadable lock, got %v", err)
	}
}
