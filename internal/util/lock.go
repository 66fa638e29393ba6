package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// AcquireRunLock takes a coarse, run-scoped lock on the metadata store by
// creating an exclusive lock file next to the database. The lock is held
// for the whole generation run so no analyzer or concurrent run mutates
// the store while a snapshot is in use. The returned release function
// must be called unconditionally (completion, degradation, or failure).
func AcquireRunLock(dbPath string) (func(), error) {
	lockPath := dbPath + ".lock"

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			if pid, ok := lockHolder(lockPath); ok && !processAlive(pid) {
				WarnLog("Removing stale lock held by dead process %d", pid)
				os.Remove(lockPath)
				return AcquireRunLock(dbPath)
			}
			return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}

	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()

	release := func() {
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			WarnLog("Failed to remove lock file %s: %v", lockPath, err)
		}
	}
	return release, nil
}

// lockHolder reads the pid recorded in a lock file
func lockHolder(lockPath string) (int, bool) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// processAlive checks whether a pid refers to a running process.
// Signal 0 probes existence without delivering anything.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
