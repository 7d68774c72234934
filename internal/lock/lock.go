// Package lock provides a file-based mutual exclusion lock guarding one
// active sync process per working directory. The one-shot entrypoint relies
// on external oneshot scheduling for serialization; the daemon has no such
// guarantee and takes this lock instead.
package lock

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

// Locker prevents concurrent sync processes against one working directory.
type Locker struct {
	lockFile string
	lockFd   *os.File
	acquired bool
}

// New creates a Locker for the given working directory. The lock file lives
// in the system temp directory, keyed by a hash of the absolute path so two
// daemons on different directories never collide.
func New(workDir string) *Locker {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		abs = workDir
	}
	dirHash := fmt.Sprintf("%x", sha256.Sum256([]byte(abs)))[:16]
	return &Locker{
		lockFile: filepath.Join(os.TempDir(), fmt.Sprintf("robosync-%s.lock", dirHash)),
	}
}

// Acquire takes the lock without blocking. It fails when another live
// process holds it; a stale lock file left by a dead process is taken over,
// because flock releases automatically on process exit.
func (l *Locker) Acquire() error {
	fd, err := os.OpenFile(l.lockFile, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file %s: %w", l.lockFile, err)
	}
	if err := syscall.Flock(int(fd.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		pid := readPid(fd)
		_ = fd.Close()
		if pid > 0 {
			return fmt.Errorf("another sync process (pid %d) holds the lock %s", pid, l.lockFile)
		}
		return fmt.Errorf("another sync process holds the lock %s", l.lockFile)
	}

	if err := fd.Truncate(0); err == nil {
		_, _ = fd.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
	}
	l.lockFd = fd
	l.acquired = true
	return nil
}

// Release drops the lock and removes the lock file. Safe to call when the
// lock was never acquired.
func (l *Locker) Release() error {
	if !l.acquired || l.lockFd == nil {
		return nil
	}
	unlockErr := syscall.Flock(int(l.lockFd.Fd()), syscall.LOCK_UN)
	closeErr := l.lockFd.Close()
	_ = os.Remove(l.lockFile)
	l.lockFd = nil
	l.acquired = false
	if unlockErr != nil {
		return fmt.Errorf("unlock %s: %w", l.lockFile, unlockErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close lock file: %w", closeErr)
	}
	return nil
}

// Path returns the lock file location, for log output.
func (l *Locker) Path() string { return l.lockFile }

func readPid(fd *os.File) int {
	buf := make([]byte, 32)
	n, err := fd.ReadAt(buf, 0)
	if n == 0 && err != nil {
		return 0
	}
	pid, err := strconv.Atoi(string(buf[:n]))
	if err != nil {
		return 0
	}
	return pid
}
