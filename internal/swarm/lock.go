package swarm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/pimesh/messenger/internal/liveness"
	"github.com/pimesh/messenger/internal/resultkind"
)

const (
	lockRetries    = 50
	lockRetryDelay = 100 * time.Millisecond
	lockStaleAfter = 10 * time.Second
)

// acquireLock takes the exclusive swarm.lock guarding claims.json and
// completions.json. flock.Flock provides OS-level exclusion so a
// crashed holder always loses its lock when the kernel reclaims the
// fd; the content written into the file (pid, timestamp) additionally
// lets a contending process detect and clear a lock abandoned across a
// reboot or left by a process the kernel hasn't reaped yet (§4.5: "the
// lock is stale if its mtime is older than 10s and the PID it contains
// is dead").
func acquireLock(path string) (*flock.Flock, error) {
	fl := flock.New(path)

	for attempt := 0; attempt < lockRetries; attempt++ {
		ok, err := fl.TryLock()
		if err == nil && ok {
			if werr := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); werr != nil {
				_ = fl.Unlock()
				return nil, resultkind.New(resultkind.LockFailed, werr.Error())
			}
			return fl, nil
		}

		if isStale(path) {
			_ = fl.Unlock()
			_ = os.Remove(path)
			continue
		}

		time.Sleep(lockRetryDelay)
	}
	return nil, resultkind.New(resultkind.LockFailed, "could not acquire swarm lock after "+strconv.Itoa(lockRetries)+" attempts")
}

func isStale(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) < lockStaleAfter {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return true // unreadable content alongside an old mtime: force it open
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return true
	}
	return !liveness.IsAlive(pid)
}

// releaseLock unlocks but leaves the file in place: unlinking it would
// let a waiter holding the old inode and a newcomer creating a fresh
// file both acquire the lock.
func releaseLock(fl *flock.Flock, path string) {
	_ = fl.Unlock()
}
