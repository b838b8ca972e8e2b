package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/mvnoci/mvnoci/pkg/logger"
)

// pathLocks provides per-file read/write locking. In-process coordination
// uses lazily created sync.RWMutex values; cross-process coordination uses
// flock sidecar files under <root>/.locks. Mutexes accumulate for the process
// lifetime, which is acceptable: the key space is bounded by the distinct
// artifact files a build touches.
type pathLocks struct {
	lockDir string

	mu sync.Mutex
	m  map[string]*sync.RWMutex
}

func newPathLocks(root string) *pathLocks {
	return &pathLocks{
		lockDir: filepath.Join(root, ".locks"),
		m:       make(map[string]*sync.RWMutex),
	}
}

func (p *pathLocks) get(path string) *sync.RWMutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.m[path]
	if !ok {
		l = &sync.RWMutex{}
		p.m[path] = l
	}
	return l
}

// read acquires shared locks for path and returns the release function.
func (p *pathLocks) read(path string) func() {
	l := p.get(path)
	l.RLock()

	fl := p.fileLock(path)
	if fl != nil {
		if err := fl.RLock(); err != nil {
			logger.Debugf("skipping cross-process read lock for %s: %v", path, err)
			fl = nil
		}
	}
	return func() {
		if fl != nil {
			if err := fl.Unlock(); err != nil {
				logger.Debugf("failed to release read lock for %s: %v", path, err)
			}
		}
		l.RUnlock()
	}
}

// write acquires exclusive locks for path and returns the release function.
func (p *pathLocks) write(path string) func() {
	l := p.get(path)
	l.Lock()

	fl := p.fileLock(path)
	if fl != nil {
		if err := fl.Lock(); err != nil {
			logger.Debugf("skipping cross-process write lock for %s: %v", path, err)
			fl = nil
		}
	}
	return func() {
		if fl != nil {
			if err := fl.Unlock(); err != nil {
				logger.Debugf("failed to release write lock for %s: %v", path, err)
			}
		}
		l.Unlock()
	}
}

// fileLock builds the flock for a target path. Lock files live in a dedicated
// directory so they never show up next to served artifacts; a failure here
// degrades to in-process locking only.
func (p *pathLocks) fileLock(path string) *flock.Flock {
	if err := os.MkdirAll(p.lockDir, 0o755); err != nil {
		logger.Debugf("failed to create lock directory: %v", err)
		return nil
	}
	sum := sha256.Sum256([]byte(path))
	return flock.New(filepath.Join(p.lockDir, hex.EncodeToString(sum[:8])+".lock"))
}
