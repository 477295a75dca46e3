package fs

import (
	"sync"

	"go.uber.org/atomic"

	"rsfs/dir"
)

// Mode is the access a descriptor was opened with.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "ro"
	case ReadWrite:
		return "rw"
	}
	return "invalid"
}

// One slot of the open-file table. Its index is the descriptor.
//
// Every descriptor operation holds mu for its whole run, so two goroutines
// sharing a descriptor are serialized against each other.
type openFile struct {
	mu sync.Mutex

	used  bool       // GUARDED_BY(mu)
	mode  Mode       // GUARDED_BY(mu)
	pos   int        // GUARDED_BY(mu)
	entry *dir.Entry // GUARDED_BY(mu)
}

type openFileTable struct {
	// Serializes allocators. Lock order: mu, then a slot's mu.
	mu    sync.Mutex
	files []openFile

	nopen atomic.Int64
}

func newOpenFileTable(n int) *openFileTable {
	return &openFileTable{
		files: make([]openFile, n),
	}
}

// Claims any unused slot for entry with the cursor at 0.
func (t *openFileTable) alloc(mode Mode, entry *dir.Entry) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for fd := range t.files {
		of := &t.files[fd]
		of.mu.Lock()
		if !of.used {
			of.used = true
			of.mode = mode
			of.pos = 0
			of.entry = entry
			of.mu.Unlock()
			t.nopen.Inc()
			return fd, nil
		}
		of.mu.Unlock()
	}
	return -1, ErrResourceExhausted
}

// Returns the live slot for fd with its mutex held.
func (t *openFileTable) get(fd int) (*openFile, error) {
	if fd < 0 || fd >= len(t.files) {
		return nil, ErrInvalidArgument
	}

	of := &t.files[fd]
	of.mu.Lock()
	if !of.used {
		of.mu.Unlock()
		return nil, ErrNotFound
	}
	return of, nil
}

// LOCKS_REQUIRED(of.mu)
func (t *openFileTable) free(of *openFile) {
	of.used = false
	of.entry = nil
	of.pos = 0
	t.nopen.Dec()
}

// Locks every live slot open on entry and returns them with their mutexes
// held, along with t.mu. Undo with unlockEntry.
func (t *openFileTable) lockEntry(entry *dir.Entry) []*openFile {
	t.mu.Lock()

	var held []*openFile
	for fd := range t.files {
		of := &t.files[fd]
		of.mu.Lock()
		if of.used && of.entry == entry {
			held = append(held, of)
			continue
		}
		of.mu.Unlock()
	}
	return held
}

func (t *openFileTable) unlockEntry(held []*openFile) {
	for _, of := range held {
		of.mu.Unlock()
	}
	t.mu.Unlock()
}

// Number of descriptors in use.
func (t *openFileTable) open() int {
	return int(t.nopen.Load())
}
