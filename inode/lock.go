package inode

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

type State int

const (
	Idle State = iota
	Shared
	Exclusive
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// RWLock is a first-reader/last-reader lock. Only the reader that moves the
// count from 0 to 1 takes rw, and only the one that moves it back to 0
// releases it, so a wave of readers costs one acquisition of rw.
//
// rw may be unlocked by a different goroutine than the one that locked it;
// the last reader out is rarely the first one in.
type RWLock struct {
	rw sync.Mutex // held by the writer, or on behalf of every reader
	rd sync.Mutex // guards readers

	// INVARIANT: readers >= 0
	readers int // GUARDED_BY(rd)

	// Readers that actually hold rw, for State. Written under rd.
	holding atomic.Int64

	// Diagnostic only. Set after rw is held for writing.
	writer atomic.Bool
}

// Lock blocks until no reader and no writer holds the inode.
func (l *RWLock) Lock() {
	l.rw.Lock()
	l.writer.Store(true)
}

func (l *RWLock) Unlock() {
	if !l.writer.CompareAndSwap(true, false) {
		panic("inode: Unlock of inode not locked for writing")
	}
	l.rw.Unlock()
}

// RLock blocks only behind a writer. A second reader arriving while the
// first is still waiting on rw queues behind it on rd.
func (l *RWLock) RLock() {
	l.rd.Lock()
	defer l.rd.Unlock()

	l.readers++
	if l.readers == 1 {
		l.rw.Lock()
	}
	l.holding.Store(int64(l.readers))
}

func (l *RWLock) RUnlock() {
	l.rd.Lock()
	defer l.rd.Unlock()

	if l.readers == 0 {
		panic("inode: RUnlock of inode not locked for reading")
	}
	l.readers--
	l.holding.Store(int64(l.readers))
	if l.readers == 0 {
		l.rw.Unlock()
	}
}

// State reports where the lock sits in its state machine, along with the
// reader count. It never blocks, even while a reader waits on rw holding rd.
// The answer may be stale by the time it is returned.
func (l *RWLock) State() (State, int) {
	n := int(l.holding.Load())
	if n > 0 {
		return Shared, n
	} else if l.writer.Load() {
		return Exclusive, 0
	}
	return Idle, 0
}
