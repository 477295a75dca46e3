// Package dir is the root namespace: a singly linked list of entries in
// creation order, each naming one inode.
package dir

import (
	"fmt"

	"github.com/jacobsa/syncutil"
	"go.uber.org/atomic"
)

type Entry struct {
	Name string
	Inum int

	next    *Entry
	removed atomic.Bool
}

// Removed reports whether the entry has been unlinked. Descriptors keep
// their entry after a delete and use this to notice.
func (e *Entry) Removed() bool {
	return e.removed.Load()
}

type Directory struct {
	mu syncutil.InvariantMutex

	// INVARIANT: walking from head visits n entries and ends at tail
	// INVARIANT: no two entries share a name
	head *Entry // GUARDED_BY(mu)
	tail *Entry // GUARDED_BY(mu)
	n    int    // GUARDED_BY(mu)
}

func New() *Directory {
	d := &Directory{}
	d.mu = syncutil.NewInvariantMutex(d.checkInvariants)
	return d
}

// LOCKS_REQUIRED(d.mu)
func (d *Directory) checkInvariants() {
	seen := make(map[string]bool)
	var last *Entry
	cnt := 0
	for e := d.head; e != nil; e = e.next {
		if seen[e.Name] {
			panic(fmt.Sprintf("dir: duplicate entry %q", e.Name))
		}
		seen[e.Name] = true
		last = e
		cnt++
	}
	if cnt != d.n {
		panic(fmt.Sprintf("dir: counted %d entries, recorded %d", cnt, d.n))
	}
	if last != d.tail {
		panic("dir: tail does not point at the last entry")
	}
}

// LOCKS_REQUIRED(d.mu)
func (d *Directory) find(name string) (prev *Entry, e *Entry) {
	for e = d.head; e != nil; prev, e = e, e.next {
		if e.Name == name {
			return prev, e
		}
	}
	return nil, nil
}

// Lookup scans in creation order for name.
func (d *Directory) Lookup(name string) (*Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, e := d.find(name)
	return e, e != nil
}

// Insert appends a new entry at the tail. The caller must already know
// name is absent; Insert does not check.
func (d *Directory) Insert(name string, inum int) *Entry {
	d.mu.Lock()
	defer d.mu.Unlock()

	e := &Entry{
		Name: name,
		Inum: inum,
	}
	if d.tail == nil {
		d.head = e
	} else {
		d.tail.next = e
	}
	d.tail = e
	d.n++
	return e
}

// Remove unlinks name, keeping the order of the rest. It reports whether
// anything was removed.
func (d *Directory) Remove(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, e := d.find(name)
	if e == nil {
		return false
	}

	if prev == nil {
		d.head = e.next
	} else {
		prev.next = e.next
	}
	if d.tail == e {
		d.tail = prev
	}
	e.next = nil
	e.removed.Store(true)
	d.n--
	return true
}

// Entries returns the live entries in creation order.
func (d *Directory) Entries() []*Entry {
	d.mu.Lock()
	defer d.mu.Unlock()

	l := make([]*Entry, 0, d.n)
	for e := d.head; e != nil; e = e.next {
		l = append(l, e)
	}
	return l
}

func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}
