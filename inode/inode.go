// Package inode holds the inode table, the per-inode reader/writer lock,
// and the routines that move bytes between callers and an inode's data
// blocks through its direct block pointers.
package inode

import (
	"log"
	"sync"
	"time"

	"github.com/jacobsa/timeutil"

	"rsfs/balloc"
	"rsfs/bio"
)

// NoBlock marks an unused block pointer.
const NoBlock = -1

type Inode struct {
	RWLock

	Inum int

	// Direct block pointers into the block pool. Entries at index
	// ceil(length/blksz) and beyond are NoBlock outside of a Writei call.
	Blocks []int

	// Guards length and mtime. Distinct from RWLock so the status report
	// can read sizes whatever mode the file is open in.
	sizeMu sync.Mutex

	// INVARIANT: 0 <= length <= len(Blocks)*blksz
	length int       // GUARDED_BY(sizeMu)
	mtime  time.Time // GUARDED_BY(sizeMu)
}

// Size returns the file length in bytes.
func (ip *Inode) Size() int {
	ip.sizeMu.Lock()
	defer ip.sizeMu.Unlock()
	return ip.length
}

func (ip *Inode) Mtime() time.Time {
	ip.sizeMu.Lock()
	defer ip.sizeMu.Unlock()
	return ip.mtime
}

// Table is the fixed set of inodes plus the bitmap saying which are live.
// It also owns the walk from inode to block pool.
type Table struct {
	inodes []Inode
	bmap   *balloc.Bitmap
	pool   *bio.Pool
	clock  timeutil.Clock
}

// NewTable preallocates ninodes inodes, each with nptrs direct pointers
// into pool.
func NewTable(ninodes int, nptrs int, pool *bio.Pool, clock timeutil.Clock) *Table {
	t := &Table{
		inodes: make([]Inode, ninodes),
		bmap:   balloc.NewBitmap(ninodes),
		pool:   pool,
		clock:  clock,
	}
	for i := range t.inodes {
		ip := &t.inodes[i]
		ip.Inum = i
		ip.Blocks = make([]int, nptrs)
		for j := range ip.Blocks {
			ip.Blocks[j] = NoBlock
		}
	}
	return t
}

// Alloc claims a free inode and stamps its mtime. It returns
// balloc.ErrExhausted when none is left.
func (t *Table) Alloc() (int, error) {
	inum, err := t.bmap.Alloc()
	if err != nil {
		return -1, err
	}
	ip := &t.inodes[inum]
	ip.sizeMu.Lock()
	ip.mtime = t.clock.Now()
	ip.sizeMu.Unlock()
	return inum, nil
}

// Free returns inum to the table. The caller must have released its data
// blocks with Release first. The inode's lock is left as it is: a
// descriptor still open on the old file unlocks it on close.
func (t *Table) Free(inum int) {
	ip := t.Get(inum)
	for _, bn := range ip.Blocks {
		if bn != NoBlock {
			log.Panicf("inode: freeing inode %d with live block %d", inum, bn)
		}
	}

	ip.sizeMu.Lock()
	ip.length = 0
	ip.mtime = time.Time{}
	ip.sizeMu.Unlock()

	t.bmap.Relse(inum)
}

// Release frees every data block of inum and sets its length to zero.
func (t *Table) Release(inum int) {
	ip := t.Get(inum)
	ip.sizeMu.Lock()
	ip.length = 0
	ip.sizeMu.Unlock()
	t.trim(ip, 0)
}

// Get returns the inode with number inum, live or not.
func (t *Table) Get(inum int) *Inode {
	if inum < 0 || inum >= len(t.inodes) {
		log.Panicf("inode: inode number %d out of range", inum)
	}
	return &t.inodes[inum]
}

func (t *Table) Len() int {
	return len(t.inodes)
}

// Used is the number of live inodes.
func (t *Table) Used() int {
	return t.bmap.Used()
}

// MaxSize is the largest length any inode can reach.
func (t *Table) MaxSize() int {
	if len(t.inodes) == 0 {
		return 0
	}
	return len(t.inodes[0].Blocks) * t.pool.BlockSize()
}
