// Package fs puts the block pool, inode table, directory and open-file
// table together into one file system with a descriptor-based API.
package fs

import (
	"fmt"
	"log"
	"sync"

	"github.com/jacobsa/timeutil"
	"go.uber.org/atomic"

	"rsfs/balloc"
	"rsfs/bio"
	"rsfs/dir"
	"rsfs/inode"
)

type Filesystem struct {
	cfg   Config
	log   *log.Logger
	clock timeutil.Clock

	blocks *bio.Pool
	inodes *inode.Table
	root   *dir.Directory
	oft    *openFileTable

	// Makes lookup-then-change on the namespace atomic for Create,
	// Delete and Open.
	nsMu sync.Mutex

	// Held for the whole of a status report.
	statMu sync.Mutex

	unmounted atomic.Bool
}

// Mount builds an empty file system with cfg's geometry. Every pool is
// allocated here; nothing grows later.
func Mount(cfg Config) (*Filesystem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}

	f := &Filesystem{
		cfg:   cfg,
		log:   cfg.logger(),
		clock: cfg.clock(),
		root:  dir.New(),
		oft:   newOpenFileTable(cfg.NumOpenFiles),
	}
	f.blocks = bio.NewPool(cfg.NumDataBlocks, cfg.BlockSize)
	f.inodes = inode.NewTable(cfg.NumInodes, cfg.NumPointers, f.blocks, f.clock)

	f.log.Printf("[mount] %d blocks of %d bytes, %d inodes of %d pointers, %d descriptors",
		cfg.NumDataBlocks, cfg.BlockSize, cfg.NumInodes, cfg.NumPointers, cfg.NumOpenFiles)
	return f, nil
}

// Unmount shuts the file system down. It refuses while any descriptor is
// open; afterwards every operation fails with ErrNotPermitted.
func (f *Filesystem) Unmount() error {
	f.nsMu.Lock()
	defer f.nsMu.Unlock()

	if n := f.oft.open(); n > 0 {
		f.log.Printf("[unmount] %d descriptors still open", n)
		return ErrNotPermitted
	}
	if !f.unmounted.CompareAndSwap(false, true) {
		return ErrNotPermitted
	}
	f.log.Printf("[unmount] done")
	return nil
}

func (f *Filesystem) live() error {
	if f.unmounted.Load() {
		return ErrNotPermitted
	}
	return nil
}

func (f *Filesystem) Config() Config {
	return f.cfg
}

// Create makes an empty file called name. The inode is claimed before the
// entry is linked, so a failed Create leaves nothing behind.
func (f *Filesystem) Create(name string) error {
	if err := f.live(); err != nil {
		return err
	}
	if name == "" || len(name) > f.cfg.MaxNameLen {
		return ErrInvalidArgument
	}

	f.nsMu.Lock()
	defer f.nsMu.Unlock()

	if _, ok := f.root.Lookup(name); ok {
		f.log.Printf("[create] file %q already exists", name)
		return ErrAlreadyExists
	}

	inum, err := f.inodes.Alloc()
	if err == balloc.ErrExhausted {
		f.log.Printf("[create] no free inode for %q", name)
		return ErrResourceExhausted
	} else if err != nil {
		return err
	}

	f.root.Insert(name, inum)
	f.log.Printf("[create] %q -> inode %d", name, inum)
	return nil
}

func lockInode(ip *inode.Inode, mode Mode) {
	if mode == ReadWrite {
		ip.Lock()
	} else {
		ip.RLock()
	}
}

func unlockInode(ip *inode.Inode, mode Mode) {
	if mode == ReadWrite {
		ip.Unlock()
	} else {
		ip.RUnlock()
	}
}

// Open returns a descriptor on name. ReadOnly waits out any writer;
// ReadWrite waits until nobody else has the file open at all.
func (f *Filesystem) Open(name string, mode Mode) (int, error) {
	if err := f.live(); err != nil {
		return -1, err
	}
	if mode != ReadOnly && mode != ReadWrite {
		return -1, ErrInvalidArgument
	}

	f.nsMu.Lock()
	de, ok := f.root.Lookup(name)
	f.nsMu.Unlock()
	if !ok {
		return -1, ErrNotFound
	}

	// May block, so not under nsMu
	ip := f.inodes.Get(de.Inum)
	lockInode(ip, mode)

	// The file, or the file system, may have gone while we waited. Checked
	// and claimed under nsMu so Delete and Unmount see the descriptor.
	f.nsMu.Lock()
	defer f.nsMu.Unlock()
	if de.Removed() {
		unlockInode(ip, mode)
		return -1, ErrNotFound
	}
	if err := f.live(); err != nil {
		unlockInode(ip, mode)
		return -1, err
	}

	fd, err := f.oft.alloc(mode, de)
	if err != nil {
		f.log.Printf("[open] no free descriptor for %q", name)
		unlockInode(ip, mode)
		return -1, err
	}
	return fd, nil
}

// Close releases the inode lock the descriptor holds, then frees it.
func (f *Filesystem) Close(fd int) error {
	if err := f.live(); err != nil {
		return err
	}

	of, err := f.oft.get(fd)
	if err != nil {
		return err
	}
	defer of.mu.Unlock()

	unlockInode(f.inodes.Get(of.entry.Inum), of.mode)
	f.oft.free(of)
	return nil
}

// Delete frees name's blocks and inode and unlinks it. Descriptors still
// open on the file keep their slot and see ErrNotFound from then on; only
// Close works on them. An operation already running on such a descriptor
// finishes before anything is freed.
func (f *Filesystem) Delete(name string) error {
	if err := f.live(); err != nil {
		return err
	}

	f.nsMu.Lock()
	defer f.nsMu.Unlock()

	de, ok := f.root.Lookup(name)
	if !ok {
		return ErrNotFound
	}

	// Lock order: nsMu, oft.mu, slot mu
	held := f.oft.lockEntry(de)
	f.root.Remove(name)
	f.inodes.Release(de.Inum)
	f.inodes.Free(de.Inum)
	f.oft.unlockEntry(held)

	f.log.Printf("[delete] %q, inode %d", name, de.Inum)
	return nil
}
