// Package bio is the data block pool: a fixed array of equal-size byte
// buffers plus the bitmap that says which of them belong to some inode.
package bio

import (
	"log"

	"rsfs/balloc"
)

type Pool struct {
	blksz  int
	blocks [][]byte
	bmap   *balloc.Bitmap
}

// NewPool preallocates nblocks buffers of blksz bytes each.
func NewPool(nblocks int, blksz int) *Pool {
	p := &Pool{
		blksz:  blksz,
		blocks: make([][]byte, nblocks),
		bmap:   balloc.NewBitmap(nblocks),
	}

	// One backing array, sliced per block
	backing := make([]byte, nblocks*blksz)
	for i := range p.blocks {
		p.blocks[i] = backing[i*blksz : (i+1)*blksz : (i+1)*blksz]
	}
	return p
}

// Balloc claims a free block. It returns balloc.ErrExhausted when the pool
// is full; callers stop the transfer there.
func (p *Pool) Balloc() (int, error) {
	return p.bmap.Alloc()
}

// Bfree zeroes block nr and returns it to the pool.
func (p *Pool) Bfree(nr int) {
	if nr < 0 || nr >= len(p.blocks) {
		log.Panicf("bio: illegal block %d to free", nr)
	}
	blk := p.blocks[nr]
	for i := range blk {
		blk[i] = 0
	}
	p.bmap.Relse(nr)
}

// Bget returns the buffer backing block nr. The buffer is shared; whoever
// holds the owning inode's lock may read or write it.
func (p *Pool) Bget(nr int) []byte {
	return p.blocks[nr]
}

func (p *Pool) BlockSize() int {
	return p.blksz
}

// Len is the total number of blocks in the pool.
func (p *Pool) Len() int {
	return len(p.blocks)
}

// Used is the number of allocated blocks.
func (p *Pool) Used() int {
	return p.bmap.Used()
}

func (p *Pool) InUse(nr int) bool {
	return p.bmap.IsSet(nr)
}
