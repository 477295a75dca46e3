package inode

import (
	"errors"
)

// ErrTooBig is returned by Writei when the write reaches the last direct
// block pointer before all bytes were placed.
var ErrTooBig = errors.New("inode: file would exceed direct block capacity")

func imin(a int, b int) int {
	if a < b {
		return a
	}
	return b
}

// Reads up to len(p) bytes from offset off of inode inum.
// Stops at end of file; returns the count copied, 0 at EOF.
// The caller holds the inode's lock in either mode.
func (t *Table) Readi(inum int, off int, p []byte) int {
	ip := t.Get(inum)
	blksz := t.pool.BlockSize()
	length := ip.Size()

	n := 0
	for n < len(p) && off < length {
		bn := off / blksz
		bo := off % blksz

		cnt := imin(blksz-bo, len(p)-n)
		cnt = imin(cnt, length-off)

		blk := t.pool.Bget(ip.Blocks[bn])
		copy(p[n:n+cnt], blk[bo:bo+cnt])

		off += cnt
		n += cnt
	}
	return n
}

// Writes p at offset off of inode inum, allocating blocks as the write
// walks into pointers that are still NoBlock.
//
// A short write is not a failure of the call: the count says how far it
// got, and err says why it stopped (balloc.ErrExhausted or ErrTooBig).
// The length grows to cover whatever was written.
// The caller holds the inode's lock for writing.
func (t *Table) Writei(inum int, off int, p []byte) (int, error) {
	ip := t.Get(inum)
	blksz := t.pool.BlockSize()

	var err error
	n := 0
	for n < len(p) {
		bn := off / blksz
		bo := off % blksz

		if bn >= len(ip.Blocks) {
			err = ErrTooBig
			break
		}
		if ip.Blocks[bn] == NoBlock {
			nr, aerr := t.pool.Balloc()
			if aerr != nil {
				err = aerr
				break
			}
			ip.Blocks[bn] = nr
		}

		cnt := imin(blksz-bo, len(p)-n)
		blk := t.pool.Bget(ip.Blocks[bn])
		copy(blk[bo:bo+cnt], p[n:n+cnt])

		off += cnt
		n += cnt
	}

	ip.sizeMu.Lock()
	if off > ip.length {
		ip.length = off
	}
	if n > 0 {
		ip.mtime = t.clock.Now()
	}
	ip.sizeMu.Unlock()

	return n, err
}

// Removes up to size bytes at offset off of inode inum by shifting the
// rest of the file left over them, then frees blocks past the new end.
// Source and destination cursors advance independently since the cut
// rarely lines up with block boundaries.
// Returns the number of bytes removed, min(size, length-off).
// The caller holds the inode's lock for writing.
func (t *Table) Cuti(inum int, off int, size int) int {
	ip := t.Get(inum)
	blksz := t.pool.BlockSize()
	length := ip.Size()

	cut := imin(size, length-off)
	if cut <= 0 {
		return 0
	}

	src := off + cut
	dst := off
	for move := length - src; move > 0; {
		sbn, sbo := src/blksz, src%blksz
		dbn, dbo := dst/blksz, dst%blksz

		cnt := imin(move, imin(blksz-sbo, blksz-dbo))
		sblk := t.pool.Bget(ip.Blocks[sbn])
		dblk := t.pool.Bget(ip.Blocks[dbn])
		copy(dblk[dbo:dbo+cnt], sblk[sbo:sbo+cnt])

		src += cnt
		dst += cnt
		move -= cnt
	}

	nlength := length - cut
	ip.sizeMu.Lock()
	ip.length = nlength
	ip.mtime = t.clock.Now()
	ip.sizeMu.Unlock()

	// Zero the dead tail of the new last block, then drop whole blocks
	if bo := nlength % blksz; bo != 0 {
		blk := t.pool.Bget(ip.Blocks[nlength/blksz])
		for i := bo; i < blksz; i++ {
			blk[i] = 0
		}
	}
	t.trim(ip, (nlength+blksz-1)/blksz)
	return cut
}

// Frees every block pointer at index keep and beyond.
func (t *Table) trim(ip *Inode, keep int) {
	for i := keep; i < len(ip.Blocks); i++ {
		if ip.Blocks[i] != NoBlock {
			t.pool.Bfree(ip.Blocks[i])
			ip.Blocks[i] = NoBlock
		}
	}
}
