// Package balloc hands out slot numbers from a fixed-size bitmap. The block
// pool and the inode table each own one, with independent locking.
package balloc

import (
	"errors"
	"fmt"
	"log"

	"github.com/jacobsa/syncutil"
)

// ErrExhausted is returned by Alloc when every slot is in use.
var ErrExhausted = errors.New("balloc: no free slots")

type Bitmap struct {
	mu syncutil.InvariantMutex

	// INVARIANT: used == bits.count()
	// INVARIANT: 0 <= used <= len(bits)
	bits bitmap // GUARDED_BY(mu)
	used int    // GUARDED_BY(mu)
}

func NewBitmap(n int) *Bitmap {
	b := &Bitmap{
		bits: make(bitmap, n),
	}
	b.mu = syncutil.NewInvariantMutex(b.checkInvariants)
	return b
}

// LOCKS_REQUIRED(b.mu)
func (b *Bitmap) checkInvariants() {
	if n := b.bits.count(); n != b.used {
		panic(fmt.Sprintf("balloc: used counter %d, %d bits set", b.used, n))
	}
	if b.used < 0 || b.used > len(b.bits) {
		panic(fmt.Sprintf("balloc: used counter %d out of range", b.used))
	}
}

// Alloc claims the first clear slot. The scan and the set happen under one
// critical section.
func (b *Bitmap) Alloc() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, bit := range b.bits {
		if bit == 0x0 {
			setBit(b.bits, i)
			b.used++
			return i, nil
		}
	}
	return -1, ErrExhausted
}

// Relse returns nr to the pool. Releasing a free slot is a caller bug.
func (b *Bitmap) Relse(nr int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if nr < 0 || nr >= len(b.bits) {
		log.Panicf("balloc: illegal slot %d to relse", nr)
	}
	if !b.bits.isSet(nr) {
		log.Panicf("balloc: double free of slot %d", nr)
	}
	clearBit(b.bits, nr)
	b.used--
}

func (b *Bitmap) IsSet(nr int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bits.isSet(nr)
}

// Used reports how many slots are allocated.
func (b *Bitmap) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

func (b *Bitmap) Len() int {
	return len(b.bits)
}
