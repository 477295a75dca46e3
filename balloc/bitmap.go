package balloc

// One byte per slot, 0x1 when in use.
type bitmap []byte

func setBit(b bitmap, nr int) {
	b[nr] = 0x1
}

func clearBit(b bitmap, nr int) {
	b[nr] = 0x0
}

func (b bitmap) isSet(nr int) bool {
	return b[nr] != 0x0
}

func (b bitmap) count() int {
	n := 0
	for _, bit := range b {
		if bit != 0x0 {
			n++
		}
	}
	return n
}
