package fs

// Returns fd's slot with its mutex held, checking that the file behind it
// still exists. The caller unlocks of.mu.
func (f *Filesystem) getOpen(fd int) (*openFile, error) {
	if err := f.live(); err != nil {
		return nil, err
	}

	of, err := f.oft.get(fd)
	if err != nil {
		return nil, err
	}
	if of.entry.Removed() {
		of.mu.Unlock()
		return nil, ErrNotFound
	}
	return of, nil
}

// Read copies up to len(p) bytes from the cursor into p and advances the
// cursor. It returns 0 at end of file.
func (f *Filesystem) Read(fd int, p []byte) (int, error) {
	of, err := f.getOpen(fd)
	if err != nil {
		return 0, err
	}
	defer of.mu.Unlock()

	if len(p) == 0 {
		return 0, ErrInvalidArgument
	}

	n := f.inodes.Readi(of.entry.Inum, of.pos, p)
	of.pos += n
	return n, nil
}

// Write stores p at the cursor and advances it. A short count means the
// block pool ran dry or the file hit its direct-pointer capacity; that is
// not an error.
func (f *Filesystem) Write(fd int, p []byte) (int, error) {
	return f.write("write", fd, p)
}

// Append is Write, for growing a file whose cursor sits at its end.
func (f *Filesystem) Append(fd int, p []byte) (int, error) {
	return f.write("append", fd, p)
}

func (f *Filesystem) write(op string, fd int, p []byte) (int, error) {
	of, err := f.getOpen(fd)
	if err != nil {
		return 0, err
	}
	defer of.mu.Unlock()

	if len(p) == 0 {
		return 0, ErrInvalidArgument
	}
	if of.mode != ReadWrite {
		return 0, ErrNotPermitted
	}

	n, err := f.inodes.Writei(of.entry.Inum, of.pos, p)
	if err != nil {
		f.log.Printf("[%s] %q: stopped after %d of %d bytes: %v", op, of.entry.Name, n, len(p), err)
	}
	of.pos += n
	return n, nil
}

// Seek moves the cursor to offset if it lies within [0, length] and returns
// the resulting cursor. An out-of-range offset leaves the cursor where it
// was and returns that.
func (f *Filesystem) Seek(fd int, offset int) (int, error) {
	of, err := f.getOpen(fd)
	if err != nil {
		return -1, err
	}
	defer of.mu.Unlock()

	if offset < 0 || offset > f.inodes.Get(of.entry.Inum).Size() {
		return of.pos, nil
	}
	of.pos = offset
	return offset, nil
}

// Truncate removes up to size bytes at the cursor, closing the gap, and
// returns how many went. The cursor does not move.
func (f *Filesystem) Truncate(fd int, size int) (int, error) {
	of, err := f.getOpen(fd)
	if err != nil {
		return 0, err
	}
	defer of.mu.Unlock()

	if size <= 0 {
		return 0, ErrInvalidArgument
	}
	if of.mode != ReadWrite {
		return 0, ErrNotPermitted
	}

	return f.inodes.Cuti(of.entry.Inum, of.pos, size), nil
}

// Tell returns the cursor of fd.
func (f *Filesystem) Tell(fd int) (int, error) {
	of, err := f.getOpen(fd)
	if err != nil {
		return -1, err
	}
	defer of.mu.Unlock()
	return of.pos, nil
}
