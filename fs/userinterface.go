package fs

import (
	"io"
)

// FileSystem is the descriptor-level surface the shell drives.
type FileSystem interface {
	Create(name string) error
	Open(name string, mode Mode) (int, error)
	Read(fd int, p []byte) (int, error)
	Write(fd int, p []byte) (int, error)
	Append(fd int, p []byte) (int, error)
	Seek(fd int, offset int) (int, error)
	Truncate(fd int, size int) (int, error)
	Close(fd int) error
	Delete(name string) error
	Stat() Status
}

var _ FileSystem = (*Filesystem)(nil)

// File wraps one descriptor in the io interfaces.
type File struct {
	fs   *Filesystem
	fd   int
	name string
}

var _ io.ReadWriteCloser = (*File)(nil)

// OpenFile is Open returning a *File.
func (f *Filesystem) OpenFile(name string, mode Mode) (*File, error) {
	fd, err := f.Open(name, mode)
	if err != nil {
		return nil, err
	}
	return &File{
		fs:   f,
		fd:   fd,
		name: name,
	}, nil
}

func (fl *File) Fd() int {
	return fl.fd
}

func (fl *File) Name() string {
	return fl.name
}

// Read returns io.EOF once the cursor reaches the end of the file.
func (fl *File) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := fl.fs.Read(fl.fd, p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write returns io.ErrShortWrite when the file system could not take all
// of p.
func (fl *File) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := fl.fs.Write(fl.fd, p)
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (fl *File) Close() error {
	return fl.fs.Close(fl.fd)
}
