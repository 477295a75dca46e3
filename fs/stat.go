package fs

import (
	"bytes"
	"fmt"
	"io"
	"time"
)

type FileStat struct {
	Name   string
	Length int
	Inum   int
	Mtime  time.Time
}

// Status is a point-in-time report on the file system. It is consistent
// with other reports but not with file operations running alongside.
type Status struct {
	Files []FileStat

	BlocksTotal int
	BlocksUsed  int
	InodesTotal int
	InodesUsed  int
	OpenFiles   int
}

func (s Status) BlocksFree() int {
	return s.BlocksTotal - s.BlocksUsed
}

func (s Status) InodesFree() int {
	return s.InodesTotal - s.InodesUsed
}

// Stat lists every file in directory order together with pool usage.
func (f *Filesystem) Stat() Status {
	f.statMu.Lock()
	defer f.statMu.Unlock()

	s := Status{
		Files:       []FileStat{},
		BlocksTotal: f.blocks.Len(),
		BlocksUsed:  f.blocks.Used(),
		InodesTotal: f.inodes.Len(),
		InodesUsed:  f.inodes.Used(),
		OpenFiles:   f.oft.open(),
	}
	for _, e := range f.root.Entries() {
		ip := f.inodes.Get(e.Inum)
		s.Files = append(s.Files, FileStat{
			Name:   e.Name,
			Length: ip.Size(),
			Inum:   e.Inum,
			Mtime:  ip.Mtime(),
		})
	}
	return s
}

// WriteTo renders the report as a plain-text table.
func (s Status) WriteTo(w io.Writer) (int64, error) {
	var b bytes.Buffer

	fmt.Fprintf(&b, "\nCurrent status of the file system:\n\n %16s%10s%10s  %s\n",
		"File Name", "Length", "iNode #", "Modified")
	for _, st := range s.Files {
		fmt.Fprintf(&b, "%16s%10d%10d  %s\n",
			st.Name, st.Length, st.Inum, st.Mtime.Format(time.RFC3339))
	}

	fmt.Fprintf(&b, "\nTotal Data Blocks: %4d,  Used: %d,  Unused: %d\n",
		s.BlocksTotal, s.BlocksUsed, s.BlocksFree())
	fmt.Fprintf(&b, "Total iNode Blocks: %3d,  Used: %d,  Unused: %d\n",
		s.InodesTotal, s.InodesUsed, s.InodesFree())
	fmt.Fprintf(&b, "Total Opened Files: %3d\n\n", s.OpenFiles)

	n, err := w.Write(b.Bytes())
	return int64(n), err
}
