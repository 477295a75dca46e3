package fs

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"

	"rsfs/inode"
)

// Tests the file system api:
//	-> Mount, Unmount, Create, Open, Close, Delete
//	-> Read, Write, Append, Seek, Truncate, Stat

// Partitions:
//	-> Create
//		-> new name, existing name (=FAIL), bad name (=FAIL), no inode (=FAIL)
//	-> Open
//		-> present, absent (=FAIL), bad mode (=FAIL), no descriptor (=FAIL)
//	-> descriptors
//		-> out of range (=FAIL), unused (=FAIL), read-only for writes (=FAIL)
//	-> Write/Append
//		-> fits, past pointer capacity (=SHORT), pool dry (=SHORT)
//	-> Seek
//		-> 0 <= off <= len, off < 0, off > len
//	-> Truncate
//		-> within file, past end
//	-> Delete
//		-> closed file, open file, absent (=FAIL)

var epoch = time.Date(2021, 6, 7, 8, 9, 10, 0, time.UTC)

func init() {
	syncutil.EnableInvariantChecking()
}

func testConfig() Config {
	clock := &timeutil.SimulatedClock{}
	clock.SetTime(epoch)

	c := DefaultConfig()
	c.BlockSize = 4
	c.NumDataBlocks = 32
	c.NumInodes = 4
	c.NumPointers = 8
	c.NumOpenFiles = 4
	c.Clock = clock
	return c
}

func initUut(tt *testing.T, cfg Config) *Filesystem {
	tt.Helper()
	f, err := Mount(cfg)
	if err != nil {
		tt.Fatalf("mount failed: %v", err)
	}
	return f
}

func mustCreateOpen(tt *testing.T, f *Filesystem, name string, mode Mode) int {
	tt.Helper()
	if err := f.Create(name); err != nil {
		tt.Fatalf("create %q failed: %v", name, err)
	}
	fd, err := f.Open(name, mode)
	if err != nil {
		tt.Fatalf("open %q failed: %v", name, err)
	}
	return fd
}

func readFrom(tt *testing.T, f *Filesystem, fd int, off int) string {
	tt.Helper()
	if pos, _ := f.Seek(fd, off); pos != off {
		tt.Fatalf("seek to %d landed at %d", off, pos)
	}
	p := make([]byte, 1024)
	n, err := f.Read(fd, p)
	if err != nil {
		tt.Fatalf("read failed: %v", err)
	}
	return string(p[:n])
}

func TestMountRejectsBadConfig(tt *testing.T) {
	cfg := testConfig()
	cfg.NumInodes = 0
	if _, err := Mount(cfg); !errors.Is(err, ErrInvalidArgument) {
		tt.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	cfg = testConfig()
	cfg.BlockSize = -4
	if _, err := Mount(cfg); !errors.Is(err, ErrInvalidArgument) {
		tt.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestErrorCodes(tt *testing.T) {
	got := []int{
		ErrNotFound.Code(),
		ErrAlreadyExists.Code(),
		ErrInvalidArgument.Code(),
		ErrResourceExhausted.Code(),
		ErrNotPermitted.Code(),
	}
	if diff := cmp.Diff([]int{-1, -2, -3, -4, -5}, got); diff != "" {
		tt.Errorf("codes (-want +got):\n%s", diff)
	}
}

func TestHelloRoundTrip(tt *testing.T) {
	f := initUut(tt, testConfig())
	fd := mustCreateOpen(tt, f, "a", ReadWrite)

	if n, err := f.Write(fd, []byte("hello")); n != 5 || err != nil {
		tt.Errorf("write: got %d, %v/wanted 5, nil", n, err)
	}
	if pos, err := f.Seek(fd, 0); pos != 0 || err != nil {
		tt.Errorf("seek: got %d, %v/wanted 0, nil", pos, err)
	}

	buf := make([]byte, 5)
	if n, err := f.Read(fd, buf); n != 5 || err != nil {
		tt.Errorf("read: got %d, %v/wanted 5, nil", n, err)
	}
	if string(buf) != "hello" {
		tt.Errorf("read %q vs. expected %q", buf, "hello")
	}

	if err := f.Close(fd); err != nil {
		tt.Errorf("close failed: %v", err)
	}
	if err := f.Delete("a"); err != nil {
		tt.Errorf("delete failed: %v", err)
	}
	if _, err := f.Open("a", ReadOnly); err != ErrNotFound {
		tt.Errorf("open after delete: got %v/wanted ErrNotFound", err)
	}
}

func TestTruncateAcrossBlocks(tt *testing.T) {
	f := initUut(tt, testConfig())
	fd := mustCreateOpen(tt, f, "b", ReadWrite)

	if n, _ := f.Write(fd, []byte("0123456789")); n != 10 {
		tt.Fatalf("wrote %d bytes", n)
	}
	if f.Stat().BlocksUsed != 3 {
		tt.Errorf("10 bytes should span 3 blocks, used %d", f.Stat().BlocksUsed)
	}

	f.Seek(fd, 2)
	if n, err := f.Truncate(fd, 5); n != 5 || err != nil {
		tt.Errorf("truncate: got %d, %v/wanted 5, nil", n, err)
	}
	if got := readFrom(tt, f, fd, 0); got != "01789" {
		tt.Errorf("read %q vs. expected %q", got, "01789")
	}
	if l := f.Stat().Files[0].Length; l != 5 {
		tt.Errorf("length: got %d/wanted 5", l)
	}
	if f.Stat().BlocksUsed != 2 {
		tt.Errorf("trailing block not freed, used %d", f.Stat().BlocksUsed)
	}

	f.Seek(fd, 3)
	if n, _ := f.Truncate(fd, 100); n != 2 {
		tt.Errorf("truncate past end removed %d bytes, wanted 2", n)
	}
	if got := readFrom(tt, f, fd, 0); got != "017" {
		tt.Errorf("read %q vs. expected %q", got, "017")
	}
}

// Covers:
//	-> create/new
//	-> create/existing
//	-> create/badname
//	-> create/noinode
func TestCreateErrors(tt *testing.T) {
	f := initUut(tt, testConfig())

	if err := f.Create("x"); err != nil {
		tt.Fatalf("create failed: %v", err)
	}
	if err := f.Create("x"); err != ErrAlreadyExists {
		tt.Errorf("got %v/wanted ErrAlreadyExists", err)
	}
	if err := f.Create(""); err != ErrInvalidArgument {
		tt.Errorf("empty name: got %v/wanted ErrInvalidArgument", err)
	}
	if err := f.Create(strings.Repeat("n", 33)); err != ErrInvalidArgument {
		tt.Errorf("long name: got %v/wanted ErrInvalidArgument", err)
	}

	for _, n := range []string{"y", "z", "w"} {
		if err := f.Create(n); err != nil {
			tt.Fatalf("create %q failed: %v", n, err)
		}
	}
	if err := f.Create("v"); err != ErrResourceExhausted {
		tt.Errorf("got %v/wanted ErrResourceExhausted", err)
	}
	if _, err := f.Open("v", ReadOnly); err != ErrNotFound {
		tt.Errorf("failed create left an entry behind: %v", err)
	}
	if len(f.Stat().Files) != 4 {
		tt.Errorf("expected 4 files, got %v", f.Stat().Files)
	}

	f.Delete("y")
	if err := f.Create("v"); err != nil {
		tt.Errorf("create after delete failed: %v", err)
	}
}

// Covers:
//	-> open/absent
//	-> open/badmode
//	-> open/nodescriptor
func TestOpenErrors(tt *testing.T) {
	cfg := testConfig()
	cfg.NumOpenFiles = 1
	f := initUut(tt, cfg)

	if _, err := f.Open("nope", ReadOnly); err != ErrNotFound {
		tt.Errorf("got %v/wanted ErrNotFound", err)
	}

	f.Create("a")
	f.Create("b")
	if _, err := f.Open("a", Mode(7)); err != ErrInvalidArgument {
		tt.Errorf("bad mode: got %v/wanted ErrInvalidArgument", err)
	}

	fd, err := f.Open("a", ReadOnly)
	if err != nil {
		tt.Fatalf("open failed: %v", err)
	}
	if _, err := f.Open("b", ReadWrite); err != ErrResourceExhausted {
		tt.Errorf("got %v/wanted ErrResourceExhausted", err)
	}

	// The failed open must not leave b locked
	de, _ := f.root.Lookup("b")
	if st, n := f.inodes.Get(de.Inum).State(); st != inode.Idle {
		tt.Errorf("b left in state %v(%d)", st, n)
	}

	f.Close(fd)
	fd, err = f.Open("b", ReadWrite)
	if err != nil {
		tt.Errorf("open after close failed: %v", err)
	}
	f.Close(fd)
}

// Covers:
//	-> descriptors/outofrange
//	-> descriptors/unused
//	-> descriptors/readonly
func TestDescriptorErrors(tt *testing.T) {
	f := initUut(tt, testConfig())
	fd := mustCreateOpen(tt, f, "r", ReadOnly)
	buf := make([]byte, 4)

	for _, bad := range []int{-1, 4, 100} {
		if _, err := f.Read(bad, buf); err != ErrInvalidArgument {
			tt.Errorf("read fd %d: got %v/wanted ErrInvalidArgument", bad, err)
		}
		if err := f.Close(bad); err != ErrInvalidArgument {
			tt.Errorf("close fd %d: got %v/wanted ErrInvalidArgument", bad, err)
		}
	}
	if _, err := f.Read(fd+1, buf); err != ErrNotFound {
		tt.Errorf("read unused fd: got %v/wanted ErrNotFound", err)
	}
	if _, err := f.Seek(fd+1, 0); err != ErrNotFound {
		tt.Errorf("seek unused fd: got %v/wanted ErrNotFound", err)
	}

	if _, err := f.Read(fd, nil); err != ErrInvalidArgument {
		tt.Errorf("empty read: got %v/wanted ErrInvalidArgument", err)
	}
	if _, err := f.Write(fd, []byte("x")); err != ErrNotPermitted {
		tt.Errorf("write on ro: got %v/wanted ErrNotPermitted", err)
	}
	if _, err := f.Append(fd, []byte("x")); err != ErrNotPermitted {
		tt.Errorf("append on ro: got %v/wanted ErrNotPermitted", err)
	}
	if _, err := f.Truncate(fd, 1); err != ErrNotPermitted {
		tt.Errorf("truncate on ro: got %v/wanted ErrNotPermitted", err)
	}

	if err := f.Close(fd); err != nil {
		tt.Errorf("close failed: %v", err)
	}
	if err := f.Close(fd); err != ErrNotFound {
		tt.Errorf("double close: got %v/wanted ErrNotFound", err)
	}

	fd = mustCreateOpen(tt, f, "w", ReadWrite)
	if _, err := f.Write(fd, []byte{}); err != ErrInvalidArgument {
		tt.Errorf("empty write: got %v/wanted ErrInvalidArgument", err)
	}
	if _, err := f.Truncate(fd, 0); err != ErrInvalidArgument {
		tt.Errorf("zero truncate: got %v/wanted ErrInvalidArgument", err)
	}
	f.Close(fd)
}

// Covers:
//	-> seek/inrange
//	-> seek/negative
//	-> seek/pastend
func TestSeek(tt *testing.T) {
	f := initUut(tt, testConfig())
	fd := mustCreateOpen(tt, f, "s", ReadWrite)
	f.Write(fd, []byte("abcdef"))

	cases := []struct {
		off, want int
	}{
		{3, 3},
		{-1, 3},
		{7, 3},
		{6, 6},
		{0, 0},
		{100, 0},
	}
	for _, c := range cases {
		pos, err := f.Seek(fd, c.off)
		if pos != c.want || err != nil {
			tt.Errorf("seek %d: got %d, %v/wanted %d, nil", c.off, pos, err, c.want)
		}
		if tell, _ := f.Tell(fd); tell != c.want {
			tt.Errorf("seek %d: cursor at %d/wanted %d", c.off, tell, c.want)
		}
	}
}

func TestReadStopsAtEOF(tt *testing.T) {
	f := initUut(tt, testConfig())
	fd := mustCreateOpen(tt, f, "e", ReadWrite)
	f.Write(fd, []byte("0123456789"))

	f.Seek(fd, 7)
	buf := make([]byte, 8)
	n, _ := f.Read(fd, buf)
	if n != 3 || string(buf[:n]) != "789" {
		tt.Errorf("read %d bytes %q/wanted 3 bytes %q", n, buf[:n], "789")
	}
	n, err := f.Read(fd, buf)
	if n != 0 || err != nil {
		tt.Errorf("read at EOF: got %d, %v/wanted 0, nil", n, err)
	}
}

// Length is the highest cursor any write reached.
func TestLengthTracksHighestWrite(tt *testing.T) {
	f := initUut(tt, testConfig())
	fd := mustCreateOpen(tt, f, "l", ReadWrite)

	r := rand.New(rand.NewSource(3))
	high := 0
	for i := 0; i < 50; i++ {
		size := f.Stat().Files[0].Length
		f.Seek(fd, r.Intn(size+1))

		f.Write(fd, bytes.Repeat([]byte{'q'}, 1+r.Intn(6)))
		if pos, _ := f.Tell(fd); pos > high {
			high = pos
		}
		if l := f.Stat().Files[0].Length; l != high {
			tt.Fatalf("iteration %d: length %d, highest cursor %d", i, l, high)
		}
	}
}

func TestRoundTripAnySize(tt *testing.T) {
	cfg := testConfig()
	f := initUut(tt, cfg)
	capacity := cfg.BlockSize * cfg.NumPointers

	r := rand.New(rand.NewSource(11))
	for size := 1; size <= capacity; size++ {
		data := make([]byte, size)
		r.Read(data)

		fd := mustCreateOpen(tt, f, "rt", ReadWrite)
		if n, _ := f.Write(fd, data); n != size {
			tt.Fatalf("size %d: wrote %d", size, n)
		}
		f.Seek(fd, 0)
		got := make([]byte, size)
		if n, _ := f.Read(fd, got); n != size {
			tt.Fatalf("size %d: read %d", size, n)
		}
		if !bytes.Equal(got, data) {
			tt.Fatalf("size %d: round trip mismatch", size)
		}
		f.Close(fd)
		f.Delete("rt")
	}

	if st := f.Stat(); st.BlocksUsed != 0 || st.InodesUsed != 0 {
		tt.Errorf("leaked blocks %d, inodes %d", st.BlocksUsed, st.InodesUsed)
	}
}

// Covers:
//	-> write/pastcapacity
func TestWritePastCapacity(tt *testing.T) {
	cfg := testConfig()
	f := initUut(tt, cfg)
	fd := mustCreateOpen(tt, f, "big", ReadWrite)

	capacity := cfg.BlockSize * cfg.NumPointers
	n, err := f.Write(fd, bytes.Repeat([]byte("b"), capacity+5))
	if n != capacity || err != nil {
		tt.Errorf("got %d, %v/wanted %d, nil", n, err, capacity)
	}
	if n, _ := f.Append(fd, []byte("more")); n != 0 {
		tt.Errorf("append at capacity wrote %d bytes", n)
	}
}

// Covers:
//	-> write/pooldry
func TestAppendExhaustsPool(tt *testing.T) {
	cfg := testConfig()
	cfg.NumDataBlocks = 3
	f := initUut(tt, cfg)
	fd := mustCreateOpen(tt, f, "x", ReadWrite)

	data := []byte(strings.Repeat("0123456789", 4))
	n, err := f.Append(fd, data)
	if n != 12 || err != nil {
		tt.Errorf("got %d, %v/wanted 12, nil", n, err)
	}
	if st := f.Stat(); st.BlocksFree() != 0 {
		tt.Errorf("%d blocks still free", st.BlocksFree())
	}

	n, err = f.Append(fd, data)
	if n != 0 || err != nil {
		tt.Errorf("second append: got %d, %v/wanted 0, nil", n, err)
	}
	if got := readFrom(tt, f, fd, 0); got != string(data[:12]) {
		tt.Errorf("content corrupted: %q", got)
	}
}

// Covers:
//	-> delete/open
//	-> delete/absent
func TestDeleteWhileOpen(tt *testing.T) {
	f := initUut(tt, testConfig())
	fd := mustCreateOpen(tt, f, "d", ReadWrite)
	f.Write(fd, []byte("doomed"))

	if err := f.Delete("d"); err != nil {
		tt.Fatalf("delete failed: %v", err)
	}
	if err := f.Delete("d"); err != ErrNotFound {
		tt.Errorf("second delete: got %v/wanted ErrNotFound", err)
	}
	if _, err := f.Read(fd, make([]byte, 4)); err != ErrNotFound {
		tt.Errorf("read on deleted file: got %v/wanted ErrNotFound", err)
	}
	if _, err := f.Write(fd, []byte("x")); err != ErrNotFound {
		tt.Errorf("write on deleted file: got %v/wanted ErrNotFound", err)
	}

	st := f.Stat()
	if st.BlocksUsed != 0 || st.InodesUsed != 0 || st.OpenFiles != 1 {
		tt.Errorf("after delete: %+v", st)
	}
	if err := f.Close(fd); err != nil {
		tt.Errorf("close on deleted file failed: %v", err)
	}

	// The inode comes back unlocked for its next owner
	fd = mustCreateOpen(tt, f, "d2", ReadWrite)
	f.Close(fd)
}

func TestUnmount(tt *testing.T) {
	f := initUut(tt, testConfig())
	fd := mustCreateOpen(tt, f, "u", ReadOnly)

	if err := f.Unmount(); err != ErrNotPermitted {
		tt.Errorf("unmount with open file: got %v/wanted ErrNotPermitted", err)
	}
	f.Close(fd)
	if err := f.Unmount(); err != nil {
		tt.Errorf("unmount failed: %v", err)
	}
	if err := f.Unmount(); err != ErrNotPermitted {
		tt.Errorf("second unmount: got %v/wanted ErrNotPermitted", err)
	}
	if err := f.Create("v"); err != ErrNotPermitted {
		tt.Errorf("create after unmount: got %v/wanted ErrNotPermitted", err)
	}
	if _, err := f.Open("u", ReadOnly); err != ErrNotPermitted {
		tt.Errorf("open after unmount: got %v/wanted ErrNotPermitted", err)
	}
}
