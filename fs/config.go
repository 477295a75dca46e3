package fs

import (
	"fmt"
	"io"
	"log"

	"github.com/jacobsa/timeutil"
)

// Config fixes the geometry of a file system at mount time.
type Config struct {
	BlockSize     int // bytes per data block
	NumDataBlocks int
	NumInodes     int
	NumPointers   int // direct block pointers per inode
	NumOpenFiles  int // slots in the open-file table
	MaxNameLen    int

	// Optional. A nil Logger discards; a nil Clock is the real clock.
	Logger *log.Logger
	Clock  timeutil.Clock
}

func DefaultConfig() Config {
	return Config{
		BlockSize:     32,
		NumDataBlocks: 100,
		NumInodes:     8,
		NumPointers:   5,
		NumOpenFiles:  16,
		MaxNameLen:    32,
	}
}

// Validate reports the first unusable field, wrapping ErrInvalidArgument.
func (c Config) Validate() error {
	fields := []struct {
		name string
		v    int
	}{
		{"block size", c.BlockSize},
		{"data block count", c.NumDataBlocks},
		{"inode count", c.NumInodes},
		{"block pointer count", c.NumPointers},
		{"open file count", c.NumOpenFiles},
		{"max name length", c.MaxNameLen},
	}
	for _, f := range fields {
		if f.v <= 0 {
			return fmt.Errorf("%s must be positive, got %d: %w", f.name, f.v, ErrInvalidArgument)
		}
	}
	return nil
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.New(io.Discard, "", 0)
}

func (c Config) clock() timeutil.Clock {
	if c.Clock != nil {
		return c.Clock
	}
	return timeutil.RealClock()
}
