package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"rsfs/fs"
)

func parseMode(s string) (fs.Mode, bool) {
	switch s {
	case "ro":
		return fs.ReadOnly, true
	case "rw":
		return fs.ReadWrite, true
	}
	return 0, false
}

// Reads one command per line from in until EOF or quit. Integer
// arguments that don't parse, or the wrong number of them, print a
// complaint and move on.
func runCli(in io.Reader, out io.Writer, fsys fs.FileSystem) {
	rdr := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !rdr.Scan() {
			fmt.Fprintln(out)
			return
		}
		i := strings.Fields(rdr.Text())
		if len(i) == 0 {
			continue
		}

		switch i[0] {
		case "create", "delete":
			if len(i) != 2 {
				goto badcmd
			}

			var err error
			if i[0] == "create" {
				err = fsys.Create(i[1])
			} else {
				err = fsys.Delete(i[1])
			}
			if err != nil {
				fmt.Fprintf(out, "%s %s: %v\n", i[0], i[1], err)
			} else {
				fmt.Fprintf(out, "ok\n")
			}

		case "open":
			if len(i) != 3 {
				goto badcmd
			}
			mode, ok := parseMode(i[2])
			if !ok {
				goto badcmd
			}

			fd, err := fsys.Open(i[1], mode)
			if err != nil {
				fmt.Fprintf(out, "open %s: %v\n", i[1], err)
			} else {
				fmt.Fprintf(out, "fd %d\n", fd)
			}

		case "close":
			if len(i) != 2 {
				goto badcmd
			}
			fd, err := strconv.Atoi(i[1])
			if err != nil {
				goto badcmd
			}

			if err := fsys.Close(fd); err != nil {
				fmt.Fprintf(out, "close %d: %v\n", fd, err)
			} else {
				fmt.Fprintf(out, "ok\n")
			}

		case "read":
			if len(i) != 3 {
				goto badcmd
			}
			fd, err := strconv.Atoi(i[1])
			if err != nil {
				goto badcmd
			}
			cnt, err := strconv.Atoi(i[2])
			if err != nil || cnt < 0 {
				goto badcmd
			}

			p := make([]byte, cnt)
			n, err := fsys.Read(fd, p)
			if err != nil {
				fmt.Fprintf(out, "read %d: %v\n", fd, err)
			} else {
				fmt.Fprintf(out, "%d bytes: %q\n", n, p[:n])
			}

		case "write", "append":
			if len(i) < 3 {
				goto badcmd
			}
			fd, err := strconv.Atoi(i[1])
			if err != nil {
				goto badcmd
			}

			data := []byte(strings.Join(i[2:], " "))
			var n int
			if i[0] == "write" {
				n, err = fsys.Write(fd, data)
			} else {
				n, err = fsys.Append(fd, data)
			}
			if err != nil {
				fmt.Fprintf(out, "%s %d: %v\n", i[0], fd, err)
			} else {
				fmt.Fprintf(out, "%d of %d bytes\n", n, len(data))
			}

		case "seek", "cut":
			if len(i) != 3 {
				goto badcmd
			}
			fd, err := strconv.Atoi(i[1])
			if err != nil {
				goto badcmd
			}
			arg, err := strconv.Atoi(i[2])
			if err != nil {
				goto badcmd
			}

			var n int
			if i[0] == "seek" {
				n, err = fsys.Seek(fd, arg)
			} else {
				n, err = fsys.Truncate(fd, arg)
			}
			if err != nil {
				fmt.Fprintf(out, "%s %d: %v\n", i[0], fd, err)
			} else if i[0] == "seek" {
				fmt.Fprintf(out, "at %d\n", n)
			} else {
				fmt.Fprintf(out, "cut %d bytes\n", n)
			}

		case "stat":
			fsys.Stat().WriteTo(out)

		case "quit", "exit":
			return

		default:
			fmt.Fprintf(out, "unknown command %q\n", i[0])
		}
		continue

	badcmd:
		fmt.Fprintf(out, "Invalid arguments!\n")
	}
}

func printUsageMsgAndDie(err string) {
	fmt.Fprintf(os.Stderr, "Usage: ./rsfs [flags]\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	os.Exit(1)
}

// Binds one flag per Config geometry field, defaulting to cfg's values.
func configFlags(fset *flag.FlagSet, cfg *fs.Config) {
	fset.IntVar(&cfg.BlockSize, "block-size", cfg.BlockSize, "bytes per data block")
	fset.IntVar(&cfg.NumDataBlocks, "blocks", cfg.NumDataBlocks, "number of data blocks")
	fset.IntVar(&cfg.NumInodes, "inodes", cfg.NumInodes, "number of inodes")
	fset.IntVar(&cfg.NumPointers, "pointers", cfg.NumPointers, "direct block pointers per inode")
	fset.IntVar(&cfg.NumOpenFiles, "open-files", cfg.NumOpenFiles, "size of the open file table")
	fset.IntVar(&cfg.MaxNameLen, "max-name", cfg.MaxNameLen, "longest file name in bytes")
}

func main() {
	cfg := fs.DefaultConfig()
	configFlags(flag.CommandLine, &cfg)
	verbose := flag.Bool("v", false, "trace file system operations to stderr")
	flag.Parse()

	if flag.NArg() != 0 {
		printUsageMsgAndDie("unexpected arguments")
	}
	if *verbose {
		cfg.Logger = log.New(os.Stderr, "rsfs: ", log.Lmicroseconds)
	}

	fsys, err := fs.Mount(cfg)
	if err != nil {
		printUsageMsgAndDie(err.Error())
	}

	runCli(os.Stdin, os.Stdout, fsys)

	if err := fsys.Unmount(); err != nil {
		log.Printf("unmount: %v (descriptors left open)", err)
	}
}
