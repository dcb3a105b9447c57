package kml

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Write emits items in the canonical layout with "\n" line endings.
func Write(w io.Writer, items []*Item) error {
	return WriteEOL(w, items, "\n")
}

// WriteEOL emits items in the canonical layout: one tab per depth,
// "name = value" attributes, and the tag followed by "{" and "}" on their
// own lines, each line ended by eol. Ghost nodes are never written; their
// children appear at the ghost's own depth.
func WriteEOL(w io.Writer, items []*Item, eol string) error {
	bw := bufio.NewWriter(w)
	for _, it := range items {
		writeItem(bw, it, 0, eol)
	}
	return bw.Flush()
}

func writeItem(w *bufio.Writer, it *Item, depth int, eol string) {
	indent := strings.Repeat("\t", depth)
	switch it.Kind {
	case KindGhost:
		for _, c := range it.items {
			writeItem(w, c, depth, eol)
		}
	case KindAttrib:
		w.WriteString(indent + it.Name + " = " + it.Value + eol)
	default:
		w.WriteString(indent + it.Name + eol)
		w.WriteString(indent + "{" + eol)
		for _, c := range it.items {
			writeItem(w, c, depth+1, eol)
		}
		w.WriteString(indent + "}" + eol)
	}
}

// LineEnding returns "\r\n" when the first line of data ends in CRLF and
// "\n" otherwise. The reader strips the carriage return, so this is how
// Save keeps a file's line ending.
func LineEnding(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i > 0 && data[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// FileLineEnding reports the line ending of the file at path, "\n" when it
// cannot be read.
func FileLineEnding(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "\n"
	}
	defer f.Close()
	head := make([]byte, 64*1024)
	n, _ := io.ReadFull(f, head)
	return LineEnding(head[:n])
}

// Save writes items to path through a temporary file in the same
// directory, so a failed write never truncates the destination. An
// existing file keeps its line ending.
func Save(path string, items []*Item) error {
	eol := FileLineEnding(path)
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteEOL(tmp, items, eol); err != nil {
		tmp.Close()
		return fmt.Errorf("saving %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// LoadFile opens path and parses it with the file name as source.
func LoadFile(path string, opts ...Option) ([]*Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	defer f.Close()
	return Load(path, f, opts...)
}
