package geonames

import (
	"archive/zip"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxLineSize bounds a single line of a dump file.
const maxLineSize = 1 << 20

// LineFunc receives every raw line of a file with its zero-based index.
// Returning an error stops the iteration and is passed back to the caller.
type LineFunc func(index int, line string) error

// ForEachLine streams path line by line. A ".zip" path is read through the
// text entry named after the archive (allCountries.zip -> allCountries.txt),
// falling back to the first ".txt" entry.
func ForEachLine(path string, fn LineFunc) error {
	rc, err := open(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	index := 0
	for scanner.Scan() {
		if err := fn(index, scanner.Text()); err != nil {
			return err
		}
		index++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan %s: %w", filepath.Base(path), err)
	}
	return nil
}

// CountLines returns the number of lines in path. It is a full pass over the
// file and only feeds progress reporting.
func CountLines(path string) (int, error) {
	rc, err := open(path)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	buf := make([]byte, 64*1024)
	count := 0
	last := byte('\n')
	for {
		n, err := rc.Read(buf)
		if n > 0 {
			count += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to count lines in %s: %w", filepath.Base(path), err)
		}
	}
	// unterminated final line
	if last != '\n' {
		count++
	}
	return count, nil
}

func open(path string) (io.ReadCloser, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return openZip(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	return file, nil
}

type zipEntry struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (z *zipEntry) Close() error {
	err := z.ReadCloser.Close()
	if cerr := z.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

func openZip(path string) (io.ReadCloser, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip %s: %w", filepath.Base(path), err)
	}

	entry := findEntry(r.File, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".txt")
	if entry == nil {
		r.Close()
		return nil, fmt.Errorf("no txt file found in zip %s", filepath.Base(path))
	}

	rc, err := entry.Open()
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to open file in zip: %w", err)
	}
	return &zipEntry{ReadCloser: rc, archive: r}, nil
}

func findEntry(files []*zip.File, want string) *zip.File {
	var first *zip.File
	for _, f := range files {
		name := filepath.Base(f.Name)
		if strings.EqualFold(name, want) {
			return f
		}
		if first == nil && strings.HasSuffix(name, ".txt") {
			first = f
		}
	}
	return first
}
