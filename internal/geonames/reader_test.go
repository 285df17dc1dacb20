package geonames

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeZip(t *testing.T, name string, entries map[string]string, order []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	for _, entry := range order {
		ew, err := w.Create(entry)
		require.NoError(t, err)
		_, err = ew.Write([]byte(entries[entry]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func collect(t *testing.T, path string) []string {
	t.Helper()
	var lines []string
	err := ForEachLine(path, func(index int, line string) error {
		assert.Equal(t, len(lines), index)
		lines = append(lines, line)
		return nil
	})
	require.NoError(t, err)
	return lines
}

func TestForEachLine(t *testing.T) {
	t.Run("Plain file", func(t *testing.T) {
		path := writeFile(t, "deletes.txt", "1\ta\n2\tb\n3\tc")
		assert.Equal(t, []string{"1\ta", "2\tb", "3\tc"}, collect(t, path))
	})

	t.Run("Stops at callback error", func(t *testing.T) {
		path := writeFile(t, "deletes.txt", "1\n2\n3\n")
		stop := errors.New("stop")
		seen := 0
		err := ForEachLine(path, func(index int, line string) error {
			seen++
			if index == 1 {
				return stop
			}
			return nil
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 2, seen)
	})

	t.Run("Long line", func(t *testing.T) {
		long := strings.Repeat("x", 200*1024)
		path := writeFile(t, "long.txt", long+"\nshort\n")
		lines := collect(t, path)
		require.Len(t, lines, 2)
		assert.Len(t, lines[0], len(long))
	})

	t.Run("Zip picks the entry named after the archive", func(t *testing.T) {
		path := writeZip(t, "alternateNamesV2.zip", map[string]string{
			"iso-languagecodes.txt": "ISO 639-3\tISO 639-2\n",
			"alternateNamesV2.txt":  "1\t6255148\ten\tEurope\n",
		}, []string{"iso-languagecodes.txt", "alternateNamesV2.txt"})

		assert.Equal(t, []string{"1\t6255148\ten\tEurope"}, collect(t, path))
	})

	t.Run("Zip falls back to the first txt entry", func(t *testing.T) {
		path := writeZip(t, "dump.zip", map[string]string{
			"readme.md":   "ignored",
			"payload.txt": "a\nb\n",
		}, []string{"readme.md", "payload.txt"})

		assert.Equal(t, []string{"a", "b"}, collect(t, path))
	})

	t.Run("Zip without txt entry", func(t *testing.T) {
		path := writeZip(t, "empty.zip", map[string]string{"readme.md": "x"}, []string{"readme.md"})
		err := ForEachLine(path, func(int, string) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no txt file")
	})

	t.Run("Missing file", func(t *testing.T) {
		err := ForEachLine(filepath.Join(t.TempDir(), "missing.txt"), func(int, string) error { return nil })
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"Empty", "", 0},
		{"Terminated", "a\nb\n", 2},
		{"Unterminated", "a\nb\nc", 3},
		{"Blank lines", "\n\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "count.txt", tt.content)
			n, err := CountLines(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}

	t.Run("Zip", func(t *testing.T) {
		path := writeZip(t, "allCountries.zip", map[string]string{"allCountries.txt": "1\n2\n3\n"}, []string{"allCountries.txt"})
		n, err := CountLines(path)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})
}
