package grid_world

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Load reads a track file: a dimensions header line, followed by one line per
// row of track characters. The track is named after the file, sans extension.
func Load(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load track: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(name, f)
}

// Parse reads a track from r. The first line is the dimensions header and is
// skipped; blank lines are ignored, as are trailing carriage returns.
func Parse(name string, r io.Reader) (*Track, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read track header: %w", err)
		}
		return nil, fmt.Errorf("read track header: %w", ErrRaggedTrack)
	}

	rows := []string{}
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		rows = append(rows, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read track rows: %w", err)
	}

	return NewTrack(name, rows)
}
