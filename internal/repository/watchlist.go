package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// LoadWatchlistNames reads the `name` column of a watchlist CSV. A missing
// file yields no names.
func LoadWatchlistNames(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open watchlist: %w", err)
	}
	defer f.Close()
	return ReadWatchlistCSV(f)
}

func ReadWatchlistCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read watchlist header: %w", err)
	}
	idx := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), "name") {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("watchlist: missing column %q", "name")
	}

	var names []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read watchlist: %w", err)
		}
		if idx >= len(rec) {
			continue
		}
		if name := strings.TrimSpace(rec[idx]); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
