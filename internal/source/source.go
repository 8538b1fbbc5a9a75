// Package source provides header-validated, field-normalised row iteration
// over the tabular exports fed to ingestion.
//
// A Reader is positioned after its header row as soon as it is built, so
// callers can check every source's header before consuming any data.
package source

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Reader iterates the data rows of one named source.
type Reader interface {
	// Name identifies the source in errors and logs, e.g. "members".
	Name() string

	// Header returns the cleaned header row.
	Header() []string

	// Next returns the next non-empty row or io.EOF.
	Next() (Row, error)

	Close() error
}

// Format selects the decoder for a source.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFor picks the format from a file name or object key.
func FormatFor(location string) Format {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Open builds a Reader of the given format over rc. The Reader owns rc.
func Open(name string, format Format, rc io.ReadCloser) (Reader, error) {
	switch format {
	case FormatXLSX:
		r, err := NewXLSX(name, rc)
		if err != nil {
			return nil, err
		}
		return r, nil
	case FormatCSV, "":
		r, err := NewCSV(name, rc)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		rc.Close()
		return nil, fmt.Errorf("%s: unsupported format %q", name, format)
	}
}

// Each calls fn for every remaining row of r.
func Each(r Reader, fn func(Row) error) error {
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// CloseAll closes every non-nil reader and returns the first error.
func CloseAll(readers ...Reader) error {
	var first error
	for _, r := range readers {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
