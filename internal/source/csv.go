package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVReader streams a comma-separated export.
type CSVReader struct {
	name   string
	closer io.Closer
	r      *csv.Reader
	header []string
	index  map[string]int
}

// NewCSV reads the header row of rc and returns a reader positioned at the
// first data row. A leading UTF-8 BOM is skipped and invalid UTF-8 is
// replaced with U+FFFD.
func NewCSV(name string, rc io.ReadCloser) (*CSVReader, error) {
	br := bufio.NewReaderSize(rc, 64*1024)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	c := &CSVReader{name: name, closer: rc, r: cr}

	header, err := cr.Read()
	if err == io.EOF {
		rc.Close()
		return nil, fmt.Errorf("%s: empty file", name)
	}
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	c.header = make([]string, len(header))
	for i, h := range header {
		c.header[i] = CleanCell(strings.ToValidUTF8(h, "\uFFFD"))
	}
	c.index = headerIndex(c.header)
	return c, nil
}

func (c *CSVReader) Name() string     { return c.name }
func (c *CSVReader) Header() []string { return c.header }

// Next skips blank lines and returns io.EOF after the last row.
func (c *CSVReader) Next() (Row, error) {
	for {
		rec, err := c.r.Read()
		if err == io.EOF {
			return Row{}, io.EOF
		}
		if err != nil {
			return Row{}, fmt.Errorf("%s: %w", c.name, err)
		}
		if isEmptyRow(rec) {
			continue
		}
		for i, v := range rec {
			rec[i] = strings.ToValidUTF8(v, "\uFFFD")
		}
		line, _ := c.r.FieldPos(0)
		return newRow(line, c.index, rec), nil
	}
}

func (c *CSVReader) Close() error {
	return c.closer.Close()
}
