package source

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXReader iterates the first sheet of a workbook. Some upstream
// exports arrive as spreadsheets rather than CSV.
type XLSXReader struct {
	name   string
	file   *excelize.File
	rows   *excelize.Rows
	header []string
	index  map[string]int
	line   int
}

// NewXLSX loads the workbook from rc and reads the header row of its
// first sheet. rc is closed once the workbook is in memory.
func NewXLSX(name string, rc io.ReadCloser) (*XLSXReader, error) {
	defer rc.Close()

	f, err := excelize.OpenReader(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: open workbook: %w", name, err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, fmt.Errorf("%s: workbook has no sheets", name)
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: read sheet %q: %w", name, sheets[0], err)
	}

	x := &XLSXReader{name: name, file: f, rows: rows}
	if !rows.Next() {
		x.Close()
		return nil, fmt.Errorf("%s: empty file", name)
	}
	x.line = 1
	header, err := rows.Columns()
	if err != nil {
		x.Close()
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	x.header = make([]string, len(header))
	for i, h := range header {
		x.header[i] = CleanCell(h)
	}
	x.index = headerIndex(x.header)
	return x, nil
}

func (x *XLSXReader) Name() string     { return x.name }
func (x *XLSXReader) Header() []string { return x.header }

func (x *XLSXReader) Next() (Row, error) {
	for x.rows.Next() {
		x.line++
		cols, err := x.rows.Columns()
		if err != nil {
			return Row{}, fmt.Errorf("%s: row %d: %w", x.name, x.line, err)
		}
		if isEmptyRow(cols) {
			continue
		}
		return newRow(x.line, x.index, cols), nil
	}
	if err := x.rows.Error(); err != nil {
		return Row{}, fmt.Errorf("%s: %w", x.name, err)
	}
	return Row{}, io.EOF
}

func (x *XLSXReader) Close() error {
	if x.rows != nil {
		x.rows.Close()
	}
	return x.file.Close()
}
