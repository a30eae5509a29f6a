// Package csvimport reads order spreadsheets into raw records.
package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/manifest/backend/internal/domain/manifest"
)

// CSVParser reads a header row and then one raw record per data row
type CSVParser struct {
	delimiter  rune
	trimSpace  bool
	headers    []string
	currentRow int
	reader     *csv.Reader
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// WithTrimSpace controls trimming of header and cell whitespace (default on)
func WithTrimSpace(trim bool) ParserOption {
	return func(p *CSVParser) {
		p.trimSpace = trim
	}
}

// NewCSVParser strips a UTF-8 BOM and rejects empty or non UTF-8 input.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	parser := &CSVParser{delimiter: ',', trimSpace: true}
	for _, opt := range opts {
		opt(parser)
	}

	buf := bufio.NewReaderSize(r, 4096)
	if bom, _ := buf.Peek(3); bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = buf.Discard(3)
	}

	sample, err := buf.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(sample)) == 0 {
		return nil, ErrEmptyFile
	}
	if !validUTF8Prefix(sample, len(sample) == 4096) {
		return nil, ErrInvalidEncoding
	}

	parser.reader = csv.NewReader(buf)
	parser.reader.Comma = parser.delimiter
	parser.reader.LazyQuotes = true
	parser.reader.TrimLeadingSpace = parser.trimSpace
	parser.reader.FieldsPerRecord = -1
	return parser, nil
}

// validUTF8Prefix allows a truncated sample to end in the middle of a rune
func validUTF8Prefix(b []byte, truncated bool) bool {
	if !truncated {
		return utf8.Valid(b)
	}
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return true
		}
		b = b[:len(b)-1]
	}
	return utf8.Valid(b)
}

// ParseHeader reads the header row
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, len(record))
	for i, h := range record {
		p.headers[i] = p.clean(h)
	}
	p.currentRow = 1
	return nil
}

// Headers returns the parsed header names in file order
func (p *CSVParser) Headers() []string {
	return p.headers
}

// Row is one parsed data row and the line it came from
type Row struct {
	LineNumber int
	Record     manifest.RawRecord
}

// IsEmpty reports whether every cell of the row is blank
func (r *Row) IsEmpty() bool {
	for _, v := range r.Record {
		if s, _ := v.(string); s != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next row. Cells are kept as strings; missing trailing
// cells become "" and extra cells are dropped.
func (p *CSVParser) ReadRow() (*Row, error) {
	fields, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, NewRowError(p.currentRow, "", ErrCodeImportMalformedRow, err.Error())
	}

	record := make(manifest.RawRecord, len(p.headers))
	for i, header := range p.headers {
		if header == "" {
			continue
		}
		value := ""
		if i < len(fields) {
			value = p.clean(fields[i])
		}
		record[header] = value
	}
	return &Row{LineNumber: p.currentRow, Record: record}, nil
}

// ReadAllRows reads the remaining rows, skipping blank ones
func (p *CSVParser) ReadAllRows() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.ReadRow()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if !row.IsEmpty() {
			rows = append(rows, row)
		}
	}
}

func (p *CSVParser) clean(s string) string {
	if p.trimSpace {
		return strings.TrimSpace(s)
	}
	return s
}

// ReadRecords parses a whole CSV document into raw records.
// A document with a header and no data rows returns ErrNoDataRows.
func ReadRecords(r io.Reader, opts ...ParserOption) ([]manifest.RawRecord, error) {
	parser, err := NewCSVParser(r, opts...)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}
	records := make([]manifest.RawRecord, len(rows))
	for i, row := range rows {
		records[i] = row.Record
	}
	return records, nil
}
