// Package tabular reads spreadsheet exports: a single-cell timestamp row, a
// header row and data rows, in whatever delimiter and quote dialect the
// exporting program picked.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

var (
	ErrSchema   = errors.New("schema error")
	ErrEncoding = errors.New("encoding error")
)

const (
	DefaultSniffSize = 512
	DefaultEncoding  = "utf-8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is the parsed file.
type Table struct {
	Timestamp string
	Header    []string
	Records   []Record
	Dialect   Dialect
}

type options struct {
	sniffSize int
	dialect   *Dialect
	encoding  string
}

type Option func(*options)

// WithSniffSize changes how many leading bytes are used to guess the dialect.
func WithSniffSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.sniffSize = n
		}
	}
}

// WithDialect skips sniffing.
func WithDialect(d Dialect) Option {
	return func(o *options) {
		o.dialect = &d
	}
}

// WithEncoding sets the byte encoding of every cell, as a WHATWG label such as
// "utf-8", "iso-8859-15" or "windows-1252".
func WithEncoding(label string) Option {
	return func(o *options) {
		if label != "" {
			o.encoding = label
		}
	}
}

// ReadFile opens path and calls Read on it.
func ReadFile(path string, opts ...Option) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error open file %s: %w", path, err)
	}

	defer f.Close()

	return Read(f, opts...)
}

// Read parses the whole stream. Row one is the timestamp, row two the header
// (lower-cased), every following row becomes a Record. A data row with a
// different number of cells than the header fails with ErrSchema, a cell that
// cannot be decoded fails with ErrEncoding.
func Read(r io.Reader, opts ...Option) (*Table, error) {
	o := &options{
		sniffSize: DefaultSniffSize,
		encoding:  DefaultEncoding,
	}

	for _, opt := range opts {
		opt(o)
	}

	decode, err := newDecoder(o.encoding)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error read input: %w", err)
	}

	data = bytes.TrimPrefix(data, utf8BOM)

	dialect := Sniff(sniffSample(data, o.sniffSize))
	if o.dialect != nil {
		dialect = *o.dialect
	}

	// encoding/csv only knows double quotes, so another quote character is
	// swapped with it before parsing and swapped back in every cell.
	swap := func(s string) string { return s }
	if dialect.Quote != '"' && dialect.Quote < utf8.RuneSelf {
		quote := byte(dialect.Quote)
		swap = func(s string) string {
			return string(swapQuotes([]byte(s), quote))
		}

		data = swapQuotes(data, quote)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = dialect.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	table := &Table{Dialect: dialect}
	for rowNum := 0; ; rowNum++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrSchema, err)
		}

		line, _ := reader.FieldPos(0)
		cells := make([]string, len(row))
		for i, raw := range row {
			cells[i], err = decode(swap(raw))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %d: %s", ErrEncoding, line, i+1, err)
			}
		}

		switch rowNum {
		case 0:
			table.Timestamp = strings.TrimSpace(cells[0])

		case 1:
			table.Header, err = parseHeader(line, cells)
			if err != nil {
				return nil, err
			}

		default:
			if len(cells) != len(table.Header) {
				return nil, fmt.Errorf("%w: line %d has %d cells, header has %d",
					ErrSchema, line, len(cells), len(table.Header),
				)
			}

			fields := make(map[string]string, len(cells))
			for i, column := range table.Header {
				fields[column] = cells[i]
			}

			table.Records = append(table.Records, Record{line: line, fields: fields})
		}
	}

	if table.Header == nil {
		return nil, fmt.Errorf("%w: missing timestamp or header row", ErrSchema)
	}

	return table, nil
}

// sniffSample cuts data to size, dropping the last line when it was cut in half.
func sniffSample(data []byte, size int) []byte {
	if len(data) <= size {
		return data
	}

	sample := data[:size]
	if i := bytes.LastIndexByte(sample, '\n'); i > 0 {
		sample = sample[:i]
	}

	return sample
}

func parseHeader(line int, cells []string) ([]string, error) {
	header := make([]string, len(cells))
	seen := make(map[string]struct{}, len(cells))
	for i, cell := range cells {
		column := strings.ToLower(strings.TrimSpace(cell))
		if column == "" {
			return nil, fmt.Errorf("%w: line %d: empty header name in column %d", ErrSchema, line, i+1)
		}

		if _, exist := seen[column]; exist {
			return nil, fmt.Errorf("%w: line %d: duplicate header name '%s'", ErrSchema, line, column)
		}

		seen[column] = struct{}{}
		header[i] = column
	}

	return header, nil
}

// swapQuotes works on bytes so cells in single-byte encodings stay intact.
func swapQuotes(data []byte, quote byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		switch b {
		case quote:
			out[i] = '"'
		case '"':
			out[i] = quote
		default:
			out[i] = b
		}
	}

	return out
}

func newDecoder(label string) (func(string) (string, error), error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown encoding '%s'", ErrEncoding, label)
	}

	name, _ := htmlindex.Name(enc)
	if name == DefaultEncoding {
		return func(s string) (string, error) {
			if !utf8.ValidString(s) {
				return "", fmt.Errorf("invalid %s sequence in %q", DefaultEncoding, s)
			}

			return s, nil
		}, nil
	}

	decoder := enc.NewDecoder()
	return decoder.String, nil
}
