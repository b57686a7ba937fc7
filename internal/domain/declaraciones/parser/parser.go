// Package parser turns delimited-text and spreadsheet sources into ordered
// sequences of header-keyed rows. Legacy declaration dumps have ragged column
// counts and irregular quoting, so parsing is deliberately lenient: a row
// never aborts the sequence.
package parser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Row is one source row keyed by header name. Values are trimmed; a header
// with no corresponding field maps to the empty string.
type Row map[string]string

// CSVRowReader streams rows from a delimited-text source one at a time so
// large files never need to be materialized in memory.
type CSVRowReader struct {
	reader  *csv.Reader
	headers []string
	// nextRow is the 1-based number assigned to the next data row. Numbering
	// starts at the header line to match the legacy per-row labels.
	nextRow int
}

// NewCSVRowReader prepares a streaming reader. headerLine is the 1-based line
// number of the header row as reported by the sniffer; any lines before it are
// discarded. The delimiter must be non-zero.
func NewCSVRowReader(r io.Reader, delimiter rune, headerLine int) (*CSVRowReader, error) {
	if headerLine < 1 {
		headerLine = 1
	}

	cr := csv.NewReader(newBOMReader(r))
	cr.Comma = delimiter
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	// Discard title/banner lines before the header.
	for i := 1; i < headerLine; i++ {
		if _, err := cr.Read(); err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("file ended before header line %d", headerLine)
			}
			return nil, fmt.Errorf("reading line %d: %w", i, err)
		}
	}

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("file has no header row")
		}
		return nil, fmt.Errorf("reading header row: %w", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.TrimSpace(h)
	}

	return &CSVRowReader{
		reader:  cr,
		headers: headers,
		nextRow: headerLine,
	}, nil
}

// Headers returns the trimmed header names in source order.
func (r *CSVRowReader) Headers() []string {
	return r.headers
}

// Next returns the next data row and its 1-based row number. It returns
// io.EOF when the source is exhausted. A malformed row is reported with its
// row number so the caller can record it and keep going.
func (r *CSVRowReader) Next() (Row, int, error) {
	rowNum := r.nextRow
	r.nextRow++

	record, err := r.reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, rowNum, io.EOF
		}
		return nil, rowNum, err
	}

	return recordToRow(r.headers, record), rowNum, nil
}

// recordToRow maps fields onto headers. Excess fields are dropped and missing
// fields become empty strings, so ragged rows never fail.
func recordToRow(headers, record []string) Row {
	row := make(Row, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		if i < len(record) {
			row[h] = strings.TrimSpace(record[i])
		} else {
			row[h] = ""
		}
	}
	return row
}

// newBOMReader strips a UTF-8 byte-order mark from the start of the stream.
func newBOMReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(3); err == nil && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		br.Discard(3)
	}
	return br
}
