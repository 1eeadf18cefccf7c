package indexing

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ReadRecords decodes a line-delimited JSON source.
// Blank lines are skipped; lines that fail to decode are returned as
// LineErrors and do not stop the read. Every decoded record goes through
// ApplyDefaults with the default options.
func ReadRecords(r io.Reader) ([]DocumentRecord, []LineError, error) {
	return ReadRecordsWith(r, DefaultNormalizeOptions())
}

// ReadRecordsWith is ReadRecords with explicit normalization limits
func ReadRecordsWith(r io.Reader, opts NormalizeOptions) ([]DocumentRecord, []LineError, error) {
	var records []DocumentRecord
	var lineErrs []LineError

	err := scanLines(r, func(line int, data []byte) {
		var rec DocumentRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			lineErrs = append(lineErrs, LineError{Line: line, Err: err})
			return
		}
		records = append(records, ApplyDefaults(rec, opts))
	})

	return records, lineErrs, err
}

// ReadRawPages decodes scraped pages, one JSON object per line, without
// interpreting them
func ReadRawPages(r io.Reader) ([]map[string]any, []LineError, error) {
	var pages []map[string]any
	var lineErrs []LineError

	err := scanLines(r, func(line int, data []byte) {
		var page map[string]any
		if err := json.Unmarshal(data, &page); err != nil {
			lineErrs = append(lineErrs, LineError{Line: line, Err: err})
			return
		}
		if page == nil {
			lineErrs = append(lineErrs, LineError{Line: line, Err: fmt.Errorf("expected a JSON object")})
			return
		}
		pages = append(pages, page)
	})

	return pages, lineErrs, err
}

// WriteRecords writes one compact JSON object per line
func WriteRecords(w io.Writer, recs []DocumentRecord) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	for i, rec := range recs {
		// Encode appends the trailing newline
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush records: %w", err)
	}
	return nil
}

// ScanLines calls fn for every non-blank line with its 1-based number
func ScanLines(r io.Reader, fn func(line int, data []byte)) error {
	return scanLines(r, fn)
}

func scanLines(r io.Reader, fn func(line int, data []byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		fn(line, data)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read line %d: %w", line+1, err)
	}
	return nil
}
