// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package transform converts raw CSV bytes into an ordered record set and
// serializes it to JSON. The first CSV row names the fields; every later
// row becomes one record. Parsing is a pure function of the input bytes.
package transform

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// OverflowKey is the JSON key that collects cells beyond the header width.
// Ragged long rows keep their extra cells here instead of being silently
// truncated.
const OverflowKey = "_overflow"

// Record is one CSV data row: field names in header order with positionally
// aligned values, plus any overflow cells. Fields and Values always have
// equal length.
type Record struct {
	Fields   []string
	Values   []string
	Overflow []string
}

// Get returns the value of the named field, or "" when the record has no
// such field. With duplicate header names the first occurrence wins.
func (r Record) Get(name string) string {
	for i, f := range r.Fields {
		if f == name {
			return r.Values[i]
		}
	}
	return ""
}

// MarshalJSON emits the record as an object whose keys appear in header
// order, followed by the overflow key when extra cells exist.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	if len(r.Overflow) > 0 {
		if len(r.Fields) > 0 {
			buf.WriteByte(',')
		}
		v, err := json.Marshal(r.Overflow)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "%q:", OverflowKey)
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RecordSet is the ordered sequence of records from one CSV document,
// order matching source row order.
type RecordSet []Record

// ParseError signals malformed CSV input: broken quoting or bytes that are
// not valid UTF-8. Ragged rows are not parse errors; they follow the
// padding and overflow policy.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads CSV bytes into a RecordSet. The delimiter may be zero,
// meaning sniff it from the header line. A leading UTF-8 BOM is stripped.
// Empty and header-only inputs yield an empty RecordSet.
//
// Quoting follows RFC 4180 as implemented by encoding/csv: fields may be
// double-quoted, embedded quotes double, embedded delimiters and newlines
// are allowed inside quotes.
func Parse(data []byte, delimiter rune) (RecordSet, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	if !utf8.Valid(data) {
		return nil, &ParseError{Err: errors.New("input is not valid UTF-8")}
	}

	if delimiter == 0 {
		delimiter = Sniff(data)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delimiter
	r.FieldsPerRecord = -1 // ragged rows handled by policy, not by error

	header, err := r.Read()
	if err == io.EOF {
		return RecordSet{}, nil
	}
	if err != nil {
		return nil, wrapCSVError(err)
	}

	records := RecordSet{}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapCSVError(err)
		}
		records = append(records, alignRow(header, row))
	}
	return records, nil
}

// alignRow maps one data row onto the header. Short rows pad missing
// trailing fields with ""; long rows keep the extras as overflow.
func alignRow(header, row []string) Record {
	rec := Record{
		Fields: header,
		Values: make([]string, len(header)),
	}
	copy(rec.Values, row)
	if len(row) > len(header) {
		rec.Overflow = row[len(header):]
	}
	return rec
}

func wrapCSVError(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &ParseError{Line: perr.Line, Err: perr.Err}
	}
	return &ParseError{Err: err}
}

// sniffCandidates lists delimiters Sniff considers, in tie-break order.
var sniffCandidates = []rune{',', ';', '\t', '|'}

// Sniff guesses the delimiter by counting candidate characters in the
// header line. Comma wins ties and is the fallback when nothing matches.
// Quoted delimiters in the header can fool it; pass an explicit delimiter
// for exotic inputs.
func Sniff(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best := ','
	bestCount := 0
	for _, c := range sniffCandidates {
		count := strings.Count(string(line), string(c))
		if count > bestCount {
			best = c
			bestCount = count
		}
	}
	return best
}

// ParseDelimiter converts a configured delimiter string into a rune for
// Parse. Empty and "auto" mean sniff; "tab" and the literal `\t` mean tab.
// Anything else must be a single character.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "", "auto":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("invalid delimiter %q: must be a single character, \"tab\", or \"auto\"", s)
	}
	return runes[0], nil
}

// EncodeJSON serializes the record set as a two-space-indented UTF-8 JSON
// array with a trailing newline. An empty set encodes as [].
func EncodeJSON(rs RecordSet) ([]byte, error) {
	if rs == nil {
		rs = RecordSet{}
	}
	out, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding records: %w", err)
	}
	return append(out, '\n'), nil
}
