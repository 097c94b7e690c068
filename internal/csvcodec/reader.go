package csvcodec

// reader.go prepares raw file bytes for Decode.
//
// Spreadsheet tools on Windows like to prefix files with a UTF-8 byte order
// mark and the occasional Latin-1 byte sneaks into exported text. Both are
// cleaned up here so that header detection sees plain column names:
//
//   - the BOM (0xEF 0xBB 0xBF) is stripped from the start
//   - invalid UTF-8 sequences become U+FFFD

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrTooLarge is returned by ReadLimited when the input exceeds the size limit.
var ErrTooLarge = errors.New("file too large")

var bom = []byte{0xEF, 0xBB, 0xBF}

// TrimBOM returns data without a leading UTF-8 byte order mark.
func TrimBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, bom)
}

// Sanitize strips a leading BOM and replaces invalid UTF-8 in data.
func Sanitize(data []byte) string {
	data = TrimBOM(data)
	return strings.ToValidUTF8(string(data), "�")
}

// ReadLimited reads r completely without altering the bytes. A positive
// limit caps the number of bytes accepted; larger inputs fail with
// ErrTooLarge.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

// ReadAll is ReadLimited followed by Sanitize.
func ReadAll(r io.Reader, limit int64) (string, error) {
	data, err := ReadLimited(r, limit)
	if err != nil {
		return "", err
	}
	return Sanitize(data), nil
}
