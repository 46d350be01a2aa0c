// Package envi writes ENVI header files describing raw frame recordings.
//
// A header is a plain-text companion to the raw .bin written by a file sink:
//
//	ENVI
//	samples = 320
//	bands = 1200
//	lines = 256
//	data type = 12
//	interleave = bil
//	byte order = 1
//	description = {Recording duration 5002 ms ...}
package envi

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Field is one "key = value" header entry.
type Field struct {
	Key   string
	Value any
}

// Data type codes defined by the ENVI header format.
const (
	TypeUint8      = 1
	TypeInt16      = 2
	TypeInt32      = 3
	TypeFloat32    = 4
	TypeFloat64    = 5
	TypeComplex64  = 6
	TypeComplex128 = 9
	TypeUint16     = 12
	TypeUint32     = 13
	TypeInt64      = 14
	TypeUint64     = 15
)

var dataTypes = map[string]int{
	"u1": TypeUint8,
	"i2": TypeInt16,
	"i4": TypeInt32,
	"f4": TypeFloat32,
	"f8": TypeFloat64,
	"c4": TypeComplex64,
	"c8": TypeComplex128,
	"u2": TypeUint16,
	"u4": TypeUint32,
	"i8": TypeInt64,
	"u8": TypeUint64,
}

// ErrUnknownDataType is returned for type strings outside the ENVI table.
var ErrUnknownDataType = errors.New("envi: unknown data type")

// DataType maps a numpy-style type string ("u2", "f4", ...) to its ENVI code.
func DataType(kind string) (int, error) {
	code, ok := dataTypes[kind]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownDataType, kind)
	}
	return code, nil
}

// Write renders the header to w. Extra fields are appended after fields,
// replacing any field with the same key in place.
func Write(w io.Writer, fields []Field, extra ...Field) error {
	merged := merge(fields, extra)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("ENVI\n"); err != nil {
		return err
	}
	for _, f := range merged {
		if strings.TrimSpace(f.Key) == "" {
			return fmt.Errorf("envi: empty header key")
		}
		if _, err := fmt.Fprintf(bw, "%s = %s\n", f.Key, formatValue(f.Key, f.Value)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes the header to path. The parent directory must exist and
// path must name a file.
func WriteFile(path string, fields []Field, extra ...Field) (err error) {
	dir, name := filepath.Split(path)
	if name == "" {
		return fmt.Errorf("envi: no file name given in %q", path)
	}
	if dir != "" {
		info, statErr := os.Stat(dir)
		if statErr != nil {
			return fmt.Errorf("envi: directory %q does not exist: %w", dir, statErr)
		}
		if !info.IsDir() {
			return fmt.Errorf("envi: %q is not a directory", dir)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("envi: failed to create header: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return Write(f, fields, extra...)
}

func merge(fields, extra []Field) []Field {
	out := make([]Field, 0, len(fields)+len(extra))
	out = append(out, fields...)
	for _, e := range extra {
		replaced := false
		for i := range out {
			if out[i].Key == e.Key {
				out[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, e)
		}
	}
	return out
}

// formatValue wraps free text in braces the way ENVI readers expect.
func formatValue(key string, v any) string {
	s := fmt.Sprint(v)
	if key == "description" && !strings.HasPrefix(s, "{") {
		return "{" + s + "}"
	}
	return s
}
