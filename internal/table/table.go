// Package table is claro's flat-file layer: header-first delimited tables
// with transparent zstd compression for paths ending in .zst.
//
// The simulator and the feature builder both speak through this package so
// that compressed and plain files are interchangeable everywhere.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// compressedExt marks paths that are read and written zstd-compressed.
const compressedExt = ".zst"

// ErrNoSchema is returned when a write is requested without a header row,
// since the output schema would be unknowable.
var ErrNoSchema = errors.New("table: cannot write without a schema (empty header)")

// Write serializes header and rows to path as a delimited table, creating
// parent directories as needed. A path ending in .zst is zstd-compressed.
func Write(path string, header []string, rows [][]string) error {
	if len(header) == 0 {
		return ErrNoSchema
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	var w io.Writer = f
	var enc *zstd.Encoder
	if strings.HasSuffix(path, compressedExt) {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return fmt.Errorf("opening zstd writer: %w", err)
		}
		w = enc
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return closeAll(fmt.Errorf("writing header: %w", err), enc, f)
	}
	for i, row := range rows {
		if err := cw.Write(row); err != nil {
			return closeAll(fmt.Errorf("writing row %d: %w", i, err), enc, f)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return closeAll(fmt.Errorf("flushing %s: %w", path, err), enc, f)
	}

	return closeAll(nil, enc, f)
}

// Read parses the delimited table at path and returns its header and data
// rows. A path ending in .zst is decompressed transparently.
func Read(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, compressedExt) {
		dec, derr := zstd.NewReader(f)
		if derr != nil {
			return nil, nil, fmt.Errorf("opening zstd reader: %w", derr)
		}
		defer dec.Close()
		r = dec
	}

	cr := csv.NewReader(r)
	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("parsing %s: file has no header row", path)
	}

	return all[0], all[1:], nil
}

// closeAll closes the optional zstd encoder and the file, preserving the
// first error encountered.
func closeAll(err error, enc *zstd.Encoder, f *os.File) error {
	if enc != nil {
		if cerr := enc.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing zstd writer: %w", cerr)
		}
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing file: %w", cerr)
	}
	return err
}
