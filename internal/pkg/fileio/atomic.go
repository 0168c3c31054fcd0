// Package fileio contains the read and write paths shared by the flat-file
// stores.
package fileio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/natefinch/atomic"

	"github.com/kiryshabutor/OrderCRM/internal/pkg/apperr"
)

// WriteAtomic renders the whole file through write and then replaces path
// in one rename. Readers never observe a partial file, and a failing write
// leaves the previous content in place.
func WriteAtomic(path string, write func(w *bufio.Writer) error) error {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := write(w); err != nil {
		return apperr.IO("cannot write file: "+path, err)
	}
	if err := w.Flush(); err != nil {
		return apperr.IO("cannot write file: "+path, err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return apperr.IO("cannot open file for write: "+path, err)
	}
	return nil
}

// OpenIfExists opens path for reading. A missing file is reported as
// (nil, nil) so callers can treat it as an empty collection.
func OpenIfExists(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.IO(fmt.Sprintf("cannot open file for read: %s", path), err)
	}
	return f, nil
}
