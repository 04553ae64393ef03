package dashboard

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Selection is a user-chosen file waiting to be uploaded. The content is
// opaque to the controller and only opened at upload time.
type Selection struct {
	Name string
	open func() (io.ReadCloser, error)
}

// FileSelection selects a file on disk. The file is not touched until Upload.
func FileSelection(path string) *Selection {
	return &Selection{
		Name: filepath.Base(path),
		open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// BytesSelection selects in-memory content under the given name.
func BytesSelection(name string, data []byte) *Selection {
	return &Selection{
		Name: name,
		open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// Open returns the selected content.
func (s *Selection) Open() (io.ReadCloser, error) {
	if s.open == nil {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return s.open()
}

// IsCSV reports whether name ends in ".csv", ignoring case.
func IsCSV(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".csv")
}
