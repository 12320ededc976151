package domain

import (
	"io"
	"os"
	"path/filepath"
)

// CandidateFile is whatever the file capture side produced.
type CandidateFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// CsvFileHandle is a file that passed intake validation. Only the intake
// validator should construct one.
type CsvFileHandle struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// CandidateFromPath describes a file on local disk. A missing file yields nil.
func CandidateFromPath(path string) *CandidateFile {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil
	}
	return &CandidateFile{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}
