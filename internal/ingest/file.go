package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Submission sources, used in logs and metric labels.
const (
	SourceFile   = "file"
	SourceText   = "text"
	SourceFolder = "folder"
)

// LogFile is a log file selected for upload.
type LogFile struct {
	Name   string
	Path   string
	Size   int64
	Source string
	// Content, when set, is read instead of opening Path.
	Content io.Reader
}

// OpenLogFile stats path and returns a LogFile ready for submission.
func OpenLogFile(path string) (LogFile, error) {
	st, err := os.Stat(path)
	if err != nil {
		return LogFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.IsDir() {
		return LogFile{}, fmt.Errorf("%s is a directory", path)
	}
	return LogFile{
		Name:   filepath.Base(path),
		Path:   path,
		Size:   st.Size(),
		Source: SourceFile,
	}, nil
}

// SizeLabel renders the size the way the uploader shows it, e.g. "2.0 KB".
func (f LogFile) SizeLabel() string {
	return fmt.Sprintf("%.1f KB", float64(f.Size)/1024)
}

func (f LogFile) open() (io.ReadCloser, error) {
	if f.Content != nil {
		return io.NopCloser(f.Content), nil
	}
	if f.Path == "" {
		return nil, fmt.Errorf("no file selected")
	}
	return os.Open(f.Path)
}

func (f LogFile) source() string {
	if f.Source == "" {
		return SourceFile
	}
	return f.Source
}
