package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FilesystemOutput writes every dumped message to its own file in a
// directory.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput creates a fresh run-<timestamp>-* directory under dir
// for the dumps of this process. Nothing already in dir is touched.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return FilesystemOutput{}, err
	}
	run, err := os.MkdirTemp(dir, "run-"+time.Now().Format("20060102-150405")+"-*")
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: run}, nil
}

// Dir is the directory the dumps of this run are written to.
func (o FilesystemOutput) Dir() string {
	return o.directory
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
