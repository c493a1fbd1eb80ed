package scraper

import (
	"os"
	"path/filepath"
)

func writeFile(path, contents string) error {
	err := os.MkdirAll(filepath.Dir(path), 0700)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(contents), 0600)
}
