package steg

import (
	"os"
	"path/filepath"
)

// Dir returns ~/.steg, creating it if necessary. steg runs as the invoking
// user only; there is no elevated-service path to unwrap.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".steg")
	if err := os.MkdirAll(dir, os.FileMode(0700)); err != nil {
		return "", err
	}
	return dir, nil
}

// TablesDir returns ~/.steg/tables, the default BinDB directory.
func TablesDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	tables := filepath.Join(dir, "tables")
	if err := os.MkdirAll(tables, os.FileMode(0700)); err != nil {
		return "", err
	}
	return tables, nil
}
