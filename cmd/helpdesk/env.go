package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// loadEnvFile applies path on top of the process environment. Variables that
// are already set win. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
