package common

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
)

// ErrStale is returned by CheckFile when the file on disk does not hold the
// expected contents.
var ErrStale = errors.New("generated file is out of date")

// WriteFileIfChanged writes contents to filename unless the file already
// holds exactly those bytes, so an unchanged file keeps its mtime and
// downstream builds do not rerun. It reports whether it wrote.
func WriteFileIfChanged(filename string, contents []byte) (bool, error) {
	current, err := os.ReadFile(filename)
	switch {
	case err == nil && bytes.Equal(current, contents):
		return false, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("read %s: %w", filename, err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return false, fmt.Errorf("create directory for %s: %w", filename, err)
	}
	if err := os.WriteFile(filename, contents, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", filename, err)
	}
	return true, nil
}

// CheckFile compares filename against contents by digest. A missing or
// differing file yields ErrStale.
func CheckFile(filename string, contents []byte) error {
	current, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s does not exist", ErrStale, filename)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}
	if got, want := Digest(current), Digest(contents); got != want {
		return fmt.Errorf("%w: %s has digest %s, expected %s", ErrStale, filename, got[:12], want[:12])
	}
	return nil
}

// Digest returns the hex BLAKE2b-256 digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
