// Package cache stores the consolidated dataset between pipeline runs.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/ansfeed/pkg/core"
	"github.com/leapstack-labs/ansfeed/pkg/recordio"
)

// ErrChecksumMismatch means the cached file does not match its recorded checksum.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Dataset caches a consolidated record set.
type Dataset interface {
	// Load returns the cached records. ok is false on a miss.
	Load() (records []core.Record, ok bool, err error)
	// Store replaces the cached records.
	Store(records []core.Record) error
	// Invalidate discards the cached records.
	Invalidate() error
}

// File is a Dataset persisted as CSV with a sha256 sidecar. A file whose
// sidecar is missing or disagrees with its content is treated as a miss.
type File struct {
	Path   string
	Logger *slog.Logger
}

var _ Dataset = (*File)(nil)

// NewFile returns a file-backed cache at path.
func NewFile(path string, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &File{Path: path, Logger: logger}
}

func (f *File) checksumPath() string {
	return f.Path + ".sha256"
}

// Load implements Dataset.
func (f *File) Load() ([]core.Record, bool, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache: %w", err)
	}

	if err := f.verify(data); err != nil {
		f.Logger.Warn("ignoring cached dataset", slog.String("path", f.Path), slog.String("reason", err.Error()))
		return nil, false, nil
	}

	records, err := recordio.ReadRecords(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decode cache %s: %w", f.Path, err)
	}
	return records, true, nil
}

func (f *File) verify(data []byte) error {
	want, err := os.ReadFile(f.checksumPath())
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: no checksum recorded", ErrChecksumMismatch)
	}
	if err != nil {
		return err
	}
	if got := checksum(data); got != strings.TrimSpace(string(want)) {
		return fmt.Errorf("%w: got %s", ErrChecksumMismatch, got)
	}
	return nil
}

// Store implements Dataset. The checksum is written after the data so an
// interrupted store reads back as a miss.
func (f *File) Store(records []core.Record) error {
	var buf bytes.Buffer
	if err := recordio.WriteRecords(&buf, records); err != nil {
		return err
	}
	sum := checksum(buf.Bytes())

	if err := os.Remove(f.checksumPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove checksum: %w", err)
	}
	if err := recordio.WriteFileAtomic(f.Path, func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	}); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := recordio.WriteFileAtomic(f.checksumPath(), func(w io.Writer) error {
		_, err := io.WriteString(w, sum+"\n")
		return err
	}); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}
	return nil
}

// Invalidate implements Dataset.
func (f *File) Invalidate() error {
	for _, p := range []string{f.checksumPath(), f.Path} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
