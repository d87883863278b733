// Package staging owns the local scratch files that back an in-flight
// submission. Files are named by a per-submission token, never by the
// client's filename.
package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"civicsnap/internal/ids"
)

var ErrTooLarge = errors.New("staging: upload exceeds size limit")

const maxExtLen = 10

type File struct {
	Token string
	Path  string
	Ext   string
	Size  int64
}

type Area struct {
	dir      string
	maxBytes int64
	clock    clockwork.Clock
}

// New prepares dir for staging. maxBytes <= 0 disables the size limit.
func New(dir string, maxBytes int64, clock clockwork.Clock) (*Area, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Area{dir: dir, maxBytes: maxBytes, clock: clock}, nil
}

func (a *Area) Dir() string {
	return a.dir
}

// Stage copies r into a new staging file. The extension is kept so the
// transcoder can infer the format.
func (a *Area) Stage(r io.Reader, ext string) (File, error) {
	token := ids.New()
	ext = CleanExt(ext)
	path := filepath.Join(a.dir, token+ext)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return File{}, fmt.Errorf("create staging file: %w", err)
	}

	src := r
	if a.maxBytes > 0 {
		src = io.LimitReader(r, a.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && a.maxBytes > 0 && n > a.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return File{}, err
		}
		return File{}, fmt.Errorf("write staging file: %w", err)
	}

	return File{Token: token, Path: path, Ext: ext, Size: n}, nil
}

// Remove deletes a staged file. Removing an already removed file is not an
// error.
func (a *Area) Remove(f File) error {
	if f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Sweep removes regular files older than maxAge. Anything left behind is the
// residue of a crashed process.
func (a *Area) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return 0, fmt.Errorf("read staging dir: %w", err)
	}

	cutoff := a.clock.Now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// CleanExt normalises a client supplied extension to "." followed by up to
// ten ASCII letters or digits, or "" when it does not qualify.
func CleanExt(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return "." + ext
}
