package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrTooLarge is returned by SaveLimited when the stream exceeds its limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
// The source is left in place.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// SaveLimited writes r to dst, failing with ErrTooLarge once more than limit
// bytes arrive. A limit <= 0 disables the check. dst must not exist yet; an
// existing file is left untouched and reported as fs.ErrExist. dst is removed
// on any later error.
func SaveLimited(dst string, r io.Reader, limit int64) (int64, error) {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	written, err := io.Copy(out, src)
	closeErr := out.Close()
	switch {
	case err != nil:
	case limit > 0 && written > limit:
		err = ErrTooLarge
	case closeErr != nil:
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return written, err
	}
	return written, nil
}

// CopyFileVerified copies src to dst and re-reads dst to confirm its SHA-256
// matches the bytes read from src. A mismatched copy is removed.
func CopyFileVerified(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	want := sha256.New()
	if _, err := io.Copy(out, io.TeeReader(in, want)); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	got, err := hashFile(dst)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy of %s does not match source", filepath.Base(src))
	}
	return nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
