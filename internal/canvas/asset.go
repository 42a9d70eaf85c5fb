package canvas

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	appLog "piclock/internal/log"
)

var (
	ErrAssetNotFound     = errors.New("canvas: asset not found")
	ErrAssetSizeMismatch = errors.New("canvas: asset size mismatch")
)

// IsSoftError reports whether err is an asset problem that should skip one
// draw step without aborting the frame.
func IsSoftError(err error) bool {
	return errors.Is(err, ErrAssetNotFound) || errors.Is(err, ErrAssetSizeMismatch)
}

// DrawImage loads the raw 1-bit asset name from fsys and blits it at (x, y).
// The asset has no header and must hold exactly srcW*srcH/8 bytes packed like
// a Canvas. A missing or wrongly sized asset is logged and returned as a soft
// error (see IsSoftError) with c left untouched.
func DrawImage(c *Canvas, fsys fs.FS, name string, srcW, srcH, x, y int) error {
	if srcW <= 0 || srcH <= 0 || srcW%8 != 0 {
		return fmt.Errorf("%w: asset size %dx%d", ErrInvalidArgument, srcW, srcH)
	}

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrAssetNotFound, name, err)
		appLog.Warn("asset skipped", "name", name, "err", err)
		return err
	}

	want := srcW * srcH / 8
	if len(data) != want {
		err := fmt.Errorf("%w: %s is %d bytes, want %d for %dx%d", ErrAssetSizeMismatch, name, len(data), want, srcW, srcH)
		appLog.Warn("asset skipped", "name", name, "err", err)
		return err
	}

	src, err := FromBytes(srcW, srcH, data)
	if err != nil {
		return err
	}
	if err := c.Blit(src, x, y); err != nil {
		return fmt.Errorf("draw image %s: %w", name, err)
	}
	appLog.Debug("asset drawn", "name", name, "x", x, "y", y)
	return nil
}

// DrawImageFile is DrawImage for a path on the local filesystem.
func DrawImageFile(c *Canvas, path string, srcW, srcH, x, y int) error {
	dir, name := filepath.Split(filepath.Clean(path))
	if dir == "" {
		dir = "."
	}
	return DrawImage(c, os.DirFS(dir), name, srcW, srcH, x, y)
}
