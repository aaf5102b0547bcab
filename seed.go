package schemalift

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// seedCopyBuffer bounds memory used while streaming a seed image into
// place, regardless of database size.
const seedCopyBuffer = 8192

// EnsureSeed copies the bundled seed image into place if no database
// file exists yet. It is idempotent: when the file is already present
// it returns immediately without touching it.
//
// On copy failure the path is left in whatever partial state the failed
// copy produced; there is no automatic rollback of a partial write.
func (h *Helper) EnsureSeed() error {
	path := h.databasePath()
	ok, err := afero.Exists(h.files, path)
	if err != nil {
		return fmt.Errorf("%w: probing %s: %v", ErrAssetIO, path, err)
	}
	if ok {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := h.files.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: creating %s: %v", ErrAssetIO, dir, err)
		}
	}
	return h.writeSeed(path)
}

// writeSeed streams the bundled seed image over path, overwriting any
// existing file.
func (h *Helper) writeSeed(path string) error {
	src, err := h.assets.Open(h.cfg.Name)
	if err != nil {
		return fmt.Errorf("%w: opening seed image %s: %v", ErrAssetIO, h.cfg.Name, err)
	}
	defer src.Close()

	dst, err := h.files.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrAssetIO, path, err)
	}

	buf := make([]byte, seedCopyBuffer)
	if _, err := io.CopyBuffer(dst, src, buf); err != nil {
		dst.Close()
		return fmt.Errorf("%w: copying seed image to %s: %v", ErrAssetIO, path, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("%w: flushing %s: %v", ErrAssetIO, path, err)
	}
	return nil
}
