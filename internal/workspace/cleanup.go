// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workspace

import (
	"log/slog"

	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
)

// Cleanup removes paths concurrently and waits for all removals. Directories
// are removed recursively. Errors, including missing paths, are swallowed;
// unexpected ones are logged at debug level when logger is non-nil.
func Cleanup(fs afero.Fs, logger *slog.Logger, paths []string) {
	var wg conc.WaitGroup
	for _, p := range paths {
		wg.Go(func() {
			if err := remove(fs, p); err != nil && !isNotExist(err) && logger != nil {
				logger.Debug("cleanup failed", "path", p, "error", err)
			}
		})
	}
	if r := wg.WaitAndRecover(); r != nil && logger != nil {
		logger.Warn("cleanup panicked", "panic", r.String())
	}
}

func remove(fs afero.Fs, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fs.RemoveAll(path)
	}
	return fs.Remove(path)
}
