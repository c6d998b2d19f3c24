// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pandoc

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pdiddy/mdto/internal/container"
)

// containerRequest rewrites the file paths of req so they resolve inside the
// container, where the absolute WorkDir is mounted at container.MountPoint.
func containerRequest(req Request) (string, Request, error) {
	workDir := req.WorkDir
	if workDir == "" {
		workDir = "."
	}
	mount, err := filepath.Abs(workDir)
	if err != nil {
		return "", req, fmt.Errorf("resolving work directory %s: %w", workDir, err)
	}

	out := req
	for _, p := range []*string{&out.InputPath, &out.OutputPath, &out.ReferenceDoc} {
		if *p == "" {
			continue
		}
		mapped, err := inMount(mount, *p)
		if err != nil {
			return "", req, err
		}
		*p = mapped
	}
	return mount, out, nil
}

func inMount(mount, p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}
	rel, err := filepath.Rel(mount, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the mounted directory %s", p, mount)
	}
	return path.Join(container.MountPoint, filepath.ToSlash(rel)), nil
}

func mountFallback() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return os.TempDir()
}
