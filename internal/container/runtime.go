// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container detects a docker or podman runtime and wraps commands so
// they run inside a container image with a host directory mounted.
package container

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

const (
	binDocker = "docker"
	binPodman = "podman"

	// MountPoint is where the host directory appears inside the container.
	MountPoint = "/data"
)

// Runtime provides the container operations needed to run pandoc in an image.
type Runtime interface {
	// Name returns the runtime name ("docker" or "podman").
	Name() string

	// Available reports whether the runtime binary exists on PATH and
	// responds to an info command.
	Available() bool

	// ImageExists checks whether the named image exists locally.
	ImageExists(image string) error

	// Command returns the binary and arguments that run args inside image
	// with mountDir mounted read-write at MountPoint as the working directory.
	Command(image, mountDir string, args []string) (string, []string)
}

// executor abstracts command probing for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
}

type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// containerRuntime implements Runtime for one container binary. Docker and podman
// differ only in binary name and the image check subcommand.
type containerRuntime struct {
	bin           string
	imageCheckCmd []string
	user          string // "uid:gid", empty when the host has no numeric ids
	exec          executor
}

func (r *containerRuntime) Name() string { return r.bin }

func (r *containerRuntime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *containerRuntime) ImageExists(image string) error {
	args := make([]string, 0, len(r.imageCheckCmd)+1)
	args = append(args, r.imageCheckCmd...)
	args = append(args, image)

	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *containerRuntime) Command(image, mountDir string, args []string) (string, []string) {
	out := []string{"run", "--rm", "-v", mountDir + ":" + MountPoint, "-w", MountPoint}
	if r.user != "" {
		out = append(out, "--user", r.user)
	}
	out = append(out, image)
	out = append(out, args...)
	return r.bin, out
}

// hostUser returns "uid:gid" so files written in the mount stay owned by the
// caller. Windows has no numeric ids.
func hostUser() string {
	if runtime.GOOS == "windows" {
		return ""
	}
	uid, gid := os.Getuid(), os.Getgid()
	if uid < 0 || gid < 0 {
		return ""
	}
	return strconv.Itoa(uid) + ":" + strconv.Itoa(gid)
}

func newDockerRuntime(exec executor, user string) *containerRuntime {
	return &containerRuntime{
		bin:           binDocker,
		imageCheckCmd: []string{"image", "inspect"},
		user:          user,
		exec:          exec,
	}
}

func newPodmanRuntime(exec executor, user string) *containerRuntime {
	return &containerRuntime{
		bin:           binPodman,
		imageCheckCmd: []string{"image", "exists"},
		user:          user,
		exec:          exec,
	}
}

var defaultExec = &osExecutor{}

// Detect tries docker first, falls back to podman. Returns an error if
// neither runtime is available.
func Detect() (Runtime, error) {
	return detect(defaultExec, hostUser())
}

// Select resolves a runtime by name: "auto" detects, "docker" and "podman"
// require that runtime to be available.
func Select(name string) (Runtime, error) {
	return selectRuntime(defaultExec, hostUser(), name)
}

func detect(exec executor, user string) (Runtime, error) {
	docker := newDockerRuntime(exec, user)
	if docker.Available() {
		return docker, nil
	}

	podman := newPodmanRuntime(exec, user)
	if podman.Available() {
		return podman, nil
	}

	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}

func selectRuntime(exec executor, user, name string) (Runtime, error) {
	var rt *containerRuntime
	switch name {
	case "auto", "":
		return detect(exec, user)
	case binDocker:
		rt = newDockerRuntime(exec, user)
	case binPodman:
		rt = newPodmanRuntime(exec, user)
	default:
		return nil, fmt.Errorf("unknown container runtime %q: use auto, docker or podman", name)
	}
	if !rt.Available() {
		return nil, fmt.Errorf("container runtime %s not found or not operational", name)
	}
	return rt, nil
}
