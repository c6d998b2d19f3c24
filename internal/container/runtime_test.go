// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool // binary -> whether LookPath succeeds
	runnableCmds  map[string]bool // "bin arg1 arg2" -> whether RunSilent succeeds
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		wantName string
		wantErr  bool
	}{
		{
			name: "docker available",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name:    "neither available",
			exec:    &mockExecutor{},
			wantErr: true,
		},
		{
			name: "docker on PATH but info fails, podman works",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detect(tt.exec, "")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "no container runtime available")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, rt.Name())
		})
	}
}

func TestSelectRuntime(t *testing.T) {
	both := &mockExecutor{
		availableBins: map[string]bool{"docker": true, "podman": true},
		runnableCmds:  map[string]bool{"docker info": true, "podman info": true},
	}
	onlyPodman := &mockExecutor{
		availableBins: map[string]bool{"podman": true},
		runnableCmds:  map[string]bool{"podman info": true},
	}

	tests := []struct {
		name     string
		exec     *mockExecutor
		runtime  string
		wantName string
		wantErr  string
	}{
		{name: "auto prefers docker", exec: both, runtime: "auto", wantName: "docker"},
		{name: "empty means auto", exec: onlyPodman, runtime: "", wantName: "podman"},
		{name: "explicit podman", exec: both, runtime: "podman", wantName: "podman"},
		{name: "explicit docker missing", exec: onlyPodman, runtime: "docker", wantErr: "not found or not operational"},
		{name: "unknown runtime", exec: both, runtime: "lxc", wantErr: "unknown container runtime"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := selectRuntime(tt.exec, "", tt.runtime)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, rt.Name())
		})
	}
}

func TestImageExists(t *testing.T) {
	tests := []struct {
		name    string
		mkRT    func(*mockExecutor) Runtime
		cmds    map[string]bool
		wantErr bool
	}{
		{
			name: "docker image exists",
			mkRT: func(e *mockExecutor) Runtime { return newDockerRuntime(e, "") },
			cmds: map[string]bool{"docker image inspect pandoc/extra": true},
		},
		{
			name:    "docker image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e, "") },
			wantErr: true,
		},
		{
			name: "podman image exists",
			mkRT: func(e *mockExecutor) Runtime { return newPodmanRuntime(e, "") },
			cmds: map[string]bool{"podman image exists pandoc/extra": true},
		},
		{
			name:    "podman image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newPodmanRuntime(e, "") },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := tt.mkRT(&mockExecutor{runnableCmds: tt.cmds})
			err := rt.ImageExists("pandoc/extra")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "pandoc/extra")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCommand(t *testing.T) {
	rt := newDockerRuntime(&mockExecutor{}, "1000:1000")
	name, args := rt.Command("pandoc/extra", "/home/u/work", []string{"in.md", "--to", "pdf"})

	assert.Equal(t, "docker", name)
	assert.Equal(t, []string{
		"run", "--rm", "-v", "/home/u/work:/data", "-w", "/data",
		"--user", "1000:1000",
		"pandoc/extra", "in.md", "--to", "pdf",
	}, args)
}

func TestCommand_NoUser(t *testing.T) {
	rt := newPodmanRuntime(&mockExecutor{}, "")
	name, args := rt.Command("pandoc/extra", "/w", nil)

	assert.Equal(t, "podman", name)
	assert.Equal(t, []string{"run", "--rm", "-v", "/w:/data", "-w", "/data", "pandoc/extra"}, args)
}
