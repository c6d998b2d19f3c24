// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workspace allocates per-job temporary paths for conversion jobs and
// guarantees their removal when the job ends.
//
// Paths are named pandoc_<kind>_<id>[.ext] under a configurable root. The id
// is a version-5 UUID derived from the job's source identifier, so the same
// inputs always yield the same names. A Manager mixes a per-job token into
// the id so two in-flight jobs with the same identifier never share a path.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/pdiddy/mdto/pkg/types"
)

// FallbackIdentifier replaces an empty identifier in DeriveID.
const FallbackIdentifier = "unnamed"

// Namespace is the fixed UUID namespace for derived ids (the RFC 4122 URL namespace).
var Namespace = uuid.NameSpaceURL

// Sentinel errors for path construction.
var (
	ErrInvalidWorkDir = errors.New("invalid work directory")
	ErrInvalidKind    = errors.New("invalid path kind")
	ErrEmptyID        = errors.New("empty job id")
)

// Kind names the role of a temporary path within a job.
type Kind string

const (
	KindInput     Kind = "input"
	KindOutput    Kind = "output"
	KindReference Kind = "reference"
	// KindJob is the private per-job directory.
	KindJob Kind = "job"
)

func (k Kind) extension() (string, bool) {
	switch k {
	case KindReference:
		return ".docx", true
	case KindInput, KindOutput, KindJob:
		return "", true
	}
	return "", false
}

// DeriveID returns the deterministic id for identifier. An empty identifier
// is replaced by FallbackIdentifier.
func DeriveID(identifier string) string {
	if identifier == "" {
		identifier = FallbackIdentifier
	}
	return uuid.NewSHA1(Namespace, []byte(identifier)).String()
}

// JobID derives the id for one job from its identifier and a per-job token.
// An empty token yields DeriveID(identifier).
func JobID(identifier, token string) string {
	if token == "" {
		return DeriveID(identifier)
	}
	if identifier == "" {
		identifier = FallbackIdentifier
	}
	return DeriveID(identifier + "\x00" + token)
}

// BuildPath composes <dir>/pandoc_<kind>_<id>[.ext].
func BuildPath(dir, id string, kind Kind) (string, error) {
	if dir == "" || strings.ContainsRune(dir, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidWorkDir, dir)
	}
	if id == "" {
		return "", ErrEmptyID
	}
	ext, ok := kind.extension()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return filepath.Join(dir, "pandoc_"+string(kind)+"_"+id+ext), nil
}

// Option configures a Manager.
type Option func(*Manager)

// WithFs sets the filesystem used for validation, writes and cleanup.
func WithFs(fs afero.Fs) Option {
	return func(m *Manager) { m.fs = fs }
}

// WithLogger sets the logger for cleanup diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager hands out job workspaces under a single root directory.
type Manager struct {
	fs         afero.Fs
	logger     *slog.Logger
	root       string
	privateDir bool
	session    string
	seq        atomic.Uint64
}

// NewManager validates cfg.Root and returns a Manager for it. An empty root
// means the current directory.
func NewManager(cfg types.WorkspaceConfig, opts ...Option) (*Manager, error) {
	m := &Manager{
		fs:         afero.NewOsFs(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		root:       cfg.Root,
		privateDir: cfg.PrivateDir,
		session:    cfg.Session,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.root == "" {
		m.root = types.DefaultWorkspaceRoot
	}
	if m.session == "" {
		m.session = uuid.NewString()
	}

	if strings.ContainsRune(m.root, 0) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWorkDir, m.root)
	}
	info, err := m.fs.Stat(m.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidWorkDir, m.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidWorkDir, m.root)
	}
	return m, nil
}

// Root returns the workspace root directory.
func (m *Manager) Root() string { return m.root }

// Open allocates the workspace for one job. The input and output paths are
// tracked immediately, so the caller must defer Cleanup as soon as Open
// returns.
func (m *Manager) Open(identifier string) (*Workspace, error) {
	token := fmt.Sprintf("%s/%d", m.session, m.seq.Add(1))
	id := JobID(identifier, token)

	w := &Workspace{
		ID:     id,
		Dir:    m.root,
		fs:     m.fs,
		logger: m.logger.With("job", id),
	}

	if m.privateDir {
		dir, err := BuildPath(m.root, id, KindJob)
		if err != nil {
			return nil, err
		}
		w.Track(dir)
		if err := m.fs.MkdirAll(dir, 0o700); err != nil {
			w.Cleanup()
			return nil, fmt.Errorf("creating job directory %s: %w", dir, err)
		}
		w.Dir = dir
	}

	var err error
	if w.Input, err = BuildPath(w.Dir, id, KindInput); err != nil {
		w.Cleanup()
		return nil, err
	}
	if w.Output, err = BuildPath(w.Dir, id, KindOutput); err != nil {
		w.Cleanup()
		return nil, err
	}
	w.Track(w.Input, w.Output)
	return w, nil
}

// Workspace is the set of temporary paths owned by one job.
type Workspace struct {
	// ID is the derived job id embedded in every path.
	ID string
	// Dir is the directory holding the job's files.
	Dir string
	// Input is the path of the source document.
	Input string
	// Output is the path the converter writes to.
	Output string

	fs      afero.Fs
	logger  *slog.Logger
	mu      sync.Mutex
	tracked []string
	once    sync.Once
}

// Path returns the job path for kind.
func (w *Workspace) Path(kind Kind) (string, error) {
	return BuildPath(w.Dir, w.ID, kind)
}

// Track registers paths for removal at cleanup.
func (w *Workspace) Track(paths ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range paths {
		if p == "" || containsPath(w.tracked, p) {
			continue
		}
		w.tracked = append(w.tracked, p)
	}
}

// Tracked returns a copy of the registered paths in registration order.
func (w *Workspace) Tracked() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.tracked...)
}

// WriteFile writes data to the job path for kind and returns that path. The
// path is tracked before the file is created.
func (w *Workspace) WriteFile(kind Kind, data []byte) (string, error) {
	path, err := w.Path(kind)
	if err != nil {
		return "", err
	}
	w.Track(path)
	if err := afero.WriteFile(w.fs, path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing %s file: %w", kind, err)
	}
	return path, nil
}

// ReadFile reads a file inside the workspace.
func (w *Workspace) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(w.fs, path)
}

// Exists reports whether path exists.
func (w *Workspace) Exists(path string) bool {
	_, err := w.fs.Stat(path)
	return err == nil
}

// Cleanup removes every tracked path. It runs at most once and never fails.
func (w *Workspace) Cleanup() {
	w.once.Do(func() {
		Cleanup(w.fs, w.logger, w.Tracked())
	})
}

func containsPath(paths []string, p string) bool {
	for _, q := range paths {
		if q == p {
			return true
		}
	}
	return false
}

// isNotExist matches both os and afero flavours of a missing path.
func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
