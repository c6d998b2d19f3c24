package types

// ConverterConfig holds settings for invoking pandoc.
type ConverterConfig struct {
	// Binary is the pandoc executable name or path (default "pandoc").
	Binary string `json:"binary" yaml:"binary" mapstructure:"binary"`

	// Container selects container execution: "none", "auto", "docker" or "podman".
	Container string `json:"container" yaml:"container" mapstructure:"container"`

	// Image is the container image that provides pandoc (default "pandoc/extra").
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// Template is the pandoc template used for PDF output (default "eisvogel").
	// An empty value after defaults are applied means pandoc's built-in template.
	Template string `json:"template" yaml:"template" mapstructure:"template"`
}

// WorkspaceConfig holds settings for temporary job workspaces.
type WorkspaceConfig struct {
	// Root is the directory under which temporary files are created (default ".").
	Root string `json:"root" yaml:"root" mapstructure:"root"`

	// PrivateDir gives every job its own subdirectory under Root.
	PrivateDir bool `json:"private_dir" yaml:"private_dir" mapstructure:"private_dir"`

	// Session fixes the per-manager token mixed into job ids. Empty means a
	// random session per process.
	Session string `json:"session,omitempty" yaml:"session,omitempty" mapstructure:"session"`
}

// JobConfig holds the per-batch conversion parameters.
type JobConfig struct {
	// BinaryProperty names the payload that holds the Markdown source (default "data").
	BinaryProperty string `json:"binary_property" yaml:"binary_property" mapstructure:"binary_property"`

	// ReferenceProperty names the payload that holds a reference docx.
	// Only used for docx output; empty disables the reference document.
	ReferenceProperty string `json:"reference_property" yaml:"reference_property" mapstructure:"reference_property"`

	// Format is the conversion target: pdf or docx.
	Format Format `json:"format" yaml:"format" mapstructure:"format"`

	// Options holds extra pandoc arguments, split on whitespace.
	Options string `json:"options" yaml:"options" mapstructure:"options"`

	// Template overrides ConverterConfig.Template for this batch.
	Template string `json:"template,omitempty" yaml:"template,omitempty" mapstructure:"template"`

	// ContinueOnFail records failures as error items instead of aborting the batch.
	ContinueOnFail bool `json:"continue_on_fail" yaml:"continue_on_fail" mapstructure:"continue_on_fail"`

	// InferTitle passes the first level-1 heading as title metadata to PDF
	// jobs whose source has no front matter title.
	InferTitle bool `json:"infer_title" yaml:"infer_title" mapstructure:"infer_title"`
}

// HistoryConfig holds settings for the run history database.
type HistoryConfig struct {
	// Path is the SQLite database file (default ".mdto/history.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Disabled turns off history recording.
	Disabled bool `json:"disabled" yaml:"disabled" mapstructure:"disabled"`
}

// Config groups all configuration sections.
type Config struct {
	Converter ConverterConfig `json:"converter" yaml:"converter" mapstructure:"converter"`
	Workspace WorkspaceConfig `json:"workspace" yaml:"workspace" mapstructure:"workspace"`
	Job       JobConfig       `json:"job" yaml:"job" mapstructure:"job"`
	History   HistoryConfig   `json:"history" yaml:"history" mapstructure:"history"`
	LogLevel  string          `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}

// Defaults applied by WithDefaults.
const (
	DefaultBinary         = "pandoc"
	DefaultImage          = "pandoc/extra"
	DefaultTemplate       = "eisvogel"
	DefaultWorkspaceRoot  = "."
	DefaultBinaryProperty = "data"
	DefaultHistoryPath    = ".mdto/history.db"
)

// WithDefaults returns a copy of c with empty fields set to their defaults.
// Template is left alone: the CLI seeds it with DefaultTemplate so users can
// clear it explicitly.
func (c Config) WithDefaults() Config {
	if c.Converter.Binary == "" {
		c.Converter.Binary = DefaultBinary
	}
	if c.Converter.Container == "" {
		c.Converter.Container = "none"
	}
	if c.Converter.Image == "" {
		c.Converter.Image = DefaultImage
	}
	if c.Workspace.Root == "" {
		c.Workspace.Root = DefaultWorkspaceRoot
	}
	if c.Job.BinaryProperty == "" {
		c.Job.BinaryProperty = DefaultBinaryProperty
	}
	if c.Job.Format == "" {
		c.Job.Format = FormatPDF
	}
	if c.History.Path == "" {
		c.History.Path = DefaultHistoryPath
	}
	return c
}
