package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	rerrors "git.home.luguber.info/inful/rstprep/internal/errors"
)

// DefaultConfigFile is the configuration file looked up when none is given.
const DefaultConfigFile = "rstprep.yaml"

// Config represents the application configuration
type Config struct {
	ProjectRoot string          `yaml:"project_root"`
	DocsDir     string          `yaml:"docs_dir"`
	Documents   []Document      `yaml:"documents"`
	Traversal   TraversalConfig `yaml:"traversal"`
	Rewrite     RewriteConfig   `yaml:"rewrite"`
	Denumber    DenumberConfig  `yaml:"denumber"`
	Build       BuildConfig     `yaml:"build"`
	Metrics     MetricsConfig   `yaml:"metrics"`
	History     HistoryConfig   `yaml:"history"`
}

// Document is one top-level reST document and the paths it is built from.
type Document struct {
	Name      string `yaml:"name"`
	Source    string `yaml:"source"`
	SourceDir string `yaml:"source_dir"`
	FinalPath string `yaml:"final_path"`
	BuildDir  string `yaml:"build_dir"`
}

// TraversalConfig controls include discovery.
type TraversalConfig struct {
	Mode        TraversalMode `yaml:"mode"`
	ChildTarget string        `yaml:"child_target"` // document whose build_dir anchors nested includes
}

// RewriteConfig holds the directive token and file extension the rewriter matches.
type RewriteConfig struct {
	Marker    string `yaml:"marker"`
	Extension string `yaml:"extension"`
}

// DenumberConfig holds the title decoration prefix and the replacement heading token.
type DenumberConfig struct {
	Decoration string `yaml:"decoration"`
	Heading    string `yaml:"heading"`
}

// BuildConfig configures the external tools.
type BuildConfig struct {
	PrebuildScript string        `yaml:"prebuild_script"`
	Command        []string      `yaml:"command"`
	OutputSubdir   string        `yaml:"output_subdir"`
	CombinedDir    string        `yaml:"combined_dir"`
	StrictExit     bool          `yaml:"strict_exit"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// HistoryConfig configures the SQLite run history.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Default returns the built-in TriBITS documentation layout.
func Default() *Config {
	return &Config{
		DocsDir: filepath.Join("tribits", "doc"),
		Documents: []Document{
			{
				Name:      "maintainers_guide",
				Source:    "guides/maintainers_guide/TribitsMaintainersGuide.rst",
				SourceDir: "guides/maintainers_guide",
				FinalPath: "sphinx/maintainers_guide/index.rst",
				BuildDir:  "sphinx/maintainers_guide",
			},
			{
				Name:      "users_guide",
				Source:    "guides/users_guide/TribitsUsersGuide.rst",
				SourceDir: "guides/users_guide",
				FinalPath: "sphinx/users_guide/index.rst",
				BuildDir:  "sphinx/users_guide",
			},
			{
				Name:      "build_ref",
				Source:    "build_ref/TribitsBuildReference.rst",
				SourceDir: "build_ref",
				FinalPath: "sphinx/build_ref/index.rst",
				BuildDir:  "sphinx/build_ref",
			},
		},
		Traversal: TraversalConfig{
			Mode:        TraversalFixed,
			ChildTarget: "maintainers_guide",
		},
		Rewrite: RewriteConfig{
			Marker:    "include::",
			Extension: ".rst",
		},
		Denumber: DenumberConfig{
			Decoration: "=====",
			Heading:    ".. rubric::",
		},
		Build: BuildConfig{
			PrebuildScript: "build_docs.sh",
			Command:        []string{"make", "html"},
			OutputSubdir:   filepath.Join("_build", "html"),
			CombinedDir:    filepath.Join("sphinx", "combined_docs"),
		},
	}
}

// Load loads configuration from the specified file. Fields the file leaves
// out take their default values. The TriBITS layout (documents, docs_dir,
// pre-build script) only applies when the file lists no documents.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, rerrors.ConfigNotFound(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, rerrors.Wrap(err, rerrors.CategoryConfig, rerrors.SeverityFatal, "failed to unmarshal config").
			WithContext("path", configPath)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist.
func LoadOrDefault(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		loadEnvFile()
		cfg := Default()
		return cfg, cfg.Validate()
	}
	return Load(configPath)
}

func (c *Config) applyDefaults() {
	def := Default()
	if len(c.Documents) == 0 {
		c.Documents = def.Documents
		if c.DocsDir == "" {
			c.DocsDir = def.DocsDir
		}
		if c.Build.PrebuildScript == "" {
			c.Build.PrebuildScript = def.Build.PrebuildScript
		}
	}
	if c.Traversal.Mode == "" {
		c.Traversal.Mode = def.Traversal.Mode
	}
	if c.Traversal.ChildTarget == "" && len(c.Documents) > 0 {
		c.Traversal.ChildTarget = c.Documents[0].Name
	}
	if c.Rewrite.Marker == "" {
		c.Rewrite.Marker = def.Rewrite.Marker
	}
	if c.Rewrite.Extension == "" {
		c.Rewrite.Extension = def.Rewrite.Extension
	}
	if c.Denumber.Decoration == "" {
		c.Denumber.Decoration = def.Denumber.Decoration
	}
	if c.Denumber.Heading == "" {
		c.Denumber.Heading = def.Denumber.Heading
	}
	if len(c.Build.Command) == 0 {
		c.Build.Command = def.Build.Command
	}
	if c.Build.OutputSubdir == "" {
		c.Build.OutputSubdir = def.Build.OutputSubdir
	}
	if c.Build.CombinedDir == "" {
		c.Build.CombinedDir = def.Build.CombinedDir
	}
	if traversalModes.Validate(string(c.Traversal.Mode)) == nil {
		c.Traversal.Mode = NormalizeTraversalMode(string(c.Traversal.Mode))
	}
}

// Document returns the document with the given name.
func (c *Config) Document(name string) (Document, bool) {
	for _, d := range c.Documents {
		if d.Name == name {
			return d, true
		}
	}
	return Document{}, false
}

// DocsRoot returns the directory relative document paths are resolved against.
func (c *Config) DocsRoot() string {
	return resolve(c.ProjectRoot, c.DocsDir)
}

// Resolve returns a copy of the configuration whose document, script and
// combined-output paths are absolute. Relative paths are anchored at
// root/docs_dir; a configured project_root wins over root.
func (c *Config) Resolve(root string) (*Config, error) {
	out := *c
	if out.ProjectRoot == "" {
		out.ProjectRoot = root
	}
	abs, err := filepath.Abs(out.ProjectRoot)
	if err != nil {
		return nil, rerrors.ProjectRootError(err)
	}
	out.ProjectRoot = abs

	base := out.DocsRoot()
	out.Documents = make([]Document, len(c.Documents))
	for i, d := range c.Documents {
		out.Documents[i] = Document{
			Name:      d.Name,
			Source:    resolve(base, d.Source),
			SourceDir: resolve(base, d.SourceDir),
			FinalPath: resolve(base, d.FinalPath),
			BuildDir:  resolve(base, d.BuildDir),
		}
	}
	out.Build.Command = append([]string(nil), c.Build.Command...)
	if out.Build.PrebuildScript != "" {
		out.Build.PrebuildScript = resolve(base, out.Build.PrebuildScript)
	}
	out.Build.CombinedDir = resolve(base, out.Build.CombinedDir)
	return &out, nil
}

func resolve(base, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// Init creates a new configuration file holding the default layout.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	header := "# rstprep configuration. Relative paths resolve against project_root/docs_dir.\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
