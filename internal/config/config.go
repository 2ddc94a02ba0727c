package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
)

// Remote provider identifiers.
const (
	ProviderGitHub = "github"
	ProviderGit    = "git"
)

// Config is the publish-time description of a book.
type Config struct {
	BookRepo          string         `yaml:"book_repo"`
	PublicHost        string         `yaml:"public_host"`
	PublicScheme      string         `yaml:"public_scheme,omitempty"`
	Sections          []Section      `yaml:"sections"`
	Versions          []string       `yaml:"versions,omitempty"`
	VersionSourcePath string         `yaml:"version_source_path,omitempty"` // master source path inside a book version snapshot
	MasterDir         string         `yaml:"master_dir,omitempty"`
	OutputDir         string         `yaml:"output_dir,omitempty"`
	FinalAppDir       string         `yaml:"final_app_dir,omitempty"`
	TemplateAppDir    string         `yaml:"template_app_dir,omitempty"`
	TemplateVariables map[string]any `yaml:"template_variables,omitempty"`
	LocalRepoDir      string         `yaml:"local_repo_dir,omitempty"`
	PDF               *PDFConfig     `yaml:"pdf,omitempty"`
	Renderer          RendererConfig `yaml:"renderer,omitempty"`
	Remote            RemoteConfig   `yaml:"remote,omitempty"`
	Cache             CacheConfig    `yaml:"cache,omitempty"`
	Notify            NotifyConfig   `yaml:"notify,omitempty"`
	Metrics           MetricsConfig  `yaml:"metrics,omitempty"`
	Watch             WatchConfig    `yaml:"watch,omitempty"`
}

// Section is one documentation unit mounted into the site.
type Section struct {
	Repository RepositoryRef `yaml:"repository"`
	Directory  string        `yaml:"directory,omitempty"`
}

// RepositoryRef identifies a repository (owner/name) and an optional immutable ref.
type RepositoryRef struct {
	Name string `yaml:"name"`
	Ref  string `yaml:"ref,omitempty"`
}

// ShortName returns the last path element of the repository name.
func (r RepositoryRef) ShortName() string {
	return path.Base(strings.TrimSuffix(r.Name, "/"))
}

// MountDir is the section's path under the site source tree.
func (s Section) MountDir() string {
	if s.Directory != "" {
		return strings.Trim(path.Clean(s.Directory), "/")
	}
	return s.Repository.ShortName()
}

// PDFConfig selects the page printed by the PDF collaborator.
type PDFConfig struct {
	Page     string `yaml:"page"`
	Filename string `yaml:"filename"`
	Header   string `yaml:"header,omitempty"`
	Command  string `yaml:"command,omitempty"`
}

// RendererConfig describes the external site generator invocation.
type RendererConfig struct {
	Command  []string `yaml:"command,omitempty"`
	BuildDir string   `yaml:"build_dir,omitempty"`
}

// RemoteConfig configures remote snapshot fetching.
type RemoteConfig struct {
	Provider    string `yaml:"provider,omitempty"` // github|git
	APIURL      string `yaml:"api_url,omitempty"`
	URLTemplate string `yaml:"url_template,omitempty"` // git clone URL, %s is owner/name
	Token       string `yaml:"token,omitempty"`
	CacheDir    string `yaml:"cache_dir,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`
}

// CacheConfig configures the modification cache store.
type CacheConfig struct {
	Path string `yaml:"path,omitempty"`
}

// NotifyConfig configures broken-link event publication.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint used in watch mode.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// WatchConfig tunes the watch loop.
type WatchConfig struct {
	Debounce     time.Duration `yaml:"debounce,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
}

// Load reads, expands, defaults and validates the configuration at configPath.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Fatal().
			Build()
	}
	return Parse(data)
}

// Parse decodes raw YAML after environment expansion.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFiles loads the first of .env/.env.local present. Existing process
// variables win.
func loadEnvFiles() {
	for _, p := range []string{".env", ".env.local"} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err == nil {
			return
		}
	}
}

// String renders a one-line summary for logs.
func (c *Config) String() string {
	return fmt.Sprintf("book=%s host=%s sections=%d versions=%d", c.BookRepo, c.PublicHost, len(c.Sections), len(c.Versions))
}
