package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/linkgraph/internal/builder"
	"github.com/starford/linkgraph/internal/parser"
	"github.com/starford/linkgraph/internal/storage"
	"github.com/starford/linkgraph/internal/watcher"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Site    SiteConfig        `yaml:"site"`
	Content ContentConfig     `yaml:"content"`
	Graph   GraphConfig       `yaml:"graph"`
	Watch   WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Site.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.Graph.Validate(); err != nil {
		return err
	}
	return c.Watch.Validate()
}

// BuildSettings maps the configuration onto builder settings.
func (c *Config) BuildSettings() builder.Settings {
	return builder.Settings{
		PostsDir:        c.Content.Posts,
		SnippetsDir:     c.Content.Snippets,
		Output:          c.Graph.Output,
		HiddenConfig:    c.Graph.HiddenConfig,
		QualityMetadata: c.Graph.QualityMetadata,
		ExcludedTags:    c.Graph.ExcludedTags,
	}
}

// StorageOptions maps the content section onto storage options.
func (c *Config) StorageOptions() []storage.FSOption {
	return []storage.FSOption{
		storage.WithContentFiles(c.Content.Files...),
		storage.WithExcludePrefix(c.Content.ExcludePrefix),
	}
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds preview server configuration.
type HTTPConfig struct {
	Port        int    `yaml:"port"`
	AllowOrigin string `yaml:"allow_origin"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SiteConfig locates the site; every other path is relative to Root.
type SiteConfig struct {
	Root string `yaml:"root"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
	)
}

// ContentConfig describes the two content collections.
type ContentConfig struct {
	Posts         string   `yaml:"posts"`
	Snippets      string   `yaml:"snippets"`
	ExcludePrefix string   `yaml:"exclude_prefix"`
	Files         []string `yaml:"files"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Posts, validation.Required),
		validation.Field(&c.Snippets, validation.Required),
		validation.Field(&c.Files, validation.Required, validation.Each(validation.Required)),
	)
}

// GraphConfig holds the artifact location and the side-car files.
type GraphConfig struct {
	Output          string   `yaml:"output"`
	HiddenConfig    string   `yaml:"hidden_config"`
	QualityMetadata string   `yaml:"quality_metadata"`
	ExcludedTags    []string `yaml:"excluded_tags"`
}

// Validate validates the graph configuration.
func (c *GraphConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Output, validation.Required),
	)
}

// WatchConfig tunes the development watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a Config matching the conventional site layout.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:        8080,
				AllowOrigin: "*",
			},
		},
		Site: SiteConfig{
			Root: ".",
		},
		Content: ContentConfig{
			Posts:         "content/posts",
			Snippets:      "content/snippets",
			ExcludePrefix: storage.DefaultExcludePrefix,
			Files:         append([]string(nil), storage.DefaultContentFiles...),
		},
		Graph: GraphConfig{
			Output:          "public/graph-data.json",
			HiddenConfig:    "scripts/hidden_snippets.json",
			QualityMetadata: "content/snippets/_metadata.json",
			ExcludedTags:    append([]string(nil), parser.DefaultExcludedTags...),
		},
		Watch: WatchConfig{
			Debounce: watcher.DefaultDebounce,
		},
	}
}
