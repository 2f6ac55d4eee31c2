// Package config provides layered configuration for wikidom.
//
// Values are resolved from, in increasing precedence: built-in defaults,
// a wikidom.yaml (or wikidom.yml) file, WIKIDOM_* environment variables,
// and command-line flags that were explicitly set.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/leapstack-labs/wikidom/pkg/builder"
	"github.com/leapstack-labs/wikidom/pkg/compiler"
	"github.com/leapstack-labs/wikidom/pkg/format"
	"github.com/leapstack-labs/wikidom/pkg/site"
	"github.com/leapstack-labs/wikidom/pkg/toc"
)

// Default configuration values.
const (
	DefaultLanguage    = "en"
	DefaultArticlePath = "/wiki/"
	DefaultScriptPath  = "/index.php"
	DefaultOutput      = "auto" // TTY=pretty, otherwise html
	DefaultMinHeadings = 4
	DefaultPort        = 8080
)

// TOCConfig holds table of contents settings.
type TOCConfig struct {
	MinHeadings int `koanf:"min_headings"`
	MaxLevel    int `koanf:"max_level"` // 0 = no limit
}

// Config holds all wikidom configuration options.
type Config struct {
	Language     string            `koanf:"language"`
	ArticlePath  string            `koanf:"article_path"`
	ScriptPath   string            `koanf:"script_path"`
	CapitalLinks bool              `koanf:"capital_links"`
	EditSections bool              `koanf:"edit_sections"`
	TOC          TOCConfig         `koanf:"toc"`
	Output       string            `koanf:"output"`
	Index        string            `koanf:"index"`      // page index database, empty for none
	Namespaces   string            `koanf:"namespaces"` // YAML namespace table, empty for built-in
	KnownPages   []string          `koanf:"known_pages"`
	Messages     map[string]string `koanf:"messages"`
	Jobs         int               `koanf:"jobs"`
	Port         int               `koanf:"port"`
	Verbose      bool              `koanf:"verbose"`
}

// Default returns the configuration used when nothing else is set. It
// matches what Load produces without a file, env vars or flags.
func Default() *Config {
	return &Config{
		Language:     DefaultLanguage,
		ArticlePath:  DefaultArticlePath,
		ScriptPath:   DefaultScriptPath,
		CapitalLinks: true,
		TOC:          TOCConfig{MinHeadings: DefaultMinHeadings},
		Output:       DefaultOutput,
		Jobs:         runtime.NumCPU(),
		Port:         DefaultPort,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := c.OutputKind(false); err != nil {
		return err
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if c.TOC.MinHeadings < 1 {
		return fmt.Errorf("toc.min_headings must be at least 1, got %d", c.TOC.MinHeadings)
	}
	if c.TOC.MaxLevel < 0 || c.TOC.MaxLevel > 6 {
		return fmt.Errorf("toc.max_level must be between 0 and 6, got %d", c.TOC.MaxLevel)
	}
	return nil
}

// OutputKind resolves the output setting. "auto" selects indented HTML
// on a terminal and plain HTML otherwise.
func (c *Config) OutputKind(tty bool) (format.Kind, error) {
	if c.Output == "" || c.Output == "auto" {
		if tty {
			return format.KindPretty, nil
		}
		return format.KindHTML, nil
	}
	return format.ParseKind(c.Output)
}

// SiteConfig returns the site settings. A non-nil pages lookup takes
// precedence over known_pages.
func (c *Config) SiteConfig(pages site.Lookup) (site.Config, error) {
	sc := site.Config{
		Language:     c.Language,
		CapitalLinks: c.CapitalLinks,
		ArticlePath:  c.ArticlePath,
		ScriptPath:   c.ScriptPath,
		Pages:        pages,
	}
	if sc.Pages == nil && len(c.KnownPages) > 0 {
		sc.Pages = site.NewPageSet(c.KnownPages...)
	}
	if c.Namespaces != "" {
		data, err := os.ReadFile(c.Namespaces)
		if err != nil {
			return site.Config{}, fmt.Errorf("read namespaces: %w", err)
		}
		ns, err := site.ParseNamespaces(data, c.Language)
		if err != nil {
			return site.Config{}, err
		}
		sc.Namespaces = ns
	}
	return sc, nil
}

// CompilerConfig returns the settings for a compiler.
func (c *Config) CompilerConfig(pages site.Lookup, logger *slog.Logger) (compiler.Config, error) {
	sc, err := c.SiteConfig(pages)
	if err != nil {
		return compiler.Config{}, err
	}
	catalog, err := site.NewCatalog(c.Language, c.Messages)
	if err != nil {
		return compiler.Config{}, err
	}
	return compiler.Config{
		Builder: builder.Config{
			Resolver: site.New(sc),
			Messages: catalog,
		},
		TOC: toc.Options{
			MinHeadings: c.TOC.MinHeadings,
			MaxLevel:    c.TOC.MaxLevel,
		},
		EditSections: c.EditSections,
		Logger:       logger,
	}, nil
}

// resolvePaths makes relative file settings relative to baseDir.
func (c *Config) resolvePaths(baseDir string) {
	c.Index = resolvePathRelativeTo(c.Index, baseDir)
	c.Namespaces = resolvePathRelativeTo(c.Namespaces, baseDir)
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
