package commands

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/wikidom/internal/cli/output"
	"github.com/leapstack-labs/wikidom/internal/config"
	"github.com/leapstack-labs/wikidom/internal/pagestore"
	"github.com/leapstack-labs/wikidom/pkg/ast"
	"github.com/leapstack-labs/wikidom/pkg/compiler"
	"github.com/leapstack-labs/wikidom/pkg/site"
)

// SourceExt is the extension of wikitext page sources.
const SourceExt = ".wiki"

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Store    *pagestore.Store // nil without a configured index
	Resolver site.Resolver
	Compiler *compiler.Compiler
}

// NewCommandContext creates a CommandContext. Pages resolves red links;
// when nil, the configured page index (if any) or known_pages is used.
// The cleanup function must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command, pages site.Lookup) (*CommandContext, func(), error) {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	cc := &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr()),
	}
	cleanup := func() {
		if cc.Store != nil {
			_ = cc.Store.Close()
		}
	}

	if cfg.Index != "" {
		store, err := openIndex(cfg.Index, logger)
		if err != nil {
			return nil, nil, err
		}
		cc.Store = store
		if pages == nil {
			pages = store
		}
	}

	compCfg, err := cfg.CompilerConfig(pages, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	comp, err := compiler.New(compCfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cc.Resolver = compCfg.Builder.Resolver
	cc.Compiler = comp
	return cc, cleanup, nil
}

func openIndex(path string, logger *slog.Logger) (*pagestore.Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}
	return pagestore.Open(path, logger)
}

// PageName returns the expanded page name for a source file relative to
// root: "Help/Main_Page.wiki" becomes "Help:Main Page".
func (cc *CommandContext) PageName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	name := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
	name = strings.ReplaceAll(name, "/", ":")
	return cc.Resolver.Expand(cc.Resolver.Canonicalize(name))
}

// Compile compiles the content of one source file. Files ending in .yaml
// or .yml hold an encoded parse tree instead of wikitext.
func (cc *CommandContext) Compile(path string, data []byte, title string) (*compiler.Result, error) {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		doc, err := ast.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return cc.Compiler.Compile(doc)
	default:
		return cc.Compiler.CompileSource(string(data), title)
	}
}

// sourcePath maps an expanded page name back to its file under root.
func sourcePath(root, name string) string {
	rel := strings.ReplaceAll(strings.ReplaceAll(name, " ", "_"), ":", "/")
	return filepath.Join(root, filepath.FromSlash(rel)+SourceExt)
}

// findSources expands directories in args to the page sources they
// contain. Each source is returned with the directory it was found under.
func findSources(args []string) ([]source, error) {
	var out []source
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, source{root: filepath.Dir(arg), path: arg})
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == SourceExt {
				out = append(out, source{root: arg, path: path})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out, nil
}

type source struct {
	root string
	path string
}

// dirPages is a site.Lookup over the page sources in a directory.
type dirPages struct {
	root string
}

func (d dirPages) PageExists(name string) bool {
	_, err := os.Stat(sourcePath(d.root, name))
	return err == nil
}
