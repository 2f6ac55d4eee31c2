package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/wikidom/internal/cli/output"
	"github.com/leapstack-labs/wikidom/internal/pagestore"
	"github.com/leapstack-labs/wikidom/pkg/compiler"
	"github.com/leapstack-labs/wikidom/pkg/format"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	OutDir string
	Watch  bool
	Force  bool
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build <file|dir>...",
		Short: "Compile wikitext pages to HTML or Markdown",
		Long: `Compile wikitext pages into finished documents.

A single file is written to stdout unless --out-dir is given. Directories
are searched for *.wiki files, and each page is written next to its source
or under --out-dir. With a page index configured, pages whose content is
unchanged since the last build are skipped.`,
		Example: `  # Print one page as HTML
  wikidom build Main_Page.wiki

  # Build a directory of pages as Markdown
  wikidom build pages/ --out-dir site/ -o markdown

  # Rebuild on change
  wikidom build pages/ --out-dir site/ --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutDir, "out-dir", "d", "", "Directory for compiled pages (default: next to sources)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Rebuild pages when their sources change")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Rebuild pages even when unchanged")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string, opts *BuildOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	sources, err := findSources(args)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no %s files found", SourceExt)
	}

	if len(sources) == 1 && sources[0].path == args[0] && opts.OutDir == "" && !opts.Watch {
		return buildToStdout(cc, sources[0])
	}

	b := &siteBuild{cc: cc, opts: opts}
	ctx := cmd.Context()
	err = b.buildAll(ctx, sources)
	if !opts.Watch {
		return err
	}
	if err != nil {
		cc.Renderer.Error(err.Error())
	}
	return b.watch(ctx, args)
}

func buildToStdout(cc *CommandContext, src source) error {
	data, err := os.ReadFile(src.path)
	if err != nil {
		return err
	}
	name := cc.PageName(src.root, src.path)
	res, err := cc.Compile(src.path, data, name)
	if err != nil {
		return err
	}
	kind, err := cc.Cfg.OutputKind(cc.Renderer.IsTTY())
	if err != nil {
		return err
	}
	return format.Write(cc.Renderer.Writer(), res.Root, kind, name)
}

// siteBuild compiles many pages in parallel.
type siteBuild struct {
	cc   *CommandContext
	opts *BuildOptions
	mu   sync.Mutex // guards status output
}

type buildStatus int

const (
	statusBuilt buildStatus = iota
	statusSkipped
)

func (b *siteBuild) buildAll(ctx context.Context, sources []source) error {
	cc := b.cc
	start := time.Now()

	var run *pagestore.Run
	if cc.Store != nil {
		var err error
		if run, err = cc.Store.CreateRun(ctx); err != nil {
			return err
		}
	}

	var (
		mu             sync.Mutex
		built, skipped int
		errs           []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cc.Cfg.Jobs))
	for _, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			status, err := b.buildOne(gctx, src)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				errs = append(errs, fmt.Errorf("%s: %w", src.path, err))
				b.status(src.path, output.StatusError, err.Error())
			case status == statusSkipped:
				skipped++
				b.status(src.path, output.StatusSkipped, "unchanged")
			default:
				built++
				b.status(src.path, output.StatusSuccess, "")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}
	buildErr := errors.Join(errs...)

	if run != nil {
		if err := cc.Store.CompleteRun(ctx, run.ID, built, buildErr); err != nil {
			cc.Logger.Warn("failed to record run", "run", run.ID, "error", err)
		}
	}

	cc.Logger.Debug("build finished", "built", built, "skipped", skipped,
		"failed", len(errs), "elapsed", time.Since(start).Round(time.Millisecond))
	if buildErr != nil {
		return buildErr
	}
	cc.Renderer.Success(fmt.Sprintf("Built %d pages (%d unchanged) in %s",
		built, skipped, time.Since(start).Round(time.Millisecond)))
	return nil
}

func (b *siteBuild) status(name, status, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cc.Renderer.StatusLine(name, status, detail)
}

func (b *siteBuild) buildOne(ctx context.Context, src source) (buildStatus, error) {
	cc := b.cc
	kind, err := cc.Cfg.OutputKind(false)
	if err != nil {
		return statusBuilt, err
	}
	data, err := os.ReadFile(src.path)
	if err != nil {
		return statusBuilt, err
	}
	name := cc.PageName(src.root, src.path)
	hash := pagestore.HashContent(data)
	outPath := b.outputPath(src, kind)

	if cc.Store != nil && !b.opts.Force {
		prev, err := cc.Store.ContentHash(ctx, name)
		if err != nil {
			return statusBuilt, err
		}
		if prev == hash && fileExists(outPath) {
			return statusSkipped, nil
		}
	}

	res, err := cc.Compile(src.path, data, name)
	if err != nil {
		return statusBuilt, err
	}
	if err := writeOutput(outPath, res, kind, name); err != nil {
		return statusBuilt, err
	}

	if cc.Store != nil {
		if err := cc.Store.UpsertPage(ctx, pagestore.Page{Name: name, Path: src.path, ContentHash: hash}); err != nil {
			return statusBuilt, err
		}
	}
	return statusBuilt, nil
}

func (b *siteBuild) outputPath(src source, kind format.Kind) string {
	base := strings.TrimSuffix(src.path, filepath.Ext(src.path)) + kind.Extension()
	if b.opts.OutDir == "" {
		return base
	}
	rel, err := filepath.Rel(src.root, base)
	if err != nil {
		rel = filepath.Base(base)
	}
	return filepath.Join(b.opts.OutDir, rel)
}

func writeOutput(path string, res *compiler.Result, kind format.Kind, title string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return format.Write(f, res.Root, kind, title)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// watch rebuilds changed sources until ctx is cancelled.
func (b *siteBuild) watch(ctx context.Context, args []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, arg := range args {
		dir := arg
		if !isDir(arg) {
			dir = filepath.Dir(arg)
		}
		if err := watchDirRecursive(watcher, dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	b.cc.Renderer.Success("Watching for changes. Press Ctrl+C to stop.")

	var (
		mu      sync.Mutex
		pending = map[string]source{}
		timer   *time.Timer
	)
	flush := func() {
		mu.Lock()
		batch := make([]source, 0, len(pending))
		for _, src := range pending {
			batch = append(batch, src)
		}
		pending = map[string]source{}
		mu.Unlock()

		if err := b.buildAll(ctx, batch); err != nil {
			b.cc.Renderer.Error(err.Error())
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 && isDir(event.Name) {
				_ = watchDirRecursive(watcher, event.Name)
				continue
			}
			src, ok := matchSource(args, event.Name)
			if !ok {
				continue
			}

			mu.Lock()
			pending[src.path] = src
			mu.Unlock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(100*time.Millisecond, flush)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.cc.Logger.Error("watcher error", "error", err)
		}
	}
}

// matchSource maps a changed path to the build argument it belongs to.
func matchSource(args []string, path string) (source, bool) {
	if filepath.Ext(path) != SourceExt {
		return source{}, false
	}
	for _, arg := range args {
		if !isDir(arg) {
			if filepath.Clean(arg) == filepath.Clean(path) {
				return source{root: filepath.Dir(arg), path: arg}, true
			}
			continue
		}
		rel, err := filepath.Rel(arg, path)
		if err == nil && !strings.HasPrefix(rel, "..") {
			return source{root: arg, path: path}, true
		}
	}
	return source{}, false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}
