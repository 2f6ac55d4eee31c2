package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/wikidom/internal/cli/output"
	"github.com/leapstack-labs/wikidom/internal/pagestore"
)

// ErrNoIndex is returned by commands that need a page index when none
// is configured.
var ErrNoIndex = errors.New("no page index configured (set index in wikidom.yaml or pass --index)")

// IndexOptions holds options for the index command.
type IndexOptions struct {
	List  bool
	Prune bool
}

// NewIndexCommand creates the index command.
func NewIndexCommand() *cobra.Command {
	opts := &IndexOptions{}

	cmd := &cobra.Command{
		Use:   "index [dir]...",
		Short: "Record page sources in the page index",
		Long: `Scan directories for *.wiki files and record each page in the page index.
The index decides which links point to existing pages and lets build skip
unchanged pages.`,
		Example: `  wikidom index pages/ --index .wikidom/pages.db
  wikidom index --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.List, "list", "l", false, "List indexed pages")
	cmd.Flags().BoolVar(&opts.Prune, "prune", true, "Remove pages whose sources no longer exist")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string, opts *IndexOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, nil)
	if err != nil {
		return err
	}
	defer cleanup()
	if cc.Store == nil {
		return ErrNoIndex
	}
	ctx := cmd.Context()

	if len(args) > 0 {
		if err := indexSources(cc, cmd, args, opts.Prune); err != nil {
			return err
		}
	}
	if !opts.List {
		if len(args) == 0 {
			return fmt.Errorf("nothing to do: pass a directory to index or --list")
		}
		return nil
	}

	pages, err := cc.Store.ListPages(ctx)
	if err != nil {
		return err
	}
	r := cc.Renderer
	if len(pages) == 0 {
		r.Println("(0 pages)")
		return nil
	}
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Page", "Source", "Hash", "Updated"})
	for _, p := range pages {
		t.AppendRow(table.Row{p.Name, p.Path, shortHash(p.ContentHash), p.UpdatedAt.Local().Format("2006-01-02 15:04")})
	}
	t.Render()
	r.Printf("(%d pages)\n", len(pages))
	return nil
}

func indexSources(cc *CommandContext, cmd *cobra.Command, args []string, prune bool) (err error) {
	ctx := cmd.Context()
	sources, err := findSources(args)
	if err != nil {
		return err
	}

	run, err := cc.Store.CreateRun(ctx)
	if err != nil {
		return err
	}
	indexed := 0
	defer func() {
		if cerr := cc.Store.CompleteRun(ctx, run.ID, indexed, err); cerr != nil {
			cc.Logger.Warn("failed to record run", "run", run.ID, "error", cerr)
		}
	}()

	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		data, err := os.ReadFile(src.path)
		if err != nil {
			return err
		}
		name := cc.PageName(src.root, src.path)
		seen[name] = true
		err = cc.Store.UpsertPage(ctx, pagestore.Page{
			Name:        name,
			Path:        src.path,
			ContentHash: pagestore.HashContent(data),
		})
		if err != nil {
			return err
		}
		indexed++
		cc.Renderer.StatusLine(name, output.StatusSuccess, src.path)
	}

	if prune {
		pages, err := cc.Store.ListPages(ctx)
		if err != nil {
			return err
		}
		for _, p := range pages {
			if seen[p.Name] || fileExists(p.Path) {
				continue
			}
			if err := cc.Store.DeletePage(ctx, p.Name); err != nil {
				return err
			}
			cc.Renderer.StatusLine(p.Name, output.StatusSkipped, "removed")
		}
	}

	cc.Renderer.Success(fmt.Sprintf("Indexed %d pages", indexed))
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
