package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/wikidom/pkg/ast"
	"github.com/leapstack-labs/wikidom/pkg/wikitext"
)

// ParseOptions holds options for the parse command.
type ParseOptions struct {
	Sections bool
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the parse tree of a page as YAML",
		Long: `Parse a wikitext page and print its parse tree as YAML. The output can be
edited and compiled again with "wikidom build page.yaml".`,
		Example: `  wikidom parse Main_Page.wiki > Main_Page.yaml
  wikidom parse Main_Page.wiki --sections`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Sections, "sections", false, "Record section metadata for edit links")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := wikitext.Parse(string(data), wikitext.Options{
		Title:        cc.PageName(filepath.Dir(path), path),
		EditSections: opts.Sections || cc.Cfg.EditSections,
		Logger:       cc.Logger,
	})
	if err != nil {
		return err
	}
	return ast.Encode(cc.Renderer.Writer(), doc)
}
