package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/wikidom/pkg/format"
	"github.com/leapstack-labs/wikidom/pkg/toc"
)

// NewTOCCommand creates the toc command.
func NewTOCCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "toc <file>",
		Short: "Show the numbered outline of a page",
		Long: `Compile a page and print its headings with their outline numbers,
levels and anchors. Markdown output (-o markdown) prints a Markdown table.`,
		Example: `  wikidom toc Main_Page.wiki
  wikidom toc Main_Page.wiki -o markdown`,
		Args: cobra.ExactArgs(1),
		RunE: runTOC,
	}
}

func runTOC(cmd *cobra.Command, args []string) error {
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
	name := cc.PageName(filepath.Dir(path), path)
	res, err := cc.Compile(path, data, name)
	if err != nil {
		return err
	}

	kind, err := cc.Cfg.OutputKind(cc.Renderer.IsTTY())
	if err != nil {
		return err
	}
	if len(res.Headings) == 0 {
		cc.Renderer.Println("(no headings)")
		return nil
	}
	renderOutline(cc.Renderer.Writer(), res.Headings, kind == format.KindMarkdown)
	return nil
}

func renderOutline(w io.Writer, headings []toc.Heading, markdown bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Level", "Anchor", "Title"})
	for _, h := range headings {
		indent := strings.Repeat("  ", h.Depth()-1)
		t.AppendRow(table.Row{h.NumberString(), fmt.Sprintf("h%d", h.Level), h.Anchor, indent + h.Title()})
	}
	if markdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}
