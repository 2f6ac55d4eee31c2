package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/wikidom/pkg/ast"
	"github.com/leapstack-labs/wikidom/pkg/format"
	"github.com/leapstack-labs/wikidom/pkg/wikitext"
)

const (
	replPrompt     = "wikidom> "
	replContPrompt = "    ...> "
	replTitle      = "Sandbox"
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Compile wikitext interactively",
		Long: `Start an interactive session that compiles each entered snippet and prints
the result. End a line with a backslash to continue the snippet on the next
line. Type .help for commands.`,
		Example: `  wikidom repl
  wikidom repl -o markdown`,
		Args: cobra.NoArgs,
		RunE: runREPL,
	}
}

func runREPL(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	kind, err := cc.Cfg.OutputKind(cc.Renderer.IsTTY())
	if err != nil {
		return err
	}
	sess := &replSession{cc: cc, kind: kind, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}

	var history string
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".wikidom_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     history,
		AutoComplete:    replCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(sess.out, "wikidom REPL (output: %s)\n", kind)
	_, _ = fmt.Fprintln(sess.out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(sess.out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			sess.buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if sess.feed(line) {
			return nil
		}
		if sess.buf.Len() > 0 {
			rl.SetPrompt(replContPrompt)
		} else {
			rl.SetPrompt(replPrompt)
		}
	}
}

// replSession holds the state of one interactive session.
type replSession struct {
	cc     *CommandContext
	kind   format.Kind
	out    io.Writer
	errOut io.Writer
	buf    strings.Builder
	last   string // last compiled snippet, for .tree
}

// feed processes one input line and reports whether the session should end.
func (s *replSession) feed(line string) bool {
	if s.buf.Len() == 0 && strings.HasPrefix(strings.TrimSpace(line), ".") {
		return s.dot(strings.TrimSpace(line))
	}
	if cont, ok := strings.CutSuffix(line, `\`); ok {
		s.buf.WriteString(cont)
		s.buf.WriteByte('\n')
		return false
	}
	s.buf.WriteString(line)
	src := s.buf.String()
	s.buf.Reset()
	if strings.TrimSpace(src) == "" {
		return false
	}
	if err := s.eval(src); err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
	}
	return false
}

// eval compiles a snippet and prints it in the current output kind.
func (s *replSession) eval(src string) error {
	s.last = src
	res, err := s.cc.Compiler.CompileSource(src+"\n", replTitle)
	if err != nil {
		return err
	}
	if s.kind == format.KindHTML {
		out, err := format.HTML(res.Root)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(s.out, out)
		return err
	}
	return format.Write(s.out, res.Root, s.kind, replTitle)
}

func (s *replSession) dot(line string) bool {
	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.out)

	case ".format":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(s.out, "Output: %s\n", s.kind)
			return false
		}
		kind, err := format.ParseKind(parts[1])
		if err != nil {
			_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
			return false
		}
		s.kind = kind

	case ".tree":
		if s.last == "" {
			_, _ = fmt.Fprintln(s.errOut, "Nothing compiled yet")
			return false
		}
		doc, err := wikitext.Parse(s.last+"\n", wikitext.Options{Title: replTitle, Logger: s.cc.Logger})
		if err == nil {
			err = ast.Encode(s.out, doc)
		}
		if err != nil {
			_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
		}

	default:
		_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (type .help for commands)\n", parts[0])
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help                         Show this help message
  .format html|pretty|markdown  Set or show the output format
  .tree                         Show the parse tree of the last snippet
  .quit / .exit                 Exit the REPL

Tips:
  - End a line with \ to continue the snippet on the next line
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

func replCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".format",
			readline.PcItem("html"),
			readline.PcItem("pretty"),
			readline.PcItem("markdown"),
		),
		readline.PcItem(".tree"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
