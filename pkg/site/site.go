// Package site resolves page names to canonical titles and URLs, and
// provides the localized interface messages used in generated markup.
package site

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title is a canonical page name within a namespace.
type Title struct {
	Namespace *Namespace
	Name      string
}

// Param is a query parameter for BuildURL.
type Param struct {
	Key   string
	Value string
}

// Action returns the action=v parameter.
func Action(v string) Param { return Param{Key: "action", Value: v} }

// Section returns the section=n parameter.
func Section(n int) Param { return Param{Key: "section", Value: strconv.Itoa(n)} }

// Redlink returns the redlink=1 parameter.
func Redlink() Param { return Param{Key: "redlink", Value: "1"} }

// paramOrder fixes the order of known parameters in generated URLs.
var paramOrder = []string{"action", "section", "redlink"}

// Resolver resolves link targets.
type Resolver interface {
	// Canonicalize splits a raw link target into namespace and page name.
	Canonicalize(name string) Title
	// Exists reports whether the page exists.
	Exists(t Title) bool
	// Expand returns the display form "Namespace:Name".
	Expand(t Title) string
	// BuildURL returns the URL of the page with optional query parameters.
	BuildURL(t Title, params ...Param) string
}

// Lookup answers page existence queries by expanded page name.
type Lookup interface {
	PageExists(name string) bool
}

// PageSet is a Lookup over a fixed set of expanded page names.
type PageSet map[string]struct{}

// NewPageSet returns a PageSet containing names.
func NewPageSet(names ...string) PageSet {
	s := make(PageSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// PageExists implements Lookup.
func (s PageSet) PageExists(name string) bool {
	_, ok := s[name]
	return ok
}

// Config configures a Site.
type Config struct {
	Language     string
	CapitalLinks bool
	ArticlePath  string // prefix of plain page URLs
	ScriptPath   string // script for URLs with parameters
	Namespaces   *Namespaces
	// Pages answers existence queries. Nil means every page exists.
	Pages Lookup
}

// DefaultConfig returns the settings of a stock English wiki.
func DefaultConfig() Config {
	return Config{
		Language:     "en",
		CapitalLinks: true,
		ArticlePath:  "/wiki/",
		ScriptPath:   "/index.php",
	}
}

// Site is the default Resolver.
type Site struct {
	cfg Config
	ns  *Namespaces
	tag language.Tag
}

var _ Resolver = (*Site)(nil)

// New returns a Site for cfg. Empty fields take their DefaultConfig value.
func New(cfg Config) *Site {
	def := DefaultConfig()
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.ArticlePath == "" {
		cfg.ArticlePath = def.ArticlePath
	}
	if cfg.ScriptPath == "" {
		cfg.ScriptPath = def.ScriptPath
	}
	ns := cfg.Namespaces
	if ns == nil {
		ns = DefaultNamespaces(cfg.Language)
	}
	tag, err := language.Parse(cfg.Language)
	if err != nil {
		tag = language.English
	}
	return &Site{cfg: cfg, ns: ns, tag: tag}
}

// Language returns the configured language code.
func (s *Site) Language() string { return s.cfg.Language }

// Canonicalize implements Resolver. Underscores become spaces, whitespace
// runs collapse, a known namespace prefix is split off and, with capital
// links, the first letter of the name is upper-cased.
func (s *Site) Canonicalize(name string) Title {
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.Join(strings.Fields(name), " ")

	t := Title{Namespace: s.ns.Main()}
	if i := strings.IndexByte(name, ':'); i >= 0 {
		prefix := strings.ToLower(strings.TrimSpace(name[:i]))
		if ns := s.ns.Find(prefix); ns != nil {
			t.Namespace = ns
			name = strings.TrimSpace(name[i+1:])
		}
	}
	if s.cfg.CapitalLinks && name != "" {
		_, size := utf8.DecodeRuneInString(name)
		// cases.Caser is not safe for concurrent use.
		name = cases.Upper(s.tag).String(name[:size]) + name[size:]
	}
	t.Name = name
	return t
}

// Exists implements Resolver.
func (s *Site) Exists(t Title) bool {
	if s.cfg.Pages == nil {
		return true
	}
	return s.cfg.Pages.PageExists(s.Expand(t))
}

// Expand implements Resolver.
func (s *Site) Expand(t Title) string {
	if t.Namespace == nil || t.Namespace.Prefix == "" {
		return t.Name
	}
	return t.Namespace.CanonicalName(s.cfg.Language) + ":" + t.Name
}

// BuildURL implements Resolver. Without parameters it returns the article
// path; otherwise the script path with title and the known parameters in
// the order action, section, redlink, followed by any others.
func (s *Site) BuildURL(t Title, params ...Param) string {
	name := strings.ReplaceAll(s.Expand(t), " ", "_")
	if len(params) == 0 {
		return s.cfg.ArticlePath + name
	}

	var sb strings.Builder
	sb.WriteString(s.cfg.ScriptPath)
	sb.WriteString("?title=")
	sb.WriteString(name)
	used := make([]bool, len(params))
	write := func(i int) {
		used[i] = true
		sb.WriteByte('&')
		sb.WriteString(params[i].Key)
		sb.WriteByte('=')
		sb.WriteString(params[i].Value)
	}
	for _, key := range paramOrder {
		for i, p := range params {
			if !used[i] && p.Key == key {
				write(i)
			}
		}
	}
	for i := range params {
		if !used[i] {
			write(i)
		}
	}
	return sb.String()
}
