package site

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/namespaces.yaml
var defaultNamespacesYAML []byte

// Namespace is a page namespace such as Talk or Help.
type Namespace struct {
	ID     int               `yaml:"id"`
	Prefix string            `yaml:"prefix"`
	Names  map[string]string `yaml:"names"`
}

// CanonicalName returns the display name of the namespace in lang, falling
// back to English and then to the prefix.
func (ns *Namespace) CanonicalName(lang string) string {
	if n, ok := ns.Names[lang]; ok {
		return n
	}
	if n, ok := ns.Names["en"]; ok {
		return n
	}
	return ns.Prefix
}

// Namespaces is a namespace table for one language.
type Namespaces struct {
	lang     string
	list     []*Namespace
	byPrefix map[string]*Namespace
	byLocal  map[string]*Namespace
}

// ParseNamespaces reads a YAML namespace table.
func ParseNamespaces(data []byte, lang string) (*Namespaces, error) {
	var list []*Namespace
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse namespaces: %w", err)
	}
	ns := &Namespaces{
		lang:     lang,
		list:     list,
		byPrefix: make(map[string]*Namespace, len(list)),
		byLocal:  make(map[string]*Namespace, len(list)),
	}
	for _, n := range list {
		if _, dup := ns.byPrefix[n.Prefix]; dup {
			return nil, fmt.Errorf("parse namespaces: duplicate prefix %q", n.Prefix)
		}
		ns.byPrefix[n.Prefix] = n
		if local, ok := n.Names[lang]; ok && lang != "en" {
			ns.byLocal[strings.ToLower(local)] = n
		}
	}
	if _, ok := ns.byPrefix[""]; !ok {
		return nil, fmt.Errorf("parse namespaces: no main namespace")
	}
	return ns, nil
}

// DefaultNamespaces returns the built-in namespace table.
func DefaultNamespaces(lang string) *Namespaces {
	ns, err := ParseNamespaces(defaultNamespacesYAML, lang)
	if err != nil {
		panic(err)
	}
	return ns
}

// Main returns the main (unprefixed) namespace.
func (n *Namespaces) Main() *Namespace { return n.byPrefix[""] }

// Find looks up a lower-case prefix, then a localized name.
func (n *Namespaces) Find(prefix string) *Namespace {
	if prefix == "" {
		return nil
	}
	if ns, ok := n.byPrefix[prefix]; ok {
		return ns
	}
	return n.byLocal[prefix]
}

// All returns the namespaces in table order.
func (n *Namespaces) All() []*Namespace {
	return append([]*Namespace(nil), n.list...)
}
