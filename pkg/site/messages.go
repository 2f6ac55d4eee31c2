package site

import (
	_ "embed"
	"fmt"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed data/messages.yaml
var defaultMessagesYAML []byte

// Message keys used in generated markup.
const (
	MsgTOC         = "toc"
	MsgMissing     = "missing"
	MsgEdit        = "edit"
	MsgEditSection = "editsection"
)

// Messages provides localized interface messages.
type Messages interface {
	Message(key string) string
}

// Catalog is a Messages implementation over a key -> language -> text
// table, resolved for one language.
type Catalog struct {
	lang      string
	texts     map[string]string
	overrides map[string]string
}

var _ Messages = (*Catalog)(nil)

// NewCatalog returns the built-in catalog resolved for lang. Overrides
// take precedence over catalog entries.
func NewCatalog(lang string, overrides map[string]string) (*Catalog, error) {
	return ParseCatalog(defaultMessagesYAML, lang, overrides)
}

// ParseCatalog reads a YAML message table and resolves it for lang using
// the closest language present in the table. English is the fallback.
func ParseCatalog(data []byte, lang string, overrides map[string]string) (*Catalog, error) {
	var table map[string]map[string]string
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse messages: %w", err)
	}

	want, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("parse messages: language %q: %w", lang, err)
	}

	c := &Catalog{lang: lang, texts: make(map[string]string, len(table)), overrides: overrides}
	for key, byLang := range table {
		c.texts[key] = pick(byLang, want)
	}
	return c, nil
}

// pick returns the text in the language closest to want.
func pick(byLang map[string]string, want language.Tag) string {
	tags := []language.Tag{language.English}
	texts := []string{byLang["en"]}
	for code, text := range byLang {
		if code == "en" {
			continue
		}
		tag, err := language.Parse(code)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		texts = append(texts, text)
	}
	_, idx, conf := language.NewMatcher(tags).Match(want)
	if conf == language.No {
		return texts[0]
	}
	return texts[idx]
}

// Language returns the requested language code.
func (c *Catalog) Language() string { return c.lang }

// Message implements Messages. Unknown keys return the key itself.
func (c *Catalog) Message(key string) string {
	if v, ok := c.overrides[key]; ok {
		return v
	}
	if v, ok := c.texts[key]; ok && v != "" {
		return v
	}
	return key
}
