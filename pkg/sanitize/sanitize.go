// Package sanitize holds the HTML entity table, the per-element attribute
// whitelist and the CSS filter applied to style attributes.
package sanitize

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/wikidom/pkg/dom"
)

// Sanitize filters raw attributes for an element with the given tag.
func Sanitize(tag string, raw []dom.Attribute) dom.Attributes {
	return SanitizeWith(WhitelistFor(strings.ToLower(tag), WhitelistOptions{}), raw)
}

// SanitizeWith filters raw attributes against whitelist. Names are
// lower-cased; data-* attributes always pass; role is kept only with the
// value "presentation"; style values go through CSSFilter. When a name
// repeats, the later value wins and the first position is kept.
func SanitizeWith(whitelist Whitelist, raw []dom.Attribute) dom.Attributes {
	var out dom.Attributes
	for _, attr := range raw {
		name := strings.ToLower(strings.TrimSpace(attr.Name))
		value := attr.Value

		switch {
		case name == "":
			continue
		case strings.HasPrefix(name, "data-"):
		case !whitelist.Allows(name):
			continue
		case name == "role" && value != "presentation":
			continue
		}

		switch name {
		case "style":
			value = CSSFilter(value)
		case "id":
			value = EscapeID(value)
		}
		out.Set(name, value)
	}
	return out
}

// EscapeID normalises an id attribute value. Ids are passed through
// unchanged.
func EscapeID(id string) string {
	return id
}

// EntityRune resolves a named character reference. The exact name is
// tried first, then its lower-case form.
func EntityRune(name string) (rune, bool) {
	if r, ok := entities[name]; ok {
		return r, true
	}
	r, ok := entities[strings.ToLower(name)]
	return r, ok
}

// Entity returns the text for a named character reference, or the literal
// reference when the name is unknown.
func Entity(name string) string {
	if r, ok := EntityRune(name); ok {
		return string(r)
	}
	return "&" + name + ";"
}

// NumericEntity returns the text for a numeric character reference given
// its decimal or hexadecimal digits. Values that are not Unicode scalar
// values, NUL and control characters other than tab, newline and carriage
// return are returned as the literal reference.
func NumericEntity(digits string, hex bool) string {
	base, literal := 10, "&#"+digits+";"
	if hex {
		base, literal = 16, "&#x"+digits+";"
	}
	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil || !utf8.ValidRune(rune(v)) || disallowedControl(rune(v)) {
		return literal
	}
	return string(rune(v))
}

func disallowedControl(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return false
	case r < 0x20, r >= 0x7f && r <= 0x9f:
		return true
	}
	return false
}
