package sanitize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Replacement values returned by CSSFilter for rejected input.
const (
	InvalidControlChar = "/* invalid control char */"
	InsecureInput      = "/* insecure input */"
)

var (
	cssEscape         = regexp.MustCompile(`\\(?:(\r\n|\n|\r|\f)|([0-9a-fA-F]{1,6}[ \t\n\r\f]?)|(.)|$)`)
	cssComment        = regexp.MustCompile(`/\*.*?\*/`)
	cssUnclosed       = regexp.MustCompile(`/\*.*$`)
	cssInvalidControl = regexp.MustCompile(`[\x00-\x08\x0e-\x1f\x7f]`)
	cssInsecure       = regexp.MustCompile(`(?i)expression|filter\s*:|accelerator\s*:|url\s*\(|image\s*\(|image-set\s*\(`)
)

// CSSFilter neutralises a style attribute value. Backslash escapes are
// decoded first so that obfuscated keywords are caught; characters that
// are significant inside CSS strings are re-escaped as hex escapes.
func CSSFilter(style string) string {
	style = decodeCSSEscapes(style)
	style = cssComment.ReplaceAllString(style, " ")
	style = cssUnclosed.ReplaceAllString(style, " ")

	if cssInvalidControl.MatchString(style) {
		return InvalidControlChar
	}
	if cssInsecure.MatchString(style) {
		return InsecureInput
	}
	return style
}

func decodeCSSEscapes(style string) string {
	matches := cssEscape.FindAllStringSubmatchIndex(style, -1)
	if matches == nil {
		return style
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		sb.WriteString(style[last:m[0]])
		last = m[1]

		var r rune
		switch {
		case m[2] >= 0:
			// Escaped line break: a continuation, dropped.
			continue
		case m[4] >= 0:
			r = hexRune(strings.TrimRight(style[m[4]:m[5]], " \t\n\r\f"))
		case m[6] >= 0:
			r, _ = utf8.DecodeRuneInString(style[m[6]:m[7]])
		default:
			// Backslash at end of input.
			r = '\\'
		}

		switch r {
		case '\n', '"', '\'', '\\':
			fmt.Fprintf(&sb, `\%x `, r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteString(style[last:])
	return sb.String()
}

func hexRune(digits string) rune {
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil || !utf8.ValidRune(rune(v)) {
		return utf8.RuneError
	}
	return rune(v)
}
