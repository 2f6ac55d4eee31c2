package sanitize

// Whitelist is a set of attribute names allowed on an element.
type Whitelist map[string]struct{}

func set(groups ...[]string) Whitelist {
	w := make(Whitelist)
	for _, g := range groups {
		for _, name := range g {
			w[name] = struct{}{}
		}
	}
	return w
}

// Allows reports whether name is in the whitelist.
func (w Whitelist) Allows(name string) bool {
	_, ok := w[name]
	return ok
}

var (
	attrCommon     = []string{"id", "class", "style", "lang", "dir", "title", "role"}
	attrBlock      = append([]string{"align"}, attrCommon...)
	attrTableAlign = []string{"align", "char", "charoff", "valign"}
	attrTableCell  = []string{
		"abbr", "axis", "headers", "scope", "rowspan", "colspan",
		"nowrap", "width", "height", "bgcolor",
	}
	// RDFa and microdata attributes, allowed when the matching option is set.
	attrRDFa      = []string{"about", "property", "resource", "datatype", "typeof"}
	attrMicrodata = []string{"itemid", "itemprop", "itemref", "itemscope", "itemtype"}
)

// ReferenceWhitelist applies to <ref> and <references>.
var ReferenceWhitelist = set([]string{"name", "group"})

var whitelists = map[string]Whitelist{
	"div":        set(attrBlock),
	"center":     set(attrCommon),
	"span":       set(attrBlock),
	"h1":         set(attrBlock),
	"h2":         set(attrBlock),
	"h3":         set(attrBlock),
	"h4":         set(attrBlock),
	"h5":         set(attrBlock),
	"h6":         set(attrBlock),
	"em":         set(attrCommon),
	"strong":     set(attrCommon),
	"cite":       set(attrCommon),
	"dfn":        set(attrCommon),
	"code":       set(attrCommon),
	"samp":       set(attrCommon),
	"kbd":        set(attrCommon),
	"var":        set(attrCommon),
	"abbr":       set(attrCommon),
	"blockquote": set(attrCommon, []string{"cite"}),
	"sub":        set(attrCommon),
	"sup":        set(attrCommon),
	"p":          set(attrBlock),
	"br":         set([]string{"id", "class", "title", "style", "clear"}),
	"pre":        set(attrCommon, []string{"width"}),
	"ins":        set(attrCommon, []string{"cite", "datetime"}),
	"del":        set(attrCommon, []string{"cite", "datetime"}),
	"ul":         set(attrCommon, []string{"type"}),
	"ol":         set(attrCommon, []string{"type", "start"}),
	"li":         set(attrCommon, []string{"type", "value"}),
	"dl":         set(attrCommon),
	"dd":         set(attrCommon),
	"dt":         set(attrCommon),
	"table": set(attrCommon, []string{
		"summary", "width", "border", "frame", "rules",
		"cellspacing", "cellpadding", "align", "bgcolor",
	}),
	"caption":  set(attrCommon, []string{"align"}),
	"thead":    set(attrCommon, attrTableAlign),
	"tfoot":    set(attrCommon, attrTableAlign),
	"tbody":    set(attrCommon, attrTableAlign),
	"colgroup": set(attrCommon, []string{"span", "width"}, attrTableAlign),
	"col":      set(attrCommon, []string{"span", "width"}, attrTableAlign),
	"tr":       set(attrCommon, []string{"bgcolor"}, attrTableAlign),
	"td":       set(attrCommon, attrTableCell, attrTableAlign),
	"th":       set(attrCommon, attrTableCell, attrTableAlign),
	"a":        set(attrCommon, []string{"href", "rel", "rev"}),
	"img":      set(attrCommon, []string{"alt", "src", "width", "height"}),
	"tt":       set(attrCommon),
	"b":        set(attrCommon),
	"i":        set(attrCommon),
	"big":      set(attrCommon),
	"small":    set(attrCommon),
	"strike":   set(attrCommon),
	"s":        set(attrCommon),
	"u":        set(attrCommon),
	"font":     set(attrCommon, []string{"size", "color", "face"}),
	"hr":       set(attrCommon, []string{"noshade", "size", "width"}),
	"bdi":      set(attrCommon),
}

// WhitelistOptions extends the per-tag whitelist.
type WhitelistOptions struct {
	RDFa      bool
	Microdata bool
}

// WhitelistFor returns the attribute whitelist for tag. Unknown tags allow
// nothing. The ref and references tags use ReferenceWhitelist.
func WhitelistFor(tag string, opts WhitelistOptions) Whitelist {
	if tag == "ref" || tag == "references" {
		return ReferenceWhitelist
	}
	base := whitelists[tag]
	if !opts.RDFa && !opts.Microdata {
		if base == nil {
			return Whitelist{}
		}
		return base
	}
	w := make(Whitelist, len(base)+10)
	for name := range base {
		w[name] = struct{}{}
	}
	if opts.RDFa {
		for _, name := range attrRDFa {
			w[name] = struct{}{}
		}
	}
	if opts.Microdata {
		for _, name := range attrMicrodata {
			w[name] = struct{}{}
		}
	}
	return w
}
