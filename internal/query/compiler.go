package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/tordrt/odataschema/internal/schema"
)

// Query option names
const (
	OptionSelect      = "$select"
	OptionExpand      = "$expand"
	OptionFilter      = "$filter"
	OptionOrderBy     = "$orderby"
	OptionTop         = "$top"
	OptionSkip        = "$skip"
	OptionCount       = "$count"
	OptionInlineCount = "$inlinecount"

	inlineCountAllPages = "allpages"
)

// Selection is the query state for a single entity set.
// Every field except EntitySet is optional.
type Selection struct {
	EntitySet  string
	Select     []string
	Expand     []string
	Filter     string // passed through verbatim
	OrderBy    string
	Descending bool
	Top        *int
	Skip       *int
	Count      bool
}

// Result holds the compiled request URL and its human readable form
type Result struct {
	URL     string
	Display string
}

// Compile builds the request URL for sel against serviceRoot.
//
// declared is the full property list of the set's entity type; a selection
// equal to it is dropped since it asks for nothing the default response
// doesn't already return. version decides the count parameter: 4.x services
// get $count=true, older ones $inlinecount=allpages.
func Compile(serviceRoot string, sel Selection, declared []string, version string) Result {
	var clauses []string
	add := func(name, value string) {
		clauses = append(clauses, name+"="+escape(value))
	}

	if len(sel.Select) > 0 && !sameSet(sel.Select, declared) {
		add(OptionSelect, strings.Join(sel.Select, ","))
	}
	if len(sel.Expand) > 0 {
		add(OptionExpand, strings.Join(sel.Expand, ","))
	}
	if sel.Filter != "" {
		add(OptionFilter, sel.Filter)
	}
	if sel.OrderBy != "" {
		direction := "asc"
		if sel.Descending {
			direction = "desc"
		}
		add(OptionOrderBy, sel.OrderBy+" "+direction)
	}
	if sel.Top != nil {
		add(OptionTop, strconv.Itoa(*sel.Top))
	}
	if sel.Skip != nil {
		add(OptionSkip, strconv.Itoa(*sel.Skip))
	}
	if sel.Count {
		if schema.IsModernVersion(version) {
			add(OptionCount, "true")
		} else {
			add(OptionInlineCount, inlineCountAllPages)
		}
	}

	raw := strings.TrimRight(serviceRoot, "/") + "/" + url.PathEscape(sel.EntitySet)
	if len(clauses) > 0 {
		raw += "?" + strings.Join(clauses, "&")
	}

	return Result{URL: raw, Display: Decode(raw)}
}

// Decode reverses percent-escaping and '+' space encoding for display.
// Undecodable input is returned unchanged.
func Decode(raw string) string {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// escape percent-encodes a query value with spaces as %20
func escape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

func sameSet(selected, declared []string) bool {
	if len(declared) == 0 {
		return false
	}
	want := make(map[string]bool, len(declared))
	for _, name := range declared {
		want[name] = true
	}
	got := make(map[string]bool, len(selected))
	for _, name := range selected {
		if !want[name] {
			return false
		}
		got[name] = true
	}
	return len(got) == len(want)
}
