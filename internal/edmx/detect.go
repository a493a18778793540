package edmx

import (
	"slices"
	"strings"
)

// KnownVersions lists the Edmx Version attribute values recognized by Detect.
var KnownVersions = []string{"1.0", "2.0", "3.0", "4.0", "4.01"}

// Detect reports whether text looks like a metadata document: an Edmx root
// carrying a known Version. The returned version is the one Parse would use.
// It gates whether parsing is worth attempting and validates nothing beyond the root.
func Detect(text []byte) (string, bool) {
	doc, err := ParseBytes(text)
	if err != nil {
		return "", false
	}
	root := findRoot(doc)
	if root == nil {
		return "", false
	}
	version := strings.TrimSpace(root.Attr("Version"))
	if !slices.Contains(KnownVersions, version) {
		return "", false
	}
	return documentVersion(root), true
}
