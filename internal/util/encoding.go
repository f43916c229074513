package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText folds compatibility forms (full-width letters, ligatures)
// and trims surrounding space so equivalent search input encodes the same.
func NormalizeText(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}
