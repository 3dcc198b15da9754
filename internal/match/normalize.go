package match

import (
	"strings"
	"unicode"
)

// NormalizeIdent reduces a type name to the form names are compared in: the
// generic argument list and module qualifier are dropped, then only letters
// and digits are kept, lower-cased. "*app.Order_Item[T]" becomes "orderitem".
func NormalizeIdent(s string) string {
	if i := strings.IndexAny(s, "[<"); i >= 0 {
		s = s[:i]
	}

	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}

	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}

		return -1
	}, s)
}
