package ids

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Generate returns an identifier of category C derived from ideal that is
// not taken.
//
// Candidates are tried in order, first success wins:
//  1. ideal itself, if it satisfies the grammar
//  2. Sanitize(ideal, prefix)
//  3. sanitized + "_0", sanitized + "_1", ...
//
// Generate is a pure function of its inputs. It does not reserve the result:
// the caller must insert the returned identifier into its collection before
// generating another one, otherwise the same identifier is returned again.
func Generate[C Category](ideal string, taken func(ID[C]) bool) ID[C] {
	if IsValid(ideal) {
		if id := (ID[C]{value: ideal}); !taken(id) {
			return id
		}
	}

	var c C
	base := Sanitize(ideal, c.Prefix())
	if id := (ID[C]{value: base}); !taken(id) {
		return id
	}

	for n := 0; ; n++ {
		id := ID[C]{value: base + "_" + strconv.Itoa(n)}
		if !taken(id) {
			return id
		}
	}
}

// TakenIn adapts a map keyed by identifiers into a taken predicate.
func TakenIn[C Category, V any](m map[ID[C]]V) func(ID[C]) bool {
	return func(id ID[C]) bool {
		_, ok := m[id]
		return ok
	}
}

// stripMarks decomposes characters and drops combining marks, so "é" becomes "e".
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Sanitize turns an arbitrary string into one that satisfies the grammar.
//
// Diacritics are removed, every remaining rune outside [A-Za-z0-9_] is
// dropped, and a leading digit gets prefix prepended. An empty result
// becomes the prefix without its trailing underscore.
func Sanitize(ideal, prefix string) string {
	decomposed, _, err := transform.String(stripMarks, ideal)
	if err != nil {
		decomposed = ideal
	}

	var b strings.Builder
	for _, r := range decomposed {
		if r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			b.WriteRune(r)
		}
	}
	out := b.String()

	switch {
	case out == "":
		return strings.TrimSuffix(prefix, "_")
	case out[0] >= '0' && out[0] <= '9':
		return prefix + out
	default:
		return out
	}
}
