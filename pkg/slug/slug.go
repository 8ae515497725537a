package slug

import (
	"strings"
	"unicode"

	"github.com/alexsergivan/transliterator"
)

var translit = transliterator.NewTransliterator(nil)

// Make turns a display name into a lower-case ASCII slug. Non-latin scripts are
// transliterated first; runs of other characters collapse into a single dash.
func Make(name string) string {
	ascii := translit.Transliterate(name, "en")

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(ascii) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
