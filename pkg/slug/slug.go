package slug

import (
	"maps"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Option configures slug generation.
type Option func(*options)

type options struct {
	replacements map[string]string
	strip        string
	maxLength    int
}

// separator joins words.
const separator = "-"

// MaxLength limits the slug to n runes. Zero or negative disables the limit.
// A trailing separator left by truncation is removed.
func MaxLength(n int) Option {
	return func(o *options) {
		o.maxLength = n
	}
}

// StripChars removes every listed character before slugification.
func StripChars(chars string) Option {
	return func(o *options) {
		o.strip += chars
	}
}

// CustomReplace applies string replacements before slugification.
// Keys are applied in lexical order so the result is deterministic.
func CustomReplace(replacements map[string]string) Option {
	return func(o *options) {
		if o.replacements == nil {
			o.replacements = make(map[string]string, len(replacements))
		}
		maps.Copy(o.replacements, replacements)
	}
}

// Letters that do not decompose under NFD.
var foldTable = map[rune]string{
	'ß': "s",
	'æ': "a", 'Æ': "A",
	'œ': "o", 'Œ': "O",
	'ø': "o", 'Ø': "O",
	'ł': "l", 'Ł': "L",
	'đ': "d", 'Đ': "D",
}

// Make converts s into a lowercase, hyphen-separated ASCII slug.
func Make(s string, opts ...Option) string {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if len(o.replacements) > 0 {
		for _, k := range slices.Sorted(maps.Keys(o.replacements)) {
			s = strings.ReplaceAll(s, k, " "+o.replacements[k]+" ")
		}
	}

	if o.strip != "" {
		s = strings.Map(func(r rune) rune {
			if strings.ContainsRune(o.strip, r) {
				return -1
			}
			return r
		}, s)
	}

	s = fold(s)

	var (
		words []string
		word  strings.Builder
	)
	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			word.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()

	result := strings.Join(words, separator)

	// The result is ASCII, so bytes and runes coincide.
	if o.maxLength > 0 && len(result) > o.maxLength {
		result = strings.TrimRight(result[:o.maxLength], separator)
	}

	return result
}

func fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if repl, ok := foldTable[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, b.String())
	if err != nil {
		return b.String()
	}
	return out
}
