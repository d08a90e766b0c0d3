package clause

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DescriptionFromName turns a member name into a sentence.
// "EnterThePassword" and "enter_the_password" both become "Enter the password";
// acronyms such as "HTTP" are kept as written.
func DescriptionFromName(name string) string {
	words := splitWords(name)
	if len(words) == 0 {
		return ""
	}

	lower := cases.Lower(language.Und)
	title := cases.Title(language.Und)
	for i, w := range words {
		if isAcronym(w) {
			continue
		}
		w = lower.String(w)
		if i == 0 {
			w = title.String(w)
		}
		words[i] = w
	}
	return strings.Join(words, " ")
}

// splitWords splits on underscores, dashes and spaces, then on camel-case boundaries.
func splitWords(name string) []string {
	var words []string
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	for _, part := range parts {
		runes := []rune(part)
		start := 0
		for i := 1; i < len(runes); i++ {
			prev, cur := runes[i-1], runes[i]
			var next rune
			if i+1 < len(runes) {
				next = runes[i+1]
			}
			if !unicode.IsUpper(cur) {
				continue
			}
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && unicode.IsLower(next)) {
				words = append(words, string(runes[start:i]))
				start = i
			}
		}
		words = append(words, string(runes[start:]))
	}
	return words
}

func isAcronym(w string) bool {
	letters := 0
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters > 1
}
