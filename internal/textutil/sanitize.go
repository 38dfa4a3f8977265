package textutil

import (
	"strings"
	"unicode"
)

// maxFileNameRunes keeps generated names well under common 255-byte limits
// even for multi-byte titles.
const maxFileNameRunes = 80

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName turns an episode or video title into a safe file name.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters and control characters are removed; runs of whitespace collapse
// to one space and the result is capped at 80 runes. Leading dots are dropped
// so the file is never hidden.
func SanitizeFileName(name string) string {
	name = fileNameReplacer.Replace(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")
	name = strings.TrimLeft(name, ".")
	if runes := []rune(name); len(runes) > maxFileNameRunes {
		name = string(runes[:maxFileNameRunes])
	}
	return strings.TrimSpace(name)
}
