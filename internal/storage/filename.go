// Package storage keeps uploaded portfolio files in a single flat directory.
package storage

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

var windowsDeviceNames = map[string]struct{}{
	"CON": {}, "AUX": {}, "COM1": {}, "COM2": {}, "COM3": {}, "COM4": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "PRN": {}, "NUL": {},
}

var nonASCII = runes.Predicate(func(r rune) bool {
	return r > unicode.MaxASCII
})

// SecureFilename flattens a client-supplied name into a single safe path element.
// Path separators become word breaks, so "../../etc/passwd.png" yields "etc_passwd.png".
// The result may be empty when nothing usable remains.
func SecureFilename(name string) string {
	// Chained transformers carry state, so each call builds its own.
	fold := transform.Chain(norm.NFKD, runes.Remove(nonASCII))
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = ""
	}

	folded = strings.NewReplacer("/", " ", "\\", " ").Replace(folded)
	folded = strings.Join(strings.Fields(folded), "_")
	folded = unsafeFilenameChars.ReplaceAllString(folded, "")
	folded = strings.Trim(folded, "._")

	if folded != "" {
		base := strings.ToUpper(strings.SplitN(folded, ".", 2)[0])
		if _, reserved := windowsDeviceNames[base]; reserved {
			folded = "_" + folded
		}
	}
	return folded
}

// Extension returns the lower-cased text after the last dot, or "" when there is none.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}
