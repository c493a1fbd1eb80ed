package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName folds compatibility characters (full-width digits and
// letters), lowercases and removes all whitespace so that headings like
// "Sample Input １" and "sampleinput1" compare equal.
func NormalizeName(name string) string {
	name = norm.NFKC.String(name)
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// MatchName reports whether the normalized name starts with one of the
// matchers, "入出力例" therefore does not match "出力例".
func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.HasPrefix(name, m) {
			return true
		}
	}
	return false
}

// NormalizeSample strips trailing whitespace from every line and trailing
// blank lines, then terminates the text with exactly one newline. Leading
// and interior whitespace is kept as is. Whitespace-only text normalizes to
// the empty string.
func NormalizeSample(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return ""
	}
	joined := strings.Join(lines, "\n")
	if strings.TrimSpace(joined) == "" {
		return ""
	}
	return joined + "\n"
}
