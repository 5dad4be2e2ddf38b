package security

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mikey/intake-guard/internal/utils"
)

var strippers = []*regexp.Regexp{
	regexp.MustCompile(`[<>]`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`\$[a-zA-Z_][a-zA-Z0-9_]*`),
	regexp.MustCompile(`(?i)<\?php`),
	regexp.MustCompile(`<\?`),
}

// rejected mirrors the checks the validator would block on
func rejected(text string) bool {
	return ContainsCode(text).Detected ||
		ContainsHTML(text) ||
		ContainsPHP(text) ||
		ContainsPython(text)
}

func cleanOnce(text string) string {
	text = norm.NFC.String(utils.ValidUTF8(text))
	for _, re := range strippers {
		text = re.ReplaceAllString(text, "")
	}
	text = strings.TrimSpace(text)
	return utils.TruncateRunes(text, MaxInputLength)
}

// SanitizeInput returns "" for anything that looks like code, otherwise the text with
// markup-significant characters removed, trimmed and capped at MaxInputLength runes.
//
// Cleaning is repeated until the text stops changing and the result is checked again,
// so removing characters can never assemble a new signature: Sanitize(Sanitize(x)) == Sanitize(x).
func SanitizeInput(text string) string {
	if text == "" || rejected(text) {
		return ""
	}

	out := text
	for {
		next := cleanOnce(out)
		if next == out {
			break
		}
		out = next
	}

	if rejected(out) {
		return ""
	}
	return out
}
